package preprocess

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/roach88/scripthost/internal/fsys"
)

// Directive prefixes. A line starting with one of these (after leading
// blanks) belongs to the header zone when it precedes all code.
const (
	ReferencePrefix = "#r "
	LoadPrefix      = "#load "
	ShebangPrefix   = "#!"
	usingPrefix     = "using "
)

// Parser is the recursive entry point line processors call back into.
type Parser interface {
	ParseFile(path string, pc *ParseContext) error
	ParseScript(script string, pc *ParseContext) error
}

// LineProcessor examines one line. It returns true when it claimed the line,
// which removes the line from the body and stops the chain for that line.
type LineProcessor interface {
	ProcessLine(p Parser, pc *ParseContext, line string, isBeforeCode bool) (bool, error)
}

// BodyProcessor transforms the accumulated body after a file has been parsed.
// It returns the (possibly new) body and whether it handled it; the first
// processor that handles the body stops the chain.
type BodyProcessor interface {
	ProcessBody(body []string, fullPath string) ([]string, bool)
}

// BodyProcessorFunc adapts a function to BodyProcessor.
type BodyProcessorFunc func(body []string, fullPath string) ([]string, bool)

func (f BodyProcessorFunc) ProcessBody(body []string, fullPath string) ([]string, bool) {
	return f(body, fullPath)
}

// LookupEnvFunc resolves an environment variable.
type LookupEnvFunc func(key string) (string, bool)

// UsingLineProcessor claims namespace imports.
//
// Both `using "A.B";` and `using A.B;` are accepted. A scoped-resource
// statement such as `using (var x = Open()) { ... }` is never an import.
type UsingLineProcessor struct{}

func (UsingLineProcessor) ProcessLine(_ Parser, pc *ParseContext, line string, _ bool) (bool, error) {
	if !IsUsingLine(line) {
		return false, nil
	}
	pc.Namespaces = append(pc.Namespaces, namespaceOf(line))
	return true, nil
}

// LoadLineProcessor claims #load directives and parses the target file when
// the directive sits in the header zone.
type LoadLineProcessor struct {
	fs        fsys.FileSystem
	lookupEnv LookupEnvFunc
}

// NewLoadLineProcessor creates a LoadLineProcessor. A nil lookupEnv uses os.LookupEnv.
func NewLoadLineProcessor(fs fsys.FileSystem, lookupEnv LookupEnvFunc) *LoadLineProcessor {
	if lookupEnv == nil {
		lookupEnv = os.LookupEnv
	}
	return &LoadLineProcessor{fs: fs, lookupEnv: lookupEnv}
}

func (l *LoadLineProcessor) ProcessLine(p Parser, pc *ParseContext, line string, isBeforeCode bool) (bool, error) {
	arg, ok := directiveArgument(line, LoadPrefix)
	if !ok {
		return false, nil
	}

	fullPath, err := l.fs.GetFullPath(ExpandEnv(arg, l.lookupEnv))
	if !isBeforeCode {
		// Late #load is stripped but never followed.
		return true, nil
	}
	if err != nil {
		return true, fmt.Errorf("#load %s: %w", arg, err)
	}
	if err := p.ParseFile(fullPath, pc); err != nil {
		return true, err
	}
	return true, nil
}

// ReferenceLineProcessor claims #r directives.
//
// If the argument names an existing file its canonical path is recorded;
// otherwise the argument text is recorded as a symbolic reference.
type ReferenceLineProcessor struct {
	fs        fsys.FileSystem
	lookupEnv LookupEnvFunc
}

// NewReferenceLineProcessor creates a ReferenceLineProcessor. A nil lookupEnv uses os.LookupEnv.
func NewReferenceLineProcessor(fs fsys.FileSystem, lookupEnv LookupEnvFunc) *ReferenceLineProcessor {
	if lookupEnv == nil {
		lookupEnv = os.LookupEnv
	}
	return &ReferenceLineProcessor{fs: fs, lookupEnv: lookupEnv}
}

func (r *ReferenceLineProcessor) ProcessLine(_ Parser, pc *ParseContext, line string, isBeforeCode bool) (bool, error) {
	arg, ok := directiveArgument(line, ReferencePrefix)
	if !ok {
		return false, nil
	}
	if !isBeforeCode {
		return true, nil
	}

	ref := ExpandEnv(arg, r.lookupEnv)
	if strings.TrimSpace(ref) == "" {
		return true, nil
	}
	if fullPath, err := r.fs.GetFullPath(ref); err == nil && r.fs.FileExists(fullPath) {
		ref = fullPath
	}
	pc.References = append(pc.References, ref)
	return true, nil
}

// ShebangLineProcessor drops a `#!` interpreter line from the header zone.
type ShebangLineProcessor struct{}

func (ShebangLineProcessor) ProcessLine(_ Parser, _ *ParseContext, line string, isBeforeCode bool) (bool, error) {
	return isBeforeCode && strings.HasPrefix(strings.TrimLeft(line, " \t"), ShebangPrefix), nil
}

// IsUsingLine reports whether line is a namespace import statement.
func IsUsingLine(line string) bool {
	trimmed := strings.TrimLeft(line, " \t")
	if !strings.HasPrefix(trimmed, usingPrefix) {
		return false
	}
	if strings.Contains(line, "{") || !strings.Contains(line, ";") {
		return false
	}
	return !strings.HasPrefix(strings.TrimSpace(trimmed[len(usingPrefix):]), "(")
}

// IsDirectiveLine reports whether line starts with a directive prefix.
func IsDirectiveLine(line string) bool {
	trimmed := strings.TrimLeft(line, " \t")
	return strings.HasPrefix(trimmed, ReferencePrefix) ||
		strings.HasPrefix(trimmed, LoadPrefix) ||
		strings.HasPrefix(trimmed, ShebangPrefix)
}

// isNonDirectiveLine reports whether line is code for zone classification.
func isNonDirectiveLine(line string) bool {
	return !IsDirectiveLine(line) && strings.TrimSpace(line) != ""
}

func namespaceOf(line string) string {
	ns := strings.TrimSpace(line)
	ns = strings.TrimPrefix(ns, "using")
	if i := strings.Index(ns, ";"); i >= 0 {
		ns = ns[:i]
	}
	return strings.Trim(strings.TrimSpace(ns), `"`)
}

func directiveArgument(line, prefix string) (string, bool) {
	trimmed := strings.TrimLeft(line, " \t")
	if !strings.HasPrefix(trimmed, prefix) {
		return "", false
	}
	return strings.Trim(strings.TrimSpace(trimmed[len(prefix):]), `"`), true
}

var envToken = regexp.MustCompile(`%([^%\s]+)%`)

// ExpandEnv substitutes %NAME% tokens with environment values.
// Unknown variables are left as written.
func ExpandEnv(s string, lookupEnv LookupEnvFunc) string {
	if lookupEnv == nil {
		lookupEnv = os.LookupEnv
	}
	return envToken.ReplaceAllStringFunc(s, func(tok string) string {
		if v, ok := lookupEnv(tok[1 : len(tok)-1]); ok {
			return v
		}
		return tok
	})
}
