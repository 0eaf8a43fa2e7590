package preprocess

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/roach88/scripthost/internal/fsys"
)

// ErrEmptyPath is returned when a file operation is given an empty path.
var ErrEmptyPath = errors.New("preprocess: empty path")

// Processor is the preprocessing orchestrator.
//
// A Processor is not safe for concurrent use: parsing swaps the filesystem's
// current directory while descending into included files.
type Processor struct {
	fs             fsys.FileSystem
	logger         *slog.Logger
	lookupEnv      LookupEnvFunc
	lineProcessors []LineProcessor
	bodyProcessors []BodyProcessor
}

// Option configures a Processor.
type Option func(*Processor)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) {
		p.logger = logger
	}
}

// WithEnvLookup sets how %NAME% tokens are resolved. Defaults to os.LookupEnv.
func WithEnvLookup(lookup LookupEnvFunc) Option {
	return func(p *Processor) {
		p.lookupEnv = lookup
	}
}

// WithLineProcessors replaces the default line processor chain.
// Order is significant: the first processor to claim a line wins.
func WithLineProcessors(processors ...LineProcessor) Option {
	return func(p *Processor) {
		p.lineProcessors = processors
	}
}

// WithBodyProcessors sets the body processor chain. There are none by default.
func WithBodyProcessors(processors ...BodyProcessor) Option {
	return func(p *Processor) {
		p.bodyProcessors = processors
	}
}

// New creates a Processor over fs.
//
// Panics if fs is nil.
func New(fs fsys.FileSystem, opts ...Option) *Processor {
	if fs == nil {
		panic("preprocess.New: nil filesystem")
	}
	p := &Processor{fs: fs}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	if p.lineProcessors == nil {
		p.lineProcessors = DefaultLineProcessors(fs, p.lookupEnv)
	}
	return p
}

// DefaultLineProcessors returns the standard chain in registration order:
// namespace import, file inclusion, reference, shebang.
func DefaultLineProcessors(fs fsys.FileSystem, lookupEnv LookupEnvFunc) []LineProcessor {
	return []LineProcessor{
		UsingLineProcessor{},
		NewLoadLineProcessor(fs, lookupEnv),
		NewReferenceLineProcessor(fs, lookupEnv),
		ShebangLineProcessor{},
	}
}

// ProcessFile preprocesses the file at path and everything it loads.
func (p *Processor) ProcessFile(path string) (*Result, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}
	return p.process(func(pc *ParseContext) error {
		return p.ParseFile(path, pc)
	})
}

// ProcessScript preprocesses an anonymous script. No loaded-file identity or
// marker line is produced for the script itself.
func (p *Processor) ProcessScript(script string) (*Result, error) {
	return p.process(func(pc *ParseContext) error {
		return p.ParseScript(script, pc)
	})
}

func (p *Processor) process(parse func(pc *ParseContext) error) (*Result, error) {
	pc := NewParseContext()

	p.logger.Debug("starting pre-processing")
	if err := parse(pc); err != nil {
		return nil, err
	}
	code := p.GenerateCode(pc)
	p.logger.Debug("pre-processing finished",
		"namespaces", len(pc.Namespaces),
		"references", len(pc.References),
		"loaded_scripts", len(pc.LoadedScripts),
	)

	return &Result{
		Namespaces:    pc.Namespaces,
		LoadedScripts: pc.LoadedScripts,
		References:    pc.References,
		Code:          code,
	}, nil
}

// ParseFile parses the file at path into pc. A file already loaded in this
// pass is skipped, which is what makes inclusion cycles terminate.
//
// Panics if pc is nil.
func (p *Processor) ParseFile(path string, pc *ParseContext) error {
	if pc == nil {
		panic("preprocess.ParseFile: nil context")
	}
	if path == "" {
		return ErrEmptyPath
	}

	fullPath, err := p.fs.GetFullPath(path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}
	filename := filepath.Base(path)

	if !pc.MarkLoaded(fullPath) {
		p.logger.Debug("skipping script, already loaded", "file", filename)
		return nil
	}
	p.logger.Debug("processing script", "file", filename)

	lines, err := p.fs.ReadFileLines(fullPath)
	if err != nil {
		return fmt.Errorf("load %s: %w", fullPath, err)
	}
	lines = insertLineDirective(fullPath, lines)

	if err := p.inDirectory(fullPath, func() error {
		return p.parseLines(lines, pc)
	}); err != nil {
		return err
	}

	pc.BodyLines = p.processBody(pc.BodyLines, fullPath)
	return nil
}

// ParseScript parses script text into pc through the line processor chain
// only: no identity, no directory switch, no marker, no body processors.
//
// Panics if pc is nil.
func (p *Processor) ParseScript(script string, pc *ParseContext) error {
	if pc == nil {
		panic("preprocess.ParseScript: nil context")
	}
	return p.parseLines(p.fs.SplitLines(script), pc)
}

// GenerateCode assembles the final unit: one import per non-blank namespace in
// discovery order, a blank separator if any were emitted, then the body.
func (p *Processor) GenerateCode(pc *ParseContext) string {
	nl := p.fs.NewLine()

	var usings []string
	for _, ns := range pc.Namespaces {
		if strings.TrimSpace(ns) == "" {
			continue
		}
		usings = append(usings, "using "+ns+";")
	}

	var b strings.Builder
	if len(usings) > 0 {
		b.WriteString(strings.Join(usings, nl))
		b.WriteString(nl)
		b.WriteString(nl)
	}
	b.WriteString(strings.Join(pc.BodyLines, nl))
	return b.String()
}

func (p *Processor) parseLines(lines []string, pc *ParseContext) error {
	codeIndex := -1
	for i, line := range lines {
		if isNonDirectiveLine(line) {
			codeIndex = i
			break
		}
	}

	for i, line := range lines {
		isBeforeCode := codeIndex < 0 || i < codeIndex

		claimed, err := p.processLine(pc, line, isBeforeCode)
		if err != nil {
			return err
		}
		if claimed {
			continue
		}
		pc.BodyLines = append(pc.BodyLines, line)
	}
	return nil
}

func (p *Processor) processLine(pc *ParseContext, line string, isBeforeCode bool) (bool, error) {
	for _, lp := range p.lineProcessors {
		claimed, err := lp.ProcessLine(p, pc, line, isBeforeCode)
		if err != nil {
			return true, err
		}
		if claimed {
			return true, nil
		}
	}
	return false, nil
}

func (p *Processor) processBody(body []string, fullPath string) []string {
	for _, bp := range p.bodyProcessors {
		if out, handled := bp.ProcessBody(body, fullPath); handled {
			return out
		}
	}
	return body
}

// inDirectory runs fn with the filesystem's current directory set to the
// directory of path. The previous directory is restored on every exit path.
func (p *Processor) inDirectory(path string, fn func() error) error {
	previous := p.fs.CurrentDirectory()
	p.fs.SetCurrentDirectory(p.fs.WorkingDirectory(path))
	defer p.fs.SetCurrentDirectory(previous)
	return fn()
}

// insertLineDirective places a `#line` marker before the first line that is
// neither a directive nor a namespace import.
func insertLineDirective(fullPath string, lines []string) []string {
	bodyIndex := -1
	for i, line := range lines {
		if isNonDirectiveLine(line) && !IsUsingLine(line) {
			bodyIndex = i
			break
		}
	}
	if bodyIndex < 0 {
		return lines
	}

	out := make([]string, 0, len(lines)+1)
	out = append(out, lines[:bodyIndex]...)
	out = append(out, LineMarker(bodyIndex+1, fullPath))
	out = append(out, lines[bodyIndex:]...)
	return out
}

// LineMarker formats a diagnostic-location marker line.
func LineMarker(line int, path string) string {
	return fmt.Sprintf("#line %d \"%s\"", line, path)
}

var lineMarkerPattern = regexp.MustCompile(`^#line (\d+) "(.*)"$`)

// ParseLineMarker is the inverse of LineMarker.
func ParseLineMarker(s string) (line int, path string, ok bool) {
	m := lineMarkerPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, "", false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, "", false
	}
	return n, m[2], true
}
