package gointerp

import (
	"fmt"
	"strings"

	"github.com/roach88/scripthost/internal/fsys"
	"github.com/roach88/scripthost/internal/preprocess"
)

// Lower rewrites an assembled unit into plain Go source lines.
//
// Namespace import lines are dropped: imports travel separately in the
// Submission. Location markers become //line directives so that
// interpreter positions point back into the original files.
func Lower(code string) []string {
	lines := fsys.SplitLines(code)
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if preprocess.IsUsingLine(line) {
			continue
		}
		if n, path, ok := preprocess.ParseLineMarker(line); ok {
			out = append(out, lineDirective(path, n))
			continue
		}
		out = append(out, line)
	}
	return out
}

func lineDirective(path string, line int) string {
	return fmt.Sprintf("//line %s:%d", path, line)
}

// position tracks where lowered line i came from.
type position struct {
	file string
	line int
}

// positions maps each lowered line to its original location. Lines before
// the first directive have no file.
func positions(lines []string) []position {
	out := make([]position, len(lines))
	var cur position
	for i, line := range lines {
		if file, n, ok := parseLineDirective(line); ok {
			out[i] = cur
			cur = position{file: file, line: n}
			continue
		}
		out[i] = cur
		if cur.file != "" {
			cur.line++
		}
	}
	return out
}

func parseLineDirective(line string) (string, int, bool) {
	rest, ok := strings.CutPrefix(line, "//line ")
	if !ok {
		return "", 0, false
	}
	idx := strings.LastIndex(rest, ":")
	if idx <= 0 {
		return "", 0, false
	}
	var n int
	if _, err := fmt.Sscanf(rest[idx+1:], "%d", &n); err != nil {
		return "", 0, false
	}
	return rest[:idx], n, true
}
