// Package fsys is the filesystem collaborator used by the preprocessor and
// the execution coordinator.
//
// The current directory is state owned by the FileSystem value, not the
// process. Relative paths given to GetFullPath resolve against it, and the
// preprocessor swaps it while parsing an included file so directives inside
// that file resolve relative to the file's own directory.
package fsys

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileSystem is the set of file operations the script host depends on.
type FileSystem interface {
	// GetFullPath resolves path to a canonical absolute path.
	GetFullPath(path string) (string, error)

	// ReadFileLines returns the file's lines without line terminators.
	ReadFileLines(path string) ([]string, error)

	// SplitLines splits text on any line terminator.
	SplitLines(text string) []string

	// FileExists reports whether path names an existing regular file.
	FileExists(path string) bool

	CurrentDirectory() string
	SetCurrentDirectory(dir string)

	// WorkingDirectory returns the directory a file's relative paths resolve against.
	WorkingDirectory(path string) string

	// NewLine is the separator used when joining generated code.
	NewLine() string
}

// OS is a FileSystem backed by the operating system.
//
// Not safe for concurrent use: the current directory is a plain field.
type OS struct {
	cwd string
}

// NewOS creates an OS filesystem rooted at the process working directory.
func NewOS() (*OS, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("get working directory: %w", err)
	}
	return &OS{cwd: wd}, nil
}

// NewOSAt creates an OS filesystem with the given current directory.
func NewOSAt(dir string) *OS {
	return &OS{cwd: filepath.Clean(dir)}
}

func (f *OS) GetFullPath(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("empty path")
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(f.cwd, path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	// Symlinks are resolved when possible so the same file reached through
	// two links is one identity. Missing files keep their lexical path.
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	return abs, nil
}

func (f *OS) ReadFileLines(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open script: %w", err)
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		lines = append(lines, strings.TrimSuffix(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read script %s: %w", path, err)
	}
	return lines, nil
}

func (f *OS) SplitLines(text string) []string {
	return SplitLines(text)
}

func (f *OS) FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func (f *OS) CurrentDirectory() string {
	return f.cwd
}

func (f *OS) SetCurrentDirectory(dir string) {
	f.cwd = dir
}

func (f *OS) WorkingDirectory(path string) string {
	return filepath.Dir(path)
}

func (f *OS) NewLine() string {
	return "\n"
}

// SplitLines splits text on "\r\n", "\n" or "\r".
// An empty string yields a single empty line.
func SplitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.Split(text, "\n")
}
