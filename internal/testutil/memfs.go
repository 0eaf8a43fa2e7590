package testutil

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/roach88/scripthost/internal/fsys"
)

// MemFS is an in-memory fsys.FileSystem for tests.
//
// Paths are cleaned and made absolute against the current directory, which
// starts at "/". Every GetFullPath argument is recorded so tests can assert
// on what the preprocessor asked to resolve.
type MemFS struct {
	mu       sync.Mutex
	files    map[string]string
	cwd      string
	resolved []string
	chdirs   []string
}

// NewMemFS creates a MemFS holding files (path -> content).
// Relative paths are rooted at "/".
func NewMemFS(files map[string]string) *MemFS {
	m := &MemFS{files: make(map[string]string), cwd: "/"}
	for path, content := range files {
		m.files[m.abs(path)] = content
	}
	return m
}

// WriteFile adds or replaces a file.
func (m *MemFS) WriteFile(path, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[m.abs(path)] = content
}

func (m *MemFS) abs(path string) string {
	if !filepath.IsAbs(path) {
		path = filepath.Join(m.cwd, path)
	}
	return filepath.Clean(path)
}

func (m *MemFS) GetFullPath(path string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resolved = append(m.resolved, path)
	if path == "" {
		return "", fmt.Errorf("empty path")
	}
	return m.abs(path), nil
}

func (m *MemFS) ReadFileLines(path string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	content, ok := m.files[m.abs(path)]
	if !ok {
		return nil, fmt.Errorf("open script: %s: file does not exist", path)
	}
	return fsys.SplitLines(strings.TrimSuffix(content, "\n")), nil
}

func (m *MemFS) SplitLines(text string) []string {
	return fsys.SplitLines(text)
}

func (m *MemFS) FileExists(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[m.abs(path)]
	return ok
}

func (m *MemFS) CurrentDirectory() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cwd
}

func (m *MemFS) SetCurrentDirectory(dir string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cwd = dir
	m.chdirs = append(m.chdirs, dir)
}

func (m *MemFS) WorkingDirectory(path string) string {
	return filepath.Dir(path)
}

func (m *MemFS) NewLine() string {
	return "\n"
}

// Resolved returns every path passed to GetFullPath, in call order.
func (m *MemFS) Resolved() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.resolved...)
}

// DirectoryChanges returns every directory passed to SetCurrentDirectory.
func (m *MemFS) DirectoryChanges() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.chdirs...)
}

var _ fsys.FileSystem = (*MemFS)(nil)
