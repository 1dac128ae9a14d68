package mocks

import (
	"io/fs"
	"sync"

	"github.com/user/codectest/pkg/ports"
)

// FileSystem keeps files in memory. WriteErr, when set, fails every write.
type FileSystem struct {
	mu     sync.Mutex
	files  map[string][]byte
	writes []string

	WriteErr error
}

// NewFileSystem returns an empty in-memory FileSystem.
func NewFileSystem() *FileSystem {
	return &FileSystem{files: make(map[string][]byte)}
}

// ReadFile implements ports.FileSystem.
func (m *FileSystem) ReadFile(path string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[path]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: path, Err: fs.ErrNotExist}
	}
	return append([]byte(nil), data...), nil
}

// WriteFile implements ports.FileSystem.
func (m *FileSystem) WriteFile(path string, data []byte) error {
	if m.WriteErr != nil {
		return m.WriteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = append([]byte(nil), data...)
	m.writes = append(m.writes, path)
	return nil
}

// Exists implements ports.FileSystem.
func (m *FileSystem) Exists(path string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[path]
	return ok, nil
}

// File returns the stored contents of path.
func (m *FileSystem) File(path string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[path]
	return data, ok
}

// Writes returns the written paths in order.
func (m *FileSystem) Writes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.writes...)
}

var _ ports.FileSystem = (*FileSystem)(nil)
