package filesystem

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// RunHandler answers commands sent to a MockRemote.
type RunHandler func(ctx context.Context, cmd string) ([]byte, error)

// MockRemote is an in-memory remote session for tests.
// Paths are POSIX-style; "/" always exists.
type MockRemote struct {
	mu    sync.RWMutex
	files map[string]*mockFile

	closed     atomic.Bool
	runHandler RunHandler
	beforeCopy func(path string) error
	commands   []string
}

// mockFile represents a file in the mock filesystem.
type mockFile struct {
	data    []byte
	modTime time.Time
	isDir   bool
	symlink bool
}

// mockFileInfo implements os.FileInfo for mock files.
type mockFileInfo struct {
	name    string
	size    int64
	modTime time.Time
	mode    os.FileMode
}

func (fi *mockFileInfo) Name() string       { return fi.name }
func (fi *mockFileInfo) Size() int64        { return fi.size }
func (fi *mockFileInfo) Mode() os.FileMode  { return fi.mode }
func (fi *mockFileInfo) ModTime() time.Time { return fi.modTime }
func (fi *mockFileInfo) IsDir() bool        { return fi.mode.IsDir() }
func (fi *mockFileInfo) Sys() any           { return nil }

func (f *mockFile) info(name string) *mockFileInfo {
	mode := os.FileMode(0o644)

	switch {
	case f.isDir:
		mode = os.ModeDir | 0o755
	case f.symlink:
		mode = os.ModeSymlink | 0o777
	}

	return &mockFileInfo{name: path.Base(name), size: int64(len(f.data)), modTime: f.modTime, mode: mode}
}

// mockFileHandle implements the File interface for reading/writing.
type mockFileHandle struct {
	remote *MockRemote
	path   string
	reader *bytes.Reader
	writer *bytes.Buffer
	closed bool
}

func (f *mockFileHandle) Read(p []byte) (int, error) {
	if f.closed {
		return 0, os.ErrClosed
	}

	if f.reader == nil {
		return 0, io.EOF
	}

	return f.reader.Read(p)
}

func (f *mockFileHandle) Write(p []byte) (int, error) {
	if f.closed {
		return 0, os.ErrClosed
	}

	if f.writer == nil {
		return 0, fmt.Errorf("file %s not opened for writing", f.path) //nolint:err113 // Test double
	}

	return f.writer.Write(p)
}

func (f *mockFileHandle) Close() error {
	if f.closed {
		return os.ErrClosed
	}

	f.closed = true

	if f.writer != nil {
		f.remote.mu.Lock()
		defer f.remote.mu.Unlock()

		f.remote.files[f.path] = &mockFile{data: f.writer.Bytes(), modTime: time.Now()}
	}

	return nil
}

func (f *mockFileHandle) Stat() (os.FileInfo, error) {
	return f.remote.Stat(f.path)
}

// NewMockRemote creates an empty in-memory remote.
func NewMockRemote() *MockRemote {
	return &MockRemote{
		files: map[string]*mockFile{"/": {isDir: true}},
	}
}

// Alive reports whether Close has not been called.
func (m *MockRemote) Alive() bool {
	return !m.closed.Load()
}

// Close marks the remote as disconnected.
func (m *MockRemote) Close() error {
	m.closed.Store(true)

	return nil
}

// Reopen makes a closed remote usable again, as a fresh dial would.
func (m *MockRemote) Reopen() {
	m.closed.Store(false)
}

// Run passes the command to the configured RunHandler.
func (m *MockRemote) Run(ctx context.Context, cmd string) ([]byte, error) {
	m.mu.Lock()
	m.commands = append(m.commands, cmd)
	handler := m.runHandler
	m.mu.Unlock()

	if handler == nil {
		return nil, fmt.Errorf("remote command %q failed: no handler", cmd) //nolint:err113 // Test double
	}

	return handler(ctx, cmd)
}

// SetRunHandler sets how Run answers commands.
func (m *MockRemote) SetRunHandler(handler RunHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.runHandler = handler
}

// SetBeforeCreate installs a hook called before every Create. A non-nil error
// fails the Create. The hook may block to simulate a slow transfer.
func (m *MockRemote) SetBeforeCreate(hook func(path string) error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.beforeCopy = hook
}

// Commands returns the commands received by Run.
func (m *MockRemote) Commands() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return append([]string(nil), m.commands...)
}

// Create creates a file for writing. The parent directory must exist.
func (m *MockRemote) Create(name string) (File, error) {
	if err := m.checkOpen(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	hook := m.beforeCopy
	m.mu.RUnlock()

	name = path.Clean(name)

	if hook != nil {
		if err := hook(name); err != nil {
			return nil, err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	parent, ok := m.files[path.Dir(name)]
	if !ok || !parent.isDir {
		return nil, fmt.Errorf("create %s: %w", name, os.ErrNotExist)
	}

	if existing, ok := m.files[name]; ok && existing.isDir {
		return nil, fmt.Errorf("create %s: is a directory", name) //nolint:err113 // Test double
	}

	return &mockFileHandle{remote: m, path: name, writer: &bytes.Buffer{}}, nil
}

// Mkdir creates one directory. The parent must exist.
func (m *MockRemote) Mkdir(name string) error {
	if err := m.checkOpen(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	name = path.Clean(name)

	if _, exists := m.files[name]; exists {
		return fmt.Errorf("mkdir %s: %w", name, os.ErrExist)
	}

	parent, ok := m.files[path.Dir(name)]
	if !ok || !parent.isDir {
		return fmt.Errorf("mkdir %s: %w", name, os.ErrNotExist)
	}

	m.files[name] = &mockFile{isDir: true, modTime: time.Now()}

	return nil
}

// Open opens a file for reading.
func (m *MockRemote) Open(name string) (File, error) {
	if err := m.checkOpen(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	name = path.Clean(name)

	file, exists := m.files[name]
	if !exists {
		return nil, fmt.Errorf("open %s: %w", name, os.ErrNotExist)
	}

	if file.isDir {
		return nil, fmt.Errorf("open %s: is a directory", name) //nolint:err113 // Test double
	}

	return &mockFileHandle{remote: m, path: name, reader: bytes.NewReader(file.data)}, nil
}

// Remove removes a file or empty directory.
func (m *MockRemote) Remove(name string) error {
	if err := m.checkOpen(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	name = path.Clean(name)

	file, exists := m.files[name]
	if !exists {
		return fmt.Errorf("remove %s: %w", name, os.ErrNotExist)
	}

	if file.isDir {
		for p := range m.files {
			if strings.HasPrefix(p, name+"/") {
				return fmt.Errorf("remove %s: directory not empty", name) //nolint:err113 // Test double
			}
		}
	}

	delete(m.files, name)

	return nil
}

// Scan returns an iterator over the regular files under root.
func (m *MockRemote) Scan(root string) FileScanner {
	return newSliceScanner(func() ([]FileInfo, error) {
		if err := m.checkOpen(); err != nil {
			return nil, err
		}

		m.mu.RLock()
		defer m.mu.RUnlock()

		root = path.Clean(root)

		if _, ok := m.files[root]; !ok {
			return nil, fmt.Errorf("scan %s: %w", root, os.ErrNotExist)
		}

		files := make([]FileInfo, 0)

		for name, file := range m.files {
			if file.isDir || file.symlink {
				continue
			}

			rel, err := relativePath(root, name)
			if err != nil {
				continue
			}

			files = append(files, FileInfo{RelativePath: rel, Size: int64(len(file.data)), ModTime: file.modTime})
		}

		sort.Slice(files, func(i, j int) bool { return files[i].RelativePath < files[j].RelativePath })

		return files, nil
	})
}

// Stat returns file information.
func (m *MockRemote) Stat(name string) (os.FileInfo, error) {
	if err := m.checkOpen(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	name = path.Clean(name)

	file, exists := m.files[name]
	if !exists {
		return nil, fmt.Errorf("stat %s: %w", name, os.ErrNotExist)
	}

	return file.info(name), nil
}

// Helper methods for testing

// AddFile adds a file, creating parent directories.
func (m *MockRemote) AddFile(name string, content []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	name = path.Clean(name)
	m.mkdirAllLocked(path.Dir(name))
	m.files[name] = &mockFile{data: append([]byte(nil), content...), modTime: time.Now()}
}

// AddSymlink adds a symbolic link entry, creating parent directories.
func (m *MockRemote) AddSymlink(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	name = path.Clean(name)
	m.mkdirAllLocked(path.Dir(name))
	m.files[name] = &mockFile{symlink: true, modTime: time.Now()}
}

// AddDir adds a directory and its parents.
func (m *MockRemote) AddDir(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.mkdirAllLocked(path.Clean(name))
}

// GetFile retrieves a file's content.
func (m *MockRemote) GetFile(name string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	file, exists := m.files[path.Clean(name)]
	if !exists || file.isDir {
		return nil, os.ErrNotExist
	}

	return append([]byte(nil), file.data...), nil
}

// Exists checks if a path exists.
func (m *MockRemote) Exists(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, exists := m.files[path.Clean(name)]

	return exists
}

// ListFiles returns all regular file paths, sorted.
func (m *MockRemote) ListFiles() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	paths := make([]string, 0, len(m.files))

	for p, file := range m.files {
		if !file.isDir {
			paths = append(paths, p)
		}
	}

	sort.Strings(paths)

	return paths
}

func (m *MockRemote) mkdirAllLocked(name string) {
	for name != "/" && name != "." {
		if _, exists := m.files[name]; !exists {
			m.files[name] = &mockFile{isDir: true, modTime: time.Now()}
		}

		name = path.Dir(name)
	}
}

var errMockClosed = errors.New("connection lost")

func (m *MockRemote) checkOpen() error {
	if m.closed.Load() {
		return errMockClosed
	}

	return nil
}

// MockDialer hands out a MockRemote. The first Failures dials fail with Err;
// a negative Failures fails every dial.
type MockDialer struct {
	Remote   *MockRemote
	Err      error
	Failures int

	mu    sync.Mutex
	calls int
}

// Dial implements Dialer.
func (d *MockDialer) Dial(ctx context.Context, _ RemoteCredentials) (Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.calls++

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if d.Failures < 0 || d.calls <= d.Failures {
		err := d.Err
		if err == nil {
			err = errors.New("dial failed") //nolint:err113 // Test double
		}

		return nil, err
	}

	d.Remote.Reopen()

	return d.Remote, nil
}

// Calls returns the number of Dial calls.
func (d *MockDialer) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.calls
}
