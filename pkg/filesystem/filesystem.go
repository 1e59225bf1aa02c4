// Package filesystem abstracts the local and remote filesystems the sync engine
// works against, and owns the remote session lifecycle (the connection manager).
package filesystem

import (
	"context"
	"fmt"
	"io"
	"os"
)

// File is an interface that abstracts file operations.
// This allows us to work with local, SFTP and in-memory files alike.
type File interface {
	io.Reader
	io.Writer
	io.Closer
	Stat() (os.FileInfo, error)
}

// FileSystem abstracts the local filesystem operations used by transfers and scanning.
type FileSystem interface {
	// Scan returns an iterator over all regular files in a directory tree.
	Scan(path string) FileScanner

	Open(path string) (File, error)
	Create(path string) (File, error)
	MkdirAll(path string, perm os.FileMode) error
	Remove(path string) error
	Stat(path string) (os.FileInfo, error)
}

// RemoteFS is the capability set the sync engine needs from a remote host:
// command execution, recursive listing, upload, download and directory creation.
// Paths are POSIX-style.
type RemoteFS interface {
	// Run executes a shell command on the remote host and returns its combined output.
	Run(ctx context.Context, cmd string) ([]byte, error)

	// Scan returns an iterator over the regular files under root.
	// Symbolic links and other non-regular entries are skipped.
	Scan(root string) FileScanner

	Open(path string) (File, error)
	Create(path string) (File, error)
	Mkdir(path string) error
	Remove(path string) error
	Stat(path string) (os.FileInfo, error)
}

// RealFileSystem implements FileSystem using actual os/filepath functions.
type RealFileSystem struct{}

// NewRealFileSystem creates a new RealFileSystem instance.
func NewRealFileSystem() *RealFileSystem {
	return &RealFileSystem{}
}

// Create creates a file for writing.
func (fs *RealFileSystem) Create(path string) (File, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", path, err)
	}

	return file, nil
}

// MkdirAll creates a directory and all necessary parents.
func (fs *RealFileSystem) MkdirAll(path string, perm os.FileMode) error {
	err := os.MkdirAll(path, perm)
	if err != nil {
		return fmt.Errorf("failed to create directory %s: %w", path, err)
	}

	return nil
}

// Open opens a file for reading.
func (fs *RealFileSystem) Open(path string) (File, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	return file, nil
}

// Remove removes a file or empty directory.
func (fs *RealFileSystem) Remove(path string) error {
	err := os.Remove(path)
	if err != nil {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}

	return nil
}

// Scan returns an iterator over all regular files in a directory tree.
func (fs *RealFileSystem) Scan(path string) FileScanner {
	return newRealFileScanner(path)
}

// Stat returns file information.
func (fs *RealFileSystem) Stat(path string) (os.FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	return info, nil
}
