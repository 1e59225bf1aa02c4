package filesystem

import (
	"time"
)

// FileScanner is an iterator over files in a directory.
// It provides a simple Next pattern for traversing directory contents.
type FileScanner interface {
	// Next advances to the next file and returns its info.
	// Returns (FileInfo{}, false) when done or on error.
	// Check Err() after Next() returns false to distinguish between end-of-scan and error.
	Next() (FileInfo, bool)

	// Err returns any error that occurred during scanning.
	// Should be checked after Next() returns false.
	Err() error
}

// FileInfo contains metadata about a regular file found by a scan.
type FileInfo struct {
	// RelativePath is the path relative to the scan root, always with forward slashes.
	RelativePath string

	// Size is the file size in bytes
	Size int64

	// ModTime is the modification time
	ModTime time.Time
}

// sliceScanner iterates over a pre-collected list of files.
type sliceScanner struct {
	files   []FileInfo
	index   int
	err     error
	scanned bool
	collect func() ([]FileInfo, error)
}

func newSliceScanner(collect func() ([]FileInfo, error)) *sliceScanner {
	return &sliceScanner{index: -1, collect: collect}
}

// Err returns any error that occurred during scanning.
func (s *sliceScanner) Err() error {
	return s.err
}

// Next advances to the next file and returns its info.
func (s *sliceScanner) Next() (FileInfo, bool) {
	if !s.scanned {
		s.files, s.err = s.collect()
		s.scanned = true
	}

	if s.err != nil {
		return FileInfo{}, false
	}

	s.index++
	if s.index >= len(s.files) {
		return FileInfo{}, false
	}

	return s.files[s.index], true
}

// CollectScan drains a scanner into a slice.
func CollectScan(scanner FileScanner) ([]FileInfo, error) {
	var files []FileInfo

	for {
		info, ok := scanner.Next()
		if !ok {
			break
		}

		files = append(files, info)
	}

	return files, scanner.Err()
}
