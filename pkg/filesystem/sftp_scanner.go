package filesystem

import (
	"fmt"
	"path"

	"github.com/kr/fs"
)

// newSFTPScanner creates a scanner over the regular files under an SFTP directory.
// The walk uses Lstat, so symbolic links are reported as links and skipped.
func newSFTPScanner(walkFS fs.FileSystem, root string) FileScanner {
	return newSliceScanner(func() ([]FileInfo, error) {
		return walkRemote(walkFS, root)
	})
}

func walkRemote(walkFS fs.FileSystem, root string) ([]FileInfo, error) {
	files := make([]FileInfo, 0)
	walker := fs.WalkFS(root, walkFS)

	for walker.Step() {
		if err := walker.Err(); err != nil { //nolint:noinlineerr // Inline error check is idiomatic for walker error handling
			return nil, fmt.Errorf("error scanning SFTP directory: %w", err)
		}

		stat := walker.Stat()
		if !stat.Mode().IsRegular() {
			continue
		}

		relPath, err := relativePath(root, walker.Path())
		if err != nil {
			return nil, fmt.Errorf("failed to get relative path for %s: %w", walker.Path(), err)
		}

		files = append(files, FileInfo{
			RelativePath: relPath,
			Size:         stat.Size(),
			ModTime:      stat.ModTime(),
		})
	}

	return files, nil
}

// relativePath computes the relative path from root to target.
// Uses path package (not filepath) since SFTP always uses forward slashes.
func relativePath(root, target string) (string, error) {
	root = path.Clean(root)
	target = path.Clean(target)

	if root != "/" {
		root += "/"
	}

	if len(target) < len(root) || target[:len(root)] != root {
		return "", fmt.Errorf("target %s is not under root %s", target, root) //nolint:err113 // Path validation error with actual paths
	}

	relPath := target[len(root):]
	if relPath == "" {
		return ".", nil
	}

	return relPath, nil
}
