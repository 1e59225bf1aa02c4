// Package fileops moves individual files between the local filesystem and a
// remote session, and decides the names files get on the remote side.
package fileops

import (
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Exported constants.
const (
	// BufferSize is the size of the buffer used for file copy operations (32KB)
	BufferSize = 32 * 1024
	// DefaultDirPermissions is the default permission mode for created local directories
	DefaultDirPermissions = 0o750
)

// ProgressCallback is called during file operations to report progress
type ProgressCallback func(bytesTransferred int64, totalBytes int64, currentFile string)

// CompleteCallback is called once per upload with its outcome.
type CompleteCallback func(currentFile string, err error)

// unexported variables.
var (
	//nolint:gochecknoglobals // Compiled once; characters rejected by common remote filesystems
	illegalNameChars = regexp.MustCompile(`[\\/:*?"<>|｜]`)
)

// SanitizeName makes a single path segment safe for the remote filesystem.
// The name is NFKC-normalized and every illegal character becomes an underscore.
func SanitizeName(name string) string {
	return illegalNameChars.ReplaceAllString(norm.NFKC.String(name), "_")
}

// RemoteName returns the relative path a slash-separated local relative path
// is stored under remotely. Only the final segment is sanitized, so a backslash
// is part of the name, not a separator.
func RemoteName(relPath string) string {
	dir, base := path.Split(relPath)

	return dir + SanitizeName(base)
}

// ShellQuote quotes s for a POSIX shell.
func ShellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// copyLoop copies src to dst in BufferSize chunks, reporting progress after each write.
func copyLoop(src io.Reader, dst io.Writer, size int64, name string, progress ProgressCallback) (int64, error) {
	var written int64

	buf := make([]byte, BufferSize)

	for {
		nr, err := src.Read(buf) //nolint:varnamelen // nr/nw are idiomatic for bytes read/written

		if nr > 0 {
			nw, writeErr := dst.Write(buf[0:nr])
			if writeErr != nil {
				return written, fmt.Errorf("failed to write to destination: %w", writeErr)
			}

			if nr != nw {
				return written, fmt.Errorf("short write: %w", io.ErrShortWrite)
			}

			written += int64(nw)

			if progress != nil {
				progress(written, size, name)
			}
		}

		if errors.Is(err, io.EOF) {
			return written, nil
		}

		if err != nil {
			return written, fmt.Errorf("failed to read from source: %w", err)
		}
	}
}
