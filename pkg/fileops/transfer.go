package fileops

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	syncerrors "github.com/joe/gosync/pkg/errors"
	"github.com/joe/gosync/pkg/filesystem"
)

// Transfer moves single files over a live remote session.
// It is used from one goroutine at a time, like the session it wraps.
type Transfer struct {
	Local    filesystem.FileSystem
	Remote   filesystem.RemoteFS
	BasePath string

	OnProgress ProgressCallback
	OnComplete CompleteCallback
	Logger     *slog.Logger
}

// NewTransfer creates a Transfer rooted at basePath on the remote.
func NewTransfer(local filesystem.FileSystem, remote filesystem.RemoteFS, basePath string) *Transfer {
	return &Transfer{
		Local:    local,
		Remote:   remote,
		BasePath: basePath,
		Logger:   slog.Default(),
	}
}

// Upload sends localFile to remoteRelPath under the base path. The final path
// segment is sanitized and missing remote directories are created. It returns
// the remote path written. Failures are *TransferError; a partial remote file is
// removed so the next pass retries it.
func (t *Transfer) Upload(localFile, remoteRelPath string) (string, error) {
	remotePath := path.Join(t.BasePath, RemoteName(remoteRelPath))

	written, err := t.upload(localFile, remoteRelPath, remotePath)

	if err == nil {
		t.logger().Debug("uploaded", "file", remoteRelPath, "remote", remotePath, "bytes", written)
	}

	if t.OnComplete != nil {
		t.OnComplete(remoteRelPath, err)
	}

	return remotePath, err
}

func (t *Transfer) upload(localFile, relPath, remotePath string) (int64, error) {
	info, err := t.Local.Stat(localFile)
	if err != nil {
		return 0, &syncerrors.TransferError{Path: relPath, Reason: "local file missing", Err: err}
	}

	if !info.Mode().IsRegular() {
		return 0, &syncerrors.TransferError{Path: relPath, Reason: "local path is not a regular file"}
	}

	if err := filesystem.EnsureRemoteDir(t.Remote, path.Dir(remotePath)); err != nil {
		return 0, &syncerrors.TransferError{Path: relPath, Reason: "failed to create remote directory", Err: err}
	}

	src, err := t.Local.Open(localFile)
	if err != nil {
		return 0, &syncerrors.TransferError{Path: relPath, Reason: "failed to open local file", Err: err}
	}
	defer func() { _ = src.Close() }()

	dst, err := t.Remote.Create(remotePath)
	if err != nil {
		return 0, &syncerrors.TransferError{Path: relPath, Reason: "failed to create remote file", Err: err}
	}

	written, err := copyLoop(src, dst, info.Size(), relPath, t.OnProgress)

	closeErr := dst.Close()
	if err == nil && closeErr != nil {
		err = fmt.Errorf("failed to close remote file: %w", closeErr)
	}

	if err != nil {
		if removeErr := t.Remote.Remove(remotePath); removeErr != nil {
			t.logger().Warn("failed to remove partial upload", "remote", remotePath, "error", removeErr)
		}

		return written, &syncerrors.TransferError{Path: relPath, Reason: "upload failed", Err: err}
	}

	return written, nil
}

// Download copies remotePath to localPath, creating local parent directories.
// A missing remote path yields an error matching ErrNotFound.
func (t *Transfer) Download(remotePath, localPath string) error {
	if _, err := t.Remote.Stat(remotePath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", syncerrors.ErrNotFound, remotePath)
		}

		return &syncerrors.TransferError{Path: remotePath, Reason: "failed to stat remote file", Err: err}
	}

	if err := t.Local.MkdirAll(filepath.Dir(localPath), DefaultDirPermissions); err != nil {
		return &syncerrors.TransferError{Path: remotePath, Reason: "failed to create local directory", Err: err}
	}

	src, err := t.Remote.Open(remotePath)
	if err != nil {
		return &syncerrors.TransferError{Path: remotePath, Reason: "failed to open remote file", Err: err}
	}
	defer func() { _ = src.Close() }()

	dst, err := t.Local.Create(localPath)
	if err != nil {
		return &syncerrors.TransferError{Path: remotePath, Reason: "failed to create local file", Err: err}
	}

	_, err = copyLoop(src, dst, -1, remotePath, nil)

	closeErr := dst.Close()
	if err == nil && closeErr != nil {
		err = fmt.Errorf("failed to close local file: %w", closeErr)
	}

	if err != nil {
		_ = t.Local.Remove(localPath)

		return &syncerrors.TransferError{Path: remotePath, Reason: "download failed", Err: err}
	}

	return nil
}

// Exists reports whether remotePath exists. Errors other than not-found are
// logged and reported as false.
func (t *Transfer) Exists(remotePath string) bool {
	_, err := t.Remote.Stat(remotePath)
	if err == nil {
		return true
	}

	if !errors.Is(err, fs.ErrNotExist) {
		t.logger().Warn("failed to check remote file", "remote", remotePath, "error", err)
	}

	return false
}

// Size returns the size of remotePath, or 0 when it cannot be determined.
// When the SFTP stat fails for a reason other than absence, `stat -c %s` is tried.
func (t *Transfer) Size(ctx context.Context, remotePath string) int64 {
	info, err := t.Remote.Stat(remotePath)
	if err == nil {
		return info.Size()
	}

	if errors.Is(err, fs.ErrNotExist) {
		return 0
	}

	value, err := t.statCommand(ctx, "%s", remotePath)
	if err != nil {
		t.logger().Debug("failed to get remote size", "remote", remotePath, "error", err)

		return 0
	}

	return value
}

// ModTime returns the remote modification time using `stat -c %Y`.
func (t *Transfer) ModTime(ctx context.Context, remotePath string) (time.Time, error) {
	value, err := t.statCommand(ctx, "%Y", remotePath)
	if err != nil {
		return time.Time{}, err
	}

	return time.Unix(value, 0), nil
}

func (t *Transfer) statCommand(ctx context.Context, format, remotePath string) (int64, error) {
	output, err := t.Remote.Run(ctx, "stat -c "+format+" "+ShellQuote(remotePath))
	if err != nil {
		return 0, fmt.Errorf("failed to stat %s: %w", remotePath, err)
	}

	value, err := strconv.ParseInt(strings.TrimSpace(string(output)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("unexpected stat output for %s: %w", remotePath, err)
	}

	return value, nil
}

func (t *Transfer) logger() *slog.Logger {
	if t.Logger != nil {
		return t.Logger
	}

	return slog.Default()
}
