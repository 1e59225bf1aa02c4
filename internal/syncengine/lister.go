package syncengine

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/joe/gosync/pkg/errors"
	"github.com/joe/gosync/pkg/fileops"
	"github.com/joe/gosync/pkg/filesystem"
)

// Exported constants.
const (
	// DefaultListingWait bounds how long the listing file may take to appear.
	DefaultListingWait = 5 * time.Second
	// DefaultListingPoll is the interval between checks for the listing file.
	DefaultListingPoll = 100 * time.Millisecond
	// DefaultRemoteTempDir holds temporary listing files on the remote.
	DefaultRemoteTempDir = "/tmp"

	// ListingModeCommand lists files with a remote find command.
	ListingModeCommand = "command"
	// ListingModeSFTP lists files with a recursive SFTP walk.
	ListingModeSFTP = "sftp"
)

// Lister produces the relative paths of the regular files under a remote root.
// An empty result is not an error.
type Lister interface {
	List(ctx context.Context, remote filesystem.RemoteFS, root string) ([]string, error)
}

// CommandLister runs find on the remote, writing its output to a temporary
// file that is then downloaded, parsed and deleted.
type CommandLister struct {
	Local         filesystem.FileSystem
	RemoteTempDir string
	LocalTempDir  string
	Wait          time.Duration
	Poll          time.Duration
	Logger        *slog.Logger
}

// NewCommandLister creates a CommandLister with default timings.
func NewCommandLister(local filesystem.FileSystem) *CommandLister {
	return &CommandLister{
		Local:         local,
		RemoteTempDir: DefaultRemoteTempDir,
		LocalTempDir:  os.TempDir(),
		Wait:          DefaultListingWait,
		Poll:          DefaultListingPoll,
		Logger:        slog.Default(),
	}
}

// ListingCommand returns the remote command writing the file list of root to out.
func ListingCommand(root, out string) string {
	return fmt.Sprintf(`find %s -type f -printf '%%P\n' > %s`, fileops.ShellQuote(root), fileops.ShellQuote(out))
}

// List implements Lister.
func (l *CommandLister) List(ctx context.Context, remote filesystem.RemoteFS, root string) ([]string, error) {
	name := "gosync-filelist-" + uuid.NewString() + ".txt"
	remoteTmp := path.Join(l.RemoteTempDir, name)
	localTmp := filepath.Join(l.LocalTempDir, name)

	defer func() {
		if err := remote.Remove(remoteTmp); err != nil && !errors.Is(err, fs.ErrNotExist) {
			l.logger().Warn("failed to remove remote listing file", "path", remoteTmp, "error", err)
		}

		if err := l.Local.Remove(localTmp); err != nil && !errors.Is(err, fs.ErrNotExist) {
			l.logger().Warn("failed to remove local listing file", "path", localTmp, "error", err)
		}
	}()

	// find exits non-zero for unreadable subdirectories but still writes the
	// rest of the list. The redirect creates the file even when find cannot run
	// at all, so a failed command with an empty list is a failed listing.
	output, runErr := remote.Run(ctx, ListingCommand(root, remoteTmp))
	if runErr != nil {
		l.logger().Warn("remote listing command reported an error", "error", runErr, "output", strings.TrimSpace(string(output)))
	}

	if err := l.waitForFile(ctx, remote, remoteTmp); err != nil {
		if runErr != nil {
			err = fmt.Errorf("%w (command error: %w)", err, runErr)
		}

		return nil, &pkgerrors.ListingError{Stage: pkgerrors.ListingStageCreate, Err: err}
	}

	transfer := fileops.NewTransfer(l.Local, remote, "")
	transfer.Logger = l.logger()

	if err := transfer.Download(remoteTmp, localTmp); err != nil {
		return nil, &pkgerrors.ListingError{Stage: pkgerrors.ListingStageFetch, Err: err}
	}

	files, err := l.parse(localTmp, root, remoteTmp)
	if err != nil {
		return nil, &pkgerrors.ListingError{Stage: pkgerrors.ListingStageParse, Err: err}
	}

	if runErr != nil && len(files) == 0 {
		return nil, &pkgerrors.ListingError{Stage: pkgerrors.ListingStageCreate, Err: runErr}
	}

	return files, nil
}

func (l *CommandLister) waitForFile(ctx context.Context, remote filesystem.RemoteFS, remoteTmp string) error {
	deadline := time.Now().Add(l.Wait)

	for {
		_, err := remote.Stat(remoteTmp)
		if err == nil {
			return nil
		}

		if !errors.Is(err, fs.ErrNotExist) {
			return err
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("listing file %s not produced within %s", remoteTmp, l.Wait) //nolint:err113 // Includes path and wait window
		}

		timer := time.NewTimer(l.Poll)
		select {
		case <-ctx.Done():
			timer.Stop()

			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (l *CommandLister) parse(localTmp, root, remoteTmp string) ([]string, error) {
	file, err := l.Local.Open(localTmp)
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()

	// The listing file itself shows up when the temp dir is inside root.
	self := ""
	if rest, ok := strings.CutPrefix(remoteTmp, strings.TrimSuffix(path.Clean(root), "/")+"/"); ok {
		self = rest
	}

	files := make([]string, 0)
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, bufio.MaxScanTokenSize), 1<<20)

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" || line == self {
			continue
		}

		files = append(files, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read listing: %w", err)
	}

	return files, nil
}

func (l *CommandLister) logger() *slog.Logger {
	if l.Logger != nil {
		return l.Logger
	}

	return slog.Default()
}

// WalkLister lists files with a recursive SFTP walk. It needs no remote shell.
type WalkLister struct{}

// List implements Lister.
func (WalkLister) List(_ context.Context, remote filesystem.RemoteFS, root string) ([]string, error) {
	files, err := filesystem.CollectScan(remote.Scan(root))
	if err != nil {
		return nil, &pkgerrors.ListingError{Stage: pkgerrors.ListingStageFetch, Err: err}
	}

	return relativePaths(files), nil
}
