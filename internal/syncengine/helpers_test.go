//nolint:varnamelen // Test files use idiomatic short variable names (t, g, etc.)
package syncengine_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/joe/gosync/internal/syncengine"
	"github.com/joe/gosync/pkg/filesystem"
)

const remoteRoot = "/srv/sync"

var listingCommand = regexp.MustCompile(`^find '([^']*)' -type f -printf '%P\\n' > '([^']*)'$`)

// recorder collects emitted events.
type recorder struct {
	mu     sync.Mutex
	events []syncengine.Event
}

func (r *recorder) Emit(event syncengine.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, event)
}

func (r *recorder) completes() []syncengine.SyncComplete {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []syncengine.SyncComplete

	for _, event := range r.events {
		if complete, ok := event.(syncengine.SyncComplete); ok {
			out = append(out, complete)
		}
	}

	return out
}

func (r *recorder) uploads() []syncengine.TransferComplete {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []syncengine.TransferComplete

	for _, event := range r.events {
		if complete, ok := event.(syncengine.TransferComplete); ok {
			out = append(out, complete)
		}
	}

	return out
}

func (r *recorder) progressMessages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []string

	for _, event := range r.events {
		if progress, ok := event.(syncengine.SyncProgress); ok {
			out = append(out, progress.Message)
		}
	}

	return out
}

type harness struct {
	engine   *syncengine.Engine
	remote   *filesystem.MockRemote
	dialer   *filesystem.MockDialer
	events   *recorder
	localDir string
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		remote:   filesystem.NewMockRemote(),
		events:   &recorder{},
		localDir: t.TempDir(),
	}
	h.dialer = &filesystem.MockDialer{Remote: h.remote}

	credentials := filesystem.CredentialsFunc(func() (filesystem.RemoteCredentials, error) {
		return filesystem.RemoteCredentials{
			Hostname:       "nas",
			Username:       "joe",
			RemoteBasePath: remoteRoot,
			Auth:           filesystem.PasswordAuth{Password: "secret"},
		}, nil
	})

	settings := syncengine.SettingsFunc(func() (syncengine.SyncSettings, error) {
		return syncengine.SyncSettings{LocalPath: h.localDir, Listing: syncengine.ListingModeSFTP}, nil
	})

	manager := filesystem.NewManager(credentials, h.dialer,
		filesystem.WithRetryDelay(0),
		filesystem.WithLogger(quietLogger()),
		filesystem.WithStatusFunc(func(success bool, message string) {
			h.engine.ReportConnection(success, message)
		}),
	)

	h.engine = syncengine.NewEngine(filesystem.NewRealFileSystem(), manager, settings)
	h.engine.Logger = quietLogger()
	h.engine.SetEventEmitter(h.events)

	return h
}

func (h *harness) writeLocal(t *testing.T, rel, content string) string {
	t.Helper()

	full := filepath.Join(h.localDir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(full, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	return full
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// serveFind answers listing commands the way a remote shell with GNU find would.
func serveFind(remote *filesystem.MockRemote) filesystem.RunHandler {
	return func(_ context.Context, cmd string) ([]byte, error) {
		match := listingCommand.FindStringSubmatch(cmd)
		if match == nil {
			return nil, fmt.Errorf("unexpected command %q", cmd) //nolint:err113 // Test double
		}

		files, err := filesystem.CollectScan(remote.Scan(match[1]))
		if err != nil {
			return []byte("find: No such file or directory"), err
		}

		var listing strings.Builder
		for _, file := range files {
			listing.WriteString(file.RelativePath + "\n")
		}

		remote.AddFile(match[2], []byte(listing.String()))

		return nil, nil
	}
}
