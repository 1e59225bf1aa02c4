//nolint:varnamelen // Test files use idiomatic short variable names (t, g, etc.)
package filesystem_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	. "github.com/onsi/gomega" //nolint:revive // Dot import is idiomatic for Gomega matchers

	pkgerrors "github.com/joe/gosync/pkg/errors"
	"github.com/joe/gosync/pkg/filesystem"
)

type statusRecorder struct {
	mu       sync.Mutex
	statuses []bool
	messages []string
}

func (r *statusRecorder) record(success bool, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.statuses = append(r.statuses, success)
	r.messages = append(r.messages, message)
}

func staticCredentials(basePath string) filesystem.CredentialsSource {
	return filesystem.CredentialsFunc(func() (filesystem.RemoteCredentials, error) {
		return filesystem.RemoteCredentials{
			Hostname:       "nas",
			Username:       "joe",
			RemoteBasePath: basePath,
			Auth:           filesystem.PasswordAuth{Password: "secret"},
		}, nil
	})
}

func TestEnsureConnected_FailsAfterExactlyThreeAttempts(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	dialer := &filesystem.MockDialer{Remote: filesystem.NewMockRemote(), Failures: -1, Err: errors.New("connection refused")}
	recorder := &statusRecorder{}
	manager := filesystem.NewManager(staticCredentials("/srv/sync"), dialer,
		filesystem.WithRetryDelay(0), filesystem.WithStatusFunc(recorder.record))

	session, err := manager.EnsureConnected(context.Background())

	g.Expect(session).Should(BeNil())

	var connErr *pkgerrors.ConnectionError
	g.Expect(errors.As(err, &connErr)).Should(BeTrue())
	g.Expect(connErr.Attempts).Should(Equal(filesystem.MaxConnectAttempts))
	g.Expect(connErr.Host).Should(Equal("nas"))
	g.Expect(dialer.Calls()).Should(Equal(3))
	g.Expect(manager.State()).Should(Equal(filesystem.StateDisconnected))
	g.Expect(manager.Session()).Should(BeNil())
	g.Expect(recorder.statuses).Should(Equal([]bool{false}))
}

func TestEnsureConnected_SucceedsOnLastAttempt(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	dialer := &filesystem.MockDialer{Remote: filesystem.NewMockRemote(), Failures: 2}
	manager := filesystem.NewManager(staticCredentials("/srv/sync"), dialer, filesystem.WithRetryDelay(0))

	session, err := manager.EnsureConnected(context.Background())

	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(session).ShouldNot(BeNil())
	g.Expect(session.Credentials.RemoteBasePath).Should(Equal("/srv/sync"))
	g.Expect(dialer.Calls()).Should(Equal(3))
	g.Expect(manager.IsConnected()).Should(BeTrue())
}

func TestEnsureConnected_NoOpWhenConnected(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	dialer := &filesystem.MockDialer{Remote: filesystem.NewMockRemote()}
	manager := filesystem.NewManager(staticCredentials("/srv/sync"), dialer, filesystem.WithRetryDelay(0))

	first, err := manager.EnsureConnected(context.Background())
	g.Expect(err).ShouldNot(HaveOccurred())

	second, err := manager.EnsureConnected(context.Background())
	g.Expect(err).ShouldNot(HaveOccurred())

	g.Expect(second).Should(BeIdenticalTo(first))
	g.Expect(dialer.Calls()).Should(Equal(1))
}

func TestEnsureConnected_ReconnectsAfterTransportDies(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	remote := filesystem.NewMockRemote()
	dialer := &filesystem.MockDialer{Remote: remote}
	manager := filesystem.NewManager(staticCredentials("/srv/sync"), dialer, filesystem.WithRetryDelay(0))

	_, err := manager.EnsureConnected(context.Background())
	g.Expect(err).ShouldNot(HaveOccurred())

	_ = remote.Close()
	g.Expect(manager.IsConnected()).Should(BeFalse())

	_, err = manager.EnsureConnected(context.Background())
	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(dialer.Calls()).Should(Equal(2))
	g.Expect(manager.IsConnected()).Should(BeTrue())
}

func TestEnsureConnected_ConfigErrorIsNotRetried(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	source := filesystem.CredentialsFunc(func() (filesystem.RemoteCredentials, error) {
		return filesystem.RemoteCredentials{}, pkgerrors.MissingSetting("ssh.remote_path")
	})
	dialer := &filesystem.MockDialer{Remote: filesystem.NewMockRemote()}
	manager := filesystem.NewManager(source, dialer, filesystem.WithRetryDelay(0))

	_, err := manager.EnsureConnected(context.Background())

	var configErr *pkgerrors.ConfigError
	g.Expect(errors.As(err, &configErr)).Should(BeTrue())
	g.Expect(dialer.Calls()).Should(Equal(0))
}

func TestConnect_CreatesBasePathSegments(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	remote := filesystem.NewMockRemote()
	remote.AddDir("/srv")
	recorder := &statusRecorder{}
	manager := filesystem.NewManager(staticCredentials("/srv/sync/laptop"), &filesystem.MockDialer{Remote: remote},
		filesystem.WithStatusFunc(recorder.record))

	_, err := manager.Connect(context.Background())

	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(remote.Exists("/srv/sync")).Should(BeTrue())
	g.Expect(remote.Exists("/srv/sync/laptop")).Should(BeTrue())
	g.Expect(manager.State()).Should(Equal(filesystem.StateConnected))
	g.Expect(recorder.messages).Should(Equal([]string{"Connected to nas"}))
}

func TestConnect_BasePathBlockedByFile(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	remote := filesystem.NewMockRemote()
	remote.AddFile("/srv", []byte("not a dir"))
	manager := filesystem.NewManager(staticCredentials("/srv/sync"), &filesystem.MockDialer{Remote: remote})

	_, err := manager.Connect(context.Background())

	g.Expect(err).Should(MatchError(ContainSubstring("not a directory")))
	g.Expect(manager.State()).Should(Equal(filesystem.StateDisconnected))
	g.Expect(remote.Alive()).Should(BeFalse(), "partially opened session must be closed")
}

func TestDisconnect_IsIdempotent(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	remote := filesystem.NewMockRemote()
	manager := filesystem.NewManager(staticCredentials("/srv/sync"), &filesystem.MockDialer{Remote: remote})

	_, err := manager.Connect(context.Background())
	g.Expect(err).ShouldNot(HaveOccurred())

	manager.Disconnect()
	manager.Disconnect()

	g.Expect(manager.IsConnected()).Should(BeFalse())
	g.Expect(manager.Session()).Should(BeNil())
	g.Expect(remote.Alive()).Should(BeFalse())
}
