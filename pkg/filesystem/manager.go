package filesystem

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"

	syncerrors "github.com/joe/gosync/pkg/errors"
)

// Exported constants.
const (
	// MaxConnectAttempts bounds EnsureConnected.
	MaxConnectAttempts = 3
	// DefaultRetryDelay is the pause between connect attempts.
	DefaultRetryDelay = 2 * time.Second
)

// State is the connection state.
type State int32

// Connection states.
const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// StatusFunc receives connection status changes.
type StatusFunc func(success bool, message string)

// ActiveSession is a connected session plus the credentials it was opened with.
type ActiveSession struct {
	Session
	Credentials RemoteCredentials
}

// Manager authenticates, holds and heals the remote session.
//
// Connect, EnsureConnected and Disconnect are meant to be called from a single
// goroutine (the sync worker). IsConnected and State may be called from anywhere.
type Manager struct {
	source     CredentialsSource
	dialer     Dialer
	logger     *slog.Logger
	onStatus   StatusFunc
	retryDelay time.Duration

	state atomic.Int32
	live  atomic.Pointer[ActiveSession]
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) { m.logger = logger }
}

// WithStatusFunc sets the connection status callback.
func WithStatusFunc(fn StatusFunc) ManagerOption {
	return func(m *Manager) { m.onStatus = fn }
}

// WithRetryDelay sets the pause between connect attempts.
func WithRetryDelay(delay time.Duration) ManagerOption {
	return func(m *Manager) { m.retryDelay = delay }
}

// NewManager creates a disconnected Manager.
func NewManager(source CredentialsSource, dialer Dialer, opts ...ManagerOption) *Manager {
	m := &Manager{
		source:     source,
		dialer:     dialer,
		logger:     slog.Default(),
		retryDelay: DefaultRetryDelay,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// State returns the current connection state.
func (m *Manager) State() State {
	return State(m.state.Load())
}

// Session returns the live session, or nil.
func (m *Manager) Session() *ActiveSession {
	return m.live.Load()
}

// IsConnected reports whether a session exists and its transport is alive.
// It does not touch the network.
func (m *Manager) IsConnected() bool {
	active := m.live.Load()

	return active != nil && m.State() == StateConnected && active.Alive()
}

// Connect makes a single attempt to open a session and ensure the remote base path.
// Credentials are re-read from the source on every call.
func (m *Manager) Connect(ctx context.Context) (*ActiveSession, error) {
	creds, err := m.source.RemoteCredentials()
	if err != nil {
		return nil, err
	}

	m.setState(StateConnecting)

	session, err := m.dialer.Dial(ctx, creds)
	if err != nil {
		m.setState(StateDisconnected)

		return nil, err
	}

	if err := EnsureRemoteDir(session, creds.RemoteBasePath); err != nil {
		_ = session.Close()
		m.setState(StateDisconnected)

		return nil, fmt.Errorf("failed to ensure remote base path %s: %w", creds.RemoteBasePath, err)
	}

	active := &ActiveSession{Session: session, Credentials: creds}
	m.live.Store(active)
	m.setState(StateConnected)

	m.logger.Info("connected", "host", creds.Hostname, "auth", creds.Auth.Kind())
	m.status(true, "Connected to "+creds.Hostname)

	return active, nil
}

// EnsureConnected returns the live session, reconnecting if needed.
// It makes at most MaxConnectAttempts attempts and discards any partial state
// between them. When all attempts fail it returns a *ConnectionError and leaves
// the manager disconnected. A *ConfigError from the credentials source is returned
// without retrying.
func (m *Manager) EnsureConnected(ctx context.Context) (*ActiveSession, error) {
	if m.IsConnected() {
		return m.live.Load(), nil
	}

	m.Disconnect()

	var (
		active   *ActiveSession
		attempts int
		host     string
	)

	operation := func() error {
		attempts++

		var err error

		active, err = m.Connect(ctx)
		if err == nil {
			return nil
		}

		var configErr *syncerrors.ConfigError
		if errors.As(err, &configErr) {
			return backoff.Permanent(err)
		}

		m.logger.Warn("connection attempt failed", "attempt", attempts, "error", err)
		m.Disconnect()

		return err
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(m.retryDelay), MaxConnectAttempts-1),
		ctx,
	)

	err := backoff.Retry(operation, policy)
	if err == nil {
		return active, nil
	}

	var configErr *syncerrors.ConfigError
	if errors.As(err, &configErr) {
		m.status(false, err.Error())

		return nil, err
	}

	if creds, credErr := m.source.RemoteCredentials(); credErr == nil {
		host = creds.Hostname
	}

	connErr := &syncerrors.ConnectionError{Host: host, Attempts: attempts, Err: err}
	m.logger.Error("connection failed", "host", host, "attempts", attempts, "error", err)
	m.status(false, connErr.Error())

	return nil, connErr
}

// Disconnect releases the session. It is safe to call repeatedly.
func (m *Manager) Disconnect() {
	active := m.live.Swap(nil)
	m.setState(StateDisconnected)

	if active == nil {
		return
	}

	if err := active.Close(); err != nil {
		m.logger.Debug("error closing session", "error", err)
	}
}

func (m *Manager) setState(state State) {
	m.state.Store(int32(state))
}

func (m *Manager) status(success bool, message string) {
	if m.onStatus != nil {
		m.onStatus(success, message)
	}
}
