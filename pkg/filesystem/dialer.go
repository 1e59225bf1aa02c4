package filesystem

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// Session is a live remote session: the remote filesystem plus its transport.
type Session interface {
	RemoteFS
	// Alive is a non-blocking liveness check of the transport.
	Alive() bool
	Close() error
}

// Dialer opens sessions. The SSH implementation is SSHDialer; tests supply stubs.
type Dialer interface {
	Dial(ctx context.Context, creds RemoteCredentials) (Session, error)
}

// SSHDialer opens SSH/SFTP sessions.
type SSHDialer struct {
	Timeout time.Duration
	Logger  *slog.Logger

	// known_hosts appends are serialized across dials.
	mu sync.Mutex
}

// Dial implements Dialer.
func (d *SSHDialer) Dial(ctx context.Context, creds RemoteCredentials) (Session, error) {
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = DefaultDialTimeout
	}

	conn, err := Connect(ctx, creds, d.hostKeyCallback(creds.KnownHostsPath), timeout)
	if err != nil {
		return nil, err
	}

	return conn, nil
}

func (d *SSHDialer) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}

	return slog.Default()
}

// hostKeyCallback trusts unknown hosts on first use and records them in path.
// A known host presenting a different key is rejected.
func (d *SSHDialer) hostKeyCallback(path string) ssh.HostKeyCallback {
	if path == "" {
		return func(hostname string, _ net.Addr, _ ssh.PublicKey) error {
			d.logger().Warn("host key not verified, no known_hosts file configured", "host", hostname)

			return nil
		}
	}

	return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		d.mu.Lock()
		defer d.mu.Unlock()

		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return fmt.Errorf("failed to create known_hosts directory: %w", err)
		}

		file, err := os.OpenFile(path, os.O_CREATE|os.O_RDONLY, 0o600) //nolint:gosec // User-configured path
		if err != nil {
			return fmt.Errorf("failed to open known_hosts: %w", err)
		}
		_ = file.Close()

		check, err := knownhosts.New(path)
		if err != nil {
			return fmt.Errorf("failed to read known_hosts: %w", err)
		}

		err = check(hostname, remote, key)

		var keyErr *knownhosts.KeyError
		if !errors.As(err, &keyErr) || len(keyErr.Want) > 0 {
			return err //nolint:wrapcheck // knownhosts errors are matched by message downstream
		}

		return appendKnownHost(path, hostname, remote, key, d.logger())
	}
}

func appendKnownHost(path, hostname string, remote net.Addr, key ssh.PublicKey, logger *slog.Logger) error {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o600) //nolint:gosec // User-configured path
	if err != nil {
		return fmt.Errorf("failed to open known_hosts for writing: %w", err)
	}
	defer func() { _ = file.Close() }()

	addresses := []string{knownhosts.Normalize(hostname)}
	if remote != nil {
		if addr := knownhosts.Normalize(remote.String()); addr != addresses[0] {
			addresses = append(addresses, addr)
		}
	}

	if _, err := fmt.Fprintln(file, knownhosts.Line(addresses, key)); err != nil {
		return fmt.Errorf("failed to record host key: %w", err)
	}

	logger.Info("trusted new host key", "host", hostname, "fingerprint", ssh.FingerprintSHA256(key))

	return nil
}
