package filesystem

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// DefaultDialTimeout bounds the TCP connect and SSH handshake.
const DefaultDialTimeout = 15 * time.Second

// SFTPConnection holds an SSH connection and the SFTP session opened over it.
type SFTPConnection struct {
	sshClient  *ssh.Client
	sftpClient *sftp.Client
	addr       string
	alive      atomic.Bool
}

// Connect establishes an SSH connection and opens an SFTP session.
func Connect(ctx context.Context, creds RemoteCredentials, hostKeys ssh.HostKeyCallback, timeout time.Duration) (*SFTPConnection, error) {
	authMethods, err := creds.Auth.Methods()
	if err != nil {
		return nil, fmt.Errorf("failed to prepare %s authentication: %w", creds.Auth.Kind(), err)
	}

	config := &ssh.ClientConfig{
		User:            creds.Username,
		Auth:            authMethods,
		HostKeyCallback: hostKeys,
		Timeout:         timeout,
	}

	addr := creds.Address()

	dialer := &net.Dialer{Timeout: timeout}

	netConn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("SSH connection failed: %w", err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = netConn.SetDeadline(deadline)
	}

	clientConn, chans, reqs, err := ssh.NewClientConn(netConn, addr, config)
	if err != nil {
		_ = netConn.Close()

		return nil, fmt.Errorf("SSH connection failed: %w", err)
	}

	_ = netConn.SetDeadline(time.Time{})

	sshClient := ssh.NewClient(clientConn, chans, reqs)

	sftpClient, err := sftp.NewClient(sshClient, sftp.UseConcurrentWrites(true))
	if err != nil {
		_ = sshClient.Close()

		return nil, fmt.Errorf("SFTP session creation failed: %w", err)
	}

	conn := &SFTPConnection{
		sshClient:  sshClient,
		sftpClient: sftpClient,
		addr:       addr,
	}
	conn.alive.Store(true)

	// Wait returns once the transport is gone, whoever closed it.
	go func() {
		_ = sshClient.Wait()
		conn.alive.Store(false)
	}()

	return conn, nil
}

// Alive reports whether the transport is still up. It never blocks.
func (c *SFTPConnection) Alive() bool {
	return c.alive.Load()
}

// Close closes the SFTP session and SSH connection.
func (c *SFTPConnection) Close() error {
	var firstErr error

	if c.sftpClient != nil {
		if err := c.sftpClient.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			firstErr = err
		}
	}

	if c.sshClient != nil {
		if err := c.sshClient.Close(); err != nil && firstErr == nil && !errors.Is(err, net.ErrClosed) {
			firstErr = err
		}
	}

	c.alive.Store(false)

	return firstErr
}

// Run executes cmd in a new SSH session and returns its combined output.
// The session is closed if ctx is cancelled before the command finishes.
func (c *SFTPConnection) Run(ctx context.Context, cmd string) ([]byte, error) {
	session, err := c.sshClient.NewSession()
	if err != nil {
		return nil, fmt.Errorf("failed to open SSH session: %w", err)
	}
	defer func() { _ = session.Close() }()

	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
			_ = session.Close()
		case <-done:
		}
	}()

	output, err := session.CombinedOutput(cmd)
	if err != nil {
		if ctx.Err() != nil {
			return output, fmt.Errorf("remote command cancelled: %w", ctx.Err())
		}

		return output, fmt.Errorf("remote command %q failed: %w", cmd, err)
	}

	return output, nil
}
