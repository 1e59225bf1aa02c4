package filesystem

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
)

// DefaultSSHPort is used when no port is configured.
const DefaultSSHPort = 22

// Auth is the authentication variant used for a session.
// Exactly one variant is active per session.
type Auth interface {
	// Methods resolves the variant into ssh auth methods.
	Methods() ([]ssh.AuthMethod, error)
	// Kind names the variant for logs.
	Kind() string

	isAuth()
}

// PrivateKeyAuth authenticates with a PEM encoded private key.
type PrivateKeyAuth struct {
	PEM []byte
}

// PasswordAuth authenticates with a password.
type PasswordAuth struct {
	Password string
}

// AgentAuth authenticates through the ssh-agent and the default key files in ~/.ssh.
// It is used when no key or password is configured.
type AgentAuth struct{}

// Methods parses the key into a signer.
func (a PrivateKeyAuth) Methods() ([]ssh.AuthMethod, error) {
	signer, err := ssh.ParsePrivateKey(a.PEM)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	return []ssh.AuthMethod{ssh.PublicKeys(signer)}, nil
}

// Kind implements Auth.
func (PrivateKeyAuth) Kind() string { return "private-key" }

func (PrivateKeyAuth) isAuth() {}

// Methods returns password and keyboard-interactive methods for the same secret.
func (a PasswordAuth) Methods() ([]ssh.AuthMethod, error) {
	password := a.Password

	return []ssh.AuthMethod{
		ssh.Password(password),
		ssh.KeyboardInteractive(func(_, _ string, questions []string, _ []bool) ([]string, error) {
			answers := make([]string, len(questions))
			for i := range answers {
				answers[i] = password
			}

			return answers, nil
		}),
	}, nil
}

// Kind implements Auth.
func (PasswordAuth) Kind() string { return "password" }

func (PasswordAuth) isAuth() {}

// Methods collects the agent and default key methods that are available.
func (AgentAuth) Methods() ([]ssh.AuthMethod, error) {
	var methods []ssh.AuthMethod

	if agentAuth := trySSHAgent(); agentAuth != nil {
		methods = append(methods, agentAuth)
	}

	if keyAuth := tryDefaultSSHKeys(); keyAuth != nil {
		methods = append(methods, keyAuth)
	}

	if len(methods) == 0 {
		return nil, fmt.Errorf("no SSH authentication methods available (tried ssh-agent and default keys)") //nolint:err113,perfsprint // Descriptive auth error
	}

	return methods, nil
}

// Kind implements Auth.
func (AgentAuth) Kind() string { return "agent" }

func (AgentAuth) isAuth() {}

// RemoteCredentials identifies the remote host, account, base path and auth variant.
type RemoteCredentials struct {
	Hostname       string
	Port           int
	Username       string
	RemoteBasePath string
	Auth           Auth
	// KnownHostsPath enables host key checking with trust on first use.
	// Empty disables verification.
	KnownHostsPath string
}

// Address returns host:port for dialing.
func (c RemoteCredentials) Address() string {
	port := c.Port
	if port == 0 {
		port = DefaultSSHPort
	}

	return net.JoinHostPort(c.Hostname, strconv.Itoa(port))
}

// CredentialsSource supplies credentials. It is read at the start of every connect.
type CredentialsSource interface {
	RemoteCredentials() (RemoteCredentials, error)
}

// CredentialsFunc adapts a function to CredentialsSource.
type CredentialsFunc func() (RemoteCredentials, error)

// RemoteCredentials implements CredentialsSource.
func (f CredentialsFunc) RemoteCredentials() (RemoteCredentials, error) {
	return f()
}

// trySSHAgent returns an agent-backed method when SSH_AUTH_SOCK is set.
// The agent is dialed when the handshake asks for keys, not here.
func trySSHAgent() ssh.AuthMethod {
	if os.Getenv("SSH_AUTH_SOCK") == "" {
		return nil
	}

	return ssh.PublicKeysCallback(agentSigners)
}

// The agent connection is shared by every handshake. Signers keep using it
// after the handshake starts, so it stays open until it breaks or the socket
// changes.
var sharedAgent struct {
	mu     sync.Mutex
	socket string
	conn   net.Conn
	client agent.ExtendedAgent
}

func agentSigners() ([]ssh.Signer, error) {
	sharedAgent.mu.Lock()
	defer sharedAgent.mu.Unlock()

	socket := os.Getenv("SSH_AUTH_SOCK")
	if socket == "" {
		return nil, fmt.Errorf("SSH_AUTH_SOCK is not set") //nolint:err113,perfsprint // Descriptive auth error
	}

	if sharedAgent.client == nil || sharedAgent.socket != socket {
		closeAgentLocked()

		conn, err := net.Dial("unix", socket)
		if err != nil {
			return nil, fmt.Errorf("failed to reach ssh-agent: %w", err)
		}

		sharedAgent.socket = socket
		sharedAgent.conn = conn
		sharedAgent.client = agent.NewClient(conn)
	}

	signers, err := sharedAgent.client.Signers()
	if err != nil {
		closeAgentLocked()

		return nil, fmt.Errorf("failed to list ssh-agent keys: %w", err)
	}

	return signers, nil
}

func closeAgentLocked() {
	if sharedAgent.conn != nil {
		_ = sharedAgent.conn.Close()
	}

	sharedAgent.socket = ""
	sharedAgent.conn = nil
	sharedAgent.client = nil
}

// tryDefaultSSHKeys attempts to load SSH keys from default locations.
func tryDefaultSSHKeys() ssh.AuthMethod {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil
	}

	keyPaths := []string{
		filepath.Join(homeDir, ".ssh", "id_ed25519"),
		filepath.Join(homeDir, ".ssh", "id_rsa"),
		filepath.Join(homeDir, ".ssh", "id_ecdsa"),
	}

	var signers []ssh.Signer

	for _, keyPath := range keyPaths {
		keyData, err := os.ReadFile(keyPath) //nolint:gosec // Reading the user's own key files
		if err != nil {
			continue
		}

		signer, err := ssh.ParsePrivateKey(keyData)
		if err != nil {
			continue
		}

		signers = append(signers, signer)
	}

	if len(signers) == 0 {
		return nil
	}

	return ssh.PublicKeys(signers...)
}
