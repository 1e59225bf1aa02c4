//nolint:varnamelen,testpackage // Exercises the unexported shared agent connection
package filesystem

import (
	"crypto/ed25519"
	"crypto/rand"
	"net"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	. "github.com/onsi/gomega" //nolint:revive // Dot import is idiomatic for Gomega matchers
	"golang.org/x/crypto/ssh/agent"
)

// serveAgent runs an in-memory ssh-agent holding one key and counts connections.
func serveAgent(t *testing.T) (socket string, accepted *atomic.Int32) {
	t.Helper()
	g := NewWithT(t)

	// Unix socket paths are length-limited, so avoid the long t.TempDir path.
	dir, err := os.MkdirTemp("", "gosync-agent")
	g.Expect(err).NotTo(HaveOccurred())
	t.Cleanup(func() { _ = os.RemoveAll(dir) })

	socket = filepath.Join(dir, "agent.sock")
	listener, err := net.Listen("unix", socket)
	g.Expect(err).NotTo(HaveOccurred())
	t.Cleanup(func() { _ = listener.Close() })

	_, key, err := ed25519.GenerateKey(rand.Reader)
	g.Expect(err).NotTo(HaveOccurred())

	keyring := agent.NewKeyring()
	g.Expect(keyring.Add(agent.AddedKey{PrivateKey: key})).To(Succeed())

	accepted = &atomic.Int32{}

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}

			accepted.Add(1)

			go func() { _ = agent.ServeAgent(keyring, conn) }()
		}
	}()

	return socket, accepted
}

func resetAgent() {
	sharedAgent.mu.Lock()
	defer sharedAgent.mu.Unlock()

	closeAgentLocked()
}

// Not parallel: it sets SSH_AUTH_SOCK and uses the process-wide agent connection.
func TestAgentSigners_ReuseOneAgentConnection(t *testing.T) {
	g := NewWithT(t)

	socket, accepted := serveAgent(t)
	t.Setenv("SSH_AUTH_SOCK", socket)
	resetAgent()
	t.Cleanup(resetAgent)

	methods, err := AgentAuth{}.Methods()
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(methods).NotTo(BeEmpty())
	g.Expect(accepted.Load()).To(BeZero(), "building methods does not dial the agent")

	for range 3 {
		signers, err := agentSigners()
		g.Expect(err).NotTo(HaveOccurred())
		g.Expect(signers).To(HaveLen(1))
	}

	g.Expect(accepted.Load()).To(Equal(int32(1)))
}

func TestAgentSigners_RedialsWhenSocketChanges(t *testing.T) {
	g := NewWithT(t)

	first, firstAccepted := serveAgent(t)
	second, secondAccepted := serveAgent(t)

	resetAgent()
	t.Cleanup(resetAgent)

	t.Setenv("SSH_AUTH_SOCK", first)
	_, err := agentSigners()
	g.Expect(err).NotTo(HaveOccurred())

	t.Setenv("SSH_AUTH_SOCK", second)
	_, err = agentSigners()
	g.Expect(err).NotTo(HaveOccurred())

	g.Expect(firstAccepted.Load()).To(Equal(int32(1)))
	g.Expect(secondAccepted.Load()).To(Equal(int32(1)))
}
