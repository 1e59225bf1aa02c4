package shared_test

import (
	"testing"
	"time"

	. "github.com/onsi/gomega" //nolint:revive // Dot import is idiomatic for Gomega matchers

	"github.com/joe/gosync/internal/syncengine"
	"github.com/joe/gosync/internal/tui/shared"
)

func fillBridge(bridge *shared.EventBridge) {
	for range shared.EventBufferSize {
		bridge.Emit(syncengine.TransferProgress{Path: "big.bin"})
	}
}

func TestEventBridge_DropsProgressWhenFull(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	bridge := shared.NewEventBridge()
	defer bridge.Close()

	fillBridge(bridge)
	bridge.Emit(syncengine.TransferProgress{Path: "dropped.bin"})

	g.Expect(bridge.Subscribe()).To(HaveLen(shared.EventBufferSize))
}

func TestEventBridge_NeverDropsSyncComplete(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	bridge := shared.NewEventBridge()
	defer bridge.Close()

	fillBridge(bridge)

	emitted := make(chan struct{})

	go func() {
		bridge.Emit(syncengine.SyncComplete{Outcome: syncengine.OutcomeSuccess, Message: "done"})
		close(emitted)
	}()

	g.Consistently(emitted, 50*time.Millisecond).ShouldNot(BeClosed())

	var last shared.EngineEventMsg

	for range shared.EventBufferSize + 1 {
		select {
		case msg := <-bridge.Subscribe():
			last = msg.(shared.EngineEventMsg) //nolint:forcetypeassert // Bridge only sends EngineEventMsg
		case <-time.After(time.Second):
			t.Fatal("Timed out draining the bridge")
		}
	}

	g.Eventually(emitted).Should(BeClosed())
	g.Expect(last.Event).To(Equal(syncengine.SyncComplete{Outcome: syncengine.OutcomeSuccess, Message: "done"}))
}

func TestEventBridge_CloseReleasesWaitingEmit(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	bridge := shared.NewEventBridge()
	fillBridge(bridge)

	emitted := make(chan struct{})

	go func() {
		bridge.Emit(syncengine.SyncComplete{Outcome: syncengine.OutcomeStopped})
		close(emitted)
	}()

	g.Consistently(emitted, 20*time.Millisecond).ShouldNot(BeClosed())
	bridge.Close()
	g.Eventually(emitted).Should(BeClosed())

	bridge.Emit(syncengine.SyncProgress{Message: "after close"})
	bridge.Close()
}
