package tui_test

import (
	"context"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/joe/gosync/internal/syncengine"
	"github.com/joe/gosync/internal/tui"
	"github.com/joe/gosync/internal/tui/shared"
)

type fakeRequester struct {
	calls  atomic.Int32
	accept bool
}

func (f *fakeRequester) RequestPass(context.Context) bool {
	f.calls.Add(1)

	return f.accept
}

var _ = Describe("Status screen", func() {
	var (
		requester *fakeRequester
		bridge    *shared.EventBridge
		model     tui.Model
		now       time.Time
	)

	send := func(msg tea.Msg) tea.Cmd {
		updated, cmd := model.Update(msg)
		model = updated.(tui.Model)

		return cmd
	}

	emit := func(event syncengine.Event) {
		send(shared.EngineEventMsg{Event: event})
	}

	key := func(s string) tea.Cmd {
		return send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
	}

	BeforeEach(func() {
		now = time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)
		requester = &fakeRequester{accept: true}
		bridge = shared.NewEventBridge()
		DeferCleanup(bridge.Close)

		model = tui.NewModel(context.Background(), requester, bridge, tui.Options{
			Remote:    "joe@nas:/srv/sync",
			LocalPath: "/home/joe/GOSyncFiles",
			AutoSync:  true,
			Interval:  5 * time.Minute,
			Now:       func() time.Time { return now },
		})
	})

	It("shows the targets and a waiting state before any pass", func() {
		view := model.View()

		Expect(view).To(ContainSubstring("/home/joe/GOSyncFiles"))
		Expect(view).To(ContainSubstring("joe@nas:/srv/sync"))
		Expect(view).To(ContainSubstring("every 5m 0s"))
		Expect(view).To(ContainSubstring("Waiting for first sync"))
		Expect(model.State()).To(Equal(syncengine.StateIdle))
	})

	It("tracks connection status", func() {
		emit(syncengine.ConnectionStatus{Success: true, Message: "Connected to nas"})

		Expect(model.Connected()).To(BeTrue())
		Expect(model.View()).To(ContainSubstring("connected"))

		emit(syncengine.ConnectionStatus{Success: false, Message: "Connection failed: refused"})

		Expect(model.Connected()).To(BeFalse())
		Expect(model.View()).To(ContainSubstring("Connection failed: refused"))
	})

	It("follows a pass from stages to the result", func() {
		emit(syncengine.SyncProgress{State: syncengine.StateListing, Message: "Getting file lists..."})
		Expect(model.State()).To(Equal(syncengine.StateListing))
		Expect(model.View()).To(ContainSubstring("Getting file lists..."))

		emit(syncengine.FileListUpdated{Local: []string{"a.txt", "b.txt"}, Remote: []string{"a.txt"}})
		Expect(model.View()).To(ContainSubstring("2 local, 1 remote"))

		emit(syncengine.SyncProgress{State: syncengine.StateTransferring, Message: "Transferring files..."})
		emit(syncengine.TransferProgress{Path: "b.txt", BytesSent: 512, BytesTotal: 1024})
		Expect(model.View()).To(ContainSubstring("b.txt"))
		Expect(model.View()).To(ContainSubstring("50%"))

		emit(syncengine.TransferComplete{Path: "b.txt", Success: true, Message: "Uploaded b.txt", Bytes: 1024, Rate: 2048})
		emit(syncengine.SyncComplete{
			Success:          true,
			Outcome:          syncengine.OutcomeSuccess,
			Message:          "Sync complete. Sent 1 files.",
			TransferredCount: 1,
			Bytes:            1024,
			Duration:         1500 * time.Millisecond,
		})

		Expect(model.State()).To(Equal(syncengine.StateIdle))
		Expect(model.LastResult()).NotTo(BeNil())
		Expect(model.LastResult().TransferredCount).To(Equal(1))

		view := model.View()
		Expect(view).To(ContainSubstring("Sync complete. Sent 1 files."))
		Expect(view).To(ContainSubstring("1 sent (1.0 kB)"))
		Expect(view).NotTo(ContainSubstring("50%"))
		Expect(model.Activity()).To(ContainElement(ContainSubstring("Uploaded b.txt")))
	})

	It("lists failures and suggestions of the last pass", func() {
		emit(syncengine.SyncComplete{
			Outcome: syncengine.OutcomePartial,
			Message: "Sync finished with errors. Sent 1 files, 1 failed.",
			Failures: []syncengine.FileFailure{
				{Path: "locked.txt", Reason: "failed to create remote file"},
			},
			Suggestions: []string{"Check write permissions on the remote directory"},
		})

		view := model.View()
		Expect(view).To(ContainSubstring("locked.txt: failed to create remote file"))
		Expect(view).To(ContainSubstring("Check write permissions on the remote directory"))
	})

	It("keeps listening to the bridge after each event", func() {
		cmd := send(shared.EngineEventMsg{Event: syncengine.SyncProgress{Message: "Connecting to SSH..."}})
		Expect(cmd).NotTo(BeNil())

		bridge.Emit(syncengine.SyncProgress{State: syncengine.StateDiffing, Message: "Comparing files..."})

		msg := cmd()
		Expect(msg).To(BeAssignableToTypeOf(shared.EngineEventMsg{}))
	})

	It("requests a pass on s", func() {
		cmd := key("s")
		Expect(cmd).NotTo(BeNil())

		send(cmd())

		Expect(requester.calls.Load()).To(Equal(int32(1)))
		Expect(model.Activity()).To(ContainElement(ContainSubstring("Sync requested")))
	})

	It("reports a busy engine when s is pressed during a pass", func() {
		requester.accept = false

		send(key("s")())

		Expect(model.Activity()).To(ContainElement(ContainSubstring("Sync already running")))
	})

	It("quits on q", func() {
		cmd := key("q")

		Expect(model.Quitting()).To(BeTrue())
		Expect(cmd()).To(Equal(tea.Quit()))
		Expect(model.View()).To(BeEmpty())
	})
})
