// Package tui renders the sync status screen: connection and pass state, the
// file being sent, the last pass result, and a scrolling activity log.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"

	"github.com/joe/gosync/internal/syncengine"
	"github.com/joe/gosync/internal/tui/shared"
)

// PassRequester starts a pass in the background, reporting whether it did.
type PassRequester interface {
	RequestPass(ctx context.Context) bool
}

// Options describes what the status screen shows and drives.
type Options struct {
	Remote    string
	LocalPath string
	AutoSync  bool
	Interval  time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

// Model is the status screen.
type Model struct {
	ctx       context.Context //nolint:containedctx // Passes requested from key presses need the program's context.
	requester PassRequester
	bridge    *shared.EventBridge
	opts      Options

	spinner  spinner.Model
	progress progress.Model
	activity shared.ActivityLog

	connected   bool
	connMessage string
	state       syncengine.PassState
	stage       string
	localCount  int
	remoteCount int
	current     *syncengine.TransferProgress
	rate        float64
	last        *syncengine.SyncComplete
	lastAt      time.Time

	width    int
	quitting bool
}

// passRequestedMsg reports the result of a key-triggered RequestPass.
type passRequestedMsg struct {
	accepted bool
}

// NewModel creates the status screen. Events arrive through bridge.
func NewModel(ctx context.Context, requester PassRequester, bridge *shared.EventBridge, opts Options) Model {
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(shared.PrimaryColor())

	return Model{
		ctx:       ctx,
		requester: requester,
		bridge:    bridge,
		opts:      opts,
		spinner:   s,
		progress:  shared.NewProgressModel(shared.ProgressBarWidth),
		stage:     "Waiting for first sync",
	}
}

// State returns the pass state last reported by the engine.
func (m Model) State() syncengine.PassState {
	return m.state
}

// Connected reports whether the last connection attempt succeeded.
func (m Model) Connected() bool {
	return m.connected
}

// LastResult returns the most recent SyncComplete, or nil.
func (m Model) LastResult() *syncengine.SyncComplete {
	return m.last
}

// Activity returns the activity log entries, oldest first.
func (m Model) Activity() []string {
	return m.activity.Entries()
}

// Quitting reports whether the user asked to quit.
func (m Model) Quitting() bool {
	return m.quitting
}
