package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/joe/gosync/internal/syncengine"
	"github.com/joe/gosync/internal/tui/shared"
)

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.bridge.ListenCmd(), shared.TickCmd())
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.progress.Width = min(max(msg.Width-2*shared.DefaultPadding-10, 10), shared.MaxProgressBarWidth)

		return m, nil

	case passRequestedMsg:
		if msg.accepted {
			m.log("Sync requested")
		} else {
			m.log("Sync already running")
		}

		return m, nil

	case shared.EngineEventMsg:
		m.apply(msg.Event)

		return m, m.bridge.ListenCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)

		return m, cmd

	case progress.FrameMsg:
		updated, cmd := m.progress.Update(msg)
		if bar, ok := updated.(progress.Model); ok {
			m.progress = bar
		}

		return m, cmd

	case shared.TickMsg:
		return m, shared.TickCmd()
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc", shared.KeyCtrlC:
		m.quitting = true

		return m, tea.Quit

	case "s":
		ctx, requester := m.ctx, m.requester

		return m, func() tea.Msg {
			return passRequestedMsg{accepted: requester.RequestPass(ctx)}
		}
	}

	return m, nil
}

// apply folds an engine event into the screen state.
func (m *Model) apply(event syncengine.Event) {
	switch ev := event.(type) {
	case syncengine.ConnectionStatus:
		m.connected = ev.Success
		m.connMessage = ev.Message
		m.log(ev.Message)

	case syncengine.SyncProgress:
		m.state = ev.State
		m.stage = ev.Message

		if ev.State != syncengine.StateTransferring {
			m.current = nil
		}

		m.log(ev.Message)

	case syncengine.FileListUpdated:
		m.localCount = len(ev.Local)
		m.remoteCount = len(ev.Remote)

	case syncengine.TransferProgress:
		transfer := ev
		m.current = &transfer

	case syncengine.TransferComplete:
		m.current = nil

		if ev.Success {
			m.rate = ev.Rate
			m.log(fmt.Sprintf("%s %s (%s)", shared.SuccessSymbol(), ev.Message, shared.FormatBytes(ev.Bytes)))
		} else {
			m.log(shared.ErrorSymbol() + " " + ev.Message)
		}

	case syncengine.SyncComplete:
		complete := ev
		m.last = &complete
		m.lastAt = m.opts.Now()
		m.state = syncengine.StateIdle
		m.current = nil
		m.stage = ev.Message
		m.log(ev.Message)
	}
}

func (m *Model) log(entry string) {
	if entry == "" {
		return
	}

	m.activity.Add(m.opts.Now(), entry)
}
