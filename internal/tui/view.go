package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/joe/gosync/internal/syncengine"
	"github.com/joe/gosync/internal/tui/shared"
)

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	sections := []string{
		shared.RenderTitle("GOSync"),
		m.renderTargets(),
		m.renderStatus(),
	}

	if transfer := m.renderTransfer(); transfer != "" {
		sections = append(sections, transfer)
	}

	if last := m.renderLast(); last != "" {
		sections = append(sections, last)
	}

	sections = append(sections,
		shared.RenderActivityLog("Activity", m.activity.Entries(), shared.VisibleActivity),
		shared.RenderDim("s: sync now • q: quit"),
	)

	return lipgloss.JoinVertical(lipgloss.Left, sections...) + "\n"
}

func (m Model) renderTargets() string {
	mode := "manual"
	if m.opts.AutoSync {
		mode = "every " + shared.FormatDuration(m.opts.Interval)
	}

	return fmt.Sprintf("%s %s\n%s %s\n%s %s",
		shared.RenderLabel("Local: "), m.opts.LocalPath,
		shared.RenderLabel("Remote:"), m.opts.Remote,
		shared.RenderLabel("Auto:  "), mode)
}

func (m Model) renderStatus() string {
	var conn string

	switch {
	case m.connected:
		conn = shared.RenderSuccess(shared.SuccessSymbol() + " connected")
	case m.connMessage != "":
		conn = shared.RenderError(shared.ErrorSymbol() + " " + m.connMessage)
	default:
		conn = shared.RenderDim(shared.IdleSymbol() + " not connected")
	}

	stage := m.stage
	if m.state != syncengine.StateIdle {
		stage = m.spinner.View() + " " + stage
	}

	lines := []string{conn, stage}

	if m.localCount > 0 || m.remoteCount > 0 {
		lines = append(lines, shared.RenderDim(fmt.Sprintf("%d local, %d remote", m.localCount, m.remoteCount)))
	}

	return strings.Join(lines, "\n")
}

func (m Model) renderTransfer() string {
	if m.current == nil {
		return ""
	}

	sent, total := m.current.BytesSent, m.current.BytesTotal
	line := fmt.Sprintf("%s  %s / %s", m.current.Path, shared.FormatBytes(sent), shared.FormatBytes(total))

	if m.rate > 0 {
		line += "  " + shared.FormatRate(m.rate)
	}

	return line + "\n" + shared.RenderProgress(m.progress, shared.Fraction(sent, total))
}

func (m Model) renderLast() string {
	if m.last == nil {
		return ""
	}

	var headline string

	switch m.last.Outcome {
	case syncengine.OutcomeSuccess:
		headline = shared.RenderSuccess(shared.SuccessSymbol() + " " + m.last.Message)
	case syncengine.OutcomePartial, syncengine.OutcomeStopped:
		headline = shared.RenderWarning(shared.WarningSymbol() + " " + m.last.Message)
	default:
		headline = shared.RenderError(shared.ErrorSymbol() + " " + m.last.Message)
	}

	meta := shared.RenderDim(fmt.Sprintf("last sync %s, %d sent (%s) in %s",
		shared.FormatAgo(m.lastAt, m.opts.Now()),
		m.last.TransferredCount,
		shared.FormatBytes(m.last.Bytes),
		shared.FormatDuration(m.last.Duration)))

	body := headline + "\n" + meta
	if failures := shared.RenderFailures(m.last.Failures, m.last.Suggestions, shared.FailureLimit); failures != "" {
		body += "\n" + failures
	}

	return shared.RenderBox(body)
}
