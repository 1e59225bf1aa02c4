package shared

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// TickInterval refreshes relative times such as "last sync 2 minutes ago".
const TickInterval = time.Second

// TickMsg is a message sent on each tick interval.
type TickMsg time.Time

// TickCmd returns a command that sends one tick after TickInterval.
func TickCmd() tea.Cmd {
	return tea.Tick(TickInterval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}
