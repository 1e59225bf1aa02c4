package shared

import (
	"strings"
	"time"
)

// DefaultActivityLimit is how many entries an ActivityLog keeps.
const DefaultActivityLimit = 200

// ActivityLog is a bounded, chronological list of timestamped entries.
type ActivityLog struct {
	Limit   int
	entries []string
}

// Add appends an entry stamped with at, dropping the oldest beyond Limit.
func (l *ActivityLog) Add(at time.Time, entry string) {
	l.entries = append(l.entries, at.Format(time.TimeOnly)+"  "+entry)

	limit := l.Limit
	if limit <= 0 {
		limit = DefaultActivityLimit
	}

	if over := len(l.entries) - limit; over > 0 {
		l.entries = append([]string(nil), l.entries[over:]...)
	}
}

// Entries returns the entries, oldest first.
func (l *ActivityLog) Entries() []string {
	return l.entries
}

// Len returns the number of entries.
func (l *ActivityLog) Len() int {
	return len(l.entries)
}

// RenderActivityLog renders entries oldest to newest under an optional title.
// If maxEntries > 0, only the most recent N entries are shown.
func RenderActivityLog(title string, entries []string, maxEntries int) string {
	var builder strings.Builder

	if trimmed := strings.TrimSpace(title); trimmed != "" {
		builder.WriteString(RenderLabel(trimmed))
		builder.WriteString("\n")

		if len(entries) > 0 {
			builder.WriteString("\n")
		}
	}

	if len(entries) == 0 {
		return builder.String()
	}

	start := 0
	if maxEntries > 0 && maxEntries < len(entries) {
		start = len(entries) - maxEntries
	}

	for i := start; i < len(entries); i++ {
		builder.WriteString("  ")
		builder.WriteString(entries[i])

		if i < len(entries)-1 {
			builder.WriteString("\n")
		}
	}

	return builder.String()
}
