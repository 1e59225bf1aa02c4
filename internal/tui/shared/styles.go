package shared

import (
	"os"

	"github.com/charmbracelet/lipgloss"
)

// Layout and display constants.
const (
	// DefaultPadding is the default padding for UI elements
	DefaultPadding = 2
	// ProgressBarWidth is the default width of progress bars
	ProgressBarWidth = 40
	// MaxProgressBarWidth is the maximum width for progress bars
	MaxProgressBarWidth = 100
	// ProgressPercentageScale is the scale for percentage calculations
	ProgressPercentageScale = 100
	// VisibleActivity is how many activity entries the status screen shows
	VisibleActivity = 12
	// FailureLimit is how many failed files the summary lists
	FailureLimit = 5

	// KeyCtrlC is the key binding for cancellation
	KeyCtrlC = "ctrl+c"
)

// NO_COLOR or a dumb terminal switch to plain ASCII rendering.
var (
	colorsDisabled  = os.Getenv("NO_COLOR") != "" || os.Getenv("TERM") == "dumb"
	unicodeDisabled = os.Getenv("TERM") == "dumb"
)

func AccentColor() lipgloss.Color { return lipgloss.Color(accentColorCode) }

func DimColor() lipgloss.Color { return lipgloss.Color(dimColorCode) }

func ErrorColor() lipgloss.Color { return lipgloss.Color(errorColorCode) }

func HighlightColor() lipgloss.Color { return lipgloss.Color(highlightColorCode) }

// PrimaryColor returns the primary color for the UI
func PrimaryColor() lipgloss.Color { return lipgloss.Color(primaryColorCode) }

func SuccessColor() lipgloss.Color { return lipgloss.Color(successColorCode) }

func WarningColor() lipgloss.Color { return lipgloss.Color(warningColorCode) }

// BoxStyle returns the style for boxes with padding
func BoxStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(AccentColor()).
		Padding(0, DefaultPadding)
}

// DimStyle returns the style for dimmed text
func DimStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(DimColor())
}

// ErrorStyle returns the style for error messages
func ErrorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(ErrorColor()).Bold(true)
}

// LabelStyle returns the style for labels
func LabelStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(HighlightColor()).Bold(true)
}

// SuccessStyle returns the style for success messages
func SuccessStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(SuccessColor()).Bold(true)
}

// TitleStyle returns the style for titles
func TitleStyle() lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(PrimaryColor())
}

// WarningStyle returns the style for warning messages
func WarningStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(WarningColor()).Bold(true)
}

func RenderBox(content string) string { return BoxStyle().Render(content) }

func RenderDim(text string) string { return DimStyle().Render(text) }

func RenderError(text string) string { return ErrorStyle().Render(text) }

func RenderLabel(text string) string { return LabelStyle().Render(text) }

func RenderSuccess(text string) string { return SuccessStyle().Render(text) }

func RenderTitle(text string) string { return TitleStyle().Render(text) }

func RenderWarning(text string) string { return WarningStyle().Render(text) }

// SuccessSymbol returns a check mark with ASCII fallback
func SuccessSymbol() string {
	if unicodeDisabled {
		return "[OK]"
	}

	return "✓"
}

// ErrorSymbol returns a cross with ASCII fallback
func ErrorSymbol() string {
	if unicodeDisabled {
		return "[X]"
	}

	return "✗"
}

// WarningSymbol returns a warning sign with ASCII fallback
func WarningSymbol() string {
	if unicodeDisabled {
		return "[!]"
	}

	return "⚠"
}

// IdleSymbol returns a hollow circle with ASCII fallback
func IdleSymbol() string {
	if unicodeDisabled {
		return "[ ]"
	}

	return "○"
}

const (
	accentColorCode    = "62"  // Blue
	dimColorCode       = "240" // Dark gray
	errorColorCode     = "196" // Red
	highlightColorCode = "86"  // Cyan
	primaryColorCode   = "205" // Pink/purple
	successColorCode   = "42"  // Green
	warningColorCode   = "226"
)
