package shared

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
)

// NewProgressModel creates a progress bar with the palette's colors.
func NewProgressModel(width int) progress.Model {
	progressBar := progress.New(progress.WithDefaultGradient())
	progressBar.Width = width
	progressBar.ShowPercentage = false

	if !colorsDisabled {
		progressBar.EmptyColor = dimColorCode
		progressBar.FullColor = accentColorCode
	}

	return progressBar
}

// Fraction returns sent/total clamped to [0, 1]. An empty file counts as done.
func Fraction(sent, total int64) float64 {
	if total <= 0 {
		return 1
	}

	switch {
	case sent <= 0:
		return 0
	case sent >= total:
		return 1
	default:
		return float64(sent) / float64(total)
	}
}

// RenderASCIIProgress renders a bar like "[=========>          ] 45%".
// percent is between 0.0 and 1.0; width is the inner width of the bar.
func RenderASCIIProgress(percent float64, width int) string {
	filled := int(percent * float64(width))

	var bar strings.Builder

	bar.WriteString("[")

	switch {
	case filled >= width:
		bar.WriteString(strings.Repeat("=", width))
	case percent > 0:
		equals := max(0, filled-1)
		bar.WriteString(strings.Repeat("=", equals))
		bar.WriteString(">")
		bar.WriteString(strings.Repeat(" ", width-equals-1))
	default:
		bar.WriteString(strings.Repeat(" ", width))
	}

	bar.WriteString("]")

	return fmt.Sprintf("%s %d%%", bar.String(), int(percent*ProgressPercentageScale))
}

// RenderProgress renders the bubbles bar, or the ASCII bar when colors are off.
func RenderProgress(model progress.Model, percent float64) string {
	if colorsDisabled {
		return RenderASCIIProgress(percent, model.Width)
	}

	return model.ViewAs(percent) + fmt.Sprintf(" %d%%", int(percent*ProgressPercentageScale))
}
