package shared

import (
	"fmt"
	"strings"

	"github.com/joe/gosync/internal/syncengine"
)

// RenderFailures lists failed files with their reasons, at most limit of them,
// followed by the pass's suggestions.
func RenderFailures(failures []syncengine.FileFailure, suggestions []string, limit int) string {
	if len(failures) == 0 && len(suggestions) == 0 {
		return ""
	}

	var builder strings.Builder

	for i, failure := range failures {
		if limit > 0 && i >= limit {
			fmt.Fprintf(&builder, "  ... and %d more\n", len(failures)-limit)

			break
		}

		fmt.Fprintf(&builder, "  %s %s: %s\n", ErrorSymbol(), failure.Path, failure.Reason)
	}

	for _, suggestion := range suggestions {
		fmt.Fprintf(&builder, "  %s\n", RenderDim("• "+suggestion))
	}

	return strings.TrimSuffix(builder.String(), "\n")
}
