package syncengine

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// FileFilter defines the interface for filtering files during sync
type FileFilter interface {
	// ShouldInclude returns true if the file at the given relative path should be included in the sync
	ShouldInclude(relativePath string) bool
}

// ExcludeFilter drops files matching any of its glob patterns.
// Matching is case-insensitive, and a pattern without a slash also matches
// the base name at any depth ("*.tmp" excludes "a/b/c.tmp").
type ExcludeFilter struct {
	patterns []string
}

// NewExcludeFilter creates an ExcludeFilter. Invalid patterns never match.
func NewExcludeFilter(patterns []string) *ExcludeFilter {
	normalized := make([]string, 0, len(patterns))

	for _, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}

		pattern = strings.ToLower(pattern)
		if !strings.Contains(pattern, "/") {
			pattern = "**/" + pattern
		}

		normalized = append(normalized, pattern)
	}

	return &ExcludeFilter{patterns: normalized}
}

// ShouldInclude returns false when the path matches an exclude pattern.
func (f *ExcludeFilter) ShouldInclude(relativePath string) bool {
	normalizedPath := strings.ToLower(relativePath)

	for _, pattern := range f.patterns {
		matched, err := doublestar.Match(pattern, normalizedPath)
		if err == nil && matched {
			return false
		}
	}

	return true
}
