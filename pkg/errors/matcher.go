package errors

import "strings"

// PatternMatcher matches error messages to categories using string patterns.
type PatternMatcher interface {
	Match(errorMsg string) ErrorCategory
}

// NewPatternMatcher creates a new PatternMatcher with predefined patterns.
// Patterns are checked in order; auth failures surface through ssh handshake
// errors, so they are matched before generic connection failures.
func NewPatternMatcher() PatternMatcher {
	return &patternMatcher{
		patterns: []categoryPatterns{
			{CategoryAuth, []string{
				"unable to authenticate",
				"no supported methods remain",
				"authentication failed",
				"cannot decode encrypted private keys",
				"passphrase",
			}},
			{CategoryHostKey, []string{
				"knownhosts: key mismatch",
				"host key mismatch",
				"key is unknown",
			}},
			{CategoryConnection, []string{
				"connection refused",
				"no route to host",
				"network is unreachable",
				"no such host",
				"i/o timeout",
				"connection reset",
				"handshake failed",
			}},
			{CategoryListing, []string{
				"remote listing failed",
				"find:",
			}},
			{CategoryPermission, []string{
				"permission denied",
				"access denied",
				"operation not permitted",
			}},
			{CategoryDiskSpace, []string{
				"no space left on device",
				"disk full",
				"quota exceeded",
			}},
			{CategoryPath, []string{
				"no such file or directory",
				"file does not exist",
				"not found",
			}},
			{CategoryTransfer, []string{
				"short write",
				"input/output error",
				"i/o error",
				"connection lost",
			}},
		},
	}
}

type categoryPatterns struct {
	category ErrorCategory
	patterns []string
}

// patternMatcher is the concrete implementation of PatternMatcher.
type patternMatcher struct {
	patterns []categoryPatterns
}

// Match returns the error category based on pattern matching.
func (m *patternMatcher) Match(errorMsg string) ErrorCategory {
	lowerMsg := strings.ToLower(errorMsg)

	for _, entry := range m.patterns {
		for _, pattern := range entry.patterns {
			if strings.Contains(lowerMsg, pattern) {
				return entry.category
			}
		}
	}

	return CategoryUnknown
}
