package errors

import (
	"errors"
	"regexp"
	"strings"
)

// Enricher enriches standard errors with actionable suggestions.
type Enricher interface {
	Enrich(err error, affectedPath string) error
}

// NewEnricher creates a new Enricher with default pattern matcher and suggestion generator.
func NewEnricher() Enricher {
	return &enricher{
		matcher:   NewPatternMatcher(),
		generator: NewSuggestionGenerator(),
	}
}

// unexported variables.
var (
	//nolint:gochecknoglobals // Compiled regexes shared across all enricher instances
	pathExtractionPatterns = []*regexp.Regexp{
		// "transfer of <path> failed"
		regexp.MustCompile(`transfer of (\S+) failed`),
		// "open /path/to/file: ..." style errors
		regexp.MustCompile(`\b\w+\s+([./][^\s:]+):`),
		// Windows paths with backslashes
		regexp.MustCompile(`\b\w+\s+([A-Za-z]:\\[^\s:]+):`),
	}
)

// enricher is the concrete implementation of Enricher.
type enricher struct {
	matcher   PatternMatcher
	generator SuggestionGenerator
}

// Enrich takes an error and enriches it with category and actionable suggestions.
// If the error is already an ActionableError, it is returned unchanged.
// If affectedPath is empty, attempts to extract a path from the error or its message.
func (e *enricher) Enrich(err error, affectedPath string) error {
	if err == nil {
		return nil
	}

	var actionableErr ActionableError
	if errors.As(err, &actionableErr) {
		return actionableErr
	}

	errMsg := err.Error()

	if affectedPath == "" {
		affectedPath = typedPath(err)
	}

	if affectedPath == "" {
		affectedPath = extractPath(errMsg)
	}

	category := e.categorize(err, errMsg)

	return &actionableError{
		originalError: errMsg,
		category:      category,
		suggestions:   e.generator.Generate(category, affectedPath),
		affectedPath:  affectedPath,
		cause:         err,
	}
}

// categorize prefers message patterns and falls back to the typed taxonomy.
func (e *enricher) categorize(err error, errMsg string) ErrorCategory {
	var configErr *ConfigError
	if errors.As(err, &configErr) {
		return CategoryConfig
	}

	category := e.matcher.Match(errMsg)
	if category != CategoryUnknown {
		return category
	}

	var (
		connErr     *ConnectionError
		listingErr  *ListingError
		transferErr *TransferError
	)

	switch {
	case errors.As(err, &connErr):
		return CategoryConnection
	case errors.As(err, &listingErr):
		return CategoryListing
	case errors.As(err, &transferErr):
		return CategoryTransfer
	case errors.Is(err, ErrNotFound):
		return CategoryPath
	}

	return CategoryUnknown
}

func typedPath(err error) string {
	var transferErr *TransferError
	if errors.As(err, &transferErr) {
		return transferErr.Path
	}

	var configErr *ConfigError
	if errors.As(err, &configErr) {
		return configErr.Field
	}

	var connErr *ConnectionError
	if errors.As(err, &connErr) {
		return connErr.Host
	}

	return ""
}

// extractPath attempts to extract a file path from common Go error message formats.
// Returns empty string if no path is found.
func extractPath(errorMsg string) string {
	for _, pattern := range pathExtractionPatterns {
		if matches := pattern.FindStringSubmatch(errorMsg); len(matches) > 1 {
			path := strings.TrimSpace(matches[1])
			if path != "" {
				return path
			}
		}
	}

	return ""
}
