package errors

import (
	"errors"
	"fmt"
)

// Exported variables.
var (
	// ErrNotFound signals an expected absence, e.g. a remote path that does not exist.
	ErrNotFound = errors.New("not found")
)

// ConnectionError reports that a remote session could not be established.
// It is fatal for a pass and never for the auto loop.
type ConnectionError struct {
	Host     string
	Attempts int
	Err      error
}

func (e *ConnectionError) Error() string {
	if e.Attempts > 1 {
		return fmt.Sprintf("connection to %s failed after %d attempts: %v", e.Host, e.Attempts, e.Err)
	}

	return fmt.Sprintf("connection to %s failed: %v", e.Host, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// Listing stages.
const (
	ListingStageCreate = "create"
	ListingStageFetch  = "fetch"
	ListingStageParse  = "parse"
)

// ListingError reports that the remote file listing could not be produced.
type ListingError struct {
	Stage string
	Err   error
}

func (e *ListingError) Error() string {
	return fmt.Sprintf("remote listing failed (%s): %v", e.Stage, e.Err)
}

func (e *ListingError) Unwrap() error {
	return e.Err
}

// TransferError reports a single-file transfer failure.
type TransferError struct {
	Path   string
	Reason string
	Err    error
}

func (e *TransferError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("transfer of %s failed: %s", e.Path, e.Reason)
	}

	return fmt.Sprintf("transfer of %s failed: %s: %v", e.Path, e.Reason, e.Err)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

// ConfigError reports a missing or invalid setting.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Field, e.Reason)
}

// MissingSetting returns a ConfigError for a required setting that is empty.
func MissingSetting(field string) *ConfigError {
	return &ConfigError{Field: field, Reason: "required setting is not set"}
}
