package syncengine

import "time"

// Event is the interface implemented by all sync engine events.
type Event interface {
	isEvent()
}

// EventEmitter is the interface for emitting events.
type EventEmitter interface {
	Emit(event Event)
}

// EmitterFunc adapts a function to EventEmitter.
type EmitterFunc func(event Event)

// Emit implements EventEmitter.
func (f EmitterFunc) Emit(event Event) {
	f(event)
}

// PassState is the stage a pass is in.
type PassState int32

// Pass states, in execution order.
const (
	StateIdle PassState = iota
	StateConnecting
	StateListing
	StateDiffing
	StateTransferring
)

func (s PassState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateListing:
		return "listing"
	case StateDiffing:
		return "diffing"
	case StateTransferring:
		return "transferring"
	default:
		return "unknown"
	}
}

// Outcome classifies a finished pass.
type Outcome string

// Pass outcomes.
const (
	OutcomeSuccess Outcome = "success"
	OutcomePartial Outcome = "partial"
	OutcomeFailure Outcome = "failure"
	OutcomeStopped Outcome = "stopped"
)

// ConnectionStatus is emitted when a session is established or given up on.
type ConnectionStatus struct {
	Success bool
	Message string
}

func (ConnectionStatus) isEvent() {}

// SyncProgress is emitted at every stage transition and for notable steps within a stage.
type SyncProgress struct {
	State   PassState
	Message string
}

func (SyncProgress) isEvent() {}

// SyncComplete is emitted exactly once at the end of every pass.
type SyncComplete struct {
	Success          bool
	Outcome          Outcome
	Message          string
	TransferredCount int
	Failures         []FileFailure
	Bytes            int64
	Started          time.Time
	Duration         time.Duration
	Suggestions      []string
}

func (SyncComplete) isEvent() {}

// FileListUpdated carries the local and remote listings of a pass.
type FileListUpdated struct {
	Local  []string
	Remote []string
}

func (FileListUpdated) isEvent() {}

// TransferProgress reports bytes sent for the file being uploaded.
type TransferProgress struct {
	Path       string
	Message    string
	BytesSent  int64
	BytesTotal int64
}

func (TransferProgress) isEvent() {}

// TransferComplete is emitted after each upload attempt.
type TransferComplete struct {
	Path    string
	Success bool
	Message string
	Bytes   int64
	// Rate is the rolling upload rate in bytes per second.
	Rate float64
}

func (TransferComplete) isEvent() {}

// FileFailure records one file that could not be sent.
type FileFailure struct {
	Path   string
	Reason string
}
