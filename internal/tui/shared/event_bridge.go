package shared

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/joe/gosync/internal/syncengine"
)

// EventBufferSize is how many events the bridge holds before dropping.
const EventBufferSize = 256

// EngineEventMsg wraps a syncengine.Event for use as a tea.Msg.
type EngineEventMsg struct {
	Event syncengine.Event
}

// EventBridge adapts syncengine events to bubble tea messages.
// It implements syncengine.EventEmitter, so it can be subscribed to the bus
// or handed to the engine directly.
type EventBridge struct {
	eventChan chan tea.Msg
	done      chan struct{}
	closeOnce sync.Once

	mu     sync.RWMutex
	closed bool
}

// NewEventBridge creates a new event bridge.
func NewEventBridge() *EventBridge {
	return &EventBridge{
		eventChan: make(chan tea.Msg, EventBufferSize),
		done:      make(chan struct{}),
	}
}

// Emit implements syncengine.EventEmitter. Progress events are dropped when
// the buffer is full. SyncComplete is never dropped: Emit waits for room
// until the bridge is closed.
func (b *EventBridge) Emit(event syncengine.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	msg := EngineEventMsg{Event: event}

	if _, final := event.(syncengine.SyncComplete); final {
		select {
		case b.eventChan <- msg:
		case <-b.done:
		}

		return
	}

	select {
	case b.eventChan <- msg:
	default:
	}
}

// Subscribe returns the event channel for receiving events.
func (b *EventBridge) Subscribe() <-chan tea.Msg {
	return b.eventChan
}

// ListenCmd returns a tea.Cmd that blocks until an event is received.
// Re-issue it after every EngineEventMsg to keep listening.
func (b *EventBridge) ListenCmd() tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-b.eventChan
		if !ok {
			return nil
		}

		return msg
	}
}

// Close closes the event channel and releases any Emit waiting for room.
// Later Emits are ignored.
func (b *EventBridge) Close() {
	b.closeOnce.Do(func() {
		close(b.done)

		b.mu.Lock()
		defer b.mu.Unlock()

		b.closed = true
		close(b.eventChan)
	})
}
