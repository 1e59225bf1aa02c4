// Package eventbus fans sync engine events out to any number of subscribers.
package eventbus

import (
	"fmt"

	EventBus "github.com/asaskevich/EventBus"

	"github.com/joe/gosync/internal/syncengine"
)

// Topics. Each carries one syncengine event type.
const (
	TopicConnectionStatus = "sync:connection"
	TopicSyncProgress     = "sync:progress"
	TopicSyncComplete     = "sync:complete"
	TopicFileListUpdated  = "sync:filelist"
	TopicTransferProgress = "sync:transfer:progress"
	TopicTransferComplete = "sync:transfer:complete"
	// TopicAll receives every event as a syncengine.Event.
	TopicAll = "sync:all"
)

// Bus is a syncengine.EventEmitter that publishes each event on its topic and on TopicAll.
// Handlers run synchronously on the publishing goroutine unless subscribed with SubscribeAsync.
type Bus struct {
	bus EventBus.Bus
}

// New creates a Bus.
func New() *Bus {
	return &Bus{bus: EventBus.New()}
}

// Emit implements syncengine.EventEmitter.
func (b *Bus) Emit(event syncengine.Event) {
	if topic := TopicFor(event); topic != "" {
		b.bus.Publish(topic, event)
	}

	b.bus.Publish(TopicAll, event)
}

// Subscribe registers fn for topic. fn must take the topic's event type, or
// syncengine.Event for TopicAll.
func (b *Bus) Subscribe(topic string, fn any) error {
	if err := b.bus.Subscribe(topic, fn); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}

	return nil
}

// SubscribeAsync registers fn to run on its own goroutine, one event at a time.
func (b *Bus) SubscribeAsync(topic string, fn any) error {
	if err := b.bus.SubscribeAsync(topic, fn, true); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}

	return nil
}

// Unsubscribe removes fn from topic.
func (b *Bus) Unsubscribe(topic string, fn any) error {
	if err := b.bus.Unsubscribe(topic, fn); err != nil {
		return fmt.Errorf("failed to unsubscribe from %s: %w", topic, err)
	}

	return nil
}

// WaitAsync blocks until async handlers have drained.
func (b *Bus) WaitAsync() {
	b.bus.WaitAsync()
}

// TopicFor returns the topic an event is published on.
func TopicFor(event syncengine.Event) string {
	switch event.(type) {
	case syncengine.ConnectionStatus:
		return TopicConnectionStatus
	case syncengine.SyncProgress:
		return TopicSyncProgress
	case syncengine.SyncComplete:
		return TopicSyncComplete
	case syncengine.FileListUpdated:
		return TopicFileListUpdated
	case syncengine.TransferProgress:
		return TopicTransferProgress
	case syncengine.TransferComplete:
		return TopicTransferComplete
	default:
		return ""
	}
}

// Compile-time check.
var _ syncengine.EventEmitter = (*Bus)(nil)

