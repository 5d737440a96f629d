package events

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// SyncEventBus dispatches events to subscribers on the publisher's
// goroutine. Provisioning is strictly sequential and the reporter must
// print step lines in order, so there is no buffering or fanout here.
type SyncEventBus struct {
	handlers []EventHandler
	mu       sync.RWMutex
}

func NewSyncEventBus() *SyncEventBus {
	return &SyncEventBus{
		handlers: make([]EventHandler, 0),
	}
}

var _ EventBus = (*SyncEventBus)(nil)

func (bus *SyncEventBus) Publish(event Event) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	log.Debug().
		Str("event_id", event.ID).
		Str("event_type", string(event.Type)).
		Str("step", event.Step).
		Msg("Event published")

	bus.mu.RLock()
	handlers := make([]EventHandler, len(bus.handlers))
	copy(handlers, bus.handlers)
	bus.mu.RUnlock()

	for _, handler := range handlers {
		if !handler.CanHandle(event.Type) {
			continue
		}
		if err := handler.Handle(event); err != nil {
			log.Error().
				Err(err).
				Str("event_id", event.ID).
				Str("event_type", string(event.Type)).
				Str("handler_type", fmt.Sprintf("%T", handler)).
				Msg("Error handling event")
		}
	}

	return nil
}

func (bus *SyncEventBus) Subscribe(handler EventHandler) error {
	bus.mu.Lock()
	defer bus.mu.Unlock()

	bus.handlers = append(bus.handlers, handler)
	log.Debug().
		Str("handler_type", fmt.Sprintf("%T", handler)).
		Int("total_handlers", len(bus.handlers)).
		Msg("Event handler subscribed")

	return nil
}

func (bus *SyncEventBus) Unsubscribe(handler EventHandler) error {
	bus.mu.Lock()
	defer bus.mu.Unlock()

	for i, h := range bus.handlers {
		if h == handler {
			bus.handlers = append(bus.handlers[:i], bus.handlers[i+1:]...)
			return nil
		}
	}

	return fmt.Errorf("handler not found")
}
