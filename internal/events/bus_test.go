package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHandler struct {
	only   EventType
	events []Event
}

func (h *recordingHandler) Handle(event Event) error {
	h.events = append(h.events, event)
	return nil
}

func (h *recordingHandler) CanHandle(eventType EventType) bool {
	return h.only == "" || h.only == eventType
}

func TestSyncEventBus_PublishFillsIDAndTimestamp(t *testing.T) {
	bus := NewSyncEventBus()
	handler := &recordingHandler{}
	require.NoError(t, bus.Subscribe(handler))

	require.NoError(t, bus.Publish(Event{Type: StepStarted, Step: "host-prepare"}))

	require.Len(t, handler.events, 1)
	assert.NotEmpty(t, handler.events[0].ID)
	assert.False(t, handler.events[0].Timestamp.IsZero())
	assert.Equal(t, "host-prepare", handler.events[0].Step)
}

func TestSyncEventBus_DispatchIsOrdered(t *testing.T) {
	bus := NewSyncEventBus()
	handler := &recordingHandler{}
	require.NoError(t, bus.Subscribe(handler))

	require.NoError(t, bus.Publish(Event{Type: StepStarted, Step: "a"}))
	require.NoError(t, bus.Publish(Event{Type: StepCompleted, Step: "a"}))
	require.NoError(t, bus.Publish(Event{Type: StepStarted, Step: "b"}))

	require.Len(t, handler.events, 3)
	assert.Equal(t, StepStarted, handler.events[0].Type)
	assert.Equal(t, StepCompleted, handler.events[1].Type)
	assert.Equal(t, "b", handler.events[2].Step)
}

func TestSyncEventBus_FiltersByCanHandle(t *testing.T) {
	bus := NewSyncEventBus()
	handler := &recordingHandler{only: StepFailed}
	require.NoError(t, bus.Subscribe(handler))

	require.NoError(t, bus.Publish(Event{Type: StepStarted, Step: "a"}))
	require.NoError(t, bus.Publish(Event{Type: StepFailed, Step: "a"}))

	require.Len(t, handler.events, 1)
	assert.Equal(t, StepFailed, handler.events[0].Type)
}

func TestSyncEventBus_Unsubscribe(t *testing.T) {
	bus := NewSyncEventBus()
	handler := &recordingHandler{}
	require.NoError(t, bus.Subscribe(handler))
	require.NoError(t, bus.Unsubscribe(handler))

	require.NoError(t, bus.Publish(Event{Type: StepStarted}))
	assert.Empty(t, handler.events)

	assert.Error(t, bus.Unsubscribe(handler))
}
