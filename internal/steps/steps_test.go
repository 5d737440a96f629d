package steps

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lxdpanel/internal/events"
)

type captureHandler struct {
	types []events.EventType
}

func (h *captureHandler) Handle(event events.Event) error {
	h.types = append(h.types, event.Type)
	return nil
}

func (h *captureHandler) CanHandle(events.EventType) bool { return true }

func ok(name string) Step {
	return Step{Name: name, Run: func(context.Context) (string, error) { return "done", nil }}
}

func TestRunner_AllStepsSucceed(t *testing.T) {
	runner := NewRunner(nil)

	outcomes, err := runner.Run(context.Background(), []Step{ok("one"), ok("two")})
	require.NoError(t, err)

	require.Len(t, outcomes, 2)
	assert.Equal(t, StatusOK, outcomes[0].Status)
	assert.Equal(t, StatusOK, outcomes[1].Status)
}

func TestRunner_FatalStepStopsSequence(t *testing.T) {
	executed := false
	sequence := []Step{
		ok("first"),
		{Name: "broken", Run: func(context.Context) (string, error) {
			return "", errors.New("boom")
		}},
		{Name: "never", Run: func(context.Context) (string, error) {
			executed = true
			return "", nil
		}},
	}

	runner := NewRunner(nil)
	outcomes, err := runner.Run(context.Background(), sequence)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "step broken failed")
	assert.False(t, executed, "steps after a fatal failure must not run")

	require.Len(t, outcomes, 2)
	assert.Equal(t, StatusFailed, outcomes[1].Status)
}

func TestRunner_BestEffortStepWarnsAndContinues(t *testing.T) {
	sequence := []Step{
		{Name: "flaky", BestEffort: true, Run: func(context.Context) (string, error) {
			return "", errors.New("no address yet")
		}},
		ok("after"),
	}

	runner := NewRunner(nil)
	outcomes, err := runner.Run(context.Background(), sequence)

	require.NoError(t, err)
	require.Len(t, outcomes, 2)
	assert.Equal(t, StatusWarned, outcomes[0].Status)
	assert.Equal(t, StatusOK, outcomes[1].Status)
}

func TestRunner_SkippedStep(t *testing.T) {
	sequence := []Step{
		{Name: "idempotent", Run: func(context.Context) (string, error) {
			return "", Skip("storage pool already present")
		}},
	}

	runner := NewRunner(nil)
	outcomes, err := runner.Run(context.Background(), sequence)

	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, StatusSkipped, outcomes[0].Status)
	assert.Contains(t, outcomes[0].Detail, "storage pool already present")
}

func TestRunner_PublishesLifecycleEvents(t *testing.T) {
	bus := events.NewSyncEventBus()
	handler := &captureHandler{}
	require.NoError(t, bus.Subscribe(handler))

	runner := NewRunner(bus)
	_, err := runner.Run(context.Background(), []Step{ok("one")})
	require.NoError(t, err)

	assert.Equal(t, []events.EventType{
		events.StepStarted,
		events.StepCompleted,
		events.RunCompleted,
	}, handler.types)
}

func TestRunner_FailurePublishesRunFailed(t *testing.T) {
	bus := events.NewSyncEventBus()
	handler := &captureHandler{}
	require.NoError(t, bus.Subscribe(handler))

	runner := NewRunner(bus)
	_, err := runner.Run(context.Background(), []Step{
		{Name: "broken", Run: func(context.Context) (string, error) {
			return "", errors.New("boom")
		}},
	})
	require.Error(t, err)

	assert.Equal(t, []events.EventType{
		events.StepStarted,
		events.StepFailed,
		events.RunFailed,
	}, handler.types)
}

func TestRunner_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := NewRunner(nil)
	_, err := runner.Run(ctx, []Step{ok("one")})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
