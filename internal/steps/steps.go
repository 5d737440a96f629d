// Package steps runs a provisioning sequence as explicit, reportable
// units. A step returns a result instead of killing the process, which
// keeps the two-tier error policy (fatal checked steps, warn-only
// best-effort steps) in one place.
package steps

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"lxdpanel/internal/events"
)

// ErrAlreadySatisfied marks a step whose idempotency guard found nothing to
// do. The runner records it as skipped and moves on.
var ErrAlreadySatisfied = errors.New("already satisfied")

// Skip wraps ErrAlreadySatisfied with a human-readable reason.
func Skip(reason string) error {
	return fmt.Errorf("%s: %w", reason, ErrAlreadySatisfied)
}

type Status string

const (
	StatusOK      Status = "ok"
	StatusSkipped Status = "skipped"
	StatusWarned  Status = "warned"
	StatusFailed  Status = "failed"
)

// Step is one unit of the provisioning sequence. Run returns a short
// detail line for the report and an error; BestEffort steps downgrade
// errors to warnings instead of aborting the run.
type Step struct {
	Name       string
	BestEffort bool
	Run        func(ctx context.Context) (string, error)
}

// Outcome is the recorded result of one executed step.
type Outcome struct {
	Step     string
	Status   Status
	Detail   string
	Err      error
	Duration time.Duration
}

// Runner executes steps sequentially, publishing lifecycle events for each.
type Runner struct {
	bus events.EventBus
}

func NewRunner(bus events.EventBus) *Runner {
	return &Runner{bus: bus}
}

// Run executes the sequence in order. It stops at the first fatal failure
// and returns the outcomes gathered so far together with the error; prior
// side effects are deliberately left in place for inspection and re-runs.
func (r *Runner) Run(ctx context.Context, sequence []Step) ([]Outcome, error) {
	outcomes := make([]Outcome, 0, len(sequence))

	for _, step := range sequence {
		if err := ctx.Err(); err != nil {
			return outcomes, fmt.Errorf("provisioning cancelled before step %s: %w", step.Name, err)
		}

		r.publish(events.Event{Type: events.StepStarted, Step: step.Name})

		start := time.Now()
		detail, err := step.Run(ctx)
		outcome := Outcome{
			Step:     step.Name,
			Detail:   detail,
			Duration: time.Since(start),
		}

		switch {
		case err == nil:
			outcome.Status = StatusOK
			r.publish(events.Event{
				Type:     events.StepCompleted,
				Step:     step.Name,
				Detail:   detail,
				Duration: outcome.Duration,
			})

		case errors.Is(err, ErrAlreadySatisfied):
			outcome.Status = StatusSkipped
			if detail == "" {
				outcome.Detail = err.Error()
			}
			r.publish(events.Event{
				Type:   events.StepSkipped,
				Step:   step.Name,
				Detail: outcome.Detail,
			})

		case step.BestEffort:
			outcome.Status = StatusWarned
			outcome.Err = err
			log.Warn().Err(err).Str("step", step.Name).Msg("Best-effort step failed, continuing")
			r.publish(events.Event{
				Type:   events.StepWarned,
				Step:   step.Name,
				Detail: detail,
				Error:  err.Error(),
			})

		default:
			outcome.Status = StatusFailed
			outcome.Err = err
			outcomes = append(outcomes, outcome)
			log.Error().Err(err).Str("step", step.Name).Msg("Step failed")
			r.publish(events.Event{
				Type:  events.StepFailed,
				Step:  step.Name,
				Error: err.Error(),
			})
			r.publish(events.Event{Type: events.RunFailed, Step: step.Name})
			return outcomes, fmt.Errorf("step %s failed: %w", step.Name, err)
		}

		outcomes = append(outcomes, outcome)
	}

	r.publish(events.Event{Type: events.RunCompleted})
	return outcomes, nil
}

func (r *Runner) publish(event events.Event) {
	if r.bus == nil {
		return
	}
	if err := r.bus.Publish(event); err != nil {
		log.Warn().Err(err).Str("event_type", string(event.Type)).Msg("Failed to publish event")
	}
}
