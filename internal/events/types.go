package events

import (
	"time"
)

type EventType string

const (
	StepStarted   EventType = "step.started"
	StepCompleted EventType = "step.completed"
	StepSkipped   EventType = "step.skipped"
	StepWarned    EventType = "step.warned"
	StepFailed    EventType = "step.failed"
	WaitStarted   EventType = "wait.started"
	WaitFinished  EventType = "wait.finished"
	RunCompleted  EventType = "run.completed"
	RunFailed     EventType = "run.failed"
)

type Event struct {
	ID        string        `json:"id"`
	Type      EventType     `json:"type"`
	Timestamp time.Time     `json:"timestamp"`
	Step      string        `json:"step,omitempty"`
	Detail    string        `json:"detail,omitempty"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration,omitempty"`
}

type EventHandler interface {
	Handle(event Event) error
	CanHandle(eventType EventType) bool
}

type EventBus interface {
	Publish(event Event) error
	Subscribe(handler EventHandler) error
	Unsubscribe(handler EventHandler) error
}
