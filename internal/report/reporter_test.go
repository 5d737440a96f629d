package report

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lxdpanel/internal/events"
	"lxdpanel/internal/panel"
	"lxdpanel/internal/ports"
)

func newTestReporter() (*Reporter, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return &Reporter{out: buf, tty: false}, buf
}

func TestReporter_StepLines(t *testing.T) {
	reporter, buf := newTestReporter()

	require.NoError(t, reporter.Handle(events.Event{Type: events.StepStarted, Step: "host-prepare"}))
	require.NoError(t, reporter.Handle(events.Event{Type: events.StepCompleted, Step: "host-prepare", Detail: "done"}))
	require.NoError(t, reporter.Handle(events.Event{Type: events.StepSkipped, Step: "runtime-init", Detail: "already initialized"}))
	require.NoError(t, reporter.Handle(events.Event{Type: events.StepWarned, Step: "resolve-address", Error: "no address"}))
	require.NoError(t, reporter.Handle(events.Event{Type: events.StepFailed, Step: "port-forwards", Error: "boom"}))

	out := buf.String()
	assert.Contains(t, out, "host-prepare")
	assert.Contains(t, out, "already initialized")
	assert.Contains(t, out, "no address")
	assert.Contains(t, out, "boom")
}

func TestReporter_CanHandleFiltersRunEvents(t *testing.T) {
	reporter, _ := newTestReporter()

	assert.True(t, reporter.CanHandle(events.StepStarted))
	assert.True(t, reporter.CanHandle(events.StepFailed))
	assert.False(t, reporter.CanHandle(events.RunCompleted))
}

func TestSummary_WithAddress(t *testing.T) {
	reporter, buf := newTestReporter()

	rules := []ports.Rule{
		{Name: "proxy-http", Listen: "tcp:0.0.0.0:80", Connect: "tcp:127.0.0.1:80"},
	}
	reporter.Summary("10.0.0.5", rules, panel.OutcomeListening, 8443)

	out := buf.String()
	assert.Contains(t, out, "https://10.0.0.5:8443")
	assert.Contains(t, out, "proxy-http")
	assert.Contains(t, out, "Manual next steps")
	assert.Contains(t, out, "administrator password")
}

func TestSummary_WithoutAddress(t *testing.T) {
	reporter, buf := newTestReporter()

	reporter.Summary("", nil, panel.OutcomeUnknown, 8443)

	out := buf.String()
	assert.Contains(t, out, "could not be resolved")
	assert.Contains(t, out, "unknown")
}
