// Package report renders provisioning progress and the final operator
// summary. It is pure output; all state it shows arrives through events or
// explicit arguments.
package report

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/list"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-isatty"

	"lxdpanel/internal/events"
	"lxdpanel/internal/panel"
	"lxdpanel/internal/ports"
)

var (
	styleStep    = lipgloss.NewStyle().Bold(true)
	styleOK      = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	styleSkip    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	styleWarn    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	styleFail    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	styleHeading = lipgloss.NewStyle().Bold(true).Underline(true)
)

// Reporter subscribes to the event bus and prints one line per step, with
// a spinner while a step is in flight on interactive terminals.
type Reporter struct {
	out     io.Writer
	tty     bool
	spinner *spinner.Spinner
}

func NewReporter() *Reporter {
	return &Reporter{
		out: os.Stdout,
		tty: isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()),
	}
}

var _ events.EventHandler = (*Reporter)(nil)

func (r *Reporter) CanHandle(eventType events.EventType) bool {
	switch eventType {
	case events.StepStarted, events.StepCompleted, events.StepSkipped,
		events.StepWarned, events.StepFailed:
		return true
	}
	return false
}

func (r *Reporter) Handle(event events.Event) error {
	switch event.Type {
	case events.StepStarted:
		if r.tty {
			r.spinner = spinner.New(spinner.CharSets[14], 100*time.Millisecond,
				spinner.WithWriter(os.Stderr))
			r.spinner.Suffix = " " + event.Step
			r.spinner.Start()
		}

	case events.StepCompleted:
		r.stopSpinner()
		line := fmt.Sprintf("%s %s", styleOK.Render("✓"), styleStep.Render(event.Step))
		if event.Detail != "" {
			line += styleSkip.Render(" — " + event.Detail)
		}
		fmt.Fprintln(r.out, line)

	case events.StepSkipped:
		r.stopSpinner()
		fmt.Fprintf(r.out, "%s %s %s\n",
			styleSkip.Render("•"),
			styleStep.Render(event.Step),
			styleSkip.Render("("+event.Detail+")"))

	case events.StepWarned:
		r.stopSpinner()
		fmt.Fprintf(r.out, "%s %s %s\n",
			styleWarn.Render("!"),
			styleStep.Render(event.Step),
			styleWarn.Render(event.Error))

	case events.StepFailed:
		r.stopSpinner()
		fmt.Fprintf(r.out, "%s %s %s\n",
			styleFail.Render("✗"),
			styleStep.Render(event.Step),
			styleFail.Render(event.Error))
	}

	return nil
}

func (r *Reporter) stopSpinner() {
	if r.spinner != nil {
		r.spinner.Stop()
		r.spinner = nil
	}
}

// Summary prints the final report: where the panel lives, the forwarding
// rules, and the manual follow-up steps this system deliberately does not
// automate.
func (r *Reporter) Summary(address string, rules []ports.Rule, outcome panel.InstallOutcome, panelPort int) {
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, styleHeading.Render("Provisioning complete"))
	fmt.Fprintln(r.out)

	if address != "" {
		fmt.Fprintf(r.out, "Container address: %s\n", address)
		fmt.Fprintf(r.out, "Panel URL:         https://%s:%d\n", address, panelPort)
	} else {
		fmt.Fprintln(r.out, styleWarn.Render(
			"Container address could not be resolved; check `lxc list` once networking settles."))
	}

	switch outcome {
	case panel.OutcomeListening:
		fmt.Fprintln(r.out, styleOK.Render(fmt.Sprintf("Panel is listening on port %d.", panelPort)))
	case panel.OutcomeNotListening:
		fmt.Fprintln(r.out, styleWarn.Render(fmt.Sprintf(
			"Panel is not listening on port %d yet; the installer may still be working.", panelPort)))
	default:
		fmt.Fprintln(r.out, styleWarn.Render("Panel state is unknown; verify the installation manually."))
	}

	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, styleHeading.Render("Port forwards"))
	tw := table.NewWriter()
	tw.SetOutputMirror(r.out)
	tw.AppendHeader(table.Row{"Device", "Listen", "Connect"})
	for _, rule := range rules {
		tw.AppendRow(table.Row{rule.Name, rule.Listen, rule.Connect})
	}
	tw.SetStyle(table.StyleLight)
	tw.Render()

	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, styleHeading.Render("Manual next steps"))
	lw := list.NewWriter()
	lw.SetOutputMirror(r.out)
	lw.AppendItem("Log into the panel and change the default administrator password")
	lw.AppendItem("Issue SSL certificates for the hostnames you will serve")
	lw.AppendItem("Configure deployment keys for your sites")
	lw.AppendItem("Harden the host: firewall rules, SSH key-only login, unattended upgrades")
	lw.SetStyle(list.StyleBulletCircle)
	lw.Render()
	fmt.Fprintln(r.out)
}
