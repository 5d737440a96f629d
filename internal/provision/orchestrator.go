// Package provision assembles the full provisioning sequence and runs it.
package provision

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"lxdpanel/internal/config"
	"lxdpanel/internal/events"
	"lxdpanel/internal/host"
	"lxdpanel/internal/lifecycle"
	"lxdpanel/internal/panel"
	"lxdpanel/internal/ports"
	"lxdpanel/internal/runtimeinit"
	"lxdpanel/internal/steps"
	"lxdpanel/pkg/execx"
	"lxdpanel/pkg/lxd"
)

// Result is what a completed (or aborted) run produced.
type Result struct {
	Outcomes []steps.Outcome
	Address  string
	Panel    panel.InstallOutcome
	Rules    []ports.Rule
}

// Orchestrator wires the components and owns the cross-step state: the
// resolved address and the panel outcome.
type Orchestrator struct {
	cfg    *config.Config
	bus    events.EventBus
	client lxd.Client

	guard       *host.Guard
	preparer    *host.Preparer
	initializer *runtimeinit.Initializer
	lifecycle   *lifecycle.Manager
	provisioner *panel.Provisioner
	installer   panel.Installer
	exposer     *ports.Exposer
}

// New builds an orchestrator over a live command runner.
func New(cfg *config.Config, runner execx.Runner, bus events.EventBus) *Orchestrator {
	client := lxd.NewCLIClient(runner)
	return &Orchestrator{
		cfg:         cfg,
		bus:         bus,
		client:      client,
		guard:       host.NewGuard(),
		preparer:    host.NewPreparer(runner),
		initializer: runtimeinit.NewInitializer(client, cfg.Storage),
		lifecycle:   lifecycle.NewManager(client, cfg.Container, cfg.Address),
		provisioner: panel.NewProvisioner(client, cfg.Container, cfg.Panel),
		installer:   panel.NewRemoteInstaller(client, cfg.Container, cfg.Panel),
		exposer:     ports.NewExposer(client, cfg.Container),
	}
}

// CheckPrivileges runs the privilege guard. It is exposed separately so
// the command layer can refuse before printing anything else.
func (o *Orchestrator) CheckPrivileges() error {
	return o.guard.Check()
}

// Run executes the whole sequence. Checked steps abort the run; the
// address, installer and probe steps only warn.
func (o *Orchestrator) Run(ctx context.Context) (*Result, error) {
	result := &Result{
		Panel: panel.OutcomeUnknown,
		Rules: ports.RulesFromConfig(o.cfg.Forwards),
	}

	sequence := []steps.Step{
		{Name: "host-package-index", Run: func(ctx context.Context) (string, error) {
			return "", o.preparer.UpdateIndex(ctx)
		}},
		{Name: "host-package-upgrade", Run: func(ctx context.Context) (string, error) {
			return "", o.preparer.Upgrade(ctx)
		}},
		{Name: "snapd", Run: o.preparer.EnsureSnapd},
		{Name: "lxd-install", Run: o.preparer.EnsureLXD},
		{Name: "lxd-group", Run: o.preparer.EnsureGroupMembership},
		{Name: "lxd-init", Run: o.initializer.Ensure},
		{Name: "container", Run: func(ctx context.Context) (string, error) {
			action, err := o.lifecycle.EnsureRunning(ctx)
			if err != nil {
				return "", err
			}
			if action == lifecycle.ActionAlreadyRunning {
				return "", steps.Skip(fmt.Sprintf("container %s already running", o.cfg.Container.Name))
			}
			return string(action), nil
		}},
		{Name: "resolve-address", BestEffort: true, Run: func(ctx context.Context) (string, error) {
			addr, err := o.lifecycle.ResolveAddress(ctx)
			if err != nil {
				return "", err
			}
			result.Address = addr
			return addr, nil
		}},
		{Name: "container-package-index", Run: func(ctx context.Context) (string, error) {
			return "", o.provisioner.UpdateIndex(ctx)
		}},
		{Name: "container-package-upgrade", Run: func(ctx context.Context) (string, error) {
			return "", o.provisioner.Upgrade(ctx)
		}},
		{Name: "panel-dependencies", Run: o.provisioner.InstallDependencies},
		{Name: "panel-installer", BestEffort: true, Run: func(ctx context.Context) (string, error) {
			outcome, err := o.installer.Install(ctx)
			result.Panel = outcome
			if err != nil {
				return "", err
			}
			return string(outcome), nil
		}},
		{Name: "port-forwards", Run: func(ctx context.Context) (string, error) {
			created, err := o.exposer.Ensure(ctx, result.Rules)
			if err != nil {
				return "", err
			}
			if created == 0 {
				return "", steps.Skip("all forward rules already present")
			}
			return fmt.Sprintf("%d rule(s) created", created), nil
		}},
	}

	runner := steps.NewRunner(o.bus)
	outcomes, err := runner.Run(ctx, sequence)
	result.Outcomes = outcomes
	if err != nil {
		return result, err
	}

	log.Info().
		Str("container", o.cfg.Container.Name).
		Str("address", result.Address).
		Str("panel", string(result.Panel)).
		Msg("Provisioning sequence finished")
	return result, nil
}

// Status inspects current state without mutating anything.
type Status struct {
	Container string             `json:"container" yaml:"container"`
	State     string             `json:"state" yaml:"state"`
	Address   string             `json:"address,omitempty" yaml:"address,omitempty"`
	Rules     []ports.RuleStatus `json:"rules" yaml:"rules"`
}

func (o *Orchestrator) Status(ctx context.Context) (*Status, error) {
	state, err := o.client.ContainerState(ctx, o.cfg.Container.Name)
	if err != nil {
		return nil, err
	}

	status := &Status{
		Container: o.cfg.Container.Name,
		State:     string(state),
	}

	if state == lxd.StateRunning {
		if addr, err := o.client.ContainerAddress(ctx, o.cfg.Container.Name); err == nil {
			status.Address = addr
		}
	}

	if state != lxd.StateAbsent {
		rules, err := o.exposer.Inspect(ctx, ports.RulesFromConfig(o.cfg.Forwards))
		if err != nil {
			return nil, err
		}
		status.Rules = rules
	}

	return status, nil
}
