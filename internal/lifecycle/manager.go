// Package lifecycle drives the container through the
// {absent, stopped, running} state machine and resolves its network
// address.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"

	"lxdpanel/internal/config"
	"lxdpanel/pkg/lxd"
)

// Action is what EnsureRunning had to do to reach the running state.
type Action string

const (
	ActionLaunched       Action = "launched"
	ActionStarted        Action = "started"
	ActionAlreadyRunning Action = "already-running"
)

// ErrAddressUnavailable is returned when every resolution attempt yields
// nothing. Callers treat it as a warning, never a failure.
var ErrAddressUnavailable = errors.New("container address unavailable")

type Manager struct {
	client  lxd.Client
	cfg     config.ContainerConfig
	addrCfg config.AddressConfig

	// wait is injectable so tests don't sleep.
	wait func(ctx context.Context, d time.Duration) error
}

func NewManager(client lxd.Client, cfg config.ContainerConfig, addrCfg config.AddressConfig) *Manager {
	return &Manager{
		client:  client,
		cfg:     cfg,
		addrCfg: addrCfg,
		wait:    sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// EnsureRunning moves the container to the running state: launch when
// absent, start when stopped, no-op when already running. After a launch
// or start it polls the observed state until it reports running or the
// configured timeout expires.
func (m *Manager) EnsureRunning(ctx context.Context) (Action, error) {
	state, err := m.client.ContainerState(ctx, m.cfg.Name)
	if err != nil {
		return "", fmt.Errorf("failed to determine state of %s: %w", m.cfg.Name, err)
	}

	switch state {
	case lxd.StateRunning:
		log.Info().Str("container", m.cfg.Name).Msg("Container already running")
		return ActionAlreadyRunning, nil

	case lxd.StateAbsent:
		log.Info().Str("container", m.cfg.Name).Str("image", m.cfg.Image).Msg("Launching container")
		if err := m.client.Launch(ctx, m.cfg.Name, m.cfg.Image); err != nil {
			return "", err
		}
		if err := m.waitRunning(ctx, m.cfg.BootTimeout); err != nil {
			return "", fmt.Errorf("container %s did not reach running state: %w", m.cfg.Name, err)
		}
		return ActionLaunched, nil

	default:
		// Stopped, frozen and anything in between gets a start.
		log.Info().Str("container", m.cfg.Name).Str("state", string(state)).Msg("Starting container")
		if err := m.client.Start(ctx, m.cfg.Name); err != nil {
			return "", err
		}
		if err := m.waitRunning(ctx, m.cfg.StartTimeout); err != nil {
			return "", fmt.Errorf("container %s did not reach running state: %w", m.cfg.Name, err)
		}
		return ActionStarted, nil
	}
}

// waitRunning polls the container state with exponential backoff until it
// reports running or the deadline passes.
func (m *Manager) waitRunning(ctx context.Context, timeout time.Duration) error {
	operation := func() error {
		state, err := m.client.ContainerState(ctx, m.cfg.Name)
		if err != nil {
			return backoff.Permanent(err)
		}
		if state != lxd.StateRunning {
			return fmt.Errorf("container %s is %s", m.cfg.Name, state)
		}
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 500 * time.Millisecond
	policy.MaxInterval = 5 * time.Second
	policy.MaxElapsedTime = timeout

	return backoff.Retry(operation, backoff.WithContext(policy, ctx))
}

// ResolveAddress polls for the container's IPv4 address, primary lookup
// first and info-parse fallback second, up to the configured number of
// attempts. Exhaustion returns ErrAddressUnavailable; it never hangs.
func (m *Manager) ResolveAddress(ctx context.Context) (string, error) {
	for attempt := 1; attempt <= m.addrCfg.Attempts; attempt++ {
		addr, err := m.client.ContainerAddress(ctx, m.cfg.Name)
		if err != nil {
			log.Debug().Err(err).Int("attempt", attempt).Msg("Primary address lookup failed")
		} else if addr != "" {
			log.Info().Str("container", m.cfg.Name).Str("address", addr).Msg("Container address resolved")
			return addr, nil
		}

		addr, err = m.client.ContainerAddressFromInfo(ctx, m.cfg.Name)
		if err != nil {
			log.Debug().Err(err).Int("attempt", attempt).Msg("Fallback address lookup failed")
		} else if addr != "" {
			log.Info().Str("container", m.cfg.Name).Str("address", addr).Msg("Container address resolved via info")
			return addr, nil
		}

		if attempt < m.addrCfg.Attempts {
			log.Debug().
				Int("attempt", attempt).
				Int("max_attempts", m.addrCfg.Attempts).
				Dur("interval", m.addrCfg.Interval).
				Msg("No address yet, retrying")
			if err := m.wait(ctx, m.addrCfg.Interval); err != nil {
				return "", err
			}
		}
	}

	return "", fmt.Errorf("no address after %d attempts: %w", m.addrCfg.Attempts, ErrAddressUnavailable)
}
