package host

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"

	"lxdpanel/internal/steps"
	"lxdpanel/pkg/execx"
)

// Preparer brings the host to the point where LXD is installed and usable:
// fresh package index, upgraded packages, snapd, the LXD snap and group
// membership for the invoking user.
type Preparer struct {
	runner execx.Runner

	// sudoUser is resolved once so tests can inject it.
	sudoUser string
}

func NewPreparer(runner execx.Runner) *Preparer {
	return &Preparer{
		runner:   runner,
		sudoUser: os.Getenv("SUDO_USER"),
	}
}

// UpdateIndex refreshes the host package index.
func (p *Preparer) UpdateIndex(ctx context.Context) error {
	result, err := p.runner.Run(ctx, "apt-get", "update")
	if err != nil {
		return fmt.Errorf("failed to run apt-get update: %w", err)
	}
	if !result.Success() {
		return fmt.Errorf("apt-get update failed: %s", strings.TrimSpace(result.Stderr))
	}
	return nil
}

// Upgrade upgrades installed host packages.
func (p *Preparer) Upgrade(ctx context.Context) error {
	result, err := p.runner.Run(ctx, "apt-get", "-y", "upgrade")
	if err != nil {
		return fmt.Errorf("failed to run apt-get upgrade: %w", err)
	}
	if !result.Success() {
		return fmt.Errorf("apt-get upgrade failed: %s", strings.TrimSpace(result.Stderr))
	}
	return nil
}

// EnsureSnapd installs snapd unless it already answers.
func (p *Preparer) EnsureSnapd(ctx context.Context) (string, error) {
	probe, err := p.runner.Run(ctx, "snap", "version")
	if err == nil && probe.Success() {
		return "", steps.Skip("snapd already installed")
	}

	log.Info().Msg("snapd not found, installing")
	result, err := p.runner.Run(ctx, "apt-get", "-y", "install", "snapd")
	if err != nil {
		return "", fmt.Errorf("failed to install snapd: %w", err)
	}
	if !result.Success() {
		return "", fmt.Errorf("apt-get install snapd failed: %s", strings.TrimSpace(result.Stderr))
	}
	return "snapd installed", nil
}

// EnsureLXD installs the LXD snap unless it is already listed.
func (p *Preparer) EnsureLXD(ctx context.Context) (string, error) {
	probe, err := p.runner.Run(ctx, "snap", "list", "lxd")
	if err == nil && probe.Success() {
		return "", steps.Skip("lxd snap already installed")
	}

	log.Info().Msg("LXD not found, installing snap")
	result, err := p.runner.Run(ctx, "snap", "install", "lxd")
	if err != nil {
		return "", fmt.Errorf("failed to install lxd snap: %w", err)
	}
	if !result.Success() {
		return "", fmt.Errorf("snap install lxd failed: %s", strings.TrimSpace(result.Stderr))
	}
	return "lxd snap installed", nil
}

// EnsureGroupMembership enrolls the invoking login user in the lxd group,
// at most once per user. Without SUDO_USER there is no login user to
// enroll and the step is skipped.
func (p *Preparer) EnsureGroupMembership(ctx context.Context) (string, error) {
	if p.sudoUser == "" {
		return "", steps.Skip("no login user detected (SUDO_USER unset)")
	}

	groups, err := p.runner.Run(ctx, "id", "-nG", p.sudoUser)
	if err != nil {
		return "", fmt.Errorf("failed to query groups for %s: %w", p.sudoUser, err)
	}
	if groups.Success() {
		for _, group := range strings.Fields(groups.Stdout) {
			if group == "lxd" {
				return "", steps.Skip(fmt.Sprintf("user %s already in lxd group", p.sudoUser))
			}
		}
	}

	result, err := p.runner.Run(ctx, "usermod", "-aG", "lxd", p.sudoUser)
	if err != nil {
		return "", fmt.Errorf("failed to add %s to lxd group: %w", p.sudoUser, err)
	}
	if !result.Success() {
		return "", fmt.Errorf("usermod failed for %s: %s", p.sudoUser, strings.TrimSpace(result.Stderr))
	}

	log.Info().Str("user", p.sudoUser).Msg("User added to lxd group")
	return fmt.Sprintf("user %s added to lxd group (re-login required)", p.sudoUser), nil
}
