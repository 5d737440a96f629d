// Package panel provisions the hosting panel inside the container: package
// dependencies first, then the vendor's remote installer, then a soft
// listening probe.
package panel

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"lxdpanel/internal/config"
	"lxdpanel/pkg/lxd"
)

// Provisioner runs the checked package operations inside the container.
type Provisioner struct {
	client    lxd.Client
	container string
	packages  []string
}

func NewProvisioner(client lxd.Client, cfg config.ContainerConfig, panelCfg config.PanelConfig) *Provisioner {
	return &Provisioner{
		client:    client,
		container: cfg.Name,
		packages:  panelCfg.Packages,
	}
}

// UpdateIndex refreshes the package index inside the container.
func (p *Provisioner) UpdateIndex(ctx context.Context) error {
	result, err := p.client.Exec(ctx, p.container, "apt-get", "update")
	if err != nil {
		return fmt.Errorf("failed to run apt-get update in %s: %w", p.container, err)
	}
	if !result.Success() {
		return fmt.Errorf("in-container apt-get update failed: %s", strings.TrimSpace(result.Stderr))
	}
	return nil
}

// Upgrade upgrades packages inside the container.
func (p *Provisioner) Upgrade(ctx context.Context) error {
	result, err := p.client.Exec(ctx, p.container, "apt-get", "-y", "upgrade")
	if err != nil {
		return fmt.Errorf("failed to run apt-get upgrade in %s: %w", p.container, err)
	}
	if !result.Success() {
		return fmt.Errorf("in-container apt-get upgrade failed: %s", strings.TrimSpace(result.Stderr))
	}
	return nil
}

// InstallDependencies installs the fixed panel prerequisites.
func (p *Provisioner) InstallDependencies(ctx context.Context) (string, error) {
	args := append([]string{"apt-get", "-y", "install"}, p.packages...)
	result, err := p.client.Exec(ctx, p.container, args...)
	if err != nil {
		return "", fmt.Errorf("failed to install dependencies in %s: %w", p.container, err)
	}
	if !result.Success() {
		return "", fmt.Errorf("dependency install failed: %s", strings.TrimSpace(result.Stderr))
	}

	log.Info().
		Str("container", p.container).
		Strs("packages", p.packages).
		Msg("Panel dependencies installed")
	return fmt.Sprintf("installed %s", strings.Join(p.packages, ", ")), nil
}
