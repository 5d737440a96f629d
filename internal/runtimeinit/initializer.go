// Package runtimeinit performs LXD's one-time initialization, gated on the
// observable existence of the storage pool and default network rather than
// any stored flag.
package runtimeinit

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"lxdpanel/internal/config"
	"lxdpanel/internal/steps"
	"lxdpanel/pkg/lxd"
)

type Initializer struct {
	client lxd.Client
	cfg    config.StorageConfig
}

func NewInitializer(client lxd.Client, cfg config.StorageConfig) *Initializer {
	return &Initializer{client: client, cfg: cfg}
}

// Ensure initializes LXD when either the storage pool or the default
// network is missing, and skips otherwise.
func (i *Initializer) Ensure(ctx context.Context) (string, error) {
	poolExists, err := i.client.StoragePoolExists(ctx, i.cfg.Pool)
	if err != nil {
		return "", fmt.Errorf("failed to check storage pool %s: %w", i.cfg.Pool, err)
	}

	networkExists, err := i.client.NetworkExists(ctx, i.cfg.Network)
	if err != nil {
		return "", fmt.Errorf("failed to check network %s: %w", i.cfg.Network, err)
	}

	if poolExists && networkExists {
		return "", steps.Skip(fmt.Sprintf("storage pool %s and network %s already exist", i.cfg.Pool, i.cfg.Network))
	}

	log.Info().
		Bool("pool_exists", poolExists).
		Bool("network_exists", networkExists).
		Str("backend", i.cfg.Backend).
		Msg("Running one-time LXD initialization")

	if err := i.client.InitAuto(ctx, i.cfg.Backend, i.cfg.Pool); err != nil {
		return "", err
	}

	return fmt.Sprintf("initialized with %s storage pool %s", i.cfg.Backend, i.cfg.Pool), nil
}
