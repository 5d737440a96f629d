// Package lxd drives the LXD command line tools (lxc, lxd). LXD is the
// source of truth for containers, storage pools, networks and proxy
// devices; this package only queries and mutates that state, it keeps none
// of its own.
package lxd

import (
	"context"
	"fmt"
	"net"
	"strings"

	"github.com/rs/zerolog/log"

	"lxdpanel/pkg/execx"
)

// State is the observed lifecycle state of a container.
type State string

const (
	StateAbsent  State = "absent"
	StateStopped State = "stopped"
	StateRunning State = "running"
)

// Client is the contract for LXD operations used by the provisioner.
type Client interface {
	// Container lifecycle
	ContainerState(ctx context.Context, name string) (State, error)
	Launch(ctx context.Context, name, image string) error
	Start(ctx context.Context, name string) error

	// In-container execution
	Exec(ctx context.Context, container string, command ...string) (execx.Result, error)
	ExecInteractive(ctx context.Context, container string, command ...string) (execx.Result, error)

	// Address resolution
	ContainerAddress(ctx context.Context, name string) (string, error)
	ContainerAddressFromInfo(ctx context.Context, name string) (string, error)

	// Runtime initialization
	StoragePoolExists(ctx context.Context, pool string) (bool, error)
	NetworkExists(ctx context.Context, network string) (bool, error)
	InitAuto(ctx context.Context, backend, pool string) error

	// Proxy devices
	DeviceExists(ctx context.Context, container, device string) (bool, error)
	DeviceGet(ctx context.Context, container, device, key string) (string, error)
	AddProxyDevice(ctx context.Context, container, device, listen, connect string) error
}

// CLIClient implements Client by shelling out to lxc/lxd.
type CLIClient struct {
	runner execx.Runner
}

// NewCLIClient creates a client over the given command runner.
func NewCLIClient(runner execx.Runner) *CLIClient {
	return &CLIClient{runner: runner}
}

var _ Client = (*CLIClient)(nil)

// ContainerState inspects a container via `lxc info`. A failed lookup is
// treated as absence; LXD exits non-zero for unknown instances.
func (c *CLIClient) ContainerState(ctx context.Context, name string) (State, error) {
	result, err := c.runner.Run(ctx, "lxc", "info", name)
	if err != nil {
		return StateAbsent, fmt.Errorf("failed to query container %s: %w", name, err)
	}
	if !result.Success() {
		return StateAbsent, nil
	}

	for _, line := range strings.Split(result.Stdout, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 2 && strings.EqualFold(fields[0], "Status:") {
			if strings.EqualFold(fields[1], "running") {
				return StateRunning, nil
			}
			return StateStopped, nil
		}
	}

	// Info succeeded but printed no status line; the container exists.
	return StateStopped, nil
}

func (c *CLIClient) Launch(ctx context.Context, name, image string) error {
	result, err := c.runner.Run(ctx, "lxc", "launch", image, name)
	if err != nil {
		return fmt.Errorf("failed to launch container %s: %w", name, err)
	}
	if !result.Success() {
		return fmt.Errorf("lxc launch %s %s failed: %s", image, name, strings.TrimSpace(result.Stderr))
	}
	log.Info().Str("container", name).Str("image", image).Msg("Container launched")
	return nil
}

func (c *CLIClient) Start(ctx context.Context, name string) error {
	result, err := c.runner.Run(ctx, "lxc", "start", name)
	if err != nil {
		return fmt.Errorf("failed to start container %s: %w", name, err)
	}
	if !result.Success() {
		return fmt.Errorf("lxc start %s failed: %s", name, strings.TrimSpace(result.Stderr))
	}
	log.Info().Str("container", name).Msg("Container started")
	return nil
}

// Exec runs a command inside the container with captured output.
func (c *CLIClient) Exec(ctx context.Context, container string, command ...string) (execx.Result, error) {
	args := append([]string{"exec", container, "--"}, command...)
	return c.runner.Run(ctx, "lxc", args...)
}

// ExecInteractive runs a command inside the container attached to the
// operator's terminal, for installers that prompt.
func (c *CLIClient) ExecInteractive(ctx context.Context, container string, command ...string) (execx.Result, error) {
	args := append([]string{"exec", container, "--"}, command...)
	return c.runner.RunInteractive(ctx, "lxc", args...)
}

// ContainerAddress resolves the container's IPv4 address from the CSV
// listing, the primary lookup method.
func (c *CLIClient) ContainerAddress(ctx context.Context, name string) (string, error) {
	result, err := c.runner.Run(ctx, "lxc", "list", name, "--format", "csv", "-c", "4")
	if err != nil {
		return "", fmt.Errorf("failed to list container %s: %w", name, err)
	}
	if !result.Success() {
		return "", fmt.Errorf("lxc list %s failed: %s", name, strings.TrimSpace(result.Stderr))
	}

	// Output looks like "10.47.203.12 (eth0)"; possibly several lines, one
	// per attached interface.
	for _, line := range strings.Split(result.Stdout, "\n") {
		fields := strings.Fields(strings.Trim(line, "\""))
		if len(fields) == 0 {
			continue
		}
		if ip := net.ParseIP(fields[0]); ip != nil && ip.To4() != nil {
			return fields[0], nil
		}
	}

	return "", nil
}

// ContainerAddressFromInfo parses `lxc info` output for an eth0 inet line,
// the fallback when the CSV listing yields nothing.
func (c *CLIClient) ContainerAddressFromInfo(ctx context.Context, name string) (string, error) {
	result, err := c.runner.Run(ctx, "lxc", "info", name)
	if err != nil {
		return "", fmt.Errorf("failed to query container %s: %w", name, err)
	}
	if !result.Success() {
		return "", fmt.Errorf("lxc info %s failed: %s", name, strings.TrimSpace(result.Stderr))
	}

	for _, line := range strings.Split(result.Stdout, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		if strings.HasPrefix(fields[0], "eth0") && fields[1] == "inet" {
			addr := strings.SplitN(fields[2], "/", 2)[0]
			if ip := net.ParseIP(addr); ip != nil && ip.To4() != nil {
				return addr, nil
			}
		}
	}

	return "", nil
}

func (c *CLIClient) StoragePoolExists(ctx context.Context, pool string) (bool, error) {
	result, err := c.runner.Run(ctx, "lxc", "storage", "show", pool)
	if err != nil {
		return false, fmt.Errorf("failed to query storage pool %s: %w", pool, err)
	}
	return result.Success(), nil
}

func (c *CLIClient) NetworkExists(ctx context.Context, network string) (bool, error) {
	result, err := c.runner.Run(ctx, "lxc", "network", "show", network)
	if err != nil {
		return false, fmt.Errorf("failed to query network %s: %w", network, err)
	}
	return result.Success(), nil
}

// InitAuto performs LXD's one-time automatic initialization with the
// configured storage backend and pool.
func (c *CLIClient) InitAuto(ctx context.Context, backend, pool string) error {
	result, err := c.runner.Run(ctx, "lxd", "init", "--auto",
		"--storage-backend", backend,
		"--storage-pool", pool)
	if err != nil {
		return fmt.Errorf("failed to run lxd init: %w", err)
	}
	if !result.Success() {
		return fmt.Errorf("lxd init failed: %s", strings.TrimSpace(result.Stderr))
	}
	log.Info().Str("backend", backend).Str("pool", pool).Msg("LXD initialized")
	return nil
}

// DeviceExists checks for a named device on the container. Existence is
// keyed on the device name only; parameter drift does not count.
func (c *CLIClient) DeviceExists(ctx context.Context, container, device string) (bool, error) {
	result, err := c.runner.Run(ctx, "lxc", "config", "device", "get", container, device, "type")
	if err != nil {
		return false, fmt.Errorf("failed to query device %s on %s: %w", device, container, err)
	}
	return result.Success() && strings.TrimSpace(result.Stdout) != "", nil
}

// DeviceGet reads a single configuration key of a container device.
func (c *CLIClient) DeviceGet(ctx context.Context, container, device, key string) (string, error) {
	result, err := c.runner.Run(ctx, "lxc", "config", "device", "get", container, device, key)
	if err != nil {
		return "", fmt.Errorf("failed to read device %s key %s: %w", device, key, err)
	}
	if !result.Success() {
		return "", fmt.Errorf("lxc config device get %s %s %s failed: %s",
			container, device, key, strings.TrimSpace(result.Stderr))
	}
	return strings.TrimSpace(result.Stdout), nil
}

// AddProxyDevice creates a host-to-container TCP forwarding rule.
func (c *CLIClient) AddProxyDevice(ctx context.Context, container, device, listen, connect string) error {
	result, err := c.runner.Run(ctx, "lxc", "config", "device", "add", container, device, "proxy",
		"listen="+listen,
		"connect="+connect)
	if err != nil {
		return fmt.Errorf("failed to add device %s to %s: %w", device, container, err)
	}
	if !result.Success() {
		return fmt.Errorf("lxc config device add %s failed: %s", device, strings.TrimSpace(result.Stderr))
	}
	log.Info().
		Str("container", container).
		Str("device", device).
		Str("listen", listen).
		Str("connect", connect).
		Msg("Proxy device added")
	return nil
}
