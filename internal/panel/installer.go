package panel

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"lxdpanel/internal/config"
	"lxdpanel/pkg/lxd"
)

// InstallOutcome is the best signal this system can give about the panel
// installation; the vendor installer owns its own exit semantics.
type InstallOutcome string

const (
	OutcomeUnknown      InstallOutcome = "unknown"
	OutcomeListening    InstallOutcome = "listening"
	OutcomeNotListening InstallOutcome = "not-listening"
)

// Installer is the capability interface around the uncontrolled remote
// installer: running it can only ever produce an InstallOutcome, never a
// hard failure.
type Installer interface {
	Install(ctx context.Context) (InstallOutcome, error)
}

// RemoteInstaller fetches the vendor script over HTTPS and executes it
// inside the container with the operator's terminal attached, since the
// script may prompt.
type RemoteInstaller struct {
	client    lxd.Client
	container string
	cfg       config.PanelConfig

	// wait is injectable so tests don't sit through the settle delay.
	wait func(ctx context.Context, d time.Duration) error
}

func NewRemoteInstaller(client lxd.Client, containerCfg config.ContainerConfig, cfg config.PanelConfig) *RemoteInstaller {
	return &RemoteInstaller{
		client:    client,
		container: containerCfg.Name,
		cfg:       cfg,
		wait:      sleepCtx,
	}
}

var _ Installer = (*RemoteInstaller)(nil)

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

// Install downloads and runs the installer, waits the settle delay, then
// probes the panel port once. The installer's exit status is logged but
// never checked; the returned error only reflects probe infrastructure
// failures and callers treat it as a warning.
func (r *RemoteInstaller) Install(ctx context.Context) (InstallOutcome, error) {
	script := fmt.Sprintf("curl -fsSL %s -o /tmp/panel-install.sh && bash /tmp/panel-install.sh", r.cfg.InstallerURL)

	log.Info().
		Str("container", r.container).
		Str("url", r.cfg.InstallerURL).
		Msg("Handing off to the panel installer; it may prompt for input")

	result, err := r.client.ExecInteractive(ctx, r.container, "bash", "-c", script)
	if err != nil {
		log.Warn().Err(err).Msg("Could not run the panel installer")
		return OutcomeUnknown, fmt.Errorf("panel installer could not be executed: %w", err)
	}
	log.Info().Int("exit_code", result.ExitCode).Msg("Panel installer finished")

	if err := r.wait(ctx, r.cfg.Settle); err != nil {
		return OutcomeUnknown, err
	}

	return r.Probe(ctx)
}

// Probe performs a one-shot check for a TCP listener on the panel port
// inside the container.
func (r *RemoteInstaller) Probe(ctx context.Context) (InstallOutcome, error) {
	result, err := r.client.Exec(ctx, r.container, "ss", "-tln")
	if err != nil {
		return OutcomeUnknown, fmt.Errorf("listening probe could not run: %w", err)
	}
	if !result.Success() {
		return OutcomeUnknown, fmt.Errorf("listening probe failed: %s", strings.TrimSpace(result.Stderr))
	}

	needle := fmt.Sprintf(":%d", r.cfg.ProbePort)
	for _, line := range strings.Split(result.Stdout, "\n") {
		fields := strings.Fields(line)
		// ss -tln: State Recv-Q Send-Q Local-Address:Port Peer-Address:Port
		if len(fields) >= 4 && strings.HasSuffix(fields[3], needle) {
			log.Info().Int("port", r.cfg.ProbePort).Msg("Panel is listening")
			return OutcomeListening, nil
		}
	}

	log.Warn().Int("port", r.cfg.ProbePort).Msg("Panel port is not listening yet")
	return OutcomeNotListening, nil
}
