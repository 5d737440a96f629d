package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/AlecAivazis/survey/v2"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"lxdpanel/internal/config"
	"lxdpanel/internal/events"
	"lxdpanel/internal/logging"
	"lxdpanel/internal/provision"
	"lxdpanel/internal/report"
	"lxdpanel/pkg/execx"
)

var provisionYes bool

var provisionCmd = &cobra.Command{
	Use:   "provision",
	Short: "Provision the host end to end",
	Long: `Prepare the host, install LXD, launch the panel container, run the
hosting panel installer inside it and forward the web and panel ports.
The sequence is idempotent; re-running skips everything already in place.`,
	RunE: runProvision,
}

func init() {
	rootCmd.AddCommand(provisionCmd)
	provisionCmd.Flags().BoolVarP(&provisionYes, "yes", "y", false, "run without the confirmation prompt")
}

func runProvision(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := logging.Setup(cfg); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	bus := events.NewSyncEventBus()
	orch := provision.New(cfg, execx.New(), bus)

	if err := orch.CheckPrivileges(); err != nil {
		return err
	}

	if !provisionYes && isatty.IsTerminal(os.Stdin.Fd()) {
		confirmed := false
		prompt := &survey.Confirm{
			Message: fmt.Sprintf("Provision this host with container %q (image %s)?",
				cfg.Container.Name, cfg.Container.Image),
			Default: true,
		}
		if err := survey.AskOne(prompt, &confirmed); err != nil {
			return err
		}
		if !confirmed {
			log.Info().Msg("Aborted by operator")
			return nil
		}
	}

	reporter := report.NewReporter()
	if err := bus.Subscribe(reporter); err != nil {
		return fmt.Errorf("failed to subscribe reporter: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := orch.Run(ctx)
	if err != nil {
		return err
	}

	reporter.Summary(result.Address, result.Rules, result.Panel, cfg.Panel.ProbePort)
	return nil
}

// loadConfig loads the validated configuration and applies the --log-level
// override on top.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	return cfg, nil
}
