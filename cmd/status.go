package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"lxdpanel/internal/events"
	"lxdpanel/internal/logging"
	"lxdpanel/internal/provision"
	"lxdpanel/pkg/execx"
)

var statusOutput string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show container and forwarding state",
	Long:  `Inspect the container, its address and the forwarding rules without changing anything.`,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().StringVarP(&statusOutput, "output", "o", "table", "output format (table|json|yaml)")
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := logging.Setup(cfg); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	orch := provision.New(cfg, execx.New(), events.NewSyncEventBus())
	status, err := orch.Status(cmd.Context())
	if err != nil {
		return err
	}

	return writeStatus(os.Stdout, status, statusOutput)
}

func writeStatus(w io.Writer, status *provision.Status, format string) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(status)

	case "yaml":
		return yaml.NewEncoder(w).Encode(status)

	case "table":
		fmt.Fprintf(w, "Container: %s\n", status.Container)
		fmt.Fprintf(w, "State:     %s\n", status.State)
		if status.Address != "" {
			fmt.Fprintf(w, "Address:   %s\n", status.Address)
		}

		if len(status.Rules) > 0 {
			tw := table.NewWriter()
			tw.SetOutputMirror(w)
			tw.AppendHeader(table.Row{"Device", "Listen", "Connect", "Exists", "Drifted"})
			for _, rule := range status.Rules {
				tw.AppendRow(table.Row{rule.Name, rule.Listen, rule.Connect, rule.Exists, rule.Drifted})
			}
			tw.SetStyle(table.StyleLight)
			tw.Render()
		}
		return nil

	default:
		return fmt.Errorf("unknown output format %q (want table, json or yaml)", format)
	}
}
