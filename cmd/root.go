package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile  string
	logLevel string

	BuildVersion = "dev"
	BuildCommit  = "none"
	BuildDate    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "lxdpanel",
	Short: "lxdpanel - LXD Container Host Provisioner",
	Long: `lxdpanel turns a fresh Ubuntu host into a container-based hosting box:
it installs LXD, launches a container, installs the hosting panel inside it
and forwards the web and panel ports from the host.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

// SetBuildInfo records the version stamps injected at link time.
func SetBuildInfo(version, commit, date string) {
	BuildVersion = version
	BuildCommit = commit
	BuildDate = date
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./lxdpanel.toml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the configured log level")
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Search for config file in standard locations
		viper.SetConfigName("lxdpanel")
		viper.SetConfigType("toml")

		// Current directory (highest priority)
		viper.AddConfigPath(".")

		// User config directory
		if userConfigDir, err := os.UserConfigDir(); err == nil {
			viper.AddConfigPath(userConfigDir + "/lxdpanel")
		}

		// System-wide config directory
		viper.AddConfigPath("/etc/lxdpanel")
	}

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	} else if cfgFile != "" {
		// An explicit --config that cannot be read is an operator error;
		// without the flag the built-in defaults carry the run.
		log.Fatal().Err(err).Str("file", cfgFile).Msg("Could not read config file")
	}
}
