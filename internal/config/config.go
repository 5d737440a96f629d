package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the immutable configuration handed to every component at
// construction time. Nothing reads ambient globals after Load returns.
type Config struct {
	Container ContainerConfig `mapstructure:"container"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Panel     PanelConfig     `mapstructure:"panel"`
	Forwards  ForwardsConfig  `mapstructure:"forwards"`
	Address   AddressConfig   `mapstructure:"address"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

type ContainerConfig struct {
	Name         string        `mapstructure:"name"`
	Image        string        `mapstructure:"image"`
	BootTimeout  time.Duration `mapstructure:"boot_timeout"`
	StartTimeout time.Duration `mapstructure:"start_timeout"`
}

type StorageConfig struct {
	Pool    string `mapstructure:"pool"`
	Backend string `mapstructure:"backend"`
	Network string `mapstructure:"network"`
}

type PanelConfig struct {
	InstallerURL string        `mapstructure:"installer_url"`
	ProbePort    int           `mapstructure:"probe_port"`
	Settle       time.Duration `mapstructure:"settle"`
	Packages     []string      `mapstructure:"packages"`
}

type ForwardsConfig struct {
	ListenAddress string        `mapstructure:"listen_address"`
	Rules         []ForwardRule `mapstructure:"rules"`
}

// ForwardRule is one host-to-container TCP forwarding rule, realized as an
// LXD proxy device named after the rule.
type ForwardRule struct {
	Name        string `mapstructure:"name"`
	ListenPort  int    `mapstructure:"listen_port"`
	ConnectPort int    `mapstructure:"connect_port"`
}

type AddressConfig struct {
	Attempts int           `mapstructure:"attempts"`
	Interval time.Duration `mapstructure:"interval"`
}

type LoggingConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Dir        string `mapstructure:"dir"`
	File       string `mapstructure:"file"`
	Level      string `mapstructure:"level"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

var validBackends = []string{"dir", "zfs", "btrfs", "lvm"}

// DefaultForwards returns the three fixed forwarding rules: HTTP, HTTPS and
// the panel's admin port.
func DefaultForwards() []ForwardRule {
	return []ForwardRule{
		{Name: "proxy-http", ListenPort: 80, ConnectPort: 80},
		{Name: "proxy-https", ListenPort: 443, ConnectPort: 443},
		{Name: "proxy-panel", ListenPort: 8443, ConnectPort: 8443},
	}
}

// Load reads the configuration through viper, applies defaults and
// validates the result.
func Load() (*Config, error) {
	viper.SetDefault("container.name", "panel")
	viper.SetDefault("container.image", "ubuntu:22.04")
	viper.SetDefault("container.boot_timeout", "90s")
	viper.SetDefault("container.start_timeout", "30s")

	viper.SetDefault("storage.pool", "default")
	viper.SetDefault("storage.backend", "dir")
	viper.SetDefault("storage.network", "lxdbr0")

	viper.SetDefault("panel.installer_url", "https://cyberpanel.net/install.sh")
	viper.SetDefault("panel.probe_port", 8443)
	viper.SetDefault("panel.settle", "30s")
	viper.SetDefault("panel.packages", []string{"curl", "wget", "tar"})

	viper.SetDefault("forwards.listen_address", "0.0.0.0")

	viper.SetDefault("address.attempts", 5)
	viper.SetDefault("address.interval", "5s")

	viper.SetDefault("logging.enabled", false)
	viper.SetDefault("logging.dir", "/var/log/lxdpanel")
	viper.SetDefault("logging.file", "lxdpanel.log")
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.max_size", 10)
	viper.SetDefault("logging.max_backups", 3)
	viper.SetDefault("logging.max_age", 28)
	viper.SetDefault("logging.compress", true)

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if len(cfg.Forwards.Rules) == 0 {
		cfg.Forwards.Rules = DefaultForwards()
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Container.Name == "" {
		return fmt.Errorf("container.name is required")
	}
	if c.Container.Image == "" {
		return fmt.Errorf("container.image is required")
	}

	isValid := false
	for _, valid := range validBackends {
		if c.Storage.Backend == valid {
			isValid = true
			break
		}
	}
	if !isValid {
		return fmt.Errorf("storage.backend must be one of: %s", strings.Join(validBackends, ", "))
	}

	installer, err := url.Parse(c.Panel.InstallerURL)
	if err != nil || installer.Scheme != "https" || installer.Host == "" {
		return fmt.Errorf("panel.installer_url must be a valid https URL, got %q", c.Panel.InstallerURL)
	}

	if c.Panel.ProbePort < 1 || c.Panel.ProbePort > 65535 {
		return fmt.Errorf("panel.probe_port must be between 1 and 65535")
	}

	seen := make(map[string]bool)
	for _, rule := range c.Forwards.Rules {
		if rule.Name == "" {
			return fmt.Errorf("every forward rule needs a name")
		}
		if seen[rule.Name] {
			return fmt.Errorf("duplicate forward rule name %q", rule.Name)
		}
		seen[rule.Name] = true

		if rule.ListenPort < 1 || rule.ListenPort > 65535 {
			return fmt.Errorf("forward rule %s: listen_port out of range", rule.Name)
		}
		if rule.ConnectPort < 1 || rule.ConnectPort > 65535 {
			return fmt.Errorf("forward rule %s: connect_port out of range", rule.Name)
		}
	}

	if c.Address.Attempts < 1 {
		return fmt.Errorf("address.attempts must be at least 1")
	}
	if c.Address.Interval <= 0 {
		return fmt.Errorf("address.interval must be positive")
	}

	return nil
}
