package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadFromTOML(t *testing.T, content string) (*Config, error) {
	t.Helper()

	tempDir := t.TempDir()
	configFile := filepath.Join(tempDir, "lxdpanel.toml")
	require.NoError(t, os.WriteFile(configFile, []byte(content), 0644))

	viper.Reset()
	viper.SetConfigFile(configFile)
	require.NoError(t, viper.ReadInConfig())

	return Load()
}

func TestLoad_Defaults(t *testing.T) {
	viper.Reset()

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "panel", cfg.Container.Name)
	assert.Equal(t, "ubuntu:22.04", cfg.Container.Image)
	assert.Equal(t, 90*time.Second, cfg.Container.BootTimeout)

	assert.Equal(t, "default", cfg.Storage.Pool)
	assert.Equal(t, "dir", cfg.Storage.Backend)
	assert.Equal(t, "lxdbr0", cfg.Storage.Network)

	assert.Equal(t, 8443, cfg.Panel.ProbePort)
	assert.Equal(t, 30*time.Second, cfg.Panel.Settle)
	assert.Equal(t, []string{"curl", "wget", "tar"}, cfg.Panel.Packages)

	assert.Equal(t, 5, cfg.Address.Attempts)
	assert.Equal(t, 5*time.Second, cfg.Address.Interval)

	assert.False(t, cfg.Logging.Enabled)
}

func TestLoad_DefaultForwards(t *testing.T) {
	viper.Reset()

	cfg, err := Load()
	require.NoError(t, err)

	require.Len(t, cfg.Forwards.Rules, 3)
	assert.Equal(t, "0.0.0.0", cfg.Forwards.ListenAddress)
	assert.Equal(t, ForwardRule{Name: "proxy-http", ListenPort: 80, ConnectPort: 80}, cfg.Forwards.Rules[0])
	assert.Equal(t, ForwardRule{Name: "proxy-https", ListenPort: 443, ConnectPort: 443}, cfg.Forwards.Rules[1])
	assert.Equal(t, ForwardRule{Name: "proxy-panel", ListenPort: 8443, ConnectPort: 8443}, cfg.Forwards.Rules[2])
}

func TestLoad_FileOverrides(t *testing.T) {
	cfg, err := loadFromTOML(t, `
[container]
name = "web"
image = "ubuntu:24.04"

[storage]
backend = "zfs"
pool = "tank"

[panel]
installer_url = "https://example.com/install.sh"
probe_port = 9443
`)
	require.NoError(t, err)

	assert.Equal(t, "web", cfg.Container.Name)
	assert.Equal(t, "ubuntu:24.04", cfg.Container.Image)
	assert.Equal(t, "zfs", cfg.Storage.Backend)
	assert.Equal(t, "tank", cfg.Storage.Pool)
	assert.Equal(t, "https://example.com/install.sh", cfg.Panel.InstallerURL)
	assert.Equal(t, 9443, cfg.Panel.ProbePort)
}

func TestLoad_CustomForwardRules(t *testing.T) {
	cfg, err := loadFromTOML(t, `
[forwards]
listen_address = "127.0.0.1"

[[forwards.rules]]
name = "proxy-alt"
listen_port = 8080
connect_port = 80
`)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Forwards.ListenAddress)
	require.Len(t, cfg.Forwards.Rules, 1)
	assert.Equal(t, ForwardRule{Name: "proxy-alt", ListenPort: 8080, ConnectPort: 80}, cfg.Forwards.Rules[0])
}

func TestLoad_InvalidBackend(t *testing.T) {
	_, err := loadFromTOML(t, `
[storage]
backend = "ceph"
`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage.backend must be one of")
}

func TestLoad_InsecureInstallerURL(t *testing.T) {
	_, err := loadFromTOML(t, `
[panel]
installer_url = "http://cyberpanel.net/install.sh"
`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "https")
}

func TestLoad_PortOutOfRange(t *testing.T) {
	_, err := loadFromTOML(t, `
[[forwards.rules]]
name = "bad"
listen_port = 70000
connect_port = 80
`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listen_port out of range")
}

func TestLoad_DuplicateRuleNames(t *testing.T) {
	_, err := loadFromTOML(t, `
[[forwards.rules]]
name = "proxy-http"
listen_port = 80
connect_port = 80

[[forwards.rules]]
name = "proxy-http"
listen_port = 443
connect_port = 443
`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate forward rule name")
}

func TestLoad_ZeroAddressAttempts(t *testing.T) {
	_, err := loadFromTOML(t, `
[address]
attempts = 0
`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "address.attempts")
}
