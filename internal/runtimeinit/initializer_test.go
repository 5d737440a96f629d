package runtimeinit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lxdpanel/internal/config"
	"lxdpanel/internal/steps"
	"lxdpanel/internal/testutil"
	"lxdpanel/pkg/execx"
	"lxdpanel/pkg/lxd"
)

func storageCfg() config.StorageConfig {
	return config.StorageConfig{Pool: "default", Backend: "dir", Network: "lxdbr0"}
}

func TestEnsure_AlreadyInitialized(t *testing.T) {
	runner := testutil.NewFakeRunner()
	runner.Respond("lxc storage show default", execx.Result{Stdout: "name: default\n"})
	runner.Respond("lxc network show lxdbr0", execx.Result{Stdout: "name: lxdbr0\n"})

	init := NewInitializer(lxd.NewCLIClient(runner), storageCfg())
	_, err := init.Ensure(context.Background())

	assert.ErrorIs(t, err, steps.ErrAlreadySatisfied)
	assert.Equal(t, 0, runner.CountPrefix("lxd init"))
}

func TestEnsure_MissingPoolTriggersInit(t *testing.T) {
	runner := testutil.NewFakeRunner()
	runner.Respond("lxc storage show default", execx.Result{ExitCode: 1})
	runner.Respond("lxc network show lxdbr0", execx.Result{Stdout: "name: lxdbr0\n"})

	init := NewInitializer(lxd.NewCLIClient(runner), storageCfg())
	detail, err := init.Ensure(context.Background())

	require.NoError(t, err)
	assert.Contains(t, detail, "initialized")
	assert.Equal(t, 1, runner.Count("lxd init --auto --storage-backend dir --storage-pool default"))
}

func TestEnsure_MissingNetworkTriggersInit(t *testing.T) {
	runner := testutil.NewFakeRunner()
	runner.Respond("lxc storage show default", execx.Result{Stdout: "name: default\n"})
	runner.Respond("lxc network show lxdbr0", execx.Result{ExitCode: 1})

	init := NewInitializer(lxd.NewCLIClient(runner), storageCfg())
	_, err := init.Ensure(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, runner.CountPrefix("lxd init"))
}
