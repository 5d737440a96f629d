package execx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunner_Run_CapturesOutput(t *testing.T) {
	runner := New()

	result, err := runner.Run(context.Background(), "sh", "-c", "echo out; echo err >&2")
	require.NoError(t, err)

	assert.True(t, result.Success())
	assert.Equal(t, "out\n", result.Stdout)
	assert.Equal(t, "err\n", result.Stderr)
}

func TestRunner_Run_NonZeroExitIsNotAnError(t *testing.T) {
	runner := New()

	result, err := runner.Run(context.Background(), "sh", "-c", "exit 3")
	require.NoError(t, err)

	assert.False(t, result.Success())
	assert.Equal(t, 3, result.ExitCode)
}

func TestRunner_Run_MissingBinary(t *testing.T) {
	runner := New()

	result, err := runner.Run(context.Background(), "definitely-not-a-real-binary-xyz")
	require.Error(t, err)
	assert.Equal(t, -1, result.ExitCode)
}

func TestRunner_Run_ContextCancellation(t *testing.T) {
	runner := New()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, _ := runner.Run(ctx, "sh", "-c", "sleep 10")
	assert.False(t, result.Success())
}
