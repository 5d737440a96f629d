package execx

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"

	"github.com/rs/zerolog/log"
)

// Result captures the observable outcome of an external command.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Success reports whether the command exited with code 0.
func (r Result) Success() bool {
	return r.ExitCode == 0
}

// Runner runs external commands. The interface exists so components can be
// tested against a recording fake instead of a live system.
type Runner interface {
	// Run executes a command with captured output. A non-zero exit code is
	// reported through the Result, not the error; the error is reserved for
	// failures to run the command at all.
	Run(ctx context.Context, name string, args ...string) (Result, error)

	// RunInteractive executes a command attached to the parent's stdio, for
	// external programs that prompt the operator.
	RunInteractive(ctx context.Context, name string, args ...string) (Result, error)
}

type execRunner struct{}

// New returns a Runner backed by os/exec.
func New() Runner {
	return &execRunner{}
}

func (e *execRunner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	log.Debug().Str("command", name).Strs("args", args).Msg("Running command")

	err := cmd.Run()
	result := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			log.Debug().
				Str("command", name).
				Int("exit_code", result.ExitCode).
				Str("stderr", strings.TrimSpace(result.Stderr)).
				Msg("Command exited non-zero")
			return result, nil
		}
		result.ExitCode = -1
		return result, err
	}

	return result, nil
}

func (e *execRunner) RunInteractive(ctx context.Context, name string, args ...string) (Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	log.Debug().Str("command", name).Strs("args", args).Msg("Running interactive command")

	err := cmd.Run()
	var result Result
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		result.ExitCode = -1
		return result, err
	}

	return result, nil
}
