package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/BrainStation-23/serman/internal/logging"
)

//go:generate mockgen -source=runner.go -destination=mocks/mock_runner.go -package=mocks

// waitDelay bounds how long Run waits for output pipes to close once the
// tool has exited or been killed.
const waitDelay = time.Second

// ErrTimeout is returned when a service tool does not finish within the
// configured per-call timeout.
var ErrTimeout = errors.New("service tool timed out")

// Runner executes an external service tool and returns its standard output.
//
// A non-zero exit status is not an error: the output is returned and the
// caller is expected to re-query state. Errors are reserved for tools that
// could not be launched or that exceeded their deadline.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (string, error)
}

// ExecRunner runs tools with os/exec, bounding each call by Timeout.
type ExecRunner struct {
	Timeout time.Duration
}

// NewExecRunner returns a Runner that gives every call at most timeout to finish.
func NewExecRunner(timeout time.Duration) *ExecRunner {
	return &ExecRunner{Timeout: timeout}
}

// Run invokes the tool and returns its standard output. Standard error is
// only logged.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	log := logging.FromContext(ctx)

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	started := time.Now()
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// Children that inherit the pipes must not hold Run past the deadline.
	cmd.WaitDelay = waitDelay
	err := cmd.Run()
	elapsed := time.Since(started)
	output := stdout.String()

	log.Debug().
		Str("cmd", name).
		Strs("args", args).
		Dur("duration", elapsed).
		Int("bytes", len(output)).
		Str("stderr", strings.TrimSpace(stderr.String())).
		Msg("service tool finished")

	if err == nil {
		return output, nil
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		log.Warn().Str("cmd", commandLine(name, args)).Dur("timeout", r.Timeout).Msg("service tool timed out")
		return output, fmt.Errorf("%s: %w", commandLine(name, args), ErrTimeout)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// The tool ran; its exit status is not authoritative.
		log.Debug().Str("cmd", commandLine(name, args)).Int("exit_code", exitErr.ExitCode()).Msg("service tool exited non-zero")
		return output, nil
	}

	log.Warn().Err(err).Str("cmd", commandLine(name, args)).Msg("failed to launch service tool")
	return output, fmt.Errorf("failed to run %s: %w", commandLine(name, args), err)
}

func commandLine(name string, args []string) string {
	return strings.TrimSpace(name + " " + strings.Join(args, " "))
}
