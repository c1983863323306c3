// Package runner executes external commands with bounded timeouts, bounded
// retries, and cooperative cancellation. It is the leaf layer every other
// uvman component drives uv through.
package runner

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"
)

// CommandRunner is the execution contract consumed by the tool, venv, and
// dependency managers. *Executor is the production implementation; tests
// substitute fakes.
type CommandRunner interface {
	Execute(ctx context.Context, cmd Command) Result
}

// Executor runs commands sequentially with a fixed-delay retry loop.
// All failures are absorbed into the Result; Execute never panics and never
// returns an error value.
type Executor struct {
	log *zap.Logger

	defaultTimeout time.Duration
	defaultRetry   RetryPolicy

	// sleep and the stream targets are seams for tests.
	sleep  func(time.Duration)
	stdout io.Writer
	stderr io.Writer
}

// NewExecutor builds an Executor with the given defaults. Timeout and retry
// values on individual Commands override them per call.
func NewExecutor(log *zap.Logger, defaultTimeout time.Duration, defaultRetry RetryPolicy) *Executor {
	return &Executor{
		log:            log,
		defaultTimeout: defaultTimeout,
		defaultRetry:   defaultRetry.normalized(),
		sleep:          time.Sleep,
		stdout:         os.Stdout,
		stderr:         os.Stderr,
	}
}

// Execute runs cmd up to its retry bound. Before each attempt, if the
// command checks cancellation and ctx is done, the loop aborts without
// running anything further. A timeout or non-zero exit fails the attempt and
// is retried after the fixed delay; an unexpected start error (binary not
// found) terminates the loop immediately without consuming the remaining
// attempts.
func (e *Executor) Execute(ctx context.Context, cmd Command) Result {
	// Overrides merge field-wise: a command pinning only the attempt bound
	// still retries with the executor's configured delay.
	retry := cmd.Retry
	if retry.Attempts < 1 {
		retry.Attempts = e.defaultRetry.Attempts
	}
	if retry.Delay == 0 {
		retry.Delay = e.defaultRetry.Delay
	}
	retry = retry.normalized()
	timeout := cmd.Timeout
	if timeout <= 0 {
		timeout = e.defaultTimeout
	}

	start := time.Now()
	log := e.log.With(
		zap.String("command_id", cmd.ID),
		zap.String("command", cmd.String()),
		zap.Duration("timeout", timeout),
		zap.Int("max_attempts", retry.Attempts),
	)

	var last Result
	for attempt := 1; attempt <= retry.Attempts; attempt++ {
		if cmd.CheckCancel && ctx.Err() != nil {
			log.Warn("command aborted before attempt: operation canceled",
				zap.Int("attempt", attempt))
			return Result{Canceled: true, Attempts: attempt - 1, Duration: time.Since(start)}
		}

		log.Debug("running command", zap.Int("attempt", attempt))

		res, startErr := e.runOnce(cmd, timeout)
		last = res
		last.Attempts = attempt

		if startErr != nil {
			log.Error("unexpected error executing command",
				zap.Int("attempt", attempt), zap.Error(startErr))
			last.Duration = time.Since(start)
			return discardOutput(last)
		}

		if res.OK {
			last.Duration = time.Since(start)
			log.Debug("command succeeded",
				zap.Int("attempt", attempt), zap.Duration("elapsed", last.Duration))
			return last
		}

		if res.TimedOut {
			log.Warn("command timed out", zap.Int("attempt", attempt))
		} else {
			log.Warn("command failed",
				zap.Int("attempt", attempt),
				zap.Int("exit_code", res.ExitCode),
				zap.String("stderr", strings.TrimSpace(res.Stderr)))
		}

		if attempt < retry.Attempts {
			log.Info("retrying", zap.Duration("delay", retry.Delay))
			e.sleep(retry.Delay)
		}
	}

	last.Duration = time.Since(start)
	log.Error("command failed after all attempts", zap.Int("attempts", last.Attempts))
	return discardOutput(last)
}

// runOnce performs a single attempt. The per-attempt timeout context is
// derived from context.Background(), not the caller's context: cancellation
// is honored only at attempt boundaries, never by killing an in-flight
// process.
func (e *Executor) runOnce(cmd Command, timeout time.Duration) (Result, error) {
	attemptCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	proc := exec.CommandContext(attemptCtx, cmd.Binary, cmd.Args...)
	proc.Dir = cmd.Dir

	var stdout, stderr bytes.Buffer
	switch cmd.Output {
	case OutputCapture:
		proc.Stdout = &stdout
		proc.Stderr = &stderr
	case OutputStream:
		proc.Stdout = e.stdout
		proc.Stderr = e.stderr
	case OutputDiscard:
	}

	err := proc.Run()

	res := Result{
		Stdout: strings.TrimSpace(stdout.String()),
		Stderr: stderr.String(),
	}

	if err == nil {
		res.OK = true
		return res, nil
	}

	if attemptCtx.Err() == context.DeadlineExceeded {
		res.TimedOut = true
		res.ExitCode = -1
		return res, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}

	// Start failure: binary not found, permission denied, bad working
	// directory. Not a transient condition, so not retryable.
	res.ExitCode = -1
	return res, err
}

// discardOutput strips captured output from a failed Result. The log record
// already carries the diagnostic context; failures expose no partial output.
func discardOutput(r Result) Result {
	r.Stdout = ""
	r.Stderr = ""
	r.OK = false
	return r
}
