package runner

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// OutputMode selects how an attempt's stdout/stderr are handled. There is a
// single execution primitive; the mode is the only difference between a
// captured probe and a long streamed install.
type OutputMode int

const (
	// OutputCapture buffers stdout and stderr into the Result.
	OutputCapture OutputMode = iota

	// OutputStream forwards the child's output to the caller's terminal.
	OutputStream

	// OutputDiscard drops all output.
	OutputDiscard
)

// RetryPolicy bounds the attempt loop. Attempts is a hard ceiling and is
// treated as 1 when zero or negative.
type RetryPolicy struct {
	Attempts int
	Delay    time.Duration
}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.Attempts < 1 {
		p.Attempts = 1
	}
	if p.Delay < 0 {
		p.Delay = 0
	}
	return p
}

// Command is an immutable specification of one external invocation. Commands
// are built from discrete argument vectors; nothing is ever passed through a
// shell for interpolation.
type Command struct {
	// ID correlates all log records for this command across attempts.
	ID string

	Binary string
	Args   []string

	// Dir is the working directory. Empty means inherit.
	Dir string

	Output OutputMode

	// Timeout bounds each individual attempt. Zero means the executor
	// default.
	Timeout time.Duration

	// Retry overrides the executor's default policy field-wise: Attempts
	// when positive, Delay when non-zero.
	Retry RetryPolicy

	// CheckCancel makes the executor consult the context before starting
	// each attempt. An in-flight attempt is never interrupted by
	// cancellation; only its own timeout bounds it.
	CheckCancel bool
}

// New builds a captured-output command with cancellation checking enabled.
func New(binary string, args ...string) Command {
	return Command{
		ID:          uuid.NewString(),
		Binary:      binary,
		Args:        args,
		Output:      OutputCapture,
		CheckCancel: true,
	}
}

// Streamed builds a command whose output goes straight to the terminal.
func Streamed(binary string, args ...string) Command {
	cmd := New(binary, args...)
	cmd.Output = OutputStream
	return cmd
}

// String renders the command line for display and logging.
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Binary
	}
	return c.Binary + " " + strings.Join(c.Args, " ")
}

// Result is the outcome of an Execute call. OK=false is the absence outcome:
// captured output is discarded in favor of the log record, so failed Results
// never carry partial output.
type Result struct {
	Stdout string
	Stderr string

	ExitCode int

	// Attempts is how many attempts actually started.
	Attempts int

	Duration time.Duration

	// TimedOut is set when the final attempt hit its timeout.
	TimedOut bool

	// Canceled is set when cancellation short-circuited the loop before an
	// attempt started.
	Canceled bool

	OK bool
}
