package runner

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"uvman/internal/logging"
)

func newTestExecutor() (*Executor, *[]time.Duration) {
	var sleeps []time.Duration
	e := NewExecutor(logging.NewNop(), 5*time.Second, RetryPolicy{Attempts: 1, Delay: time.Second})
	e.sleep = func(d time.Duration) { sleeps = append(sleeps, d) }
	return e, &sleeps
}

func TestExecute_CapturesTrimmedStdout(t *testing.T) {
	e, _ := newTestExecutor()

	res := e.Execute(context.Background(), New("echo", "hello"))
	if !res.OK {
		t.Fatalf("expected success, got %+v", res)
	}
	if res.Stdout != "hello" {
		t.Errorf("expected trimmed stdout %q, got %q", "hello", res.Stdout)
	}
	if res.Attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", res.Attempts)
	}
}

func TestExecute_AlwaysFailingConsumesExactlyRetryBound(t *testing.T) {
	e, sleeps := newTestExecutor()

	cmd := New("sh", "-c", "exit 1")
	cmd.Retry = RetryPolicy{Attempts: 3, Delay: 250 * time.Millisecond}

	res := e.Execute(context.Background(), cmd)
	if res.OK {
		t.Fatal("expected failure")
	}
	if res.Attempts != 3 {
		t.Errorf("expected exactly 3 attempts, got %d", res.Attempts)
	}
	if len(*sleeps) != 2 {
		t.Fatalf("expected 2 inter-retry delays, got %d", len(*sleeps))
	}
	for _, d := range *sleeps {
		if d != 250*time.Millisecond {
			t.Errorf("expected fixed 250ms delay, got %s", d)
		}
	}
}

func TestExecute_FailureDiscardsCapturedOutput(t *testing.T) {
	e, _ := newTestExecutor()

	cmd := New("sh", "-c", "echo partial; echo oops >&2; exit 7")
	cmd.Retry = RetryPolicy{Attempts: 2}

	res := e.Execute(context.Background(), cmd)
	if res.OK {
		t.Fatal("expected failure")
	}
	if res.Stdout != "" || res.Stderr != "" {
		t.Errorf("failed result must not carry partial output, got stdout=%q stderr=%q",
			res.Stdout, res.Stderr)
	}
	if res.ExitCode != 7 {
		t.Errorf("expected exit code 7, got %d", res.ExitCode)
	}
}

func TestExecute_CanceledBeforeFirstAttemptRunsNothing(t *testing.T) {
	e, sleeps := newTestExecutor()

	dir := t.TempDir()
	marker := filepath.Join(dir, "ran")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cmd := New("touch", marker)
	cmd.Retry = RetryPolicy{Attempts: 3, Delay: time.Second}

	res := e.Execute(ctx, cmd)
	if !res.Canceled {
		t.Fatalf("expected canceled result, got %+v", res)
	}
	if res.Attempts != 0 {
		t.Errorf("expected zero attempts, got %d", res.Attempts)
	}
	if len(*sleeps) != 0 {
		t.Errorf("expected no retry delays, got %d", len(*sleeps))
	}
	if _, err := os.Stat(marker); err == nil {
		t.Error("command ran despite cancellation")
	}
}

func TestExecute_CancelIgnoredWhenCheckDisabled(t *testing.T) {
	e, _ := newTestExecutor()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cmd := New("echo", "still runs")
	cmd.CheckCancel = false

	res := e.Execute(ctx, cmd)
	if !res.OK {
		t.Fatalf("expected success, got %+v", res)
	}
}

func TestExecute_TimeoutFailsEachAttempt(t *testing.T) {
	e, sleeps := newTestExecutor()

	cmd := New("sleep", "5")
	cmd.Timeout = 200 * time.Millisecond
	cmd.Retry = RetryPolicy{Attempts: 2, Delay: 100 * time.Millisecond}

	start := time.Now()
	res := e.Execute(context.Background(), cmd)
	elapsed := time.Since(start)

	if res.OK {
		t.Fatal("expected timeout failure")
	}
	if !res.TimedOut {
		t.Error("expected TimedOut to be set")
	}
	if res.Attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", res.Attempts)
	}
	if len(*sleeps) != 1 {
		t.Errorf("expected 1 inter-retry delay, got %d", len(*sleeps))
	}
	// Two timed-out attempts, fake sleep: roughly 2x the per-attempt timeout.
	if elapsed > 2*time.Second {
		t.Errorf("timeout not enforced, elapsed %s", elapsed)
	}
}

func TestExecute_MissingBinarySkipsRemainingRetries(t *testing.T) {
	e, sleeps := newTestExecutor()

	cmd := New("uvman-definitely-not-a-binary")
	cmd.Retry = RetryPolicy{Attempts: 3, Delay: time.Second}

	res := e.Execute(context.Background(), cmd)
	if res.OK {
		t.Fatal("expected failure")
	}
	if res.Attempts != 1 {
		t.Errorf("start error must not consume retries, got %d attempts", res.Attempts)
	}
	if len(*sleeps) != 0 {
		t.Errorf("expected no retry delays, got %d", len(*sleeps))
	}
}

func TestExecute_StreamModeForwardsOutput(t *testing.T) {
	e, _ := newTestExecutor()

	var out bytes.Buffer
	e.stdout = &out

	res := e.Execute(context.Background(), Streamed("echo", "streamed"))
	if !res.OK {
		t.Fatalf("expected success, got %+v", res)
	}
	if res.Stdout != "" {
		t.Errorf("streamed mode must not capture, got %q", res.Stdout)
	}
	if !strings.Contains(out.String(), "streamed") {
		t.Errorf("expected forwarded output, got %q", out.String())
	}
}

func TestExecute_DefaultsAppliedFromExecutor(t *testing.T) {
	e, sleeps := newTestExecutor()
	e.defaultRetry = RetryPolicy{Attempts: 2, Delay: 50 * time.Millisecond}

	res := e.Execute(context.Background(), New("sh", "-c", "exit 1"))
	if res.Attempts != 2 {
		t.Errorf("expected executor default of 2 attempts, got %d", res.Attempts)
	}
	if len(*sleeps) != 1 {
		t.Errorf("expected 1 delay from executor default policy, got %d", len(*sleeps))
	}
}

func TestExecute_AttemptsOverrideKeepsDefaultDelay(t *testing.T) {
	e, sleeps := newTestExecutor()
	e.defaultRetry = RetryPolicy{Attempts: 1, Delay: 5 * time.Second}

	cmd := New("sh", "-c", "exit 1")
	cmd.Retry = RetryPolicy{Attempts: 3}

	res := e.Execute(context.Background(), cmd)
	if res.Attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", res.Attempts)
	}
	if len(*sleeps) != 2 {
		t.Fatalf("expected 2 inter-retry delays, got %d", len(*sleeps))
	}
	for i, d := range *sleeps {
		if d != 5*time.Second {
			t.Errorf("delay %d: expected configured fixed delay 5s, got %s", i, d)
		}
	}
}

func TestRetryPolicy_NormalizedFloorsAttempts(t *testing.T) {
	p := RetryPolicy{Attempts: 0, Delay: -time.Second}.normalized()
	if p.Attempts != 1 {
		t.Errorf("expected attempts floor of 1, got %d", p.Attempts)
	}
	if p.Delay != 0 {
		t.Errorf("expected non-negative delay, got %s", p.Delay)
	}
}
