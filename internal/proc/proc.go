// Package proc runs external programs under a wall-clock timeout and reports
// their failures with enough context to diagnose them from logs.
package proc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// ErrTimeout is returned when a command exceeds its timeout. It is never
// conflated with a non-zero exit.
var ErrTimeout = errors.New("proc: timed out")

// errLocalTimeout is the cancel cause of Cmd.Timeout expiring, telling it
// apart from a deadline on the caller's context.
var errLocalTimeout = errors.New("proc: local timeout")

// maxStderr bounds how much stderr an ExitError keeps.
const maxStderr = 8 * 1024

// ExitError reports a command that ran but exited non-zero.
type ExitError struct {
	Name   string
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		return fmt.Sprintf("%s exited with status %d", e.Name, e.Code)
	}
	return fmt.Sprintf("%s exited with status %d: %s", e.Name, e.Code, msg)
}

// Cmd describes one invocation.
type Cmd struct {
	Name    string
	Args    []string
	Dir     string
	Env     []string
	Timeout time.Duration
}

// Output holds what a command wrote.
type Output struct {
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// Run executes c and waits for it. A zero Timeout means no local timeout;
// the parent context still applies. Only expiry of c.Timeout is reported as
// ErrTimeout; cancellation or a deadline of ctx returns ctx's error.
func Run(ctx context.Context, c Cmd) (Output, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeoutCause(ctx, c.Timeout, errLocalTimeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	// Children that inherit stdout must not hold Wait open past a kill.
	cmd.WaitDelay = time.Second
	if len(c.Env) > 0 {
		cmd.Env = c.Env
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	out := Output{Stdout: stdout.String(), Stderr: stderr.String(), Duration: time.Since(start)}
	if err == nil {
		return out, nil
	}

	if errors.Is(context.Cause(ctx), errLocalTimeout) {
		return out, fmt.Errorf("%s after %s: %w", c.Name, c.Timeout, ErrTimeout)
	}
	if ctx.Err() != nil {
		return out, ctx.Err()
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return out, &ExitError{Name: c.Name, Code: ee.ExitCode(), Stderr: tail(out.Stderr, maxStderr)}
	}
	return out, fmt.Errorf("run %s: %w", c.Name, err)
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
