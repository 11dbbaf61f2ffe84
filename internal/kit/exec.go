package kit

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os/exec"
	"strings"
	"time"
)

// ErrKitNotFound is returned when the kit binary cannot be located.
var ErrKitNotFound = errors.New("kit binary not found")

// Invocation is a single run of the kit binary.
type Invocation struct {
	Binary string
	Args   []string
	// Stdin is written to the process's standard input when non-empty.
	Stdin  string
	Stdout io.Writer
	Stderr io.Writer
}

// Result describes a finished invocation.
type Result struct {
	ExitCode int
	Duration time.Duration
}

// Executor runs kit invocations. The default implementation uses os/exec;
// tests substitute a fake.
type Executor interface {
	Execute(ctx context.Context, inv Invocation) (Result, error)
}

// CommandError is returned when kit exits with a non-zero status.
type CommandError struct {
	Args     []string
	ExitCode int
	Stderr   string
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("command %q exited with status %d", strings.Join(e.Args, " "), e.ExitCode)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

// maxStderrTail bounds how much stderr is kept for CommandError.
const maxStderrTail = 4096

// ExecExecutor runs kit as a child process.
type ExecExecutor struct{}

// Execute starts the process, streams its output to the invocation's
// writers and waits for it. Cancelling ctx kills the process.
func (ExecExecutor) Execute(ctx context.Context, inv Invocation) (Result, error) {
	cmd := exec.CommandContext(ctx, inv.Binary, inv.Args...)
	if inv.Stdin != "" {
		cmd.Stdin = strings.NewReader(inv.Stdin)
	}

	var tail tailBuffer
	cmd.Stdout = writerOrDiscard(inv.Stdout)
	cmd.Stderr = io.MultiWriter(writerOrDiscard(inv.Stderr), &tail)

	start := time.Now()
	err := cmd.Run()
	res := Result{Duration: time.Since(start)}

	if err == nil {
		return res, nil
	}
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
		return res, fmt.Errorf("%w: %s", ErrKitNotFound, inv.Binary)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, ctxErr
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, &CommandError{
			Args:     append([]string{inv.Binary}, inv.Args...),
			ExitCode: res.ExitCode,
			Stderr:   strings.TrimSpace(tail.String()),
		}
	}
	return res, fmt.Errorf("run %s: %w", inv.Binary, err)
}

func writerOrDiscard(w io.Writer) io.Writer {
	if w == nil {
		return io.Discard
	}
	return w
}

// tailBuffer keeps the last maxStderrTail bytes written to it.
type tailBuffer struct {
	buf bytes.Buffer
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	n := len(p)
	t.buf.Write(p)
	if over := t.buf.Len() - maxStderrTail; over > 0 {
		t.buf.Next(over)
	}
	return n, nil
}

func (t *tailBuffer) String() string {
	return t.buf.String()
}
