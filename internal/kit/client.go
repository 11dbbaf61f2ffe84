package kit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kitops-ml/kitops-go/internal/console"
)

// DefaultBinary is the kit executable looked up on PATH.
const DefaultBinary = "kit"

// Record describes one finished kit invocation for a Recorder.
type Record struct {
	Command   string
	Args      []string
	ExitCode  int
	StartedAt time.Time
	Duration  time.Duration
	// Err is the error text for invocations that did not exit cleanly.
	Err string
}

// Recorder receives a Record after every invocation. Recording failures are
// logged and never fail the command.
type Recorder interface {
	Record(ctx context.Context, rec Record) error
}

// Client runs kit commands.
type Client struct {
	binary   string
	stdout   io.Writer
	stderr   io.Writer
	verbose  bool
	executor Executor
	recorder Recorder
	logger   logrus.FieldLogger
	now      func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithBinary sets the kit executable. Defaults to DefaultBinary.
func WithBinary(path string) Option {
	return func(c *Client) {
		if path != "" {
			c.binary = path
		}
	}
}

// WithOutput sets where kit's stdout and stderr are streamed.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(c *Client) {
		c.stdout = stdout
		c.stderr = stderr
	}
}

// WithVerbose controls whether each command is echoed as "% kit ..." before
// it runs. The echo always names kit, whatever WithBinary points at. Defaults
// to true.
func WithVerbose(verbose bool) Option {
	return func(c *Client) {
		c.verbose = verbose
	}
}

// WithExecutor replaces the os/exec based executor.
func WithExecutor(e Executor) Option {
	return func(c *Client) {
		c.executor = e
	}
}

// WithRecorder records every invocation.
func WithRecorder(r Recorder) Option {
	return func(c *Client) {
		c.recorder = r
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithClock overrides time.Now for recorded start times.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// NewClient returns a Client writing to os.Stdout and os.Stderr.
func NewClient(opts ...Option) *Client {
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	c := &Client{
		binary:   DefaultBinary,
		stdout:   os.Stdout,
		stderr:   os.Stderr,
		verbose:  true,
		executor: ExecExecutor{},
		logger:   discard,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// run executes `kit <command> <args...> <flags...>`.
func (c *Client) run(ctx context.Context, command string, args []string, flags Flags, stdin string, stdout io.Writer) error {
	extra, err := flags.Render(command)
	if err != nil {
		return err
	}
	argv := append(append([]string{command}, args...), extra...)

	if c.verbose {
		line := "% " + DefaultBinary + " " + strings.Join(argv, " ")
		fmt.Fprintln(c.stdout, console.Cyan(c.stdout, line))
	}

	if stdout == nil {
		stdout = c.stdout
	}
	started := c.now()
	res, err := c.executor.Execute(ctx, Invocation{
		Binary: c.binary,
		Args:   argv,
		Stdin:  stdin,
		Stdout: stdout,
		Stderr: c.stderr,
	})

	fields := logrus.Fields{
		"command":   command,
		"exit_code": res.ExitCode,
		"duration":  res.Duration,
	}
	if err != nil {
		c.logger.WithFields(fields).WithError(err).Debug("kit command failed")
	} else {
		c.logger.WithFields(fields).Debug("kit command finished")
	}

	c.record(ctx, command, argv, started, res, err)
	return err
}

func (c *Client) record(ctx context.Context, command string, argv []string, started time.Time, res Result, runErr error) {
	if c.recorder == nil {
		return
	}
	rec := Record{
		Command:   command,
		Args:      append([]string{c.binary}, argv...),
		ExitCode:  res.ExitCode,
		StartedAt: started,
		Duration:  res.Duration,
	}
	var cmdErr *CommandError
	if runErr != nil && !errors.As(runErr, &cmdErr) {
		rec.ExitCode = -1
		rec.Err = runErr.Error()
	}
	if err := c.recorder.Record(context.WithoutCancel(ctx), rec); err != nil {
		c.logger.WithError(err).Warn("failed to record kit invocation")
	}
}
