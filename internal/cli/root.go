package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/kitops-ml/kitops-go/internal/config"
	"github.com/kitops-ml/kitops-go/internal/console"
	"github.com/kitops-ml/kitops-go/internal/history"
	"github.com/kitops-ml/kitops-go/internal/kit"
	"github.com/kitops-ml/kitops-go/internal/logging"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	KitBinary  string
	HistoryDB  string
	Registry   string
	ConfigPath string

	// Executor runs kit; nil uses os/exec.
	Executor kit.Executor
	// Stdin is read by login --password-stdin; nil uses os.Stdin.
	Stdin io.Reader

	cfg    *config.Config
	logger *logrus.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the kitctl root command.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kitctl",
		Short: "Author Kitfiles and drive the kit CLI",
		Long: `kitctl creates, validates and inspects Kitfile manifests and runs the
KitOps kit CLI to pack, push, pull and unpack ModelKits.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			opts.cfg = nil
			return opts.loadConfig(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	flags.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	flags.StringVar(&opts.KitBinary, "kit-binary", "", "kit executable (default \"kit\")")
	flags.StringVar(&opts.HistoryDB, "history-db", "", "SQLite file recording kit invocations")
	flags.StringVar(&opts.Registry, "registry", "", "registry for login and logout (default \"jozu.ml\")")
	flags.StringVar(&opts.ConfigPath, "config", "", "config file (default $XDG_CONFIG_HOME/kitctl/config.yaml)")

	cmd.AddCommand(NewKitfileCommand(opts))
	cmd.AddCommand(NewInfoCommand(opts))
	cmd.AddCommand(NewInspectCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewLoginCommand(opts))
	cmd.AddCommand(NewLogoutCommand(opts))
	cmd.AddCommand(NewPackCommand(opts))
	cmd.AddCommand(NewPullCommand(opts))
	cmd.AddCommand(NewPushCommand(opts))
	cmd.AddCommand(NewRemoveCommand(opts))
	cmd.AddCommand(NewUnpackCommand(opts))
	cmd.AddCommand(NewVersionCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))

	return cmd
}

// Execute runs kitctl with args and returns the process exit code. Errors
// that commands have not already reported are printed to stderr.
func Execute(ctx context.Context, opts *RootOptions, args []string, stdout, stderr io.Writer) int {
	if opts == nil {
		opts = &RootOptions{}
	}
	cmd := newRootCommand(opts)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}
	code := ExitCommandError
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		if exitErr.reported {
			return exitErr.Code
		}
		code = exitErr.Code
	}
	fmt.Fprintln(stderr, console.Red(stderr, "Error: "+err.Error()))
	return code
}

// loadConfig resolves settings once per command run. Commands built without
// the root command also call it, so it only needs cmd's own flags.
func (o *RootOptions) loadConfig(cmd *cobra.Command) error {
	if o.cfg != nil {
		return nil
	}
	cfg, err := config.Load(o.ConfigPath, cmd.Flags())
	if err != nil {
		return WrapExitError(ExitCommandError, "load configuration", err)
	}
	if o.KitBinary != "" {
		cfg.KitBinary = o.KitBinary
	}
	if o.HistoryDB != "" {
		cfg.HistoryDB = o.HistoryDB
	}
	if o.Registry != "" {
		cfg.Registry = o.Registry
	}
	o.Verbose = o.Verbose || cfg.Verbose
	o.cfg = &cfg
	o.logger = logging.New(cmd.ErrOrStderr(), o.Verbose)
	return nil
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	format := o.Format
	if format == "" {
		format = "text"
	}
	return &OutputFormatter{
		Format:    format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

func (o *RootOptions) stdin() io.Reader {
	if o.Stdin != nil {
		return o.Stdin
	}
	return os.Stdin
}

// openHistory opens the configured journal. It returns a nil store when
// history is disabled.
func (o *RootOptions) openHistory() (*history.Store, error) {
	if o.cfg.HistoryDB == "" {
		return nil, nil
	}
	store, err := history.Open(o.cfg.HistoryDB)
	if err != nil {
		return nil, err
	}
	return store, nil
}

// kitClient builds a kit client streaming to stdout and stderr, recording
// into the history journal when one is configured. The returned func
// releases the journal.
func (o *RootOptions) kitClient(cmd *cobra.Command, stdout io.Writer, echo bool) (*kit.Client, func(), error) {
	if err := o.loadConfig(cmd); err != nil {
		return nil, nil, err
	}

	clientOpts := []kit.Option{
		kit.WithBinary(o.cfg.KitBinary),
		kit.WithOutput(stdout, cmd.ErrOrStderr()),
		kit.WithVerbose(echo),
		kit.WithLogger(o.logger),
	}
	if o.Executor != nil {
		clientOpts = append(clientOpts, kit.WithExecutor(o.Executor))
	}

	store, err := o.openHistory()
	if err != nil {
		// A broken journal must not block kit itself.
		o.logger.WithError(err).Warn("history disabled")
	}
	closeFn := func() {}
	if store != nil {
		clientOpts = append(clientOpts, kit.WithRecorder(store))
		closeFn = func() {
			if err := store.Close(); err != nil {
				o.logger.WithError(err).Warn("close history")
			}
		}
	}
	return kit.NewClient(clientOpts...), closeFn, nil
}
