package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kitops-ml/kitops-go/internal/kit"
)

// KitOutput is the JSON payload for commands that run kit.
type KitOutput struct {
	Command string `json:"command"`
	Output  string `json:"output"`
	Version string `json:"version,omitempty"`
}

// kitAction runs one kit operation against a configured client.
type kitAction func(ctx context.Context, c *kit.Client, flags kit.Flags) error

// runKit executes action and reports the outcome. In JSON mode kit's stdout
// is captured into result, or a fresh KitOutput when result is nil, instead
// of being streamed.
func (o *RootOptions) runKit(cmd *cobra.Command, command string, rawFlags []string, result *KitOutput, action kitAction) error {
	f := o.formatter(cmd)

	flags, err := parseKitFlags(rawFlags)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeInvalidArgs, "kit "+command, err)
	}

	var captured bytes.Buffer
	var stdout io.Writer = cmd.OutOrStdout()
	if f.JSON() {
		stdout = &captured
	}
	client, closeFn, err := o.kitClient(cmd, stdout, !f.JSON())
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeGeneric, "kit "+command, err)
	}
	defer closeFn()

	if err := action(cmd.Context(), client, flags); err != nil {
		return kitFailure(f, command, err)
	}
	if !f.JSON() {
		return nil
	}
	if result == nil {
		result = &KitOutput{Command: command}
	}
	result.Output = captured.String()
	return f.Success(result)
}

func kitFailure(f *OutputFormatter, command string, err error) error {
	var cmdErr *kit.CommandError
	switch {
	case errors.As(err, &cmdErr):
		return f.Fail(ExitFailure, ErrCodeKitFailed, "kit "+command+" failed", err)
	case errors.Is(err, kit.ErrKitNotFound):
		return f.Fail(ExitCommandError, ErrCodeKitNotFound, "kit is not installed", err)
	case errors.Is(err, kit.ErrVersionUnsupported):
		return f.Fail(ExitFailure, ErrCodeKitFailed, "kit version check failed", err)
	default:
		return f.Fail(ExitCommandError, ErrCodeInvalidArgs, "kit "+command, err)
	}
}

// NewInfoCommand creates the info command.
func NewInfoCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		filters []string
		remote  bool
		raw     []string
	)
	cmd := &cobra.Command{
		Use:   "info <reference>",
		Short: "Show the Kitfile of a ModelKit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.runKit(cmd, "info", raw, nil, func(ctx context.Context, c *kit.Client, flags kit.Flags) error {
				if remote {
					flags = flags.With("remote", true)
				}
				return c.Info(ctx, args[0], filters, flags)
			})
		},
	}
	cmd.Flags().StringArrayVar(&filters, "filter", nil, "only show matching layers (repeatable)")
	cmd.Flags().BoolVarP(&remote, "remote", "r", false, "query the remote registry")
	addKitFlags(cmd, &raw)
	return cmd
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		remote bool
		raw    []string
	)
	cmd := &cobra.Command{
		Use:   "inspect <reference>",
		Short: "Show the manifest of a ModelKit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.runKit(cmd, "inspect", raw, nil, func(ctx context.Context, c *kit.Client, flags kit.Flags) error {
				return c.Inspect(ctx, args[0], remote, flags)
			})
		},
	}
	cmd.Flags().BoolVarP(&remote, "remote", "r", false, "query the remote registry")
	addKitFlags(cmd, &raw)
	return cmd
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	var raw []string
	cmd := &cobra.Command{
		Use:   "list [repository]",
		Short: "List ModelKits in local storage or a remote repository",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo := ""
			if len(args) == 1 {
				repo = args[0]
			}
			return rootOpts.runKit(cmd, "list", raw, nil, func(ctx context.Context, c *kit.Client, flags kit.Flags) error {
				return c.List(ctx, repo, flags)
			})
		},
	}
	addKitFlags(cmd, &raw)
	return cmd
}

// NewLoginCommand creates the login command. The password is never taken
// from the command line.
func NewLoginCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		username      string
		passwordStdin bool
		raw           []string
	)
	cmd := &cobra.Command{
		Use:   "login [registry]",
		Short: "Log in to a registry",
		Long: `Log in to a registry. The password is read from stdin with
--password-stdin, or from the KITCTL_PASSWORD environment variable.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			if err := rootOpts.loadConfig(cmd); err != nil {
				return err
			}

			password := rootOpts.cfg.Password
			if passwordStdin {
				data, err := io.ReadAll(rootOpts.stdin())
				if err != nil {
					return f.Fail(ExitCommandError, ErrCodeInvalidArgs, "read password from stdin", err)
				}
				password = strings.TrimRight(string(data), "\r\n")
			}
			if password == "" {
				return f.Fail(ExitCommandError, ErrCodeInvalidArgs,
					"no password given: use --password-stdin or set KITCTL_PASSWORD", nil)
			}

			registry := rootOpts.cfg.Registry
			if len(args) == 1 {
				registry = args[0]
			}
			return rootOpts.runKit(cmd, "login", raw, nil, func(ctx context.Context, c *kit.Client, flags kit.Flags) error {
				return c.Login(ctx, username, password, registry, flags)
			})
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "registry username")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read the password from stdin")
	addKitFlags(cmd, &raw)
	return cmd
}

// NewLogoutCommand creates the logout command.
func NewLogoutCommand(rootOpts *RootOptions) *cobra.Command {
	var raw []string
	cmd := &cobra.Command{
		Use:   "logout [registry]",
		Short: "Remove stored credentials for a registry",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rootOpts.loadConfig(cmd); err != nil {
				return err
			}
			registry := rootOpts.cfg.Registry
			if len(args) == 1 {
				registry = args[0]
			}
			return rootOpts.runKit(cmd, "logout", raw, nil, func(ctx context.Context, c *kit.Client, flags kit.Flags) error {
				return c.Logout(ctx, registry, flags)
			})
		},
	}
	addKitFlags(cmd, &raw)
	return cmd
}

// NewPackCommand creates the pack command.
func NewPackCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		file string
		raw  []string
	)
	cmd := &cobra.Command{
		Use:   "pack <reference>",
		Short: "Pack the current directory into a ModelKit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.runKit(cmd, "pack", raw, nil, func(ctx context.Context, c *kit.Client, flags kit.Flags) error {
				if file != "" {
					flags = flags.With("file", file)
				}
				return c.Pack(ctx, args[0], flags)
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Kitfile to pack (default ./Kitfile)")
	addKitFlags(cmd, &raw)
	return cmd
}

// newRefCommand builds the commands that take a single reference and
// nothing else.
func newRefCommand(rootOpts *RootOptions, name, short string, run func(c *kit.Client, ctx context.Context, ref string, flags kit.Flags) error) *cobra.Command {
	var raw []string
	cmd := &cobra.Command{
		Use:   name + " <reference>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.runKit(cmd, name, raw, nil, func(ctx context.Context, c *kit.Client, flags kit.Flags) error {
				return run(c, ctx, args[0], flags)
			})
		},
	}
	addKitFlags(cmd, &raw)
	return cmd
}

// NewPullCommand creates the pull command.
func NewPullCommand(rootOpts *RootOptions) *cobra.Command {
	return newRefCommand(rootOpts, "pull", "Pull a ModelKit from its registry", (*kit.Client).Pull)
}

// NewPushCommand creates the push command.
func NewPushCommand(rootOpts *RootOptions) *cobra.Command {
	return newRefCommand(rootOpts, "push", "Push a ModelKit to its registry", (*kit.Client).Push)
}

// NewRemoveCommand creates the remove command. Removing a ModelKit that is
// not present succeeds.
func NewRemoveCommand(rootOpts *RootOptions) *cobra.Command {
	return newRefCommand(rootOpts, "remove", "Remove a ModelKit from local storage", (*kit.Client).Remove)
}

// NewUnpackCommand creates the unpack command.
func NewUnpackCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		dir       string
		filters   []string
		overwrite bool
		raw       []string
	)
	cmd := &cobra.Command{
		Use:   "unpack <reference>",
		Short: "Extract a ModelKit into a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.runKit(cmd, "unpack", raw, nil, func(ctx context.Context, c *kit.Client, flags kit.Flags) error {
				if overwrite {
					flags = flags.With("overwrite", true)
				}
				return c.Unpack(ctx, args[0], dir, filters, flags)
			})
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "d", "", "directory to unpack into")
	cmd.Flags().StringArrayVar(&filters, "filter", nil, "only unpack matching layers (repeatable)")
	cmd.Flags().BoolVarP(&overwrite, "overwrite", "o", false, "overwrite existing files")
	addKitFlags(cmd, &raw)
	return cmd
}

// NewVersionCommand creates the version command.
func NewVersionCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		require string
		raw     []string
	)
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show the installed kit version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			result := &KitOutput{Command: "version"}
			return rootOpts.runKit(cmd, "version", raw, result, func(ctx context.Context, c *kit.Client, flags kit.Flags) error {
				info, err := c.Version(ctx, flags)
				if err != nil {
					return err
				}
				if info.Semver != nil {
					result.Version = info.Semver.String()
				}
				if require != "" {
					return info.Check(require)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&require, "require", "", "fail unless kit satisfies this semver constraint, e.g. \">= 1.0\"")
	addKitFlags(cmd, &raw)
	return cmd
}
