package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kitops-ml/kitops-go/internal/history"
)

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		limit      int
		pruneAfter time.Duration
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded kit invocations",
		Long: `List kit invocations recorded in the history database, newest first.

History is kept only when --history-db or KITCTL_HISTORY_DB is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			store, err := rootOpts.historyStore(cmd, f)
			if err != nil {
				return err
			}
			defer store.Close()

			if pruneAfter > 0 {
				n, err := store.PruneOlderThan(cmd.Context(), pruneAfter)
				if err != nil {
					return f.Fail(ExitCommandError, ErrCodeHistory, "prune history", err)
				}
				f.VerboseLog("Pruned %d entr(ies) older than %s", n, pruneAfter)
			}

			entries, err := store.List(cmd.Context(), limit)
			if err != nil {
				return f.Fail(ExitCommandError, ErrCodeHistory, "read history", err)
			}
			if f.JSON() {
				return f.Success(entries)
			}
			return writeHistoryTable(f, entries)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", history.DefaultListLimit, "maximum number of entries")
	cmd.Flags().DurationVar(&pruneAfter, "prune-older-than", 0, "first delete entries older than this, e.g. 720h")
	cmd.AddCommand(newHistoryShowCommand(rootOpts))
	return cmd
}

func newHistoryShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one recorded invocation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			store, err := rootOpts.historyStore(cmd, f)
			if err != nil {
				return err
			}
			defer store.Close()

			e, err := store.Get(cmd.Context(), args[0])
			if err != nil {
				return f.Fail(ExitCommandError, ErrCodeHistory, "read history", err)
			}
			if f.JSON() {
				return f.Success(e)
			}

			w := f.Writer
			fmt.Fprintf(w, "ID:       %s\n", e.ID)
			fmt.Fprintf(w, "Command:  %s\n", strings.Join(e.Args, " "))
			fmt.Fprintf(w, "Started:  %s\n", e.StartedAt.Format(time.RFC3339))
			fmt.Fprintf(w, "Duration: %s\n", e.Duration)
			fmt.Fprintf(w, "Exit:     %d\n", e.ExitCode)
			if e.Err != "" {
				fmt.Fprintf(w, "Error:    %s\n", e.Err)
			}
			return nil
		},
	}
}

func (o *RootOptions) historyStore(cmd *cobra.Command, f *OutputFormatter) (*history.Store, error) {
	if err := o.loadConfig(cmd); err != nil {
		return nil, err
	}
	if o.cfg.HistoryDB == "" {
		return nil, f.Fail(ExitCommandError, ErrCodeHistory,
			"history is disabled: set --history-db or KITCTL_HISTORY_DB", nil)
	}
	store, err := o.openHistory()
	if err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeHistory, "open history", err)
	}
	return store, nil
}

func writeHistoryTable(f *OutputFormatter, entries []history.Entry) error {
	if len(entries) == 0 {
		return f.Success("No kit invocations recorded.")
	}
	tw := tabwriter.NewWriter(f.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tEXIT\tDURATION\tCOMMAND")
	for _, e := range entries {
		exit := fmt.Sprint(e.ExitCode)
		if e.Err != "" {
			exit = "error"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			e.ID,
			e.StartedAt.Local().Format("2006-01-02 15:04:05"),
			exit,
			e.Duration.Round(time.Millisecond),
			strings.Join(e.Args, " "),
		)
	}
	return tw.Flush()
}
