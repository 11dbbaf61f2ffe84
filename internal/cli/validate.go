package cli

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kitops-ml/kitops-go/internal/console"
	"github.com/kitops-ml/kitops-go/internal/kitfile"
)

// ValidationResult is the outcome of validating one Kitfile.
type ValidationResult struct {
	Path   string                    `json:"path"`
	Valid  bool                      `json:"valid"`
	Errors []kitfile.ValidationError `json:"errors,omitempty"`
	// LoadError is set when the Kitfile could not be read at all.
	LoadError string `json:"load_error,omitempty"`

	loadErr error
}

// NewKitfileValidateCommand creates `kitfile validate`.
func NewKitfileValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <path>...",
		Short: "Validate Kitfiles",
		Long: `Validate one or more Kitfiles, or directories containing a Kitfile.

Checks YAML syntax, allowed keys, the Kitfile schema and that every entry
path exists inside the Kitfile's directory. All problems are reported, not
just the first.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKitfileValidate(rootOpts, args, cmd)
		},
	}
	return cmd
}

func runKitfileValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	results := make([]ValidationResult, len(paths))
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, path := range paths {
		g.Go(func() error {
			results[i] = validatePath(path)
			return nil
		})
	}
	_ = g.Wait()

	formatter.VerboseLog("Validated %d Kitfile(s)", len(paths))
	return reportValidation(formatter, results)
}

func validatePath(path string) ValidationResult {
	res := ValidationResult{Path: path}
	_, err := kitfile.Load(path)
	if err == nil {
		res.Valid = true
		return res
	}
	if diags, ok := kitfile.Diagnostics(err); ok {
		res.Errors = diags
		return res
	}
	res.loadErr = err
	res.LoadError = err.Error()
	return res
}

// reportValidation prints results in order and maps them to an exit code:
// ExitCommandError if any Kitfile could not be loaded, ExitFailure if any is
// invalid.
func reportValidation(formatter *OutputFormatter, results []ValidationResult) error {
	var invalid, unreadable int
	var first *kitfile.ValidationError
	var firstLoad error
	for i := range results {
		r := &results[i]
		switch {
		case r.LoadError != "":
			unreadable++
			if firstLoad == nil {
				firstLoad = r.loadErr
			}
		case !r.Valid:
			invalid++
			if first == nil && len(r.Errors) > 0 {
				first = &r.Errors[0]
			}
		}
	}

	var exitErr *ExitError
	var cliErr *CLIError
	switch {
	case unreadable > 0:
		exitErr = NewExitError(ExitCommandError, fmt.Sprintf("%d Kitfile(s) could not be loaded", unreadable))
		cliErr = &CLIError{Code: loadErrorCode(firstLoad), Message: firstLoad.Error()}
	case invalid > 0:
		exitErr = NewExitError(ExitFailure, fmt.Sprintf("validation failed for %d Kitfile(s)", invalid))
		cliErr = &CLIError{Code: kitfile.ErrCodeGeneric, Message: exitErr.Error()}
		if first != nil {
			cliErr = &CLIError{Code: first.Code, Message: first.Message}
		}
	}

	if formatter.JSON() {
		resp := CLIResponse{Status: "ok", Data: results}
		if cliErr != nil {
			resp.Status = "error"
			resp.Error = cliErr
		}
		if err := formatter.encode(resp); err != nil {
			return err
		}
		return markReported(exitErr)
	}

	w := formatter.Writer
	for _, r := range results {
		switch {
		case r.Valid:
			fmt.Fprintln(w, console.Green(w, "✓ "+r.Path))
		case r.LoadError != "":
			fmt.Fprintln(w, console.Red(w, "✗ "+r.Path))
			fmt.Fprintf(w, "  %s\n\n", r.LoadError)
		default:
			fmt.Fprintln(w, console.Red(w, "✗ "+r.Path))
			for _, e := range r.Errors {
				if e.Line > 0 {
					fmt.Fprintf(w, "  line %d\n", e.Line)
				}
				fmt.Fprintf(w, "  %s: %s: %s\n", e.Code, e.Field, e.Message)
			}
			fmt.Fprintln(w)
		}
	}
	return markReported(exitErr)
}

func markReported(err *ExitError) error {
	if err == nil {
		return nil
	}
	err.reported = true
	return err
}

func loadErrorCode(err error) string {
	if errors.Is(err, kitfile.ErrNotFound) {
		return kitfile.ErrCodeNotFound
	}
	return kitfile.ErrCodeGeneric
}
