package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kitops-ml/kitops-go/internal/kitfile"
)

// NewKitfileCommand groups the Kitfile authoring commands.
func NewKitfileCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kitfile",
		Short: "Create, validate and inspect Kitfiles",
	}
	cmd.AddCommand(NewKitfileInitCommand(rootOpts))
	cmd.AddCommand(NewKitfileValidateCommand(rootOpts))
	cmd.AddCommand(NewKitfileShowCommand(rootOpts))
	cmd.AddCommand(NewKitfileDigestCommand(rootOpts))
	return cmd
}

// KitfileSummary is the JSON payload for init and digest.
type KitfileSummary struct {
	Path   string `json:"path"`
	Digest string `json:"digest"`
}

type initOptions struct {
	manifestVersion string
	name            string
	version         string
	description     string
	authors         []string
	license         string
	code            []string
	datasets        []string
	docs            []string
	model           string
	modelName       string
	framework       string
	force           bool
}

// NewKitfileInitCommand creates `kitfile init`.
func NewKitfileInitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &initOptions{}
	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Write a new Kitfile",
		Long: `Write a Kitfile into dir (default: the current directory).

Every path must exist inside dir. Datasets are given as path or name=path.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			return runKitfileInit(rootOpts, opts, dir, cmd)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.manifestVersion, "manifest-version", "1.0", "Kitfile manifest version")
	flags.StringVar(&opts.name, "name", "", "package name")
	flags.StringVar(&opts.version, "version", "", "package version")
	flags.StringVar(&opts.description, "description", "", "package description")
	flags.StringArrayVar(&opts.authors, "author", nil, "package author (repeatable)")
	flags.StringVar(&opts.license, "license", "", "license for code, dataset and model entries")
	flags.StringArrayVar(&opts.code, "code", nil, "code path (repeatable)")
	flags.StringArrayVar(&opts.datasets, "dataset", nil, "dataset as path or name=path; a value naming an existing path is taken as a path (repeatable)")
	flags.StringArrayVar(&opts.docs, "docs", nil, "documentation path (repeatable)")
	flags.StringVar(&opts.model, "model", "", "model path")
	flags.StringVar(&opts.modelName, "model-name", "", "model name")
	flags.StringVar(&opts.framework, "framework", "", "model framework")
	flags.BoolVar(&opts.force, "force", false, "overwrite an existing Kitfile")
	return cmd
}

func (o *initOptions) build(dir string) *kitfile.Kitfile {
	k := kitfile.New()
	k.ManifestVersion = kitfile.Version(o.manifestVersion)

	if o.name != "" || o.version != "" || o.description != "" || len(o.authors) > 0 {
		k.Package = &kitfile.Package{
			Name:        o.name,
			Version:     kitfile.Version(o.version),
			Description: o.description,
			Authors:     o.authors,
		}
	}
	for _, path := range o.code {
		k.Code = append(k.Code, kitfile.CodeEntry{Path: path, License: o.license})
	}
	for _, spec := range o.datasets {
		k.Datasets = append(k.Datasets, datasetEntry(dir, spec, o.license))
	}
	for _, path := range o.docs {
		k.Docs = append(k.Docs, kitfile.DocsEntry{Path: path})
	}
	if o.model != "" {
		k.Model = &kitfile.ModelSection{
			Name:      o.modelName,
			Path:      o.model,
			Framework: o.framework,
			License:   o.license,
		}
	}
	return k
}

// datasetEntry reads a --dataset value. "name=path" is split on the first
// "=" unless the whole value already exists as a path under dir.
func datasetEntry(dir, value, license string) kitfile.DatasetEntry {
	entry := kitfile.DatasetEntry{Path: value, License: license}
	local := value
	if !filepath.IsAbs(local) {
		local = filepath.Join(dir, local)
	}
	if _, err := os.Stat(local); err == nil {
		return entry
	}
	if name, path, ok := strings.Cut(value, "="); ok {
		entry.Name, entry.Path = name, path
	}
	return entry
}

func runKitfileInit(rootOpts *RootOptions, opts *initOptions, dir string, cmd *cobra.Command) error {
	f := rootOpts.formatter(cmd)

	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return f.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("directory %q not found", dir), nil)
	}
	path := filepath.Join(dir, kitfile.DefaultFilename)
	if _, err := os.Stat(path); err == nil && !opts.force {
		return f.Fail(ExitCommandError, ErrCodeInvalidArgs, fmt.Sprintf("%s already exists (use --force to overwrite)", path), nil)
	}

	k := opts.build(dir)
	if err := k.Validate(dir); err != nil {
		if diags, ok := kitfile.Diagnostics(err); ok {
			return reportValidation(f, []ValidationResult{{Path: path, Errors: diags}})
		}
		return f.Fail(ExitCommandError, ErrCodeGeneric, "validate kitfile", err)
	}

	printTo := cmd.OutOrStdout()
	if f.JSON() {
		printTo = nil
	}
	if err := k.Save(path, printTo); err != nil {
		return f.Fail(ExitCommandError, ErrCodeGeneric, "save kitfile", err)
	}
	f.VerboseLog("Wrote %s", path)

	if !f.JSON() {
		return nil
	}
	digest, err := k.Digest()
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeGeneric, "digest kitfile", err)
	}
	return f.Success(KitfileSummary{Path: path, Digest: digest})
}

// NewKitfileShowCommand creates `kitfile show`.
func NewKitfileShowCommand(rootOpts *RootOptions) *cobra.Command {
	var empty bool
	cmd := &cobra.Command{
		Use:   "show <path>",
		Short: "Print a validated Kitfile as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			k, err := loadKitfile(f, args[0])
			if err != nil {
				return err
			}

			var marshalOpts []kitfile.MarshalOption
			if empty {
				marshalOpts = append(marshalOpts, kitfile.WithEmptyValues())
			}
			data, err := k.YAML(marshalOpts...)
			if err != nil {
				return f.Fail(ExitCommandError, ErrCodeGeneric, "serialize kitfile", err)
			}

			if f.JSON() {
				return f.Success(map[string]string{"path": args[0], "yaml": string(data)})
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.Flags().BoolVar(&empty, "empty", false, "include empty fields")
	return cmd
}

// NewKitfileDigestCommand creates `kitfile digest`.
func NewKitfileDigestCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "digest <path>",
		Short: "Print the content digest of a Kitfile",
		Long: `Print the sha256 digest of a Kitfile's canonical JSON form. Formatting,
comments and key order do not change the digest.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			k, err := loadKitfile(f, args[0])
			if err != nil {
				return err
			}
			digest, err := k.Digest()
			if err != nil {
				return f.Fail(ExitCommandError, ErrCodeGeneric, "digest kitfile", err)
			}
			if f.JSON() {
				return f.Success(KitfileSummary{Path: args[0], Digest: digest})
			}
			return f.Success(digest)
		},
	}
}

// loadKitfile loads path, reporting failures with the validate command's
// exit codes.
func loadKitfile(f *OutputFormatter, path string) (*kitfile.Kitfile, error) {
	k, err := kitfile.Load(path)
	if err == nil {
		return k, nil
	}
	if diags, ok := kitfile.Diagnostics(err); ok {
		return nil, reportValidation(f, []ValidationResult{{Path: path, Errors: diags}})
	}
	if errors.Is(err, kitfile.ErrNotFound) {
		return nil, f.Fail(ExitCommandError, kitfile.ErrCodeNotFound, "load kitfile", err)
	}
	return nil, f.Fail(ExitCommandError, ErrCodeGeneric, "load kitfile", err)
}
