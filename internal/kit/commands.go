package kit

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
)

// Info prints the Kitfile of a ModelKit: `kit info REF [--filter F]...`.
func (c *Client) Info(ctx context.Context, ref string, filters []string, flags Flags) error {
	if err := ValidateReference(ref); err != nil {
		return err
	}
	return c.run(ctx, "info", append([]string{ref}, repeated("--filter", filters)...), flags, "", nil)
}

// Inspect prints the manifest of a ModelKit: `kit inspect REF`. With remote
// set, the registry is queried instead of local storage.
func (c *Client) Inspect(ctx context.Context, ref string, remote bool, flags Flags) error {
	if err := ValidateReference(ref); err != nil {
		return err
	}
	if remote {
		flags = flags.With("remote", true)
	}
	return c.run(ctx, "inspect", []string{ref}, flags, "", nil)
}

// List lists ModelKits: `kit list [REPO]`. An empty repo lists local
// storage; otherwise repo must not carry a tag.
func (c *Client) List(ctx context.Context, repo string, flags Flags) error {
	var args []string
	if repo != "" {
		if err := ValidateRepository(repo); err != nil {
			return err
		}
		args = append(args, repo)
	}
	return c.run(ctx, "list", args, flags, "", nil)
}

// Login authenticates with a registry, passing the password on stdin:
// `kit login REGISTRY --username USER --password-stdin`.
func (c *Client) Login(ctx context.Context, user, password, registry string, flags Flags) error {
	if registry == "" {
		registry = DefaultRegistry
	}
	if err := ValidateRegistry(registry); err != nil {
		return err
	}
	if user == "" {
		return errors.New("login: username is required")
	}
	if password == "" {
		return errors.New("login: password is required")
	}
	args := []string{registry, "--username", user, "--password-stdin"}
	return c.run(ctx, "login", args, flags, password, nil)
}

// Logout removes stored credentials: `kit logout REGISTRY`.
func (c *Client) Logout(ctx context.Context, registry string, flags Flags) error {
	if registry == "" {
		registry = DefaultRegistry
	}
	if err := ValidateRegistry(registry); err != nil {
		return err
	}
	return c.run(ctx, "logout", []string{registry}, flags, "", nil)
}

// Pack packs the current directory into a ModelKit: `kit pack . --tag REF`.
func (c *Client) Pack(ctx context.Context, ref string, flags Flags) error {
	if err := ValidateReference(ref); err != nil {
		return err
	}
	return c.run(ctx, "pack", []string{".", "--tag", ref}, flags, "", nil)
}

// Pull fetches a ModelKit from its registry: `kit pull REF`.
func (c *Client) Pull(ctx context.Context, ref string, flags Flags) error {
	if err := ValidateReference(ref); err != nil {
		return err
	}
	return c.run(ctx, "pull", []string{ref}, flags, "", nil)
}

// Push uploads a ModelKit to its registry: `kit push REF`.
func (c *Client) Push(ctx context.Context, ref string, flags Flags) error {
	if err := ValidateReference(ref); err != nil {
		return err
	}
	return c.run(ctx, "push", []string{ref}, flags, "", nil)
}

// Remove deletes a ModelKit: `kit remove REF`. A non-zero exit, which kit
// reports when the ModelKit is not present, is ignored.
func (c *Client) Remove(ctx context.Context, ref string, flags Flags) error {
	if err := ValidateReference(ref); err != nil {
		return err
	}
	err := c.run(ctx, "remove", []string{ref}, flags, "", nil)
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		c.logger.WithField("ref", ref).WithError(err).Debug("ignoring kit remove failure")
		return nil
	}
	return err
}

// Unpack extracts a ModelKit into dir:
// `kit unpack --dir DIR REF [--filter F]...`.
func (c *Client) Unpack(ctx context.Context, ref, dir string, filters []string, flags Flags) error {
	if err := ValidateReference(ref); err != nil {
		return err
	}
	if dir == "" {
		return errors.New("unpack: directory is required")
	}
	args := append([]string{"--dir", dir, ref}, repeated("--filter", filters)...)
	return c.run(ctx, "unpack", args, flags, "", nil)
}

// Version prints and parses the kit CLI version: `kit version`.
func (c *Client) Version(ctx context.Context, flags Flags) (VersionInfo, error) {
	var out bytes.Buffer
	if err := c.run(ctx, "version", nil, flags, "", io.MultiWriter(c.stdout, &out)); err != nil {
		return VersionInfo{Raw: out.String()}, err
	}
	return ParseVersionOutput(strings.TrimSpace(out.String())), nil
}

// RequireVersion fails with ErrVersionUnsupported unless the installed kit
// satisfies constraint.
func (c *Client) RequireVersion(ctx context.Context, constraint string) (VersionInfo, error) {
	info, err := c.Version(ctx, nil)
	if err != nil {
		return info, err
	}
	return info, info.Check(constraint)
}
