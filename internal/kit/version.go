package kit

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// ErrVersionUnsupported is returned by RequireVersion when the installed kit
// does not satisfy the constraint.
var ErrVersionUnsupported = errors.New("unsupported kit version")

// VersionInfo is the parsed output of `kit version`.
type VersionInfo struct {
	// Raw is the full text kit printed.
	Raw string
	// Semver is nil when the output carries no parseable version, as with
	// development builds.
	Semver *semver.Version
}

var versionLineRe = regexp.MustCompile(`(?m)^\s*Version:\s*(\S+)`)

// ParseVersionOutput extracts the version from `kit version` output.
func ParseVersionOutput(out string) VersionInfo {
	info := VersionInfo{Raw: out}
	m := versionLineRe.FindStringSubmatch(out)
	if m == nil {
		return info
	}
	if v, err := semver.NewVersion(strings.TrimPrefix(m[1], "v")); err == nil {
		info.Semver = v
	}
	return info
}

// Check verifies the version against a semver constraint such as ">= 1.0".
func (v VersionInfo) Check(constraint string) error {
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return fmt.Errorf("parse version constraint %q: %w", constraint, err)
	}
	if v.Semver == nil {
		return fmt.Errorf("%w: could not determine kit version from %q", ErrVersionUnsupported, strings.TrimSpace(v.Raw))
	}
	if !c.Check(v.Semver) {
		return fmt.Errorf("%w: kit %s does not satisfy %q", ErrVersionUnsupported, v.Semver, constraint)
	}
	return nil
}
