package kit

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/go-containerregistry/pkg/name"
)

// DefaultRegistry is used by Login and Logout when no registry is given.
const DefaultRegistry = "jozu.ml"

// ErrInvalidReference is returned for malformed ModelKit references.
var ErrInvalidReference = errors.New("invalid ModelKit reference")

// ValidateReference checks a ModelKit reference such as
// "jozu.ml/org/model:v1" or "org/model@sha256:...".
func ValidateReference(ref string) error {
	if strings.TrimSpace(ref) == "" {
		return fmt.Errorf("%w: reference is empty", ErrInvalidReference)
	}
	if _, err := name.ParseReference(ref, name.WeakValidation); err != nil {
		return fmt.Errorf("%w %q: %v", ErrInvalidReference, ref, err)
	}
	return nil
}

// ValidateRepository checks a repository reference without a tag or digest,
// as accepted by List.
func ValidateRepository(repo string) error {
	if strings.ContainsAny(repo, "@") {
		return fmt.Errorf("%w %q: repository must not include a digest", ErrInvalidReference, repo)
	}
	if _, err := name.NewRepository(repo, name.WeakValidation); err != nil {
		return fmt.Errorf("%w %q: %v", ErrInvalidReference, repo, err)
	}
	return nil
}

// ValidateRegistry checks a registry host such as "jozu.ml" or
// "localhost:5000".
func ValidateRegistry(registry string) error {
	if _, err := name.NewRegistry(registry, name.WeakValidation); err != nil {
		return fmt.Errorf("%w: registry %q: %v", ErrInvalidReference, registry, err)
	}
	return nil
}
