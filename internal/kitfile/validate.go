package kitfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Validate checks the Kitfile against contextDir, the directory kit packs
// from. All problems are returned together as ValidationErrors.
//
// Absolute entry paths inside contextDir are rewritten relative to it, so
// Validate may modify k.
func (k *Kitfile) Validate(contextDir string) error {
	root, err := filepath.Abs(contextDir)
	if err != nil {
		return fmt.Errorf("resolve context directory: %w", err)
	}

	var errs ValidationErrors

	if strings.TrimSpace(k.ManifestVersion.String()) == "" {
		errs = append(errs, ValidationError{
			Field:   "manifestVersion",
			Message: "manifestVersion is required",
			Code:    ErrCodeManifestVersion,
		})
	}

	for i := range k.Code {
		errs = append(errs, checkPath(root, &k.Code[i].Path, fmt.Sprintf("code[%d].path", i))...)
	}
	for i := range k.Datasets {
		errs = append(errs, checkPath(root, &k.Datasets[i].Path, fmt.Sprintf("datasets[%d].path", i))...)
	}
	for i := range k.Docs {
		errs = append(errs, checkPath(root, &k.Docs[i].Path, fmt.Sprintf("docs[%d].path", i))...)
	}

	if m := k.Model; m != nil {
		errs = append(errs, checkPath(root, &m.Path, "model.path")...)
		for i := range m.Parts {
			errs = append(errs, checkPath(root, &m.Parts[i].Path, fmt.Sprintf("model.parts[%d].path", i))...)
		}
		if m.Parameters != nil {
			params, err := jsonCompatible(m.Parameters, "model.parameters")
			if err != nil {
				errs = append(errs, ValidationError{
					Field:   "model.parameters",
					Message: err.Error(),
					Code:    ErrCodeParameters,
				})
			} else {
				m.Parameters = params
			}
		}
	}

	return errs.orNil()
}

// checkPath validates one entry path against root, rewriting absolute paths
// to be relative.
func checkPath(root string, path *string, field string) []ValidationError {
	p := strings.TrimSpace(*path)
	if p == "" {
		return []ValidationError{{
			Field:   field,
			Message: "path is required",
			Code:    ErrCodePathMissing,
		}}
	}

	if filepath.IsAbs(p) {
		rel, err := filepath.Rel(root, filepath.Clean(p))
		if err != nil || escapes(rel) {
			return []ValidationError{{
				Field:   field,
				Message: fmt.Sprintf("path %q must be inside the context directory %s", p, root),
				Code:    ErrCodePathEscapes,
			}}
		}
		p = filepath.ToSlash(rel)
		*path = p
	} else if escapes(filepath.Clean(p)) {
		return []ValidationError{{
			Field:   field,
			Message: fmt.Sprintf("path %q must be inside the context directory %s", p, root),
			Code:    ErrCodePathEscapes,
		}}
	}

	if _, err := os.Stat(filepath.Join(root, filepath.FromSlash(p))); err != nil {
		return []ValidationError{{
			Field:   field,
			Message: fmt.Sprintf("path %q not found", p),
			Code:    ErrCodePathNotFound,
		}}
	}
	return nil
}

func escapes(rel string) bool {
	return rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
