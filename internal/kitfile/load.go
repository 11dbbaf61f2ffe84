package kitfile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads, parses and validates the Kitfile at path. If path is a
// directory, the Kitfile inside it is loaded. Entry paths are validated
// relative to the directory containing the Kitfile.
func Load(path string) (*Kitfile, error) {
	info, err := os.Stat(path)
	if err == nil && info.IsDir() {
		path = filepath.Join(path, DefaultFilename)
		info, err = os.Stat(path)
	}
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: path %q does not exist", ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("stat kitfile: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("kitfile %q is a directory", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read kitfile: %w", err)
	}

	kf, err := Parse(data)
	if err != nil {
		return nil, err
	}
	if err := kf.Validate(filepath.Dir(path)); err != nil {
		return nil, err
	}
	return kf, nil
}

// Parse decodes a YAML Kitfile and checks its structure. It does not touch
// the filesystem; call Validate to check entry paths.
func Parse(data []byte) (*Kitfile, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, newParseError(err)
	}
	if len(doc.Content) == 0 {
		return nil, ValidationErrors{{
			Field:   "kitfile",
			Message: "Kitfile is empty",
			Code:    ErrCodeSchema,
		}}
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, ValidationErrors{{
			Field:   "kitfile",
			Message: "Kitfile must be a mapping with allowed keys: " + strings.Join(AllowedKeys, ", "),
			Code:    ErrCodeSchema,
			Line:    root.Line,
		}}
	}
	if err := checkKeys(root); err != nil {
		return nil, err
	}

	var raw map[string]any
	if err := root.Decode(&raw); err != nil {
		return nil, newParseError(err)
	}
	normalized, err := jsonCompatible(raw, "")
	if err != nil {
		code := ErrCodeSchema
		if strings.HasPrefix(err.Error(), "model.parameters") {
			code = ErrCodeParameters
		}
		return nil, ValidationErrors{{Field: "kitfile", Message: err.Error(), Code: code}}
	}
	if err := checkSchema(normalized.(map[string]any)); err != nil {
		return nil, err
	}

	kf := New()
	if err := root.Decode(kf); err != nil {
		return nil, newParseError(err)
	}
	if kf.Model != nil && kf.Model.Parameters != nil {
		// Already checked above as part of the whole document.
		kf.Model.Parameters, _ = jsonCompatible(kf.Model.Parameters, "model.parameters")
	}
	return kf, nil
}

// checkKeys rejects top-level keys outside AllowedKeys.
func checkKeys(root *yaml.Node) error {
	var errs ValidationErrors
	for i := 0; i+1 < len(root.Content); i += 2 {
		key := root.Content[i]
		if slices.Contains(AllowedKeys, key.Value) {
			continue
		}
		errs = append(errs, ValidationError{
			Field: key.Value,
			Message: fmt.Sprintf("unknown key %q: Kitfile must be a mapping with allowed keys: %s",
				key.Value, strings.Join(AllowedKeys, ", ")),
			Code: ErrCodeUnknown,
			Line: key.Line,
		})
	}
	return errs.orNil()
}

var yamlLineRe = regexp.MustCompile(`line (\d+)`)

func newParseError(err error) *ParseError {
	perr := &ParseError{Err: err}
	if m := yamlLineRe.FindStringSubmatch(err.Error()); m != nil {
		perr.Line, _ = strconv.Atoi(m[1])
	}
	return perr
}
