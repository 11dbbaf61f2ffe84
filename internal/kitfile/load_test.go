package kitfile

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fullKitfile = "testdata/full/Kitfile"

func TestLoadFullKitfile(t *testing.T) {
	kf, err := Load(fullKitfile)
	require.NoError(t, err)

	assert.Equal(t, Version("1.0"), kf.ManifestVersion)
	require.NotNil(t, kf.Package)
	assert.Equal(t, "my_package", kf.Package.Name)
	assert.Equal(t, Version("0.1.0"), kf.Package.Version)
	assert.Equal(t, []string{"Author 1", "Author 2"}, kf.Package.Authors)

	require.Len(t, kf.Code, 1)
	assert.Equal(t, "code/", kf.Code[0].Path)
	assert.Equal(t, "Apache-2.0", kf.Code[0].License)

	require.Len(t, kf.Datasets, 1)
	assert.Equal(t, "my_dataset", kf.Datasets[0].Name)

	require.Len(t, kf.Docs, 1)
	assert.Equal(t, "Docs description", kf.Docs[0].Description)

	require.NotNil(t, kf.Model)
	assert.Equal(t, "tensorflow", kf.Model.Framework)
	require.Len(t, kf.Model.Parts, 1)
	assert.Equal(t, "LoRA weights", kf.Model.Parts[0].Type)

	params, ok := kf.Model.Parameters.(map[string]any)
	require.True(t, ok, "parameters should decode to a string-keyed map")
	assert.Equal(t, 10, params["epochs"])
	assert.Equal(t, 0.001, params["learning_rate"])
	assert.Equal(t, []any{64, 32}, params["layers"])
}

func TestLoadDirectory(t *testing.T) {
	kf, err := Load(filepath.Dir(fullKitfile))
	require.NoError(t, err)
	assert.Equal(t, "my_package", kf.Package.Name)
}

func TestLoadNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "Kitfile"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "does not exist")

	_, ok := Diagnostics(err)
	assert.False(t, ok)
}

func TestLoadValidatesAgainstKitfileDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "Kitfile"), "manifestVersion: 1.0\ncode:\n  - path: src\n")

	_, err := Load(filepath.Join(dir, "Kitfile"))
	require.Error(t, err)
	verrs, ok := Diagnostics(err)
	require.True(t, ok)
	require.Len(t, verrs, 1)
	assert.Equal(t, ErrCodePathNotFound, verrs[0].Code)
	assert.Equal(t, "code[0].path", verrs[0].Field)

	require.NoError(t, os.Mkdir(filepath.Join(dir, "src"), 0o755))
	_, err = Load(filepath.Join(dir, "Kitfile"))
	require.NoError(t, err)
}

func TestParseNumericVersionsKeepText(t *testing.T) {
	kf, err := Parse([]byte("manifestVersion: 2\npackage:\n  version: 1.10\nmodel:\n  path: m\n  version: 0.0\n"))
	require.NoError(t, err)
	assert.Equal(t, Version("2"), kf.ManifestVersion)
	assert.Equal(t, Version("1.10"), kf.Package.Version)
	assert.Equal(t, Version("0.0"), kf.Model.Version)
}

func TestParseMalformedYAML(t *testing.T) {
	_, err := Parse([]byte("manifestVersion: 1.0\npackage:\n  name: [unclosed\n"))
	require.Error(t, err)

	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.Greater(t, perr.Line, 0)
	assert.Contains(t, err.Error(), "Error parsing Kitfile at line")

	verrs, ok := Diagnostics(err)
	require.True(t, ok)
	require.Len(t, verrs, 1)
	assert.Equal(t, ErrCodeParse, verrs[0].Code)
}

func TestParseUnknownKeys(t *testing.T) {
	_, err := Parse([]byte("manifestVersion: 1.0\nfoo: bar\nmodels: {}\n"))
	require.Error(t, err)

	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))
	require.Len(t, verrs, 2)
	assert.Equal(t, ErrCodeUnknown, verrs[0].Code)
	assert.Equal(t, "foo", verrs[0].Field)
	assert.Equal(t, 2, verrs[0].Line)
	assert.Equal(t, "models", verrs[1].Field)
	assert.Contains(t, verrs[0].Message, "allowed keys: manifestVersion, package, code, datasets, docs, model")
}

func TestParseRejectsNonMapping(t *testing.T) {
	for name, doc := range map[string]string{
		"empty":    "",
		"sequence": "- a\n- b\n",
		"scalar":   "hello\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			require.Error(t, err)
			verrs, ok := Diagnostics(err)
			require.True(t, ok)
			assert.Equal(t, ErrCodeSchema, verrs[0].Code)
		})
	}
}

func TestParseSchemaErrors(t *testing.T) {
	tests := []struct {
		name  string
		doc   string
		field string
	}{
		{"code not a list", "manifestVersion: 1.0\ncode: notalist\n", "code"},
		{"unknown package field", "manifestVersion: 1.0\npackage:\n  nmae: typo\n", "package"},
		{"authors not strings", "manifestVersion: 1.0\npackage:\n  authors:\n    - {a: b}\n", "package"},
		{"manifestVersion a map", "manifestVersion: {a: 1}\n", "manifestVersion"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.Error(t, err)

			var verrs ValidationErrors
			require.True(t, errors.As(err, &verrs), "expected validation errors, got %v", err)
			require.NotEmpty(t, verrs)
			found := false
			for _, e := range verrs {
				assert.Equal(t, ErrCodeSchema, e.Code)
				if len(e.Field) >= len(tt.field) && e.Field[:len(tt.field)] == tt.field {
					found = true
				}
			}
			assert.True(t, found, "no error for field %q in %v", tt.field, verrs)
		})
	}
}

func TestParseParametersNonStringKeys(t *testing.T) {
	_, err := Parse([]byte("manifestVersion: 1.0\nmodel:\n  path: m\n  parameters:\n    1: one\n"))
	require.Error(t, err)

	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))
	require.Len(t, verrs, 1)
	assert.Equal(t, ErrCodeParameters, verrs[0].Code)
	assert.Contains(t, verrs[0].Message, "not a string")
}

func TestParseIsSafeForConcurrentUse(t *testing.T) {
	data, err := os.ReadFile(fullKitfile)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = Parse(data)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestParseParametersNonFinite(t *testing.T) {
	for _, lit := range []string{".inf", "-.inf", ".nan"} {
		t.Run(lit, func(t *testing.T) {
			_, err := Parse([]byte("manifestVersion: 1.0\nmodel:\n  path: m\n  parameters:\n    lr: " + lit + "\n"))
			require.Error(t, err)

			var verrs ValidationErrors
			require.True(t, errors.As(err, &verrs))
			require.Len(t, verrs, 1)
			assert.Equal(t, ErrCodeParameters, verrs[0].Code)
			assert.Contains(t, verrs[0].Message, "not a JSON number")
		})
	}
}
