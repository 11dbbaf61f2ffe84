package kitfile

import (
	"strconv"

	"gopkg.in/yaml.v3"
)

// DefaultFilename is the name kit looks for in a ModelKit context directory.
const DefaultFilename = "Kitfile"

// AllowedKeys lists the top-level keys a Kitfile may contain, in the order
// they are serialized.
var AllowedKeys = []string{"manifestVersion", "package", "code", "datasets", "docs", "model"}

// Kitfile is the manifest describing the contents of a ModelKit.
type Kitfile struct {
	// ManifestVersion specifies the manifest format version.
	ManifestVersion Version `yaml:"manifestVersion"`

	// Package provides general information about the AI/ML project.
	Package *Package `yaml:"package,omitempty"`

	Code     []CodeEntry    `yaml:"code,omitempty"`
	Datasets []DatasetEntry `yaml:"datasets,omitempty"`
	Docs     []DocsEntry    `yaml:"docs,omitempty"`

	// Model holds details of the trained model included in the package.
	Model *ModelSection `yaml:"model,omitempty"`
}

// Package is the general information section of a Kitfile.
type Package struct {
	Name        string   `yaml:"name,omitempty"`
	Version     Version  `yaml:"version,omitempty"`
	Description string   `yaml:"description,omitempty"`
	Authors     []string `yaml:"authors,omitempty"`
}

// CodeEntry describes source code included in the ModelKit.
type CodeEntry struct {
	// Path is the location of the code relative to the context directory.
	Path        string `yaml:"path"`
	Description string `yaml:"description,omitempty"`
	// License is an SPDX license identifier.
	License string `yaml:"license,omitempty"`
}

// DatasetEntry describes a dataset included in the ModelKit.
type DatasetEntry struct {
	Name        string `yaml:"name,omitempty"`
	Path        string `yaml:"path"`
	Description string `yaml:"description,omitempty"`
	License     string `yaml:"license,omitempty"`
}

// DocsEntry describes documentation included in the ModelKit.
type DocsEntry struct {
	Path        string `yaml:"path"`
	Description string `yaml:"description,omitempty"`
}

// ModelSection describes the trained model.
type ModelSection struct {
	Name        string      `yaml:"name,omitempty"`
	Path        string      `yaml:"path"`
	Framework   string      `yaml:"framework,omitempty"`
	Version     Version     `yaml:"version,omitempty"`
	Description string      `yaml:"description,omitempty"`
	License     string      `yaml:"license,omitempty"`
	Parts       []ModelPart `yaml:"parts,omitempty"`

	// Parameters is an arbitrary JSON-compatible section of YAML for any
	// additional model data. Maps are serialized sorted by key and numbers
	// in decimal form.
	Parameters any `yaml:"parameters,omitempty"`
}

// ModelPart is a file related to the model, such as LoRA weights.
type ModelPart struct {
	Path string `yaml:"path"`
	Name string `yaml:"name,omitempty"`
	Type string `yaml:"type,omitempty"`
}

// New returns an empty Kitfile. ManifestVersion must be set before it
// validates.
func New() *Kitfile {
	return &Kitfile{}
}

// Version is a version string that also accepts numeric YAML scalars such as
// 1.0, keeping their literal text.
type Version string

// UnmarshalYAML accepts any non-null scalar.
func (v *Version) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return &yaml.TypeError{Errors: []string{
			"line " + strconv.Itoa(node.Line) + ": version must be a scalar value",
		}}
	}
	if node.Tag == "!!null" {
		*v = ""
		return nil
	}
	*v = Version(node.Value)
	return nil
}

func (v Version) String() string {
	return string(v)
}
