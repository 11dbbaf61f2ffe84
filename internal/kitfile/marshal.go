package kitfile

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/kitops-ml/kitops-go/internal/canonical"
)

// MarshalOption configures YAML serialization.
type MarshalOption func(*marshalConfig)

type marshalConfig struct {
	includeEmpty bool
}

// WithEmptyValues keeps empty strings, empty lists and absent sections in
// the output instead of suppressing them.
func WithEmptyValues() MarshalOption {
	return func(c *marshalConfig) {
		c.includeEmpty = true
	}
}

// YAML serializes the Kitfile. Keys follow the Kitfile layout rather than
// alphabetical order; model parameters are emitted sorted by key.
func (k *Kitfile) YAML(opts ...MarshalOption) ([]byte, error) {
	var cfg marshalConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	node, err := cfg.kitfileNode(k)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(node); err != nil {
		return nil, fmt.Errorf("encode kitfile: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode kitfile: %w", err)
	}
	return buf.Bytes(), nil
}

// Digest returns "sha256:" followed by the hex SHA-256 of the Kitfile's
// canonical JSON form. Formatting and key order do not affect it.
func (k *Kitfile) Digest() (string, error) {
	data, err := k.YAML()
	if err != nil {
		return "", err
	}
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return "", fmt.Errorf("digest: %w", err)
	}
	if doc == nil {
		doc = map[string]any{}
	}
	doc, err = jsonCompatible(doc, "")
	if err != nil {
		return "", fmt.Errorf("digest: %w", err)
	}
	canon, err := canonical.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("digest: %w", err)
	}
	sum := sha256.Sum256(canon)
	return "sha256:" + hex.EncodeToString(sum[:]), nil
}

func (c marshalConfig) kitfileNode(k *Kitfile) (*yaml.Node, error) {
	m := c.mapping()
	m.str("manifestVersion", k.ManifestVersion.String())

	pkg := k.Package
	if pkg == nil && c.includeEmpty {
		pkg = &Package{}
	}
	if pkg != nil {
		p := c.mapping()
		p.str("name", pkg.Name)
		p.str("version", pkg.Version.String())
		p.str("description", pkg.Description)
		p.strs("authors", pkg.Authors)
		m.child("package", p)
	}

	code := c.sequence()
	for _, e := range k.Code {
		entry := c.mapping()
		entry.str("path", e.Path)
		entry.str("description", e.Description)
		entry.str("license", e.License)
		code.item(entry)
	}
	m.seq("code", code)

	datasets := c.sequence()
	for _, e := range k.Datasets {
		entry := c.mapping()
		entry.str("name", e.Name)
		entry.str("path", e.Path)
		entry.str("description", e.Description)
		entry.str("license", e.License)
		datasets.item(entry)
	}
	m.seq("datasets", datasets)

	docs := c.sequence()
	for _, e := range k.Docs {
		entry := c.mapping()
		entry.str("path", e.Path)
		entry.str("description", e.Description)
		docs.item(entry)
	}
	m.seq("docs", docs)

	switch {
	case k.Model != nil:
		model, err := c.modelNode(k.Model)
		if err != nil {
			return nil, err
		}
		m.child("model", model)
	case c.includeEmpty:
		m.add("model", nullNode())
	}

	return m.node, nil
}

func (c marshalConfig) modelNode(model *ModelSection) (*mappingBuilder, error) {
	m := c.mapping()
	m.str("name", model.Name)
	m.str("path", model.Path)
	m.str("framework", model.Framework)
	m.str("version", model.Version.String())
	m.str("description", model.Description)
	m.str("license", model.License)

	parts := c.sequence()
	for _, p := range model.Parts {
		part := c.mapping()
		part.str("path", p.Path)
		part.str("name", p.Name)
		part.str("type", p.Type)
		parts.item(part)
	}
	m.seq("parts", parts)

	switch {
	case model.Parameters != nil:
		params, err := jsonCompatible(model.Parameters, "model.parameters")
		if err != nil {
			return nil, err
		}
		var node yaml.Node
		if err := node.Encode(params); err != nil {
			return nil, fmt.Errorf("encode model.parameters: %w", err)
		}
		m.add("parameters", &node)
	case c.includeEmpty:
		m.add("parameters", nullNode())
	}
	return m, nil
}

// mappingBuilder appends key/value pairs to a mapping node, dropping empty
// values unless includeEmpty is set.
type mappingBuilder struct {
	node         *yaml.Node
	includeEmpty bool
}

func (c marshalConfig) mapping() *mappingBuilder {
	return &mappingBuilder{
		node:         &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"},
		includeEmpty: c.includeEmpty,
	}
}

func (m *mappingBuilder) empty() bool {
	return len(m.node.Content) == 0
}

func (m *mappingBuilder) add(key string, value *yaml.Node) {
	m.node.Content = append(m.node.Content, strNode(key), value)
}

func (m *mappingBuilder) str(key, value string) {
	if value == "" && !m.includeEmpty {
		return
	}
	m.add(key, strNode(value))
}

func (m *mappingBuilder) strs(key string, values []string) {
	if len(values) == 0 && !m.includeEmpty {
		return
	}
	seq := &sequenceBuilder{node: &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}}
	for _, v := range values {
		seq.node.Content = append(seq.node.Content, strNode(v))
	}
	m.seq(key, seq)
}

func (m *mappingBuilder) child(key string, child *mappingBuilder) {
	if child.empty() && !m.includeEmpty {
		return
	}
	m.add(key, child.node)
}

func (m *mappingBuilder) seq(key string, seq *sequenceBuilder) {
	if len(seq.node.Content) == 0 {
		if !m.includeEmpty {
			return
		}
		seq.node.Style = yaml.FlowStyle
	}
	m.add(key, seq.node)
}

type sequenceBuilder struct {
	node *yaml.Node
}

func (c marshalConfig) sequence() *sequenceBuilder {
	return &sequenceBuilder{node: &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}}
}

func (s *sequenceBuilder) item(m *mappingBuilder) {
	s.node.Content = append(s.node.Content, m.node)
}

func strNode(value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value}
}

func nullNode() *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
}
