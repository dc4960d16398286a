package sphinx

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format selects a Marshal encoding.
type Format string

const (
	FormatYAML   Format = "yaml"
	FormatJSON   Format = "json"
	FormatPython Format = "python"
)

// Marshal encodes the record keyed by conf.py option names, in Keys order.
func (r *Record) Marshal(format Format) ([]byte, error) {
	switch Format(strings.ToLower(string(format))) {
	case FormatYAML, "yml", "":
		return r.marshalYAML()
	case FormatJSON:
		return r.marshalJSON()
	case FormatPython, "py":
		return r.ConfPy(RenderOptions{})
	default:
		return nil, fmt.Errorf("unsupported format %q (yaml|json|python)", format)
	}
}

// marshalYAML goes through yaml.Node so the mapping keeps conf.py order.
func (r *Record) marshalYAML() ([]byte, error) {
	doc := &yaml.Node{Kind: yaml.MappingNode}
	for _, kv := range r.Values() {
		var val yaml.Node
		if err := val.Encode(kv.Value); err != nil {
			return nil, fmt.Errorf("encode %s: %w", kv.Key, err)
		}
		doc.Content = append(doc.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: kv.Key},
			&val,
		)
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (r *Record) marshalJSON() ([]byte, error) {
	var raw bytes.Buffer
	raw.WriteByte('{')
	for i, kv := range r.Values() {
		if i > 0 {
			raw.WriteByte(',')
		}
		key, _ := json.Marshal(kv.Key)
		val, err := json.Marshal(kv.Value)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", kv.Key, err)
		}
		raw.Write(key)
		raw.WriteByte(':')
		raw.Write(val)
	}
	raw.WriteByte('}')

	var out bytes.Buffer
	if err := json.Indent(&out, raw.Bytes(), "", "  "); err != nil {
		return nil, err
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}
