package kv

import (
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// UnmarshalYAML keeps mapping key order, which plain map decoding loses.
func (r *Record) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.DocumentNode && len(node.Content) == 1 {
		node = node.Content[0]
	}
	if node.Kind != yaml.MappingNode {
		return errors.Errorf("line %d: expected mapping, got kind %d", node.Line, node.Kind)
	}
	r.keys = nil
	r.values = make(map[string]interface{}, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		var key string
		if err := node.Content[i].Decode(&key); err != nil {
			return errors.Wrapf(err, "line %d: key", node.Content[i].Line)
		}
		v, err := decodeNode(node.Content[i+1])
		if err != nil {
			return errors.Wrapf(err, "%q", key)
		}
		r.Set(key, v)
	}
	return nil
}

func decodeNode(node *yaml.Node) (interface{}, error) {
	switch node.Kind {
	case yaml.MappingNode:
		sub := New()
		if err := sub.UnmarshalYAML(node); err != nil {
			return nil, err
		}
		return sub, nil
	case yaml.SequenceNode:
		arr := make([]interface{}, len(node.Content))
		for i, item := range node.Content {
			v, err := decodeNode(item)
			if err != nil {
				return nil, errors.Wrapf(err, "[%d]", i)
			}
			arr[i] = v
		}
		return arr, nil
	case yaml.AliasNode:
		return decodeNode(node.Alias)
	case yaml.ScalarNode:
		if node.Tag == "!!binary" {
			var b []byte
			if err := node.Decode(&b); err != nil {
				return nil, err
			}
			return b, nil
		}
		var v interface{}
		if err := node.Decode(&v); err != nil {
			return nil, err
		}
		return v, nil
	}
	return nil, errors.Errorf("line %d: unsupported node kind %d", node.Line, node.Kind)
}

func (r *Record) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, key := range r.keys {
		var kn, vn yaml.Node
		if err := kn.Encode(key); err != nil {
			return nil, err
		}
		if err := vn.Encode(r.values[key]); err != nil {
			return nil, errors.Wrapf(err, "%q", key)
		}
		node.Content = append(node.Content, &kn, &vn)
	}
	return node, nil
}

// Parse decodes a yaml document into a record.
func Parse(data []byte) (*Record, error) {
	r := New()
	if err := yaml.Unmarshal(data, r); err != nil {
		return nil, err
	}
	return r, nil
}
