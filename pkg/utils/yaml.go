// pkg/utils/yaml.go - YAML helpers for the summary file.

package utils

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// LiteralString always marshals as a literal block scalar so multi-line
// script and log excerpts stay readable.
type LiteralString string

// MarshalYAML implements the yaml.Marshaler interface.
func (ls LiteralString) MarshalYAML() (interface{}, error) {
	value := string(ls)
	if value == "" {
		return value, nil
	}
	return &yaml.Node{
		Kind:  yaml.ScalarNode,
		Tag:   "!!str",
		Value: value,
		Style: yaml.LiteralStyle,
	}, nil
}

// UnmarshalYAML implements the yaml.Unmarshaler interface.
func (ls *LiteralString) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("cannot unmarshal %v into LiteralString", node.Kind)
	}
	*ls = LiteralString(node.Value)
	return nil
}
