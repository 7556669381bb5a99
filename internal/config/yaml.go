// internal/config/yaml.go
package config

import (
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Names holds device names. YAML accepts a single string or a sequence;
// a single string is used as a prefix when devices are multiplexed.
type Names struct {
	Values []string
	Single bool
}

func (n *Names) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*n = Names{Values: []string{node.Value}, Single: true}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return err
		}
		*n = Names{Values: list}
		return nil
	default:
		return fmt.Errorf("line %d: name must be a string or a list of strings", node.Line)
	}
}

// ModeEntry is one mode name and the raw value the device uses for it.
type ModeEntry struct {
	Name  string
	Value int64
}

// ModeMap keeps mode entries in declaration order.
// Order matters: it is the preference order when values collide.
type ModeMap []ModeEntry

func (m *ModeMap) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: mode map must be a mapping", node.Line)
	}

	out := make(ModeMap, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		k, v := node.Content[i], node.Content[i+1]

		val, err := strconv.ParseInt(v.Value, 0, 64)
		if err != nil {
			return fmt.Errorf("line %d: mode %q: value %q is not an integer", v.Line, k.Value, v.Value)
		}
		out = append(out, ModeEntry{Name: k.Value, Value: val})
	}

	*m = out
	return nil
}
