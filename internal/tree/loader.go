package tree

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nerrad567/gray-logic-dictionary/internal/access"
	"github.com/nerrad567/gray-logic-dictionary/internal/value"
)

// Definition is a declarative dictionary layout, normally loaded from YAML:
//
//	nodes:
//	  - uri: laser1:enable
//	    type: bool
//	    write_level: service
//	  - uri: laser1:power
//	    type: float
//	    initial: 0.5
//	  - uri: laser1:fire
//	    kind: event
//	    write_level: service
//	  - uri: system:uptime
//	    type: int
//	    read_only: true
type Definition struct {
	Nodes []NodeDefinition `yaml:"nodes"`
}

// NodeDefinition declares one node. Kind defaults to "parameter".
type NodeDefinition struct {
	URI         string           `yaml:"uri"`
	Kind        string           `yaml:"kind"`
	Type        value.Kind       `yaml:"type"`
	Initial     any              `yaml:"initial"`
	ReadOnly    bool             `yaml:"read_only"`
	ReadLevel   access.Userlevel `yaml:"read_level"`
	WriteLevel  access.Userlevel `yaml:"write_level"`
	Description string           `yaml:"description"`
}

// LoadDefinition reads a YAML definition file.
func LoadDefinition(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading definition %s: %w", path, err)
	}
	def, err := ParseDefinition(data)
	if err != nil {
		return nil, fmt.Errorf("definition %s: %w", path, err)
	}
	return def, nil
}

// ParseDefinition decodes a YAML definition. Unknown fields are rejected.
func ParseDefinition(data []byte) (*Definition, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var def Definition
	if err := dec.Decode(&def); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing definition: %w", err)
	}
	return &def, nil
}

// Populate creates every declared node in t, in declaration order.
// Hooks are attached to parameters by canonical URI.
func (d *Definition) Populate(t *Tree, hooks map[string]Hook) error {
	for i, n := range d.Nodes {
		if err := n.apply(t, hooks); err != nil {
			return fmt.Errorf("node %d (%s): %w", i, n.URI, err)
		}
	}
	return nil
}

func (n NodeDefinition) apply(t *Tree, hooks map[string]Hook) error {
	uri, err := Canonical(n.URI)
	if err != nil {
		return err
	}

	switch strings.ToLower(n.Kind) {
	case "container":
		_, err = t.MakeContainers(uri)
		return err

	case "event":
		_, err = t.DefineEvent(uri, EventSpec{Level: n.WriteLevel, Description: n.Description})
		return err

	case "", "parameter":
		spec := ParameterSpec{
			Type:        n.Type,
			ReadOnly:    n.ReadOnly,
			ReadLevel:   n.ReadLevel,
			WriteLevel:  n.WriteLevel,
			OnChange:    hooks[uri],
			Description: n.Description,
		}
		if n.Initial != nil {
			if spec.Initial, err = value.FromNative(n.Type, n.Initial); err != nil {
				return fmt.Errorf("initial value: %w", err)
			}
		}
		_, err = t.DefineParameter(uri, spec)
		return err

	default:
		return fmt.Errorf("unknown node kind %q", n.Kind)
	}
}
