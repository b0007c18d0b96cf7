package routes

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type tableFile struct {
	Routes []Rule `yaml:"routes"`
}

// UnmarshalYAML reads a category by name ("public", "auth-only", "protected").
func (c *Category) UnmarshalYAML(value *yaml.Node) error {
	var name string
	if err := value.Decode(&name); err != nil {
		return err
	}
	parsed, err := ParseCategory(name)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// MarshalYAML writes a category by name.
func (c Category) MarshalYAML() (interface{}, error) {
	return c.String(), nil
}

// Parse builds a Table from a YAML document of the form
//
//	routes:
//	  - prefix: /login
//	    category: auth-only
//	  - prefix: /admin
//	    category: protected
//	    role: ADMIN
func Parse(data []byte) (*Table, error) {
	var f tableFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse route table: %w", err)
	}
	if len(f.Routes) == 0 {
		return nil, fmt.Errorf("parse route table: no routes defined")
	}
	return NewTable(f.Routes)
}

// LoadFile reads a route table from a YAML file.
func LoadFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read route table: %w", err)
	}
	return Parse(data)
}
