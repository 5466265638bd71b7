// Package templates holds the content templates and the feedback selector
// that scores them against posting history.
package templates

import (
	"fmt"
	"os"

	yaml "go.yaml.in/yaml/v3"
)

// Template is a content seed. Read-only to the orchestrator.
type Template struct {
	ID      string   `json:"id" yaml:"id"`
	Name    string   `json:"name" yaml:"name"`
	Content string   `json:"content" yaml:"content"`
	Tags    []string `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// Store lists the available templates.
type Store interface {
	List() ([]Template, error)
}

// FileStore reads templates from a YAML file holding a list of templates.
type FileStore struct {
	Path string
}

func (s FileStore) List() ([]Template, error) {
	b, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("templates: read %s: %w", s.Path, err)
	}
	var tpls []Template
	if err := yaml.Unmarshal(b, &tpls); err != nil {
		return nil, fmt.Errorf("templates: parse %s: %w", s.Path, err)
	}
	return tpls, nil
}

// StaticStore serves a fixed template list (tests, embedded setups).
type StaticStore []Template

func (s StaticStore) List() ([]Template, error) {
	out := make([]Template, len(s))
	copy(out, s)
	return out, nil
}
