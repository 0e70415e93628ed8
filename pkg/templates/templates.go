// Package templates loads the PR description templates offered when drafting.
package templates

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// DefaultName is used when a draft names no template
const DefaultName = "default"

// ErrNotFound is returned for unknown template names
var ErrNotFound = errors.New("template not found")

// Template is a PR body skeleton. Body may contain the placeholders
// {{summary}}, {{commits}}, {{base}} and {{head}}.
type Template struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
	Body        string `yaml:"body" json:"body"`
}

type file struct {
	Templates []Template `yaml:"templates"`
}

// Set is a read-only collection of templates keyed by name
type Set struct {
	byName map[string]Template
}

// Defaults returns the built-in templates
func Defaults() (*Set, error) {
	return Parse(defaultsYAML)
}

// Load returns the defaults overlaid with the templates in path. An empty
// path yields the defaults alone.
func Load(path string) (*Set, error) {
	set, err := Defaults()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return set, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read templates: %w", err)
	}
	custom, err := Parse(data)
	if err != nil {
		return nil, err
	}
	for name, t := range custom.byName {
		set.byName[name] = t
	}
	return set, nil
}

// Parse decodes a templates YAML document
func Parse(data []byte) (*Set, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	set := &Set{byName: make(map[string]Template, len(f.Templates))}
	for i, t := range f.Templates {
		t.Name = strings.TrimSpace(t.Name)
		if t.Name == "" {
			return nil, fmt.Errorf("template %d has no name", i)
		}
		if _, dup := set.byName[t.Name]; dup {
			return nil, fmt.Errorf("duplicate template %q", t.Name)
		}
		set.byName[t.Name] = t
	}
	return set, nil
}

// Get returns the named template; an empty name means DefaultName
func (s *Set) Get(name string) (Template, error) {
	if name == "" {
		name = DefaultName
	}
	t, ok := s.byName[name]
	if !ok {
		return Template{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return t, nil
}

// List returns all templates sorted by name
func (s *Set) List() []Template {
	out := make([]Template, 0, len(s.byName))
	for _, t := range s.byName {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Render fills the placeholders in t.Body
func (t Template) Render(summary, commits, base, head string) string {
	r := strings.NewReplacer(
		"{{summary}}", summary,
		"{{commits}}", commits,
		"{{base}}", base,
		"{{head}}", head,
	)
	return strings.TrimSpace(r.Replace(t.Body)) + "\n"
}
