package config

import "gopkg.in/yaml.v3"

// ProjectDescriptor is one entry of the projects list. Path is the identity
// of a project; everything else is an optional override of the global value.
type ProjectDescriptor struct {
	Path     string        `yaml:"path" validate:"required"`
	Compiler string        `yaml:"compiler,omitempty"`
	NoEmit   *bool         `yaml:"noEmit,omitempty"`
	Tslint   LintDirective `yaml:"tslint,omitempty"`
	Tsconfig string        `yaml:"tsconfig,omitempty"`
}

// UnmarshalYAML accepts the bare path shorthand as well as the object form.
// Only a string is a path: any other scalar (a number, null) leaves Path
// empty so Validate and PrepareProjects reject the entry.
func (p *ProjectDescriptor) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		*p = ProjectDescriptor{}
		if value.ShortTag() == "!!str" {
			p.Path = value.Value
		}
		return nil
	}

	type plain ProjectDescriptor
	return value.Decode((*plain)(p))
}

// MarshalYAML writes path-only descriptors back as the shorthand string.
func (p ProjectDescriptor) MarshalYAML() (any, error) {
	if p.Compiler == "" && p.NoEmit == nil && p.Tslint.IsZero() && p.Tsconfig == "" {
		return p.Path, nil
	}

	type plain ProjectDescriptor
	return plain(p), nil
}
