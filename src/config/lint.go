package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// LintKind identifies which shape a tslint directive was written in.
type LintKind int

const (
	// LintAbsent means the key was missing or null.
	LintAbsent LintKind = iota
	// LintPath is the string shorthand: enable linting with this rules file.
	LintPath
	// LintFlag is the boolean shorthand.
	LintFlag
	// LintStructured is the object form.
	LintStructured
	// LintMalformed is a value of a shape we do not understand. It is kept
	// apart from LintAbsent so a bad project override does not inherit the
	// global settings.
	LintMalformed
)

func (k LintKind) String() string {
	switch k {
	case LintAbsent:
		return "absent"
	case LintPath:
		return "path"
	case LintFlag:
		return "flag"
	case LintStructured:
		return "object"
	case LintMalformed:
		return "malformed"
	default:
		return fmt.Sprintf("lintkind(%d)", int(k))
	}
}

// LintOptions is the object form of a tslint directive. Every field is
// optional; nil means "not configured at this scope".
type LintOptions struct {
	Autofix   *bool   `yaml:"autofix,omitempty"`
	Enabled   *bool   `yaml:"enabled,omitempty"`
	RulesFile *string `yaml:"rulesFile,omitempty"`
	Tsconfig  *string `yaml:"tsconfig,omitempty"`
}

// LintDirective is a tslint setting at global or project scope.
// It accepts a boolean, a rules file path, or a full object.
//
// Only the field matching Kind is meaningful.
type LintDirective struct {
	Kind    LintKind
	Path    string
	Flag    bool
	Options LintOptions

	// Malformed lists shapes that were ignored while decoding. Decoding
	// never fails on a bad shape; Validate turns these into warnings.
	Malformed []string

	// raw is the node a LintMalformed directive was read from.
	raw *yaml.Node
}

// PathDirective returns a directive in string form.
func PathDirective(path string) LintDirective {
	return LintDirective{Kind: LintPath, Path: path}
}

// FlagDirective returns a directive in boolean form.
func FlagDirective(enabled bool) LintDirective {
	return LintDirective{Kind: LintFlag, Flag: enabled}
}

// OptionsDirective returns a directive in object form.
func OptionsDirective(opts LintOptions) LintDirective {
	return LintDirective{Kind: LintStructured, Options: opts}
}

// Ptr returns a pointer to v. Handy for filling LintOptions.
func Ptr[T any](v T) *T {
	return &v
}

// IsZero reports whether the directive is absent. yaml.v3 uses it for omitempty.
func (d LintDirective) IsZero() bool {
	return d.Kind == LintAbsent
}

// UnmarshalYAML accepts a boolean, a string, or an object. Anything else,
// including an empty string, decodes as LintMalformed and is recorded in
// Malformed.
func (d *LintDirective) UnmarshalYAML(value *yaml.Node) error {
	*d = LintDirective{}

	if value.Kind == yaml.AliasNode && value.Alias != nil {
		return d.UnmarshalYAML(value.Alias)
	}

	switch value.Kind {
	case yaml.ScalarNode:
		switch value.ShortTag() {
		case "!!null":
			return nil
		case "!!bool":
			var b bool
			if err := value.Decode(&b); err != nil {
				return fmt.Errorf("tslint: decode boolean: %w", err)
			}
			d.Kind = LintFlag
			d.Flag = b
		case "!!str":
			if value.Value == "" {
				d.malformed(value, "empty rules file path")
				return nil
			}
			d.Kind = LintPath
			d.Path = value.Value
		default:
			d.malformed(value, fmt.Sprintf("expected boolean, string or object, got %s", describeNode(value)))
		}

	case yaml.MappingNode:
		d.Kind = LintStructured
		d.Options, d.Malformed = decodeLintOptions(value)

	default:
		d.malformed(value, fmt.Sprintf("expected boolean, string or object, got %s", describeNode(value)))
	}
	return nil
}

func (d *LintDirective) malformed(value *yaml.Node, note string) {
	d.Kind = LintMalformed
	d.Malformed = append(d.Malformed, note)
	d.raw = value
}

// MarshalYAML writes the directive back in the shape it was read in. A
// malformed value is written back verbatim.
func (d LintDirective) MarshalYAML() (any, error) {
	switch d.Kind {
	case LintMalformed:
		if d.raw != nil {
			return d.raw, nil
		}
	case LintPath:
		return d.Path, nil
	case LintFlag:
		return d.Flag, nil
	case LintStructured:
		return d.Options, nil
	}
	return nil, nil
}

// decodeLintOptions decodes the object form field by field so a single bad
// field does not throw away the others.
func decodeLintOptions(node *yaml.Node) (LintOptions, []string) {
	var (
		opts  LintOptions
		notes []string
	)

	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		if val.Kind == yaml.AliasNode && val.Alias != nil {
			val = val.Alias
		}

		switch key.Value {
		case "autofix", "enabled":
			if val.Kind != yaml.ScalarNode || val.ShortTag() != "!!bool" {
				notes = append(notes, fmt.Sprintf("%s: expected boolean, got %s", key.Value, describeNode(val)))
				continue
			}
			var b bool
			if err := val.Decode(&b); err != nil {
				notes = append(notes, fmt.Sprintf("%s: %v", key.Value, err))
				continue
			}
			if key.Value == "autofix" {
				opts.Autofix = &b
			} else {
				opts.Enabled = &b
			}

		case "rulesFile", "tsconfig":
			if val.Kind != yaml.ScalarNode || val.ShortTag() != "!!str" {
				notes = append(notes, fmt.Sprintf("%s: expected string, got %s", key.Value, describeNode(val)))
				continue
			}
			s := val.Value
			if key.Value == "rulesFile" {
				opts.RulesFile = &s
			} else {
				opts.Tsconfig = &s
			}

		default:
			notes = append(notes, fmt.Sprintf("unknown key %q", key.Value))
		}
	}

	return opts, notes
}

func describeNode(n *yaml.Node) string {
	switch n.Kind {
	case yaml.ScalarNode:
		return fmt.Sprintf("%s %q", n.ShortTag(), n.Value)
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "object"
	default:
		return "unsupported node"
	}
}
