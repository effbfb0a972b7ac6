package config

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Migrate takes a config document in any supported format and returns the
// canonical YAML form. Shorthands survive the round trip: path-only projects
// stay bare strings and tslint directives keep their shape.
//
// Malformed tslint values are written back unchanged, so callers should
// Validate first if they want to report them.
func Migrate(data []byte, from Format) ([]byte, error) {
	cfg, err := Parse(data, from)
	if err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return nil, fmt.Errorf("migrate: encoding yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("migrate: encoding yaml: %w", err)
	}
	return buf.Bytes(), nil
}
