package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// DefaultFiles are tried in order when no config path is given.
var DefaultFiles = []string{
	".tswatch.yml",
	".tswatch.yaml",
	"tswatch.json",
	".tswatch.toml",
}

// Format is a config file encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
	FormatTOML Format = "toml"
)

// Config is the top-level tswatch configuration: shared defaults plus the
// list of projects to watch.
type Config struct {
	Debug                     bool                `yaml:"debug,omitempty"`
	Watch                     bool                `yaml:"watch,omitempty"`
	Compiler                  string              `yaml:"compiler,omitempty"`
	CompilerVersion           string              `yaml:"compilerVersion,omitempty"`
	NoEmit                    *bool               `yaml:"noEmit,omitempty"`
	UseYarnWorkspaces         bool                `yaml:"useYarnWorkspaces,omitempty"`
	TslintAlwaysShowAsWarning *bool               `yaml:"tslintAlwaysShowAsWarning,omitempty"`
	Tslint                    LintDirective       `yaml:"tslint,omitempty"`
	Projects                  []ProjectDescriptor `yaml:"projects" validate:"dive"`

	// Source is the file the config was read from.
	Source string `yaml:"-"`
}

// Load reads configuration from path. If path is empty, DefaultFiles are
// tried in the working directory.
func Load(path string) (*Config, error) {
	if path == "" {
		return LoadDir(".")
	}

	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	cfg.Source = path
	return cfg, nil
}

// LoadDir loads the first of DefaultFiles present in dir.
func LoadDir(dir string) (*Config, error) {
	path, err := findDefault(dir)
	if err != nil {
		return nil, err
	}
	return Load(path)
}

// Parse decodes a config document in the given format.
func Parse(data []byte, format Format) (*Config, error) {
	var err error
	switch format {
	case FormatYAML:
	case FormatJSON, FormatTOML:
		data, err = toYAML(data, format)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", format)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FormatOf picks the format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	case ".toml":
		return FormatTOML, nil
	}
	return "", fmt.Errorf("%s: unknown config format (expected .yml, .yaml, .json or .toml)", path)
}

// toYAML re-encodes a JSON or TOML document as YAML so every format goes
// through the same decoders.
func toYAML(data []byte, format Format) ([]byte, error) {
	var doc map[string]any
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decoding json: %w", err)
		}
	case FormatTOML:
		if err := toml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decoding toml: %w", err)
		}
	}
	return yaml.Marshal(doc)
}

func findDefault(dir string) (string, error) {
	for _, name := range DefaultFiles {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		} else if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
	}
	return "", fmt.Errorf("no config file found (tried %s)", strings.Join(DefaultFiles, ", "))
}
