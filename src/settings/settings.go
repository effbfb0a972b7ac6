// Package settings turns the global tswatch config into one self-contained
// settings record per project.
//
// Every lint setting can be given globally, per project, or not at all.
// NormalizeGlobal collapses the global directive into a GlobalLint with
// tri-state enablement; ResolveLint then applies a project's override to it:
//
//	A  global on,  no override                 → enabled
//	B  override true                           → enabled (even over global off)
//	C  global not off, override is a path      → enabled with that rules file
//	D  global not off, override is an object
//	   that does not say enabled: false        → enabled, field-wise overrides
//	E  anything else                           → disabled
//
// A global false is a veto for path and object overrides. An unspecified
// global is not.
package settings

import (
	"context"
	"fmt"

	"github.com/sofmeright/tswatch/src/config"
)

const (
	// RulesFileName is the rules file probed for when none is configured.
	RulesFileName = "tslint.json"
	// TypeConfigName is the type config probed for in a project directory.
	TypeConfigName = "tsconfig.json"
	// CompilerBinary is the executable looked up in node_modules/.bin.
	CompilerBinary = "tsc"
	// CompilerPackage provides CompilerBinary.
	CompilerPackage = "typescript"
)

// Tristate is an enablement that may be left unspecified.
type Tristate int

const (
	Unspecified Tristate = iota
	On
	Off
)

// TristateOf converts a concrete boolean.
func TristateOf(b bool) Tristate {
	if b {
		return On
	}
	return Off
}

func (t Tristate) String() string {
	switch t {
	case Unspecified:
		return "unspecified"
	case On:
		return "on"
	case Off:
		return "off"
	default:
		return fmt.Sprintf("tristate(%d)", int(t))
	}
}

// LintSettings is what a worker needs to run the linter on one project.
type LintSettings struct {
	AutoFix      bool   `json:"autoFix"`
	RulesFile    string `json:"rulesFile"`
	TsconfigPath string `json:"tsconfigPath"`
}

// ProjectSettings is the fully resolved record handed to a worker.
// Tslint is nil when linting is off for the project.
type ProjectSettings struct {
	Path                      string        `json:"path"`
	Compiler                  string        `json:"compiler"`
	CompilerVersion           string        `json:"compilerVersion,omitempty"`
	NoEmit                    *bool         `json:"noEmit,omitempty"`
	Watch                     bool          `json:"watch"`
	TslintAlwaysShowAsWarning *bool         `json:"tslintAlwaysShowAsWarning,omitempty"`
	Tslint                    *LintSettings `json:"tslint,omitempty"`
}

// Finder is the filesystem lookup the resolver depends on.
// probe.Finder is the production implementation.
type Finder interface {
	// FindJSONFile returns baseDir/name or an error wrapping probe.ErrNotFound.
	FindJSONFile(baseDir, name string) (string, error)
	// LookupJSONFile is the optional form of FindJSONFile.
	LookupJSONFile(baseDir, name string) (string, bool)
	FindNodeModuleExecutable(projectPath, binary string) string
	ProjectDir(path string) string
	PackageVersion(projectPath, pkg string) (string, error)
}

// WorkspaceSource supplies extra project descriptors (yarn workspaces).
type WorkspaceSource interface {
	Workspaces(ctx context.Context) ([]config.ProjectDescriptor, error)
}

// Resource names what a project was missing when resolution failed.
type Resource string

const (
	ResourceRulesFile  Resource = "rules file"
	ResourceTypeConfig Resource = "type config"
	ResourceCompiler   Resource = "compiler"
)

// ProjectError reports a project whose settings could not be resolved.
type ProjectError struct {
	Path     string
	Resource Resource
	Err      error
}

func (e *ProjectError) Error() string {
	return fmt.Sprintf("project %s: %s: %v", e.Path, e.Resource, e.Err)
}

func (e *ProjectError) Unwrap() error {
	return e.Err
}
