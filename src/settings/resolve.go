package settings

import (
	"fmt"
	"path/filepath"

	"github.com/Masterminds/semver/v3"

	"github.com/sofmeright/tswatch/src/config"
	"github.com/sofmeright/tswatch/src/logger"
	"github.com/sofmeright/tswatch/src/probe"
)

// lintCase is the row of the override table that applied to a project.
type lintCase string

const (
	caseGlobalDefault lintCase = "A"
	caseOptIn         lintCase = "B"
	caseRulesPath     lintCase = "C"
	caseOptions       lintCase = "D"
	caseDisabled      lintCase = "E"
)

// classify picks the first matching row of the override table. Only a
// missing override inherits the global setting; a malformed one matches no
// row and disables linting.
func classify(g GlobalLint, o config.LintDirective) lintCase {
	switch {
	case g.Enabled == On && o.Kind == config.LintAbsent:
		return caseGlobalDefault
	case o.Kind == config.LintFlag && o.Flag:
		return caseOptIn
	case g.Enabled != Off && o.Kind == config.LintPath:
		return caseRulesPath
	case g.Enabled != Off && o.Kind == config.LintStructured &&
		(o.Options.Enabled == nil || *o.Options.Enabled):
		return caseOptions
	}
	return caseDisabled
}

// lintOverride holds the project-level values that win over the global ones.
type lintOverride struct {
	autofix   *bool
	rulesFile string
	tsconfig  string
}

// ResolveLint applies a project's tslint override to the global settings.
// It returns nil, nil when linting is off for the project, and a
// *ProjectError when linting is on but a required file is missing.
func ResolveLint(g GlobalLint, p config.ProjectDescriptor, finder Finder) (*LintSettings, error) {
	var ov lintOverride

	switch classify(g, p.Tslint) {
	case caseGlobalDefault, caseOptIn:
	case caseRulesPath:
		ov.rulesFile = p.Tslint.Path
	case caseOptions:
		o := p.Tslint.Options
		ov.autofix = o.Autofix
		if o.RulesFile != nil {
			ov.rulesFile = *o.RulesFile
		}
		if o.Tsconfig != nil {
			ov.tsconfig = *o.Tsconfig
		}
	default:
		return nil, nil
	}

	dir := finder.ProjectDir(p.Path)

	rules, err := resolveRulesFile(ov.rulesFile, g.RulesFile, dir, finder)
	if err != nil {
		return nil, &ProjectError{Path: p.Path, Resource: ResourceRulesFile, Err: err}
	}

	tsconfig, err := resolveTypeConfig(ov.tsconfig, p, dir, finder)
	if err != nil {
		return nil, &ProjectError{Path: p.Path, Resource: ResourceTypeConfig, Err: err}
	}

	autofix := g.Autofix
	if ov.autofix != nil {
		autofix = *ov.autofix
	}

	return &LintSettings{
		AutoFix:      autofix,
		RulesFile:    rules,
		TsconfigPath: tsconfig,
	}, nil
}

// resolveRulesFile: project override (relative to the project dir), then
// the global rules file as given, then tslint.json in the project dir.
func resolveRulesFile(override, global, dir string, finder Finder) (string, error) {
	if override != "" {
		return joinTo(dir, override), nil
	}
	if global != "" {
		return global, nil
	}
	return finder.FindJSONFile(dir, RulesFileName)
}

// resolveTypeConfig: object override, then the descriptor's tsconfig (both
// relative to the project dir), then the project path itself when it names
// a .json file, then tsconfig.json in the project dir.
func resolveTypeConfig(override string, p config.ProjectDescriptor, dir string, finder Finder) (string, error) {
	if override == "" {
		override = p.Tsconfig
	}
	if override != "" {
		return joinTo(dir, override), nil
	}
	if probe.IsJSONPath(p.Path) {
		return finder.FindJSONFile(dir, filepath.Base(p.Path))
	}
	return finder.FindJSONFile(dir, TypeConfigName)
}

func joinTo(dir, path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(dir, path)
}

// Resolver resolves prepared project descriptors against one config.
// It holds no mutable state once built.
type Resolver struct {
	finder     Finder
	log        logger.Logger
	global     GlobalLint
	watch      bool
	alwaysWarn *bool

	constraint    *semver.Constraints
	constraintRaw string
}

// NewResolver normalizes the global lint directive and parses the compiler
// version constraint. A nil log uses the default logger.
func NewResolver(cfg *config.Config, finder Finder, log logger.Logger) (*Resolver, error) {
	if log == nil {
		log = logger.GetDefault()
	}

	r := &Resolver{
		finder:     finder,
		log:        log,
		global:     NormalizeGlobal(cfg.Tslint, finder, log),
		watch:      cfg.Watch,
		alwaysWarn: cfg.TslintAlwaysShowAsWarning,
	}

	if cfg.CompilerVersion != "" {
		c, err := semver.NewConstraint(cfg.CompilerVersion)
		if err != nil {
			return nil, fmt.Errorf("compilerVersion %q: %w", cfg.CompilerVersion, err)
		}
		r.constraint = c
		r.constraintRaw = cfg.CompilerVersion
	}

	log.Debug("global lint",
		"enabled", r.global.Enabled,
		"autofix", r.global.Autofix,
		"rulesFile", r.global.RulesFile)
	return r, nil
}

// Resolve builds the settings for one prepared descriptor (see
// PrepareProjects). Errors are *ProjectError.
func (r *Resolver) Resolve(p config.ProjectDescriptor) (*ProjectSettings, error) {
	lint, err := ResolveLint(r.global, p, r.finder)
	if err != nil {
		return nil, err
	}

	s := &ProjectSettings{
		Path:                      p.Path,
		Compiler:                  p.Compiler,
		NoEmit:                    p.NoEmit,
		Watch:                     r.watch,
		TslintAlwaysShowAsWarning: r.alwaysWarn,
		Tslint:                    lint,
	}

	if err := r.checkCompiler(p, s); err != nil {
		return nil, err
	}

	r.log.Debug("resolved project",
		"path", p.Path,
		"case", classify(r.global, p.Tslint),
		"compiler", s.Compiler,
		"lint", lint != nil)
	return s, nil
}

// checkCompiler records the version of a node_modules compiler and enforces
// compilerVersion against it. Without a constraint a version that cannot be
// read is left out rather than failing the project.
func (r *Resolver) checkCompiler(p config.ProjectDescriptor, s *ProjectSettings) error {
	if !isNodeModulesBin(s.Compiler) {
		return nil
	}

	v, err := r.compilerVersion(p.Path)
	if err != nil {
		if r.constraint == nil {
			r.log.Debug("compiler version unknown", "path", p.Path, "err", err)
			return nil
		}
		return &ProjectError{Path: p.Path, Resource: ResourceCompiler, Err: err}
	}
	if r.constraint != nil && !r.constraint.Check(v) {
		return &ProjectError{Path: p.Path, Resource: ResourceCompiler, Err: fmt.Errorf("%s %s does not satisfy %q", CompilerPackage, v.Original(), r.constraintRaw)}
	}

	s.CompilerVersion = v.String()
	return nil
}

func (r *Resolver) compilerVersion(projectPath string) (*semver.Version, error) {
	raw, err := r.finder.PackageVersion(projectPath, CompilerPackage)
	if err != nil {
		return nil, err
	}
	v, err := semver.NewVersion(raw)
	if err != nil {
		return nil, fmt.Errorf("%s version %q: %w", CompilerPackage, raw, err)
	}
	return v, nil
}

func isNodeModulesBin(path string) bool {
	bin := filepath.Dir(path)
	return filepath.Base(bin) == ".bin" && filepath.Base(filepath.Dir(bin)) == "node_modules"
}
