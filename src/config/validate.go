package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report yaml key names rather than Go field names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks a loaded Config. Returns warnings (soft issues that
// resolution tolerates) and a hard error if the config cannot be used.
func Validate(cfg *Config) (warnings []string, err error) {
	var errs []string

	// ── Structure ─────────────────────────────────────────────────────────

	if serr := validate.Struct(cfg); serr != nil {
		var verrs validator.ValidationErrors
		if !errors.As(serr, &verrs) {
			return warnings, serr
		}
		for _, fe := range verrs {
			errs = append(errs, fmt.Sprintf("%s: failed %q check", fieldPath(fe.Namespace()), fe.Tag()))
		}
	}

	if cfg.CompilerVersion != "" {
		if _, cerr := semver.NewConstraint(cfg.CompilerVersion); cerr != nil {
			errs = append(errs, fmt.Sprintf("compilerVersion: invalid constraint %q: %v", cfg.CompilerVersion, cerr))
		}
	}

	// ── Lint directives ───────────────────────────────────────────────────

	for _, note := range cfg.Tslint.Malformed {
		warnings = append(warnings, fmt.Sprintf("tslint: %s (ignored)", note))
	}

	// ── Projects ──────────────────────────────────────────────────────────

	if len(cfg.Projects) == 0 && !cfg.UseYarnWorkspaces {
		warnings = append(warnings, "projects: no projects configured and useYarnWorkspaces is off")
	}

	firstSeen := make(map[string]int, len(cfg.Projects))
	for i, p := range cfg.Projects {
		ppath := fmt.Sprintf("projects[%d]", i)

		outcome := "ignored"
		if p.Tslint.Kind == LintMalformed {
			outcome = "linting disabled"
		}
		for _, note := range p.Tslint.Malformed {
			warnings = append(warnings, fmt.Sprintf("%s.tslint: %s (%s)", ppath, note, outcome))
		}

		if p.Path == "" {
			continue
		}
		if first, dup := firstSeen[p.Path]; dup {
			warnings = append(warnings, fmt.Sprintf("%s: duplicate path %q, keeping projects[%d]", ppath, p.Path, first))
			continue
		}
		firstSeen[p.Path] = i

		if !filepath.IsAbs(p.Path) && !filepath.IsLocal(p.Path) {
			warnings = append(warnings, fmt.Sprintf("%s: path %q escapes the project root", ppath, p.Path))
		}
	}

	if len(errs) > 0 {
		return warnings, fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return warnings, nil
}

// fieldPath turns "Config.projects[2].path" into "projects[2].path".
func fieldPath(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}
