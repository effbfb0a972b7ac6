package settings

import (
	"github.com/sofmeright/tswatch/src/config"
	"github.com/sofmeright/tswatch/src/logger"
)

// GlobalLint is the global tslint directive in canonical form. Enabled is
// Unspecified only when the directive was absent (or malformed).
type GlobalLint struct {
	Enabled   Tristate
	Autofix   bool
	RulesFile string
}

// NormalizeGlobal canonicalizes the global tslint directive.
//
// The boolean form also looks for a tslint.json at the root. Not finding
// one is fine: projects may bring their own.
func NormalizeGlobal(d config.LintDirective, finder Finder, log logger.Logger) GlobalLint {
	switch d.Kind {
	case config.LintPath:
		return GlobalLint{Enabled: On, RulesFile: d.Path}

	case config.LintFlag:
		g := GlobalLint{Enabled: TristateOf(d.Flag)}
		if path, ok := finder.LookupJSONFile(".", RulesFileName); ok {
			g.RulesFile = path
		} else {
			log.Debug("no root rules file", "name", RulesFileName)
		}
		return g

	case config.LintStructured:
		o := d.Options
		g := GlobalLint{Enabled: On}
		if o.Enabled != nil {
			g.Enabled = TristateOf(*o.Enabled)
		}
		if o.Autofix != nil {
			g.Autofix = *o.Autofix
		}
		if o.RulesFile != nil {
			g.RulesFile = *o.RulesFile
		}
		return g
	}

	return GlobalLint{Enabled: Unspecified}
}
