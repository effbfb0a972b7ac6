package settings

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"dario.cat/mergo"

	"github.com/sofmeright/tswatch/src/config"
	"github.com/sofmeright/tswatch/src/logger"
)

// ErrMissingPath is returned for a project descriptor without a path.
var ErrMissingPath = errors.New("project has no path")

// PrepareProjects builds the ordered list of projects to resolve:
// configured projects, then workspace packages when ws is non-nil, deduped
// by path (first occurrence wins). Each survivor inherits the global
// compiler and noEmit when it sets none; a project with no compiler at
// either scope gets its local node_modules tsc. A descriptor without a path
// fails the whole list with ErrMissingPath.
func PrepareProjects(ctx context.Context, cfg *config.Config, ws WorkspaceSource, finder Finder, log logger.Logger) ([]config.ProjectDescriptor, error) {
	if log == nil {
		log = logger.GetDefault()
	}

	all := slices.Clone(cfg.Projects)
	if ws != nil {
		extra, err := ws.Workspaces(ctx)
		if err != nil {
			return nil, err
		}
		all = append(all, extra...)
	}

	defaults := config.ProjectDescriptor{
		Compiler: cfg.Compiler,
		NoEmit:   cfg.NoEmit,
	}

	seen := make(map[string]bool, len(all))
	prepared := make([]config.ProjectDescriptor, 0, len(all))
	for i, p := range all {
		if p.Path == "" {
			return nil, fmt.Errorf("projects[%d]: %w", i, ErrMissingPath)
		}
		if seen[p.Path] {
			log.Debug("duplicate project ignored", "path", p.Path)
			continue
		}
		seen[p.Path] = true

		// WithoutDereference keeps an explicit noEmit: false from being
		// treated as empty and overwritten.
		if err := mergo.Merge(&p, defaults, mergo.WithoutDereference); err != nil {
			return nil, fmt.Errorf("project %s: applying defaults: %w", p.Path, err)
		}
		if p.Compiler == "" {
			p.Compiler = finder.FindNodeModuleExecutable(p.Path, CompilerBinary)
		}
		prepared = append(prepared, p)
	}

	log.Debug("projects", "configured", len(cfg.Projects), "prepared", len(prepared))
	return prepared, nil
}
