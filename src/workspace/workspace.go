// Package workspace discovers yarn workspace packages so they can be watched
// alongside the configured projects.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"

	"github.com/sofmeright/tswatch/src/config"
	"github.com/sofmeright/tswatch/src/logger"
)

const manifestName = "package.json"

// Discoverer reads the workspaces field of the root package.json.
type Discoverer struct {
	fs   afero.Fs
	root string
	log  logger.Logger
}

// New returns a Discoverer for the package rooted at root.
func New(fsys afero.Fs, root string, log logger.Logger) *Discoverer {
	if log == nil {
		log = logger.GetDefault()
	}
	return &Discoverer{fs: fsys, root: filepath.Clean(root), log: log}
}

// Workspaces returns one descriptor per workspace package, ordered by the
// pattern that first matched it and then by path. Paths are relative to
// the root.
func (d *Discoverer) Workspaces(ctx context.Context) ([]config.ProjectDescriptor, error) {
	manifest := filepath.Join(d.root, manifestName)
	data, err := afero.ReadFile(d.fs, manifest)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("yarn workspaces: %s not found", manifest)
		}
		return nil, fmt.Errorf("yarn workspaces: reading %s: %w", manifest, err)
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("yarn workspaces: %s is not valid JSON", manifest)
	}

	includes, excludes := Patterns(data)
	if len(includes) == 0 {
		d.log.Debug("no workspace patterns", "manifest", manifest)
		return nil, nil
	}

	matches, err := d.expand(ctx, includes)
	if err != nil {
		return nil, err
	}

	var (
		seen  = make(map[string]bool)
		found []config.ProjectDescriptor
	)
	for _, group := range matches {
		for _, m := range group {
			if seen[m] || excluded(m, excludes) {
				continue
			}
			seen[m] = true
			found = append(found, config.ProjectDescriptor{Path: filepath.FromSlash(m)})
		}
	}

	d.log.Debug("yarn workspaces", "patterns", includes, "packages", len(found))
	return found, nil
}

// Patterns extracts workspace globs from a package.json document. Both the
// array form and the {"packages": [...]} form are accepted. Patterns
// starting with "!" are returned as excludes without the bang.
func Patterns(manifest []byte) (includes, excludes []string) {
	ws := gjson.GetBytes(manifest, "workspaces")
	if ws.IsObject() {
		ws = ws.Get("packages")
	}
	if !ws.IsArray() {
		return nil, nil
	}

	for _, item := range ws.Array() {
		if item.Type != gjson.String {
			continue
		}
		p := cleanPattern(item.String())
		if neg, ok := strings.CutPrefix(p, "!"); ok {
			if neg = cleanPattern(neg); neg != "" {
				excludes = append(excludes, neg)
			}
			continue
		}
		if p != "" {
			includes = append(includes, p)
		}
	}
	return includes, excludes
}

// expand globs every include pattern concurrently. Results keep the
// pattern order so discovery is deterministic.
func (d *Discoverer) expand(ctx context.Context, includes []string) ([][]string, error) {
	fsys := afero.NewIOFS(afero.NewBasePathFs(d.fs, d.root))
	results := make([][]string, len(includes))

	g, ctx := errgroup.WithContext(ctx)
	for i, pattern := range includes {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if !doublestar.ValidatePattern(pattern) {
				return fmt.Errorf("yarn workspaces: invalid pattern %q", pattern)
			}

			matches, err := doublestar.Glob(fsys, pattern)
			if err != nil {
				return fmt.Errorf("yarn workspaces: expanding %q: %w", pattern, err)
			}

			var pkgs []string
			for _, m := range matches {
				if inNodeModules(m) || !d.isPackage(m) {
					continue
				}
				pkgs = append(pkgs, m)
			}
			slices.Sort(pkgs)
			results[i] = pkgs
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (d *Discoverer) isPackage(rel string) bool {
	info, err := d.fs.Stat(filepath.Join(d.root, filepath.FromSlash(rel), manifestName))
	return err == nil && !info.IsDir()
}

func cleanPattern(p string) string {
	p = strings.TrimSpace(filepath.ToSlash(p))
	p = strings.TrimPrefix(p, "./")
	p = strings.TrimRight(p, "/")
	if p == "" || p == "." {
		return ""
	}
	return path.Clean(p)
}

func inNodeModules(rel string) bool {
	return slices.Contains(strings.Split(rel, "/"), "node_modules")
}

func excluded(rel string, excludes []string) bool {
	for _, ex := range excludes {
		if ok, _ := doublestar.Match(ex, rel); ok {
			return true
		}
	}
	return false
}
