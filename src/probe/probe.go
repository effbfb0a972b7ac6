// Package probe locates the files a project's settings point at: JSON
// config files, node_modules executables and installed package versions.
//
// All lookups go through an afero.Fs so the resolver can be exercised
// against an in-memory tree.
package probe

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/tidwall/gjson"
)

// ErrNotFound is wrapped by every lookup that found nothing.
var ErrNotFound = errors.New("not found")

// Finder resolves project-relative paths against a root directory.
type Finder struct {
	fs   afero.Fs
	root string
}

// New returns a Finder over fsys. Relative paths are joined to root.
func New(fsys afero.Fs, root string) *Finder {
	return &Finder{fs: fsys, root: filepath.Clean(root)}
}

// NewOS returns a Finder over the real filesystem.
func NewOS(root string) *Finder {
	return New(afero.NewOsFs(), root)
}

// Root returns the directory relative paths are resolved against.
func (f *Finder) Root() string {
	return f.root
}

// Abs joins a relative path to the root.
func (f *Finder) Abs(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(f.root, path)
}

// ProjectDir returns the directory of a project. A project path naming a
// .json file (a tsconfig) lives in that file's directory.
func (f *Finder) ProjectDir(path string) string {
	abs := f.Abs(path)
	if IsJSONPath(abs) {
		return filepath.Dir(abs)
	}
	return abs
}

// IsJSONPath reports whether path names a .json file.
func IsJSONPath(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}

// FindJSONFile returns baseDir/name if it exists as a regular file.
// The error wraps ErrNotFound when it does not.
func (f *Finder) FindJSONFile(baseDir, name string) (string, error) {
	path := filepath.Join(f.Abs(baseDir), name)

	info, err := f.fs.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%s: %w", path, ErrNotFound)
		}
		return "", fmt.Errorf("probing %s: %w", path, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory: %w", path, ErrNotFound)
	}
	return path, nil
}

// LookupJSONFile is the optional form of FindJSONFile: any failure reads
// as "not there".
func (f *Finder) LookupJSONFile(baseDir, name string) (string, bool) {
	path, err := f.FindJSONFile(baseDir, name)
	if err != nil {
		return "", false
	}
	return path, true
}

// FindNodeModuleExecutable looks for node_modules/.bin/<binary> starting at
// the project directory and walking up to the root. When nothing is found
// the bare binary name is returned so the worker resolves it through PATH.
func (f *Finder) FindNodeModuleExecutable(projectPath, binary string) string {
	path, err := f.findUp(f.ProjectDir(projectPath), filepath.Join("node_modules", ".bin", binary))
	if err != nil {
		return binary
	}
	return path
}

// PackageVersion reads the version of an installed node package, searching
// node_modules from the project directory up to the root.
func (f *Finder) PackageVersion(projectPath, pkg string) (string, error) {
	manifest, err := f.findUp(f.ProjectDir(projectPath), filepath.Join("node_modules", pkg, "package.json"))
	if err != nil {
		return "", fmt.Errorf("package %s: %w", pkg, err)
	}

	data, err := afero.ReadFile(f.fs, manifest)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", manifest, err)
	}

	version := gjson.GetBytes(data, "version")
	if !version.Exists() || version.Type != gjson.String {
		return "", fmt.Errorf("%s: no version field", manifest)
	}
	return version.String(), nil
}

// findUp looks for the file dir/rel in dir and each parent. The walk stops after the
// root when dir is inside it, otherwise at the filesystem root.
func (f *Finder) findUp(dir, rel string) (string, error) {
	stopAtRoot := dir == f.root || strings.HasPrefix(dir, f.root+string(filepath.Separator))

	for {
		candidate := filepath.Join(dir, rel)
		if info, err := f.fs.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}

		if stopAtRoot && dir == f.root {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", fmt.Errorf("%s: %w", rel, ErrNotFound)
}
