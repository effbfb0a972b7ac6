package delta

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sofmeright/tswatch/src/config"
	"github.com/sofmeright/tswatch/src/logger"
)

var quiet = logger.NewLogger(logger.TestConfig())

// clearBranchEnv keeps the host CI environment out of target branch detection.
func clearBranchEnv(t *testing.T) {
	t.Helper()
	for _, v := range append([]string{TargetBranchEnv}, ciTargetVars...) {
		t.Setenv(v, "")
	}
}

type testRepo struct {
	t    *testing.T
	dir  string
	repo *git.Repository
	wt   *git.Worktree
}

func newRepo(t *testing.T) *testRepo {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInitWithOptions(dir, &git.PlainInitOptions{
		InitOptions: git.InitOptions{DefaultBranch: plumbing.NewBranchReferenceName("main")},
	})
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)
	return &testRepo{t: t, dir: dir, repo: repo, wt: wt}
}

func (r *testRepo) write(name, content string) {
	r.t.Helper()
	path := filepath.Join(r.dir, name)
	require.NoError(r.t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(r.t, os.WriteFile(path, []byte(content), 0o644))
}

func (r *testRepo) commit(msg string, names ...string) {
	r.t.Helper()
	for _, n := range names {
		_, err := r.wt.Add(n)
		require.NoError(r.t, err)
	}
	_, err := r.wt.Commit(msg, &git.CommitOptions{
		Author: &object.Signature{Name: "dev", Email: "dev@example.com", When: time.Now()},
	})
	require.NoError(r.t, err)
}

func (r *testRepo) seed() {
	r.t.Helper()
	r.write("pkgs/a/index.ts", "export const a = 1;\n")
	r.write("pkgs/b/index.ts", "export const b = 1;\n")
	r.commit("initial", "pkgs/a/index.ts", "pkgs/b/index.ts")
}

func TestChangedFiles(t *testing.T) {
	t.Run("Should return nil outside a git repository", func(t *testing.T) {
		clearBranchEnv(t)
		d := &Delta{RootDir: t.TempDir(), Log: quiet}
		changed, err := d.ChangedFiles(t.Context())
		require.NoError(t, err)
		assert.Nil(t, changed)
	})

	t.Run("Should report uncommitted changes", func(t *testing.T) {
		clearBranchEnv(t)
		r := newRepo(t)
		r.seed()
		r.write("pkgs/a/index.ts", "export const a = 22;\n")

		d := &Delta{RootDir: r.dir, Log: quiet}
		changed, err := d.ChangedFiles(t.Context())
		require.NoError(t, err)
		assert.Equal(t, map[string]bool{"pkgs/a/index.ts": true}, changed)
	})

	t.Run("Should report commits not on the target branch", func(t *testing.T) {
		clearBranchEnv(t)
		r := newRepo(t)
		r.seed()
		require.NoError(t, r.wt.Checkout(&git.CheckoutOptions{
			Branch: plumbing.NewBranchReferenceName("feature"),
			Create: true,
		}))
		r.write("pkgs/b/index.ts", "export const b = 22;\n")
		r.commit("change b", "pkgs/b/index.ts")

		d := &Delta{RootDir: r.dir, TargetBranch: "main", Log: quiet}
		changed, err := d.ChangedFiles(t.Context())
		require.NoError(t, err)
		assert.Equal(t, map[string]bool{"pkgs/b/index.ts": true}, changed)
	})

	t.Run("Should diff the last commit when on the target branch", func(t *testing.T) {
		clearBranchEnv(t)
		r := newRepo(t)
		r.seed()
		r.write("pkgs/a/index.ts", "export const a = 22;\n")
		r.commit("change a", "pkgs/a/index.ts")

		d := &Delta{RootDir: r.dir, Log: quiet}
		changed, err := d.ChangedFiles(t.Context())
		require.NoError(t, err)
		assert.Equal(t, map[string]bool{"pkgs/a/index.ts": true}, changed)
	})

	t.Run("Should prefer the environment target branch", func(t *testing.T) {
		clearBranchEnv(t)
		r := newRepo(t)
		r.seed()
		require.NoError(t, r.wt.Checkout(&git.CheckoutOptions{
			Branch: plumbing.NewBranchReferenceName("feature"),
			Create: true,
		}))
		r.write("pkgs/b/index.ts", "export const b = 22;\n")
		r.commit("change b", "pkgs/b/index.ts")
		t.Setenv(TargetBranchEnv, "main")

		d := &Delta{RootDir: r.dir, TargetBranch: "does-not-exist", Log: quiet}
		changed, err := d.ChangedFiles(t.Context())
		require.NoError(t, err)
		assert.Equal(t, map[string]bool{"pkgs/b/index.ts": true}, changed)
	})
}

func TestChangedFiles_Branches(t *testing.T) {
	feature := func(t *testing.T) *testRepo {
		t.Helper()
		r := newRepo(t)
		r.seed()
		require.NoError(t, r.wt.Checkout(&git.CheckoutOptions{
			Branch: plumbing.NewBranchReferenceName("feature"),
			Create: true,
		}))
		return r
	}

	t.Run("Should use the CI merge target", func(t *testing.T) {
		clearBranchEnv(t)
		r := feature(t)
		r.write("pkgs/a/index.ts", "export const a = 22;\n")
		r.commit("change a", "pkgs/a/index.ts")
		t.Setenv("GITHUB_BASE_REF", "main")

		d := &Delta{RootDir: r.dir, Log: quiet}
		changed, err := d.ChangedFiles(t.Context())
		require.NoError(t, err)
		assert.Equal(t, map[string]bool{"pkgs/a/index.ts": true}, changed)
	})

	t.Run("Should report deleted files by their old name", func(t *testing.T) {
		clearBranchEnv(t)
		r := feature(t)
		_, err := r.wt.Remove("pkgs/b/index.ts")
		require.NoError(t, err)
		r.commit("drop b")

		d := &Delta{RootDir: r.dir, TargetBranch: "main", Log: quiet}
		changed, err := d.ChangedFiles(t.Context())
		require.NoError(t, err)
		assert.Equal(t, map[string]bool{"pkgs/b/index.ts": true}, changed)
	})

	t.Run("Should keep only worktree changes when the target is unknown", func(t *testing.T) {
		clearBranchEnv(t)
		r := feature(t)
		r.write("pkgs/b/index.ts", "export const b = 22;\n")
		r.commit("change b", "pkgs/b/index.ts")
		r.write("pkgs/a/index.ts", "export const a = 22;\n")

		d := &Delta{RootDir: r.dir, TargetBranch: "release", Log: quiet}
		changed, err := d.ChangedFiles(t.Context())
		require.NoError(t, err)
		assert.Equal(t, map[string]bool{"pkgs/a/index.ts": true}, changed)
	})
}

func TestFilterProjects(t *testing.T) {
	projects := []config.ProjectDescriptor{
		{Path: "pkgs/a"},
		{Path: "pkgs/ab"},
		{Path: "pkgs/b/tsconfig.json"},
		{Path: "/repo/pkgs/c"},
		{Path: "/elsewhere/d"},
	}

	t.Run("Should keep everything without a baseline", func(t *testing.T) {
		assert.Equal(t, projects, FilterProjects(projects, nil, "/repo"))
	})

	t.Run("Should keep projects containing changed files", func(t *testing.T) {
		changed := map[string]bool{
			"pkgs/a/src/index.ts":  true,
			"pkgs/b/tsconfig.json": true,
			"pkgs/c/x.ts":          true,
		}
		got := FilterProjects(projects, changed, "/repo")

		var paths []string
		for _, p := range got {
			paths = append(paths, p.Path)
		}
		assert.Equal(t, []string{"pkgs/a", "pkgs/b/tsconfig.json", "/repo/pkgs/c", "/elsewhere/d"}, paths)
	})

	t.Run("Should keep only outside projects when nothing changed", func(t *testing.T) {
		got := FilterProjects(projects, map[string]bool{}, "/repo")
		require.Len(t, got, 1)
		assert.Equal(t, "/elsewhere/d", got[0].Path)
	})

	t.Run("Should match the root project on any change", func(t *testing.T) {
		root := []config.ProjectDescriptor{{Path: "."}, {Path: "tsconfig.json"}}
		assert.Len(t, FilterProjects(root, map[string]bool{"README.md": true}, "/repo"), 2)
		assert.Empty(t, FilterProjects(root, map[string]bool{}, "/repo"))
	})
}
