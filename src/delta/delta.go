// Package delta narrows a project list to the projects touched by the
// current change set, using git history.
package delta

import (
	"cmp"
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/sofmeright/tswatch/src/config"
	"github.com/sofmeright/tswatch/src/logger"
	"github.com/sofmeright/tswatch/src/probe"
)

// TargetBranchEnv overrides every other way of picking the target branch.
const TargetBranchEnv = "TSWATCH_TARGET_BRANCH"

// Delta detects changed files relative to a baseline.
type Delta struct {
	RootDir      string
	TargetBranch string
	Log          logger.Logger
}

func (d *Delta) log() logger.Logger {
	if d.Log == nil {
		return logger.GetDefault()
	}
	return d.Log
}

// ChangedFiles returns the slash-separated, repo-relative paths changed
// relative to the baseline: uncommitted and staged changes, plus the diff
// between HEAD and its base commit.
// A nil set means "no baseline": callers should keep every project.
func (d *Delta) ChangedFiles(ctx context.Context) (map[string]bool, error) {
	repo, err := git.PlainOpen(d.RootDir)
	if err != nil {
		d.log().Debug("delta: no git repository", "dir", d.RootDir)
		return nil, nil
	}

	changed := make(map[string]bool)
	if err := addWorktreeChanges(repo, changed); err != nil {
		d.log().Debug("delta: worktree status failed", "err", err)
		return nil, nil
	}
	if err := d.addCommittedChanges(ctx, repo, changed); err != nil {
		d.log().Debug("delta: commit diff failed", "err", err)
		return nil, nil
	}
	return changed, nil
}

func addWorktreeChanges(repo *git.Repository, changed map[string]bool) error {
	wt, err := repo.Worktree()
	if err != nil {
		return err
	}
	status, err := wt.Status()
	if err != nil {
		return err
	}
	for path, s := range status {
		if s.Worktree != git.Unmodified || s.Staging != git.Unmodified {
			changed[path] = true
		}
	}
	return nil
}

func (d *Delta) addCommittedChanges(ctx context.Context, repo *git.Repository, changed map[string]bool) error {
	ref, err := repo.Head()
	if err != nil {
		return err
	}
	head, err := repo.CommitObject(ref.Hash())
	if err != nil {
		return err
	}
	base, err := d.baseCommit(repo, head)
	if err != nil || base == nil {
		return err
	}

	headTree, err := head.Tree()
	if err != nil {
		return err
	}
	baseTree, err := base.Tree()
	if err != nil {
		return err
	}
	changes, err := baseTree.DiffContext(ctx, headTree)
	if err != nil {
		return err
	}
	for _, c := range changes {
		// Deletions only carry the old name.
		changed[cmp.Or(c.To.Name, c.From.Name)] = true
	}
	return nil
}

// baseCommit is the target branch tip, or HEAD's parent when HEAD already is
// that tip. It returns nil when there is nothing to compare against.
func (d *Delta) baseCommit(repo *git.Repository, head *object.Commit) (*object.Commit, error) {
	target := d.targetBranch(repo)
	ref, err := repo.Reference(plumbing.NewBranchReferenceName(target), true)
	if err != nil {
		if ref, err = repo.Reference(plumbing.NewRemoteReferenceName("origin", target), true); err != nil {
			d.log().Debug("delta: target branch not found", "branch", target)
			return nil, nil
		}
	}

	if ref.Hash() != head.Hash {
		return repo.CommitObject(ref.Hash())
	}
	if head.NumParents() == 0 {
		return nil, nil
	}
	return head.Parent(0)
}

// ciTargetVars hold the merge request target branch in GitLab CI, GitHub
// Actions, Bitbucket and Jenkins.
var ciTargetVars = []string{
	"CI_MERGE_REQUEST_TARGET_BRANCH_NAME",
	"GITHUB_BASE_REF",
	"BITBUCKET_PR_DESTINATION_BRANCH",
	"CHANGE_TARGET",
}

// targetBranch: TSWATCH_TARGET_BRANCH, then the configured branch, then
// the CI merge target, then origin/HEAD, then "main".
func (d *Delta) targetBranch(repo *git.Repository) string {
	candidates := []string{os.Getenv(TargetBranchEnv), d.TargetBranch}
	for _, v := range ciTargetVars {
		candidates = append(candidates, os.Getenv(v))
	}
	return cmp.Or(append(candidates, originHead(repo), "main")...)
}

func originHead(repo *git.Repository) string {
	ref, err := repo.Reference(plumbing.NewRemoteReferenceName("origin", "HEAD"), false)
	if err != nil {
		return ""
	}
	if branch, ok := strings.CutPrefix(ref.Target().String(), "refs/remotes/origin/"); ok {
		return branch
	}
	return ""
}

// FilterProjects keeps the projects whose directory contains a changed
// file. Project paths are relative to rootDir. A nil changed set keeps
// everything.
func FilterProjects(projects []config.ProjectDescriptor, changed map[string]bool, rootDir string) []config.ProjectDescriptor {
	if changed == nil {
		return projects
	}

	filtered := make([]config.ProjectDescriptor, 0, len(projects))
	for _, p := range projects {
		dir, ok := repoRelative(rootDir, p.Path)
		if !ok {
			// Outside the repository: no history to compare against.
			filtered = append(filtered, p)
			continue
		}
		if touches(changed, dir) {
			filtered = append(filtered, p)
		}
	}
	return filtered
}

// repoRelative returns the slash-separated project directory relative to
// rootDir, and false when it lies outside it.
func repoRelative(rootDir, path string) (string, bool) {
	if probe.IsJSONPath(path) {
		path = filepath.Dir(path)
	}
	if filepath.IsAbs(path) {
		rel, err := filepath.Rel(rootDir, path)
		if err != nil {
			return "", false
		}
		path = rel
	}
	path = filepath.Clean(path)
	if !filepath.IsLocal(path) && path != "." {
		return "", false
	}
	return filepath.ToSlash(path), true
}

func touches(changed map[string]bool, dir string) bool {
	if dir == "." {
		return len(changed) > 0
	}
	prefix := dir + "/"
	for name := range changed {
		if name == dir || strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}
