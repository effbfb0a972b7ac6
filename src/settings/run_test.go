package settings

import (
	"errors"
	"iter"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sofmeright/tswatch/src/config"
	"github.com/sofmeright/tswatch/src/probe"
)

type step struct {
	s   *ProjectSettings
	err error
}

// recorded yields steps in order and logs each one before yielding it.
func recorded(events *[]string, steps ...step) iter.Seq2[*ProjectSettings, error] {
	return func(yield func(*ProjectSettings, error) bool) {
		for _, st := range steps {
			name := errorPath(st.err)
			if st.s != nil {
				name = st.s.Path
			}
			*events = append(*events, "resolve "+name)
			if !yield(st.s, st.err) {
				return
			}
		}
	}
}

func failure(path string) step {
	return step{err: &ProjectError{Path: path, Resource: ResourceRulesFile, Err: probe.ErrNotFound}}
}

func resolved(path string, lint bool) step {
	s := &ProjectSettings{Path: path, Compiler: CompilerBinary}
	if lint {
		s.Tslint = &LintSettings{RulesFile: "tslint.json", TsconfigPath: "tsconfig.json"}
	}
	return step{s: s}
}

func TestRun(t *testing.T) {
	t.Run("Should hand each project over before resolving the next", func(t *testing.T) {
		var events []string
		add := func(s *ProjectSettings) error {
			events = append(events, "add "+s.Path)
			return nil
		}

		sum, err := Run(recorded(&events, resolved("a", true), resolved("b", false)), add, Abort, quiet)
		require.NoError(t, err)
		assert.Equal(t, []string{"resolve a", "add a", "resolve b", "add b"}, events)
		assert.Equal(t, 2, sum.Added)
		assert.Equal(t, 1, sum.Linted)
		assert.Zero(t, sum.Failed)
	})

	t.Run("Should stop at the first failure when aborting", func(t *testing.T) {
		var events []string
		add := func(s *ProjectSettings) error {
			events = append(events, "add "+s.Path)
			return nil
		}

		sum, err := Run(recorded(&events, resolved("a", false), failure("b"), resolved("c", false)), add, Abort, quiet)

		var perr *ProjectError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, "b", perr.Path)
		assert.Equal(t, []string{"resolve a", "add a", "resolve b"}, events)
		assert.Equal(t, 1, sum.Added)
		assert.Equal(t, 1, sum.Failed)
	})

	t.Run("Should continue past failures when skipping", func(t *testing.T) {
		var added []string
		add := func(s *ProjectSettings) error {
			added = append(added, s.Path)
			return nil
		}

		var events []string
		sum, err := Run(recorded(&events, failure("a"), resolved("b", true), failure("c")), add, Skip, quiet)
		require.NoError(t, err)
		assert.Equal(t, []string{"b"}, added)
		assert.Equal(t, 1, sum.Added)
		assert.Equal(t, 2, sum.Failed)

		require.Len(t, sum.Outcomes, 3)
		assert.Equal(t, "a", sum.Outcomes[0].Path)
		assert.Error(t, sum.Outcomes[0].Err)
		assert.Equal(t, "b", sum.Outcomes[1].Path)
		assert.NotNil(t, sum.Outcomes[1].Settings)
	})

	t.Run("Should stop when a worker cannot be added", func(t *testing.T) {
		boom := errors.New("spawn failed")
		add := func(s *ProjectSettings) error {
			if s.Path == "b" {
				return boom
			}
			return nil
		}

		var events []string
		sum, err := Run(recorded(&events, resolved("a", false), resolved("b", false), resolved("c", false)), add, Skip, quiet)
		assert.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), "adding worker for b")
		assert.Equal(t, 1, sum.Added)
		assert.NotContains(t, events, "resolve c")
	})
}

func TestProjects_Stream(t *testing.T) {
	finder := newFinder(t, "tslint.json", "pkgs/a/tsconfig.json", "pkgs/c/tsconfig.json")
	cfg := &config.Config{
		Tslint: config.FlagDirective(true),
		Projects: []config.ProjectDescriptor{
			{Path: "pkgs/a"},
			{Path: "pkgs/b"},
			{Path: "pkgs/c"},
		},
	}

	r, err := NewResolver(cfg, finder, quiet)
	require.NoError(t, err)
	projects, err := PrepareProjects(t.Context(), cfg, nil, finder, quiet)
	require.NoError(t, err)

	var got []string
	var errs []error
	for s, err := range r.Projects(projects) {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		got = append(got, s.Path)
	}
	assert.Equal(t, []string{"pkgs/a", "pkgs/c"}, got)
	require.Len(t, errs, 1)

	var perr *ProjectError
	require.ErrorAs(t, errs[0], &perr)
	assert.Equal(t, "pkgs/b", perr.Path)
	assert.Equal(t, ResourceTypeConfig, perr.Resource)

	// Breaking out early stops resolution.
	n := 0
	for range r.Projects(projects) {
		n++
		break
	}
	assert.Equal(t, 1, n)
}
