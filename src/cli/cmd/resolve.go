package cmd

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/sofmeright/tswatch/src/config"
	"github.com/sofmeright/tswatch/src/delta"
	"github.com/sofmeright/tswatch/src/logger"
	"github.com/sofmeright/tswatch/src/output"
	"github.com/sofmeright/tswatch/src/probe"
	"github.com/sofmeright/tswatch/src/settings"
	"github.com/sofmeright/tswatch/src/workspace"
)

// reportDir is where CI reports land, relative to the root.
const reportDir = ".tswatch/reports"

var (
	resolveJSON         bool
	resolveKeepGoing    bool
	resolveChanged      bool
	resolveTargetBranch string
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve settings for every project",
	Long: `Resolve one settings record per configured project.

The config is validated first: errors stop the run and warnings are logged.

Global compiler, noEmit and tslint settings are merged with each project's
overrides; yarn workspaces are added when useYarnWorkspaces is set.
Projects are handed over one at a time as they resolve.

With --json each record is written to stdout as one JSON object per line
and the summary goes to stderr. By default the first project that cannot
be resolved stops the run; --keep-going skips it and fails at the end.`,
	Args: cobra.NoArgs,
	RunE: runResolve,
}

func registerResolveFlags(c *cobra.Command) {
	c.Flags().BoolVar(&resolveJSON, "json", false, "write resolved settings as JSON lines to stdout")
	c.Flags().BoolVar(&resolveKeepGoing, "keep-going", false, "skip projects that fail to resolve instead of stopping")
	c.Flags().BoolVar(&resolveChanged, "changed", false, "only resolve projects containing files changed in git")
	c.Flags().StringVar(&resolveTargetBranch, "target-branch", "", "branch to diff against with --changed (default: CI target, origin/HEAD, then main)")
}

func init() {
	registerResolveFlags(resolveCmd)
	rootCmd.AddCommand(resolveCmd)
}

func runResolve(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	log := logger.GetDefault()

	root, err := projectRoot()
	if err != nil {
		return err
	}

	warnings, err := config.Validate(cfg)
	if err != nil {
		return fmt.Errorf("%s: invalid config: %w", cfg.Source, err)
	}
	for _, w := range warnings {
		log.Warn("config", "warning", w)
	}

	finder := probe.NewOS(root)

	var ws settings.WorkspaceSource
	if cfg.UseYarnWorkspaces {
		ws = workspace.New(afero.NewOsFs(), root, log)
	}

	projects, err := settings.PrepareProjects(ctx, cfg, ws, finder, log)
	if err != nil {
		return err
	}

	if resolveChanged {
		d := &delta.Delta{RootDir: root, TargetBranch: resolveTargetBranch, Log: log}
		changed, err := d.ChangedFiles(ctx)
		if err != nil {
			log.Warn("delta failed, resolving all projects", "err", err)
		} else if changed != nil {
			all := len(projects)
			projects = delta.FilterProjects(projects, changed, root)
			log.Info("delta", "projects", len(projects), "of", all)
		}
	}

	resolver, err := settings.NewResolver(cfg, finder, log)
	if err != nil {
		return err
	}

	stdout := cmd.OutOrStdout()
	summaryOut := stdout
	add := settings.AddWorkerFunc(func(s *settings.ProjectSettings) error {
		log.Debug("project ready", "path", s.Path)
		return nil
	})
	if resolveJSON {
		summaryOut = cmd.ErrOrStderr()
		add = output.JSONLines(stdout)
	}

	policy := settings.Abort
	if resolveKeepGoing {
		policy = settings.Skip
	}

	start := time.Now()
	output.SectionStart(summaryOut, "tw_resolve", "Resolve")
	sum, runErr := settings.Run(resolver.Projects(projects), add, policy, log)
	elapsed := time.Since(start)

	output.ResolveSection(summaryOut, sum, elapsed, output.UseColor(summaryOut))
	output.SectionEnd(summaryOut, "tw_resolve")

	if output.IsCI() {
		writeReport(cmd.ErrOrStderr(), filepath.Join(root, reportDir), sum, elapsed)
	}

	if runErr != nil {
		return runErr
	}
	if sum.Failed > 0 {
		return fmt.Errorf("%d of %d projects failed to resolve", sum.Failed, len(sum.Outcomes))
	}
	return nil
}

func writeReport(w io.Writer, dir string, sum settings.Summary, elapsed time.Duration) {
	if err := output.WriteResolveJUnit(dir, sum, elapsed); err != nil {
		fmt.Fprintf(w, "warning: failed to write junit report: %v\n", err)
	}
}
