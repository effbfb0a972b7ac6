package output

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sofmeright/tswatch/src/settings"
)

// JSONLines returns a worker sink that writes each resolved project to w
// as one JSON object per line.
func JSONLines(w io.Writer) settings.AddWorkerFunc {
	enc := json.NewEncoder(w)
	return func(s *settings.ProjectSettings) error {
		if err := enc.Encode(s); err != nil {
			return fmt.Errorf("encoding settings for %s: %w", s.Path, err)
		}
		return nil
	}
}

// ResolveSection renders one row per project and a totals line.
func ResolveSection(w io.Writer, sum settings.Summary, elapsed time.Duration, color bool) {
	sec := NewSection(w, "Resolve", elapsed, color)
	for _, o := range sum.Outcomes {
		if o.Err != nil {
			sec.StatusRow(o.Path, StatusFailed, failureDetail(o.Err))
			continue
		}
		sec.StatusRow(o.Path, StatusOK, projectDetail(o.Settings))
	}
	if len(sum.Outcomes) > 0 {
		sec.Separator()
	}
	sec.Row("%d added, %d linted, %d failed", sum.Added, sum.Linted, sum.Failed)
	sec.Close()
}

func projectDetail(s *settings.ProjectSettings) string {
	compiler := s.Compiler
	if s.CompilerVersion != "" {
		compiler += "@" + s.CompilerVersion
	}
	if s.Tslint == nil {
		return fmt.Sprintf("%s  lint off", compiler)
	}
	fix := ""
	if s.Tslint.AutoFix {
		fix = " (autofix)"
	}
	return fmt.Sprintf("%s  lint %s%s", compiler, s.Tslint.RulesFile, fix)
}

func failureDetail(err error) string {
	var perr *settings.ProjectError
	if errors.As(err, &perr) {
		return fmt.Sprintf("%s: %v", perr.Resource, perr.Err)
	}
	return err.Error()
}
