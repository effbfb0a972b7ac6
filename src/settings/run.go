package settings

import (
	"errors"
	"fmt"
	"iter"

	"github.com/sofmeright/tswatch/src/config"
	"github.com/sofmeright/tswatch/src/logger"
)

// Projects resolves each descriptor lazily, in order. Every project yields
// either settings or a *ProjectError; the consumer decides what a failure
// means for the rest of the run.
func (r *Resolver) Projects(projects []config.ProjectDescriptor) iter.Seq2[*ProjectSettings, error] {
	return func(yield func(*ProjectSettings, error) bool) {
		for _, p := range projects {
			s, err := r.Resolve(p)
			if !yield(s, err) {
				return
			}
		}
	}
}

// ErrorPolicy decides what Run does when a project fails to resolve.
type ErrorPolicy int

const (
	// Abort stops at the first failing project.
	Abort ErrorPolicy = iota
	// Skip logs the failure and moves on to the next project.
	Skip
)

// AddWorkerFunc receives each resolved project as soon as it is ready.
type AddWorkerFunc func(*ProjectSettings) error

// Outcome is the result for one project.
type Outcome struct {
	Path     string
	Settings *ProjectSettings
	Err      error
}

// Summary describes a finished Run.
type Summary struct {
	Outcomes []Outcome
	Added    int
	Linted   int
	Failed   int
}

// Run drains seq into add, one project at a time. With Abort the first
// project error is returned; with Skip failures are logged and counted.
// An error from add always stops the run.
func Run(seq iter.Seq2[*ProjectSettings, error], add AddWorkerFunc, policy ErrorPolicy, log logger.Logger) (Summary, error) {
	if log == nil {
		log = logger.GetDefault()
	}

	var sum Summary
	for s, err := range seq {
		if err != nil {
			sum.Failed++
			sum.Outcomes = append(sum.Outcomes, Outcome{Path: errorPath(err), Err: err})
			if policy == Abort {
				return sum, err
			}
			log.Warn("skipping project", "err", err)
			continue
		}

		sum.Outcomes = append(sum.Outcomes, Outcome{Path: s.Path, Settings: s})
		if err := add(s); err != nil {
			return sum, fmt.Errorf("adding worker for %s: %w", s.Path, err)
		}
		sum.Added++
		if s.Tslint != nil {
			sum.Linted++
		}
	}
	return sum, nil
}

func errorPath(err error) string {
	var perr *ProjectError
	if errors.As(err, &perr) {
		return perr.Path
	}
	return ""
}
