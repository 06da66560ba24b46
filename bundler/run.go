package bundler

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/saddlemc/pluginpack/target"
	"golang.org/x/sync/errgroup"
)

// Result is the outcome of building a single target.
type Result struct {
	Target   target.Descriptor
	Artifact Artifact
	// Err is nil if the artifact was built successfully.
	Err      error
	Duration time.Duration
}

// Report holds the results of all targets of a run, in the order of the target set.
type Report struct {
	Results []Result
}

// Failed returns the results of all targets that failed.
func (r *Report) Failed() []Result {
	var failed []Result
	for _, res := range r.Results {
		if res.Err != nil {
			failed = append(failed, res)
		}
	}
	return failed
}

// Artifacts returns the artifacts of all targets that were built successfully.
func (r *Report) Artifacts() []Artifact {
	var artifacts []Artifact
	for _, res := range r.Results {
		if res.Err == nil {
			artifacts = append(artifacts, res.Artifact)
		}
	}
	return artifacts
}

// Err returns an error naming every failed target, or nil if all targets were built.
func (r *Report) Err() error {
	failed := r.Failed()
	if len(failed) == 0 {
		return nil
	}
	names := make([]string, len(failed))
	for i, res := range failed {
		names[i] = res.Target.Name
	}
	return fmt.Errorf("%d of %d targets failed: %s", len(failed), len(r.Results), strings.Join(names, ", "))
}

// Run builds every target of the set. Targets are built in parallel and independently of each other: a failing target
// never stops the others, and the artifacts of successful targets are kept. Targets that have not started when ctx is
// cancelled fail with the context error.
func Run(ctx context.Context, log *zerolog.Logger, set Settings, targets target.Set) *Report {
	report := &Report{Results: make([]Result, len(targets))}
	if len(targets) == 0 {
		return report
	}
	jobs := set.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	// Every goroutine owns exactly one result slot, so no locking is needed.
	var g errgroup.Group
	g.SetLimit(min(jobs, len(targets)))
	for i, d := range targets {
		g.Go(func() error {
			start := time.Now()
			a, err := Build(ctx, log, set, d)
			report.Results[i] = Result{
				Target:   d,
				Artifact: a,
				Err:      err,
				Duration: time.Since(start),
			}
			if err != nil {
				log.Error().Str("target", d.Name).Msgf("%v", err)
			} else {
				log.Info().Str("target", d.Name).Msgf("Built %s in %.3f seconds.", d.Filename, report.Results[i].Duration.Seconds())
			}
			// Failures are recorded in the report instead, so that sibling targets keep building.
			return nil
		})
	}
	_ = g.Wait()
	return report
}
