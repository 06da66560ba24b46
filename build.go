package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/saddlemc/pluginpack/bundler"
	"github.com/saddlemc/pluginpack/config"
	"github.com/saddlemc/pluginpack/plugin"
	"github.com/saddlemc/pluginpack/target"
)

// project is everything needed to run a build, loaded from the config file.
type project struct {
	log      *zerolog.Logger
	cfg      *config.Config
	targets  target.Set
	settings bundler.Settings
}

// loadProject reads the config and validates the target set. Any error returned here happens before a single target is
// built.
func loadProject(opts *options) (*project, error) {
	log := newLogger(opts.debug)

	log.Debug().Msgf("Reading %s...", opts.config)
	cfg, err := config.GetOrMakeConfig(log, opts.config)
	if err != nil {
		return nil, err
	}
	if cfg.Bundler.Debug && !opts.debug {
		l := log.Level(zerolog.DebugLevel)
		log = &l
	}

	log.Debug().Msgf("Parsing targets...")
	targets, err := target.ParseAll(cfg.Target)
	if err != nil {
		return nil, err
	}

	id, err := plugin.ParseIdentifier(cfg.RootDir())
	if err != nil {
		return nil, fmt.Errorf("error trying to read package.json: %w", err)
	}

	exports := cfg.Plugin.Exports
	if exports == nil {
		exports = plugin.DefaultExports
	}
	jobs := cfg.Bundler.Jobs
	if opts.jobs > 0 {
		jobs = opts.jobs
	}
	return &project{
		log:     log,
		cfg:     cfg,
		targets: targets,
		settings: bundler.Settings{
			Root:    cfg.RootDir(),
			OutDir:  cfg.OutDir(),
			Exports: exports,
			Plugin:  id,
			Jobs:    jobs,
		},
	}, nil
}

func runBuild(ctx context.Context, out io.Writer, opts *options, names []string) error {
	p, err := loadProject(opts)
	if err != nil {
		return err
	}
	targets, err := p.targets.Select(names...)
	if err != nil {
		return err
	}
	return p.build(ctx, out, targets)
}

// build runs the targets provided, records the artifacts in the lock file and prints a summary.
func (p *project) build(ctx context.Context, out io.Writer, targets target.Set) error {
	p.log.Info().Msgf("Building %d target(s) of %s %s...", len(targets), p.settings.Plugin.Name, p.settings.Plugin.Version)
	start := time.Now()
	report := bundler.Run(ctx, p.log, p.settings, targets)

	p.updateLock(report)
	printSummary(out, p.settings.Root, report)

	if err := report.Err(); err != nil {
		return err
	}
	p.log.Info().Msgf("Done! Finished building in %.3f seconds.", time.Since(start).Seconds())
	return nil
}

// updateLock stores the checksums of all artifacts that were built. Entries of targets that failed are kept, as their
// artifacts from a previous build may still be on disk.
func (p *project) updateLock(report *bundler.Report) {
	path := p.cfg.LockPath()
	lock, _, err := config.GetLock(p.log, path)
	if err != nil {
		p.log.Error().Msgf("%v. Not updating the lock file.", err)
		return
	}
	for _, a := range report.Artifacts() {
		rel, err := filepath.Rel(p.settings.Root, a.Path)
		if err != nil {
			rel = a.Path
		}
		entry := config.LockEntry{
			Path:     filepath.ToSlash(rel),
			Checksum: a.Checksum,
			Source:   a.Source,
		}
		if prev, ok := lock.Targets[a.Target]; ok && prev == entry {
			p.log.Debug().Str("target", a.Target).Msgf("Artifact is unchanged.")
		}
		lock.Targets[a.Target] = entry
	}
	p.log.Debug().Msgf("Writing %s...", filepath.Base(path))
	if err := lock.Write(path); err != nil {
		p.log.Error().Msgf("%v", err)
	}
}

func describe(d target.Descriptor) string {
	return fmt.Sprintf("%s -> %s", d.Entry, d.Filename)
}
