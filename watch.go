package main

import (
	"github.com/saddlemc/pluginpack/watch"
	"github.com/spf13/cobra"
)

func newWatchCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "watch [target...]",
		Short: "Rebuild targets whenever the plugin sources change",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, err := loadProject(opts)
			if err != nil {
				return err
			}
			targets, err := p.targets.Select(args...)
			if err != nil {
				return err
			}

			cfg := watch.DefaultConfig(p.settings.Root, p.settings.OutDir)
			cfg.Ignore = append(cfg.Ignore, p.cfg.LockPath())
			for _, d := range p.targets {
				cfg.Ignore = append(cfg.Ignore, d.OutputPath(p.settings.OutDir))
			}
			cfg.Log = p.log
			w, err := watch.New(cfg)
			if err != nil {
				return err
			}
			changes, err := w.Start()
			if err != nil {
				return err
			}
			defer w.Stop()

			// Failed builds are reported but do not stop watching.
			if err := p.build(ctx, cmd.OutOrStdout(), targets); err != nil {
				p.log.Error().Msgf("%v", err)
			}
			p.log.Info().Msgf("Watching %s for changes...", p.settings.Root)
			for {
				select {
				case <-ctx.Done():
					p.log.Info().Msgf("Stopped watching.")
					return nil
				case <-changes:
					if err := p.build(ctx, cmd.OutOrStdout(), targets); err != nil {
						p.log.Error().Msgf("%v", err)
					}
				}
			}
		},
	}
}
