package bundler

import (
	"github.com/evanw/esbuild/pkg/api"
	"github.com/saddlemc/pluginpack/plugin"
	"github.com/saddlemc/pluginpack/target"
)

// Settings defines the environment shared by every target of a build.
type Settings struct {
	// Root is the absolute project root. Entry points are resolved relative to it.
	Root string
	// OutDir is the absolute directory artifacts are written to.
	OutDir string
	// Exports lists the named exports the entry module of every target must provide. An empty list disables the check.
	Exports []string
	// Plugin identifies the plugin that is packaged. It is written into the banner of every artifact.
	Plugin plugin.Identifier
	// Jobs is the maximum amount of targets built at the same time. If not provided, it defaults to one per CPU.
	Jobs int
}

// buildOptions converts a descriptor into the esbuild options used to build it.
func (set Settings) buildOptions(d target.Descriptor, banner string) api.BuildOptions {
	opts := api.BuildOptions{
		EntryPoints:   []string{d.Entry},
		Outfile:       d.OutputPath(set.OutDir),
		AbsWorkingDir: set.Root,
		Bundle:        true,
		Write:         false,
		Metafile:      true,
		Format:        esbuildFormat(d.Format),
		Platform:      esbuildPlatform(d.Platform),
		Charset:       api.CharsetUTF8,
		LogLevel:      api.LogLevelSilent,
		Banner:        map[string]string{"js": banner},
	}
	switch d.Mode {
	case target.ModeProduction:
		opts.MinifyWhitespace = true
		opts.MinifyIdentifiers = true
		opts.MinifySyntax = true
		opts.TreeShaking = api.TreeShakingTrue
		opts.Sourcemap = api.SourceMapNone
	case target.ModeDevelopment:
		// The source map is inlined so that every target still produces exactly one file.
		opts.Sourcemap = api.SourceMapInline
	}
	return opts
}

func esbuildFormat(f target.Format) api.Format {
	if f == target.FormatCommonModule {
		return api.FormatCommonJS
	}
	return api.FormatESModule
}

func esbuildPlatform(p target.Platform) api.Platform {
	switch p {
	case target.PlatformNode:
		return api.PlatformNode
	case target.PlatformNeutral:
		return api.PlatformNeutral
	}
	return api.PlatformBrowser
}
