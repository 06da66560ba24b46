package bundler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/rs/zerolog"
	"github.com/saddlemc/pluginpack/plugin"
	"github.com/saddlemc/pluginpack/target"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baseModule = `import { print } from "./printer.mjs";

export function parse(text) {
  return { type: "program", body: text.split("\n") };
}

export { print };
`

const printerModule = `export function print(path) {
  return path.getValue().body.join("\n");
}

export function unused() {
  return "tree shaken";
}
`

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func newProject(t *testing.T) Settings {
	t.Helper()
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"src/base.mjs":    baseModule,
		"src/printer.mjs": printerModule,
	})
	return Settings{
		Root:    root,
		OutDir:  filepath.Join(root, "dist"),
		Exports: []string{"parse", "print"},
		Plugin:  plugin.Identifier{Name: "liquidsoap-prettier", Version: "1.0.0"},
	}
}

func descriptor(name string, f target.Format, filename string, m target.Mode) target.Descriptor {
	p := target.PlatformBrowser
	if f == target.FormatCommonModule {
		p = target.PlatformNode
	}
	return target.Descriptor{
		Name:     name,
		Entry:    "./src/base.mjs",
		Format:   f,
		Filename: filename,
		Mode:     m,
		Platform: p,
	}
}

func TestBuild_WebProduction(t *testing.T) {
	log := zerolog.Nop()
	set := newProject(t)
	d := descriptor("web", target.FormatESModule, "web.mjs", target.ModeProduction)

	a, err := Build(context.Background(), &log, set, d)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(set.Root, "dist", "web.mjs"), a.Path)
	assert.Equal(t, []string{"parse", "print"}, a.Exports)
	assert.Len(t, a.Checksum, 64)
	assert.Regexp(t, `^h1:`, a.Source)

	data, err := os.ReadFile(a.Path)
	require.NoError(t, err)
	assert.Equal(t, a.Size, len(data))
	assert.Regexp(t, `export\s*\{`, string(data))
	assert.Contains(t, string(data), "liquidsoap-prettier v1.0.0")
	assert.Contains(t, string(data), "target: web (esm, browser, production)")
	assert.NotContains(t, string(data), "tree shaken")
	assert.NotContains(t, string(data), "sourceMappingURL")
	assert.NotContains(t, string(data), "module.exports")
}

func TestBuild_LibraryDevelopment(t *testing.T) {
	log := zerolog.Nop()
	set := newProject(t)
	d := descriptor("lib", target.FormatCommonModule, "index.cjs", target.ModeDevelopment)

	a, err := Build(context.Background(), &log, set, d)
	require.NoError(t, err)
	assert.Equal(t, []string{"parse", "print"}, a.Exports)

	data, err := os.ReadFile(a.Path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "module.exports")
	assert.NotRegexp(t, `(?m)^export\s*\{`, string(data))
	assert.Contains(t, string(data), "sourceMappingURL=data:application/json;base64,")
	assert.Contains(t, string(data), "function parse(text)")

	// Only the artifact itself is written.
	entries, err := os.ReadDir(set.OutDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "index.cjs", entries[0].Name())
}

func TestBuild_DevelopmentIsIdempotent(t *testing.T) {
	log := zerolog.Nop()
	set := newProject(t)
	d := descriptor("web", target.FormatESModule, "web.mjs", target.ModeDevelopment)

	first, err := Build(context.Background(), &log, set, d)
	require.NoError(t, err)
	firstData, err := os.ReadFile(first.Path)
	require.NoError(t, err)

	second, err := Build(context.Background(), &log, set, d)
	require.NoError(t, err)
	secondData, err := os.ReadFile(second.Path)
	require.NoError(t, err)

	assert.Equal(t, firstData, secondData)
	assert.Equal(t, first, second)
}

func TestBuild_OverwritesExistingArtifact(t *testing.T) {
	log := zerolog.Nop()
	set := newProject(t)
	writeFiles(t, set.Root, map[string]string{"dist/web.mjs": "stale content that is much longer than it should be"})
	d := descriptor("web", target.FormatESModule, "web.mjs", target.ModeProduction)

	a, err := Build(context.Background(), &log, set, d)
	require.NoError(t, err)
	data, err := os.ReadFile(a.Path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "stale content")
}

func TestBuild_SourceChecksumTracksInputs(t *testing.T) {
	log := zerolog.Nop()
	set := newProject(t)
	d := descriptor("web", target.FormatESModule, "web.mjs", target.ModeProduction)

	first, err := Build(context.Background(), &log, set, d)
	require.NoError(t, err)

	writeFiles(t, set.Root, map[string]string{"src/printer.mjs": printerModule + "\n// changed\n"})
	second, err := Build(context.Background(), &log, set, d)
	require.NoError(t, err)
	assert.NotEqual(t, first.Source, second.Source)
}

func TestBuild_MissingEntry(t *testing.T) {
	log := zerolog.Nop()
	set := newProject(t)
	d := descriptor("web", target.FormatESModule, "web.mjs", target.ModeProduction)
	d.Entry = "./src/missing.mjs"

	_, err := Build(context.Background(), &log, set, d)
	var resErr *EntryResolutionError
	require.True(t, errors.As(err, &resErr), "expected EntryResolutionError, got %v", err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.NoFileExists(t, filepath.Join(set.OutDir, "web.mjs"))
}

func TestBuild_UnresolvedImport(t *testing.T) {
	log := zerolog.Nop()
	set := newProject(t)
	require.NoError(t, os.Remove(filepath.Join(set.Root, "src", "printer.mjs")))
	d := descriptor("web", target.FormatESModule, "web.mjs", target.ModeProduction)

	_, err := Build(context.Background(), &log, set, d)
	var resErr *EntryResolutionError
	require.True(t, errors.As(err, &resErr), "expected EntryResolutionError, got %v", err)
	require.NotEmpty(t, resErr.Messages)
	assert.Contains(t, resErr.Messages[0], "printer.mjs")
}

func TestBuild_MissingExports(t *testing.T) {
	log := zerolog.Nop()
	set := newProject(t)
	set.Exports = []string{"languages", "parse", "print", "printers"}

	for _, f := range []target.Format{target.FormatESModule, target.FormatCommonModule} {
		t.Run(f.String(), func(t *testing.T) {
			d := descriptor("t", f, "out."+f.String(), target.ModeProduction)
			_, err := Build(context.Background(), &log, set, d)
			var resErr *EntryResolutionError
			require.True(t, errors.As(err, &resErr), "expected EntryResolutionError, got %v", err)
			assert.Equal(t, []string{"languages", "printers"}, resErr.Missing)
			assert.EqualError(t, err, "target t: entry ./src/base.mjs does not export languages, printers")
		})
	}
}

func TestBuild_TopLevelAwaitInCommonModule(t *testing.T) {
	log := zerolog.Nop()
	set := newProject(t)
	writeFiles(t, set.Root, map[string]string{
		"src/base.mjs": baseModule + "\nexport const options = await Promise.resolve({});\n",
	})

	_, err := Build(context.Background(), &log, set, descriptor("lib", target.FormatCommonModule, "index.cjs", target.ModeProduction))
	var synErr *UnsupportedSyntaxError
	require.True(t, errors.As(err, &synErr), "expected UnsupportedSyntaxError, got %v", err)
	assert.Equal(t, "cjs", synErr.Format)

	// The same module is fine as an ES module.
	_, err = Build(context.Background(), &log, set, descriptor("web", target.FormatESModule, "web.mjs", target.ModeProduction))
	assert.NoError(t, err)
}

func TestBuild_CancelledContext(t *testing.T) {
	log := zerolog.Nop()
	set := newProject(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Build(ctx, &log, set, descriptor("web", target.FormatESModule, "web.mjs", target.ModeProduction))
	var buildErr *BuildError
	require.True(t, errors.As(err, &buildErr))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		text string
		want messageClass
	}{
		{`Could not resolve "./printer.mjs"`, classResolution},
		{`Top-level await is currently not supported with the "cjs" output format`, classUnsupported},
		{`"import.meta" is not available with the "cjs" output format and will be empty`, classUnsupported},
		{`Big integer literals are not available in the configured target environment`, classUnsupported},
		{`This call to "require" will not be bundled because the argument is not a string literal`, classStaticOnly},
		{`Expected ";" but found "}"`, classOther},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, classify(api.Message{Text: tt.text}))
		})
	}
}

func TestCheckMessages_StaticOnlyWarnings(t *testing.T) {
	log := zerolog.Nop()
	result := api.BuildResult{Warnings: []api.Message{{
		Text: `This call to "require" will not be bundled because the argument is not a string literal`,
	}}}

	err := checkMessages(&log, descriptor("web", target.FormatESModule, "web.mjs", target.ModeProduction), result)
	var synErr *UnsupportedSyntaxError
	assert.True(t, errors.As(err, &synErr))

	err = checkMessages(&log, descriptor("lib", target.FormatCommonModule, "index.cjs", target.ModeProduction), result)
	assert.NoError(t, err)
}

func TestCheckStaticGraph(t *testing.T) {
	meta := &plugin.Metafile{Outputs: map[string]plugin.MetafileOutput{
		"dist/web.mjs": {
			EntryPoint: "src/base.mjs",
			Imports:    []plugin.MetafileImport{{Path: "fs", Kind: "require-call", External: true}},
		},
	}}
	err := checkStaticGraph(descriptor("web", target.FormatESModule, "web.mjs", target.ModeProduction), meta)
	assert.ErrorContains(t, err, `require("fs") needs synchronous loading at runtime`)

	err = checkStaticGraph(descriptor("lib", target.FormatCommonModule, "index.cjs", target.ModeProduction), meta)
	assert.NoError(t, err)
}
