package bundler

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/dustin/go-humanize"
	"github.com/evanw/esbuild/pkg/api"
	"github.com/rs/zerolog"
	"github.com/saddlemc/pluginpack/plugin"
	"github.com/saddlemc/pluginpack/target"
	"github.com/zeebo/blake3"
)

// Artifact is the file produced for one target. It is regenerated on every build.
type Artifact struct {
	// Target is the name of the target the artifact was built for.
	Target string
	// Path is the absolute path the artifact was written to.
	Path   string
	Format target.Format
	Mode   target.Mode
	// Size is the size of the artifact in bytes.
	Size int
	// Checksum is the hex encoded blake3 checksum of the artifact contents.
	Checksum string
	// Source is the checksum of all input files that ended up in the artifact.
	Source string
	// Exports lists the named exports of the plugin entry module, sorted. It is empty for CommonJS entries.
	Exports []string
}

// Build builds the artifact for a single target and writes it to the output directory. Any file already present at the
// output path is replaced. The descriptor must come from a validated target.Set.
func Build(ctx context.Context, log *zerolog.Logger, set Settings, d target.Descriptor) (Artifact, error) {
	if err := ctx.Err(); err != nil {
		return Artifact{}, &BuildError{Target: d.Name, Err: err}
	}
	tlog := log.With().Str("target", d.Name).Logger()

	entry := filepath.Join(set.Root, d.Entry)
	info, err := os.Stat(entry)
	if err != nil {
		return Artifact{}, &EntryResolutionError{Target: d.Name, Entry: d.Entry, Err: err}
	}
	if info.IsDir() {
		return Artifact{}, &EntryResolutionError{Target: d.Name, Entry: d.Entry, Err: errors.New("entry is a directory")}
	}
	tlog.Debug().Msgf("Resolved entry '%s'.", entry)

	banner, err := renderBanner(set.Plugin, d)
	if err != nil {
		return Artifact{}, &BuildError{Target: d.Name, Err: err}
	}
	result := api.Build(set.buildOptions(d, banner))
	if err := checkMessages(&tlog, d, result); err != nil {
		return Artifact{}, err
	}
	if len(result.OutputFiles) != 1 {
		return Artifact{}, &BuildError{Target: d.Name, Err: fmt.Errorf("expected a single output file, got %d", len(result.OutputFiles))}
	}

	meta, err := plugin.ParseMetafile(result.Metafile)
	if err != nil {
		return Artifact{}, &BuildError{Target: d.Name, Err: err}
	}
	if err := checkStaticGraph(d, meta); err != nil {
		return Artifact{}, err
	}
	exports, err := checkSurface(&tlog, set, d, meta)
	if err != nil {
		return Artifact{}, err
	}
	source, err := plugin.Checksum(set.Root, meta.InputPaths())
	if err != nil {
		return Artifact{}, &BuildError{Target: d.Name, Err: fmt.Errorf("error computing source checksum: %w", err)}
	}

	out := result.OutputFiles[0]
	path := d.OutputPath(set.OutDir)
	if err := writeArtifact(path, out.Contents); err != nil {
		return Artifact{}, &BuildError{Target: d.Name, Err: err}
	}
	sum := blake3.Sum256(out.Contents)
	a := Artifact{
		Target:   d.Name,
		Path:     path,
		Format:   d.Format,
		Mode:     d.Mode,
		Size:     len(out.Contents),
		Checksum: hex.EncodeToString(sum[:]),
		Source:   source,
		Exports:  exports,
	}
	tlog.Debug().Msgf("Wrote '%s' (%s).", path, humanize.Bytes(uint64(a.Size)))
	return a, nil
}

// checkMessages turns the esbuild diagnostics of a build into an error. Warnings that make the artifact unusable in its
// module format are treated like errors, all other warnings are only logged.
func checkMessages(log *zerolog.Logger, d target.Descriptor, result api.BuildResult) error {
	var resolution, unsupported, other []string
	for _, msg := range result.Errors {
		switch classify(msg) {
		case classResolution:
			resolution = append(resolution, formatMessage(msg))
		case classUnsupported, classStaticOnly:
			unsupported = append(unsupported, formatMessage(msg))
		default:
			other = append(other, formatMessage(msg))
		}
	}
	for _, msg := range result.Warnings {
		c := classify(msg)
		if c == classUnsupported || (c == classStaticOnly && d.Format == target.FormatESModule) {
			unsupported = append(unsupported, formatMessage(msg))
			continue
		}
		log.Warn().Msgf("%s", formatMessage(msg))
	}

	switch {
	case len(resolution) > 0:
		return &EntryResolutionError{Target: d.Name, Entry: d.Entry, Messages: resolution}
	case len(unsupported) > 0:
		return &UnsupportedSyntaxError{Target: d.Name, Format: d.Format.String(), Messages: unsupported}
	case len(other) > 0:
		return &BuildError{Target: d.Name, Messages: other}
	}
	return nil
}

// checkStaticGraph makes sure that an ES module artifact does not depend on synchronous loading of other modules at
// runtime. Such require calls remain in the output when esbuild cannot bundle the required module.
func checkStaticGraph(d target.Descriptor, meta *plugin.Metafile) error {
	if d.Format != target.FormatESModule {
		return nil
	}
	var msgs []string
	for _, out := range meta.Outputs {
		for _, imp := range out.Imports {
			if imp.Kind == "require-call" {
				msgs = append(msgs, fmt.Sprintf("require(%q) needs synchronous loading at runtime", imp.Path))
			}
		}
	}
	if len(msgs) > 0 {
		return &UnsupportedSyntaxError{Target: d.Name, Format: d.Format.String(), Messages: msgs}
	}
	return nil
}

// checkSurface makes sure the entry module exports the required plugin surface, and returns its exports.
func checkSurface(log *zerolog.Logger, set Settings, d target.Descriptor, meta *plugin.Metafile) ([]string, error) {
	var (
		surface plugin.Surface
		err     error
	)
	if d.Format == target.FormatESModule {
		surface, err = plugin.SurfaceOf(meta)
	} else {
		surface, err = plugin.Inspect(set.Root, d.Entry, esbuildPlatform(d.Platform))
	}
	if err != nil {
		return nil, &BuildError{Target: d.Name, Err: err}
	}
	if !surface.Static() {
		log.Debug().Msgf("Entry '%s' is a CommonJS module, skipping export check.", d.Entry)
		return nil, nil
	}
	if missing := surface.Missing(set.Exports); len(missing) > 0 {
		return nil, &EntryResolutionError{Target: d.Name, Entry: d.Entry, Missing: missing}
	}
	return surface.Exports, nil
}

// writeArtifact replaces the file at path with data. The data is written to a temporary file first, so that the path
// never holds a partially written artifact.
func writeArtifact(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("error creating output directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("error creating %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("error writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("error writing %s: %w", path, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("error writing %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("error replacing %s: %w", path, err)
	}
	return nil
}

func renderBanner(id plugin.Identifier, d target.Descriptor) (string, error) {
	var buf bytes.Buffer
	err := bannerTemplate.Execute(&buf, struct {
		Plugin plugin.Identifier
		Target target.Descriptor
	}{id, d})
	if err != nil {
		return "", fmt.Errorf("error rendering banner: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}

var (
	//go:embed banner.templ
	bannerTemplateString string
	bannerTemplate       *template.Template
)

func init() {
	var err error
	bannerTemplate, err = template.New("banner").Parse(bannerTemplateString)
	if err != nil {
		panic(err)
	}
}
