package plugin

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

// DefaultExports is the export surface of a prettier plugin.
var DefaultExports = []string{"languages", "parsers", "printers", "options"}

// Surface describes what the entry module of the plugin exports.
type Surface struct {
	// Exports lists all the named exports of the entry module, sorted.
	Exports []string
	// Format is the module format esbuild detected for the entry module: "esm", "cjs", or empty if it could not be
	// determined.
	Format string
	// Inputs lists every file of the import graph, relative to the project root.
	Inputs []string
}

// Static reports whether the exports of the entry are known. Exports of CommonJS entries are only known at runtime.
func (s Surface) Static() bool {
	return s.Format != "cjs"
}

// Missing returns the names out of required that the entry module does not export.
func (s Surface) Missing(required []string) []string {
	have := make(map[string]bool, len(s.Exports))
	for _, e := range s.Exports {
		have[e] = true
	}
	var missing []string
	for _, r := range required {
		if !have[r] {
			missing = append(missing, r)
		}
	}
	return missing
}

// SurfaceOf reads the surface of a build from its metafile. The output must have been produced in the ES module format,
// as esbuild only records exports for those.
func SurfaceOf(m *Metafile) (Surface, error) {
	_, out, ok := m.Entry()
	if !ok {
		return Surface{}, errors.New("metafile has no entry point output")
	}
	exports := append([]string(nil), out.Exports...)
	sort.Strings(exports)
	return Surface{
		Exports: exports,
		Format:  m.Inputs[out.EntryPoint].Format,
		Inputs:  m.InputPaths(),
	}, nil
}

// Inspect analyses the entry module of the plugin without writing anything. The entry is bundled as an ES module for the
// platform provided so that its named exports can be read from the metafile.
func Inspect(root, entry string, platform api.Platform) (Surface, error) {
	result := api.Build(api.BuildOptions{
		EntryPoints:   []string{entry},
		Outfile:       filepath.Join(root, "inspect.mjs"),
		AbsWorkingDir: root,
		Bundle:        true,
		Write:         false,
		Metafile:      true,
		Format:        api.FormatESModule,
		Platform:      platform,
		LogLevel:      api.LogLevelSilent,
	})
	if len(result.Errors) > 0 {
		msgs := make([]string, len(result.Errors))
		for i, msg := range result.Errors {
			msgs[i] = msg.Text
		}
		return Surface{}, fmt.Errorf("unable to inspect %s: %s", entry, strings.Join(msgs, "; "))
	}
	m, err := ParseMetafile(result.Metafile)
	if err != nil {
		return Surface{}, err
	}
	return SurfaceOf(m)
}
