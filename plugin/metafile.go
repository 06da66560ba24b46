package plugin

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Metafile is the subset of the esbuild metafile that is needed to inspect a build.
type Metafile struct {
	Inputs  map[string]MetafileInput  `json:"inputs"`
	Outputs map[string]MetafileOutput `json:"outputs"`
}

// MetafileInput is an input file of a build.
type MetafileInput struct {
	Bytes   int              `json:"bytes"`
	Imports []MetafileImport `json:"imports"`
	// Format is "esm" or "cjs" if esbuild could determine the module format of the file.
	Format string `json:"format,omitempty"`
}

// MetafileImport is an import of an input or output file.
type MetafileImport struct {
	Path     string `json:"path"`
	Kind     string `json:"kind"`
	External bool   `json:"external,omitempty"`
	Original string `json:"original,omitempty"`
}

// MetafileOutput is a file produced by a build.
type MetafileOutput struct {
	Bytes      int              `json:"bytes"`
	Imports    []MetafileImport `json:"imports"`
	Exports    []string         `json:"exports"`
	EntryPoint string           `json:"entryPoint,omitempty"`
}

// ParseMetafile decodes the metafile that esbuild returns in its build result.
func ParseMetafile(data string) (*Metafile, error) {
	m := &Metafile{}
	if err := json.Unmarshal([]byte(data), m); err != nil {
		return nil, fmt.Errorf("error decoding metafile: %w", err)
	}
	return m, nil
}

// Entry returns the output that was produced for an entry point. Builds in this module always have exactly one entry
// point.
func (m *Metafile) Entry() (string, MetafileOutput, bool) {
	for path, out := range m.Outputs {
		if out.EntryPoint != "" {
			return path, out, true
		}
	}
	return "", MetafileOutput{}, false
}

// InputPaths returns the sorted paths of all inputs.
func (m *Metafile) InputPaths() []string {
	paths := make([]string, 0, len(m.Inputs))
	for p := range m.Inputs {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
