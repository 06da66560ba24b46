package plugin

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rogpeppe/go-internal/dirhash"
)

// Identifier contains general info about the plugin module that is being packaged. It ends up in the banner of every
// artifact.
type Identifier struct {
	// Name is the package name from package.json. If the project has no package.json, it is the name of the project
	// root directory.
	Name string
	// Version is the package version from package.json, or "0.0.0" if there is none.
	Version string
}

// ParseIdentifier reads the Identifier of the plugin in the project root provided.
func ParseIdentifier(root string) (Identifier, error) {
	id := Identifier{
		Name:    filepath.Base(root),
		Version: "0.0.0",
	}
	f, err := os.ReadFile(filepath.Join(root, "package.json"))
	if os.IsNotExist(err) {
		return id, nil
	} else if err != nil {
		return Identifier{}, err
	}
	var pkg struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	}
	if err := json.Unmarshal(f, &pkg); err != nil {
		return Identifier{}, err
	}
	if pkg.Name != "" {
		id.Name = pkg.Name
	}
	if pkg.Version != "" {
		id.Version = pkg.Version
	}
	return id, nil
}

// Checksum returns a checksum over the contents of the input files of a build. The files are relative to root, as they
// are listed in the metafile. Inputs that do not live on the file system, such as esbuild's disabled or virtual
// modules, are skipped.
//
// The checksum is deterministic and unique for a specific version of the plugin's source code, and it only changes
// when a file that is part of the import graph changes.
func Checksum(root string, inputs []string) (string, error) {
	files := make([]string, 0, len(inputs))
	for _, in := range inputs {
		if strings.Contains(in, ":") && !filepath.IsAbs(in) {
			// Namespaced path, e.g. "(disabled):fs".
			continue
		}
		if info, err := os.Stat(filepath.Join(root, in)); err != nil || !info.Mode().IsRegular() {
			continue
		}
		files = append(files, filepath.ToSlash(in))
	}
	return dirhash.Hash1(files, func(name string) (io.ReadCloser, error) {
		return os.Open(filepath.Join(root, filepath.FromSlash(name)))
	})
}
