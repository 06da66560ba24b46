package plugin

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func TestInspect_ESModule(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"src/base.mjs":    "import { print } from './printer.mjs';\nexport const parse = (text) => text;\nexport { print };\n",
		"src/printer.mjs": "export const print = (ast) => String(ast);\n",
	})

	s, err := Inspect(root, "./src/base.mjs", api.PlatformBrowser)
	require.NoError(t, err)
	assert.Equal(t, []string{"parse", "print"}, s.Exports)
	assert.Equal(t, "esm", s.Format)
	assert.True(t, s.Static())
	assert.Equal(t, []string{"src/base.mjs", "src/printer.mjs"}, s.Inputs)

	assert.Empty(t, s.Missing([]string{"parse", "print"}))
	assert.Equal(t, []string{"languages", "options"}, s.Missing([]string{"languages", "parse", "options"}))
}

func TestInspect_CommonJSEntry(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"index.js": "module.exports = { parse() {}, print() {} };\n",
	})

	s, err := Inspect(root, "./index.js", api.PlatformNode)
	require.NoError(t, err)
	assert.Equal(t, "cjs", s.Format)
	assert.False(t, s.Static())
}

func TestInspect_UnresolvedImport(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"src/base.mjs": "export { parse } from './parser.mjs';\n",
	})

	_, err := Inspect(root, "./src/base.mjs", api.PlatformBrowser)
	assert.ErrorContains(t, err, "Could not resolve")
}

func TestChecksum(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"src/base.mjs": "export const parse = 1;\n",
		"README.md":    "docs",
	})
	inputs := []string{"src/base.mjs", "(disabled):fs"}

	first, err := Checksum(root, inputs)
	require.NoError(t, err)
	assert.Regexp(t, `^h1:`, first)

	// Files outside of the import graph do not matter.
	writeFiles(t, root, map[string]string{"README.md": "other docs"})
	second, err := Checksum(root, inputs)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	writeFiles(t, root, map[string]string{"src/base.mjs": "export const parse = 2;\n"})
	third, err := Checksum(root, inputs)
	require.NoError(t, err)
	assert.NotEqual(t, first, third)
}

func TestParseIdentifier(t *testing.T) {
	root := t.TempDir()
	id, err := ParseIdentifier(root)
	require.NoError(t, err)
	assert.Equal(t, Identifier{Name: filepath.Base(root), Version: "0.0.0"}, id)

	writeFiles(t, root, map[string]string{
		"package.json": `{"name": "liquidsoap-prettier", "version": "1.4.2", "type": "module"}`,
	})
	id, err = ParseIdentifier(root)
	require.NoError(t, err)
	assert.Equal(t, Identifier{Name: "liquidsoap-prettier", Version: "1.4.2"}, id)

	writeFiles(t, root, map[string]string{"package.json": "{"})
	_, err = ParseIdentifier(root)
	assert.Error(t, err)
}
