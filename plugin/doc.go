/*
Package plugin is responsible for everything related to the plugin module that is packaged. The module itself is opaque:
it is never modified, only identified and inspected.

# Details
The plugin is identified by the name and version in its package.json. Every build additionally computes a checksum over
the files of the entry module's import graph, so that a changed artifact can be traced back to changed sources.

The export surface of an entry module is read from the esbuild metafile. Only ES module outputs record their exports,
so for CommonJS artifacts the entry is inspected with a separate, in-memory ES module build. Entries that are written in
CommonJS themselves only have a default export as far as static analysis is concerned, their surface is therefore not
checked.
*/
package plugin
