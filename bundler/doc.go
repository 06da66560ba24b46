// Package bundler packages the plugin module into one artifact per target. Bundling itself is done by esbuild; this
// package maps target descriptors onto esbuild options, classifies the diagnostics into the error types below, checks
// the exported plugin surface and writes the artifacts.
package bundler
