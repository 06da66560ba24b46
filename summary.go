package main

import (
	"fmt"
	"io"
	"path/filepath"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/saddlemc/pluginpack/bundler"
)

var (
	okColor     = color.New(color.FgGreen, color.Bold)
	failedColor = color.New(color.FgRed, color.Bold)
)

// printSummary lists every target of a run with its outcome.
func printSummary(out io.Writer, root string, report *bundler.Report) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, res := range report.Results {
		if res.Err != nil {
			fmt.Fprintf(w, "  %s\t%s\t%v\n", failedColor.Sprint("FAILED"), res.Target.Name, res.Err)
			continue
		}
		path, err := filepath.Rel(root, res.Artifact.Path)
		if err != nil {
			path = res.Artifact.Path
		}
		fmt.Fprintf(w, "  %s\t%s\t%s\t%s\n", okColor.Sprint("ok"), res.Target.Name, filepath.ToSlash(path), humanize.Bytes(uint64(res.Artifact.Size)))
	}
	w.Flush()
}
