package bundler

import (
	"fmt"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

// EntryResolutionError is returned when the entry of a target, or one of the modules it imports, cannot be resolved.
// It is also returned when the entry resolves but lacks part of the required plugin surface. It only fails the target
// it was returned for.
type EntryResolutionError struct {
	Target string
	Entry  string
	// Missing lists the required exports the entry does not provide, if that is the reason resolution failed.
	Missing []string
	// Messages holds the esbuild diagnostics, if any.
	Messages []string
	Err      error
}

func (e *EntryResolutionError) Error() string {
	switch {
	case len(e.Missing) > 0:
		return fmt.Sprintf("target %s: entry %s does not export %s", e.Target, e.Entry, strings.Join(e.Missing, ", "))
	case len(e.Messages) > 0:
		return fmt.Sprintf("target %s: unable to resolve the module graph of %s: %s", e.Target, e.Entry, strings.Join(e.Messages, "; "))
	}
	return fmt.Sprintf("target %s: unable to resolve entry %s: %v", e.Target, e.Entry, e.Err)
}

func (e *EntryResolutionError) Unwrap() error {
	return e.Err
}

// UnsupportedSyntaxError is returned when the plugin uses a construct that cannot be represented in the module format of
// a target, such as top-level await in a CommonJS artifact or a dynamic require in an ES module.
type UnsupportedSyntaxError struct {
	Target   string
	Format   string
	Messages []string
}

func (e *UnsupportedSyntaxError) Error() string {
	return fmt.Sprintf("target %s: plugin cannot be represented as %s: %s", e.Target, e.Format, strings.Join(e.Messages, "; "))
}

// BuildError is returned for any other failure while building or writing an artifact.
type BuildError struct {
	Target   string
	Messages []string
	Err      error
}

func (e *BuildError) Error() string {
	if len(e.Messages) > 0 {
		return fmt.Sprintf("target %s: build failed: %s", e.Target, strings.Join(e.Messages, "; "))
	}
	return fmt.Sprintf("target %s: build failed: %v", e.Target, e.Err)
}

func (e *BuildError) Unwrap() error {
	return e.Err
}

// messageClass is the category of an esbuild diagnostic.
type messageClass uint8

const (
	classOther messageClass = iota
	classResolution
	classUnsupported
	// classStaticOnly are constructs that only break static module graphs. They are fine in CommonJS artifacts.
	classStaticOnly
)

// classify sorts an esbuild diagnostic into one of the error categories based on its text.
func classify(msg api.Message) messageClass {
	text := msg.Text
	switch {
	case strings.HasPrefix(text, "Could not resolve"):
		return classResolution
	case strings.Contains(text, `"require" will not be bundled`):
		return classStaticOnly
	case (strings.Contains(text, "output format") || strings.Contains(text, "configured target environment")) &&
		(strings.Contains(text, "not supported") || strings.Contains(text, "not available")):
		return classUnsupported
	}
	return classOther
}

// formatMessage renders a diagnostic with the location it occurred at.
func formatMessage(msg api.Message) string {
	if msg.Location == nil {
		return msg.Text
	}
	return fmt.Sprintf("%s:%d:%d: %s", msg.Location.File, msg.Location.Line, msg.Location.Column, msg.Text)
}
