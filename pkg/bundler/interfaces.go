// Package bundler defines the contract between the compile orchestrator and
// the underlying module bundler.
//
// The orchestrator never talks to a concrete bundler directly; it is handed a
// Bundler at construction time. This keeps the bundling engine swappable
// (esbuild in-process, an external process, or a test double) without any
// dynamic module interception.
package bundler

import "context"

// Result is the raw output of one bundling operation. SourceMap is empty when
// source-map generation was not enabled for the build.
type Result struct {
	Source    []byte
	SourceMap []byte
}

// Bundler is the capability set the compile orchestrator depends on.
//
// Implementations are assumed to hold shared mutable configuration state set
// by Configure, and are therefore not safe for concurrent bundle calls. The
// orchestrator guarantees strictly sequential use.
type Bundler interface {
	// Configure performs one-time setup with the global bundler
	// configuration. It is called exactly once per compile run, before any
	// bundle operation.
	Configure(ctx context.Context, config map[string]any) error

	// BundleLibrary builds a library-style bundle from the given entry
	// point, intended for consumption by another module loader.
	BundleLibrary(ctx context.Context, entry string, options map[string]any) (*Result, error)

	// BundleStandalone builds a self-executing bundle from the given entry
	// point that runs without an external module loader. dest is the output
	// path the bundle is addressed by; implementations may use it to name
	// generated chunks but must not write it to disk themselves.
	BundleStandalone(ctx context.Context, entry, dest string, options map[string]any) (*Result, error)
}
