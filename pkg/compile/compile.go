// Package compile orchestrates an external module bundler over a list of
// bundle specs: it validates each spec, resolves the effective option set by
// layering global defaults under per-bundle overrides, dispatches library or
// standalone builds strictly in input order, and converts raw bundler output
// into the ordered artifact sequence consumed by the downstream pipeline.
//
// A compile run is all-or-nothing: the first validation, bundling or
// observer failure aborts the run and no partial artifact list is returned.
//
// # Basic Usage
//
//	c := compile.New().
//	    WithBundler(esbuild.New()).
//	    WithObserver(reporter)
//
//	artifacts, err := c.Compile(ctx, &compile.Request{
//	    BundleOptions: compile.Options{"minify": true},
//	    Bundles: []compile.Spec{
//	        {Src: "src/app.js", Dst: "app.js"},
//	        {Src: "src/worker.js", Dst: "worker.js", SFX: true},
//	    },
//	})
package compile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jsforge/bundle-pipeline/pkg/bundler"
)

// Spec describes one requested build unit.
type Spec struct {
	// Src is the bundle entry point. Required.
	Src string

	// Dst is the output path the produced artifact is addressed by.
	// Required.
	Dst string

	// SFX requests a self-executing standalone bundle instead of a
	// library-style bundle.
	SFX bool

	// Options are per-bundle overrides layered over the request's global
	// bundle options. Unknown keys are passed to the bundler untouched.
	Options Options
}

// Validate checks the spec for required fields. It returns a
// *ValidationError naming the first missing field, or nil.
func (s Spec) Validate() error {
	if s.Src == "" {
		return &ValidationError{Field: "src"}
	}
	if s.Dst == "" {
		return &ValidationError{Field: "dst"}
	}
	return nil
}

// Request is the immutable input of one compile run.
type Request struct {
	// Config is the global bundler configuration, handed to the bundler's
	// one-time configure step before any bundle operation.
	Config map[string]any

	// BundleOptions are global defaults applied to every bundle before
	// per-bundle overrides.
	BundleOptions Options

	// Bundles are processed strictly in order; the resulting artifact
	// sequence matches this order.
	Bundles []Spec
}

// Compiler drives one bundler through a sequence of bundle specs.
type Compiler struct {
	bundler  bundler.Bundler
	observer Observer
}

func New() *Compiler {
	return &Compiler{}
}

func (c *Compiler) WithBundler(b bundler.Bundler) *Compiler {
	c.bundler = b
	return c
}

func (c *Compiler) WithObserver(o Observer) *Compiler {
	c.observer = o
	return c
}

// Compile configures the bundler once and then processes every spec in
// request order, one at a time. The bundler is assumed to hold shared
// mutable configuration state, so bundle operations are never fanned out.
//
// On success the returned artifacts correspond one-to-one, in order, to
// req.Bundles. On the first failure Compile returns a *ValidationError or
// *BundleError and the remaining specs are not processed; no partial
// artifact list is ever returned. No retries happen at this layer.
func (c *Compiler) Compile(ctx context.Context, req *Request) ([]Artifact, error) {
	if c.bundler == nil {
		return nil, errors.New("compile: no bundler configured")
	}

	if err := c.bundler.Configure(ctx, req.Config); err != nil {
		return nil, fmt.Errorf("configure bundler: %w", err)
	}

	artifacts := make([]Artifact, 0, len(req.Bundles))

	for _, spec := range req.Bundles {
		if err := spec.Validate(); err != nil {
			return nil, err
		}

		art, err := c.dispatch(ctx, spec, ResolveOptions(req.BundleOptions, spec))
		if err != nil {
			return nil, err
		}

		artifacts = append(artifacts, *art)
	}

	return artifacts, nil
}

// dispatch invokes the bundling operation matching the spec's mode and
// converts the raw result into an artifact. The observer runs after a
// successful build; an observer failure fails the dispatch even though the
// underlying build succeeded, so no artifact escapes for that spec.
func (c *Compiler) dispatch(ctx context.Context, spec Spec, opts Options) (*Artifact, error) {
	start := time.Now()

	var res *bundler.Result
	var err error
	if spec.SFX {
		res, err = c.bundler.BundleStandalone(ctx, spec.Src, spec.Dst, opts)
	} else {
		res, err = c.bundler.BundleLibrary(ctx, spec.Src, opts)
	}
	if err != nil {
		return nil, &BundleError{Bundle: spec.Dst, Err: err}
	}

	art := &Artifact{Path: spec.Dst, Contents: res.Source}
	if opts.SourceMaps() {
		// The map is attached only when it was requested, regardless of
		// what the bundler happened to return.
		art.SourceMap = res.SourceMap
	}

	if c.observer != nil {
		result := Result{
			Entry:      spec.Src,
			Path:       spec.Dst,
			Standalone: spec.SFX,
			Size:       len(art.Contents),
			SourceMap:  art.SourceMap != nil,
			Duration:   time.Since(start),
		}
		if err := c.observer.OnBuildResult(result); err != nil {
			return nil, &BundleError{Bundle: spec.Dst, Err: err}
		}
	}

	return art, nil
}
