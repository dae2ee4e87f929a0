// Package esbuild implements the bundler capability on top of esbuild's Go
// API. Builds run fully in-process: no child processes, and nothing is
// written to disk by the bundler itself.
package esbuild

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/go-viper/mapstructure/v2"

	"github.com/jsforge/bundle-pipeline/pkg/bundler"
)

// settings are the option keys this implementation understands. Anything
// else in the option map is ignored rather than rejected, so callers can
// carry forward-compatible flags.
type settings struct {
	Minify     bool              `mapstructure:"minify"`
	SourceMaps bool              `mapstructure:"sourceMaps"`
	Target     string            `mapstructure:"target"`
	Format     string            `mapstructure:"format"`
	Platform   string            `mapstructure:"platform"`
	GlobalName string            `mapstructure:"globalName"`
	Externals  []string          `mapstructure:"externals"`
	Define     map[string]string `mapstructure:"define"`
	Loader     map[string]string `mapstructure:"loader"`
}

// config is the shape of the global configure payload.
type config struct {
	// BaseDir anchors relative entry points.
	BaseDir string `mapstructure:"baseDir"`

	// Defaults are option defaults applied under every bundle's effective
	// options. This is a bundler-level layer below the orchestrator's own
	// global/per-bundle merge.
	Defaults map[string]any `mapstructure:"defaults"`
}

type Bundler struct {
	baseDir  string
	defaults settings
}

var _ bundler.Bundler = (*Bundler)(nil)

func New() *Bundler {
	return &Bundler{}
}

// Configure decodes the global configuration. It is safe to call with a nil
// map; all settings then take their zero defaults.
func (b *Bundler) Configure(_ context.Context, raw map[string]any) error {
	var c config
	if err := decode(raw, &c); err != nil {
		return fmt.Errorf("decode bundler config: %w", err)
	}

	b.baseDir = c.BaseDir
	b.defaults = settings{}
	if err := decode(c.Defaults, &b.defaults); err != nil {
		return fmt.Errorf("decode bundler option defaults: %w", err)
	}
	return nil
}

// BundleLibrary builds a bundle for consumption by another module loader.
// The output format defaults to CommonJS and can be overridden with the
// "format" option.
func (b *Bundler) BundleLibrary(_ context.Context, entry string, options map[string]any) (*bundler.Result, error) {
	s := b.defaults
	if err := decode(options, &s); err != nil {
		return nil, fmt.Errorf("decode options for %q: %w", entry, err)
	}

	format := api.FormatCommonJS
	if s.Format != "" {
		var err error
		if format, err = parseFormat(s.Format); err != nil {
			return nil, err
		}
	}

	return b.build(entry, libraryOutfile(entry), format, s)
}

// BundleStandalone builds a self-executing bundle: the output is always an
// IIFE that needs no external module loader. A "format" option is rejected
// because it contradicts the standalone mode.
func (b *Bundler) BundleStandalone(_ context.Context, entry, dest string, options map[string]any) (*bundler.Result, error) {
	s := b.defaults
	if err := decode(options, &s); err != nil {
		return nil, fmt.Errorf("decode options for %q: %w", entry, err)
	}

	if s.Format != "" && s.Format != "iife" {
		return nil, fmt.Errorf("standalone bundle %q cannot use format %q", dest, s.Format)
	}

	return b.build(entry, dest, api.FormatIIFE, s)
}

func (b *Bundler) build(entry, outfile string, format api.Format, s settings) (*bundler.Result, error) {
	target, err := parseTarget(s.Target)
	if err != nil {
		return nil, err
	}
	platform, err := parsePlatform(s.Platform)
	if err != nil {
		return nil, err
	}
	loader, err := parseLoaders(s.Loader)
	if err != nil {
		return nil, err
	}

	sourcemap := api.SourceMapNone
	if s.SourceMaps {
		sourcemap = api.SourceMapExternal
	}

	if b.baseDir != "" && !filepath.IsAbs(entry) {
		entry = filepath.Join(b.baseDir, entry)
	}

	result := api.Build(api.BuildOptions{
		EntryPoints:       []string{entry},
		Outfile:           outfile,
		Bundle:            true,
		Write:             false,
		Format:            format,
		Target:            target,
		Platform:          platform,
		GlobalName:        s.GlobalName,
		External:          s.Externals,
		Define:            s.Define,
		Loader:            loader,
		Sourcemap:         sourcemap,
		MinifyIdentifiers: s.Minify,
		MinifySyntax:      s.Minify,
		MinifyWhitespace:  s.Minify,
	})

	if len(result.Errors) > 0 {
		errs := make([]error, len(result.Errors))
		for i, msg := range result.Errors {
			text := msg.Text
			if msg.Location != nil {
				text = fmt.Sprintf("%s:%d:%d: %s", msg.Location.File, msg.Location.Line, msg.Location.Column, msg.Text)
			}
			errs[i] = errors.New(text)
		}
		return nil, errors.Join(errs...)
	}

	res := &bundler.Result{}
	for _, f := range result.OutputFiles {
		if strings.HasSuffix(f.Path, ".map") {
			res.SourceMap = f.Contents
		} else {
			res.Source = f.Contents
		}
	}
	if res.Source == nil {
		return nil, fmt.Errorf("bundle %q produced no output", entry)
	}
	return res, nil
}

// libraryOutfile names the in-memory output of a library build. The name
// only matters for telling the source map apart from the source.
func libraryOutfile(entry string) string {
	base := filepath.Base(entry)
	if ext := filepath.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	return base + ".js"
}

func decode(input map[string]any, output any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result: output,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}

func parseFormat(s string) (api.Format, error) {
	switch s {
	case "iife":
		return api.FormatIIFE, nil
	case "cjs", "commonjs":
		return api.FormatCommonJS, nil
	case "esm":
		return api.FormatESModule, nil
	}
	return 0, fmt.Errorf("unsupported format %q", s)
}

// parseLoaders maps file extensions to loaders, e.g. {".svg": "text"}.
func parseLoaders(m map[string]string) (map[string]api.Loader, error) {
	if len(m) == 0 {
		return nil, nil
	}
	out := make(map[string]api.Loader, len(m))
	for ext, name := range m {
		l, err := parseLoader(name)
		if err != nil {
			return nil, fmt.Errorf("loader for %q: %w", ext, err)
		}
		out[ext] = l
	}
	return out, nil
}

func parseLoader(s string) (api.Loader, error) {
	switch s {
	case "js":
		return api.LoaderJS, nil
	case "jsx":
		return api.LoaderJSX, nil
	case "ts":
		return api.LoaderTS, nil
	case "tsx":
		return api.LoaderTSX, nil
	case "json":
		return api.LoaderJSON, nil
	case "css":
		return api.LoaderCSS, nil
	case "text":
		return api.LoaderText, nil
	case "base64":
		return api.LoaderBase64, nil
	case "dataurl":
		return api.LoaderDataURL, nil
	case "file":
		return api.LoaderFile, nil
	case "binary":
		return api.LoaderBinary, nil
	case "copy":
		return api.LoaderCopy, nil
	case "empty":
		return api.LoaderEmpty, nil
	}
	return 0, fmt.Errorf("unsupported loader %q", s)
}

func parsePlatform(s string) (api.Platform, error) {
	switch s {
	case "":
		return api.PlatformBrowser, nil
	case "browser":
		return api.PlatformBrowser, nil
	case "node":
		return api.PlatformNode, nil
	case "neutral":
		return api.PlatformNeutral, nil
	}
	return 0, fmt.Errorf("unsupported platform %q", s)
}

func parseTarget(s string) (api.Target, error) {
	switch s {
	case "":
		return api.DefaultTarget, nil
	case "esnext":
		return api.ESNext, nil
	case "es5":
		return api.ES5, nil
	case "es6", "es2015":
		return api.ES2015, nil
	case "es2016":
		return api.ES2016, nil
	case "es2017":
		return api.ES2017, nil
	case "es2018":
		return api.ES2018, nil
	case "es2019":
		return api.ES2019, nil
	case "es2020":
		return api.ES2020, nil
	case "es2021":
		return api.ES2021, nil
	case "es2022":
		return api.ES2022, nil
	}
	return 0, fmt.Errorf("unsupported target %q", s)
}
