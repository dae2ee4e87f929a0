package config

import (
	"fmt"
	"os"
	"reflect"
	"slices"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/jsforge/bundle-pipeline/pkg/compile"
)

// Internal configuration data structures for the bundle pipeline.

// Root is the top-level configuration structure. It carries everything one
// compile run needs: the global bundler configuration, global option
// defaults, and the ordered list of bundles to build, plus the settings for
// artifact emission and the watch service.
type Root struct {
	// Config is handed to the bundler's one-time configure step, opaque to
	// this layer.
	Config map[string]any `json:"config,omitempty"`

	// BundleOptions are option defaults applied to every bundle before
	// per-bundle overrides.
	BundleOptions map[string]any `json:"bundle_options,omitempty"`

	// Bundles are built strictly in the order they are listed.
	Bundles []*Bundle `json:"bundles,omitempty"`

	Output  *Output  `json:"output,omitempty"`
	Service *Service `json:"service,omitempty"`

	_ struct{} `additionalProperties:"false"`
}

// Bundle describes one requested build unit.
type Bundle struct {
	Src     string         `json:"src"`
	Dst     string         `json:"dst"`
	SFX     bool           `json:"sfx,omitempty"`
	Options map[string]any `json:"options,omitempty"`

	_ struct{} `additionalProperties:"false"`
}

func (a *Bundle) Equal(b *Bundle) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Src == b.Src &&
		a.Dst == b.Dst &&
		a.SFX == b.SFX &&
		reflect.DeepEqual(a.Options, b.Options)
}

// Output configures where emitted artifacts go.
type Output struct {
	// Dir receives one file per artifact (plus .map siblings).
	Dir string `json:"dir,omitempty"`

	// Tarball, when set, receives all artifacts as a single tar stream
	// instead.
	Tarball string `json:"tarball,omitempty"`

	// ExcludedFiles are glob patterns matched against artifact paths;
	// matching artifacts are built but not emitted.
	ExcludedFiles []string `json:"excluded_files,omitempty"`

	_ struct{} `additionalProperties:"false"`
}

// Service configures the watch service.
type Service struct {
	// Interval between rebuilds. Zero means the built-in default.
	Interval Duration `json:"interval,omitempty"`

	// Listen is the bind address of the metrics endpoint. Empty disables it.
	Listen string `json:"listen,omitempty"`

	_ struct{} `additionalProperties:"false"`
}

func (r *Root) Equal(other *Root) bool {
	if r == nil || other == nil {
		return r == other
	}
	return reflect.DeepEqual(r.Config, other.Config) &&
		reflect.DeepEqual(r.BundleOptions, other.BundleOptions) &&
		slices.EqualFunc(r.Bundles, other.Bundles, (*Bundle).Equal) &&
		reflect.DeepEqual(r.Output, other.Output) &&
		reflect.DeepEqual(r.Service, other.Service)
}

// Request converts the configuration into a compile request. Option values
// of the form ${VAR} are expanded from the environment at this point, so a
// run sees one consistent snapshot.
func (r *Root) Request() *compile.Request {
	req := &compile.Request{
		Config:        expandEnv(r.Config).(map[string]any),
		BundleOptions: compile.Options(expandEnv(r.BundleOptions).(map[string]any)),
		Bundles:       make([]compile.Spec, len(r.Bundles)),
	}
	for i, b := range r.Bundles {
		req.Bundles[i] = compile.Spec{
			Src:     b.Src,
			Dst:     b.Dst,
			SFX:     b.SFX,
			Options: compile.Options(expandEnv(b.Options).(map[string]any)),
		}
	}
	return req
}

// expandEnv walks maps, slices and strings and expands ${VAR} references.
// Non-string leaves pass through untouched. A nil map expands to an empty
// one so downstream merges never see nil.
func expandEnv(v any) any {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[k] = expandEnv(val)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = expandEnv(val)
		}
		return out
	case string:
		return os.Expand(x, func(name string) string {
			return os.Getenv(name)
		})
	case nil:
		return map[string]any{}
	}
	return v
}

// Parse unmarshals and schema-validates a YAML (or JSON) configuration
// document.
func Parse(bs []byte) (*Root, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(bs, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := validateSchema(doc); err != nil {
		return nil, err
	}

	var root Root
	if err := yaml.Unmarshal(bs, &root); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	return &root, nil
}

// Duration wraps time.Duration so configs can say "30s" or "5m".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(bs []byte) error {
	var s string
	if err := yaml.Unmarshal(bs, &s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalYAML() ([]byte, error) {
	return yaml.Marshal(time.Duration(d).String())
}
