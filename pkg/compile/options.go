package compile

import "maps"

// Options is an opaque set of bundler options. Keys are bundler-specific and
// passed through untouched, with one exception: "sourceMaps" is interpreted
// by this layer to decide whether an artifact carries a source map.
type Options map[string]any

const sourceMapsKey = "sourceMaps"

// SourceMaps reports whether source-map generation is enabled in this option
// set. Only a literal boolean true counts; any other value (or an absent
// key) disables source maps.
func (o Options) SourceMaps() bool {
	v, ok := o[sourceMapsKey].(bool)
	return ok && v
}

// ResolveOptions merges global defaults with a spec's per-bundle overrides
// into the effective option set for one bundle invocation.
//
// The merge is shallow and not recursive: a per-bundle key fully replaces
// the corresponding global value, even when both values are maps. Keys not
// present per-bundle retain the global value. Absent inputs behave as empty
// maps, so the result is never nil. The result depends only on the inputs.
func ResolveOptions(global Options, spec Spec) Options {
	merged := make(Options, len(global)+len(spec.Options))
	maps.Copy(merged, global)
	maps.Copy(merged, spec.Options)
	return merged
}
