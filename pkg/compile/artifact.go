package compile

// Artifact is one produced build output, held in memory for the downstream
// pipeline stage. It has no identity beyond the compile run that created it.
type Artifact struct {
	// Path equals the spec's Dst.
	Path string

	// Contents is the bundled output text.
	Contents []byte

	// SourceMap is non-nil if and only if source-map generation was enabled
	// for the bundle via the effective "sourceMaps" option. The map is kept
	// as a separate field; emitted content carries no inline annotation.
	SourceMap []byte
}
