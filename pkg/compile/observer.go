package compile

import "time"

// Result summarizes one successful bundle operation for observers.
type Result struct {
	Entry      string // the spec's Src
	Path       string // the spec's Dst
	Standalone bool   // whether the standalone operation was used
	Size       int    // bundled output size in bytes
	SourceMap  bool   // whether the artifact carries a source map
	Duration   time.Duration
}

// Observer receives the result of every successful bundle operation, in
// input order, for logging or telemetry. An error returned by OnBuildResult
// fails the enclosing dispatch: the orchestrator treats the spec as failed
// and emits no artifact for it.
type Observer interface {
	OnBuildResult(Result) error
}
