package service

type BuildState int

const (
	BuildStateSuccess BuildState = iota
	BuildStateConfigFailed
	BuildStateBuildFailed
	BuildStateEmitFailed
	BuildStateInternalError
)

func (s BuildState) String() string {
	switch s {
	case BuildStateSuccess:
		return "success"
	case BuildStateConfigFailed:
		return "config_failed"
	case BuildStateBuildFailed:
		return "build_failed"
	case BuildStateEmitFailed:
		return "emit_failed"
	}
	return "internal_error"
}

// Status is the outcome of a worker's most recent iteration.
type Status struct {
	State   BuildState
	Message string
}
