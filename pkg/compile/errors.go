package compile

import "fmt"

// ValidationError reports a bundle spec that is missing a required field. It
// is detected before any bundler call; an invalid spec never reaches the
// bundler.
type ValidationError struct {
	Field string // the missing field, "src" or "dst"
}

func (e *ValidationError) Error() string {
	return "missing " + e.Field
}

// BundleError reports a failed bundle operation: either the underlying
// bundler rejected the build, or the build-result observer failed after a
// successful build. It wraps the originating cause.
type BundleError struct {
	Bundle string // output path of the failed bundle
	Err    error
}

func (e *BundleError) Error() string {
	return fmt.Sprintf("bundle %q: %v", e.Bundle, e.Err)
}

func (e *BundleError) Unwrap() error {
	return e.Err
}
