// Package progress renders a terminal progress bar for interactive builds.
package progress

import (
	"github.com/schollz/progressbar/v3"
)

// Bar counts completed bundle builds. A nil *Bar is valid and counts
// nothing, so non-interactive callers can simply pass nil.
type Bar struct {
	bar *progressbar.ProgressBar
}

func New(max int, description string) *Bar {
	return &Bar{
		bar: progressbar.NewOptions(max,
			progressbar.OptionSetDescription(description),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		),
	}
}

func (b *Bar) Add(n int) {
	if b == nil {
		return
	}
	_ = b.bar.Add(n)
}

func (b *Bar) Finish() {
	if b == nil {
		return
	}
	_ = b.bar.Finish()
}
