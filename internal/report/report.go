// Package report implements the build-result observer: it logs each bundle
// as it is built and renders a summary table once a run completes.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/jsforge/bundle-pipeline/internal/logging"
	"github.com/jsforge/bundle-pipeline/internal/progress"
	"github.com/jsforge/bundle-pipeline/pkg/compile"
)

type Reporter struct {
	log     *logging.Logger
	bar     *progress.Bar
	results []compile.Result
}

var _ compile.Observer = (*Reporter)(nil)

func New(log *logging.Logger) *Reporter {
	return &Reporter{log: log}
}

func (r *Reporter) WithProgress(bar *progress.Bar) *Reporter {
	r.bar = bar
	return r
}

func (r *Reporter) OnBuildResult(res compile.Result) error {
	r.results = append(r.results, res)
	r.bar.Add(1)
	r.log.Debugf("built %q from %q (%d bytes, %v)", res.Path, res.Entry, res.Size, res.Duration)
	return nil
}

// Results returns the collected results in build order.
func (r *Reporter) Results() []compile.Result {
	return r.results
}

// Summary renders a table of everything built so far.
func (r *Reporter) Summary(w io.Writer) error {
	table := tablewriter.NewTable(w)
	table.Header("Output", "Entry", "Mode", "Size", "Map", "Duration")

	for _, res := range r.results {
		mode := "library"
		if res.Standalone {
			mode = "standalone"
		}
		sourceMap := ""
		if res.SourceMap {
			sourceMap = "yes"
		}
		if err := table.Append(res.Path, res.Entry, mode, fmt.Sprintf("%d B", res.Size), sourceMap, res.Duration.Round(time.Millisecond).String()); err != nil {
			return err
		}
	}

	return table.Render()
}
