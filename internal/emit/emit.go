// Package emit writes compiled artifacts for the downstream pipeline stage,
// either as plain files under an output directory or as a single tar
// stream. Source maps become sibling "<path>.map" entries. Emission order
// follows artifact order, which in turn follows the configured bundle
// order.
package emit

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/gobwas/glob"

	"github.com/jsforge/bundle-pipeline/internal/config"
	"github.com/jsforge/bundle-pipeline/internal/metrics"
	"github.com/jsforge/bundle-pipeline/pkg/compile"
)

// Write emits artifacts according to the output configuration: a tarball
// when one is configured, an output directory otherwise. A nil output
// configuration keeps the artifacts in memory and emits nothing.
func Write(out *config.Output, artifacts []compile.Artifact) error {
	if out == nil {
		return nil
	}

	emitter, err := New().WithExcluded(out.ExcludedFiles)
	if err != nil {
		return err
	}

	if out.Tarball != "" {
		f, err := os.Create(out.Tarball)
		if err != nil {
			return err
		}
		if err := emitter.WriteTar(f, artifacts); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	}

	if out.Dir != "" {
		return emitter.WriteDir(out.Dir, artifacts)
	}

	return nil
}

type Emitter struct {
	excluded []glob.Glob
}

func New() *Emitter {
	return &Emitter{}
}

// WithExcluded adds glob patterns matched against artifact paths; matching
// artifacts are skipped (their source maps with them). A malformed pattern
// fails the emitter up front rather than at emission time.
func (e *Emitter) WithExcluded(patterns []string) (*Emitter, error) {
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid exclusion pattern %q: %w", p, err)
		}
		e.excluded = append(e.excluded, g)
	}
	return e, nil
}

func (e *Emitter) skip(path string) bool {
	for _, g := range e.excluded {
		if g.Match(path) {
			return true
		}
	}
	return false
}

// WriteDir writes every artifact into dir, creating intermediate
// directories as needed.
func (e *Emitter) WriteDir(dir string, artifacts []compile.Artifact) error {
	for _, art := range artifacts {
		if e.skip(art.Path) {
			continue
		}

		path := filepath.Join(dir, filepath.FromSlash(art.Path))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return err
		}
		if err := os.WriteFile(path, art.Contents, 0644); err != nil {
			return fmt.Errorf("write artifact %q: %w", art.Path, err)
		}
		metrics.ArtifactEmitted(art.Path, len(art.Contents))

		if art.SourceMap == nil {
			continue
		}
		if err := os.WriteFile(path+".map", art.SourceMap, 0644); err != nil {
			return fmt.Errorf("write source map for %q: %w", art.Path, err)
		}
	}
	return nil
}

// WriteTar writes every artifact into one tar stream on w.
func (e *Emitter) WriteTar(w io.Writer, artifacts []compile.Artifact) error {
	tw := tar.NewWriter(w)
	now := time.Now()

	for _, art := range artifacts {
		if e.skip(art.Path) {
			continue
		}

		if err := writeTarEntry(tw, art.Path, art.Contents, now); err != nil {
			return fmt.Errorf("write artifact %q: %w", art.Path, err)
		}
		metrics.ArtifactEmitted(art.Path, len(art.Contents))

		if art.SourceMap == nil {
			continue
		}
		if err := writeTarEntry(tw, art.Path+".map", art.SourceMap, now); err != nil {
			return fmt.Errorf("write source map for %q: %w", art.Path, err)
		}
	}

	return tw.Close()
}

func writeTarEntry(tw *tar.Writer, name string, contents []byte, modTime time.Time) error {
	if err := tw.WriteHeader(&tar.Header{
		Name:    name,
		Mode:    0644,
		Size:    int64(len(contents)),
		ModTime: modTime,
	}); err != nil {
		return err
	}
	_, err := tw.Write(contents)
	return err
}
