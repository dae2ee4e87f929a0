package compile_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/jsforge/bundle-pipeline/pkg/bundler"
	"github.com/jsforge/bundle-pipeline/pkg/compile"
)

type call struct {
	op      string // "configure", "library" or "standalone"
	entry   string
	dest    string
	options compile.Options
}

// bundlerMock records every invocation and answers from canned results.
type bundlerMock struct {
	calls     []call
	results   map[string]*bundler.Result // keyed by entry
	configErr error
	bundleErr error
}

func (m *bundlerMock) Configure(_ context.Context, config map[string]any) error {
	m.calls = append(m.calls, call{op: "configure", options: compile.Options(config)})
	return m.configErr
}

func (m *bundlerMock) BundleLibrary(_ context.Context, entry string, options map[string]any) (*bundler.Result, error) {
	m.calls = append(m.calls, call{op: "library", entry: entry, options: compile.Options(options)})
	return m.result(entry)
}

func (m *bundlerMock) BundleStandalone(_ context.Context, entry, dest string, options map[string]any) (*bundler.Result, error) {
	m.calls = append(m.calls, call{op: "standalone", entry: entry, dest: dest, options: compile.Options(options)})
	return m.result(entry)
}

func (m *bundlerMock) result(entry string) (*bundler.Result, error) {
	if m.bundleErr != nil {
		return nil, m.bundleErr
	}
	if res, ok := m.results[entry]; ok {
		return res, nil
	}
	return &bundler.Result{Source: []byte("bundle(" + entry + ")")}, nil
}

type observerMock struct {
	results []compile.Result
	err     error
}

func (o *observerMock) OnBuildResult(r compile.Result) error {
	o.results = append(o.results, r)
	return o.err
}

func TestCompile(t *testing.T) {

	cases := []struct {
		note         string
		request      *compile.Request
		results      map[string]*bundler.Result
		expCalls     []call
		expArtifacts []compile.Artifact
		expError     error
	}{
		{
			note: "per-bundle options, input order preserved",
			request: &compile.Request{
				Bundles: []compile.Spec{
					{Src: "a", Dst: "a.js", Options: compile.Options{"minify": true}},
					{Src: "foobar", Dst: "foobar.js"},
				},
			},
			expCalls: []call{
				{op: "configure"},
				{op: "library", entry: "a", options: compile.Options{"minify": true}},
				{op: "library", entry: "foobar", options: compile.Options{}},
			},
			expArtifacts: []compile.Artifact{
				{Path: "a.js", Contents: []byte("bundle(a)")},
				{Path: "foobar.js", Contents: []byte("bundle(foobar)")},
			},
		},
		{
			note: "global options reach every bundle",
			request: &compile.Request{
				BundleOptions: compile.Options{"minify": true},
				Bundles: []compile.Spec{
					{Src: "a", Dst: "a.js"},
				},
			},
			expCalls: []call{
				{op: "configure"},
				{op: "library", entry: "a", options: compile.Options{"minify": true}},
			},
			expArtifacts: []compile.Artifact{
				{Path: "a.js", Contents: []byte("bundle(a)")},
			},
		},
		{
			note: "sfx selects the standalone operation",
			request: &compile.Request{
				Bundles: []compile.Spec{
					{Src: "a", Dst: "a.js", SFX: true},
				},
			},
			expCalls: []call{
				{op: "configure"},
				{op: "standalone", entry: "a", dest: "a.js", options: compile.Options{}},
			},
			expArtifacts: []compile.Artifact{
				{Path: "a.js", Contents: []byte("bundle(a)")},
			},
		},
		{
			note: "source map attached only when requested",
			request: &compile.Request{
				BundleOptions: compile.Options{"sourceMaps": true},
				Bundles: []compile.Spec{
					{Src: "a", Dst: "a.js"},
					{Src: "b", Dst: "b.js", Options: compile.Options{"sourceMaps": false}},
				},
			},
			results: map[string]*bundler.Result{
				"a": {Source: []byte("aa"), SourceMap: []byte("map-a")},
				"b": {Source: []byte("bb"), SourceMap: []byte("map-b")},
			},
			expCalls: []call{
				{op: "configure"},
				{op: "library", entry: "a", options: compile.Options{"sourceMaps": true}},
				{op: "library", entry: "b", options: compile.Options{"sourceMaps": false}},
			},
			expArtifacts: []compile.Artifact{
				{Path: "a.js", Contents: []byte("aa"), SourceMap: []byte("map-a")},
				{Path: "b.js", Contents: []byte("bb")},
			},
		},
		{
			note: "missing src fails before the bundler is invoked",
			request: &compile.Request{
				Bundles: []compile.Spec{
					{Dst: "a.js"},
				},
			},
			expCalls: []call{
				{op: "configure"},
			},
			expError: &compile.ValidationError{Field: "src"},
		},
		{
			note: "missing dst fails before the bundler is invoked",
			request: &compile.Request{
				Bundles: []compile.Spec{
					{Src: "a", Dst: "a.js"},
					{Src: "b"},
					{Src: "c", Dst: "c.js"},
				},
			},
			expCalls: []call{
				{op: "configure"},
				{op: "library", entry: "a", options: compile.Options{}},
			},
			expError: &compile.ValidationError{Field: "dst"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.note, func(t *testing.T) {
			mock := &bundlerMock{results: tc.results}

			artifacts, err := compile.New().WithBundler(mock).Compile(t.Context(), tc.request)

			if tc.expError != nil {
				if err == nil {
					t.Fatal("expected error")
				}
				if err.Error() != tc.expError.Error() {
					t.Fatalf("expected error %q, got %q", tc.expError, err)
				}
				if artifacts != nil {
					t.Fatalf("expected no artifacts on failure, got %v", artifacts)
				}
			} else if err != nil {
				t.Fatal(err)
			}

			if diff := cmp.Diff(tc.expCalls, mock.calls, cmp.AllowUnexported(call{})); diff != "" {
				t.Fatalf("unexpected bundler calls (-want +got):\n%s", diff)
			}

			if tc.expError == nil {
				if diff := cmp.Diff(tc.expArtifacts, artifacts); diff != "" {
					t.Fatalf("unexpected artifacts (-want +got):\n%s", diff)
				}
			}
		})
	}
}

func TestCompileConfiguresBundlerOnce(t *testing.T) {
	mock := &bundlerMock{}
	config := map[string]any{"baseURL": "/", "transpiler": "babel"}

	_, err := compile.New().WithBundler(mock).Compile(t.Context(), &compile.Request{
		Config: config,
		Bundles: []compile.Spec{
			{Src: "a", Dst: "a.js"},
			{Src: "b", Dst: "b.js"},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	var configures int
	for _, c := range mock.calls {
		if c.op == "configure" {
			configures++
		}
	}
	if configures != 1 {
		t.Fatalf("expected exactly one configure call, got %d", configures)
	}
	if diff := cmp.Diff(compile.Options(config), mock.calls[0].options); diff != "" {
		t.Fatalf("unexpected configure options (-want +got):\n%s", diff)
	}
	if mock.calls[0].op != "configure" {
		t.Fatalf("expected configure before any bundle call, got %q first", mock.calls[0].op)
	}
}

func TestCompileConfigureFailure(t *testing.T) {
	cause := errors.New("bad transpiler")
	mock := &bundlerMock{configErr: cause}

	_, err := compile.New().WithBundler(mock).Compile(t.Context(), &compile.Request{
		Bundles: []compile.Spec{{Src: "a", Dst: "a.js"}},
	})
	if !errors.Is(err, cause) {
		t.Fatalf("expected configure failure to propagate, got %v", err)
	}
	if len(mock.calls) != 1 {
		t.Fatalf("expected no bundle calls after configure failure, got %v", mock.calls)
	}
}

func TestCompileBundlerFailure(t *testing.T) {
	cause := errors.New("parse error in a")
	mock := &bundlerMock{bundleErr: cause}

	artifacts, err := compile.New().WithBundler(mock).Compile(t.Context(), &compile.Request{
		Bundles: []compile.Spec{
			{Src: "a", Dst: "a.js"},
			{Src: "b", Dst: "b.js"},
		},
	})
	if artifacts != nil {
		t.Fatalf("expected no partial artifacts, got %v", artifacts)
	}

	var bundleErr *compile.BundleError
	if !errors.As(err, &bundleErr) {
		t.Fatalf("expected *BundleError, got %v", err)
	}
	if bundleErr.Bundle != "a.js" {
		t.Fatalf("expected failure attributed to a.js, got %q", bundleErr.Bundle)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped cause, got %v", err)
	}

	// the second spec must not have been dispatched
	for _, c := range mock.calls[1:] {
		if c.entry == "b" {
			t.Fatal("bundler invoked for a spec after the first failure")
		}
	}
}

func TestCompileObserver(t *testing.T) {
	mock := &bundlerMock{
		results: map[string]*bundler.Result{
			"a": {Source: []byte("aaaa"), SourceMap: []byte("map")},
		},
	}
	obs := &observerMock{}

	_, err := compile.New().WithBundler(mock).WithObserver(obs).Compile(t.Context(), &compile.Request{
		Bundles: []compile.Spec{
			{Src: "a", Dst: "a.js", Options: compile.Options{"sourceMaps": true}},
			{Src: "b", Dst: "b.js", SFX: true},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(obs.results) != 2 {
		t.Fatalf("expected one observer call per bundle, got %d", len(obs.results))
	}

	exp := []compile.Result{
		{Entry: "a", Path: "a.js", Size: 4, SourceMap: true},
		{Entry: "b", Path: "b.js", Standalone: true, Size: len("bundle(b)")},
	}
	got := obs.results
	for i := range got {
		got[i].Duration = 0 // not deterministic
	}
	if diff := cmp.Diff(exp, got); diff != "" {
		t.Fatalf("unexpected observer results (-want +got):\n%s", diff)
	}
}

func TestCompileObserverFailure(t *testing.T) {
	mock := &bundlerMock{}
	obs := &observerMock{err: fmt.Errorf("telemetry sink unavailable")}

	artifacts, err := compile.New().WithBundler(mock).WithObserver(obs).Compile(t.Context(), &compile.Request{
		Bundles: []compile.Spec{
			{Src: "a", Dst: "a.js"},
			{Src: "b", Dst: "b.js"},
		},
	})
	if artifacts != nil {
		t.Fatalf("expected no artifacts when the observer fails, got %v", artifacts)
	}

	var bundleErr *compile.BundleError
	if !errors.As(err, &bundleErr) {
		t.Fatalf("expected *BundleError, got %v", err)
	}
	if !errors.Is(err, obs.err) {
		t.Fatalf("expected observer error as cause, got %v", err)
	}

	// the bundle for "a" succeeded, but nothing further runs
	if len(obs.results) != 1 {
		t.Fatalf("expected a single observer call, got %d", len(obs.results))
	}
	for _, c := range mock.calls {
		if c.entry == "b" {
			t.Fatal("bundler invoked for a spec after an observer failure")
		}
	}
}
