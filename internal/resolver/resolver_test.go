package resolver

import (
	"context"
	"strings"
	"testing"

	"github.com/th3f0rk/bppkg/internal/bperr"
	"github.com/th3f0rk/bppkg/internal/manifest"
	"github.com/th3f0rk/bppkg/internal/registry"
)

// fakeRegistry serves canned package metadata keyed by name. Names listed in
// unreachable fail with a network error, names in errs fail with the given
// error; fetches are counted.
type fakeRegistry struct {
	packages    map[string]*registry.PackageInfo
	unreachable map[string]bool
	errs        map[string]error
	fetches     int
}

func (f *fakeRegistry) FetchPackageInfo(ctx context.Context, name, version string) (*registry.PackageInfo, error) {
	f.fetches++
	if f.unreachable[name] {
		return nil, bperr.Networkf("fetching %s: connection refused", name)
	}
	if err, ok := f.errs[name]; ok {
		return nil, err
	}
	info, ok := f.packages[name]
	if !ok {
		return nil, bperr.Networkf("fetching %s: unexpected status 404 Not Found", name)
	}
	return info, nil
}

func pkg(name, version string, deps map[string]string) *registry.PackageInfo {
	return &registry.PackageInfo{Name: name, Version: version, Dependencies: deps}
}

func deps(pairs ...manifest.Dependency) []manifest.Dependency { return pairs }

func TestResolveTransitive(t *testing.T) {
	reg := &fakeRegistry{packages: map[string]*registry.PackageInfo{
		"http-client": pkg("http-client", "1.2.3", map[string]string{"url-parse": "^2.0.0"}),
		"url-parse":   pkg("url-parse", "2.1.0", nil),
	}}

	r := New(reg)
	resolved, warnings, err := r.Resolve(context.Background(),
		deps(manifest.Dependency{Name: "http-client", Spec: "^1.0.0"}))
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("warnings = %v, want none", warnings)
	}

	got := make(map[string]string, len(resolved))
	for _, info := range resolved {
		got[info.Name] = info.Version
	}
	if got["http-client"] != "1.2.3" || got["url-parse"] != "2.1.0" {
		t.Errorf("resolved = %v", got)
	}
}

func TestResolveSkipsUnreachableWithWarning(t *testing.T) {
	reg := &fakeRegistry{
		packages: map[string]*registry.PackageInfo{
			"a": pkg("a", "1.0.0", map[string]string{"b": ">=2.0.0"}),
		},
		unreachable: map[string]bool{"b": true},
	}

	r := New(reg)
	resolved, warnings, err := r.Resolve(context.Background(),
		deps(manifest.Dependency{Name: "a", Spec: "^1.0.0"}))
	if err != nil {
		t.Fatalf("Resolve() error = %v, want skip with warning", err)
	}

	if len(resolved) != 1 || resolved[0].Name != "a" {
		t.Errorf("resolved = %v, want only a", resolved)
	}
	if len(warnings) != 1 || !strings.Contains(warnings[0], "b") {
		t.Errorf("warnings = %v, want one citing b", warnings)
	}
}

func TestResolveVersionConflict(t *testing.T) {
	reg := &fakeRegistry{packages: map[string]*registry.PackageInfo{
		"a": pkg("a", "1.0.0", map[string]string{"c": "^1.0.0"}),
		"b": pkg("b", "1.0.0", map[string]string{"c": "^2.0.0"}),
		"c": pkg("c", "1.4.0", nil),
	}}

	r := New(reg)
	_, _, err := r.Resolve(context.Background(), deps(
		manifest.Dependency{Name: "a", Spec: "^1.0.0"},
		manifest.Dependency{Name: "b", Spec: "1.0.0"},
	))
	if !bperr.IsKind(err, bperr.KindDependency) {
		t.Fatalf("err = %v, want dependency error", err)
	}
	if !strings.Contains(err.Error(), "version conflict") || !strings.Contains(err.Error(), `"c"`) {
		t.Errorf("err = %v, want version conflict citing c", err)
	}
}

func TestResolveCircularDependency(t *testing.T) {
	reg := &fakeRegistry{packages: map[string]*registry.PackageInfo{
		"a": pkg("a", "1.0.0", map[string]string{"b": "1.0.0"}),
		"b": pkg("b", "1.0.0", map[string]string{"a": "1.0.0"}),
	}}

	r := New(reg)
	_, _, err := r.Resolve(context.Background(),
		deps(manifest.Dependency{Name: "a", Spec: "1.0.0"}))
	if !bperr.IsKind(err, bperr.KindDependency) {
		t.Fatalf("err = %v, want dependency error", err)
	}
	if !strings.Contains(err.Error(), "circular dependency") {
		t.Errorf("err = %v, want circular dependency", err)
	}
}

func TestResolveSelfCycle(t *testing.T) {
	reg := &fakeRegistry{packages: map[string]*registry.PackageInfo{
		"a": pkg("a", "1.0.0", map[string]string{"a": "1.0.0"}),
	}}

	r := New(reg)
	_, _, err := r.Resolve(context.Background(),
		deps(manifest.Dependency{Name: "a", Spec: "1.0.0"}))
	if !bperr.IsKind(err, bperr.KindDependency) {
		t.Fatalf("err = %v, want dependency error", err)
	}
}

func TestResolveDeduplicatesSharedDependency(t *testing.T) {
	reg := &fakeRegistry{packages: map[string]*registry.PackageInfo{
		"a":      pkg("a", "1.0.0", map[string]string{"shared": "^1.0.0"}),
		"b":      pkg("b", "1.0.0", map[string]string{"shared": ">=1.0.0"}),
		"shared": pkg("shared", "1.5.0", nil),
	}}

	r := New(reg)
	resolved, _, err := r.Resolve(context.Background(), deps(
		manifest.Dependency{Name: "a", Spec: "1.0.0"},
		manifest.Dependency{Name: "b", Spec: "1.0.0"},
	))
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if len(resolved) != 3 {
		t.Errorf("resolved %d packages, want 3", len(resolved))
	}
	if reg.fetches != 3 {
		t.Errorf("fetches = %d, want 3 (shared fetched once)", reg.fetches)
	}
}

func TestResolveOptionalSkipsOnAnyError(t *testing.T) {
	// An optional dependency degrades even on a non-network failure.
	reg := &fakeRegistry{errs: map[string]error{
		"extras": bperr.Newf(bperr.KindValidation, "extras", "malformed registry response"),
	}}

	r := New(reg)
	resolved, warnings, err := r.Resolve(context.Background(),
		deps(manifest.Dependency{Name: "extras", Spec: "1.0.0", Optional: true}))
	if err != nil {
		t.Fatalf("Resolve() error = %v, want optional skip", err)
	}
	if len(resolved) != 0 || len(warnings) != 1 {
		t.Errorf("resolved = %v, warnings = %v", resolved, warnings)
	}
}

func TestResolveRejectsInvalidName(t *testing.T) {
	r := New(&fakeRegistry{})
	_, _, err := r.Resolve(context.Background(),
		deps(manifest.Dependency{Name: "../evil", Spec: "1.0.0"}))
	if !bperr.IsKind(err, bperr.KindValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}
}

func TestResolveCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := New(&fakeRegistry{})
	_, _, err := r.Resolve(ctx, deps(manifest.Dependency{Name: "a", Spec: "1.0.0"}))
	if err == nil {
		t.Fatal("Resolve() with canceled context should fail")
	}
}
