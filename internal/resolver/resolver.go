// Package resolver expands a project's declared dependencies into a flat,
// conflict-checked and cycle-checked set of registry package versions.
package resolver

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/th3f0rk/bppkg/internal/bperr"
	"github.com/th3f0rk/bppkg/internal/manifest"
	"github.com/th3f0rk/bppkg/internal/registry"
	"github.com/th3f0rk/bppkg/internal/security"
)

// InfoFetcher is the slice of the registry client the resolver needs.
type InfoFetcher interface {
	FetchPackageInfo(ctx context.Context, name, version string) (*registry.PackageInfo, error)
}

// Resolver holds the bookkeeping for one resolution run. The first version
// resolved for a name is authoritative; a later constraint the pinned version
// cannot satisfy fails the whole run. There is no backtracking.
type Resolver struct {
	client InfoFetcher
	log    *log.Logger

	mu         sync.Mutex
	resolved   map[string]*registry.PackageInfo
	inProgress map[string]struct{}
	warnings   []string
}

// Option adjusts a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger used for skip warnings.
func WithLogger(l *log.Logger) Option {
	return func(r *Resolver) { r.log = l }
}

// New creates a resolver backed by client. A Resolver is single-use; create
// a fresh one per resolution run.
func New(client InfoFetcher, opts ...Option) *Resolver {
	r := &Resolver{
		client:     client,
		log:        log.New(io.Discard),
		resolved:   make(map[string]*registry.PackageInfo),
		inProgress: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve expands deps depth-first in declaration order and returns the
// deduplicated package set plus any skip warnings. Unreachable packages are
// skipped with a warning rather than failing the batch; version conflicts
// and dependency cycles fail it.
func (r *Resolver) Resolve(ctx context.Context, deps []manifest.Dependency) ([]*registry.PackageInfo, []string, error) {
	for _, dep := range deps {
		if err := r.resolveOne(ctx, dep.Name, dep.Spec, dep.Optional); err != nil {
			return nil, nil, err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*registry.PackageInfo, 0, len(r.resolved))
	for _, info := range r.resolved {
		out = append(out, info)
	}
	return out, r.warnings, nil
}

func (r *Resolver) resolveOne(ctx context.Context, name, spec string, optional bool) error {
	if err := ctx.Err(); err != nil {
		return bperr.Networkf("resolution canceled: %v", err)
	}
	if !security.ValidatePackageName(name) {
		return bperr.Newf(bperr.KindValidation, name, "invalid package name")
	}

	r.mu.Lock()
	if existing, ok := r.resolved[name]; ok {
		r.mu.Unlock()
		if !Satisfies(existing.Version, spec) {
			return bperr.Newf(bperr.KindDependency, name,
				"version conflict: resolved %s does not satisfy %q", existing.Version, spec)
		}
		return nil
	}
	if _, ok := r.inProgress[name]; ok {
		r.mu.Unlock()
		return bperr.Newf(bperr.KindDependency, name, "circular dependency")
	}
	r.inProgress[name] = struct{}{}
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		delete(r.inProgress, name)
		r.mu.Unlock()
	}()

	info, err := r.client.FetchPackageInfo(ctx, name, specToRequest(spec))
	if err != nil {
		if bperr.IsKind(err, bperr.KindNetwork) || (optional && ctx.Err() == nil) {
			r.warn(name, err)
			return nil
		}
		return err
	}
	if !Satisfies(info.Version, spec) {
		return bperr.Newf(bperr.KindDependency, name,
			"version conflict: registry offered %s for spec %q", info.Version, spec)
	}

	r.mu.Lock()
	r.resolved[name] = info
	r.mu.Unlock()

	// Transitive dependencies are a plain mapping; walk them in a stable
	// order so failures reproduce.
	children := make([]string, 0, len(info.Dependencies))
	for child := range info.Dependencies {
		children = append(children, child)
	}
	sort.Strings(children)
	for _, child := range children {
		if err := r.resolveOne(ctx, child, info.Dependencies[child], false); err != nil {
			return err
		}
	}
	return nil
}

func (r *Resolver) warn(name string, err error) {
	msg := fmt.Sprintf("skipping %s: %v", name, err)
	r.log.Warn("dependency skipped", "package", name, "err", err)
	r.mu.Lock()
	r.warnings = append(r.warnings, msg)
	r.mu.Unlock()
}

// specToRequest maps a constraint to the version path segment the registry
// understands. Exact pins request that version; everything else asks the
// registry for its latest candidate, checked against the spec afterwards.
func specToRequest(spec string) string {
	if spec == "" || spec == "*" {
		return "latest"
	}
	if security.ValidateVersion(spec) {
		return spec
	}
	return "latest"
}
