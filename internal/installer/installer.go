// Package installer drives the end-to-end package operations: install,
// uninstall, and the maintenance commands around them. It is the only layer
// that writes project or user state, and the only layer allowed to turn a
// per-package failure into a partial-success tally.
package installer

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/th3f0rk/bppkg/internal/bperr"
	"github.com/th3f0rk/bppkg/internal/config"
	"github.com/th3f0rk/bppkg/internal/lockfile"
	"github.com/th3f0rk/bppkg/internal/manifest"
	"github.com/th3f0rk/bppkg/internal/registry"
	"github.com/th3f0rk/bppkg/internal/resolver"
	"github.com/th3f0rk/bppkg/internal/security"
	"github.com/th3f0rk/bppkg/internal/trust"
)

// RegistryClient is the slice of the registry client the installer needs.
type RegistryClient interface {
	FetchPackageInfo(ctx context.Context, name, version string) (*registry.PackageInfo, error)
	DownloadAndVerify(ctx context.Context, info *registry.PackageInfo, destination string, keys *trust.Keyring) (string, error)
}

// Status is the terminal state of one package within an install batch.
type Status uint8

const (
	StatusInstalled Status = iota
	StatusFailed
)

func (s Status) String() string {
	if s == StatusInstalled {
		return "installed"
	}
	return "failed"
}

// PackageResult records the outcome for one resolved package.
type PackageResult struct {
	Name    string
	Version string
	Status  Status
	Err     error
}

// Result is the tally for one install batch.
type Result struct {
	Packages []PackageResult
	Warnings []string
}

// Installed counts the packages that reached disk.
func (r *Result) Installed() int {
	n := 0
	for _, p := range r.Packages {
		if p.Status == StatusInstalled {
			n++
		}
	}
	return n
}

// Failed counts the packages that did not.
func (r *Result) Failed() int { return len(r.Packages) - r.Installed() }

// Installer coordinates manifest, resolver, registry, and lockfile for one
// project directory.
type Installer struct {
	cfg        *config.Config
	client     RegistryClient
	keyring    *trust.Keyring
	projectDir string
	log        *log.Logger
}

// Option adjusts an Installer.
type Option func(*Installer)

// WithLogger sets the logger for progress and warnings.
func WithLogger(l *log.Logger) Option {
	return func(i *Installer) { i.log = l }
}

// New creates an installer rooted at projectDir.
func New(cfg *config.Config, client RegistryClient, keyring *trust.Keyring, projectDir string, opts ...Option) *Installer {
	inst := &Installer{
		cfg:        cfg,
		client:     client,
		keyring:    keyring,
		projectDir: projectDir,
		log:        log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(inst)
	}
	return inst
}

func (i *Installer) packagesRoot() string {
	return filepath.Join(i.projectDir, config.ProjectPackagesDir)
}

// parseRequested splits a "name" or "name@spec" argument. The name is
// validated before anything else touches it.
func parseRequested(arg string) (manifest.Dependency, error) {
	name, spec := arg, "latest"
	if at := strings.IndexByte(arg, '@'); at >= 0 {
		name, spec = arg[:at], arg[at+1:]
	}
	if !security.ValidatePackageName(name) {
		return manifest.Dependency{}, bperr.Newf(bperr.KindValidation, name, "invalid package name")
	}
	if spec == "" {
		return manifest.Dependency{}, bperr.Newf(bperr.KindValidation, name, "empty version spec")
	}
	return manifest.Dependency{Name: name, Spec: spec}, nil
}

// Install adds any requested packages to the manifest, resolves the effective
// dependency set, downloads and verifies each resolved package on a bounded
// pool, and finally writes the lockfile in one step. A security or network
// failure marks that package Failed and the batch continues; validation and
// dependency errors abort before any state is written.
func (i *Installer) Install(ctx context.Context, requested []string, dev bool) (*Result, error) {
	m, err := manifest.Load(i.projectDir)
	if err != nil {
		return nil, err
	}

	if len(requested) > 0 {
		// Validate the whole argument list before mutating the manifest.
		newDeps := make([]manifest.Dependency, 0, len(requested))
		for _, arg := range requested {
			dep, err := parseRequested(arg)
			if err != nil {
				return nil, err
			}
			newDeps = append(newDeps, dep)
		}
		for _, dep := range newDeps {
			if dev {
				m.DevDependencies.Set(dep)
			} else {
				m.Dependencies.Set(dep)
			}
		}
		if err := m.Save(i.projectDir); err != nil {
			return nil, err
		}
	}

	deps := m.Dependencies.Pairs()
	if dev {
		deps = append(deps, m.DevDependencies.Pairs()...)
	}
	if len(deps) == 0 {
		i.log.Info("No dependencies to install")
		return &Result{}, nil
	}

	res := resolver.New(i.client, resolver.WithLogger(i.log))
	resolved, warnings, err := res.Resolve(ctx, deps)
	if err != nil {
		return nil, err
	}
	sort.Slice(resolved, func(a, b int) bool { return resolved[a].Name < resolved[b].Name })

	result := &Result{Warnings: warnings}
	entries := make([]lockfile.Entry, 0, len(resolved))

	var mu sync.Mutex
	sem := semaphore.NewWeighted(int64(i.cfg.Concurrency))
	g, gctx := errgroup.WithContext(ctx)

	for _, info := range resolved {
		info := info
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return bperr.Networkf("install canceled: %v", err)
			}
			defer sem.Release(1)

			entry, err := i.installOne(gctx, info)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				// Per-package security and network failures are part of the
				// tally; anything else aborts the batch.
				if bperr.IsKind(err, bperr.KindSecurity) || bperr.IsKind(err, bperr.KindNetwork) {
					i.log.Error("package failed", "package", info.Name, "err", err)
					result.Packages = append(result.Packages, PackageResult{
						Name: info.Name, Version: info.Version, Status: StatusFailed, Err: err,
					})
					return nil
				}
				return err
			}
			result.Packages = append(result.Packages, PackageResult{
				Name: info.Name, Version: info.Version, Status: StatusInstalled,
			})
			entries = append(entries, entry)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// The lockfile write is a single barrier after all downloads settle.
	// A canceled run must not persist partial state.
	if err := ctx.Err(); err != nil {
		return nil, bperr.Networkf("install canceled: %v", err)
	}
	if len(entries) > 0 {
		lockPath := filepath.Join(i.projectDir, lockfile.FileName)
		lf, err := lockfile.Load(lockPath)
		if err != nil {
			return nil, err
		}
		lf.Merge(entries)
		if err := lf.Save(lockPath); err != nil {
			return nil, err
		}
	}

	sort.Slice(result.Packages, func(a, b int) bool {
		return result.Packages[a].Name < result.Packages[b].Name
	})
	i.log.Info("install finished",
		"installed", result.Installed(), "failed", result.Failed())
	return result, nil
}

// installOne places a single verified artifact under the project packages
// directory and returns its lock entry.
func (i *Installer) installOne(ctx context.Context, info *registry.PackageInfo) (lockfile.Entry, error) {
	artifact := filepath.Join(info.Name, fmt.Sprintf("%s-%s.pkg", info.Name, info.Version))
	dest, err := security.SanitizePath(i.packagesRoot(), artifact)
	if err != nil {
		return lockfile.Entry{}, err
	}
	if _, err := i.client.DownloadAndVerify(ctx, info, dest, i.keyring); err != nil {
		return lockfile.Entry{}, err
	}
	i.log.Info("installed", "package", info.Name, "version", info.Version)

	return lockfile.Entry{
		Name:              info.Name,
		Version:           info.Version,
		Checksum:          info.Checksum,
		ChecksumAlgorithm: info.Algorithm(),
		Source:            info.DownloadURL,
		Dependencies:      info.Dependencies,
	}, nil
}

// Uninstall removes names from both dependency sections, deletes their
// installed directories, and rewrites the manifest. Every name is validated
// before any filesystem deletion happens.
func (i *Installer) Uninstall(names []string) error {
	m, err := manifest.Load(i.projectDir)
	if err != nil {
		return err
	}

	for _, name := range names {
		if !security.ValidatePackageName(name) {
			return bperr.Newf(bperr.KindValidation, name, "invalid package name")
		}
	}

	for _, name := range names {
		declared := m.Dependencies.Remove(name)
		if m.DevDependencies.Remove(name) {
			declared = true
		}
		if !declared {
			i.log.Warn("not a declared dependency", "package", name)
		}

		dir, err := security.SanitizePath(i.packagesRoot(), name)
		if err != nil {
			return err
		}
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("removing %s: %w", dir, err)
		}
		i.log.Info("uninstalled", "package", name)
	}

	return m.Save(i.projectDir)
}

// Init creates a new project skeleton in dir: a manifest, an entry file, and
// a .gitignore covering generated state. It refuses to overwrite an existing
// manifest.
func (i *Installer) Init(name string) error {
	if !security.ValidatePackageName(name) {
		return bperr.Newf(bperr.KindValidation, name, "invalid package name")
	}
	manifestPath := filepath.Join(i.projectDir, manifest.ManifestFile)
	if _, err := os.Stat(manifestPath); err == nil {
		return bperr.Packagef("%s already exists", manifest.ManifestFile)
	}

	m := manifest.New(name)
	if err := m.Save(i.projectDir); err != nil {
		return err
	}

	mainFile := filepath.Join(i.projectDir, m.Main)
	if _, err := os.Stat(mainFile); os.IsNotExist(err) {
		stub := fmt.Sprintf("# %s\n\ndef main():\n    print(\"Hello from %s!\")\n\nif __name__ == \"__main__\":\n    main()\n", name, name)
		if err := os.WriteFile(mainFile, []byte(stub), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", m.Main, err)
		}
	}

	gitignore := filepath.Join(i.projectDir, ".gitignore")
	if _, err := os.Stat(gitignore); os.IsNotExist(err) {
		content := config.ProjectPackagesDir + "/\n*.pyc\n__pycache__/\n"
		if err := os.WriteFile(gitignore, []byte(content), 0o644); err != nil {
			return fmt.Errorf("writing .gitignore: %w", err)
		}
	}

	i.log.Info("initialized project", "name", name, "version", m.Version)
	return nil
}

// List returns the declared dependencies alongside the locked versions, when
// a lockfile exists.
func (i *Installer) List() (*manifest.Manifest, *lockfile.Lockfile, error) {
	m, err := manifest.Load(i.projectDir)
	if err != nil {
		return nil, nil, err
	}
	lf, err := lockfile.Load(filepath.Join(i.projectDir, lockfile.FileName))
	if err != nil {
		return nil, nil, err
	}
	return m, lf, nil
}

// Publish validates that the project is publishable. Uploading is handled by
// the registry backend, which is not part of this tool; the caller prints
// submission guidance on success.
func (i *Installer) Publish() (*manifest.Manifest, error) {
	m, err := manifest.Load(i.projectDir)
	if err != nil {
		return nil, err
	}
	if m.Main != "" {
		if _, err := os.Stat(filepath.Join(i.projectDir, m.Main)); err != nil {
			return nil, bperr.Newf(bperr.KindPackage, m.Name, "entry file %q missing", m.Main)
		}
	}
	return m, nil
}
