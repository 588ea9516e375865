package manifest

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/th3f0rk/bppkg/internal/bperr"
	"github.com/th3f0rk/bppkg/internal/security"
)

// rawManifest mirrors the TOML structure for decoding. Ordered sections are
// decoded into maps here and re-ordered via the raw text afterwards.
type rawManifest struct {
	Package struct {
		Name         string   `toml:"name"`
		Version      string   `toml:"version"`
		Description  string   `toml:"description"`
		Author       string   `toml:"author"`
		License      string   `toml:"license"`
		Repository   string   `toml:"repository"`
		Homepage     string   `toml:"homepage"`
		Keywords     []string `toml:"keywords"`
		Main         string   `toml:"main"`
		MinBPVersion string   `toml:"min_bp_version"`
		Files        struct {
			Include []string `toml:"include"`
		} `toml:"files"`
	} `toml:"package"`
	Dependencies    map[string]any    `toml:"dependencies"`
	DevDependencies map[string]any    `toml:"dev-dependencies"`
	Scripts         map[string]string `toml:"scripts"`
}

// Parse decodes and validates a manifest.
func Parse(data []byte) (*Manifest, error) {
	var raw rawManifest
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, bperr.Validationf("parsing manifest: %v", err)
	}

	if !security.ValidatePackageName(raw.Package.Name) {
		return nil, bperr.Validationf("invalid package name %q", raw.Package.Name)
	}
	if !security.ValidateVersion(raw.Package.Version) {
		return nil, bperr.Validationf("invalid package version %q", raw.Package.Version)
	}

	m := &Manifest{
		Name:         raw.Package.Name,
		Version:      raw.Package.Version,
		Description:  raw.Package.Description,
		Author:       raw.Package.Author,
		License:      raw.Package.License,
		Repository:   raw.Package.Repository,
		Homepage:     raw.Package.Homepage,
		Keywords:     raw.Package.Keywords,
		Main:         raw.Package.Main,
		MinBPVersion: raw.Package.MinBPVersion,
		Files:        raw.Package.Files.Include,
	}

	for _, name := range orderedKeys(data, "dependencies", raw.Dependencies) {
		dep, err := depFromValue(name, raw.Dependencies[name])
		if err != nil {
			return nil, err
		}
		m.Dependencies.Set(dep)
	}
	for _, name := range orderedKeys(data, "dev-dependencies", raw.DevDependencies) {
		dep, err := depFromValue(name, raw.DevDependencies[name])
		if err != nil {
			return nil, err
		}
		m.DevDependencies.Set(dep)
	}

	scriptKeys := make(map[string]any, len(raw.Scripts))
	for k := range raw.Scripts {
		scriptKeys[k] = nil
	}
	for _, name := range orderedKeys(data, "scripts", scriptKeys) {
		m.Scripts.Set(name, raw.Scripts[name])
	}

	return m, nil
}

// depFromValue builds a Dependency from either the flat form
// (name = "^1.0.0") or the table form (name = { version = "...", optional = true }).
func depFromValue(name string, v any) (Dependency, error) {
	if !security.ValidatePackageName(name) {
		return Dependency{}, bperr.Validationf("invalid dependency name %q", name)
	}
	switch val := v.(type) {
	case string:
		return Dependency{Name: name, Spec: val}, nil
	case map[string]any:
		spec, _ := val["version"].(string)
		if spec == "" {
			return Dependency{}, bperr.Validationf("dependency %q: missing version", name)
		}
		optional, _ := val["optional"].(bool)
		return Dependency{Name: name, Spec: spec, Optional: optional}, nil
	default:
		return Dependency{}, bperr.Validationf("dependency %q: unsupported value %T", name, v)
	}
}

// orderedKeys returns the keys of a flat TOML section in declaration order.
// go-toml decodes tables into Go maps, which discard ordering; the manifest
// format treats declaration order as significant, so it is recovered from
// the raw text. Keys the scan misses are appended sorted.
func orderedKeys(data []byte, section string, decoded map[string]any) []string {
	seen := make(map[string]bool, len(decoded))
	var keys []string

	inSection := false
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "[") {
			inSection = strings.Trim(line, "[]") == section
			continue
		}
		if !inSection {
			continue
		}
		eq := strings.Index(line, "=")
		if eq <= 0 {
			continue
		}
		key := strings.Trim(strings.TrimSpace(line[:eq]), `"'`)
		if _, ok := decoded[key]; ok && !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	}

	var missing []string
	for k := range decoded {
		if !seen[k] {
			missing = append(missing, k)
		}
	}
	sort.Strings(missing)
	return append(keys, missing...)
}

// Load reads the manifest from a project directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, ManifestFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, bperr.Packagef("no %s found in %s", ManifestFile, dir)
		}
		return nil, bperr.Packagef("reading %s: %v", path, err)
	}
	return Parse(data)
}
