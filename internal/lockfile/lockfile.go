// Package lockfile provides types and functions for working with bppkg
// lockfiles.
//
// The lockfile records the exact versions, checksums, and sources of the
// packages a successful install produced. It is written once per install
// batch, after every download has settled.
package lockfile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// FileName is the project lockfile name.
const FileName = "bppkg.lock"

// SchemaVersion is the current lockfile format version.
const SchemaVersion = 1

// Lockfile represents the bppkg.lock file structure.
type Lockfile struct {
	Version   int              `json:"version"`
	Generated time.Time        `json:"generated"`
	Packages  map[string]Entry `json:"packages"`
}

// Entry pins one installed package.
type Entry struct {
	Name              string            `json:"name"`
	Version           string            `json:"version"`
	Checksum          string            `json:"checksum"`
	ChecksumAlgorithm string            `json:"checksum_algorithm"`
	Source            string            `json:"source"`
	Dependencies      map[string]string `json:"dependencies,omitempty"`
}

// New creates an empty lockfile at the current schema version.
func New() *Lockfile {
	return &Lockfile{
		Version:   SchemaVersion,
		Generated: time.Now().UTC(),
		Packages:  make(map[string]Entry),
	}
}

// Load reads a lockfile from path. A missing file yields an empty lockfile.
func Load(path string) (*Lockfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(), nil
		}
		return nil, fmt.Errorf("reading lockfile: %w", err)
	}

	var lf Lockfile
	if err := json.Unmarshal(data, &lf); err != nil {
		return nil, fmt.Errorf("parsing lockfile: %w", err)
	}
	if lf.Packages == nil {
		lf.Packages = make(map[string]Entry)
	}
	return &lf, nil
}

// Merge upserts the given entries and refreshes the generation timestamp.
func (lf *Lockfile) Merge(entries []Entry) {
	for _, e := range entries {
		lf.Packages[e.Name] = e
	}
	lf.Version = SchemaVersion
	lf.Generated = time.Now().UTC()
}

// Save writes the lockfile atomically via a temp file and rename.
func (lf *Lockfile) Save(path string) error {
	data, err := json.MarshalIndent(lf, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling lockfile: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, FileName+".*")
	if err != nil {
		return fmt.Errorf("creating temp lockfile: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing lockfile: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing lockfile: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}
