package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/th3f0rk/bppkg/internal/bperr"
)

// Encode renders the manifest as TOML. Sections and keys are written in
// declaration order; go-toml's marshaller sorts map keys, which would destroy
// the ordering the format preserves, so the writer is explicit.
func (m *Manifest) Encode() []byte {
	var b strings.Builder

	b.WriteString("[package]\n")
	writeKV(&b, "name", m.Name)
	writeKV(&b, "version", m.Version)
	writeKV(&b, "description", m.Description)
	writeKV(&b, "author", m.Author)
	writeKV(&b, "license", m.License)
	if m.Repository != "" {
		writeKV(&b, "repository", m.Repository)
	}
	if m.Homepage != "" {
		writeKV(&b, "homepage", m.Homepage)
	}
	if len(m.Keywords) > 0 {
		writeList(&b, "keywords", m.Keywords)
	}
	writeKV(&b, "main", m.Main)
	if m.MinBPVersion != "" {
		writeKV(&b, "min_bp_version", m.MinBPVersion)
	}
	b.WriteString("\n")

	if len(m.Files) > 0 {
		b.WriteString("[package.files]\n")
		writeList(&b, "include", m.Files)
		b.WriteString("\n")
	}

	writeDepSection(&b, "dependencies", &m.Dependencies)
	writeDepSection(&b, "dev-dependencies", &m.DevDependencies)

	if m.Scripts.Len() > 0 {
		b.WriteString("[scripts]\n")
		for _, s := range m.Scripts.Pairs() {
			writeKV(&b, s.Name, s.Command)
		}
		b.WriteString("\n")
	}

	return []byte(b.String())
}

func writeDepSection(b *strings.Builder, section string, deps *DepList) {
	if deps.Len() == 0 {
		return
	}
	fmt.Fprintf(b, "[%s]\n", section)
	for _, d := range deps.Pairs() {
		if d.Optional {
			fmt.Fprintf(b, "%s = { version = %s, optional = true }\n", d.Name, strconv.Quote(d.Spec))
		} else {
			writeKV(b, d.Name, d.Spec)
		}
	}
	b.WriteString("\n")
}

func writeKV(b *strings.Builder, key, value string) {
	fmt.Fprintf(b, "%s = %s\n", key, strconv.Quote(value))
}

func writeList(b *strings.Builder, key string, values []string) {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = strconv.Quote(v)
	}
	fmt.Fprintf(b, "%s = [%s]\n", key, strings.Join(quoted, ", "))
}

// Save validates the manifest and writes it atomically into dir.
func (m *Manifest) Save(dir string) error {
	if !m.Dependencies.validNames() || !m.DevDependencies.validNames() {
		return bperr.Validationf("manifest for %q contains an invalid dependency name", m.Name)
	}

	path := filepath.Join(dir, ManifestFile)
	tmp, err := os.CreateTemp(dir, ManifestFile+".*")
	if err != nil {
		return fmt.Errorf("creating temp manifest: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(m.Encode()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing manifest: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}
