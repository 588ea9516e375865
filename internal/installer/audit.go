package installer

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"

	"github.com/th3f0rk/bppkg/internal/lockfile"
)

// Advisory is one entry in the local vulnerability database. The affected
// range uses standard constraint syntax, e.g. "<1.2.4" or ">=2.0.0 <2.3.1".
type Advisory struct {
	ID          string `yaml:"id"`
	Package     string `yaml:"package"`
	Affected    string `yaml:"affected"`
	Severity    string `yaml:"severity"`
	Description string `yaml:"description"`
	FixedIn     string `yaml:"fixed_in"`
}

type advisoryFile struct {
	Advisories []Advisory `yaml:"advisories"`
}

// Finding pairs a locked package with an advisory that covers its version.
type Finding struct {
	Advisory Advisory
	Version  string
}

// AuditReport is the outcome of one audit run.
type AuditReport struct {
	// DatabaseMissing is set when no advisory file exists; the audit then
	// has no data source and reports nothing rather than a false all-clear.
	DatabaseMissing bool
	// Checked is the number of locked packages examined.
	Checked  int
	Findings []Finding
}

// Audit checks every locked package version against the local advisory
// database. Advisories with an unparseable range or a non-semver locked
// version are skipped rather than failing the audit.
func (i *Installer) Audit() (*AuditReport, error) {
	lf, err := lockfile.Load(filepath.Join(i.projectDir, lockfile.FileName))
	if err != nil {
		return nil, err
	}

	report := &AuditReport{Checked: len(lf.Packages)}

	data, err := os.ReadFile(i.cfg.AdvisoryFile)
	if err != nil {
		if os.IsNotExist(err) {
			report.DatabaseMissing = true
			return report, nil
		}
		return nil, fmt.Errorf("reading advisory database: %w", err)
	}

	var db advisoryFile
	if err := yaml.Unmarshal(data, &db); err != nil {
		return nil, fmt.Errorf("parsing advisory database: %w", err)
	}

	byPackage := make(map[string][]Advisory)
	for _, adv := range db.Advisories {
		byPackage[adv.Package] = append(byPackage[adv.Package], adv)
	}

	for name, entry := range lf.Packages {
		advisories, ok := byPackage[name]
		if !ok {
			continue
		}
		version, err := semver.NewVersion(entry.Version)
		if err != nil {
			i.log.Warn("unparseable locked version", "package", name, "version", entry.Version)
			continue
		}
		for _, adv := range advisories {
			rng, err := semver.NewConstraint(adv.Affected)
			if err != nil {
				i.log.Warn("unparseable advisory range", "id", adv.ID, "range", adv.Affected)
				continue
			}
			if rng.Check(version) {
				report.Findings = append(report.Findings, Finding{Advisory: adv, Version: entry.Version})
			}
		}
	}

	sort.Slice(report.Findings, func(a, b int) bool {
		if report.Findings[a].Advisory.Package != report.Findings[b].Advisory.Package {
			return report.Findings[a].Advisory.Package < report.Findings[b].Advisory.Package
		}
		return report.Findings[a].Advisory.ID < report.Findings[b].Advisory.ID
	})
	return report, nil
}
