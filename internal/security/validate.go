// Package security implements the trust-boundary primitives: identifier and
// version validation, install-path sanitization, checksum computation, and
// Ed25519 signing.
//
// Every filesystem or network operation keyed by a package name must pass
// through the validators here first.
package security

import (
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// MaxNameLength is the longest accepted package name.
const MaxNameLength = 128

var namePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]*$`)

// ValidatePackageName reports whether name is safe to use as a registry and
// filesystem key. Names must start with a letter, contain only alphanumerics,
// underscores, and hyphens, and never contain path separators or "..".
func ValidatePackageName(name string) bool {
	if name == "" || len(name) > MaxNameLength {
		return false
	}
	if strings.Contains(name, "..") || strings.ContainsAny(name, `/\`) {
		return false
	}
	return namePattern.MatchString(name)
}

// ValidateVersion reports whether version is a well-formed semantic version:
// major.minor.patch with optional prerelease and build metadata.
func ValidateVersion(version string) bool {
	_, err := semver.StrictNewVersion(version)
	return err == nil
}
