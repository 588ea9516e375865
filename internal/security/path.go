package security

import (
	"path/filepath"
	"strings"

	"github.com/th3f0rk/bppkg/internal/bperr"
)

// SanitizePath resolves target relative to base and returns the cleaned
// absolute path. It fails with a security error unless the result stays a
// descendant of base. This is the sole guard against archive- or name-driven
// escapes from an install directory.
func SanitizePath(base, target string) (string, error) {
	absBase, err := filepath.Abs(base)
	if err != nil {
		return "", bperr.Securityf("resolving base path %q: %v", base, err)
	}
	absBase = filepath.Clean(absBase)

	resolved := filepath.Clean(filepath.Join(absBase, target))

	rel, err := filepath.Rel(absBase, resolved)
	if err != nil {
		return "", bperr.Securityf("path traversal: %q escapes %q", target, base)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", bperr.Securityf("path traversal: %q escapes %q", target, base)
	}
	return resolved, nil
}
