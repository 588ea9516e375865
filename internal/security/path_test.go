package security

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/th3f0rk/bppkg/internal/bperr"
)

func TestSanitizePath(t *testing.T) {
	base := t.TempDir()

	tests := []struct {
		name    string
		target  string
		wantErr bool
	}{
		{name: "simple child", target: "pkg"},
		{name: "nested child", target: filepath.Join("pkg", "1.0.0", "file.bp")},
		{name: "dot", target: "."},
		{name: "redundant segments", target: filepath.Join("pkg", ".", "sub")},
		{name: "escape one level", target: "..", wantErr: true},
		{name: "classic traversal", target: "../../etc/passwd", wantErr: true},
		{name: "hidden traversal", target: filepath.Join("pkg", "..", "..", "other"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SanitizePath(base, tt.target)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("SanitizePath(%q) = %q, want error", tt.target, got)
				}
				if !bperr.IsKind(err, bperr.KindSecurity) {
					t.Errorf("error kind = %v, want security", bperr.KindOf(err))
				}
				return
			}
			if err != nil {
				t.Fatalf("SanitizePath(%q) error = %v", tt.target, err)
			}
			if !strings.HasPrefix(got, base) {
				t.Errorf("result %q is outside base %q", got, base)
			}
		})
	}
}

func TestSanitizePathTraversalRegardlessOfBase(t *testing.T) {
	for _, base := range []string{".", "/tmp", "relative/dir"} {
		if _, err := SanitizePath(base, "../../etc/passwd"); err == nil {
			t.Errorf("base %q: traversal target accepted", base)
		}
	}
}
