package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/th3f0rk/bppkg/internal/installer"
)

// execute runs the root command with args against a scratch project and
// bppkg home, returning the combined output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	// The shared rootCmd keeps flag values between Execute calls; clear the
	// built-in help and version flags so one test's flags don't leak into
	// the next.
	for _, name := range []string{"help", "version"} {
		if f := rootCmd.Flags().Lookup(name); f != nil {
			_ = f.Value.Set("false")
			f.Changed = false
		}
	}
	err := rootCmd.Execute()
	return buf.String(), err
}

func scratchProject(t *testing.T) string {
	t.Helper()
	t.Setenv("BPPKG_HOME", t.TempDir())
	dir := t.TempDir()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatalf("chdir back: %v", err)
		}
	})
	return dir
}

func TestRootHelp(t *testing.T) {
	out, err := execute(t, "--help")
	if err != nil {
		t.Fatalf("rootCmd failed: %v", err)
	}
	for _, cmd := range []string{"install", "uninstall", "init", "keygen", "trust", "verify", "clean", "audit", "search", "publish", "list"} {
		if !strings.Contains(out, cmd) {
			t.Errorf("help output should list %q", cmd)
		}
	}
}

func TestVersionFlag(t *testing.T) {
	out, err := execute(t, "--version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.Contains(out, Version) {
		t.Errorf("version output %q should contain %q", out, Version)
	}
}

func TestInitCommand(t *testing.T) {
	dir := scratchProject(t)

	out, err := execute(t, "init", "demo")
	if err != nil {
		t.Fatalf("init failed: %v", err)
	}
	if !strings.Contains(out, "Initialized demo") {
		t.Errorf("output = %q", out)
	}

	for _, f := range []string{"bpkg.toml", "main.bp", ".gitignore"} {
		if _, err := os.Stat(filepath.Join(dir, f)); err != nil {
			t.Errorf("missing %s after init: %v", f, err)
		}
	}

	// A second init must refuse to clobber the manifest.
	if _, err := execute(t, "init", "demo"); err == nil {
		t.Error("second init should fail")
	}
}

func TestInstallWithoutManifest(t *testing.T) {
	scratchProject(t)
	if _, err := execute(t, "install"); err == nil {
		t.Error("install without a manifest should fail")
	}
}

func TestInstallNoDependencies(t *testing.T) {
	scratchProject(t)
	if _, err := execute(t, "init", "demo"); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "install")
	if err != nil {
		t.Fatalf("install failed: %v", err)
	}
	if !strings.Contains(out, "No dependencies to install") {
		t.Errorf("output = %q", out)
	}
}

func TestInstallOutputAllSkipped(t *testing.T) {
	// Declared dependencies that were all skipped by the resolver must not
	// read as "nothing to install".
	result := &installer.Result{
		Warnings: []string{"skipping http-client: fetching http-client: connection refused"},
	}

	buf := new(bytes.Buffer)
	cmd := &cobra.Command{Use: "install"}
	cmd.SetOut(buf)
	cmd.SetErr(buf)

	if err := printInstallResult(cmd, result); err != nil {
		t.Fatalf("printInstallResult() error = %v", err)
	}

	out := buf.String()
	if strings.Contains(out, "No dependencies to install") {
		t.Errorf("output %q claims nothing was declared", out)
	}
	if !strings.Contains(out, "warning: skipping http-client") {
		t.Errorf("output %q should carry the skip warning", out)
	}
	if !strings.Contains(out, "Installed 0 package(s), 0 failed") {
		t.Errorf("output %q should end with the tally", out)
	}
}

func TestInstallOutputNothingDeclared(t *testing.T) {
	buf := new(bytes.Buffer)
	cmd := &cobra.Command{Use: "install"}
	cmd.SetOut(buf)
	cmd.SetErr(buf)

	if err := printInstallResult(cmd, &installer.Result{}); err != nil {
		t.Fatalf("printInstallResult() error = %v", err)
	}
	if !strings.Contains(buf.String(), "No dependencies to install") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestListCommand(t *testing.T) {
	scratchProject(t)
	if _, err := execute(t, "init", "demo"); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "list")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if !strings.Contains(out, "demo 0.1.0") {
		t.Errorf("output = %q", out)
	}
	if !strings.Contains(out, "No dependencies declared") {
		t.Errorf("output = %q", out)
	}
}

func TestKeygenAndTrustCommands(t *testing.T) {
	scratchProject(t)

	out, err := execute(t, "keygen", "release-1")
	if err != nil {
		t.Fatalf("keygen failed: %v", err)
	}
	if !strings.Contains(out, "Generated keypair release-1") {
		t.Errorf("output = %q", out)
	}

	pubPath := filepath.Join(os.Getenv("BPPKG_HOME"), "keys", "release-1.pub")
	if _, err := execute(t, "trust", "release-1", pubPath); err != nil {
		t.Fatalf("trust failed: %v", err)
	}
}

func TestVerifyCommand(t *testing.T) {
	scratchProject(t)

	path := filepath.Join(t.TempDir(), "artifact.pkg")
	if err := os.WriteFile(path, []byte("bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "verify", path)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if !strings.Contains(out, "sha256:") {
		t.Errorf("output = %q", out)
	}
}

func TestAuditWithoutDatabase(t *testing.T) {
	scratchProject(t)
	if _, err := execute(t, "init", "demo"); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "audit")
	if err != nil {
		t.Fatalf("audit failed: %v", err)
	}
	if !strings.Contains(out, "No vulnerability database") {
		t.Errorf("output = %q", out)
	}
}

func TestCleanCommand(t *testing.T) {
	scratchProject(t)

	out, err := execute(t, "clean")
	if err != nil {
		t.Fatalf("clean failed: %v", err)
	}
	if !strings.Contains(out, "Removed 0 cached item(s)") {
		t.Errorf("output = %q", out)
	}
}

func TestUninstallRequiresArgs(t *testing.T) {
	scratchProject(t)
	if _, err := execute(t, "uninstall"); err == nil {
		t.Error("uninstall without names should fail")
	}
}
