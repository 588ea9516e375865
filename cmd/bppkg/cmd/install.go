package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/th3f0rk/bppkg/internal/installer"
)

var installDev bool

var installCmd = &cobra.Command{
	Use:   "install [name[@spec]...]",
	Short: "Install declared or requested dependencies",
	Long: `Install resolves the project's dependencies and places each verified
package under the project packages directory.

With arguments, the named packages are first added to bpkg.toml. A spec may
be attached with @, e.g. "http-client@^1.2.0"; without one, "latest" is
recorded.`,
	RunE: runInstall,
}

func init() {
	rootCmd.AddCommand(installCmd)
	installCmd.Flags().BoolVar(&installDev, "dev", false, "target dev-dependencies and install them too")
}

func runInstall(cmd *cobra.Command, args []string) error {
	inst, _, err := newInstaller()
	if err != nil {
		return err
	}

	// Interrupt stops in-flight downloads and leaves the lockfile untouched.
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := inst.Install(ctx, args, installDev)
	if err != nil {
		return err
	}
	return printInstallResult(cmd, result)
}

// printInstallResult renders the batch tally. An empty result with warnings
// means every declared dependency was skipped, which is not the same as
// having nothing to install.
func printInstallResult(cmd *cobra.Command, result *installer.Result) error {
	if len(result.Packages) == 0 && len(result.Warnings) == 0 {
		cmd.Println("No dependencies to install")
		return nil
	}

	for _, p := range result.Packages {
		if p.Status == installer.StatusInstalled {
			cmd.Printf("  + %s@%s\n", p.Name, p.Version)
		} else {
			cmd.Printf("  ! %s@%s: %v\n", p.Name, p.Version, p.Err)
		}
	}
	for _, w := range result.Warnings {
		cmd.Printf("  warning: %s\n", w)
	}
	cmd.Printf("Installed %d package(s), %d failed\n", result.Installed(), result.Failed())

	if result.Failed() > 0 {
		return fmt.Errorf("%d package(s) failed to install", result.Failed())
	}
	return nil
}
