package cmd

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/th3f0rk/bppkg/internal/config"
	"github.com/th3f0rk/bppkg/internal/installer"
	"github.com/th3f0rk/bppkg/internal/registry"
	"github.com/th3f0rk/bppkg/internal/trust"
)

const Version = "2.0.0"

var (
	verbose bool
	logger  = log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: false})
)

var rootCmd = &cobra.Command{
	Use:   "bppkg",
	Short: "Package manager for the BetterPython ecosystem",
	Long: `bppkg manages BetterPython project dependencies.

It resolves the dependencies declared in bpkg.toml against the package
registry, verifies every downloaded artifact's checksum and signature, and
pins the result in bppkg.lock.`,
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			logger.SetLevel(log.DebugLevel)
		}
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// newRegistryClient builds just the configuration and registry client, for
// commands that talk to the registry without touching a project.
func newRegistryClient() (*registry.Client, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return registry.NewClient(cfg, registry.WithLogger(logger))
}

// newInstaller wires the configuration, registry client, and trusted keyring
// for an installer rooted at the current directory.
func newInstaller() (*installer.Installer, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	client, err := registry.NewClient(cfg, registry.WithLogger(logger))
	if err != nil {
		return nil, nil, err
	}
	keys, err := trust.Load(cfg.TrustedKeysFile)
	if err != nil {
		return nil, nil, err
	}
	dir, err := os.Getwd()
	if err != nil {
		return nil, nil, err
	}
	return installer.New(cfg, client, keys, dir, installer.WithLogger(logger)), cfg, nil
}
