// Package config builds the runtime configuration for bppkg.
//
// All filesystem locations and network limits are resolved here once, at
// startup, and threaded into the components that need them. Library code
// never consults the environment on its own.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

const (
	// ManifestFile is the project manifest name.
	ManifestFile = "bpkg.toml"
	// ProjectPackagesDir is the project-local directory installed packages
	// are placed under.
	ProjectPackagesDir = "packages"

	// DefaultRegistryURL is the package registry consulted when the user
	// config does not name one.
	DefaultRegistryURL = "https://registry.betterpython.org"

	defaultHomeDir       = ".betterpython"
	defaultMaxFetchBytes = 64 << 20
	defaultTimeout       = 30 * time.Second
	defaultConcurrency   = 4
)

// Config carries every externally configurable setting.
type Config struct {
	// Home is the user-scoped configuration root, default ~/.betterpython.
	Home string
	// PackagesDir is the user-scoped package store under Home.
	PackagesDir string
	// KeysDir holds generated signing keypairs; private keys are 0600.
	KeysDir string
	// CacheDir holds downloaded artifacts between installs.
	CacheDir string
	// TrustedKeysFile is the JSON key_id -> public key mapping.
	TrustedKeysFile string
	// AdvisoryFile is the optional local vulnerability database for audit.
	AdvisoryFile string

	// RegistryURL is the base URL of the package registry.
	RegistryURL string
	// MaxFetchBytes caps the size of any single registry response.
	MaxFetchBytes int64
	// Timeout bounds every network call.
	Timeout time.Duration
	// Concurrency bounds the install download pool.
	Concurrency int
}

// Load reads config.json from the bppkg home directory (if present) plus
// BPPKG_* environment overrides, and returns the resolved configuration.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("BPPKG")
	v.AutomaticEnv()

	v.SetDefault("registry", DefaultRegistryURL)
	v.SetDefault("max_fetch_bytes", int64(defaultMaxFetchBytes))
	v.SetDefault("timeout_seconds", int(defaultTimeout/time.Second))
	v.SetDefault("concurrency", defaultConcurrency)

	home := v.GetString("home")
	if home == "" {
		userHome, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolving home directory: %w", err)
		}
		home = filepath.Join(userHome, defaultHomeDir)
	}

	v.SetConfigFile(filepath.Join(home, "config.json"))
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil && !os.IsNotExist(err) {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config.json: %w", err)
		}
	}

	cfg := &Config{
		Home:            home,
		PackagesDir:     filepath.Join(home, "packages"),
		KeysDir:         filepath.Join(home, "keys"),
		CacheDir:        filepath.Join(home, "cache"),
		TrustedKeysFile: filepath.Join(home, "trusted_keys.json"),
		AdvisoryFile:    filepath.Join(home, "advisories.yaml"),
		RegistryURL:     v.GetString("registry"),
		MaxFetchBytes:   v.GetInt64("max_fetch_bytes"),
		Timeout:         time.Duration(v.GetInt("timeout_seconds")) * time.Second,
		Concurrency:     v.GetInt("concurrency"),
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	return cfg, nil
}

// EnsureDirs creates the user-scoped directory layout. The keys directory is
// restricted to the owner.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.Home, c.PackagesDir, c.CacheDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	if err := os.MkdirAll(c.KeysDir, 0o700); err != nil {
		return fmt.Errorf("creating %s: %w", c.KeysDir, err)
	}
	return nil
}
