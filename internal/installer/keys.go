package installer

import (
	"crypto/ed25519"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/th3f0rk/bppkg/internal/bperr"
	"github.com/th3f0rk/bppkg/internal/security"
)

// Keypair names the files a generated signing key was written to.
type Keypair struct {
	KeyID       string
	PrivatePath string
	PublicPath  string
}

// Keygen generates a signing keypair under the user keys directory. It
// refuses to overwrite existing key files. The private key is written
// owner-only.
func (i *Installer) Keygen(keyID string) (*Keypair, error) {
	if !security.ValidatePackageName(keyID) {
		return nil, bperr.Validationf("invalid key id %q", keyID)
	}
	if err := i.cfg.EnsureDirs(); err != nil {
		return nil, err
	}

	privPath := filepath.Join(i.cfg.KeysDir, keyID+".key")
	pubPath := filepath.Join(i.cfg.KeysDir, keyID+".pub")
	for _, p := range []string{privPath, pubPath} {
		if _, err := os.Stat(p); err == nil {
			return nil, bperr.Packagef("key file %s already exists", p)
		}
	}

	pub, priv, err := security.GenerateKeypair()
	if err != nil {
		return nil, err
	}

	encode := func(b []byte) []byte {
		return append([]byte(base64.StdEncoding.EncodeToString(b)), '\n')
	}
	if err := os.WriteFile(privPath, encode(priv), 0o600); err != nil {
		return nil, fmt.Errorf("writing private key: %w", err)
	}
	if err := os.WriteFile(pubPath, encode(pub), 0o644); err != nil {
		return nil, fmt.Errorf("writing public key: %w", err)
	}

	i.log.Info("generated keypair", "key_id", keyID)
	return &Keypair{KeyID: keyID, PrivatePath: privPath, PublicPath: pubPath}, nil
}

// Trust reads a public key from pubPath and records it in the trusted
// keyring under keyID, persisting immediately. Both base64 text and raw
// 32-byte key files are accepted.
func (i *Installer) Trust(keyID, pubPath string) error {
	if !security.ValidatePackageName(keyID) {
		return bperr.Validationf("invalid key id %q", keyID)
	}
	data, err := os.ReadFile(pubPath)
	if err != nil {
		return fmt.Errorf("reading public key: %w", err)
	}

	pub, err := decodePublicKey(data)
	if err != nil {
		return bperr.Validationf("public key %s: %v", pubPath, err)
	}
	if err := i.keyring.Add(keyID, pub); err != nil {
		return err
	}
	i.log.Info("trusted key", "key_id", keyID)
	return nil
}

func decodePublicKey(data []byte) (ed25519.PublicKey, error) {
	trimmed := strings.TrimSpace(string(data))
	if decoded, err := base64.StdEncoding.DecodeString(trimmed); err == nil {
		if len(decoded) == ed25519.PublicKeySize {
			return ed25519.PublicKey(decoded), nil
		}
	}
	if len(data) == ed25519.PublicKeySize {
		return ed25519.PublicKey(data), nil
	}
	return nil, fmt.Errorf("not a %d-byte key in raw or base64 form", ed25519.PublicKeySize)
}

// FileReport is the result of a local checksum diagnostic.
type FileReport struct {
	Path     string
	Size     int64
	Checksum string
}

// Verify computes the sha256 checksum of a local file. This is a diagnostic
// for comparing against registry metadata, not part of the install path.
func (i *Installer) Verify(path string) (*FileReport, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, bperr.Packagef("stat %s: %v", path, err)
	}
	sum, err := security.ChecksumFile(path, security.AlgoSHA256)
	if err != nil {
		return nil, err
	}
	return &FileReport{Path: path, Size: fi.Size(), Checksum: sum}, nil
}

// Clean removes every entry in the artifact cache directory and reports how
// many were deleted.
func (i *Installer) Clean() (int, error) {
	entries, err := os.ReadDir(i.cfg.CacheDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading cache directory: %w", err)
	}

	removed := 0
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(i.cfg.CacheDir, e.Name())); err != nil {
			return removed, fmt.Errorf("removing %s: %w", e.Name(), err)
		}
		removed++
	}
	i.log.Info("cache cleaned", "removed", removed)
	return removed, nil
}
