// Package trust manages the set of registry signer keys the local
// installation has explicitly opted to accept.
//
// An artifact signed by a key that is not in the keyring is untrusted, not
// merely unverified; installs reject it.
package trust

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/th3f0rk/bppkg/internal/bperr"
)

// FileName is the trusted-keys file name inside the bppkg home directory.
const FileName = "trusted_keys.json"

// Keyring maps signer key IDs to Ed25519 public keys.
type Keyring struct {
	path string
	keys map[string]ed25519.PublicKey
}

// Load reads the keyring from path. A missing file yields an empty keyring
// that persists to the same path.
func Load(path string) (*Keyring, error) {
	k := &Keyring{path: path, keys: make(map[string]ed25519.PublicKey)}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return k, nil
		}
		return nil, fmt.Errorf("reading trusted keys: %w", err)
	}

	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing trusted keys: %w", err)
	}

	for id, encoded := range raw {
		pub, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, bperr.Securityf("trusted key %q: invalid base64: %v", id, err)
		}
		if len(pub) != ed25519.PublicKeySize {
			return nil, bperr.Securityf("trusted key %q: invalid key length %d", id, len(pub))
		}
		k.keys[id] = ed25519.PublicKey(pub)
	}
	return k, nil
}

// Lookup returns the public key for a signer key ID.
func (k *Keyring) Lookup(keyID string) (ed25519.PublicKey, bool) {
	pub, ok := k.keys[keyID]
	return pub, ok
}

// Add records a public key under keyID and persists the keyring immediately.
func (k *Keyring) Add(keyID string, pub ed25519.PublicKey) error {
	if len(pub) != ed25519.PublicKeySize {
		return bperr.Validationf("public key for %q has invalid length %d", keyID, len(pub))
	}
	k.keys[keyID] = pub
	return k.save()
}

// Len returns the number of trusted keys.
func (k *Keyring) Len() int { return len(k.keys) }

// IDs returns the trusted key IDs, sorted.
func (k *Keyring) IDs() []string {
	ids := make([]string, 0, len(k.keys))
	for id := range k.keys {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (k *Keyring) save() error {
	raw := make(map[string]string, len(k.keys))
	for id, pub := range k.keys {
		raw[id] = base64.StdEncoding.EncodeToString(pub)
	}

	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling trusted keys: %w", err)
	}
	data = append(data, '\n')

	// The keyring may be the first thing written under a fresh home.
	if err := os.MkdirAll(filepath.Dir(k.path), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(k.path), err)
	}
	if err := os.WriteFile(k.path, data, 0o644); err != nil {
		return fmt.Errorf("writing trusted keys: %w", err)
	}
	return nil
}
