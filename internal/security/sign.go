package security

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
)

// GenerateKeypair creates a fresh Ed25519 signing keypair.
func GenerateKeypair() (ed25519.PublicKey, ed25519.PrivateKey, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("generating keypair: %w", err)
	}
	return pub, priv, nil
}

// SignData signs data with an Ed25519 private key.
func SignData(data []byte, priv ed25519.PrivateKey) ([]byte, error) {
	if len(priv) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("invalid private key length %d", len(priv))
	}
	return ed25519.Sign(priv, data), nil
}

// VerifySignature reports whether sig is a valid Ed25519 signature of data
// under pub. Malformed keys or signatures verify as false; unverifiable input
// is never treated as valid.
func VerifySignature(data, sig []byte, pub ed25519.PublicKey) bool {
	if len(pub) != ed25519.PublicKeySize || len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(pub, data, sig)
}
