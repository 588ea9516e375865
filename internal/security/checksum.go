package security

import (
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"

	"golang.org/x/crypto/blake2b"

	"github.com/th3f0rk/bppkg/internal/bperr"
)

// Supported checksum algorithms.
const (
	AlgoSHA256  = "sha256"
	AlgoSHA512  = "sha512"
	AlgoBLAKE2b = "blake2b"
)

// SupportedAlgorithm reports whether algo names a checksum algorithm bppkg
// can compute.
func SupportedAlgorithm(algo string) bool {
	switch algo {
	case AlgoSHA256, AlgoSHA512, AlgoBLAKE2b:
		return true
	}
	return false
}

func newHasher(algo string) (hash.Hash, error) {
	switch algo {
	case AlgoSHA256:
		return sha256.New(), nil
	case AlgoSHA512:
		return sha512.New(), nil
	case AlgoBLAKE2b:
		h, err := blake2b.New256(nil)
		if err != nil {
			return nil, bperr.Securityf("initializing blake2b: %v", err)
		}
		return h, nil
	default:
		return nil, bperr.Validationf("unsupported checksum algorithm %q", algo)
	}
}

// ComputeChecksum returns the lowercase hex digest of data under algo.
func ComputeChecksum(data []byte, algo string) (string, error) {
	h, err := newHasher(algo)
	if err != nil {
		return "", err
	}
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// ChecksumFile computes the digest of a file without loading it into memory.
func ChecksumFile(path, algo string) (string, error) {
	h, err := newHasher(algo)
	if err != nil {
		return "", err
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// VerifyChecksum reports whether data hashes to expected under algo. The
// comparison is constant time; an unsupported algorithm verifies as false,
// never as true.
func VerifyChecksum(data []byte, expected, algo string) bool {
	actual, err := ComputeChecksum(data, algo)
	if err != nil {
		return false
	}
	return ConstantTimeEqualHex(actual, expected)
}

// ConstantTimeEqualHex compares two hex digests without leaking the position
// of the first difference. Case differences are ignored.
func ConstantTimeEqualHex(a, b string) bool {
	ab := []byte(strings.ToLower(a))
	bb := []byte(strings.ToLower(b))
	if len(ab) != len(bb) {
		return false
	}
	return subtle.ConstantTimeCompare(ab, bb) == 1
}
