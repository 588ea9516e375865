package security

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/th3f0rk/bppkg/internal/bperr"
)

func TestChecksumRoundTrip(t *testing.T) {
	inputs := [][]byte{
		nil,
		[]byte(""),
		[]byte("hello"),
		[]byte(strings.Repeat("x", 10_000)),
		{0x00, 0xff, 0x10},
	}

	for _, algo := range []string{AlgoSHA256, AlgoSHA512, AlgoBLAKE2b} {
		for _, data := range inputs {
			sum, err := ComputeChecksum(data, algo)
			if err != nil {
				t.Fatalf("ComputeChecksum(%s) error = %v", algo, err)
			}
			if !VerifyChecksum(data, sum, algo) {
				t.Errorf("VerifyChecksum round-trip failed for %s on %d bytes", algo, len(data))
			}
			if VerifyChecksum(append(append([]byte{}, data...), 'x'), sum, algo) {
				t.Errorf("VerifyChecksum accepted mutated data for %s", algo)
			}
		}
	}
}

func TestComputeChecksumKnownValue(t *testing.T) {
	// sha256("abc")
	sum, err := ComputeChecksum([]byte("abc"), AlgoSHA256)
	if err != nil {
		t.Fatal(err)
	}
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if sum != want {
		t.Errorf("sha256(abc) = %s, want %s", sum, want)
	}
}

func TestUnsupportedAlgorithm(t *testing.T) {
	_, err := ComputeChecksum([]byte("data"), "md5")
	if err == nil {
		t.Fatal("ComputeChecksum(md5) should fail")
	}
	if !bperr.IsKind(err, bperr.KindValidation) {
		t.Errorf("error kind = %v, want validation", bperr.KindOf(err))
	}

	// Unverifiable data must never verify as valid.
	if VerifyChecksum([]byte("data"), "abcd", "md5") {
		t.Error("VerifyChecksum with unsupported algorithm returned true")
	}
}

func TestVerifyChecksumCaseInsensitive(t *testing.T) {
	sum, err := ComputeChecksum([]byte("abc"), AlgoSHA256)
	if err != nil {
		t.Fatal(err)
	}
	if !VerifyChecksum([]byte("abc"), strings.ToUpper(sum), AlgoSHA256) {
		t.Error("uppercase digest rejected")
	}
}

func TestConstantTimeEqualHex(t *testing.T) {
	if !ConstantTimeEqualHex("abcdef", "ABCDEF") {
		t.Error("case-insensitive equality failed")
	}
	if ConstantTimeEqualHex("abcdef", "abcdee") {
		t.Error("unequal digests compared equal")
	}
	if ConstantTimeEqualHex("abc", "abcdef") {
		t.Error("length mismatch compared equal")
	}
}

func TestChecksumFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "artifact.pkg")
	data := []byte("file contents for hashing")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	fromFile, err := ChecksumFile(path, AlgoSHA256)
	if err != nil {
		t.Fatalf("ChecksumFile() error = %v", err)
	}
	fromBytes, err := ComputeChecksum(data, AlgoSHA256)
	if err != nil {
		t.Fatal(err)
	}
	if fromFile != fromBytes {
		t.Errorf("ChecksumFile = %s, ComputeChecksum = %s", fromFile, fromBytes)
	}

	if _, err := ChecksumFile(filepath.Join(t.TempDir(), "missing"), AlgoSHA256); err == nil {
		t.Error("ChecksumFile on missing file should error")
	}
}
