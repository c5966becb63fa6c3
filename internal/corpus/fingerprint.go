package corpus

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
)

// Fingerprint identifies the observable state of a corpus directory:
// how many top-level JSON documents it holds and a digest over their
// sorted names, sizes, and modification times. Two directories with
// equal fingerprints hold the same documents as far as the index is
// concerned, so a cached index built from one is valid for the other.
type Fingerprint struct {
	Count  int
	Digest string
}

// Equal reports whether two fingerprints describe the same corpus state.
func (f Fingerprint) Equal(o Fingerprint) bool {
	return f.Count == o.Count && f.Digest == o.Digest
}

// ComputeFingerprint hashes the top-level JSON documents under dir.
// ReadDir returns entries sorted by name, which fixes the hash order.
func ComputeFingerprint(dir string) (Fingerprint, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Fingerprint{}, err
	}

	h := sha256.New()
	count := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(strings.ToLower(name), ".json") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		fmt.Fprintf(h, "%s\x00%d\x00%d\n", name, info.Size(), info.ModTime().UnixNano())
		count++
	}
	fmt.Fprintf(h, "files=%d\n", count)

	return Fingerprint{Count: count, Digest: hex.EncodeToString(h.Sum(nil))}, nil
}
