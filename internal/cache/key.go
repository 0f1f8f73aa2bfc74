package cache

import (
	"encoding/binary"
	"os"

	"github.com/opencontainers/go-digest"
)

// Computes a stage key from its parent key and the stage's declared inputs.
//
// The parent key comes first, so every downstream key transitively covers all
// upstream inputs: invalidating one stage invalidates everything after it.
// Inputs are length-prefixed before hashing so adjacent values cannot collide
// by concatenation ("ab"+"c" vs "a"+"bc").
func Chain(parent digest.Digest, inputs ...string) digest.Digest {
	d := digest.Canonical.Digester()
	h := d.Hash()

	writeFrame(h.Write, parent.String())
	for _, in := range inputs {
		writeFrame(h.Write, in)
	}

	return d.Digest()
}

// Returns the canonical digest of a file's content.
//
// Only the content participates: renaming or touching the file does not
// change its digest.
func FileDigest(path string) (digest.Digest, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	return digest.FromReader(f)
}

// Writes a length-prefixed value through the given write function.
func writeFrame(write func([]byte) (int, error), v string) {
	var prefix [8]byte
	binary.BigEndian.PutUint64(prefix[:], uint64(len(v)))
	write(prefix[:])
	write([]byte(v))
}
