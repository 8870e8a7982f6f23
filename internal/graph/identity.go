package graph

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/smartmake/internal/model"
)

// IdentityKey computes the canonical identity of a task instance: the task
// name plus its narrowed parameter binding.
//
// Two dependency paths that request the same task under the same effective
// binding must collapse to one node, so the key has to be insensitive to
// map iteration order and to Unicode representation differences in values:
// keys are sorted and every component is NFC normalized before hashing.
func IdentityKey(taskName string, binding model.Binding) string {
	h := sha256.New()
	writeComponent(h, taskName)
	keys := make([]string, 0, len(binding))
	for k := range binding {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		writeComponent(h, k)
		writeComponent(h, binding[k])
	}
	return hex.EncodeToString(h.Sum(nil))
}

// writeComponent hashes one NFC-normalized, length-framed component.
// Framing prevents ("ab","c") and ("a","bc") from colliding.
type hashWriter interface {
	Write(p []byte) (int, error)
}

func writeComponent(h hashWriter, s string) {
	normalized := norm.NFC.String(s)
	var frame [8]byte
	n := len(normalized)
	for i := 0; i < 8; i++ {
		frame[7-i] = byte(n >> (8 * i))
	}
	h.Write(frame[:])
	h.Write([]byte(normalized))
}
