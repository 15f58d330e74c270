package sheet

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
)

// Checksum returns a deterministic SHA-256 of the snapshot, independent of map order.
func Checksum(s Snapshot) string {
	hash := sha256.Sum256(canonical(s))
	return hex.EncodeToString(hash[:])
}

// Equal reports whether two snapshots hold the same id, name and attributes.
func Equal(a, b Snapshot) bool {
	return bytes.Equal(canonical(a), canonical(b))
}

func canonical(s Snapshot) []byte {
	var buf bytes.Buffer
	buf.WriteString(fmt.Sprintf("CHARACTER:%q|%q\n", s.ID, s.Name))

	names := make([]string, 0, len(s.Attributes))
	for name := range s.Attributes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		buf.WriteString(fmt.Sprintf("ATTR:%q=%q\n", name, s.Attributes[name]))
	}
	return buf.Bytes()
}
