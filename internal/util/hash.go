package util

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// HashParts hashes parts with a 0x00 delimiter so ("ab","c") != ("a","bc").
// Result is 16 lowercase hex chars.
func HashParts(parts ...string) string {
	d := xxhash.New()
	for i, p := range parts {
		if i > 0 {
			_, _ = d.Write([]byte{0})
		}
		_, _ = d.WriteString(p)
	}
	return hex16(d.Sum64())
}

// HashBytes returns the xxhash64 of b as 16 lowercase hex chars.
func HashBytes(b []byte) string {
	return hex16(xxhash.Sum64(b))
}

func hex16(v uint64) string {
	s := strconv.FormatUint(v, 16)
	if len(s) < 16 {
		s = "0000000000000000"[:16-len(s)] + s
	}
	return s
}
