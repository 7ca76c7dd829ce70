package schema

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Digest content-addresses a byte sequence. It backs the aggregator's pair
// arena: two target dependency sequences that hash identically share the
// same backing slice.
type Digest struct {
	Hex uint64
}

func (d Digest) IsSet() bool { return d.Hex != 0 }

func (d Digest) String() string { return fmt.Sprintf("xxh64:%016x", d.Hex) }

func (d Digest) Equals(o Digest) bool { return d.Hex == o.Hex }

// DigestUint64s folds a sequence of uint64s (typically label hashes, paired
// with a public/private bit) into a single Digest.
func DigestUint64s(vs ...uint64) Digest {
	h := xxhash.New()
	var buf [8]byte
	for _, v := range vs {
		binary.LittleEndian.PutUint64(buf[:], v)
		_, _ = h.Write(buf[:])
	}
	return Digest{Hex: h.Sum64()}
}
