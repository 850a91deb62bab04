// Package hash implements deck's content-addressing primitive: a 20-byte
// variable-length BLAKE2b digest, rendered as unpadded, lower-case base-32
// text.
package hash

import (
	"crypto/rand"
	"encoding/base32"
	"hash"
	"strings"

	"golang.org/x/crypto/blake2b"

	"github.com/ebkalderon/deck/deckerr"
)

// Length is the fixed digest size, in bytes, of every Hash.
const Length = 20

// encoding is the RFC-4648 base-32 alphabet without padding, matching
// spec.md's textual form exactly.
var encoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// Hash is a 20-byte BLAKE2b digest. The zero value is not a valid hash.
type Hash [Length]byte

// Builder accumulates input and produces a Hash, mirroring the
// compute()/input()/finish() pipeline of the original implementation.
type Builder struct {
	h hash.Hash
}

// Compute starts a new Builder.
func Compute() *Builder {
	h, err := blake2b.New(Length, nil)
	if err != nil {
		// Length is a compile-time constant in [1, 64]; blake2b.New can only
		// fail outside that range.
		panic(err)
	}
	return &Builder{h: h}
}

// Input feeds bytes into the hash and returns the Builder for chaining.
func (b *Builder) Input(p []byte) *Builder {
	b.h.Write(p)
	return b
}

// Finish consumes the Builder and returns the resulting Hash.
func (b *Builder) Finish() Hash {
	var out Hash
	copy(out[:], b.h.Sum(nil))
	return out
}

// FromBytes hashes p in one step.
func FromBytes(p []byte) Hash {
	return Compute().Input(p).Finish()
}

// Random fills 32 bytes from a CSPRNG and hashes them, producing a Hash
// unconnected to any particular content.
func Random() Hash {
	var buf [32]byte
	if _, err := rand.Read(buf[:]); err != nil {
		panic(err)
	}
	return FromBytes(buf[:])
}

// String renders the Hash as lower-case, unpadded base-32.
func (h Hash) String() string {
	return strings.ToLower(encoding.EncodeToString(h[:]))
}

// Parse decodes s, which may use either case, into a Hash. It rejects any
// input whose decoded length is not exactly Length bytes.
func Parse(s string) (Hash, error) {
	decoded, err := encoding.DecodeString(strings.ToUpper(s))
	if err != nil {
		return Hash{}, &deckerr.InvalidHash{Value: s, Reason: err.Error()}
	}

	if len(decoded) != Length {
		return Hash{}, &deckerr.InvalidHash{
			Value:  s,
			Reason: "decoded length is not 20 bytes",
		}
	}

	var out Hash
	copy(out[:], decoded)
	return out, nil
}

// IsZero reports whether h is the zero value.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// MarshalText implements encoding.TextMarshaler, letting Hash be embedded
// directly in TOML/YAML/JSON documents as a plain string.
func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *Hash) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}
