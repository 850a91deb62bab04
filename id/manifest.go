package id

import (
	"fmt"
	"strings"

	"github.com/ebkalderon/deck/deckerr"
	"github.com/ebkalderon/deck/hash"
)

// ManifestID uniquely identifies a manifest by the triple (name, version,
// hash of its canonical TOML encoding).
type ManifestID struct {
	Name    Name
	Version string
	Hash    hash.Hash
}

// NewManifestID validates name and assembles a ManifestID.
func NewManifestID(name, version string, h hash.Hash) (ManifestID, error) {
	n, err := NewName(name)
	if err != nil {
		return ManifestID{}, err
	}
	return ManifestID{Name: n, Version: version, Hash: h}, nil
}

// String renders the ID as "name@version-hash".
func (m ManifestID) String() string {
	return fmt.Sprintf("%s@%s-%s", m.Name, m.Version, m.Hash)
}

// Path renders the filesystem form of the ID: "name@version-hash.toml".
func (m ManifestID) Path() string {
	return m.String() + ".toml"
}

// ParseManifestID parses the "name@version-hash" form, as produced by
// String. Parsing proceeds by right-splitting once on '-' for the hash,
// then right-splitting the remainder once on '@' for the version.
func ParseManifestID(s string) (ManifestID, error) {
	nameVersion, hashPart, ok := cutLast(s, "-")
	if !ok {
		return ManifestID{}, &deckerr.InvalidID{Kind: "manifest", Value: s, Reason: "missing hash"}
	}

	h, err := hash.Parse(hashPart)
	if err != nil {
		return ManifestID{}, &deckerr.InvalidID{Kind: "manifest", Value: s, Reason: err.Error()}
	}

	name, version, ok := cutLast(nameVersion, "@")
	if !ok {
		return ManifestID{}, &deckerr.InvalidID{Kind: "manifest", Value: s, Reason: "missing version"}
	}

	return NewManifestID(name, version, h)
}

// MarshalText implements encoding.TextMarshaler.
func (m ManifestID) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *ManifestID) UnmarshalText(text []byte) error {
	parsed, err := ParseManifestID(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// cutLast splits s on the last occurrence of sep, returning the portion
// before and after it. It mirrors Rust's rsplitn(2, sep).
func cutLast(s, sep string) (before, after string, found bool) {
	i := strings.LastIndex(s, sep)
	if i < 0 {
		return "", "", false
	}
	return s[:i], s[i+len(sep):], true
}
