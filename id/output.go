package id

import (
	"fmt"
	"strings"

	"github.com/ebkalderon/deck/deckerr"
	"github.com/ebkalderon/deck/hash"
)

// OutputID uniquely identifies one built output of a package: its name,
// version, an optional named slot (empty for the default output), and the
// precomputed hash asserted for that output.
type OutputID struct {
	Name    Name
	Version string
	Slot    string // empty for the default (unnamed) output
	Hash    hash.Hash
}

// NewOutputID validates name and assembles an OutputID.
func NewOutputID(name, version, slot string, h hash.Hash) (OutputID, error) {
	n, err := NewName(name)
	if err != nil {
		return OutputID{}, err
	}
	return OutputID{Name: n, Version: version, Slot: slot, Hash: h}, nil
}

// String renders the ID as "name@version[:slot]-hash".
func (o OutputID) String() string {
	if o.Slot == "" {
		return fmt.Sprintf("%s@%s-%s", o.Name, o.Version, o.Hash)
	}
	return fmt.Sprintf("%s@%s:%s-%s", o.Name, o.Version, o.Slot, o.Hash)
}

// Path renders the filesystem form of the ID: the textual rendering itself,
// used directly as a directory name.
func (o OutputID) Path() string {
	return o.String()
}

// SamePackage reports whether o and other belong to the same package, i.e.
// their name and version match.
func (o OutputID) SamePackage(other OutputID) bool {
	return o.Name == other.Name && o.Version == other.Version
}

// MarshalText implements encoding.TextMarshaler.
func (o OutputID) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *OutputID) UnmarshalText(text []byte) error {
	parsed, err := ParseOutputID(string(text))
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}

// ParseOutputID parses the "name@version[:slot]-hash" form, as produced by
// String.
func ParseOutputID(s string) (OutputID, error) {
	nameVersionSlot, hashPart, ok := cutLast(s, "-")
	if !ok {
		return OutputID{}, &deckerr.InvalidID{Kind: "output", Value: s, Reason: "missing hash"}
	}

	h, err := hash.Parse(hashPart)
	if err != nil {
		return OutputID{}, &deckerr.InvalidID{Kind: "output", Value: s, Reason: err.Error()}
	}

	name, versionSlot, ok := cutLast(nameVersionSlot, "@")
	if !ok {
		return OutputID{}, &deckerr.InvalidID{Kind: "output", Value: s, Reason: "missing version"}
	}

	version, slot, _ := strings.Cut(versionSlot, ":")

	return NewOutputID(name, version, slot, h)
}
