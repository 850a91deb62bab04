package manifest

import (
	"github.com/ebkalderon/deck/deckerr"
	"github.com/ebkalderon/deck/hash"
	"github.com/ebkalderon/deck/id"
)

// Output is one entry of a manifest's outputs table: either the default
// (unnamed) output or a named slot, together with the hash the builder
// asserts it will produce and the set of dependency outputs it references.
type Output struct {
	// Name is empty for the default output.
	Name             string      `toml:"name,omitempty"`
	PrecomputedHash  hash.Hash   `toml:"precomputed-hash"`
	References       []id.OutputID `toml:"references,omitempty"`
}

// IsDefault reports whether this is the manifest's unnamed, mandatory
// output.
func (o Output) IsDefault() bool {
	return o.Name == ""
}

// Outputs is the ordered `[[output]]` table of a manifest. It always
// contains exactly one default (unnamed) entry.
type Outputs []Output

// NewOutputs builds an Outputs table containing only the default output.
func NewOutputs(precomputedHash hash.Hash) Outputs {
	return Outputs{{PrecomputedHash: precomputedHash}}
}

// Append adds a named output entry.
func (o *Outputs) Append(name string, precomputedHash hash.Hash, references []id.OutputID) {
	*o = append(*o, Output{Name: name, PrecomputedHash: precomputedHash, References: references})
}

// Validate enforces the single-default-output invariant.
func (o Outputs) Validate() error {
	defaults := 0
	for _, out := range o {
		if out.IsDefault() {
			defaults++
		}
	}

	switch {
	case defaults == 0:
		return &deckerr.InvalidManifest{Reason: "outputs table is missing the default output"}
	case defaults > 1:
		return &deckerr.InvalidManifest{Reason: "outputs table has more than one default output"}
	default:
		return nil
	}
}

// IDs synthesizes an OutputID per entry, from the package name/version plus
// the entry's slot name and precomputed hash.
func (o Outputs) IDs(name id.Name, version string) ([]id.OutputID, error) {
	ids := make([]id.OutputID, 0, len(o))
	for _, out := range o {
		oid, err := id.NewOutputID(name.String(), version, out.Name, out.PrecomputedHash)
		if err != nil {
			return nil, err
		}
		ids = append(ids, oid)
	}
	return ids, nil
}
