package id

import (
	"fmt"

	"github.com/ebkalderon/deck/deckerr"
	"github.com/ebkalderon/deck/hash"
)

// SourceID uniquely identifies one fetched source artifact by its original
// filename and content hash.
type SourceID struct {
	Filename string
	Hash     hash.Hash
}

// NewSourceID assembles a SourceID. The filename itself is not subject to
// Name validation: it may be any non-empty string, since it is taken
// verbatim from a URI or local path.
func NewSourceID(filename string, h hash.Hash) (SourceID, error) {
	if filename == "" {
		return SourceID{}, &deckerr.InvalidID{Kind: "source", Value: filename, Reason: "filename must not be empty"}
	}
	return SourceID{Filename: filename, Hash: h}, nil
}

// String renders the ID as "filename-hash".
func (s SourceID) String() string {
	return fmt.Sprintf("%s-%s", s.Filename, s.Hash)
}

// Path renders the filesystem form of the ID: the textual rendering itself.
func (s SourceID) Path() string {
	return s.String()
}

// ParseSourceID parses the "filename-hash" form, as produced by String.
func ParseSourceID(s string) (SourceID, error) {
	filename, hashPart, ok := cutLast(s, "-")
	if !ok {
		return SourceID{}, &deckerr.InvalidID{Kind: "source", Value: s, Reason: "missing hash"}
	}

	h, err := hash.Parse(hashPart)
	if err != nil {
		return SourceID{}, &deckerr.InvalidID{Kind: "source", Value: s, Reason: err.Error()}
	}

	return NewSourceID(filename, h)
}
