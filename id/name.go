// Package id implements deck's typed identifiers: Name, ManifestID,
// OutputID, SourceID, and Platform, per spec.md §3.
package id

import (
	"unicode"

	"github.com/ebkalderon/deck/deckerr"
)

// Name is a validated package or output name: a non-empty string drawn from
// {alphanumeric, '-', '_', '.'}, excluding the reserved literals ".", "..",
// and "/".
type Name string

// NewName validates s and returns it as a Name.
func NewName(s string) (Name, error) {
	if s == "" {
		return "", &deckerr.InvalidName{Value: s, Reason: "name must not be empty"}
	}

	switch s {
	case ".", "..", "/":
		return "", &deckerr.InvalidName{Value: s, Reason: "reserved name"}
	}

	for _, r := range s {
		if !isAllowedNameRune(r) {
			return "", &deckerr.InvalidName{Value: s, Reason: "contains disallowed character " + string(r)}
		}
	}

	return Name(s), nil
}

func isAllowedNameRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' || r == '.'
}

// String implements fmt.Stringer.
func (n Name) String() string {
	return string(n)
}

// MarshalText implements encoding.TextMarshaler.
func (n Name) MarshalText() ([]byte, error) {
	return []byte(n), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (n *Name) UnmarshalText(text []byte) error {
	name, err := NewName(string(text))
	if err != nil {
		return err
	}
	*n = name
	return nil
}
