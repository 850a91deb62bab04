// Package manifest implements deck's package descriptor: metadata,
// dependency sets, outputs, and sources, serialized as TOML (spec.md §3,
// §6).
package manifest

import (
	"bytes"

	"github.com/BurntSushi/toml"

	"github.com/ebkalderon/deck/deckerr"
	"github.com/ebkalderon/deck/hash"
	"github.com/ebkalderon/deck/id"
)

// pkg is the `[package]` table.
type pkg struct {
	Name              id.Name        `toml:"name"`
	Version           string         `toml:"version"`
	Dependencies      []id.ManifestID `toml:"dependencies"`
	BuildDependencies []id.ManifestID `toml:"build-dependencies"`
	DevDependencies   []id.ManifestID `toml:"dev-dependencies"`
}

// document is the on-disk TOML shape of a Manifest.
type document struct {
	Package pkg               `toml:"package"`
	Env     map[string]string `toml:"env,omitempty"`
	Outputs Outputs           `toml:"output"`
	Sources Sources           `toml:"source,omitempty"`
}

// Manifest is the immutable declarative description of a package. Values
// are produced by Builder.Finish or Parse, never constructed directly, so
// that every live Manifest has already passed its invariant checks.
type Manifest struct {
	doc document
}

// Name returns the package name.
func (m *Manifest) Name() id.Name { return m.doc.Package.Name }

// Version returns the package version string.
func (m *Manifest) Version() string { return m.doc.Package.Version }

// Dependencies returns the runtime dependency set.
func (m *Manifest) Dependencies() []id.ManifestID { return append([]id.ManifestID(nil), m.doc.Package.Dependencies...) }

// BuildDependencies returns the build-time dependency set.
func (m *Manifest) BuildDependencies() []id.ManifestID {
	return append([]id.ManifestID(nil), m.doc.Package.BuildDependencies...)
}

// DevDependencies returns the dev dependency set.
func (m *Manifest) DevDependencies() []id.ManifestID {
	return append([]id.ManifestID(nil), m.doc.Package.DevDependencies...)
}

// Env returns the manifest's environment mapping.
func (m *Manifest) Env() map[string]string {
	out := make(map[string]string, len(m.doc.Env))
	for k, v := range m.doc.Env {
		out[k] = v
	}
	return out
}

// Outputs returns the manifest's output table entries, in declared order.
func (m *Manifest) Outputs() Outputs { return append(Outputs(nil), m.doc.Outputs...) }

// Sources returns the manifest's source table entries, in declared order.
func (m *Manifest) Sources() Sources { return append(Sources(nil), m.doc.Sources...) }

// OutputIDs synthesizes one OutputID per output table entry.
func (m *Manifest) OutputIDs() ([]id.OutputID, error) {
	return m.doc.Outputs.IDs(m.Name(), m.Version())
}

// Encode renders the manifest's canonical TOML form. BurntSushi/toml's
// Encoder writes map keys (Env) in sorted order, so the byte stream, and
// therefore ID(), is deterministic across runs for identical content.
func (m *Manifest) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(m.doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// String implements fmt.Stringer, returning the canonical TOML form.
func (m *Manifest) String() string {
	b, err := m.Encode()
	if err != nil {
		return ""
	}
	return string(b)
}

// ID computes the manifest's canonical ManifestID by hashing its serialized
// TOML form. It is pure: identical TOML bytes always yield the same ID.
func (m *Manifest) ID() (id.ManifestID, error) {
	encoded, err := m.Encode()
	if err != nil {
		return id.ManifestID{}, err
	}

	h := hash.FromBytes(encoded)
	return id.NewManifestID(m.Name().String(), m.Version(), h)
}

// Parse decodes a Manifest from its canonical TOML form, validating every
// invariant in spec.md §3.
func Parse(text string) (*Manifest, error) {
	var doc document
	if _, err := toml.Decode(text, &doc); err != nil {
		return nil, &deckerr.InvalidManifest{Reason: err.Error()}
	}

	m := &Manifest{doc: doc}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// validate checks every invariant from spec.md §3: the outputs invariant,
// output-reference soundness, and self-dependency (a manifest's own ID,
// which depends on its fully-assembled contents, is now known).
func (m *Manifest) validate() error {
	if err := m.doc.Outputs.Validate(); err != nil {
		return err
	}

	outputIDs, err := m.OutputIDs()
	if err != nil {
		return err
	}

	deps := m.doc.Package.Dependencies
	for _, out := range outputIDs {
		for _, ref := range refsOf(m.doc.Outputs, out) {
			if !referenceMatchesDependency(ref, deps) {
				return &deckerr.InvalidInput{Package: m.Name().String(), Input: ref.String()}
			}
		}
	}

	selfID, err := m.ID()
	if err != nil {
		return err
	}
	for _, dep := range deps {
		if dep == selfID {
			return &deckerr.InvalidManifest{Reason: "manifest depends on itself: " + selfID.String()}
		}
	}

	return nil
}

func refsOf(outputs Outputs, target id.OutputID) []id.OutputID {
	for _, out := range outputs {
		if out.Name == target.Slot || (out.Name == "" && target.Slot == "") {
			return out.References
		}
	}
	return nil
}

func referenceMatchesDependency(ref id.OutputID, deps []id.ManifestID) bool {
	for _, dep := range deps {
		if dep.Name == ref.Name && dep.Version == ref.Version {
			return true
		}
	}
	return false
}
