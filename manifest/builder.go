package manifest

import (
	"github.com/ebkalderon/deck/hash"
	"github.com/ebkalderon/deck/id"
)

// Builder assembles a Manifest. It is consumed by Finish, which validates
// every invariant from spec.md §3 before returning an immutable value.
type Builder struct {
	name    string
	version string
	err     error

	dependencies      []id.ManifestID
	buildDependencies []id.ManifestID
	devDependencies   []id.ManifestID
	env               map[string]string
	sources           Sources
	outputs           Outputs
}

// NewBuilder starts a Builder for a package with the given name, version,
// and default-output precomputed hash.
func NewBuilder(name, version string, mainOutputHash hash.Hash) *Builder {
	n, err := id.NewName(name)
	b := &Builder{
		name:    n.String(),
		version: version,
		env:     make(map[string]string),
		outputs: NewOutputs(mainOutputHash),
	}
	if err != nil {
		b.err = err
	}
	return b
}

// Dependency adds a runtime dependency.
func (b *Builder) Dependency(depID id.ManifestID) *Builder {
	b.dependencies = append(b.dependencies, depID)
	return b
}

// BuildDependency adds a build-time dependency.
func (b *Builder) BuildDependency(depID id.ManifestID) *Builder {
	b.buildDependencies = append(b.buildDependencies, depID)
	return b
}

// DevDependency adds a dev dependency.
func (b *Builder) DevDependency(depID id.ManifestID) *Builder {
	b.devDependencies = append(b.devDependencies, depID)
	return b
}

// Env sets an environment variable.
func (b *Builder) Env(key, value string) *Builder {
	b.env[key] = value
	return b
}

// Source appends a source table entry.
func (b *Builder) Source(s Source) *Builder {
	b.sources = append(b.sources, s)
	return b
}

// Output appends a named output table entry.
func (b *Builder) Output(name string, precomputedHash hash.Hash, references []id.OutputID) *Builder {
	b.outputs.Append(name, precomputedHash, references)
	return b
}

// Finish validates the assembled manifest (spec.md §3: outputs invariant,
// output-reference soundness, self-dependency) and returns it.
func (b *Builder) Finish() (*Manifest, error) {
	if b.err != nil {
		return nil, b.err
	}

	name, err := id.NewName(b.name)
	if err != nil {
		return nil, err
	}

	m := &Manifest{doc: document{
		Package: pkg{
			Name:              name,
			Version:           b.version,
			Dependencies:      b.dependencies,
			BuildDependencies: b.buildDependencies,
			DevDependencies:   b.devDependencies,
		},
		Env:     b.env,
		Outputs: b.outputs,
		Sources: b.sources,
	}}

	if err := m.validate(); err != nil {
		return nil, err
	}

	return m, nil
}
