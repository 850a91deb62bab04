// Package closure implements deck's dependency closure model: given a
// target manifest ID and a set of manifests, verify the set is acyclic,
// complete, and every output reference resolves to a declared dependency
// (spec.md §4.3).
package closure

import (
	"github.com/ebkalderon/deck/deckerr"
	"github.com/ebkalderon/deck/id"
	"github.com/ebkalderon/deck/manifest"
)

// packageOf reports the Manifest interface a Closure needs from its
// elements: enough to walk dependencies and outputs without depending on
// the concrete manifest.Manifest type's full surface.
type packageOf interface {
	Dependencies() []id.ManifestID
	Outputs() manifest.Outputs
}

var _ packageOf = (*manifest.Manifest)(nil)

// Closure is a target ManifestId plus an immutable, shared mapping from
// ManifestId to Manifest. It is constructed only after validation, and
// shares its package map by reference across sub-closures.
type Closure struct {
	target   id.ManifestID
	packages map[id.ManifestID]*manifest.Manifest
}

// New validates the given manifest set against target and, on success,
// returns a Closure. The manifest set is keyed by each manifest's own
// ManifestID; duplicates with identical IDs are deduplicated by map
// construction.
func New(target id.ManifestID, manifests []*manifest.Manifest) (*Closure, error) {
	packages := make(map[id.ManifestID]*manifest.Manifest, len(manifests))
	for _, m := range manifests {
		mid, err := m.ID()
		if err != nil {
			return nil, err
		}
		packages[mid] = m
	}

	if err := validate(target, packages, make(map[id.ManifestID]bool)); err != nil {
		return nil, err
	}

	return &Closure{target: target, packages: packages}, nil
}

// Target returns the target ManifestID represented by this closure.
func (c *Closure) Target() id.ManifestID { return c.target }

// TargetManifest returns the target Manifest represented by this closure.
func (c *Closure) TargetManifest() *manifest.Manifest { return c.packages[c.target] }

// DependentClosures returns a sub-closure for each direct dependency of
// the target, re-targeting the same shared package map.
func (c *Closure) DependentClosures() []*Closure {
	deps := c.TargetManifest().Dependencies()
	out := make([]*Closure, 0, len(deps))
	for _, dep := range deps {
		out = append(out, &Closure{target: dep, packages: c.packages})
	}
	return out
}

// validate checks target against packages, per spec.md §4.3:
//   - t ∈ M
//   - for every direct dependency d of M[t]: d ≠ t, d ∈ M, and validation
//     recurses on d
//   - for every output reference r of M[t], some dependency of M[t] shares
//     the package of r (same name and version)
//
// visited records targets already validated, so a diamond dependency is
// checked once and a longer cycle (A depends on B depends on A) cannot
// recurse forever.
func validate(target id.ManifestID, packages map[id.ManifestID]*manifest.Manifest, visited map[id.ManifestID]bool) error {
	if visited[target] {
		return nil
	}
	visited[target] = true

	m, ok := packages[target]
	if !ok {
		return &deckerr.MissingTarget{Target: target.String()}
	}

	for _, dep := range m.Dependencies() {
		if dep == target {
			return &deckerr.CycleDetected{Target: target.String()}
		}
		if _, ok := packages[dep]; !ok {
			return &deckerr.MissingDependency{Package: target.String(), Dependency: dep.String()}
		}
		if err := validate(dep, packages, visited); err != nil {
			return err
		}
	}

	deps := m.Dependencies()
	for _, out := range m.Outputs() {
		for _, ref := range out.References {
			if !hasSamePackageDependency(ref, deps) {
				return &deckerr.InvalidInput{Package: target.String(), Input: ref.String()}
			}
		}
	}

	return nil
}

func hasSamePackageDependency(ref id.OutputID, deps []id.ManifestID) bool {
	for _, dep := range deps {
		if dep.Name == ref.Name && dep.Version == ref.Version {
			return true
		}
	}
	return false
}
