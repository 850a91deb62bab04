package scheduler

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/ebkalderon/deck/cache"
	"github.com/ebkalderon/deck/closure"
	"github.com/ebkalderon/deck/deckerr"
	"github.com/ebkalderon/deck/id"
	"github.com/ebkalderon/deck/manifest"
	"github.com/ebkalderon/deck/repository"
	"github.com/ebkalderon/deck/store"
)

// Scheduler drives deck's build graph (spec.md §4.4): it resolves
// manifests, substitutes already-built or cached outputs where possible,
// fetches sources, and builds the rest, memoizing each ManifestID's build
// so concurrent dependents await the same result.
type Scheduler struct {
	manifests *store.Manifests
	sources   *store.Sources
	outputs   *store.Outputs
	build     Builder

	mu     sync.RWMutex
	repos  []repository.Repository
	caches []cache.BinaryCache

	group singleflight.Group
}

// New returns a Scheduler backed by dir's manifest/source/output adapters.
// build performs the actual compilation step; tests may supply a stub.
func New(dir *store.Dir, build Builder) *Scheduler {
	return &Scheduler{
		manifests: store.NewManifests(dir),
		sources:   store.NewSources(dir),
		outputs:   store.NewOutputs(dir),
		build:     build,
	}
}

// AddRepository registers a Repository collaborator, consulted when a
// manifest is not already present in the store (spec.md §4.5).
func (s *Scheduler) AddRepository(r repository.Repository) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.repos = append(s.repos, r)
}

// AddBinaryCache registers a BinaryCache collaborator, consulted during
// substitution before falling back to building from source.
func (s *Scheduler) AddBinaryCache(c cache.BinaryCache) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.caches = append(s.caches, c)
}

// Build resolves target's full dependency closure, validates it, and
// drives the five-stage pipeline of spec.md §4.4 to build it, streaming
// progress events to emit. It blocks until the root build node resolves.
func (s *Scheduler) Build(ctx context.Context, target id.ManifestID, emit Emit) error {
	loaded := make(map[id.ManifestID]*manifest.Manifest)
	if err := s.loadClosureManifests(ctx, target, loaded); err != nil {
		return err
	}

	all := make([]*manifest.Manifest, 0, len(loaded))
	for _, m := range loaded {
		all = append(all, m)
	}

	cl, err := closure.New(target, all)
	if err != nil {
		return err
	}

	_, err = s.buildNode(ctx, cl, emit)
	return err
}

// loadClosureManifests recursively loads target and every transitive
// dependency's manifest into loaded, keyed by ManifestID.
func (s *Scheduler) loadClosureManifests(ctx context.Context, target id.ManifestID, loaded map[id.ManifestID]*manifest.Manifest) error {
	if _, ok := loaded[target]; ok {
		return nil
	}

	m, err := s.loadManifest(ctx, target)
	if err != nil {
		return err
	}
	loaded[target] = m

	for _, dep := range m.Dependencies() {
		if err := s.loadClosureManifests(ctx, dep, loaded); err != nil {
			return err
		}
	}
	return nil
}

// loadManifest resolves mid to a Manifest via the store, falling back to
// each registered repository in turn (spec.md §4.4 stage 1).
func (s *Scheduler) loadManifest(ctx context.Context, mid id.ManifestID) (*manifest.Manifest, error) {
	if m, err := s.manifests.Read(ctx, mid); err == nil {
		return m, nil
	}

	s.mu.RLock()
	repos := append([]repository.Repository(nil), s.repos...)
	s.mu.RUnlock()

	for _, r := range repos {
		if m, err := r.Query(ctx, mid); err == nil {
			return m, nil
		}
	}

	return nil, &deckerr.ManifestUnavailable{Target: mid.String()}
}
