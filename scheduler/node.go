package scheduler

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/ebkalderon/deck/closure"
	"github.com/ebkalderon/deck/id"
	"github.com/ebkalderon/deck/manifest"
)

// buildNode runs stages 2–5 of spec.md §4.4's pipeline for cl's target:
// substitute if possible, otherwise fetch sources and dependencies and
// build. Concurrent calls for the same target (reached via different
// dependents) are deduplicated by singleflight, so the underlying work —
// and its progress events — happen exactly once; every caller observes the
// same FinalStatus.
func (s *Scheduler) buildNode(ctx context.Context, cl *closure.Closure, emit Emit) (FinalStatus, error) {
	target := cl.Target()

	v, err, _ := s.group.Do(target.String(), func() (any, error) {
		return s.buildNodeOnce(ctx, cl, emit)
	})
	if err != nil {
		return 0, err
	}
	return v.(FinalStatus), nil
}

func (s *Scheduler) buildNodeOnce(ctx context.Context, cl *closure.Closure, emit Emit) (FinalStatus, error) {
	target := cl.Target()
	m := cl.TargetManifest()

	if status, ok, err := s.trySubstitute(ctx, target, m, emit); err != nil {
		return 0, err
	} else if ok {
		return status, nil
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.fetchAllSources(gctx, target, m, emit)
	})

	for _, dep := range cl.DependentClosures() {
		dep := dep
		g.Go(func() error {
			_, err := s.buildNode(gctx, dep, emit)
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return 0, err
	}

	if err := buildManifest(ctx, target, m, s.build, s.outputs, emit); err != nil {
		return 0, err
	}

	return FinalBuilt, nil
}

func (s *Scheduler) fetchAllSources(ctx context.Context, target id.ManifestID, m *manifest.Manifest, emit Emit) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, src := range m.Sources() {
		src := src
		g.Go(func() error {
			return fetchSource(gctx, target, src, s.sources, emit)
		})
	}
	return g.Wait()
}
