package scheduler

import (
	"context"

	"github.com/ebkalderon/deck/cache"
	"github.com/ebkalderon/deck/id"
	"github.com/ebkalderon/deck/manifest"
)

// trySubstitute implements spec.md §4.4 stage 2: if every output of the
// manifest already exists in the store, install a no-op (Memoized) result;
// otherwise, if every output is available from some registered binary
// cache, fetch them instead of building. ok is false when neither applies
// and the caller must proceed to building from source.
func (s *Scheduler) trySubstitute(ctx context.Context, target id.ManifestID, m *manifest.Manifest, emit Emit) (FinalStatus, bool, error) {
	oids, err := m.OutputIDs()
	if err != nil {
		return 0, false, err
	}

	allInStore := true
	for _, oid := range oids {
		ok, err := s.outputs.Contains(ctx, oid)
		if err != nil {
			return 0, false, err
		}
		if !ok {
			allInStore = false
			break
		}
	}
	if allInStore {
		emit(Progress{Kind: KindFinished, Package: target, Finished: &Finished{Status: FinalMemoized}})
		return FinalMemoized, true, nil
	}

	s.mu.RLock()
	caches := append([]cache.BinaryCache(nil), s.caches...)
	s.mu.RUnlock()

	resolved := make([]cache.BinaryCache, len(oids))
	for i, oid := range oids {
		found := false
		for _, c := range caches {
			available, err := c.Query(ctx, oid)
			if err != nil {
				continue
			}
			if available {
				resolved[i] = c
				found = true
				break
			}
		}
		if !found {
			return 0, false, nil
		}
	}

	for i, oid := range oids {
		if err := fetchOutput(ctx, target, oid, resolved[i], s.outputs, emit); err != nil {
			return 0, false, err
		}
	}

	emit(Progress{Kind: KindFinished, Package: target, Finished: &Finished{Status: FinalDownloaded}})
	return FinalDownloaded, true, nil
}
