package closure_test

import (
	"errors"
	"testing"

	"github.com/ebkalderon/deck/closure"
	"github.com/ebkalderon/deck/deckerr"
	"github.com/ebkalderon/deck/hash"
	"github.com/ebkalderon/deck/id"
	"github.com/ebkalderon/deck/manifest"
)

func mustFinish(t *testing.T, b *manifest.Builder) *manifest.Manifest {
	t.Helper()
	m, err := b.Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	return m
}

func mustID(t *testing.T, m *manifest.Manifest) id.ManifestID {
	t.Helper()
	mid, err := m.ID()
	if err != nil {
		t.Fatalf("ID: %v", err)
	}
	return mid
}

func TestNewRejectsMissingTarget(t *testing.T) {
	leaf := mustFinish(t, manifest.NewBuilder("leaf", "1.0.0", hash.Random()))

	bogus, err := id.NewManifestID("ghost", "1.0.0", hash.Random())
	if err != nil {
		t.Fatalf("NewManifestID: %v", err)
	}

	_, err = closure.New(bogus, []*manifest.Manifest{leaf})
	var missing *deckerr.MissingTarget
	if !errors.As(err, &missing) {
		t.Fatalf("New() error = %v, want *deckerr.MissingTarget", err)
	}
}

func TestNewRejectsMissingDependency(t *testing.T) {
	absent, err := id.NewManifestID("base", "1.0.0", hash.Random())
	if err != nil {
		t.Fatalf("NewManifestID: %v", err)
	}

	top := mustFinish(t, manifest.NewBuilder("top", "1.0.0", hash.Random()).Dependency(absent))
	topID := mustID(t, top)

	_, err = closure.New(topID, []*manifest.Manifest{top})
	var missingDep *deckerr.MissingDependency
	if !errors.As(err, &missingDep) {
		t.Fatalf("New() error = %v, want *deckerr.MissingDependency", err)
	}
}

func TestNewAcceptsSoundClosure(t *testing.T) {
	leaf := mustFinish(t, manifest.NewBuilder("leaf", "1.0.0", hash.Random()))
	leafID := mustID(t, leaf)

	top := mustFinish(t, manifest.NewBuilder("top", "1.0.0", hash.Random()).Dependency(leafID))
	topID := mustID(t, top)

	c, err := closure.New(topID, []*manifest.Manifest{top, leaf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if c.Target() != topID {
		t.Fatalf("Target() = %v, want %v", c.Target(), topID)
	}

	subs := c.DependentClosures()
	if len(subs) != 1 {
		t.Fatalf("DependentClosures() returned %d entries, want 1", len(subs))
	}
	if subs[0].Target() != leafID {
		t.Fatalf("sub-closure target = %v, want %v", subs[0].Target(), leafID)
	}
	if subs[0].TargetManifest() == nil {
		t.Fatal("sub-closure has no target manifest")
	}
}

func TestNewAcceptsValidOutputReference(t *testing.T) {
	leaf := mustFinish(t, manifest.NewBuilder("leaf", "1.0.0", hash.Random()))
	leafID := mustID(t, leaf)
	leafOutputID, err := id.NewOutputID("leaf", "1.0.0", "", leaf.Outputs()[0].PrecomputedHash)
	if err != nil {
		t.Fatalf("NewOutputID: %v", err)
	}

	top := mustFinish(t, manifest.NewBuilder("top", "1.0.0", hash.Random()).
		Dependency(leafID).
		Output("extra", hash.Random(), []id.OutputID{leafOutputID}))
	topID := mustID(t, top)

	if _, err := closure.New(topID, []*manifest.Manifest{top, leaf}); err != nil {
		t.Fatalf("New: %v", err)
	}
}
