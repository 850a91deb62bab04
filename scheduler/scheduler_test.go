package scheduler_test

import (
	"context"
	"testing"

	"github.com/ebkalderon/deck/cache"
	"github.com/ebkalderon/deck/hash"
	"github.com/ebkalderon/deck/manifest"
	"github.com/ebkalderon/deck/repository"
	"github.com/ebkalderon/deck/scheduler"
	"github.com/ebkalderon/deck/storagedriver/memory"
	"github.com/ebkalderon/deck/store"
)

func parseManifest(t *testing.T, toml string) *manifest.Manifest {
	t.Helper()
	m, err := manifest.Parse(toml)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return m
}

func leafManifestTOML(name string) string {
	h := hash.FromBytes([]byte("output-of-" + name))
	return "[package]\n" +
		"name = \"" + name + "\"\n" +
		"version = \"1.0.0\"\n" +
		"\n" +
		"[[output]]\n" +
		"precomputed-hash = \"" + h.String() + "\"\n"
}

func TestSchedulerBuildsSimpleClosure(t *testing.T) {
	dir := store.New(memory.New(), store.NewMemLocker())

	var built []string
	build := func(ctx context.Context, m *manifest.Manifest, emit scheduler.Emit) (map[string]store.Tree, error) {
		built = append(built, m.Name().String())
		return map[string]store.Tree{"": {"bin/out": []byte("built-" + m.Name().String())}}, nil
	}

	s := scheduler.New(dir, build)

	leaf := parseManifest(t, leafManifestTOML("leaf"))
	leafID, _, err := store.NewManifests(dir).Write(context.Background(), leaf)
	if err != nil {
		t.Fatalf("write leaf manifest: %v", err)
	}

	rootTOML := "[package]\n" +
		"name = \"root\"\n" +
		"version = \"1.0.0\"\n" +
		"dependencies = [\"" + leafID.String() + "\"]\n" +
		"\n" +
		"[[output]]\n" +
		"precomputed-hash = \"" + hash.FromBytes([]byte("output-of-root")).String() + "\"\n"
	root := parseManifest(t, rootTOML)
	rootID, _, err := store.NewManifests(dir).Write(context.Background(), root)
	if err != nil {
		t.Fatalf("write root manifest: %v", err)
	}

	var events []scheduler.Progress
	err = s.Build(context.Background(), rootID, func(p scheduler.Progress) {
		events = append(events, p)
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if len(built) != 2 {
		t.Fatalf("built = %v, want both leaf and root built", built)
	}
	if len(events) == 0 {
		t.Fatal("Build produced no progress events")
	}

	outputs := store.NewOutputs(dir)
	rootOIDs, err := root.OutputIDs()
	if err != nil {
		t.Fatalf("OutputIDs: %v", err)
	}
	if ok, err := outputs.Contains(context.Background(), rootOIDs[0]); err != nil || !ok {
		t.Fatalf("root output installed = %v, %v, want true, nil", ok, err)
	}
}

func TestSchedulerMemoizesSharedDependency(t *testing.T) {
	dir := store.New(memory.New(), store.NewMemLocker())

	calls := make(chan string, 10)
	build := func(ctx context.Context, m *manifest.Manifest, emit scheduler.Emit) (map[string]store.Tree, error) {
		calls <- m.Name().String()
		return map[string]store.Tree{"": {"bin/out": []byte("built")}}, nil
	}

	s := scheduler.New(dir, build)
	manifests := store.NewManifests(dir)

	shared := parseManifest(t, leafManifestTOML("shared"))
	sharedID, _, err := manifests.Write(context.Background(), shared)
	if err != nil {
		t.Fatalf("write shared manifest: %v", err)
	}

	midTOML := "[package]\n" +
		"name = \"mid\"\n" +
		"version = \"1.0.0\"\n" +
		"dependencies = [\"" + sharedID.String() + "\"]\n" +
		"\n" +
		"[[output]]\n" +
		"precomputed-hash = \"" + hash.FromBytes([]byte("output-of-mid")).String() + "\"\n"
	mid := parseManifest(t, midTOML)
	midID, _, err := manifests.Write(context.Background(), mid)
	if err != nil {
		t.Fatalf("write mid manifest: %v", err)
	}

	rootTOML := "[package]\n" +
		"name = \"top\"\n" +
		"version = \"1.0.0\"\n" +
		"dependencies = [\"" + sharedID.String() + "\", \"" + midID.String() + "\"]\n" +
		"\n" +
		"[[output]]\n" +
		"precomputed-hash = \"" + hash.FromBytes([]byte("output-of-top")).String() + "\"\n"
	root := parseManifest(t, rootTOML)
	rootID, _, err := manifests.Write(context.Background(), root)
	if err != nil {
		t.Fatalf("write root manifest: %v", err)
	}

	if err := s.Build(context.Background(), rootID, func(scheduler.Progress) {}); err != nil {
		t.Fatalf("Build: %v", err)
	}

	close(calls)
	seen := make(map[string]int)
	for name := range calls {
		seen[name]++
	}
	if seen["shared"] != 1 {
		t.Fatalf("shared dependency built %d times, want exactly 1", seen["shared"])
	}
}

func TestSchedulerResolvesManifestFromRepository(t *testing.T) {
	dir := store.New(memory.New(), store.NewMemLocker())

	var built []string
	build := func(ctx context.Context, m *manifest.Manifest, emit scheduler.Emit) (map[string]store.Tree, error) {
		built = append(built, m.Name().String())
		return map[string]store.Tree{"": {"bin/out": []byte("built")}}, nil
	}

	s := scheduler.New(dir, build)
	repo := repository.NewLocal()
	s.AddRepository(repo)

	remote := parseManifest(t, leafManifestTOML("remote"))
	remoteID, err := remote.ID()
	if err != nil {
		t.Fatalf("ID: %v", err)
	}
	repo.Put(remoteID, remote)

	if err := s.Build(context.Background(), remoteID, func(scheduler.Progress) {}); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(built) != 1 || built[0] != "remote" {
		t.Fatalf("built = %v, want [remote]", built)
	}
}

func TestSchedulerSubstitutesFromBinaryCache(t *testing.T) {
	dir := store.New(memory.New(), store.NewMemLocker())

	build := func(ctx context.Context, m *manifest.Manifest, emit scheduler.Emit) (map[string]store.Tree, error) {
		t.Fatalf("build invoked for %s, want substitution from binary cache instead", m.Name())
		return nil, nil
	}

	s := scheduler.New(dir, build)
	bc := cache.NewLocal()
	s.AddBinaryCache(bc)

	pkg := parseManifest(t, leafManifestTOML("cached"))
	pkgID, err := pkg.ID()
	if err != nil {
		t.Fatalf("ID: %v", err)
	}
	if _, _, err := store.NewManifests(dir).Write(context.Background(), pkg); err != nil {
		t.Fatalf("write manifest: %v", err)
	}

	oids, err := pkg.OutputIDs()
	if err != nil {
		t.Fatalf("OutputIDs: %v", err)
	}
	bc.Put(oids[0], []byte("output-of-cached"))

	var finished *scheduler.Finished
	err = s.Build(context.Background(), pkgID, func(p scheduler.Progress) {
		if p.Kind == scheduler.KindFinished {
			finished = p.Finished
		}
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if finished == nil || finished.Status != scheduler.FinalDownloaded {
		t.Fatalf("final status = %v, want FinalDownloaded", finished)
	}
}

func namedOutputManifestTOML(name string) string {
	defaultHash := hash.FromBytes([]byte("default-of-" + name))
	extraHash := hash.FromBytes([]byte("extra-of-" + name))
	return "[package]\n" +
		"name = \"" + name + "\"\n" +
		"version = \"1.0.0\"\n" +
		"\n" +
		"[[output]]\n" +
		"precomputed-hash = \"" + defaultHash.String() + "\"\n" +
		"\n" +
		"[[output]]\n" +
		"name = \"extra\"\n" +
		"precomputed-hash = \"" + extraHash.String() + "\"\n"
}

func TestSchedulerBuildsEveryNamedOutput(t *testing.T) {
	dir := store.New(memory.New(), store.NewMemLocker())

	build := func(ctx context.Context, m *manifest.Manifest, emit scheduler.Emit) (map[string]store.Tree, error) {
		return map[string]store.Tree{
			"":      {"bin/out": []byte("default")},
			"extra": {"share/extra": []byte("extra")},
		}, nil
	}

	s := scheduler.New(dir, build)

	pkg := parseManifest(t, namedOutputManifestTOML("multi"))
	pkgID, _, err := store.NewManifests(dir).Write(context.Background(), pkg)
	if err != nil {
		t.Fatalf("write manifest: %v", err)
	}

	if err := s.Build(context.Background(), pkgID, func(scheduler.Progress) {}); err != nil {
		t.Fatalf("Build: %v", err)
	}

	oids, err := pkg.OutputIDs()
	if err != nil {
		t.Fatalf("OutputIDs: %v", err)
	}
	outputs := store.NewOutputs(dir)
	for _, oid := range oids {
		if ok, err := outputs.Contains(context.Background(), oid); err != nil || !ok {
			t.Fatalf("output %s installed = %v, %v, want true, nil", oid, ok, err)
		}
	}
}

func TestSchedulerSubstitutionRequiresEveryOutputFromCache(t *testing.T) {
	dir := store.New(memory.New(), store.NewMemLocker())

	var built []string
	build := func(ctx context.Context, m *manifest.Manifest, emit scheduler.Emit) (map[string]store.Tree, error) {
		built = append(built, m.Name().String())
		return map[string]store.Tree{
			"":      {"bin/out": []byte("default")},
			"extra": {"share/extra": []byte("extra")},
		}, nil
	}

	s := scheduler.New(dir, build)
	bc := cache.NewLocal()
	s.AddBinaryCache(bc)

	pkg := parseManifest(t, namedOutputManifestTOML("partial"))
	pkgID, _, err := store.NewManifests(dir).Write(context.Background(), pkg)
	if err != nil {
		t.Fatalf("write manifest: %v", err)
	}

	oids, err := pkg.OutputIDs()
	if err != nil {
		t.Fatalf("OutputIDs: %v", err)
	}

	// Only the default output is available from the cache; the named
	// "extra" output is not, so substitution must not apply and the build
	// must run to produce both outputs.
	for _, oid := range oids {
		if oid.Slot == "" {
			bc.Put(oid, []byte("output-of-partial-default"))
		}
	}

	if err := s.Build(context.Background(), pkgID, func(scheduler.Progress) {}); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(built) != 1 {
		t.Fatalf("built = %v, want exactly one build since substitution was only partially available", built)
	}
}
