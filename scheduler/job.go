package scheduler

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/ebkalderon/deck/cache"
	"github.com/ebkalderon/deck/deckerr"
	"github.com/ebkalderon/deck/hash"
	"github.com/ebkalderon/deck/id"
	"github.com/ebkalderon/deck/manifest"
	"github.com/ebkalderon/deck/store"
)

// Emit delivers one Progress event for a build. Jobs call it as they make
// progress, possibly from several goroutines at once. Scheduler.Build hands
// its caller's Emit to every job unchanged; deck.Store.BuildManifest is what
// turns those calls into one channel.
type Emit func(Progress)

// fetchSource implements the FetchSource(Uri|Git|Path) job state machines
// of spec.md §4.4.
func fetchSource(ctx context.Context, target id.ManifestID, src manifest.Source, sources *store.Sources, emit Emit) error {
	kind, err := src.Kind()
	if err != nil {
		return err
	}

	switch kind {
	case manifest.SourceKindGit:
		emit(Progress{Kind: KindBlocked, Package: target, Blocked: &Blocked{
			Description: "git checkout deferred to a future content-addressed refinement",
		}})
		return nil

	case manifest.SourceKindPath:
		emit(Progress{Kind: KindBlocked, Package: target, Blocked: &Blocked{
			Description: fmt.Sprintf("local source %s", src.Path),
		}})
		return nil

	default: // manifest.SourceKindURI
		return fetchURISource(ctx, target, src, sources, emit)
	}
}

func fetchURISource(ctx context.Context, target id.ManifestID, src manifest.Source, sources *store.Sources, emit Emit) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URI, nil)
	if err != nil {
		return err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var total *uint64
	if resp.ContentLength >= 0 {
		t := uint64(resp.ContentLength)
		total = &t
	}

	buf := make([]byte, 32*1024)
	var downloaded uint64
	var content []byte
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			content = append(content, buf[:n]...)
			downloaded += uint64(n)
			emit(Progress{Kind: KindDownloading, Package: target, Download: &Downloading{
				Source:          src.URI,
				DownloadedBytes: downloaded,
				TotalBytes:      total,
			}})
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return readErr
		}
	}

	if src.Hash != "" {
		h, err := hash.Parse(src.Hash)
		if err == nil && h != hash.FromBytes(content) {
			return fmt.Errorf("checksum mismatch fetching %s", src.URI)
		}
	}

	filename := filenameOf(src.URI)
	if _, _, err := sources.Write(ctx, filename, content); err != nil {
		return err
	}

	emit(Progress{Kind: KindBlocked, Package: target, Blocked: &Blocked{
		Description: fmt.Sprintf("downloaded %s", src.URI),
	}})
	return nil
}

func filenameOf(uri string) string {
	for i := len(uri) - 1; i >= 0; i-- {
		if uri[i] == '/' {
			return uri[i+1:]
		}
	}
	return uri
}

// fetchOutput implements the FetchOutput job: install one cached output
// into the store without building it. It emits only its own Installing
// progress; a manifest substituted wholesale from binary caches may fetch
// several outputs this way, so the terminal Finished event is the caller's
// responsibility, emitted once per manifest rather than once per output.
func fetchOutput(ctx context.Context, target id.ManifestID, oid id.OutputID, c cache.BinaryCache, outputs *store.Outputs, emit Emit) error {
	emit(Progress{Kind: KindInstalling, Package: target, Install: &Installing{
		Description: fmt.Sprintf("fetching %s from binary cache", oid),
	}})

	rc, err := c.Fetch(ctx, oid)
	if err != nil {
		return err
	}
	defer rc.Close()

	content, err := io.ReadAll(rc)
	if err != nil {
		return err
	}

	tree := store.Tree{"": content}
	if got := store.TreeHash(tree); got != oid.Hash {
		return &deckerr.ChecksumMismatch{Target: oid.String(), Expected: oid.Hash.String(), Actual: got.String()}
	}

	_, err = outputs.Write(ctx, oid, tree)
	return err
}

// Builder performs the actual build of m, within whatever sandbox the
// caller provides, reporting phase transitions via emit. It is the
// integration point spec.md §4.2 leaves for the builder sandbox; tests
// supply a stub, a real deployment supplies a process-isolation backend.
//
// The returned map holds one Tree per entry of m.Outputs(), keyed by the
// output's slot name (the empty string for the default output), since a
// manifest's named outputs are built together but installed as distinct
// trees.
type Builder func(ctx context.Context, m *manifest.Manifest, emit Emit) (map[string]store.Tree, error)

// buildManifest implements the BuildManifest job: drive build, emitting
// phase-transition progress, then install every output tree the build
// produced.
func buildManifest(ctx context.Context, target id.ManifestID, m *manifest.Manifest, build Builder, outputs *store.Outputs, emit Emit) error {
	phases := []BuildStatus{BuildStarted, BuildPreparing, BuildConfiguring, BuildCompiling, BuildTesting}
	for i, phase := range phases {
		emit(Progress{Kind: KindBuilding, Package: target, Build: &Building{
			Status:      phase,
			CurrentTask: uint32(i + 1),
			TotalTasks:  uint32(len(phases) + 1),
		}})
	}

	trees, err := build(ctx, m, emit)
	if err != nil {
		return err
	}

	emit(Progress{Kind: KindBuilding, Package: target, Build: &Building{
		Status:      BuildFinalizing,
		CurrentTask: uint32(len(phases) + 1),
		TotalTasks:  uint32(len(phases) + 1),
	}})

	oids, err := m.OutputIDs()
	if err != nil {
		return err
	}
	for _, oid := range oids {
		tree, ok := trees[oid.Slot]
		if !ok {
			return fmt.Errorf("build of %s did not produce output %s", target, oid)
		}
		if _, err := outputs.Write(ctx, oid, tree); err != nil {
			return err
		}
	}

	emit(Progress{Kind: KindFinished, Package: target, Finished: &Finished{Status: FinalBuilt}})
	return nil
}
