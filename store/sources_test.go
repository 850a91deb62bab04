package store_test

import (
	"context"
	"testing"

	"github.com/ebkalderon/deck/store"
)

func TestSourcesWriteThenRead(t *testing.T) {
	dir := newTestDir()
	adapter := store.NewSources(dir)
	ctx := context.Background()

	content := []byte("archive bytes")
	sid, existed, err := adapter.Write(ctx, "hello-1.0.0.tar.gz", content)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if existed {
		t.Fatal("Write reported existed=true on first write")
	}

	got, err := adapter.Read(ctx, sid)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Fatalf("Read = %q, want %q", got, content)
	}
}

func TestSourcesComputeIDMatchesWrittenID(t *testing.T) {
	dir := newTestDir()
	adapter := store.NewSources(dir)
	ctx := context.Background()

	sid, _, err := adapter.Write(ctx, "file.txt", []byte("payload"))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	recomputed, err := adapter.ComputeID(ctx, sid)
	if err != nil {
		t.Fatalf("ComputeID: %v", err)
	}
	if recomputed != sid {
		t.Fatalf("ComputeID = %v, want %v", recomputed, sid)
	}
}

func TestSourcesContains(t *testing.T) {
	dir := newTestDir()
	adapter := store.NewSources(dir)
	ctx := context.Background()

	sid, err := adapter.PrecomputeID("file.txt", []byte("payload"))
	if err != nil {
		t.Fatalf("PrecomputeID: %v", err)
	}

	if ok, err := adapter.Contains(ctx, sid); err != nil || ok {
		t.Fatalf("Contains before write = %v, %v, want false, nil", ok, err)
	}

	if _, _, err := adapter.Write(ctx, "file.txt", []byte("payload")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	if ok, err := adapter.Contains(ctx, sid); err != nil || !ok {
		t.Fatalf("Contains after write = %v, %v, want true, nil", ok, err)
	}
}
