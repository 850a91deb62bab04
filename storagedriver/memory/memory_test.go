package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ebkalderon/deck/storagedriver"
	"github.com/ebkalderon/deck/storagedriver/memory"
)

func TestPutContentThenGetContentRoundTrips(t *testing.T) {
	d := memory.New()
	ctx := context.Background()

	if err := d.PutContent(ctx, "/manifests/foo.toml", []byte("hello")); err != nil {
		t.Fatalf("PutContent: %v", err)
	}

	got, err := d.GetContent(ctx, "/manifests/foo.toml")
	if err != nil {
		t.Fatalf("GetContent: %v", err)
	}
	if string(got) != "hello" {
		t.Fatalf("GetContent = %q, want %q", got, "hello")
	}
}

func TestGetContentMissingPathReturnsPathNotFoundError(t *testing.T) {
	d := memory.New()
	_, err := d.GetContent(context.Background(), "/missing")
	var notFound storagedriver.PathNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("GetContent error = %v, want storagedriver.PathNotFoundError", err)
	}
}

func TestListReturnsDirectDescendantsOnly(t *testing.T) {
	d := memory.New()
	ctx := context.Background()

	for _, p := range []string{"/outputs/a/x", "/outputs/b", "/outputs/a/y"} {
		if err := d.PutContent(ctx, p, []byte("x")); err != nil {
			t.Fatalf("PutContent(%s): %v", p, err)
		}
	}

	entries, err := d.List(ctx, "/outputs")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("List(/outputs) = %v, want 2 entries (a, b)", entries)
	}
}

func TestWriterCommitThenCancelIsNoop(t *testing.T) {
	d := memory.New()
	ctx := context.Background()

	w, err := d.Writer(ctx, "/tmp/x", false)
	if err != nil {
		t.Fatalf("Writer: %v", err)
	}
	if _, err := w.Write([]byte("data")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if err := w.Cancel(); err != nil {
		t.Fatalf("Cancel after Commit: %v", err)
	}

	got, err := d.GetContent(ctx, "/tmp/x")
	if err != nil {
		t.Fatalf("GetContent: %v", err)
	}
	if string(got) != "data" {
		t.Fatalf("GetContent = %q, want %q", got, "data")
	}
}

func TestMoveRemovesSourcePath(t *testing.T) {
	d := memory.New()
	ctx := context.Background()

	if err := d.PutContent(ctx, "/tmp/x", []byte("payload")); err != nil {
		t.Fatalf("PutContent: %v", err)
	}
	if err := d.Move(ctx, "/tmp/x", "/manifests/x.toml"); err != nil {
		t.Fatalf("Move: %v", err)
	}

	if _, err := d.GetContent(ctx, "/tmp/x"); err == nil {
		t.Fatal("source path still readable after Move")
	}
	if _, err := d.GetContent(ctx, "/manifests/x.toml"); err != nil {
		t.Fatalf("GetContent after Move: %v", err)
	}
}

func TestDeleteRemovesSubtree(t *testing.T) {
	d := memory.New()
	ctx := context.Background()

	if err := d.PutContent(ctx, "/outputs/foo/bin/a", []byte("1")); err != nil {
		t.Fatalf("PutContent: %v", err)
	}
	if err := d.PutContent(ctx, "/outputs/foo/bin/b", []byte("2")); err != nil {
		t.Fatalf("PutContent: %v", err)
	}

	if err := d.Delete(ctx, "/outputs/foo"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if _, err := d.GetContent(ctx, "/outputs/foo/bin/a"); err == nil {
		t.Fatal("expected subtree to be deleted")
	}
}
