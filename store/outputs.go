package store

import (
	"bytes"
	"context"
	"sort"

	"github.com/ebkalderon/deck/hash"
	"github.com/ebkalderon/deck/id"
)

// Tree is the payload of the outputs adapter: a built package's installed
// filesystem tree, as a set of paths relative to the tree's root mapped to
// their content. A real builder sandbox streams this from a process's
// output directory; this adapter only owns getting it in and out of the
// store (spec.md §4.2 leaves the sandbox itself as an integration point).
type Tree map[string][]byte

// TreeHash computes the content hash a Tree is expected to produce. A
// single entry keyed by the empty string (the shape fetchOutput installs a
// binary-cache payload as) hashes its content directly; a tree with real
// path structure hashes the sorted (path, content) pairs together, so the
// hash is independent of map iteration order.
func TreeHash(tree Tree) hash.Hash {
	if content, ok := tree[""]; ok && len(tree) == 1 {
		return hash.FromBytes(content)
	}

	paths := make([]string, 0, len(tree))
	for p := range tree {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var buf bytes.Buffer
	for _, p := range paths {
		buf.WriteString(p)
		buf.WriteByte(0)
		buf.Write(tree[p])
		buf.WriteByte(0)
	}
	return hash.FromBytes(buf.Bytes())
}

// Outputs is the outputs directory adapter (spec.md §4.2). Unlike
// manifests and sources, whose IDs are derived from their content, an
// output's ID is asserted up front: the builder declares the hash an output
// must produce (Manifest.Outputs' PrecomputedHash) before the build even
// runs, and installing a tree does not rehash it. ComputeID
// below exists purely for Store.Verify, which must re-check that assertion
// against what actually landed on disk.
type Outputs struct {
	dir *Dir
}

// NewOutputs wraps dir as an outputs adapter.
func NewOutputs(dir *Dir) *Outputs { return &Outputs{dir: dir} }

// Write installs tree under oid, returning existed=true if it was already
// present.
func (a *Outputs) Write(ctx context.Context, oid id.OutputID, tree Tree) (bool, error) {
	return a.dir.WriteTree(ctx, CategoryOutputs, oid.Path(), tree)
}

// Read retrieves the installed tree stored under oid.
func (a *Outputs) Read(ctx context.Context, oid id.OutputID) (Tree, error) {
	files, err := a.dir.ReadTree(ctx, CategoryOutputs, oid.Path())
	if err != nil {
		return nil, err
	}
	return Tree(files), nil
}

// ComputeID re-derives oid's expected hash from the tree installed on
// disk, used by Store.Verify to detect corruption: the stored tree is
// rehashed via TreeHash and the result must equal oid.Hash.
func (a *Outputs) ComputeID(ctx context.Context, oid id.OutputID) (id.OutputID, error) {
	tree, err := a.Read(ctx, oid)
	if err != nil {
		return id.OutputID{}, err
	}
	return id.NewOutputID(oid.Name.String(), oid.Version, oid.Slot, TreeHash(tree))
}

// Contains reports whether oid is already present.
func (a *Outputs) Contains(ctx context.Context, oid id.OutputID) (bool, error) {
	return a.dir.Contains(ctx, CategoryOutputs, oid.Path())
}
