package manifest

import (
	"github.com/ebkalderon/deck/deckerr"
)

// SourceKind distinguishes the three source flavors a manifest may declare.
type SourceKind int

// Recognized SourceKind values.
const (
	SourceKindURI SourceKind = iota
	SourceKindGit
	SourceKindPath
)

// Source is one entry of a manifest's `[[source]]` table: a URI download, a
// git checkout, or a local path, each carrying (except Git) an expected
// hash.
type Source struct {
	URI  string `toml:"uri,omitempty"`
	Git  bool   `toml:"git,omitempty"`
	Path string `toml:"path,omitempty"`
	Hash string `toml:"hash,omitempty"`
}

// Kind reports which of the three source flavors this entry represents,
// validating that exactly one of uri/git/path was set.
func (s Source) Kind() (SourceKind, error) {
	set := 0
	var kind SourceKind

	if s.URI != "" {
		set++
		kind = SourceKindURI
	}
	if s.Git {
		set++
		kind = SourceKindGit
	}
	if s.Path != "" {
		set++
		kind = SourceKindPath
	}

	if set != 1 {
		return 0, &deckerr.InvalidManifest{Reason: "source entry must set exactly one of uri, git, or path"}
	}

	return kind, nil
}

// NewURISource builds a URI-flavored source.
func NewURISource(uri, hash string) Source {
	return Source{URI: uri, Hash: hash}
}

// NewGitSource builds a git-flavored source. Content-addressed checkout of
// git sources is a future refinement (spec.md §4.4); the scheduler treats
// it as a single terminal Blocked event.
func NewGitSource() Source {
	return Source{Git: true}
}

// NewPathSource builds a local-path-flavored source.
func NewPathSource(path, hash string) Source {
	return Source{Path: path, Hash: hash}
}

// Sources is the ordered `[[source]]` table of a manifest.
type Sources []Source
