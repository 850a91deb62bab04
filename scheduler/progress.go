// Package scheduler builds and drives deck's build graph: jobs (FetchSource,
// FetchOutput, BuildManifest) joined into memoized build nodes, fanned into
// a single progress stream for the caller (spec.md §4.4, §5).
package scheduler

import "github.com/ebkalderon/deck/id"

// Progress is one event emitted by a running build. Exactly one of the
// named fields is meaningful, selected by Kind.
type Progress struct {
	Kind      ProgressKind
	Package   id.ManifestID
	Blocked   *Blocked
	Download  *Downloading
	Build     *Building
	Install   *Installing
	Finished  *Finished
}

// ProgressKind discriminates the variant held by a Progress event.
type ProgressKind int

// Recognized ProgressKind values, per spec.md §4.4.
const (
	KindBlocked ProgressKind = iota
	KindDownloading
	KindBuilding
	KindInstalling
	KindFinished
)

// Blocked marks a boundary where a job cannot make further progress inline,
// e.g. a fetch that must hand off to an external process.
type Blocked struct {
	Description string
}

// Downloading reports incremental FetchSource(Uri) progress.
type Downloading struct {
	Source          string
	DownloadedBytes uint64
	TotalBytes      *uint64
}

// BuildStatus is one phase of a BuildManifest job.
type BuildStatus int

// Recognized BuildStatus values.
const (
	BuildStarted BuildStatus = iota
	BuildPreparing
	BuildConfiguring
	BuildCompiling
	BuildTesting
	BuildFinalizing
)

// Building reports one phase transition of a BuildManifest job.
type Building struct {
	Status      BuildStatus
	CurrentTask uint32
	TotalTasks  uint32
	Description string
	Stdout      []byte
	Stderr      []byte
}

// Installing reports an output being installed into the store.
type Installing struct {
	Description string
}

// FinalStatus reports how a build node ultimately completed.
type FinalStatus int

// Recognized FinalStatus values.
const (
	FinalMemoized FinalStatus = iota
	FinalReinstalled
	FinalDownloaded
	FinalBuilt
)

// Finished marks the terminal event of a build node.
type Finished struct {
	Status FinalStatus
}
