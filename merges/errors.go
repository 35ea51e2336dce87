package merges

import (
	"fmt"

	"github.com/astmerge/findmerges/vcs"
)

// A GraphAccessError means the object store could not produce the
// history of Commit: the commit or one of its ancestors is missing, or
// the backend returned an inconsistent ancestor list. It is fatal to the
// repository being mined.
type GraphAccessError struct {
	Commit vcs.CommitID
	Err    error
}

func (e *GraphAccessError) Error() string {
	return fmt.Sprintf("reading history of %s: %s", e.Commit, e.Err)
}

func (e *GraphAccessError) Unwrap() error { return e.Err }

// An IdenticalParentsError is returned when a merge base is requested
// for a commit and itself.
type IdenticalParentsError struct {
	Commit vcs.CommitID
}

func (e *IdenticalParentsError) Error() string {
	return fmt.Sprintf("merge base of %s with itself", e.Commit)
}

// An EqualHistoriesError is returned when two distinct parents have
// histories that never diverge, which no consistent commit graph
// produces.
type EqualHistoriesError struct {
	Parent1, Parent2 vcs.CommitID
}

func (e *EqualHistoriesError) Error() string {
	return fmt.Sprintf("histories of %s and %s are equal", e.Parent1, e.Parent2)
}

// An InvalidBranchError is returned for a branch with no tip commit.
type InvalidBranchError struct {
	Name string
}

func (e *InvalidBranchError) Error() string {
	return fmt.Sprintf("branch %q has no tip commit", e.Name)
}

// A MergeError attaches the merge commit being classified to a failure
// resolving its merge base.
type MergeError struct {
	Branch string
	Merge  vcs.CommitID
	Err    error
}

func (e *MergeError) Error() string {
	return fmt.Sprintf("merge %s on %s: %s", e.Merge, e.Branch, e.Err)
}

func (e *MergeError) Unwrap() error { return e.Err }
