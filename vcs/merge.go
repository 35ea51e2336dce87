package vcs

// A Merger is a repository that can find the merge base of two commits.
type Merger interface {
	// MergeBase returns a common ancestor of a and b from which both
	// diverged, or "" if their histories share no root.
	MergeBase(a, b CommitID) (CommitID, error)
}
