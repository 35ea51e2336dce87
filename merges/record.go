package merges

import "github.com/astmerge/findmerges/vcs"

// A Note classifies the shape of a merge.
type Note string

const (
	// NoteNone marks an ordinary merge of two diverged lines.
	NoteNone Note = ""

	// NoteParentIsBase marks a merge whose base is one of its parents.
	NoteParentIsBase Note = "a parent is the base"

	// NoteTwoInitialCommits marks a merge of two histories that share no
	// root. Such merges have no base.
	NoteTwoInitialCommits Note = "two initial commits"
)

// A Record describes one merge commit found while mining a repository.
// Base is empty if the parents have no common ancestor.
type Record struct {
	Index   int
	Branch  string
	Merge   vcs.CommitID
	Parent1 vcs.CommitID
	Parent2 vcs.CommitID
	Base    vcs.CommitID
	Note    Note
}
