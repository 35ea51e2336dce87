package merges

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/astmerge/findmerges/vcs"
)

// MergeBase returns a common ancestor of p1 and p2 and the resulting
// classification of a merge with those parents.
//
// If one parent is an ancestor of the other, it is the base. Otherwise
// both histories are put in oldest-first order and the last commit of
// their common leading run is the base; if they do not even share the
// first commit, the parents have unrelated roots and there is no base
// (NoteTwoInitialCommits).
//
// With criss-cross merges there is more than one lowest common ancestor.
// MergeBase returns whichever one the alignment of the two histories
// selects, which is a valid base but not necessarily the one git's
// merge-base would choose.
func MergeBase(ctx context.Context, repo vcs.Repository, p1, p2 vcs.CommitID) (vcs.CommitID, Note, error) {
	if p1 == p2 {
		return "", NoteNone, &IdenticalParentsError{Commit: p1}
	}

	var h1, h2 []*vcs.Commit
	var g errgroup.Group
	g.Go(func() (err error) {
		h1, err = History(repo, p1)
		return err
	})
	g.Go(func() (err error) {
		h2, err = History(repo, p2)
		return err
	})
	if err := g.Wait(); err != nil {
		return "", NoteNone, err
	}
	if err := ctx.Err(); err != nil {
		return "", NoteNone, err
	}

	return classify(p1, p2, h1, h2)
}

// classify picks the base of p1 and p2 from their histories h1 and h2.
func classify(p1, p2 vcs.CommitID, h1, h2 []*vcs.Commit) (vcs.CommitID, Note, error) {
	if contains(h1, p2) {
		return p2, NoteParentIsBase, nil
	}
	if contains(h2, p1) {
		return p1, NoteParentIsBase, nil
	}

	// Compare from the oldest end of each history.
	n1, n2 := len(h1), len(h2)
	prefix := -1
	for i := 0; i < min(n1, n2); i++ {
		if h1[n1-1-i].ID != h2[n2-1-i].ID {
			prefix = i
			break
		}
	}
	switch prefix {
	case 0:
		return "", NoteTwoInitialCommits, nil
	case -1:
		return "", NoteNone, &EqualHistoriesError{Parent1: p1, Parent2: p2}
	}

	base := h1[n1-prefix].ID
	if base == p1 || base == p2 {
		return base, NoteParentIsBase, nil
	}
	return base, NoteNone, nil
}

func contains(history []*vcs.Commit, id vcs.CommitID) bool {
	for _, c := range history {
		if c.ID == id {
			return true
		}
	}
	return false
}

// A Resolver computes merge bases in a repository. It implements
// vcs.Merger.
type Resolver struct {
	Repo vcs.Repository
}

var _ vcs.Merger = Resolver{}

// MergeBase returns the merge base of a and b, or "" if they have
// unrelated roots.
func (r Resolver) MergeBase(a, b vcs.CommitID) (vcs.CommitID, error) {
	base, _, err := MergeBase(context.Background(), r.Repo, a, b)
	return base, err
}
