package vcs

import (
	"container/heap"
	"fmt"
)

// A CommitGetter resolves commit IDs to commits.
type CommitGetter interface {
	GetCommit(CommitID) (*Commit, error)
}

// A Walker is a repository whose Commits is a Walk over its own
// GetCommit. WalkCommits walks through g instead, so that a wrapper such
// as a commit cache can serve the reads.
type Walker interface {
	WalkCommits(g CommitGetter, opt CommitsOptions) ([]*Commit, uint, error)
}

// Walk returns head and all of its ancestors, each exactly once, newest
// first. A commit is never returned before any of its descendants. Among
// commits whose descendants have all been returned, the one with the
// latest committer date comes first and ties go to the lower commit ID,
// so the order is fixed for a fixed graph whichever backend reads it.
//
// Walk is for backends that cannot list ancestors in bulk.
func Walk(g CommitGetter, head CommitID) ([]*Commit, error) {
	commits := map[CommitID]*Commit{}
	stack := []CommitID{head}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, seen := commits[id]; seen {
			continue
		}
		c, err := g.GetCommit(id)
		if err != nil {
			return nil, fmt.Errorf("walk %s: commit %s: %w", head, id, err)
		}
		commits[id] = c
		for _, p := range c.Parents {
			if _, seen := commits[p]; !seen {
				stack = append(stack, p)
			}
		}
	}
	return order(head, commits)
}

// Order returns commits, which must be head and all of its ancestors in
// any order, in the order Walk returns them. Backends that list
// ancestors in bulk use it so that they agree with Walk.
func Order(head CommitID, commits []*Commit) ([]*Commit, error) {
	byID := make(map[CommitID]*Commit, len(commits))
	for _, c := range commits {
		byID[c.ID] = c
	}
	return order(head, byID)
}

func order(head CommitID, commits map[CommitID]*Commit) ([]*Commit, error) {
	// Count for each commit how many of its children are in the set.
	pending := make(map[CommitID]int, len(commits))
	for _, c := range commits {
		for _, p := range c.Parents {
			pending[p]++
		}
	}
	top, ok := commits[head]
	if !ok {
		return nil, fmt.Errorf("walk %s: %w", head, ErrCommitNotFound)
	}
	if pending[head] != 0 {
		return nil, fmt.Errorf("walk %s: the head has %d children among the commits (a cycle, or descendants listed)", head, pending[head])
	}

	ready := &byCommitterDate{top}
	walked := make([]*Commit, 0, len(commits))
	for ready.Len() > 0 {
		c := heap.Pop(ready).(*Commit)
		walked = append(walked, c)
		for _, p := range c.Parents {
			pending[p]--
			if pending[p] > 0 {
				continue
			}
			pc, ok := commits[p]
			if !ok {
				return nil, fmt.Errorf("walk %s: commit %s: %w", head, p, ErrCommitNotFound)
			}
			heap.Push(ready, pc)
		}
	}
	if len(walked) != len(commits) {
		return nil, fmt.Errorf("walk %s: %d of %d commits ordered (a cycle, or commits that are not ancestors)", head, len(walked), len(commits))
	}
	return walked, nil
}

// WalkCommits implements (Repository).Commits on top of Walk.
func WalkCommits(g CommitGetter, opt CommitsOptions) ([]*Commit, uint, error) {
	commits, err := Walk(g, opt.Head)
	if err != nil {
		return nil, 0, err
	}
	return LimitCommits(commits, opt), uint(len(commits)), nil
}

// LimitCommits applies the N and Skip options to a full ancestor list.
func LimitCommits(commits []*Commit, opt CommitsOptions) []*Commit {
	if opt.Skip >= uint(len(commits)) {
		return nil
	}
	commits = commits[opt.Skip:]
	if opt.N != 0 && opt.N < uint(len(commits)) {
		commits = commits[:opt.N]
	}
	return commits
}

// byCommitterDate is a heap of commits, newest committer date on top.
type byCommitterDate []*Commit

func (h byCommitterDate) Len() int { return len(h) }
func (h byCommitterDate) Less(i, j int) bool {
	di, dj := h[i].committerDate(), h[j].committerDate()
	if !di.Equal(dj) {
		return di.After(dj)
	}
	return h[i].ID < h[j].ID
}
func (h byCommitterDate) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *byCommitterDate) Push(x interface{}) { *h = append(*h, x.(*Commit)) }

func (h *byCommitterDate) Pop() interface{} {
	old := *h
	n := len(old)
	c := old[n-1]
	*h = old[:n-1]
	return c
}
