package testing

import (
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/astmerge/findmerges/vcs"
)

// Graph is an in-memory commit DAG that implements vcs.Repository. Each
// added commit gets a committer date one minute after the previous one,
// so walks list later-added commits first.
//
// A Graph must not be modified while it is being read.
type Graph struct {
	commits  map[vcs.CommitID]*vcs.Commit
	branches map[string]vcs.CommitID
	clock    time.Time

	getCommitCalls atomic.Int64
}

var _ interface {
	vcs.Repository
	vcs.RevisionResolver
	vcs.Walker
} = (*Graph)(nil)

func NewGraph() *Graph {
	return &Graph{
		commits:  map[vcs.CommitID]*vcs.Commit{},
		branches: map[string]vcs.CommitID{},
		clock:    time.Date(2006, 1, 2, 15, 4, 5, 0, time.UTC),
	}
}

// Commit adds a commit with the given parents and returns g. The parents
// need not have been added, which models a repository with missing
// objects.
func (g *Graph) Commit(id vcs.CommitID, parents ...vcs.CommitID) *Graph {
	g.clock = g.clock.Add(time.Minute)
	sig := vcs.Signature{Name: "a", Email: "a@a.com", Date: g.clock}
	g.commits[id] = &vcs.Commit{
		ID:        id,
		Author:    sig,
		Committer: &sig,
		Message:   string(id),
		Parents:   parents,
	}
	return g
}

// CommitAt is like Commit but with an explicit committer date, to model
// clock skew.
func (g *Graph) CommitAt(id vcs.CommitID, date time.Time, parents ...vcs.CommitID) *Graph {
	g.Commit(id, parents...)
	c := g.commits[id]
	c.Author.Date = date
	c.Committer.Date = date
	return g
}

// Branch points the named branch at head and returns g.
func (g *Graph) Branch(name string, head vcs.CommitID) *Graph {
	g.branches[name] = head
	return g
}

// Remove deletes a commit object, leaving references to it dangling.
func (g *Graph) Remove(id vcs.CommitID) *Graph {
	delete(g.commits, id)
	return g
}

// GetCommitCalls returns how many times GetCommit was called.
func (g *Graph) GetCommitCalls() int64 { return g.getCommitCalls.Load() }

func (g *Graph) Branches(vcs.BranchesOptions) ([]*vcs.Branch, error) {
	bs := make([]*vcs.Branch, 0, len(g.branches))
	for name, head := range g.branches {
		bs = append(bs, &vcs.Branch{Name: name, Head: head})
	}
	sort.Sort(vcs.Branches(bs))
	return bs, nil
}

func (g *Graph) GetCommit(id vcs.CommitID) (*vcs.Commit, error) {
	g.getCommitCalls.Add(1)
	c, ok := g.commits[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", vcs.ErrCommitNotFound, id)
	}
	return c, nil
}

func (g *Graph) Commits(opt vcs.CommitsOptions) ([]*vcs.Commit, uint, error) {
	return g.WalkCommits(g, opt)
}

// WalkCommits implements vcs.Walker.
func (g *Graph) WalkCommits(cg vcs.CommitGetter, opt vcs.CommitsOptions) ([]*vcs.Commit, uint, error) {
	return vcs.WalkCommits(cg, opt)
}

func (g *Graph) ResolveRevision(spec string) (vcs.CommitID, error) {
	if head, ok := g.branches[spec]; ok {
		return head, nil
	}
	if _, ok := g.commits[vcs.CommitID(spec)]; ok {
		return vcs.CommitID(spec), nil
	}
	return "", vcs.ErrRevisionNotFound
}
