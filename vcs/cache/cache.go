// Package cache memoizes reads of immutable objects (commits and the
// ancestor lists derived from them) from a vcs.Repository.
//
// Branch lists are mutable and are always read from the underlying
// repository.
package cache

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/astmerge/findmerges/vcs"
)

// DefaultSize is the default number of cached ancestor lists.
const DefaultSize = 4096

// CommitsPerHistory is how many commits are cached per cached ancestor
// list.
const CommitsPerHistory = 256

type history struct {
	commits []*vcs.Commit
	total   uint
}

// Repository wraps a vcs.Repository with LRU caches for GetCommit and
// Commits. It is safe for concurrent use if the underlying repository
// is.
type Repository struct {
	vcs.Repository

	commits   *lru.Cache[vcs.CommitID, *vcs.Commit]
	histories *lru.Cache[vcs.CommitsOptions, history]
}

// Wrap returns r with its immutable reads cached. At most size ancestor
// lists and size*CommitsPerHistory commits are kept; size <= 0 means
// DefaultSize.
func Wrap(r vcs.Repository, size int) (*Repository, error) {
	if size <= 0 {
		size = DefaultSize
	}
	commits, err := lru.New[vcs.CommitID, *vcs.Commit](size * CommitsPerHistory)
	if err != nil {
		return nil, err
	}
	histories, err := lru.New[vcs.CommitsOptions, history](size)
	if err != nil {
		return nil, err
	}
	return &Repository{Repository: r, commits: commits, histories: histories}, nil
}

func (r *Repository) GetCommit(id vcs.CommitID) (*vcs.Commit, error) {
	if c, ok := r.commits.Get(id); ok {
		return c, nil
	}
	c, err := r.Repository.GetCommit(id)
	if err != nil {
		return nil, err
	}
	r.commits.Add(id, c)
	return c, nil
}

// Commits returns the cached ancestor list for opt, computing it on a
// miss. If the underlying repository is a vcs.Walker, the walk reads
// commits through r, so histories that share ancestors share their
// reads. Failures are not cached. The returned slice is shared and must
// not be modified.
func (r *Repository) Commits(opt vcs.CommitsOptions) ([]*vcs.Commit, uint, error) {
	if h, ok := r.histories.Get(opt); ok {
		return h.commits, h.total, nil
	}
	var (
		commits []*vcs.Commit
		total   uint
		err     error
	)
	if w, ok := r.Repository.(vcs.Walker); ok {
		commits, total, err = w.WalkCommits(r, opt)
	} else {
		commits, total, err = r.Repository.Commits(opt)
	}
	if err != nil {
		return nil, 0, err
	}
	r.histories.Add(opt, history{commits: commits, total: total})
	return commits, total, nil
}

// Stats reports the number of cached commits and ancestor lists.
func (r *Repository) Stats() (commits, histories int) {
	return r.commits.Len(), r.histories.Len()
}
