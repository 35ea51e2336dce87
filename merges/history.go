package merges

import (
	"fmt"

	"github.com/astmerge/findmerges/vcs"
)

// History returns id and all of its ancestors, newest first, each
// exactly once, in the backend's reverse-topological order.
//
// Any failure, including a backend that returns an ancestor list not
// headed by id or with repeats, is a *GraphAccessError.
func History(repo vcs.Repository, id vcs.CommitID) ([]*vcs.Commit, error) {
	commits, _, err := repo.Commits(vcs.CommitsOptions{Head: id})
	if err != nil {
		return nil, &GraphAccessError{Commit: id, Err: err}
	}
	if len(commits) == 0 || commits[0].ID != id {
		return nil, &GraphAccessError{Commit: id, Err: fmt.Errorf("ancestor list does not start at %s", id)}
	}
	seen := make(map[vcs.CommitID]struct{}, len(commits))
	for _, c := range commits {
		if _, dup := seen[c.ID]; dup {
			return nil, &GraphAccessError{Commit: id, Err: fmt.Errorf("ancestor %s listed twice", c.ID)}
		}
		seen[c.ID] = struct{}{}
	}
	return commits, nil
}
