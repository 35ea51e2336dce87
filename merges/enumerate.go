package merges

import (
	"math/rand"

	"github.com/astmerge/findmerges/vcs"
)

// DefaultCap is the default maximum number of merges taken from one
// branch.
const DefaultCap = 2000

// Enumerate returns the two-parent commits in the history of tip, in
// history order.
//
// If there are more than limit of them (and limit > 0), the whole list is
// shuffled with a source seeded by seed and the first limit are kept, and
// sampled is true. The same graph and seed always give the same sample.
func Enumerate(repo vcs.Repository, tip vcs.CommitID, limit int, seed int64) (merges []*vcs.Commit, sampled bool, err error) {
	history, err := History(repo, tip)
	if err != nil {
		return nil, false, err
	}

	merges = []*vcs.Commit{}
	for _, c := range history {
		if c.IsMerge() {
			merges = append(merges, c)
		}
	}
	if limit <= 0 || len(merges) <= limit {
		return merges, false, nil
	}

	r := rand.New(rand.NewSource(seed))
	r.Shuffle(len(merges), func(i, j int) { merges[i], merges[j] = merges[j], merges[i] })
	return merges[:limit:limit], true, nil
}
