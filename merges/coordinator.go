package merges

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/astmerge/findmerges/vcs"
)

var discard = log.New(io.Discard)

// Stats counts what a Coordinator has done.
type Stats struct {
	Branches        int // branches given to Run
	DistinctTips    int // branches left after Dedupe
	SampledBranches int // branches whose merges were capped
	Merges          int // records emitted
	Duplicates      int // merges skipped because another branch claimed them
}

// A Coordinator mines the merges of one repository.
type Coordinator struct {
	Repo vcs.Repository

	// Cap is the maximum number of merges taken from each branch; 0
	// means no limit. Seed seeds the sampling.
	Cap  int
	Seed int64

	Logger *log.Logger // optional

	Stats Stats
}

// Run emits a Record for every merge reachable from branches that is not
// already in ledger. Branches are deduplicated by tip and visited in
// order, so the first branch that reaches a merge claims it. The merge
// base of a claimed merge does not depend on the branch.
//
// Run stops at the first error, including an error from emit.
func (c *Coordinator) Run(ctx context.Context, branches []*vcs.Branch, ledger *Ledger, emit func(Record) error) error {
	logger := c.Logger
	if logger == nil {
		logger = discard
	}

	c.Stats.Branches += len(branches)
	branches, err := Dedupe(branches)
	if err != nil {
		return err
	}
	c.Stats.DistinctTips += len(branches)

	for _, b := range branches {
		if err := ctx.Err(); err != nil {
			return err
		}

		candidates, sampled, err := Enumerate(c.Repo, b.Head, c.Cap, c.Seed)
		if err != nil {
			return fmt.Errorf("branch %s: %w", b.Name, err)
		}
		if sampled {
			c.Stats.SampledBranches++
			logger.Info("selecting a sample of merges", "n", len(candidates), "branch", b.Name)
		}

		for _, m := range candidates {
			if !ledger.Claim(m.ID) {
				c.Stats.Duplicates++
				continue
			}
			p1, p2 := m.Parents[0], m.Parents[1]
			base, note, err := MergeBase(ctx, c.Repo, p1, p2)
			if err != nil {
				return &MergeError{Branch: b.Name, Merge: m.ID, Err: err}
			}
			rec := Record{
				Index:   ledger.Next(),
				Branch:  b.Name,
				Merge:   m.ID,
				Parent1: p1,
				Parent2: p2,
				Base:    base,
				Note:    note,
			}
			logger.Debug("merge", "branch", b.Name, "merge", m.ID.Short(), "base", base.Short(), "note", note)
			if err := emit(rec); err != nil {
				return err
			}
			c.Stats.Merges++
		}
		logger.Debug("branch done", "branch", b.Name, "merges", len(candidates))
	}
	return nil
}
