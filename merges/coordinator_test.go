package merges

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astmerge/findmerges/vcs"
	vcstesting "github.com/astmerge/findmerges/vcs/testing"
)

// sharedMerges returns
//
//	R---A---M1---B---M2   master
//	 \     /  \     /
//	  C----    D----      feature (D)
func sharedMerges() *vcstesting.Graph {
	return vcstesting.NewGraph().
		Commit("R").Commit("A", "R").Commit("C", "R").Commit("M1", "A", "C").
		Commit("B", "M1").Commit("D", "M1").Commit("M2", "B", "D").
		Branch("refs/heads/master", "M2").
		Branch("refs/heads/feature", "D").
		Branch("refs/heads/copy-of-master", "M2")
}

func run(t *testing.T, c *Coordinator, branches []*vcs.Branch) []Record {
	t.Helper()
	var recs []Record
	err := c.Run(context.Background(), branches, &Ledger{}, func(r Record) error {
		recs = append(recs, r)
		return nil
	})
	require.NoError(t, err)
	return recs
}

func TestCoordinator_Run(t *testing.T) {
	g := sharedMerges()
	branches, err := g.Branches(vcs.BranchesOptions{})
	require.NoError(t, err)

	c := &Coordinator{Repo: g, Cap: DefaultCap}
	recs := run(t, c, branches)

	// Sorted branches: copy-of-master, feature, master.
	assert.Equal(t, []Record{
		{Index: 1, Branch: "refs/heads/copy-of-master", Merge: "M2", Parent1: "B", Parent2: "D", Base: "M1", Note: NoteNone},
		{Index: 2, Branch: "refs/heads/copy-of-master", Merge: "M1", Parent1: "A", Parent2: "C", Base: "R", Note: NoteNone},
	}, recs)
	assert.Equal(t, Stats{Branches: 3, DistinctTips: 2, Merges: 2, Duplicates: 1}, c.Stats)
}

func TestCoordinator_Run_firstClaimWins(t *testing.T) {
	g := sharedMerges()
	master := &vcs.Branch{Name: "refs/heads/master", Head: "M2"}
	feature := &vcs.Branch{Name: "refs/heads/feature", Head: "D"}

	masterFirst := run(t, &Coordinator{Repo: g}, []*vcs.Branch{master, feature})
	featureFirst := run(t, &Coordinator{Repo: g}, []*vcs.Branch{feature, master})

	claims := func(recs []Record) map[vcs.CommitID]Record {
		m := map[vcs.CommitID]Record{}
		for _, r := range recs {
			m[r.Merge] = r
		}
		return m
	}
	a, b := claims(masterFirst), claims(featureFirst)
	require.Len(t, a, 2)
	require.Len(t, b, 2)

	assert.Equal(t, "refs/heads/master", a["M1"].Branch)
	assert.Equal(t, "refs/heads/feature", b["M1"].Branch)
	for _, id := range []vcs.CommitID{"M1", "M2"} {
		assert.Equal(t, a[id].Base, b[id].Base, id)
		assert.Equal(t, a[id].Note, b[id].Note, id)
	}
}

func TestCoordinator_Run_indicesContiguous(t *testing.T) {
	g := mergeLadder(6).
		Commit("T", "M3").Commit("MT", "M3", "T").
		Branch("refs/heads/topic", "MT")
	branches, err := g.Branches(vcs.BranchesOptions{})
	require.NoError(t, err)

	recs := run(t, &Coordinator{Repo: g, Cap: 4}, branches)
	seen := map[vcs.CommitID]bool{}
	for i, r := range recs {
		assert.Equal(t, i+1, r.Index)
		assert.False(t, seen[r.Merge], "%s emitted twice", r.Merge)
		seen[r.Merge] = true
	}
}

func TestCoordinator_Run_existingLedger(t *testing.T) {
	g := sharedMerges()
	ledger := &Ledger{}
	ledger.Claim("M2")
	ledger.Next()

	var recs []Record
	err := (&Coordinator{Repo: g}).Run(context.Background(), []*vcs.Branch{{Name: "master", Head: "M2"}}, ledger, func(r Record) error {
		recs = append(recs, r)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, vcs.CommitID("M1"), recs[0].Merge)
	assert.Equal(t, 2, recs[0].Index)
}

func TestCoordinator_Run_emitError(t *testing.T) {
	g := sharedMerges()
	errSink := errors.New("sink full")
	calls := 0
	err := (&Coordinator{Repo: g}).Run(context.Background(), []*vcs.Branch{{Name: "master", Head: "M2"}}, &Ledger{}, func(Record) error {
		calls++
		return errSink
	})
	assert.ErrorIs(t, err, errSink)
	assert.Equal(t, 1, calls)
}

func TestCoordinator_Run_graphAccessError(t *testing.T) {
	g := sharedMerges().Remove("C")
	err := (&Coordinator{Repo: g}).Run(context.Background(), []*vcs.Branch{{Name: "master", Head: "M2"}}, &Ledger{}, func(Record) error { return nil })

	var gae *GraphAccessError
	require.True(t, errors.As(err, &gae), "got %v", err)
	assert.ErrorIs(t, err, vcs.ErrCommitNotFound)
	assert.Contains(t, err.Error(), "master")
}

func TestCoordinator_Run_invalidBranch(t *testing.T) {
	g := sharedMerges()
	err := (&Coordinator{Repo: g}).Run(context.Background(), []*vcs.Branch{{Name: "master", Head: "M2"}, {Name: "broken"}}, &Ledger{}, func(Record) error { return nil })
	var ibe *InvalidBranchError
	assert.True(t, errors.As(err, &ibe), "got %v", err)
}

func TestCoordinator_Run_canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := (&Coordinator{Repo: sharedMerges()}).Run(ctx, []*vcs.Branch{{Name: "master", Head: "M2"}}, &Ledger{}, func(Record) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}
