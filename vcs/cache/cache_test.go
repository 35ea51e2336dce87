package cache

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astmerge/findmerges/vcs"
	vcstesting "github.com/astmerge/findmerges/vcs/testing"
)

func TestRepository_GetCommit(t *testing.T) {
	g := vcstesting.NewGraph().Commit("R").Commit("A", "R")
	r, err := Wrap(g, 0)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		c, err := r.GetCommit("A")
		require.NoError(t, err)
		assert.Equal(t, vcs.CommitID("A"), c.ID)
	}
	assert.EqualValues(t, 1, g.GetCommitCalls())

	_, err = r.GetCommit("missing")
	assert.True(t, errors.Is(err, vcs.ErrCommitNotFound))
	_, err = r.GetCommit("missing")
	assert.True(t, errors.Is(err, vcs.ErrCommitNotFound))
	assert.EqualValues(t, 3, g.GetCommitCalls(), "failures must not be cached")
}

func TestRepository_Commits(t *testing.T) {
	g := vcstesting.NewGraph().Commit("R").Commit("A", "R").Commit("B", "A")
	r, err := Wrap(g, 2)
	require.NoError(t, err)

	first, total, err := r.Commits(vcs.CommitsOptions{Head: "B"})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	calls := g.GetCommitCalls()

	second, _, err := r.Commits(vcs.CommitsOptions{Head: "B"})
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, calls, g.GetCommitCalls(), "cached history must not walk again")

	// Different options are different entries.
	limited, _, err := r.Commits(vcs.CommitsOptions{Head: "B", N: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	_, histories := r.Stats()
	assert.Equal(t, 2, histories)
}

func TestRepository_Branches(t *testing.T) {
	g := vcstesting.NewGraph().Commit("R").Branch("refs/heads/master", "R")
	r, err := Wrap(g, 0)
	require.NoError(t, err)

	bs, err := r.Branches(vcs.BranchesOptions{})
	require.NoError(t, err)
	require.Len(t, bs, 1)

	g.Commit("A", "R").Branch("refs/heads/master", "A")
	bs, err = r.Branches(vcs.BranchesOptions{})
	require.NoError(t, err)
	assert.Equal(t, vcs.CommitID("A"), bs[0].Head, "branches are not cached")
}

func TestRepository_Commits_sharedAncestors(t *testing.T) {
	g := vcstesting.NewGraph().Commit("R").Commit("A", "R").Commit("B", "A").Commit("C", "B")
	r, err := Wrap(g, 0)
	require.NoError(t, err)

	_, _, err = r.Commits(vcs.CommitsOptions{Head: "B"})
	require.NoError(t, err)
	assert.EqualValues(t, 3, g.GetCommitCalls())

	history, total, err := r.Commits(vcs.CommitsOptions{Head: "C"})
	require.NoError(t, err)
	assert.EqualValues(t, 4, total)
	assert.Len(t, history, 4)
	assert.EqualValues(t, 4, g.GetCommitCalls(), "only the new head is read")

	commits, histories := r.Stats()
	assert.Equal(t, 4, commits)
	assert.Equal(t, 2, histories)
}

func TestRepository_Commits_notWalker(t *testing.T) {
	g := vcstesting.NewGraph().Commit("R").Commit("A", "R")
	walks := 0
	r, err := Wrap(vcstesting.MockRepository{
		Commits_: func(opt vcs.CommitsOptions) ([]*vcs.Commit, uint, error) {
			walks++
			return g.Commits(opt)
		},
	}, 0)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		history, _, err := r.Commits(vcs.CommitsOptions{Head: "A"})
		require.NoError(t, err)
		assert.Len(t, history, 2)
	}
	assert.Equal(t, 1, walks)
}
