package merges

import (
	"errors"
	"reflect"
	"testing"

	"github.com/astmerge/findmerges/vcs"
	vcstesting "github.com/astmerge/findmerges/vcs/testing"
)

func TestHistory(t *testing.T) {
	g := vcstesting.NewGraph().Commit("R").Commit("A", "R").Commit("B", "R").Commit("M", "A", "B")
	h, err := History(g, "M")
	if err != nil {
		t.Fatal(err)
	}
	if got, want := ids(h), []vcs.CommitID{"M", "B", "A", "R"}; !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestHistory_badBackend(t *testing.T) {
	a := &vcs.Commit{ID: "A"}
	b := &vcs.Commit{ID: "B", Parents: []vcs.CommitID{"A"}}
	tests := map[string]struct {
		commits []*vcs.Commit
		err     error
	}{
		"error":          {err: errors.New("disk on fire")},
		"empty":          {commits: []*vcs.Commit{}},
		"wrong head":     {commits: []*vcs.Commit{a}},
		"repeated entry": {commits: []*vcs.Commit{b, a, a}},
	}
	for label, test := range tests {
		repo := vcstesting.MockRepository{
			Commits_: func(opt vcs.CommitsOptions) ([]*vcs.Commit, uint, error) {
				return test.commits, uint(len(test.commits)), test.err
			},
		}
		_, err := History(repo, "B")
		var gae *GraphAccessError
		if !errors.As(err, &gae) {
			t.Errorf("%s: got err %v, want *GraphAccessError", label, err)
			continue
		}
		if gae.Commit != "B" {
			t.Errorf("%s: got Commit == %s, want B", label, gae.Commit)
		}
		if test.err != nil && !errors.Is(err, test.err) {
			t.Errorf("%s: got err %v, want it to wrap %v", label, err, test.err)
		}
	}
}
