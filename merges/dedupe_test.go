package merges

import (
	"errors"
	"reflect"
	"testing"

	"github.com/astmerge/findmerges/vcs"
)

func TestDedupe(t *testing.T) {
	a := &vcs.Branch{Name: "branchA", Head: "T"}
	b := &vcs.Branch{Name: "branchB", Head: "T"}
	c := &vcs.Branch{Name: "branchC", Head: "U"}

	tests := map[string]struct {
		in   []*vcs.Branch
		want []*vcs.Branch
	}{
		"empty":         {in: nil, want: []*vcs.Branch{}},
		"keeps first":   {in: []*vcs.Branch{a, b, c}, want: []*vcs.Branch{a, c}},
		"order kept":    {in: []*vcs.Branch{c, b, a}, want: []*vcs.Branch{c, b}},
		"no duplicates": {in: []*vcs.Branch{a, c}, want: []*vcs.Branch{a, c}},
	}
	for label, test := range tests {
		got, err := Dedupe(test.in)
		if err != nil {
			t.Errorf("%s: Dedupe: %s", label, err)
			continue
		}
		if !reflect.DeepEqual(got, test.want) {
			t.Errorf("%s: got %v, want %v", label, names(got), names(test.want))
		}
	}
}

func TestDedupe_noTip(t *testing.T) {
	_, err := Dedupe([]*vcs.Branch{{Name: "ok", Head: "T"}, {Name: "refs/heads/broken"}})
	var ibe *InvalidBranchError
	if !errors.As(err, &ibe) || ibe.Name != "refs/heads/broken" {
		t.Errorf("got err %v, want *InvalidBranchError for refs/heads/broken", err)
	}
}

func names(bs []*vcs.Branch) []string {
	out := make([]string, len(bs))
	for i, b := range bs {
		out[i] = b.Name
	}
	return out
}

func TestLedger(t *testing.T) {
	var l Ledger
	if l.Len() != 0 {
		t.Errorf("got Len() == %d for the zero Ledger", l.Len())
	}
	if !l.Claim("M") {
		t.Error("first Claim(M) == false")
	}
	if l.Claim("M") {
		t.Error("second Claim(M) == true")
	}
	if l.Len() != 1 {
		t.Errorf("got Len() == %d, want 1", l.Len())
	}
	for want := 1; want <= 3; want++ {
		if got := l.Next(); got != want {
			t.Errorf("got Next() == %d, want %d", got, want)
		}
	}
}
