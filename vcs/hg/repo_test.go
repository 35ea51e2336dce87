package hg

import (
	"errors"
	"os/exec"
	"reflect"
	"testing"

	"github.com/astmerge/findmerges/vcs"
)

const hgUser = "-u 'a <a@a.com>'"

// initHgRepository creates
//
//	R---A
//	 \   \
//	  C---M   default
func initHgRepository(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("hg"); err != nil {
		t.Skip("hg not installed")
	}
	dir := t.TempDir()
	cmds := []string{
		// hgo reads the classic revlog format only.
		"hg init --config format.generaldelta=false --config format.sparse-revlog=false --config format.revlog-compression=zlib --config format.use-persistent-nodemap=false",
		"touch r && hg add r && hg commit -q -m R " + hgUser + " -d '1136214245 0'",
		"touch a && hg add a && hg commit -q -m A " + hgUser + " -d '1136214305 0'",
		"hg update -q 0",
		"touch c && hg add c && hg commit -q -m C " + hgUser + " -d '1136214365 0'",
		"hg merge -q 1 && hg commit -q -m M " + hgUser + " -d '1136214425 0'",
	}
	for _, cmd := range cmds {
		c := exec.Command("sh", "-c", cmd)
		c.Dir = dir
		c.Env = append(c.Environ(), "HGPLAIN=1", "HGRCPATH=")
		if out, err := c.CombinedOutput(); err != nil {
			t.Fatalf("Command %q failed. Output was:\n\n%s", cmd, out)
		}
	}
	return dir
}

func TestRepository(t *testing.T) {
	dir := initHgRepository(t)
	r, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}

	branches, err := r.Branches(vcs.BranchesOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(branches) != 1 || branches[0].Name != "default" {
		t.Fatalf("got branches %+v, want only default", branches)
	}
	tip, err := r.ResolveRevision("tip")
	if err != nil {
		t.Fatal(err)
	}
	if branches[0].Head != tip {
		t.Errorf("got default head %s, want tip %s", branches[0].Head, tip)
	}

	commits, total, err := r.Commits(vcs.CommitsOptions{Head: tip})
	if err != nil {
		t.Fatal(err)
	}
	var msgs []string
	byMsg := map[string]*vcs.Commit{}
	for _, c := range commits {
		msgs = append(msgs, c.Message)
		byMsg[c.Message] = c
	}
	if want := []string{"M", "C", "A", "R"}; !reflect.DeepEqual(msgs, want) || total != 4 {
		t.Fatalf("got messages %v (total %d), want %v", msgs, total, want)
	}

	m := byMsg["M"]
	if want := []vcs.CommitID{byMsg["C"].ID, byMsg["A"].ID}; !reflect.DeepEqual(m.Parents, want) {
		t.Errorf("got merge parents %v, want %v", m.Parents, want)
	}
	if len(byMsg["R"].Parents) != 0 {
		t.Errorf("got root parents %v, want none", byMsg["R"].Parents)
	}
	if m.Author.Email != "a@a.com" {
		t.Errorf("got author email %q, want a@a.com", m.Author.Email)
	}
	if m.Committer.Date.Unix() != 1136214425 {
		t.Errorf("got committer date %s", m.Committer.Date)
	}

	if _, err := r.GetCommit(m.ID[:12]); !errors.Is(err, vcs.ErrCommitNotFound) {
		t.Errorf("abbreviated ID: got err %v, want ErrCommitNotFound", err)
	}
}
