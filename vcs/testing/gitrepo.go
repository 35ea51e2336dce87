package testing

import (
	"fmt"
	"os/exec"
	"strings"
	gotesting "testing"
)

// gitEnv pins the identity used for fixture commits.
const gitEnv = "GIT_AUTHOR_NAME=a GIT_AUTHOR_EMAIL=a@a.com GIT_COMMITTER_NAME=a GIT_COMMITTER_EMAIL=a@a.com"

// GitCommit returns a shell command that makes an empty commit with the
// given message at the given RFC 3339 date.
func GitCommit(msg, date string) string {
	return fmt.Sprintf("%s GIT_AUTHOR_DATE=%s GIT_COMMITTER_DATE=%s git commit -q --allow-empty -m %s", gitEnv, date, date, msg)
}

// GitMerge returns a shell command that merges branch into the current
// branch with a merge commit, even if a fast-forward is possible.
func GitMerge(branch, msg, date string, flags ...string) string {
	return fmt.Sprintf("%s GIT_MERGE_AUTOEDIT=no GIT_AUTHOR_DATE=%s GIT_COMMITTER_DATE=%s git merge -q --no-ff %s -m %s %s", gitEnv, date, date, strings.Join(flags, " "), msg, branch)
}

// MergeFixture is a repository with one ordinary merge:
//
//	R---A---M   master, same-as-master
//	 \     /
//	  C----     feature
//
// plus an orphan root D merged on top of M by the unrelated branch
// (merge U with parents M and D).
var MergeFixture = []string{
	"git symbolic-ref HEAD refs/heads/master",
	GitCommit("R", "2006-01-02T15:04:05Z"),
	"git checkout -q -b feature",
	GitCommit("C", "2006-01-02T15:05:05Z"),
	"git checkout -q master",
	GitCommit("A", "2006-01-02T15:06:05Z"),
	GitMerge("feature", "M", "2006-01-02T15:07:05Z"),
	"git branch same-as-master",
	"git checkout -q --orphan orphan",
	GitCommit("D", "2006-01-02T15:08:05Z"),
	"git checkout -q -b unrelated master",
	GitMerge("orphan", "U", "2006-01-02T15:09:05Z", "--allow-unrelated-histories"),
}

// InitGitRepository runs `git init` and then each of cmds (with sh -c) in
// a new temporary directory, and returns the directory. The test is
// skipped if git is not installed.
func InitGitRepository(t gotesting.TB, cmds ...string) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	dir := t.TempDir()
	cmds = append([]string{"git init -q"}, cmds...)
	for _, cmd := range cmds {
		c := exec.Command("sh", "-c", cmd)
		c.Dir = dir
		out, err := c.CombinedOutput()
		if err != nil {
			t.Fatalf("Command %q failed. Output was:\n\n%s", cmd, out)
		}
	}
	return dir
}

// RevParse returns the commit ID of rev in the git repository at dir.
func RevParse(t gotesting.TB, dir, rev string) string {
	t.Helper()
	c := exec.Command("git", "rev-parse", "--verify", rev+"^{commit}")
	c.Dir = dir
	out, err := c.Output()
	if err != nil {
		t.Fatalf("git rev-parse %s: %s", rev, err)
	}
	return string(out[:len(out)-1])
}
