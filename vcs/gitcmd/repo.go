// Package gitcmd implements vcs.Repository by running the git binary.
package gitcmd

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"time"

	shlex "github.com/flynn/go-shlex"

	"github.com/astmerge/findmerges/vcs"
)

func init() {
	vcs.RegisterOpener("git", func(dir string) (vcs.Repository, error) {
		return Open(dir)
	})
	vcs.RegisterCloner("git", func(ctx context.Context, url, dir string, opt vcs.CloneOpt) (vcs.Repository, error) {
		return Clone(ctx, url, dir, opt)
	})
}

// Command is the git program and any leading arguments used for every
// invocation, such as []string{"git", "-c", "core.quotepath=off"}.
var Command = []string{"git"}

// SetCommand sets Command from a shell-style command line.
func SetCommand(cmdline string) error {
	args, err := shlex.Split(cmdline)
	if err != nil {
		return fmt.Errorf("parsing git command %q: %s", cmdline, err)
	}
	if len(args) == 0 {
		return errors.New("empty git command")
	}
	Command = args
	return nil
}

func gitCommand(ctx context.Context, dir string, args ...string) *exec.Cmd {
	argv := append(append([]string{}, Command[1:]...), args...)
	cmd := exec.CommandContext(ctx, Command[0], argv...)
	cmd.Dir = dir
	return cmd
}

type Repository struct {
	Dir string
}

var _ interface {
	vcs.Repository
	vcs.RevisionResolver
	vcs.Fetcher
} = (*Repository)(nil)

func (r *Repository) String() string {
	return fmt.Sprintf("git (cmd) repo at %s", r.Dir)
}

func Open(dir string) (*Repository, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, err
	}
	return &Repository{Dir: dir}, nil
}

// Clone clones url into dir, creating remote-tracking branches for all
// of the remote's branches.
func Clone(ctx context.Context, url, dir string, opt vcs.CloneOpt) (*Repository, error) {
	args := []string{"clone", "--no-checkout"}
	if opt.Bare {
		args = append(args, "--bare")
	}
	if opt.Mirror {
		args = append(args, "--mirror")
	}
	args = append(args, "--", url, dir)
	cmd := gitCommand(ctx, "", args...)
	configureHTTPS(cmd, opt.RemoteOpts)

	cleanup, err := configureSSH(cmd, opt.RemoteOpts)
	defer cleanup()
	if err != nil {
		return nil, err
	}

	out, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("exec `git clone` failed: %s. Output was:\n\n%s", err, out)
	}
	return Open(dir)
}

// Fetch downloads the given refspecs from the named remote.
func (r *Repository) Fetch(ctx context.Context, remote string, refspecs []string, opt vcs.RemoteOpts) error {
	if err := checkSpecArgSafety(remote); err != nil {
		return err
	}
	args := append([]string{"fetch", "--", remote}, refspecs...)
	cmd := gitCommand(ctx, r.Dir, args...)
	configureHTTPS(cmd, opt)

	cleanup, err := configureSSH(cmd, opt)
	defer cleanup()
	if err != nil {
		return err
	}

	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("exec `git fetch %s` failed: %s. Output was:\n\n%s", remote, err, out)
	}
	return nil
}

// configureHTTPS adds an Authorization header for opt.HTTPS to the
// configuration of cmd. It goes in the environment, not on the command
// line, and is never written into the repository config.
func configureHTTPS(cmd *exec.Cmd, opt vcs.RemoteOpts) {
	if opt.HTTPS == nil || opt.HTTPS.Pass == "" {
		return
	}
	creds := base64.StdEncoding.EncodeToString([]byte(opt.HTTPS.User + ":" + opt.HTTPS.Pass))
	setEnv(cmd,
		"GIT_CONFIG_COUNT=1",
		"GIT_CONFIG_KEY_0=http.extraHeader",
		"GIT_CONFIG_VALUE_0=Authorization: Basic "+creds,
	)
}

// setEnv adds variables to the environment of cmd, which starts as the
// environment of this process.
func setEnv(cmd *exec.Cmd, kv ...string) {
	if cmd.Env == nil {
		cmd.Env = os.Environ()
	}
	cmd.Env = append(cmd.Env, kv...)
}

// checkSpecArgSafety returns a non-nil err if spec begins with a "-", which could
// cause it to be interpreted as a git command line argument.
func checkSpecArgSafety(spec string) error {
	if strings.HasPrefix(spec, "-") {
		return errors.New("invalid git revision spec (begins with '-')")
	}
	return nil
}

func (r *Repository) ResolveRevision(spec string) (vcs.CommitID, error) {
	if err := checkSpecArgSafety(spec); err != nil {
		return "", err
	}

	cmd := gitCommand(context.Background(), r.Dir, "rev-parse", "--verify", spec+"^{commit}")
	out, err := cmd.CombinedOutput()
	if err != nil {
		if isNotFound(out) || bytes.Contains(out, []byte("Needed a single revision")) {
			return "", vcs.ErrRevisionNotFound
		}
		return "", fmt.Errorf("exec `git rev-parse` failed: %s. Output was:\n\n%s", err, out)
	}
	return vcs.CommitID(bytes.TrimSpace(out)), nil
}

func (r *Repository) Branches(opt vcs.BranchesOptions) ([]*vcs.Branch, error) {
	patterns := []string{"refs/heads/"}
	if opt.IncludeRemote {
		patterns = append(patterns, "refs/remotes/")
	}
	args := append([]string{"for-each-ref", "--format=%(objectname)%00%(objecttype)%00%(refname)%00%(symref)"}, patterns...)
	cmd := gitCommand(context.Background(), r.Dir, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("exec `git for-each-ref` in %s failed: %s. Output was:\n\n%s", r.Dir, err, out)
	}

	var branches []*vcs.Branch
	for _, line := range bytes.Split(bytes.TrimSpace(out), []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		parts := bytes.Split(line, []byte{'\x00'})
		if len(parts) != 4 || len(parts[0]) != 40 {
			return nil, fmt.Errorf("unexpected line in `git for-each-ref` output: %q", line)
		}
		// Skip refs to non-commits and symbolic refs like refs/remotes/origin/HEAD.
		if string(parts[1]) != "commit" || len(parts[3]) != 0 {
			continue
		}
		branches = append(branches, &vcs.Branch{Name: string(parts[2]), Head: vcs.CommitID(parts[0])})
	}
	sort.Sort(vcs.Branches(branches))
	return branches, nil
}

func (r *Repository) GetCommit(id vcs.CommitID) (*vcs.Commit, error) {
	if err := checkSpecArgSafety(string(id)); err != nil {
		return nil, err
	}

	commits, err := r.commitLog(id, "-n", "1")
	if err != nil {
		return nil, err
	}

	if len(commits) != 1 {
		return nil, fmt.Errorf("git log: expected 1 commit, got %d", len(commits))
	}
	if commits[0].ID != id {
		return nil, fmt.Errorf("%w: %s is not a full commit ID (resolves to %s)", vcs.ErrCommitNotFound, id, commits[0].ID)
	}

	return commits[0], nil
}

func (r *Repository) Commits(opt vcs.CommitsOptions) ([]*vcs.Commit, uint, error) {
	if err := checkSpecArgSafety(string(opt.Head)); err != nil {
		return nil, 0, err
	}

	// git log breaks committer date ties its own way, so the full log is
	// reordered the way every other backend walks.
	commits, err := r.commitLog(opt.Head)
	if err != nil {
		return nil, 0, err
	}
	commits, err = vcs.Order(opt.Head, commits)
	if err != nil {
		return nil, 0, err
	}
	return vcs.LimitCommits(commits, opt), uint(len(commits)), nil
}

func (r *Repository) commitLog(head vcs.CommitID, flags ...string) ([]*vcs.Commit, error) {
	args := append([]string{"log", "--date-order", `--format=format:%H%x00%aN%x00%aE%x00%at%x00%cN%x00%cE%x00%ct%x00%B%x00%P%x00`}, flags...)
	args = append(args, string(head), "--")

	cmd := gitCommand(context.Background(), r.Dir, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if isNotFound(stderr.Bytes()) {
			return nil, fmt.Errorf("%w: %s", vcs.ErrCommitNotFound, head)
		}
		return nil, fmt.Errorf("exec `git log` failed: %s. Output was:\n\n%s", err, stderr.Bytes())
	}
	return parseCommitLog(out)
}

const partsPerCommit = 9 // number of \x00-separated fields per commit

func parseCommitLog(out []byte) ([]*vcs.Commit, error) {
	allParts := bytes.Split(out, []byte{'\x00'})
	numCommits := len(allParts) / partsPerCommit
	commits := make([]*vcs.Commit, numCommits)
	for i := 0; i < numCommits; i++ {
		parts := allParts[partsPerCommit*i : partsPerCommit*(i+1)]

		// log outputs are newline separated, so all but the 1st commit ID part
		// has an erroneous leading newline.
		parts[0] = bytes.TrimPrefix(parts[0], []byte{'\n'})

		authorTime, err := strconv.ParseInt(string(parts[3]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing git commit author time: %s", err)
		}
		committerTime, err := strconv.ParseInt(string(parts[6]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing git commit committer time: %s", err)
		}

		var parents []vcs.CommitID
		if parentPart := parts[8]; len(parentPart) > 0 {
			parentIDs := bytes.Split(parentPart, []byte{' '})
			parents = make([]vcs.CommitID, len(parentIDs))
			for i, id := range parentIDs {
				parents[i] = vcs.CommitID(id)
			}
		}

		commits[i] = &vcs.Commit{
			ID:        vcs.CommitID(parts[0]),
			Author:    vcs.Signature{Name: string(parts[1]), Email: string(parts[2]), Date: time.Unix(authorTime, 0)},
			Committer: &vcs.Signature{Name: string(parts[4]), Email: string(parts[5]), Date: time.Unix(committerTime, 0)},
			Message:   string(bytes.TrimSuffix(parts[7], []byte{'\n'})),
			Parents:   parents,
		}
	}
	return commits, nil
}

func isNotFound(out []byte) bool {
	return bytes.Contains(out, []byte("unknown revision")) ||
		bytes.Contains(out, []byte("bad object")) ||
		bytes.Contains(out, []byte("bad revision"))
}
