// Package gogit implements vcs.Repository on go-git, without a git
// binary.
package gogit

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	gitssh "github.com/go-git/go-git/v5/plumbing/transport/ssh"
	"golang.org/x/crypto/ssh"

	"github.com/astmerge/findmerges/vcs"
)

func init() {
	vcs.RegisterOpener("gogit", func(dir string) (vcs.Repository, error) {
		return Open(dir)
	})
	vcs.RegisterCloner("gogit", func(ctx context.Context, url, dir string, opt vcs.CloneOpt) (vcs.Repository, error) {
		return Clone(ctx, url, dir, opt)
	})
}

// InsecureSkipCheckVerifySSH disables host key verification for SSH
// remotes. It should only be used for testing.
var InsecureSkipCheckVerifySSH bool

// Repository is a git repository read through go-git. Object reads are
// serialized because go-git's filesystem storage shares packfile
// handles.
type Repository struct {
	dir string

	mu   sync.Mutex
	repo *git.Repository
}

var _ interface {
	vcs.Repository
	vcs.RevisionResolver
	vcs.Fetcher
	vcs.Walker
} = (*Repository)(nil)

func (r *Repository) String() string {
	return fmt.Sprintf("git (gogit) repo at %s", r.dir)
}

func Open(dir string) (*Repository, error) {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return nil, fmt.Errorf("gogit: open %s: %w", dir, err)
	}
	return &Repository{dir: dir, repo: repo}, nil
}

// Clone clones url into dir without checking out a working tree.
func Clone(ctx context.Context, url, dir string, opt vcs.CloneOpt) (*Repository, error) {
	auth, err := authMethod(opt.RemoteOpts)
	if err != nil {
		return nil, err
	}
	repo, err := git.PlainCloneContext(ctx, dir, opt.Bare || opt.Mirror, &git.CloneOptions{
		URL:        url,
		Auth:       auth,
		NoCheckout: true,
		Mirror:     opt.Mirror,
	})
	if err != nil {
		return nil, fmt.Errorf("gogit: clone %s: %w", url, err)
	}
	return &Repository{dir: dir, repo: repo}, nil
}

// Fetch downloads refspecs from the named remote. A fetch that brings
// nothing new is not an error.
func (r *Repository) Fetch(ctx context.Context, remote string, refspecs []string, opt vcs.RemoteOpts) error {
	auth, err := authMethod(opt)
	if err != nil {
		return err
	}
	specs := make([]config.RefSpec, len(refspecs))
	for i, s := range refspecs {
		specs[i] = config.RefSpec(s)
		if err := specs[i].Validate(); err != nil {
			return fmt.Errorf("gogit: refspec %q: %w", s, err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	err = r.repo.FetchContext(ctx, &git.FetchOptions{
		RemoteName: remote,
		RefSpecs:   specs,
		Auth:       auth,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("gogit: fetch %s: %w", remote, err)
	}
	return nil
}

func authMethod(opt vcs.RemoteOpts) (transport.AuthMethod, error) {
	switch {
	case opt.SSH != nil:
		user := opt.SSH.User
		if user == "" {
			user = "git"
		}
		keys, err := gitssh.NewPublicKeys(user, opt.SSH.PrivateKey, "")
		if err != nil {
			return nil, fmt.Errorf("parsing SSH private key: %s", err)
		}
		if InsecureSkipCheckVerifySSH {
			keys.HostKeyCallback = ssh.InsecureIgnoreHostKey()
		}
		return keys, nil
	case opt.HTTPS != nil && opt.HTTPS.Pass != "":
		return &http.BasicAuth{Username: opt.HTTPS.User, Password: opt.HTTPS.Pass}, nil
	}
	return nil, nil
}

func (r *Repository) ResolveRevision(spec string) (vcs.CommitID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, err := r.repo.ResolveRevision(plumbing.Revision(spec))
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) || errors.Is(err, plumbing.ErrObjectNotFound) {
			return "", vcs.ErrRevisionNotFound
		}
		return "", fmt.Errorf("gogit: resolve %q: %w", spec, err)
	}
	return vcs.CommitID(h.String()), nil
}

// Branches lists refs/heads/ and, with IncludeRemote, refs/remotes/.
// Symbolic refs such as refs/remotes/origin/HEAD are left out.
func (r *Repository) Branches(opt vcs.BranchesOptions) ([]*vcs.Branch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	refs, err := r.repo.References()
	if err != nil {
		return nil, fmt.Errorf("gogit: list references: %w", err)
	}
	defer refs.Close()

	var branches []*vcs.Branch
	err = refs.ForEach(func(ref *plumbing.Reference) error {
		if ref.Type() != plumbing.HashReference {
			return nil
		}
		name := ref.Name()
		if !name.IsBranch() && !(opt.IncludeRemote && name.IsRemote()) {
			return nil
		}
		if _, err := r.repo.CommitObject(ref.Hash()); err != nil {
			// Not a commit (a branch pointing at a tree or blob).
			if errors.Is(err, plumbing.ErrObjectNotFound) || errors.Is(err, plumbing.ErrInvalidType) {
				return nil
			}
			return err
		}
		branches = append(branches, &vcs.Branch{Name: name.String(), Head: vcs.CommitID(ref.Hash().String())})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("gogit: list references: %w", err)
	}
	sort.Sort(vcs.Branches(branches))
	return branches, nil
}

func (r *Repository) GetCommit(id vcs.CommitID) (*vcs.Commit, error) {
	if !plumbing.IsHash(string(id)) {
		return nil, fmt.Errorf("%w: %q is not a full commit ID", vcs.ErrCommitNotFound, id)
	}
	r.mu.Lock()
	c, err := r.repo.CommitObject(plumbing.NewHash(string(id)))
	r.mu.Unlock()
	if err != nil {
		if errors.Is(err, plumbing.ErrObjectNotFound) {
			return nil, fmt.Errorf("%w: %s", vcs.ErrCommitNotFound, id)
		}
		return nil, fmt.Errorf("gogit: commit %s: %w", id, err)
	}
	return toCommit(c), nil
}

// Commits walks the ancestors of opt.Head with vcs.WalkCommits. go-git's
// own committer-time log order is not guaranteed to be topological.
func (r *Repository) Commits(opt vcs.CommitsOptions) ([]*vcs.Commit, uint, error) {
	return r.WalkCommits(r, opt)
}

// WalkCommits implements vcs.Walker.
func (r *Repository) WalkCommits(cg vcs.CommitGetter, opt vcs.CommitsOptions) ([]*vcs.Commit, uint, error) {
	return vcs.WalkCommits(cg, opt)
}

func toCommit(c *object.Commit) *vcs.Commit {
	parents := make([]vcs.CommitID, len(c.ParentHashes))
	for i, p := range c.ParentHashes {
		parents[i] = vcs.CommitID(p.String())
	}
	if len(parents) == 0 {
		parents = nil
	}
	return &vcs.Commit{
		ID:        vcs.CommitID(c.Hash.String()),
		Author:    vcs.Signature{Name: c.Author.Name, Email: c.Author.Email, Date: c.Author.When},
		Committer: &vcs.Signature{Name: c.Committer.Name, Email: c.Committer.Email, Date: c.Committer.When},
		Message:   strings.TrimSuffix(c.Message, "\n"),
		Parents:   parents,
	}
}
