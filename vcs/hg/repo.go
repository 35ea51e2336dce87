// Package hg implements vcs.Repository for Mercurial repositories by
// reading the revlogs directly with hgo.
package hg

import (
	"context"
	"encoding/hex"
	"fmt"
	"net/mail"
	"os/exec"
	"sort"
	"sync"

	"github.com/beyang/hgo"
	hg_changelog "github.com/beyang/hgo/changelog"
	hg_revlog "github.com/beyang/hgo/revlog"

	"github.com/astmerge/findmerges/vcs"
)

func init() {
	vcs.RegisterOpener("hg", func(dir string) (vcs.Repository, error) {
		return Open(dir)
	})
	vcs.RegisterCloner("hg", func(ctx context.Context, url, dir string, opt vcs.CloneOpt) (vcs.Repository, error) {
		return Clone(ctx, url, dir, opt)
	})
}

// Repository is a Mercurial repository. Named branches are reported by
// name (e.g. "default") with their tipmost head.
type Repository struct {
	Dir string

	mu    sync.Mutex
	cl    *hg_revlog.Index
	heads map[string]string // branch name -> head changeset ID
}

var _ interface {
	vcs.Repository
	vcs.RevisionResolver
	vcs.Walker
} = (*Repository)(nil)

func (r *Repository) String() string {
	return fmt.Sprintf("hg repo at %s", r.Dir)
}

func Open(dir string) (*Repository, error) {
	u, err := hgo.OpenRepository(dir)
	if err != nil {
		return nil, err
	}
	cl, err := u.NewStore().OpenChangeLog()
	if err != nil {
		return nil, err
	}
	heads := map[string]string{}
	// Mercurial writes the branch cache lazily and newer versions use a
	// format hgo does not read, so a missing cache means only the tip.
	if bh, err := u.BranchHeads(); err == nil {
		for name, id := range bh.IdByName {
			heads[name] = id
		}
	}
	if len(heads) == 0 {
		heads["default"] = cl.Tip().Id().Node()
	}
	return &Repository{Dir: dir, cl: cl, heads: heads}, nil
}

// Clone runs `hg clone` without updating a working directory. opt is
// ignored; credentials come from the user's hgrc.
func Clone(ctx context.Context, url, dir string, opt vcs.CloneOpt) (*Repository, error) {
	cmd := exec.CommandContext(ctx, "hg", "clone", "--noupdate", "--", url, dir)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("exec `hg clone` failed: %s. Output was:\n\n%s", err, out)
	}
	return Open(dir)
}

func (r *Repository) Branches(vcs.BranchesOptions) ([]*vcs.Branch, error) {
	branches := make([]*vcs.Branch, 0, len(r.heads))
	for name, id := range r.heads {
		branches = append(branches, &vcs.Branch{Name: name, Head: vcs.CommitID(id)})
	}
	sort.Sort(vcs.Branches(branches))
	return branches, nil
}

func (r *Repository) ResolveRevision(spec string) (vcs.CommitID, error) {
	if id, ok := r.heads[spec]; ok {
		return vcs.CommitID(id), nil
	}

	var rs hg_revlog.RevisionSpec = hg_revlog.NodeIdRevSpec(spec)
	if spec == "tip" {
		rs = hg_revlog.TipRevSpec{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, err := rs.Lookup(r.cl)
	if err != nil {
		return "", vcs.ErrRevisionNotFound
	}
	return vcs.CommitID(hex.EncodeToString(rec.Id())), nil
}

func (r *Repository) GetCommit(id vcs.CommitID) (*vcs.Commit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, err := hg_revlog.NodeIdRevSpec(id).Lookup(r.cl)
	if err != nil {
		return nil, fmt.Errorf("%w: %s (%s)", vcs.ErrCommitNotFound, id, err)
	}
	c, err := makeCommit(rec)
	if err != nil {
		return nil, err
	}
	if c.ID != id {
		// NodeIdRevSpec matches prefixes.
		return nil, fmt.Errorf("%w: %s is not a full changeset ID (resolves to %s)", vcs.ErrCommitNotFound, id, c.ID)
	}
	return c, nil
}

// Commits walks the ancestors of opt.Head with vcs.WalkCommits.
func (r *Repository) Commits(opt vcs.CommitsOptions) ([]*vcs.Commit, uint, error) {
	return r.WalkCommits(r, opt)
}

// WalkCommits implements vcs.Walker.
func (r *Repository) WalkCommits(cg vcs.CommitGetter, opt vcs.CommitsOptions) ([]*vcs.Commit, uint, error) {
	return vcs.WalkCommits(cg, opt)
}

func makeCommit(rec *hg_revlog.Rec) (*vcs.Commit, error) {
	ce, err := hg_changelog.BuildEntry(rec, hg_revlog.NewFileBuilder())
	if err != nil {
		return nil, err
	}

	sig := vcs.Signature{Name: ce.Committer, Date: ce.Date}
	if addr, err := mail.ParseAddress(ce.Committer); err == nil {
		sig.Name, sig.Email = addr.Name, addr.Address
	}

	var parents []vcs.CommitID
	if !rec.IsStartOfBranch() {
		if p := rec.Parent(); p != nil {
			parents = append(parents, vcs.CommitID(hex.EncodeToString(p.Id())))
		}
		if rec.Parent2Present() {
			parents = append(parents, vcs.CommitID(hex.EncodeToString(rec.Parent2().Id())))
		}
	}

	// Mercurial records a single user per changeset.
	committer := sig
	return &vcs.Commit{
		ID:        vcs.CommitID(ce.Id),
		Author:    sig,
		Committer: &committer,
		Message:   ce.Comment,
		Parents:   parents,
	}, nil
}
