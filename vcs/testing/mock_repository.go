package testing

import (
	"context"

	"github.com/astmerge/findmerges/vcs"
)

type MockRepository struct {
	Branches_  func(vcs.BranchesOptions) ([]*vcs.Branch, error)
	GetCommit_ func(vcs.CommitID) (*vcs.Commit, error)
	Commits_   func(vcs.CommitsOptions) ([]*vcs.Commit, uint, error)

	ResolveRevision_ func(spec string) (vcs.CommitID, error)
	Fetch_           func(ctx context.Context, remote string, refspecs []string, opt vcs.RemoteOpts) error
}

var (
	_ interface {
		vcs.Repository
		vcs.RevisionResolver
		vcs.Fetcher
	} = MockRepository{}
)

func (r MockRepository) Branches(opt vcs.BranchesOptions) ([]*vcs.Branch, error) {
	return r.Branches_(opt)
}

func (r MockRepository) GetCommit(id vcs.CommitID) (*vcs.Commit, error) {
	return r.GetCommit_(id)
}

func (r MockRepository) Commits(opt vcs.CommitsOptions) ([]*vcs.Commit, uint, error) {
	return r.Commits_(opt)
}

func (r MockRepository) ResolveRevision(spec string) (vcs.CommitID, error) {
	return r.ResolveRevision_(spec)
}

func (r MockRepository) Fetch(ctx context.Context, remote string, refspecs []string, opt vcs.RemoteOpts) error {
	return r.Fetch_(ctx, remote, refspecs, opt)
}
