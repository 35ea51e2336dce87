package mine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/astmerge/findmerges/vcs"
)

// PullRequestRefspec maps GitHub's pull request heads to remote-tracking
// branches, so that their merges are mined with the other branches.
const PullRequestRefspec = "refs/pull/*/head:refs/remotes/origin/pull/*"

// An Acquirer makes a complete local copy of a repository in dir, with
// all of its branches.
type Acquirer interface {
	Acquire(ctx context.Context, s Slug, dir string) (vcs.Repository, error)
}

// CloneAcquirer clones repositories from GitHub.
type CloneAcquirer struct {
	// Backend is the vcs backend used to clone, such as "gogit".
	Backend string

	Remote vcs.RemoteOpts

	// FetchPullRequests fetches PullRequestRefspec after cloning, if the
	// backend can fetch.
	FetchPullRequests bool

	// URL returns the clone URL of s. If nil, Slug.URL is used.
	URL func(s Slug) string
}

// Acquire removes anything at dir and clones s into it.
func (a *CloneAcquirer) Acquire(ctx context.Context, s Slug, dir string) (vcs.Repository, error) {
	if err := os.RemoveAll(dir); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(dir), 0755); err != nil {
		return nil, err
	}

	url := s.URL()
	if a.URL != nil {
		url = a.URL(s)
	}
	repo, err := vcs.Clone(ctx, a.Backend, url, dir, vcs.CloneOpt{RemoteOpts: a.Remote})
	if err != nil {
		return nil, err
	}

	if a.FetchPullRequests {
		if f, ok := repo.(vcs.Fetcher); ok {
			if err := f.Fetch(ctx, "origin", []string{PullRequestRefspec}, a.Remote); err != nil {
				return nil, fmt.Errorf("fetching pull requests of %s: %w", s, err)
			}
		}
	}
	return repo, nil
}
