// Package tracer emits appdash events for vcs.Repository calls.
package tracer

import (
	"context"
	"fmt"
	"time"

	"sourcegraph.com/sourcegraph/appdash"

	"github.com/astmerge/findmerges/vcs"
)

func init() { appdash.RegisterEvent(VCS{}) }

// VCS records a vcs method invocation.
type VCS struct {
	Name, Args string
	Err        string

	StartTime time.Time
	EndTime   time.Time
}

// Schema returns the constant "VCS".
func (VCS) Schema() string { return "VCS" }

func (e VCS) Start() time.Time { return e.StartTime }
func (e VCS) End() time.Time   { return e.EndTime }

// Wrap wraps the given VCS repository, returning a repository which emits
// tracing events. The optional vcs.RevisionResolver and vcs.Fetcher
// interfaces are kept if r implements them.
func Wrap(r vcs.Repository, rec *appdash.Recorder) vcs.Repository {
	t := repository{r: r, rec: rec}

	realResolver, isResolver := r.(vcs.RevisionResolver)
	realFetcher, isFetcher := r.(vcs.Fetcher)
	resolver := resolver{repository: t, rr: realResolver}
	fetcher := fetcher{repository: t, f: realFetcher}

	switch {
	case isResolver && isFetcher:
		return struct {
			vcs.Repository
			vcs.RevisionResolver
			vcs.Fetcher
		}{t, resolver, fetcher}
	case isResolver:
		return struct {
			vcs.Repository
			vcs.RevisionResolver
		}{t, resolver}
	case isFetcher:
		return struct {
			vcs.Repository
			vcs.Fetcher
		}{t, fetcher}
	default:
		return t
	}
}

type repository struct {
	r   vcs.Repository
	rec *appdash.Recorder
}

func (r repository) event(name, args string, start time.Time, err error) {
	ev := VCS{Name: name, Args: args, StartTime: start, EndTime: time.Now()}
	if err != nil {
		ev.Err = err.Error()
	}
	r.rec.Child().Event(ev)
}

func (r repository) Branches(opt vcs.BranchesOptions) ([]*vcs.Branch, error) {
	start := time.Now()
	branches, err := r.r.Branches(opt)
	r.event("vcs.Repository.Branches", fmt.Sprintf("%#v", opt), start, err)
	return branches, err
}

func (r repository) GetCommit(id vcs.CommitID) (*vcs.Commit, error) {
	start := time.Now()
	commit, err := r.r.GetCommit(id)
	r.event("vcs.Repository.GetCommit", fmt.Sprintf("%#v", id), start, err)
	return commit, err
}

func (r repository) Commits(opt vcs.CommitsOptions) ([]*vcs.Commit, uint, error) {
	start := time.Now()
	commits, total, err := r.r.Commits(opt)
	r.event("vcs.Repository.Commits", fmt.Sprintf("%#v", opt), start, err)
	return commits, total, err
}

// resolver adds a wrapped vcs.RevisionResolver.
type resolver struct {
	repository
	rr vcs.RevisionResolver
}

func (r resolver) ResolveRevision(spec string) (vcs.CommitID, error) {
	start := time.Now()
	id, err := r.rr.ResolveRevision(spec)
	r.event("vcs.RevisionResolver.ResolveRevision", fmt.Sprintf("%#v", spec), start, err)
	return id, err
}

// fetcher adds a wrapped vcs.Fetcher.
type fetcher struct {
	repository
	f vcs.Fetcher
}

// Fetch records the remote and refspecs but never credentials.
func (f fetcher) Fetch(ctx context.Context, remote string, refspecs []string, opt vcs.RemoteOpts) error {
	start := time.Now()
	err := f.f.Fetch(ctx, remote, refspecs, opt)
	f.event("vcs.Fetcher.Fetch", fmt.Sprintf("%#v, %#v", remote, refspecs), start, err)
	return err
}
