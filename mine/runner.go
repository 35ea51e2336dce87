// Package mine runs the merge miner over a list of GitHub repositories,
// writing one CSV file of merges per repository.
package mine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"sourcegraph.com/sourcegraph/appdash"

	"github.com/astmerge/findmerges/merges"
	"github.com/astmerge/findmerges/vcs"
	"github.com/astmerge/findmerges/vcs/cache"
	"github.com/astmerge/findmerges/vcs/util/tracer"
)

// A Runner mines repositories in parallel. Each repository is an
// independent task: a failure in one is reported but does not stop the
// others.
type Runner struct {
	OutputDir  string
	ScratchDir string // clones go in ScratchDir/org/repo

	Workers     int   // concurrent repositories; <= 0 means 1
	Cap         int   // merges per branch; <= 0 means no limit
	Seed        int64 // seed for sampling capped branches
	IncludeBase bool  // add a base_commit column
	CacheSize   int   // see cache.Wrap
	KeepClones  bool  // leave clones in ScratchDir after mining

	Acquirer Acquirer

	Logger  *log.Logger       // optional
	Metrics *Metrics          // optional
	Tracer  *appdash.Recorder // optional

	// RunID identifies this run in logs. Run sets it if empty.
	RunID string

	merges atomic.Int64
}

// Merges returns the number of merges written so far.
func (r *Runner) Merges() int64 { return r.merges.Load() }

// Run mines every repository in slugs and returns the failures of all
// tasks that failed, joined.
//
// A repository listed more than once is mined once. A repository whose
// output file exists is skipped. A repository that
// cannot be acquired gets an output file with only the header row.
func (r *Runner) Run(ctx context.Context, slugs []Slug) error {
	if r.RunID == "" {
		r.RunID = uuid.NewString()
	}
	logger := r.logger()
	slugs, repeats := unique(slugs)
	if repeats > 0 {
		logger.Warn("ignoring repeated repositories", "run", r.RunID, "repeats", repeats)
	}

	var g errgroup.Group
	g.SetLimit(max(r.Workers, 1))
	errs := make([]error, len(slugs))
	for i, s := range slugs {
		g.Go(func() error {
			if err := r.Repo(ctx, s); err != nil {
				errs[i] = fmt.Errorf("%s: %w", s, err)
				logger.Error("repository failed", "repo", s.String(), "run", r.RunID, "err", err)
			}
			return nil
		})
	}
	g.Wait()

	logger.Info("finished", "run", r.RunID, "repos", len(slugs), "merges", r.Merges())
	return errors.Join(errs...)
}

// unique returns slugs with repeats removed, keeping first occurrences,
// and the number removed. Two tasks for one repository would share its
// clone and output paths.
func unique(slugs []Slug) ([]Slug, int) {
	seen := make(map[Slug]struct{}, len(slugs))
	out := make([]Slug, 0, len(slugs))
	for _, s := range slugs {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out, len(slugs) - len(out)
}

// Repo mines one repository.
func (r *Runner) Repo(ctx context.Context, s Slug) (err error) {
	logger := r.logger().With("repo", s.String(), "run", r.RunID)
	out := OutputPath(r.OutputDir, s)

	done, err := Exists(out)
	if err != nil {
		return err
	}
	if done {
		logger.Info("CACHED", "output", out)
		r.count("cached")
		return nil
	}

	start := time.Now()
	logger.Info("STARTED")
	defer func() {
		if r.Metrics != nil {
			r.Metrics.RepoDuration.Observe(time.Since(start).Seconds())
		}
		if err != nil {
			r.count("failed")
		}
	}()

	dir := filepath.Join(r.ScratchDir, s.Org, s.Repo)
	repo, err := r.Acquirer.Acquire(ctx, s, dir)
	if !r.KeepClones {
		defer os.RemoveAll(dir)
	}
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.Warn("could not acquire repository; writing empty output", "err", err)
		r.count("acquire_failed")
		return WriteHeaderOnly(out, r.IncludeBase)
	}

	cached, err := cache.Wrap(repo, r.CacheSize)
	if err != nil {
		return err
	}
	repo = cached
	if r.Tracer != nil {
		repo = tracer.Wrap(repo, r.Tracer)
	}

	branches, err := repo.Branches(vcs.BranchesOptions{IncludeRemote: true})
	if err != nil {
		return fmt.Errorf("listing branches: %w", err)
	}

	o, err := CreateOutput(out, r.IncludeBase)
	if err != nil {
		return err
	}
	c := &merges.Coordinator{Repo: repo, Cap: r.Cap, Seed: r.Seed, Logger: logger}
	if err := c.Run(ctx, branches, &merges.Ledger{}, o.Write); err != nil {
		o.Abort()
		return err
	}
	if err := o.Commit(); err != nil {
		return err
	}

	r.merges.Add(int64(c.Stats.Merges))
	if m := r.Metrics; m != nil {
		m.Merges.Add(float64(c.Stats.Merges))
		m.DuplicateMerges.Add(float64(c.Stats.Duplicates))
		m.SampledBranches.Add(float64(c.Stats.SampledBranches))
		m.Branches.Add(float64(c.Stats.DistinctTips))
	}
	r.count("mined")
	logger.Info("DONE", "merges", o.Rows(), "branches", c.Stats.DistinctTips, "elapsed", time.Since(start).Round(time.Millisecond))
	return nil
}

func (r *Runner) count(result string) {
	if r.Metrics != nil {
		r.Metrics.Repos.WithLabelValues(result).Inc()
	}
}

func (r *Runner) logger() *log.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return log.New(io.Discard)
}
