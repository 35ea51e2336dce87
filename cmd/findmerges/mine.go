package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"sourcegraph.com/sourcegraph/appdash"

	"github.com/astmerge/findmerges/config"
	"github.com/astmerge/findmerges/mine"
)

var (
	workers      int
	maxMerges    int
	seed         int64
	includeBase  bool
	pullRequests bool
	scratchDir   string
	keepClones   bool
	metricsFile  string
)

var mineCmd = &cobra.Command{
	Use:   "mine <repos.csv> [output_dir]",
	Short: "Mine the merges of every repository listed in a CSV file",
	Long: `mine clones each repository named in the "repository" column of
repos.csv (as org/repo) and writes its merges to output_dir/org/repo.csv.

Repositories that already have an output file are skipped. A repository
that cannot be cloned gets an output file with only the header row.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runMine,
}

func init() {
	f := mineCmd.Flags()
	f.IntVar(&workers, "workers", config.Default().Workers, "number of repositories mined at once (overrides workers in the config file)")
	f.StringVar(&scratchDir, "scratch-dir", "", "directory for clones")
	f.BoolVar(&pullRequests, "pull-requests", true, "also fetch the heads of GitHub pull requests")
	f.BoolVar(&keepClones, "keep-clones", false, "leave clones in the scratch directory")
	f.StringVar(&metricsFile, "metrics-file", "", "write Prometheus metrics to this file after the run")
	samplingFlags(mineCmd)
}

// samplingFlags adds the flags that control which merges are written.
func samplingFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.IntVar(&maxMerges, "max-merges", config.Default().MaxMergesPerBranch, "merges per branch before sampling, 0 for no limit (overrides max_merges_per_branch in the config file)")
	f.Int64Var(&seed, "seed", 0, "seed for sampling branches with too many merges")
	f.BoolVar(&includeBase, "include-base", false, "add a base_commit column")
}

// applyFlags overrides the fields of c whose flags were set on cmd.
func applyFlags(cmd *cobra.Command, c *config.Config) {
	f := cmd.Flags()
	if f.Changed("workers") {
		c.Workers = workers
	}
	if f.Changed("scratch-dir") {
		c.ScratchDir = scratchDir
	}
	if f.Changed("pull-requests") {
		c.FetchPullRequests = pullRequests
	}
	if f.Changed("keep-clones") {
		c.KeepClones = keepClones
	}
	if f.Changed("metrics-file") {
		c.MetricsFile = metricsFile
	}
	if f.Changed("max-merges") {
		c.MaxMergesPerBranch = maxMerges
	}
	if f.Changed("seed") {
		c.Seed = seed
	}
	if f.Changed("include-base") {
		c.IncludeBase = includeBase
	}
}

func runMine(cmd *cobra.Command, args []string) error {
	c := cfg
	if len(args) == 2 {
		c.OutputDir = args[1]
	}
	applyFlags(cmd, &c)
	if err := c.Validate(); err != nil {
		return err
	}

	in, err := os.Open(args[0])
	if err != nil {
		return err
	}
	slugs, err := mine.ReadRepos(in)
	in.Close()
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}

	home, _ := os.UserHomeDir()
	creds, ok, err := config.FindCredentials(home, os.Getenv)
	if err != nil {
		return err
	}
	if ok {
		logger.Debug("using GitHub credentials", "source", creds.Source)
	} else {
		logger.Warn("no GitHub credentials found; cloning anonymously", "token_file", filepath.Join(home, config.TokenFile))
	}
	remote, err := c.SSHRemoteOpts(creds.RemoteOpts())
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	r := &mine.Runner{
		OutputDir:   c.OutputDir,
		ScratchDir:  c.ScratchDir,
		Workers:     c.Workers,
		Cap:         c.MaxMergesPerBranch,
		Seed:        c.Seed,
		IncludeBase: c.IncludeBase,
		CacheSize:   c.CacheSize,
		KeepClones:  c.KeepClones,
		Acquirer: &mine.CloneAcquirer{
			Backend:           c.Backend,
			Remote:            remote,
			FetchPullRequests: c.FetchPullRequests,
		},
		Logger:  logger,
		Metrics: mine.NewMetrics(reg),
	}
	if c.AppdashAddr != "" {
		collector := appdash.NewRemoteCollector(c.AppdashAddr)
		defer collector.Close()
		r.Tracer = appdash.NewRecorder(appdash.NewRootSpanID(), collector)
		r.Tracer.Name("findmerges mine")
	}

	logger.Info("mining", "repos", len(slugs), "output", c.OutputDir, "backend", c.Backend, "workers", c.Workers)
	runErr := r.Run(cmd.Context(), slugs)
	if c.MetricsFile != "" {
		if err := prometheus.WriteToTextfile(c.MetricsFile, reg); err != nil {
			logger.Error("writing metrics", "file", c.MetricsFile, "err", err)
		}
	}
	return runErr
}
