package main

import (
	"fmt"
	"io"

	"github.com/kr/text"
	"github.com/spf13/cobra"

	"github.com/astmerge/findmerges/merges"
	"github.com/astmerge/findmerges/mine"
	"github.com/astmerge/findmerges/vcs"
	"github.com/astmerge/findmerges/vcs/cache"
)

var mergeBaseCmd = &cobra.Command{
	Use:   "merge-base <dir> <rev1> <rev2>",
	Short: "Print the merge base of two commits of a local repository",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := vcs.Open(cfg.Backend, args[0])
		if err != nil {
			return err
		}
		p1, err := resolve(repo, args[1])
		if err != nil {
			return err
		}
		p2, err := resolve(repo, args[2])
		if err != nil {
			return err
		}
		base, note, err := merges.MergeBase(cmd.Context(), repo, p1, p2)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if base != "" {
			fmt.Fprintln(out, base)
		}
		if note != merges.NoteNone {
			fmt.Fprintf(out, "# %s\n", note)
		}
		return nil
	},
}

var mergesCmd = &cobra.Command{
	Use:   "merges <dir>",
	Short: "Print the merges of a local repository as CSV",
	Long: `merges mines a repository that is already on disk, including its
remote-tracking branches, and prints the same rows that mine writes.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := cfg
		applyFlags(cmd, &c)
		if err := c.Validate(); err != nil {
			return err
		}
		repo, err := vcs.Open(c.Backend, args[0])
		if err != nil {
			return err
		}
		cached, err := cache.Wrap(repo, c.CacheSize)
		if err != nil {
			return err
		}
		branches, err := cached.Branches(vcs.BranchesOptions{IncludeRemote: true})
		if err != nil {
			return err
		}

		w, err := mine.NewRowWriter(cmd.OutOrStdout(), c.IncludeBase)
		if err != nil {
			return err
		}
		co := &merges.Coordinator{Repo: cached, Cap: c.MaxMergesPerBranch, Seed: c.Seed, Logger: logger}
		ledger := &merges.Ledger{}
		if err := co.Run(cmd.Context(), branches, ledger, w.Write); err != nil {
			return err
		}
		if err := w.Flush(); err != nil {
			return err
		}
		logger.Debug("done", "rows", w.Rows(), "claimed", ledger.Len(), "duplicates", co.Stats.Duplicates, "branches", co.Stats.DistinctTips)
		return nil
	},
}

func init() {
	samplingFlags(mergesCmd)
}

var branchesCmd = &cobra.Command{
	Use:   "branches <dir>",
	Short: "List the branches of a local repository",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := vcs.Open(cfg.Backend, args[0])
		if err != nil {
			return err
		}
		branches, err := repo.Branches(vcs.BranchesOptions{IncludeRemote: true})
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "# Branches (%d total):\n", len(branches))
		for _, b := range branches {
			fmt.Fprintf(out, "%s %s\n", b.Head, b.Name)
		}
		return nil
	},
}

var logLimit uint

var logCmd = &cobra.Command{
	Use:   "log <dir> [rev]",
	Short: "Print the history of a revision of a local repository",
	Long: `log prints the ancestors of rev (HEAD, or tip for hg) in the order in
which merges are enumerated: newest committer date first, never a commit
before one of its descendants.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := vcs.Open(cfg.Backend, args[0])
		if err != nil {
			return err
		}
		rev := "HEAD"
		if cfg.Backend == "hg" {
			rev = "tip"
		}
		if len(args) == 2 {
			rev = args[1]
		}
		head, err := resolve(repo, rev)
		if err != nil {
			return err
		}
		commits, total, err := repo.Commits(vcs.CommitsOptions{Head: head, N: logLimit})
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "# Commits (%d total):\n", total)
		for _, c := range commits {
			printCommit(out, c)
		}
		return nil
	},
}

func init() {
	logCmd.Flags().UintVarP(&logLimit, "limit", "n", 0, "print at most this many commits")
}

// resolve returns the commit ID that spec names in repo. A repository
// that cannot resolve revisions accepts only full commit IDs.
func resolve(repo vcs.Repository, spec string) (vcs.CommitID, error) {
	if rr, ok := repo.(vcs.RevisionResolver); ok {
		id, err := rr.ResolveRevision(spec)
		if err != nil {
			return "", fmt.Errorf("%s: %w", spec, err)
		}
		return id, nil
	}
	return vcs.CommitID(spec), nil
}

func printCommit(w io.Writer, c *vcs.Commit) {
	kind := "commit"
	if c.IsMerge() {
		kind = "merge"
	}
	fmt.Fprintf(w, "%s %s\n%s <%s> at %s\n%s\n\n", kind, c.ID, c.Author.Name, c.Author.Email, c.Author.Date, text.Indent(c.Message, "\t"))
}
