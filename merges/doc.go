// Package merges finds the two-parent merge commits of a repository and
// classifies each by the merge base of its parents.
//
// A Coordinator visits a repository's branches in order, enumerates the
// merges in each branch's history (sampling branches with very many),
// and emits one Record per distinct merge commit, numbered from 1.
//
// Merge bases come from MergeBase, which compares the two parents'
// histories as listed by the repository backend. The result depends on
// that listing being a deterministic reverse-topological order; see
// vcs.Walk.
package merges
