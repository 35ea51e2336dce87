package merges

import "github.com/astmerge/findmerges/vcs"

// Dedupe returns branches with only the first branch for each tip
// commit kept, in input order.
func Dedupe(branches []*vcs.Branch) ([]*vcs.Branch, error) {
	seen := make(map[vcs.CommitID]struct{}, len(branches))
	out := make([]*vcs.Branch, 0, len(branches))
	for _, b := range branches {
		if b.Head == "" {
			return nil, &InvalidBranchError{Name: b.Name}
		}
		if _, dup := seen[b.Head]; dup {
			continue
		}
		seen[b.Head] = struct{}{}
		out = append(out, b)
	}
	return out, nil
}
