package merges

import "github.com/astmerge/findmerges/vcs"

// A Ledger records the merges already reported for one repository and
// numbers them. The zero value is ready to use. A Ledger is not safe for
// concurrent use.
type Ledger struct {
	claimed map[vcs.CommitID]struct{}
	last    int
}

// Claim records id and reports whether it was new.
func (l *Ledger) Claim(id vcs.CommitID) bool {
	if l.claimed == nil {
		l.claimed = map[vcs.CommitID]struct{}{}
	}
	if _, ok := l.claimed[id]; ok {
		return false
	}
	l.claimed[id] = struct{}{}
	return true
}

// Next returns the next record index, starting at 1.
func (l *Ledger) Next() int {
	l.last++
	return l.last
}

// Len returns the number of claimed merges.
func (l *Ledger) Len() int { return len(l.claimed) }
