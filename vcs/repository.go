package vcs

import (
	"context"
	"errors"
	"time"
)

// A Repository is a read-only view of a version-control object store.
// Commits are identified by content-derived CommitIDs and are never
// created or mutated through this interface.
type Repository interface {
	// Branches returns the repository's branches, sorted by ref name.
	Branches(BranchesOptions) ([]*Branch, error)

	// GetCommit returns the commit with the given commit ID, or
	// ErrCommitNotFound if no such commit exists.
	GetCommit(CommitID) (*Commit, error)

	// Commits returns the ancestors of opt.Head (including opt.Head
	// itself), newest first, in an order where a commit never precedes
	// one of its descendants. The total number of commits (the count of
	// which is not subject to the N/Skip options) is also returned.
	Commits(opt CommitsOptions) (commits []*Commit, total uint, err error)
}

// A Fetcher is a repository that can download additional refs from one
// of its remotes.
type Fetcher interface {
	Fetch(ctx context.Context, remote string, refspecs []string, opt RemoteOpts) error
}

// A RevisionResolver is a repository that can resolve revision
// specifiers (branch names, tags, abbreviated IDs) to commit IDs.
type RevisionResolver interface {
	ResolveRevision(spec string) (CommitID, error)
}

var (
	ErrCommitNotFound   = errors.New("commit not found")
	ErrRevisionNotFound = errors.New("revision not found")
)

// CommitID is the full content-derived identifier of a commit (a 40-char
// SHA-1 hex string for git and hg).
type CommitID string

// Short returns the abbreviated form of id used in log messages.
func (id CommitID) Short() string {
	if len(id) > 10 {
		return string(id[:10])
	}
	return string(id)
}

type Commit struct {
	ID        CommitID
	Author    Signature
	Committer *Signature
	Message   string

	// Parents are the commit IDs of this commit's parent commits. A
	// root commit has none; a merge commit has two.
	Parents []CommitID
}

// IsMerge reports whether c has exactly two parents.
func (c *Commit) IsMerge() bool { return len(c.Parents) == 2 }

// committerDate returns the committer date if known, else the author
// date.
func (c *Commit) committerDate() time.Time {
	if c.Committer != nil {
		return c.Committer.Date
	}
	return c.Author.Date
}

type Signature struct {
	Name  string
	Email string
	Date  time.Time
}

// A Branch is a named pointer to a commit.
type Branch struct {
	// Name is the full ref name, such as "refs/heads/master" or
	// "refs/remotes/origin/pull/12".
	Name string
	Head CommitID
}

type Branches []*Branch

func (p Branches) Len() int           { return len(p) }
func (p Branches) Less(i, j int) bool { return p[i].Name < p[j].Name }
func (p Branches) Swap(i, j int)      { p[i], p[j] = p[j], p[i] }

// BranchesOptions specifies options for the list of branches returned by
// (Repository).Branches.
type BranchesOptions struct {
	// IncludeRemote also lists remote-tracking branches
	// (refs/remotes/*), not only local ones (refs/heads/*).
	IncludeRemote bool
}

// CommitsOptions specifies limits on the list of commits returned by
// (Repository).Commits.
type CommitsOptions struct {
	Head CommitID // include all ancestors of Head (and Head itself)

	N    uint // limit the number of returned commits to this many (0 means no limit)
	Skip uint // skip this many commits at the beginning
}

// RemoteOpts configures interactions with a remote repository.
type RemoteOpts struct {
	SSH   *SSHConfig   // ssh transport configuration
	HTTPS *HTTPSConfig // https transport configuration
}

// SSHConfig configures and authenticates SSH for communication with
// remotes.
type SSHConfig struct {
	User       string
	PublicKey  []byte // the public key
	PrivateKey []byte // the private key
}

// HTTPSConfig configures and authenticates HTTPS for communication with
// remotes.
type HTTPSConfig struct {
	User string // the username provided to the remote
	Pass string // the password (or token) provided to the remote
}

// CloneOpt configures a clone operation.
type CloneOpt struct {
	Bare   bool // create a bare repo
	Mirror bool // create a mirror repo (`git clone --mirror`)

	RemoteOpts // configures communication with the remote repository
}
