package mine

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrBadSlug is returned for a repository name that is not of the form
// org/repo.
var ErrBadSlug = errors.New("repository must be of the form org/repo")

// A Slug names a GitHub repository.
type Slug struct {
	Org, Repo string
}

// ParseSlug parses "org/repo".
func ParseSlug(s string) (Slug, error) {
	org, repo, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok || org == "" || repo == "" || strings.Contains(repo, "/") {
		return Slug{}, fmt.Errorf("%w: %q", ErrBadSlug, s)
	}
	return Slug{Org: org, Repo: repo}, nil
}

func (s Slug) String() string { return s.Org + "/" + s.Repo }

// URL returns the HTTPS clone URL of the repository on GitHub.
func (s Slug) URL() string {
	return "https://github.com/" + s.Org + "/" + s.Repo + ".git"
}

// RepoColumn is the input column holding org/repo slugs.
const RepoColumn = "repository"

// ReadRepos reads a CSV file with a header row and returns the slugs in
// its "repository" column, in file order. Other columns are ignored.
func ReadRepos(r io.Reader) ([]Slug, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("repository list is empty; want a header row with a %q column", RepoColumn)
	}
	if err != nil {
		return nil, err
	}
	col := -1
	for i, h := range header {
		if strings.TrimSpace(h) == RepoColumn {
			col = i
			break
		}
	}
	if col == -1 {
		return nil, fmt.Errorf("repository list has no %q column (header is %q)", RepoColumn, header)
	}

	var slugs []Slug
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			return slugs, nil
		}
		if err != nil {
			return nil, err
		}
		if col >= len(rec) {
			line, _ := cr.FieldPos(0)
			return nil, fmt.Errorf("line %d: no %q field", line, RepoColumn)
		}
		s, err := ParseSlug(rec[col])
		if err != nil {
			line, _ := cr.FieldPos(col)
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		slugs = append(slugs, s)
	}
}
