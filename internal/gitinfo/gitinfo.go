// Package gitinfo reads commit metadata for the repository containing the docs.
package gitinfo

import (
	"regexp"
	"strconv"
	"time"

	"github.com/go-git/go-git/v5"

	ferrors "git.home.luguber.info/inful/docprep/internal/foundation/errors"
)

// Head describes the HEAD commit of a repository.
type Head struct {
	Hash string
	When time.Time
}

// Year is the UTC year of the commit.
func (h Head) Year() int { return h.When.UTC().Year() }

// ReadHead opens the repository enclosing path, searching parent
// directories for .git, and returns its HEAD commit.
func ReadHead(path string) (Head, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return Head{}, ferrors.WrapError(err, ferrors.CategoryGit, "open repository").
			WithContext("path", path).Build()
	}
	ref, err := repo.Head()
	if err != nil {
		return Head{}, ferrors.WrapError(err, ferrors.CategoryGit, "resolve HEAD").
			WithContext("path", path).Build()
	}
	commit, err := repo.CommitObject(ref.Hash())
	if err != nil {
		return Head{}, ferrors.WrapError(err, ferrors.CategoryGit, "get commit object").
			WithContext("hash", ref.Hash().String()).Build()
	}
	return Head{Hash: ref.Hash().String(), When: commit.Committer.When}, nil
}

// CommitYear returns the year of the HEAD commit for the repository enclosing path.
func CommitYear(path string) (int, error) {
	h, err := ReadHead(path)
	if err != nil {
		return 0, err
	}
	return h.Year(), nil
}

var leadingYear = regexp.MustCompile(`^\s*(\d{4})(\s*-\s*\d{4})?\s*,`)

// WithYear sets the year at the start of a copyright notice such as
// "2024, Cadwork". A range keeps its first year. Notices without a leading
// year get one prepended.
func WithYear(notice string, year int) string {
	y := strconv.Itoa(year)
	m := leadingYear.FindStringSubmatchIndex(notice)
	if m == nil {
		return y + ", " + notice
	}
	first := notice[m[2]:m[3]]
	rest := notice[m[1]:]
	if m[4] >= 0 && first != y {
		return first + "-" + y + "," + rest
	}
	return y + "," + rest
}
