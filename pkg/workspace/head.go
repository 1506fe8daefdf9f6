package workspace

import (
	"errors"
	"fmt"
	"time"

	gogit "github.com/go-git/go-git/v5"
)

// ErrNoRepository is returned by Head when the path is not inside a git
// repository.
var ErrNoRepository = errors.New("not a git repository")

// HeadInfo describes the checked-out commit of the repository containing a
// project.
type HeadInfo struct {
	// Branch is the short branch name, empty for a detached HEAD.
	Branch string `json:"branch,omitempty"`

	Commit  string    `json:"commit"`
	Author  string    `json:"author"`
	When    time.Time `json:"when"`
	Message string    `json:"message"`
}

// ShortCommit returns the first 12 characters of the commit hash.
func (h *HeadInfo) ShortCommit() string {
	if len(h.Commit) > 12 {
		return h.Commit[:12]
	}
	return h.Commit
}

// String returns "branch@commit", or just the short commit when detached.
func (h *HeadInfo) String() string {
	if h.Branch == "" {
		return h.ShortCommit()
	}
	return h.Branch + "@" + h.ShortCommit()
}

// Head reads HEAD of the repository containing path. Parent directories are
// searched for the .git directory.
func Head(path string) (*HeadInfo, error) {
	repo, err := gogit.PlainOpenWithOptions(path, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, gogit.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("%w: %s", ErrNoRepository, path)
		}
		return nil, fmt.Errorf("failed to open repository at %q: %w", path, err)
	}

	ref, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to get HEAD: %w", err)
	}

	commit, err := repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, fmt.Errorf("failed to get commit: %w", err)
	}

	info := &HeadInfo{
		Commit:  commit.Hash.String(),
		Author:  commit.Author.Name,
		When:    commit.Author.When,
		Message: commit.Message,
	}
	if ref.Name().IsBranch() {
		info.Branch = ref.Name().Short()
	}
	return info, nil
}
