package pipeline

import (
	"context"

	git "github.com/go-git/go-git/v5"
)

// Fetcher retrieves a source repository into a local directory. The
// directory does not exist when Fetch is called.
type Fetcher interface {
	Fetch(ctx context.Context, sourceURL, dir string) error
}

// GitFetcher clones repositories with go-git. Clones are shallow and
// single-branch; a deployment only ever needs the tip of the default
// branch.
type GitFetcher struct {
	// Depth limits clone history. Values <= 0 mean depth 1.
	Depth int
}

// NewGitFetcher returns a fetcher performing depth-1 clones.
func NewGitFetcher() *GitFetcher {
	return &GitFetcher{Depth: 1}
}

// Fetch clones sourceURL into dir.
func (f *GitFetcher) Fetch(ctx context.Context, sourceURL, dir string) error {
	depth := f.Depth
	if depth <= 0 {
		depth = 1
	}

	_, err := git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
		URL:          sourceURL,
		Depth:        depth,
		SingleBranch: true,
	})
	return err
}
