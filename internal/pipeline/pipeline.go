// Package pipeline implements the clone, build, publish, cleanup state
// machine behind a deploy request.
package pipeline

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"deployerdock/internal/security"
	"deployerdock/internal/site"
	"deployerdock/internal/slug"
	"deployerdock/pkg/fileutil"
)

// OutputDir is the conventional build output directory, resolved
// relative to the fetched tree. The deploy API accepts a base_path
// field for compatibility but the lookup always uses this convention.
const OutputDir = "dist"

// Pipeline turns a source URL into a published, registered site.
//
// Any number of deployments may run concurrently: each run owns its
// own slug-scoped scratch and target directories, so runs only meet at
// the registry lock, held for a single map insert.
type Pipeline struct {
	scratchRoot string
	deployRoot  string
	slugs       *slug.Generator
	sites       *site.Registry
	fetcher     Fetcher
	builder     Builder
	logger      *slog.Logger
}

// New creates a pipeline publishing into deployRoot and staging clones
// under scratchRoot.
func New(scratchRoot, deployRoot string, slugs *slug.Generator, sites *site.Registry, fetcher Fetcher, builder Builder, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		scratchRoot: scratchRoot,
		deployRoot:  deployRoot,
		slugs:       slugs,
		sites:       sites,
		fetcher:     fetcher,
		builder:     builder,
		logger:      logger,
	}
}

// Deploy runs the full pipeline for one source URL and returns the
// slug the site was published under.
//
// Steps run strictly in order: mint slug, derive repo name, fetch,
// build, locate output, publish, register. The first failure aborts
// the run with a typed error; the scratch clone directory is removed
// on every exit path, and a cleanup failure never replaces the
// pipeline's own error. Registration happens only after the publish
// copy has fully completed, so no reader ever resolves a slug to a
// half-populated directory.
func (p *Pipeline) Deploy(ctx context.Context, sourceURL string) (string, error) {
	s := p.slugs.Generate()
	log := p.logger.With("slug", s)

	if err := security.ValidateSourceURL(sourceURL); err != nil {
		log.Error("invalid source URL", "url", sourceURL, "error", err)
		return "", &InvalidSourceError{URL: sourceURL}
	}
	repoName, err := deriveRepoName(sourceURL)
	if err != nil {
		log.Error("invalid source URL", "url", sourceURL, "error", err)
		return "", err
	}
	log.Info("deployment started", "url", sourceURL, "repo", repoName)

	cloneDir := filepath.Join(p.scratchRoot, s)
	targetDir := filepath.Join(p.deployRoot, s)

	defer func() {
		if !fileutil.PathExists(cloneDir) {
			return
		}
		if err := os.RemoveAll(cloneDir); err != nil {
			log.Error("failed to clean up clone directory", "dir", cloneDir, "error", err)
			return
		}
		log.Info("cleaned up clone directory", "dir", cloneDir)
	}()

	// A stale clone under this slug would make the fetch fail.
	if fileutil.PathExists(cloneDir) {
		log.Info("removing stale clone directory", "dir", cloneDir)
		if err := os.RemoveAll(cloneDir); err != nil {
			return "", &FetchError{URL: sourceURL, Err: err}
		}
	}

	log.Info("fetching repository", "url", sourceURL, "dir", cloneDir)
	if err := p.fetcher.Fetch(ctx, sourceURL, cloneDir); err != nil {
		ferr := &FetchError{URL: sourceURL, Err: err}
		log.Error("fetch failed", "error", ferr)
		return "", ferr
	}
	log.Info("fetch complete")

	log.Info("running build")
	output, err := p.builder.Build(ctx, cloneDir)
	if err != nil {
		berr := &BuildFailedError{Output: string(output), Err: err}
		log.Error("build failed", "error", err, "output", string(output))
		return "", berr
	}
	log.Info("build complete")

	buildDir := filepath.Join(cloneDir, OutputDir)
	if !fileutil.DirExists(buildDir) {
		oerr := &OutputMissingError{Path: buildDir}
		log.Error("build output missing", "error", oerr)
		return "", oerr
	}

	// Replace any leftover target before copying. A failed copy can
	// leave a partial target directory behind; it stays on disk for
	// inspection and is never registered.
	if fileutil.PathExists(targetDir) {
		if err := os.RemoveAll(targetDir); err != nil {
			perr := &PublishError{Path: targetDir, Err: err}
			log.Error("failed to clear target directory", "error", perr)
			return "", perr
		}
	}

	log.Info("publishing", "from", buildDir, "to", targetDir)
	if err := fileutil.CopyTree(buildDir, targetDir); err != nil {
		perr := &PublishError{Path: targetDir, Err: err}
		log.Error("publish failed", "error", perr)
		return "", perr
	}

	p.sites.Register(s, targetDir)
	log.Info("deployment complete", "dir", targetDir)

	return s, nil
}

// deriveRepoName extracts a short repository name from the source URL.
// Used for logging only; an underivable name fails the deploy before
// any filesystem work happens.
func deriveRepoName(sourceURL string) (string, error) {
	trimmed := strings.TrimRight(sourceURL, "/")
	name := trimmed
	if i := strings.LastIndex(trimmed, "/"); i >= 0 {
		name = trimmed[i+1:]
	}
	name = strings.TrimSuffix(name, ".git")

	if sourceURL == "" || name == "" {
		return "", &InvalidSourceError{URL: sourceURL}
	}
	return name, nil
}
