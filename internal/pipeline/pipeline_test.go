package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"deployerdock/internal/site"
	"deployerdock/internal/slug"
)

// fakeFetcher populates the clone directory with the given files, or
// fails without touching the filesystem.
type fakeFetcher struct {
	files map[string]string
	err   error
}

func (f *fakeFetcher) Fetch(ctx context.Context, sourceURL, dir string) error {
	if f.err != nil {
		return f.err
	}
	for rel, content := range f.files {
		path := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return err
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			return err
		}
	}
	return nil
}

// fakeBuilder writes the given files into the fetched tree, standing
// in for a real build producing dist/.
type fakeBuilder struct {
	files  map[string]string
	output string
	err    error
}

func (b *fakeBuilder) Build(ctx context.Context, dir string) ([]byte, error) {
	if b.err != nil {
		return []byte(b.output), b.err
	}
	for rel, content := range b.files {
		path := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, err
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			return nil, err
		}
	}
	return []byte(b.output), nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestPipeline(t *testing.T, fetcher Fetcher, builder Builder) (*Pipeline, *site.Registry, string, string) {
	t.Helper()
	scratch := filepath.Join(t.TempDir(), "scratch")
	deploy := filepath.Join(t.TempDir(), "deployments")
	for _, dir := range []string{scratch, deploy} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatalf("Failed to create %s: %v", dir, err)
		}
	}

	sites := site.NewRegistry()
	gen := slug.NewFromSource(rand.NewPCG(3, 9))
	return New(scratch, deploy, gen, sites, fetcher, builder, testLogger()), sites, scratch, deploy
}

func TestDeploySuccess(t *testing.T) {
	fetcher := &fakeFetcher{files: map[string]string{"package.json": "{}"}}
	builder := &fakeBuilder{files: map[string]string{
		"dist/index.html":   "<html>tenant site</html>",
		"dist/assets/x.css": "body{}",
	}}
	p, sites, scratch, deploy := newTestPipeline(t, fetcher, builder)

	s, err := p.Deploy(context.Background(), "https://example.com/user/site.git")
	if err != nil {
		t.Fatalf("Deploy() error = %v", err)
	}
	if s == "" {
		t.Fatal("Deploy() returned empty slug")
	}

	root, ok := sites.Lookup(s)
	if !ok {
		t.Fatalf("registry has no entry for %q", s)
	}
	if root != filepath.Join(deploy, s) {
		t.Errorf("registered root = %q, want %q", root, filepath.Join(deploy, s))
	}

	data, err := os.ReadFile(filepath.Join(root, "index.html"))
	if err != nil {
		t.Fatalf("published index.html missing: %v", err)
	}
	if string(data) != "<html>tenant site</html>" {
		t.Errorf("published index.html = %q", data)
	}

	if _, err := os.Stat(filepath.Join(scratch, s)); !os.IsNotExist(err) {
		t.Errorf("clone directory %s still exists after deploy", filepath.Join(scratch, s))
	}
}

func TestDeployInvalidSource(t *testing.T) {
	p, sites, _, _ := newTestPipeline(t, &fakeFetcher{}, &fakeBuilder{})

	for _, url := range []string{"", "///"} {
		_, err := p.Deploy(context.Background(), url)
		var ierr *InvalidSourceError
		if !errors.As(err, &ierr) {
			t.Errorf("Deploy(%q) error = %v, want InvalidSourceError", url, err)
		}
	}

	if sites.Count() != 0 {
		t.Error("registry gained an entry from an invalid source")
	}
}

func TestDeployFetchFailure(t *testing.T) {
	fetcher := &fakeFetcher{err: fmt.Errorf("remote hung up")}
	p, sites, scratch, _ := newTestPipeline(t, fetcher, &fakeBuilder{})

	_, err := p.Deploy(context.Background(), "https://example.com/user/site.git")

	var ferr *FetchError
	if !errors.As(err, &ferr) {
		t.Fatalf("Deploy() error = %v, want FetchError", err)
	}
	if !strings.Contains(ferr.Error(), "remote hung up") {
		t.Errorf("FetchError lost the underlying diagnostic: %v", ferr)
	}

	if sites.Count() != 0 {
		t.Error("registry gained an entry from a failed fetch")
	}
	assertScratchEmpty(t, scratch)
}

func TestDeployBuildFailure(t *testing.T) {
	fetcher := &fakeFetcher{files: map[string]string{"package.json": "{}"}}
	builder := &fakeBuilder{err: fmt.Errorf("exit status 1"), output: "npm ERR! missing script: build"}
	p, sites, scratch, _ := newTestPipeline(t, fetcher, builder)

	_, err := p.Deploy(context.Background(), "https://example.com/user/site.git")

	var berr *BuildFailedError
	if !errors.As(err, &berr) {
		t.Fatalf("Deploy() error = %v, want BuildFailedError", err)
	}
	if !strings.Contains(berr.Output, "npm ERR!") {
		t.Errorf("BuildFailedError.Output = %q, want captured tool output", berr.Output)
	}

	if sites.Count() != 0 {
		t.Error("registry gained an entry from a failed build")
	}
	assertScratchEmpty(t, scratch)
}

func TestDeployOutputMissing(t *testing.T) {
	fetcher := &fakeFetcher{files: map[string]string{"package.json": "{}"}}
	builder := &fakeBuilder{} // build "succeeds" but produces no dist/
	p, sites, scratch, _ := newTestPipeline(t, fetcher, builder)

	_, err := p.Deploy(context.Background(), "https://example.com/user/site.git")

	var oerr *OutputMissingError
	if !errors.As(err, &oerr) {
		t.Fatalf("Deploy() error = %v, want OutputMissingError", err)
	}
	if !strings.HasSuffix(oerr.Path, OutputDir) {
		t.Errorf("OutputMissingError.Path = %q, want path ending in %q", oerr.Path, OutputDir)
	}

	if sites.Count() != 0 {
		t.Error("registry gained an entry despite missing output")
	}
	assertScratchEmpty(t, scratch)
}

func TestDeployConcurrent(t *testing.T) {
	fetcher := &fakeFetcher{files: map[string]string{"package.json": "{}"}}
	builder := &fakeBuilder{files: map[string]string{"dist/index.html": "ok"}}
	p, sites, _, _ := newTestPipeline(t, fetcher, builder)

	const n = 8
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			_, err := p.Deploy(context.Background(), "https://example.com/user/site.git")
			errs <- err
		}()
	}

	for i := 0; i < n; i++ {
		if err := <-errs; err != nil {
			t.Errorf("concurrent Deploy() error = %v", err)
		}
	}

	// Distinct slugs each get a registry entry; a rare collision
	// (bounded vocabulary) remaps a key, so >= is the invariant.
	if sites.Count() < 1 || sites.Count() > n {
		t.Errorf("registry count = %d after %d deploys", sites.Count(), n)
	}
}

func assertScratchEmpty(t *testing.T, scratch string) {
	t.Helper()
	entries, err := os.ReadDir(scratch)
	if err != nil {
		t.Fatalf("Failed to read scratch root: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("scratch root not cleaned up, found %d entries", len(entries))
	}
}

func TestDeriveRepoName(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		want    string
		wantErr bool
	}{
		{"https with .git", "https://github.com/user/my-site.git", "my-site", false},
		{"https without .git", "https://gitlab.com/user/my-site", "my-site", false},
		{"trailing slash", "https://example.com/repo/", "repo", false},
		{"bare name", "repo.git", "repo", false},
		{"empty", "", "", true},
		{"only slashes", "///", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := deriveRepoName(tt.url)
			if (err != nil) != tt.wantErr {
				t.Fatalf("deriveRepoName(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("deriveRepoName(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}
