package pipeline

import "fmt"

// Every stage of a deployment can fail in its own way. The HTTP layer
// collapses all of these into an opaque 500; the typed errors exist so
// logs and tests can tell the stages apart.

// InvalidSourceError means no repository name could be derived from
// the submitted URL. Nothing was fetched or written.
type InvalidSourceError struct {
	URL string
}

func (e *InvalidSourceError) Error() string {
	return fmt.Sprintf("invalid source URL %q: could not determine repository name", e.URL)
}

// FetchError means the repository could not be retrieved. The wrapped
// error carries the transport's diagnostic.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// BuildFailedError means the tenant's build tooling exited non-zero.
// Output holds the captured combined stdout/stderr.
type BuildFailedError struct {
	Output string
	Err    error
}

func (e *BuildFailedError) Error() string {
	return fmt.Sprintf("build failed: %v", e.Err)
}

func (e *BuildFailedError) Unwrap() error { return e.Err }

// OutputMissingError means the build succeeded but the conventional
// output directory was not produced.
type OutputMissingError struct {
	Path string
}

func (e *OutputMissingError) Error() string {
	return fmt.Sprintf("build output directory not found: %s", e.Path)
}

// PublishError means copying the build output into the deployments
// root failed. A partially-copied target directory may remain on disk
// for inspection; it is never registered.
type PublishError struct {
	Path string
	Err  error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("failed to publish to %s: %v", e.Path, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }
