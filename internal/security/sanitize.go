// Package security validates the untrusted inputs that cross the HTTP
// boundary: source URLs from deploy requests, slug labels extracted
// from Host headers, and request paths resolved inside a tenant root.
package security

import (
	"fmt"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	// Safe patterns for validation
	slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
)

// ValidateSourceURL ensures a source repository URL is plausible before
// it reaches the fetch step. The fetch itself runs in-process (no shell
// is involved), so this only rejects inputs that can never name a
// repository rather than enforcing a host allow-list.
func ValidateSourceURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("source URL cannot be empty")
	}
	if strings.ContainsAny(rawURL, " \t\r\n") {
		return fmt.Errorf("source URL contains whitespace")
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme == "" {
		return fmt.Errorf("source URL missing scheme")
	}

	return nil
}

// ValidateSlugLabel ensures a subdomain label is safe to use as a
// registry key. Labels come straight from the Host header, so this
// runs before any lookup.
func ValidateSlugLabel(label string) error {
	if label == "" {
		return fmt.Errorf("slug label cannot be empty")
	}
	if !slugPattern.MatchString(label) {
		return fmt.Errorf("slug label contains invalid characters (only a-z, 0-9, - allowed)")
	}
	return nil
}

// ConfinePath resolves an HTTP request path relative to a served root
// and guarantees the result stays inside that root. Prevents path
// traversal through crafted request paths.
func ConfinePath(root, requestPath string) (string, error) {
	cleaned := filepath.Clean("/" + strings.TrimPrefix(requestPath, "/"))
	target := filepath.Join(root, cleaned)

	rel, err := filepath.Rel(root, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal detected: %q escapes %q", requestPath, root)
	}

	return target, nil
}
