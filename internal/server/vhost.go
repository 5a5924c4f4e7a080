package server

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"deployerdock/internal/security"
)

// VHost is the routing decision at the heart of the multiplexer: a GET
// whose Host header names a configured base hostname falls through to
// the control-plane routes; any other host is treated as
// <slug>.<domain> and served from that slug's published directory.
// Non-GET requests always fall through, so the deploy API works
// regardless of which hostname a client used.
func (s *Server) VHost(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet || r.Method == http.MethodHead {
			if !s.isBaseHost(r.Host) {
				s.ServeTenant(w, r)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// isBaseHost reports whether the Host header (port stripped) names the
// control plane.
func (s *Server) isBaseHost(host string) bool {
	h := stripPort(host)
	for _, base := range s.Config.BaseHostnames {
		if h == base {
			return true
		}
	}
	return false
}

// ServeTenant serves a published site selected by the subdomain label.
// A path that names a directory or nothing at all gets the tenant's
// index.html instead, so client-side routers receive every unknown
// route.
func (s *Server) ServeTenant(w http.ResponseWriter, r *http.Request) {
	label := tenantLabel(r.Host)

	root, ok := s.lookupTenant(label)
	if !ok {
		http.Error(w, fmt.Sprintf("Site not found. No deployment registered for '%s'.", label), http.StatusNotFound)
		return
	}

	path, err := security.ConfinePath(root, r.URL.Path)
	if err != nil {
		path = filepath.Join(root, "index.html")
	}

	if info, err := os.Stat(path); err != nil || info.IsDir() {
		path = filepath.Join(root, "index.html")
	}

	http.ServeFile(w, r, path)
}

func (s *Server) lookupTenant(label string) (string, bool) {
	if err := security.ValidateSlugLabel(label); err != nil {
		return "", false
	}
	return s.Sites.Lookup(label)
}

// HandleControlPlane serves the deployer's own static assets. Path "/"
// maps to the entry page; everything else resolves inside the web
// root.
func (s *Server) HandleControlPlane(w http.ResponseWriter, r *http.Request) {
	requestPath := r.URL.Path
	if requestPath == "/" {
		requestPath = "/index.html"
	}

	path, err := security.ConfinePath(s.Config.WebRoot, requestPath)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	http.ServeFile(w, r, path)
}

// tenantLabel extracts the subdomain label from a Host header: the
// port suffix is stripped first, then everything before the first dot.
func tenantLabel(host string) string {
	h := stripPort(host)
	if i := strings.Index(h, "."); i >= 0 {
		return h[:i]
	}
	return h
}

// stripPort removes a trailing :port from a Host header value.
func stripPort(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return host
}
