package server

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"deployerdock/internal/history"
)

const (
	MaxPayloadBytes        = 1_000_000 // 1 MB
	RecentDeploymentsLimit = 10        // Number of records returned by the history endpoint
)

// DeployRequest is the body of POST /api/deploy. BasePath is accepted
// for compatibility with existing clients but is not consulted: the
// pipeline always resolves the conventional output directory.
type DeployRequest struct {
	URL      string `json:"url"`
	BasePath string `json:"base_path"`
}

// DeployResponse is returned on a successful deployment.
type DeployResponse struct {
	Slug string `json:"slug"`
	URL  string `json:"url"`
}

// HandleDeploy runs the build pipeline synchronously: the response is
// held open until clone, build, and publish have all completed. Any
// pipeline failure collapses to an opaque 500; stage diagnostics stay
// in the server log.
func (s *Server) HandleDeploy(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, MaxPayloadBytes))
	if err != nil {
		s.Logger.Error("Failed to read request body", "error", err)
		s.respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to read payload"})
		return
	}

	var req DeployRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.respondJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid JSON payload"})
		return
	}

	if req.URL == "" || req.BasePath == "" {
		s.respondJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing 'url' or 'base_path'"})
		return
	}

	start := time.Now()
	slug, err := s.Pipeline.Deploy(r.Context(), req.URL)
	duration := time.Since(start).Seconds()

	s.recordDeployment(r, slug, req.URL, duration, err)

	if err != nil {
		s.Logger.Error("deployment failed", "url", req.URL, "error", err)
		s.respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "Deployment failed. Check server logs."})
		return
	}

	s.respondJSON(w, http.StatusOK, DeployResponse{
		Slug: slug,
		URL:  s.Config.SiteURL(slug),
	})
}

// recordDeployment writes one history row per deploy attempt. History
// failures are logged and never affect the response.
func (s *Server) recordDeployment(r *http.Request, slug, sourceURL string, duration float64, deployErr error) {
	if s.History == nil {
		return
	}

	record := &history.DeploymentRecord{
		Slug:            slug,
		SourceURL:       sourceURL,
		Status:          "success",
		DurationSeconds: &duration,
	}
	if deployErr != nil {
		record.Status = "failed"
		msg := deployErr.Error()
		record.ErrorMessage = &msg
	}

	if _, err := s.History.RecordDeployment(r.Context(), record); err != nil {
		s.Logger.Error("Failed to record deployment history", "error", err, "url", sourceURL)
	}
}

// HandleHealth reports server liveness plus the currently routable
// slugs, so an operator can see at a glance what this instance serves.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"sites":  s.Sites.Count(),
		"slugs":  s.Sites.List(),
	})
}

// HandleHistory returns recent deploy attempts, newest first.
func (s *Server) HandleHistory(w http.ResponseWriter, r *http.Request) {
	records := []history.DeploymentRecord{}

	if s.History != nil {
		var err error
		records, err = s.History.GetRecentDeployments(r.Context(), RecentDeploymentsLimit)
		if err != nil {
			s.Logger.Error("Failed to query deployment history", "error", err)
			s.respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to query history"})
			return
		}
		if records == nil {
			records = []history.DeploymentRecord{}
		}
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{"deployments": records})
}

// respondJSON writes a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.Logger.Error("Failed to encode JSON response", "error", err)
	}
}
