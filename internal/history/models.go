package history

import "time"

// DeploymentRecord represents a single deploy attempt in the database
type DeploymentRecord struct {
	ID              int64     `json:"id"`
	Slug            string    `json:"slug"`
	SourceURL       string    `json:"source_url"`
	Status          string    `json:"status"` // success, failed
	StartedAt       time.Time `json:"started_at"`
	DurationSeconds *float64  `json:"duration_seconds,omitempty"`
	ErrorMessage    *string   `json:"error_message,omitempty"`
}
