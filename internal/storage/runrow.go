package storage

import "time"

// RunRow is a lightweight listing row for /runs.
type RunRow struct {
	ID             string    `json:"id"`
	StartedAt      time.Time `json:"started_at"`
	Root           string    `json:"root,omitempty"`
	CatalogVersion string    `json:"catalog_version,omitempty"`
	Incomplete     bool      `json:"incomplete,omitempty"`
	Findings       int       `json:"findings"`
}
