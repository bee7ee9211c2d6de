package models

import "time"

// CleanupPolicy selects which downloaded files to remove. Pure value, no
// identity. MaxAge of zero means no age-based deletion; Bulk deletes every
// downloaded file regardless of age and is only set after explicit user
// confirmation upstream.
type CleanupPolicy struct {
	MaxAge time.Duration `json:"max_age"`
	Bulk   bool          `json:"bulk"`
}

// CleanupReport summarizes one cleanup pass. Per-file failures land in
// Errors and never abort the remaining files.
type CleanupReport struct {
	Deleted int      `json:"deleted"`
	Skipped int      `json:"skipped"`
	Errors  []string `json:"errors,omitempty"`
}
