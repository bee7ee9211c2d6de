// Retention for downloaded audio. Age-based cleanup removes files older than
// the configured maximum; bulk cleanup removes everything and is only
// invoked after explicit user confirmation upstream.

package cleanup

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/tbeaumont/podkeep/internal/models"
	"github.com/tbeaumont/podkeep/internal/store"
)

type Engine struct {
	store store.Storage
}

func New(st store.Storage) *Engine {
	return &Engine{store: st}
}

// Clean applies the policy to every downloaded episode. One file failing to
// delete is recorded in the report and never aborts the rest.
func (e *Engine) Clean(policy models.CleanupPolicy) (*models.CleanupReport, error) {
	episodes, err := e.store.AllEpisodes()
	if err != nil {
		return nil, fmt.Errorf("could not list episodes: %w", err)
	}

	report := &models.CleanupReport{}
	now := time.Now()

	for _, ep := range episodes {
		if !ep.Downloaded {
			continue
		}
		if !policy.Bulk {
			// Episodes without a completion timestamp are never
			// auto-deleted.
			if policy.MaxAge <= 0 || ep.DownloadedAt == nil {
				report.Skipped++
				continue
			}
			if now.Sub(*ep.DownloadedAt) <= policy.MaxAge {
				report.Skipped++
				continue
			}
		}

		if err := os.Remove(ep.DownloadPath); err != nil {
			if os.IsNotExist(err) {
				// The file is gone already; still record it and
				// clear the stale flag below.
				report.Errors = append(report.Errors,
					fmt.Sprintf("episode %s: file already missing: %s", ep.ID, ep.DownloadPath))
			} else {
				report.Errors = append(report.Errors,
					fmt.Sprintf("episode %s: %v", ep.ID, err))
				report.Skipped++
				continue
			}
		}

		ep.Downloaded = false
		ep.DownloadPath = ""
		ep.DownloadSize = 0
		ep.DownloadedAt = nil
		if err := e.store.SaveEpisode(ep); err != nil {
			report.Errors = append(report.Errors,
				fmt.Sprintf("episode %s: could not update record: %v", ep.ID, err))
			continue
		}
		report.Deleted++
	}

	log.Printf("Cleanup finished: deleted %d, skipped %d, errors %d",
		report.Deleted, report.Skipped, len(report.Errors))
	return report, nil
}
