package cleanup

import (
	"fmt"
	"log"
	"time"

	"github.com/tbeaumont/podkeep/internal/jobs"
	"github.com/tbeaumont/podkeep/internal/models"
)

// Job is the scheduled entry point: it applies the configured retention and
// broadcasts a summary to UI clients. Registered with the job manager under
// the name "cleanup".
func Job(ctx jobs.JobContext) {
	days := ctx.Config().Downloads.CleanupAfterDays
	if days <= 0 {
		log.Println("Cleanup job invoked with no retention configured, nothing to do.")
		return
	}

	report, err := New(ctx.Store()).Clean(models.CleanupPolicy{
		MaxAge: time.Duration(days) * 24 * time.Hour,
	})
	if err != nil {
		log.Printf("Cleanup job failed: %v", err)
		ctx.WsHub().BroadcastJSON(models.ProgressUpdate{
			JobID:   "cleanup",
			Message: fmt.Sprintf("Cleanup failed: %v", err),
			Status:  "failed",
			Done:    true,
		})
		return
	}

	ctx.WsHub().BroadcastJSON(models.ProgressUpdate{
		JobID: "cleanup",
		Message: fmt.Sprintf("Removed %d old downloads, kept %d, %d errors",
			report.Deleted, report.Skipped, len(report.Errors)),
		Progress: 100,
		Status:   "completed",
		Done:     true,
	})
}
