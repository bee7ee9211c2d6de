package device

import (
	"context"
	"fmt"
	"log"

	"github.com/tbeaumont/podkeep/internal/jobs"
	"github.com/tbeaumont/podkeep/internal/models"
)

// Job syncs to the configured device path, when one is set. Registered with
// the job manager under the name "device-sync".
func Job(ctx jobs.JobContext) {
	target := ctx.Config().Sync.DevicePath
	if target == "" {
		log.Println("Device sync job invoked with no sync.device_path configured, nothing to do.")
		return
	}

	result, err := New(ctx.Store()).Sync(context.Background(), target, Options{DeleteOrphans: true})
	if err != nil {
		log.Printf("Device sync job failed: %v", err)
		ctx.WsHub().BroadcastJSON(models.ProgressUpdate{
			JobID:   "device-sync",
			Message: fmt.Sprintf("Device sync failed: %v", err),
			Status:  "failed",
			Done:    true,
		})
		return
	}

	ctx.WsHub().BroadcastJSON(models.ProgressUpdate{
		JobID: "device-sync",
		Message: fmt.Sprintf("Copied %d, skipped %d, deleted %d, %d errors",
			result.Copied, result.Skipped, result.Deleted, len(result.Errors)),
		Progress: 100,
		Status:   "completed",
		Done:     true,
	})
}
