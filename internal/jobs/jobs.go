package jobs

import (
	"log"
	"time"

	"github.com/go-co-op/gocron"
)

// StartJobs starts the background job scheduler.
func StartJobs(app JobContext) {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()

	startCleanupJob(s, app)

	log.Println("Starting background job scheduler...")
	s.StartAsync()
}

func startCleanupJob(s *gocron.Scheduler, app JobContext) {
	days := app.Config().Downloads.CleanupAfterDays
	if days == 0 {
		log.Println("cleanup_after_days is 0, scheduled cleanup is disabled.")
		return
	}

	jobId := "cleanup"
	log.Printf("Scheduling job: '%s' to run daily (retention %d days).", jobId, days)

	_, err := s.Every(1).Day().Do(func() {
		log.Println("Scheduler is triggering job:", jobId)
		// Submit the job to the manager instead of running it directly.
		// This prevents conflicts with manually triggered jobs.
		err := app.JobManager().RunJob(jobId, app)
		if err != nil {
			log.Printf("Scheduled job '%s' could not start: %v", jobId, err)
		}
	})
	if err != nil {
		log.Printf("Error scheduling '%s' job: %v", jobId, err)
	}
}
