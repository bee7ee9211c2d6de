package jobs

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/tbeaumont/podkeep/internal/config"
	"github.com/tbeaumont/podkeep/internal/store"
	"github.com/tbeaumont/podkeep/internal/websocket"
)

// JobContext is an interface that provides the necessary dependencies for a
// job to run. The core.App struct implements this interface.
type JobContext interface {
	Config() *config.Config
	Store() store.Storage
	WsHub() *websocket.Hub
	JobManager() *JobManager
}

// The task function signature uses the interface.
type jobTask func(ctx JobContext)

// ErrBusy is returned when a job or on-demand maintenance run is refused
// because another one already holds the single-flight slot.
var ErrBusy = errors.New("a job is already running")

type JobStatus struct {
	Name      string    `json:"name"`
	Status    string    `json:"status"` // "idle", "running", "success", "failed"
	Message   string    `json:"message"`
	StartTime time.Time `json:"start_time,omitempty"`
	EndTime   time.Time `json:"end_time,omitempty"`
}

// JobManager runs named maintenance tasks one at a time. Cleanup and device
// sync both rewrite the downloads tree, so they must never overlap.
type JobManager struct {
	mu      sync.Mutex
	jobs    map[string]jobTask
	status  map[string]*JobStatus
	running bool
	appCtx  JobContext // Store the app context for scheduled jobs
}

func NewManager(appCtx JobContext) *JobManager {
	jm := &JobManager{
		jobs:   make(map[string]jobTask),
		status: make(map[string]*JobStatus),
		appCtx: appCtx,
	}
	return jm
}

func (jm *JobManager) Register(name string, task jobTask) {
	jm.mu.Lock()
	defer jm.mu.Unlock()
	jm.jobs[name] = task
	jm.status[name] = &JobStatus{Name: name, Status: "idle"}
}

// RunJob starts the named job in the background. It refuses to start while
// another job is running.
func (jm *JobManager) RunJob(name string, ctx JobContext) error {
	jm.mu.Lock()
	if jm.running {
		jm.mu.Unlock()
		return ErrBusy
	}

	task, ok := jm.jobs[name]
	if !ok {
		jm.mu.Unlock()
		return fmt.Errorf("job '%s' not found", name)
	}

	jm.running = true
	status := jm.status[name]
	status.Status = "running"
	status.StartTime = time.Now()
	status.Message = "Job started..."
	jm.mu.Unlock()

	log.Printf("Starting job: %s", name)
	// Run the actual task in a new goroutine so it doesn't block.
	go func() {
		defer func() {
			// Ensure we always update the status and unlock the manager
			r := recover()

			jm.mu.Lock()
			if r != nil {
				log.Printf("Job '%s' panicked: %v", name, r)
				status.Status = "failed"
				status.Message = fmt.Sprintf("Job panicked: %v", r)
			}
			status.EndTime = time.Now()
			if status.Status == "running" { // If not already set to "failed"
				status.Status = "success"
				status.Message = "Job completed successfully."
			}
			jm.running = false
			jm.mu.Unlock()
			log.Printf("Finished job: %s", name)
		}()

		task(ctx)
	}()
	return nil
}

// RunNow executes fn synchronously while holding the single-flight slot.
// On-demand cleanup and sync requests go through it so they can never
// overlap each other or a scheduled job on the same downloads tree.
func (jm *JobManager) RunNow(name string, fn func() error) error {
	jm.mu.Lock()
	if jm.running {
		jm.mu.Unlock()
		return ErrBusy
	}
	jm.running = true
	jm.mu.Unlock()

	defer func() {
		jm.mu.Lock()
		jm.running = false
		jm.mu.Unlock()
	}()

	log.Printf("Running %s on demand", name)
	return fn()
}

// GetStatus returns a snapshot of every job's status. The returned structs
// are copies; a job finishing concurrently never mutates them.
func (jm *JobManager) GetStatus() []*JobStatus {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	statuses := make([]*JobStatus, 0, len(jm.status))
	for _, s := range jm.status {
		snapshot := *s
		statuses = append(statuses, &snapshot)
	}
	return statuses
}
