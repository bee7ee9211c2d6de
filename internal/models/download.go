package models

import "time"

// DownloadState tracks a task through its lifecycle. Transitions are driven
// exclusively by the worker that owns the task.
type DownloadState int

const (
	StateQueued DownloadState = iota
	StateRunning
	StateCompleted
	StateFailed
	StateCancelled
)

func (s DownloadState) String() string {
	switch s {
	case StateQueued:
		return "queued"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether a task in this state is finished for good.
func (s DownloadState) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

// DownloadTask is one requested transfer. DestinationPath is the final path;
// the worker writes to DestinationPath+".tmp" and renames on success, so the
// final name never holds partial content.
type DownloadTask struct {
	ID              string        `json:"id"`
	EpisodeID       string        `json:"episode_id"`
	SourceURL       string        `json:"source_url"`
	DestinationPath string        `json:"destination_path"`
	State           DownloadState `json:"state"`
	BytesDownloaded int64         `json:"bytes_downloaded"`
	ContentLength   int64         `json:"content_length"` // -1 until response headers arrive
	Error           string        `json:"error,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
}

// DownloadProgress is an immutable snapshot broadcast to consumers. A new
// snapshot supersedes the previous one; none is ever mutated after creation.
type DownloadProgress struct {
	EpisodeID       string        `json:"episode_id"`
	State           DownloadState `json:"state"`
	BytesDownloaded int64         `json:"bytes_downloaded"`
	ContentLength   int64         `json:"content_length"` // -1 when unknown
	Error           string        `json:"error,omitempty"`
	Timestamp       time.Time     `json:"timestamp"`
}

// Terminal reports whether this snapshot ends the episode's event stream.
func (p DownloadProgress) Terminal() bool {
	return p.State.Terminal()
}
