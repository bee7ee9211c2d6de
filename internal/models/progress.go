package models

// ProgressUpdate is the payload broadcast over the websocket hub to
// connected UI clients.
type ProgressUpdate struct {
	JobID    string  `json:"jobId"`
	Message  string  `json:"message"`
	Progress float64 `json:"progress"`
	ItemID   string  `json:"item_id"`
	Status   string  `json:"status"` // e.g. "running", "completed", "failed"
	Done     bool    `json:"done"`
}
