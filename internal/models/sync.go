package models

// SyncOp is the action planned for one file on the sync device.
type SyncOp int

const (
	SyncCopy SyncOp = iota
	SyncSkip
	SyncDelete
)

func (op SyncOp) String() string {
	switch op {
	case SyncCopy:
		return "copy"
	case SyncSkip:
		return "skip"
	case SyncDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// SyncAction pairs a relative path under the device root with the operation
// to perform there. For copies, SourcePath is the absolute local file.
type SyncAction struct {
	Op         SyncOp `json:"op"`
	RelPath    string `json:"rel_path"`
	SourcePath string `json:"source_path,omitempty"`
	Reason     string `json:"reason,omitempty"`
	Size       int64  `json:"size,omitempty"`
}

// SyncPlan is the full set of actions a sync run would perform. It is
// computed fresh on every invocation and never persisted.
type SyncPlan struct {
	TargetRoot string       `json:"target_root"`
	Actions    []SyncAction `json:"actions"`
}

// SyncResult summarizes an executed (or dry-run) plan.
type SyncResult struct {
	DryRun  bool     `json:"dry_run"`
	Copied  int      `json:"copied"`
	Skipped int      `json:"skipped"`
	Deleted int      `json:"deleted"`
	Errors  []string `json:"errors,omitempty"`
}
