package model

import "time"

const (
	RunRunning   = "running"
	RunCompleted = "completed"
	RunPartial   = "partial"
	RunFailed    = "failed"
)

const (
	DirectionImport = "import"
	DirectionExport = "export"
)

// SyncRun is one audit row per entity type and direction for one sync
// cycle. Created when the step starts, finalized once, never mutated
// afterward.
type SyncRun struct {
	ID           int64      `json:"id"`
	EntityType   string     `json:"entity_type"`
	Direction    string     `json:"direction"`
	StartedAt    time.Time  `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	Processed    int        `json:"processed"`
	Failed       int        `json:"failed"`
	Status       string     `json:"status"`
	ErrorSummary string     `json:"error_summary,omitempty"`
	DurationMs   int64      `json:"duration_ms"`
}
