package model

import "time"

// SyncStatus is the summary surfaced to the register UI: queue
// counters, connectivity and the last completed run.
type SyncStatus struct {
	Connection   string     `json:"connection"`
	PendingCount int        `json:"pending_count"`
	FailedCount  int        `json:"failed_count"`
	LastSyncAt   *time.Time `json:"last_sync_at,omitempty"`
	SyncRunning  bool       `json:"sync_running"`
}
