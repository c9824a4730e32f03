package model

import "time"

const (
	MovementSale       = "sale"
	MovementAdjustment = "adjustment"
	MovementRemoteSync = "remote sync"
)

// StockMovement is the audit trail of quantity changes. Reconciliation
// never overwrites a quantity silently; the difference between the old
// and new value lands here first.
type StockMovement struct {
	ID        int64     `json:"id"`
	OwnerKey  string    `json:"owner_key"`
	Delta     int       `json:"delta"`
	Reason    string    `json:"reason"`
	Reference string    `json:"reference,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// InventorySnapshot is a transient observation of a quantity on one
// side, used while computing a reconciliation delta. Not persisted.
type InventorySnapshot struct {
	OwnerKey   string    `json:"owner_key"`
	Quantity   int       `json:"quantity"`
	Source     string    `json:"source"` // local | remote
	ObservedAt time.Time `json:"observed_at"`
}
