package model

import (
	"encoding/json"
	"time"
)

// PendingAction statuses. pending → inflight → (deleted) on success,
// back to pending with attempts+1 on a retryable failure, failed once
// attempts run out or the retry window closes. failed is terminal and
// needs an operator to requeue or dismiss.
const (
	ActionPending  = "pending"
	ActionInflight = "inflight"
	ActionFailed   = "failed"
)

const (
	EntityProduct   = "product"
	EntityOrder     = "order"
	EntityCustomer  = "customer"
	EntityInventory = "inventory"
)

const (
	OpCreate = "create"
	OpUpdate = "update"
)

// PendingAction is a local mutation recorded while offline (or, for
// orders, always) awaiting transmission to the remote store. Created by
// the register path, mutated only by the sync orchestrator.
type PendingAction struct {
	ID            string          `json:"id"`
	EntityType    string          `json:"entity_type"`
	Operation     string          `json:"operation"`
	Payload       json.RawMessage `json:"payload"`
	Status        string          `json:"status"`
	Attempts      int             `json:"attempts"`
	LastError     string          `json:"last_error,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	LastAttemptAt *time.Time      `json:"last_attempt_at,omitempty"`
}

// OrderActionPayload is the payload of a queued order export. Only the
// local id and reference are stored; the drain re-reads the order so a
// previously persisted ExternalID is always seen.
type OrderActionPayload struct {
	OrderID   int64  `json:"order_id"`
	Reference string `json:"reference"`
}
