package model

import "time"

// Local order statuses. The register only ever writes these; remote
// statuses are translated through the mapping tables in mapping.go.
const (
	OrderStatusOpen      = "open"
	OrderStatusPaid      = "paid"
	OrderStatusCompleted = "completed"
	OrderStatusCanceled  = "canceled"
	OrderStatusRefunded  = "refunded"
)

// Local payment methods.
const (
	PaymentCash     = "cash"
	PaymentCard     = "card"
	PaymentQRIS     = "qris"
	PaymentTransfer = "transfer"
)

// Order is a sale rung up at the register. Reference is a
// client-generated unique id minted when the sale completes; it travels
// with the order to the remote store and guards against duplicate
// creates when an export is retried after a lost response.
type Order struct {
	ID            int64      `json:"id"`
	Reference     string     `json:"reference"`
	ExternalID    *int64     `json:"external_id,omitempty"`
	CustomerID    *int64     `json:"customer_id,omitempty"`
	Status        string     `json:"status"`
	PaymentMethod string     `json:"payment_method"`
	Total         float64    `json:"total"`
	SyncedAt      *time.Time `json:"synced_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`

	Items []OrderItem `json:"items"`
}

type OrderItem struct {
	ID        int64   `json:"id"`
	OrderID   int64   `json:"order_id"`
	ProductID *int64  `json:"product_id,omitempty"`
	VariantID *int64  `json:"variant_id,omitempty"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}
