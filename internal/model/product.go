package model

import (
	"fmt"
	"time"
)

// Product is a locally-owned catalog record. ExternalID is the remote
// store's id once the counterpart exists; it is set once and never
// reassigned.
type Product struct {
	ID            int64      `json:"id"`
	ExternalID    *int64     `json:"external_id,omitempty"`
	SKU           string     `json:"sku"`
	Name          string     `json:"name"`
	Description   string     `json:"description,omitempty"`
	Price         float64    `json:"price"`
	RegularPrice  float64    `json:"regular_price"`
	Status        string     `json:"status"`
	ManageStock   bool       `json:"manage_stock"`
	StockQuantity int        `json:"stock_quantity"`
	SyncedAt      *time.Time `json:"synced_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`

	Variants []Variant `json:"variants,omitempty"`
}

// Variant is a sellable variation of a product (size, color). It is
// synced after its parent so it can reference the parent's ExternalID.
type Variant struct {
	ID            int64      `json:"id"`
	ProductID     int64      `json:"product_id"`
	ExternalID    *int64     `json:"external_id,omitempty"`
	SKU           string     `json:"sku"`
	Attributes    string     `json:"attributes,omitempty"`
	Price         float64    `json:"price"`
	ManageStock   bool       `json:"manage_stock"`
	StockQuantity int        `json:"stock_quantity"`
	SyncedAt      *time.Time `json:"synced_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// InventoryOwner is anything stock can be attached to. Products and
// variants both qualify; sync code never branches on the concrete type.
type InventoryOwner interface {
	InventoryKey() string
}

func (p *Product) InventoryKey() string { return fmt.Sprintf("product:%d", p.ID) }

func (v *Variant) InventoryKey() string { return fmt.Sprintf("variant:%d", v.ID) }
