package remote

// Wire shapes of the remote store's REST API. Prices travel as strings,
// stock quantities are null when stock management is off.

type Product struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	SKU           string  `json:"sku"`
	Description   string  `json:"description"`
	Price         string  `json:"price"`
	RegularPrice  string  `json:"regular_price"`
	Status        string  `json:"status"`
	ManageStock   bool    `json:"manage_stock"`
	StockQuantity *int    `json:"stock_quantity"`
	Variations    []int64 `json:"variations"`
}

type Variation struct {
	ID            int64       `json:"id"`
	SKU           string      `json:"sku"`
	Price         string      `json:"price"`
	ManageStock   bool        `json:"manage_stock"`
	StockQuantity *int        `json:"stock_quantity"`
	Attributes    []Attribute `json:"attributes"`
}

type Attribute struct {
	Name   string `json:"name"`
	Option string `json:"option"`
}

type Customer struct {
	ID        int64   `json:"id"`
	Email     string  `json:"email"`
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Billing   Billing `json:"billing"`
}

type Billing struct {
	Phone string `json:"phone"`
}

type Order struct {
	ID            int64      `json:"id"`
	Status        string     `json:"status"`
	Total         string     `json:"total"`
	PaymentMethod string     `json:"payment_method"`
	CustomerID    int64      `json:"customer_id"`
	SetPaid       bool       `json:"set_paid,omitempty"`
	LineItems     []LineItem `json:"line_items"`
	MetaData      []MetaData `json:"meta_data,omitempty"`
}

type LineItem struct {
	ProductID   int64  `json:"product_id,omitempty"`
	VariationID int64  `json:"variation_id,omitempty"`
	Name        string `json:"name"`
	Quantity    int    `json:"quantity"`
	Total       string `json:"total,omitempty"`
}

type MetaData struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// MetaKeyReference carries the register's client-generated order
// reference to the remote store, the join key for idempotent exports.
const MetaKeyReference = "pos_reference"

// Reference returns the register reference recorded on an order, empty
// when absent.
func (o *Order) Reference() string {
	for _, m := range o.MetaData {
		if m.Key == MetaKeyReference {
			return m.Value
		}
	}
	return ""
}

type SystemStatus struct {
	Environment struct {
		Version string `json:"version"`
		URL     string `json:"home_url"`
	} `json:"environment"`
	Settings struct {
		Currency string `json:"currency"`
	} `json:"settings"`
}

// StoreInfo is the result of a connection probe.
type StoreInfo struct {
	Version  string `json:"version"`
	Currency string `json:"currency"`
}
