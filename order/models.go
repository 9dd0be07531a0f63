package order

import "time"

// Order mirrors the orders table columns the service touches. Amounts are
// the checkout summary frozen at submission time.
type Order struct {
	ID        string
	ClientID  string
	Status    Status
	Subtotal  float64
	Shipping  float64
	Tax       float64
	Total     float64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Item is one order line, denormalized from the cart so the order renders
// without the catalog.
type Item struct {
	OrderID        string
	ProductID      string
	SizeID         string
	QuantityID     string
	ProductName    string
	Dimensions     string
	Price          float64
	QuantityAmount int
}

// Event captures an immutable business event for an order.
type Event struct {
	ID        int64
	OrderID   string
	Type      string
	ActorID   *string
	Payload   []byte
	CreatedAt time.Time
}

const (
	EventSubmitted     = "ORDER_SUBMITTED"
	EventStatusChanged = "ORDER_STATUS_CHANGED"
)
