package cart

// Product is the catalog entry being added to the cart.
type Product struct {
	ID       string
	Name     string
	ImageURL string
}

// Size is the selected size variant.
type Size struct {
	ID         string
	Dimensions string
}

// Quantity is the selected quantity tier. Price is the resolved price for
// the whole tier, captured at add time.
type Quantity struct {
	ID     string
	Amount int
	Price  float64
}

// Key uniquely identifies a line item. At most one line item exists per key;
// adding the same key again replaces the prior entry.
type Key struct {
	ProductID  string
	SizeID     string
	QuantityID string
}

// LineItem is one distinct product+size+quantity selection held in the cart.
// Display fields are denormalized so the cart renders without re-querying
// the catalog.
type LineItem struct {
	ProductID      string  `json:"productId"`
	SizeID         string  `json:"sizeId"`
	QuantityID     string  `json:"quantityId"`
	ProductName    string  `json:"productName"`
	Dimensions     string  `json:"dimensions"`
	ImageURL       string  `json:"imageUrl"`
	Price          float64 `json:"price"`
	QuantityAmount int     `json:"quantityAmount"`
}

// Key returns the item's uniqueness key.
func (li LineItem) Key() Key {
	return Key{ProductID: li.ProductID, SizeID: li.SizeID, QuantityID: li.QuantityID}
}

// State is the cart contents plus derived totals. Subtotal and ItemCount are
// always a pure function of Items; they are never mutated independently.
type State struct {
	Items     []LineItem `json:"items"`
	Subtotal  float64    `json:"subtotal"`
	ItemCount int        `json:"itemCount"`
}
