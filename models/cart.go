package models

// LineItem represents one product-quantity pair in the cart.
type LineItem struct {
	ProductID string  `json:"product_id"` // unique within a cart
	Name      string  `json:"name"`
	Price     float64 `json:"price"`    // unit price, non-negative
	Quantity  int     `json:"quantity"` // always >= 1 once stored
	ImageURL  string  `json:"image_url,omitempty"`
}

// Subtotal is price times quantity.
func (li LineItem) Subtotal() float64 {
	return li.Price * float64(li.Quantity)
}

// CartProduct is what a view hands to the cart when the user clicks "add".
type CartProduct struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	ImageURL  string  `json:"image_url,omitempty"`
}

// CartTotal sums price*quantity over items.
func CartTotal(items []LineItem) float64 {
	var total float64
	for _, it := range items {
		total += it.Subtotal()
	}
	return total
}
