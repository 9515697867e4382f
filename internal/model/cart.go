package model

import (
	"time"

	"github.com/google/uuid"
)

// CartLine is a persisted cart row. UnitPriceAtAdd is informational only;
// orders are always priced from the current catalogue.
type CartLine struct {
	UserID         uuid.UUID `json:"-" db:"user_id"`
	ProductID      string    `json:"productId" db:"product_id"`
	Quantity       int       `json:"quantity" db:"quantity"`
	UnitPriceAtAdd Money     `json:"unitPriceAtAdd" db:"unit_price_at_add"`
	UpdatedAt      time.Time `json:"updatedAt" db:"updated_at"`
}

// LineItem is a cart line priced against the catalogue at checkout time.
type LineItem struct {
	ProductID    string `json:"productId"`
	Name         string `json:"name"`
	Quantity     int    `json:"quantity"`
	UnitPrice    Money  `json:"unitPrice"`
	LineTotal    Money  `json:"lineTotal"`
	PriceChanged bool   `json:"priceChanged"`
}

// CartSnapshot is the validated, priced view of a user's cart.
type CartSnapshot struct {
	UserID   uuid.UUID  `json:"-"`
	Lines    []LineItem `json:"lines"`
	Subtotal Money      `json:"subtotal"`
}

// SetCartLineRequest represents the request payload for setting a cart line.
type SetCartLineRequest struct {
	Quantity int `json:"quantity"`
}
