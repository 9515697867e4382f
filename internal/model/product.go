package model

import "time"

// Product represents a grocery item in the catalogue.
type Product struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Category  string    `json:"category" db:"category"`
	Price     Money     `json:"price" db:"price"`
	Stock     int       `json:"stock" db:"stock"`
	IsActive  bool      `json:"isActive" db:"is_active"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// ProductFilter narrows a catalogue listing.
type ProductFilter struct {
	Category    string
	InStockOnly bool
	Limit       int
	Offset      int
}
