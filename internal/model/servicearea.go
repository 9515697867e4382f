package model

import "time"

// ServiceArea is admin-owned delivery reference data keyed by postal code.
type ServiceArea struct {
	PostalCode       string    `json:"postalCode" db:"postal_code"`
	Area             string    `json:"area" db:"area"`
	City             string    `json:"city" db:"city"`
	State            string    `json:"state" db:"state"`
	DeliveryEtaLabel string    `json:"deliveryEtaLabel" db:"delivery_eta_label"`
	DeliveryFee      Money     `json:"deliveryFee" db:"delivery_fee"`
	MinOrderValue    Money     `json:"minOrderValue" db:"min_order_value"`
	IsActive         bool      `json:"isActive" db:"is_active"`
	UpdatedAt        time.Time `json:"updatedAt" db:"updated_at"`
}

// DeliveryTerms are the conditions under which an area is served.
type DeliveryTerms struct {
	Area          string `json:"area"`
	City          string `json:"city"`
	DeliveryFee   Money  `json:"deliveryFee"`
	MinOrderValue Money  `json:"minOrderValue"`
	EtaLabel      string `json:"etaLabel"`
}

// Resolution is the outcome of a service area lookup.
type Resolution struct {
	PostalCode    string         `json:"postalCode"`
	IsServiceable bool           `json:"isServiceable"`
	Terms         *DeliveryTerms `json:"terms,omitempty"`
}
