package model

import (
	"time"

	"github.com/google/uuid"
)

// AddressType classifies an address in the user's address book.
type AddressType string

const (
	AddressTypeHome  AddressType = "HOME"
	AddressTypeWork  AddressType = "WORK"
	AddressTypeOther AddressType = "OTHER"
)

// Address is an entry in a user's address book.
type Address struct {
	ID            uuid.UUID   `json:"id" db:"id"`
	UserID        uuid.UUID   `json:"userId" db:"user_id"`
	Type          AddressType `json:"type" db:"type"`
	RecipientName string      `json:"recipientName" db:"recipient_name"`
	Phone         string      `json:"phone" db:"phone"`
	Line1         string      `json:"line1" db:"line1"`
	Line2         *string     `json:"line2,omitempty" db:"line2"`
	Landmark      *string     `json:"landmark,omitempty" db:"landmark"`
	City          string      `json:"city" db:"city"`
	State         string      `json:"state" db:"state"`
	PostalCode    string      `json:"postalCode" db:"postal_code"`
	IsDefault     bool        `json:"isDefault" db:"is_default"`
	CreatedAt     time.Time   `json:"createdAt" db:"created_at"`
}

// AddressSnapshot is the copy of a delivery address stored on an order.
type AddressSnapshot struct {
	AddressID     uuid.UUID   `json:"addressId"`
	Type          AddressType `json:"type"`
	RecipientName string      `json:"recipientName"`
	Phone         string      `json:"phone"`
	Line1         string      `json:"line1"`
	Line2         string      `json:"line2,omitempty"`
	Landmark      string      `json:"landmark,omitempty"`
	City          string      `json:"city"`
	State         string      `json:"state"`
	PostalCode    string      `json:"postalCode"`
}

// Snapshot copies the address so later edits cannot reach placed orders.
func (a *Address) Snapshot() AddressSnapshot {
	s := AddressSnapshot{
		AddressID:     a.ID,
		Type:          a.Type,
		RecipientName: a.RecipientName,
		Phone:         a.Phone,
		Line1:         a.Line1,
		City:          a.City,
		State:         a.State,
		PostalCode:    a.PostalCode,
	}
	if a.Line2 != nil {
		s.Line2 = *a.Line2
	}
	if a.Landmark != nil {
		s.Landmark = *a.Landmark
	}
	return s
}
