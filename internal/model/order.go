package model

import (
	"time"

	"github.com/google/uuid"
)

// OrderStatus is the fulfilment state of an order.
type OrderStatus string

const (
	OrderStatusPending        OrderStatus = "PENDING"
	OrderStatusConfirmed      OrderStatus = "CONFIRMED"
	OrderStatusProcessing     OrderStatus = "PROCESSING"
	OrderStatusPacked         OrderStatus = "PACKED"
	OrderStatusShipped        OrderStatus = "SHIPPED"
	OrderStatusOutForDelivery OrderStatus = "OUT_FOR_DELIVERY"
	OrderStatusDelivered      OrderStatus = "DELIVERED"
	OrderStatusCancelled      OrderStatus = "CANCELLED"
)

// PaymentStatus is the settlement state of an order.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "PENDING"
	PaymentStatusPaid    PaymentStatus = "PAID"
	PaymentStatusFailed  PaymentStatus = "FAILED"
)

// PaymentMethod selects the settlement handler for an order.
type PaymentMethod string

const (
	PaymentMethodCOD    PaymentMethod = "COD"
	PaymentMethodWallet PaymentMethod = "WALLET"
	PaymentMethodOnline PaymentMethod = "ONLINE"
)

// Valid reports whether m is a supported payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCOD, PaymentMethodWallet, PaymentMethodOnline:
		return true
	}
	return false
}

var orderStateTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:        {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed:      {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing:     {OrderStatusPacked, OrderStatusCancelled},
	OrderStatusPacked:         {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:        {OrderStatusOutForDelivery, OrderStatusCancelled},
	OrderStatusOutForDelivery: {OrderStatusDelivered, OrderStatusCancelled},
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to OrderStatus) bool {
	for _, next := range orderStateTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible.
func (s OrderStatus) IsTerminal() bool {
	return len(orderStateTransitions[s]) == 0
}

// Valid reports whether s is a known order status.
func (s OrderStatus) Valid() bool {
	if _, ok := orderStateTransitions[s]; ok {
		return true
	}
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// Order represents a placed customer order.
type Order struct {
	ID               uuid.UUID       `json:"id" db:"id"`
	OrderNumber      string          `json:"orderNumber" db:"order_number"`
	UserID           uuid.UUID       `json:"userId" db:"user_id"`
	Address          AddressSnapshot `json:"address" db:"address_snapshot"`
	Subtotal         Money           `json:"subtotal" db:"subtotal"`
	Discount         Money           `json:"discount" db:"discount"`
	DeliveryFee      Money           `json:"deliveryFee" db:"delivery_fee"`
	Total            Money           `json:"total" db:"total"`
	PaymentMethod    PaymentMethod   `json:"paymentMethod" db:"payment_method"`
	PaymentStatus    PaymentStatus   `json:"paymentStatus" db:"payment_status"`
	Status           OrderStatus     `json:"status" db:"status"`
	CouponCode       *string         `json:"couponCode,omitempty" db:"coupon_code"`
	CouponID         *uuid.UUID      `json:"-" db:"coupon_id"`
	Notes            *string         `json:"notes,omitempty" db:"notes"`
	GatewaySessionID *string         `json:"gatewaySessionId,omitempty" db:"gateway_session_id"`
	ExpiresAt        *time.Time      `json:"expiresAt,omitempty" db:"expires_at"`
	CreatedAt        time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt        time.Time       `json:"updatedAt" db:"updated_at"`
}

// OrderItem is a line item copied from the catalogue at placement time.
type OrderItem struct {
	ID          uuid.UUID `json:"-" db:"id"`
	OrderID     uuid.UUID `json:"-" db:"order_id"`
	ProductID   string    `json:"productId" db:"product_id"`
	ProductName string    `json:"productName" db:"product_name"`
	Quantity    int       `json:"quantity" db:"quantity"`
	UnitPrice   Money     `json:"unitPrice" db:"unit_price"`
	LineTotal   Money     `json:"lineTotal" db:"line_total"`
}

// PlaceOrderRequest represents the request payload for placing an order.
type PlaceOrderRequest struct {
	UserID        uuid.UUID     `json:"-"`
	AddressID     uuid.UUID     `json:"addressId"`
	PaymentMethod PaymentMethod `json:"paymentMethod"`
	CouponCode    *string       `json:"couponCode,omitempty"`
	Notes         *string       `json:"notes,omitempty"`
}

// PaymentSession is the client-facing handle for an online payment.
type PaymentSession struct {
	Provider    string    `json:"provider"`
	SessionID   string    `json:"sessionId"`
	ClientToken string    `json:"clientToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// PlaceOrderResponse represents the response payload for a placed order.
type PlaceOrderResponse struct {
	OrderID       uuid.UUID       `json:"orderId"`
	OrderNumber   string          `json:"orderNumber"`
	Status        OrderStatus     `json:"status"`
	PaymentStatus PaymentStatus   `json:"paymentStatus"`
	Subtotal      Money           `json:"subtotal"`
	Discount      Money           `json:"discount"`
	DeliveryFee   Money           `json:"deliveryFee"`
	Total         Money           `json:"total"`
	Payment       *PaymentSession `json:"payment,omitempty"`
}

// ConfirmPaymentRequest carries the gateway's signed confirmation.
type ConfirmPaymentRequest struct {
	OrderID   uuid.UUID `json:"-"`
	SessionID string    `json:"sessionId,omitempty"`
	Signature string    `json:"signature"`
	Payload   string    `json:"payload"`
}

// UpdateStatusRequest represents the request payload for an admin status change.
type UpdateStatusRequest struct {
	Status OrderStatus `json:"status"`
}

// OrderResponse represents an order with its line items.
type OrderResponse struct {
	Order
	Items []OrderItem `json:"items"`
}
