package service

import (
	"context"
	"time"

	"freshcart/internal/model"
	"freshcart/internal/notify"

	"github.com/google/uuid"
)

// ProductService defines operations for browsing the catalogue.
type ProductService interface {
	// List retrieves products matching the filter with pagination.
	List(ctx context.Context, filter model.ProductFilter) ([]model.Product, error)

	// GetByID retrieves a single product by ID.
	GetByID(ctx context.Context, id string) (*model.Product, error)
}

// CartService defines operations on a user's persisted cart.
type CartService interface {
	// GetLines returns the raw cart lines.
	GetLines(ctx context.Context, userID uuid.UUID) ([]model.CartLine, error)

	// SetLine sets the quantity of a product, capturing its current price.
	// A quantity of zero removes the line and returns nil.
	SetLine(ctx context.Context, userID uuid.UUID, productID string, quantity int) (*model.CartLine, error)

	// RemoveLine deletes a line. Removing an absent line is not an error.
	RemoveLine(ctx context.Context, userID uuid.UUID, productID string) error
}

// OrderService defines checkout and order lifecycle operations.
type OrderService interface {
	// PlaceOrder turns the user's cart into an order settled by the
	// requested payment method.
	PlaceOrder(ctx context.Context, req *model.PlaceOrderRequest) (*model.PlaceOrderResponse, error)

	// GetByID returns an order with its items. Only the owner can read it.
	GetByID(ctx context.Context, orderID, userID uuid.UUID) (*model.OrderResponse, error)

	// ConfirmOnlinePayment verifies the gateway confirmation for a pending
	// online order and marks it paid, or cancels it when verification fails.
	ConfirmOnlinePayment(ctx context.Context, req *model.ConfirmPaymentRequest) (*model.OrderResponse, error)

	// HandlePaymentWebhook confirms the order named by an authenticated
	// gateway webhook. It returns a nil order for events it ignores.
	HandlePaymentWebhook(ctx context.Context, signature string, payload []byte) (*model.OrderResponse, error)

	// CancelPendingOnlineOrder abandons an unpaid online order.
	CancelPendingOnlineOrder(ctx context.Context, orderID, userID uuid.UUID) (*model.OrderResponse, error)

	// UpdateStatus applies an admin status transition.
	UpdateStatus(ctx context.Context, orderID uuid.UUID, next model.OrderStatus) (*model.OrderResponse, error)

	// ReclaimExpired cancels pending online orders that expired before now
	// and reports how many were reclaimed.
	ReclaimExpired(ctx context.Context, now time.Time) (int, error)
}

// EventNotifier accepts order events for asynchronous delivery.
type EventNotifier interface {
	Notify(ctx context.Context, event notify.Event)
}
