// Package payment adapts external payment gateways to the two-phase online
// checkout: a session is opened after the order is committed and the
// gateway's signed confirmation is verified before the order is marked paid.
package payment

import (
	"context"
	"errors"
	"time"

	"freshcart/internal/model"

	"github.com/google/uuid"
)

// SessionRequest captures what a gateway needs to open a payment session.
type SessionRequest struct {
	Amount      model.Money
	Currency    string
	OrderID     uuid.UUID
	OrderNumber string
	Metadata    map[string]string
	ExpiresAt   time.Time
}

// Session is the gateway handle returned to the client.
type Session struct {
	ID          string
	ClientToken string
	ExpiresAt   time.Time
}

// VerifyRequest is a confirmation presented for one order. The gateway must
// prove the payment belongs to OrderID, not merely that it is authentic.
type VerifyRequest struct {
	OrderID   uuid.UUID
	Amount    model.Money
	SessionID string
	Signature string
	Payload   []byte
}

// ErrInvalidWebhook reports a webhook whose signature or body was rejected.
var ErrInvalidWebhook = errors.New("payment: invalid webhook")

// WebhookEvent is an authenticated notification pushed by a gateway.
type WebhookEvent struct {
	OrderID   uuid.UUID
	SessionID string
	Completed bool
}

// WebhookParser is implemented by gateways that push confirmations to a
// single fixed endpoint instead of a per-order URL.
type WebhookParser interface {
	// ParseWebhook authenticates payload and extracts the order it refers
	// to. Forged payloads return ErrInvalidWebhook.
	ParseWebhook(signature string, payload []byte) (*WebhookEvent, error)
}

// Gateway defines the contract payment providers implement.
type Gateway interface {
	// Name identifies the provider in responses and logs.
	Name() string

	// CreateSession opens a payment session for a committed order.
	CreateSession(ctx context.Context, req SessionRequest) (*Session, error)

	// Verify reports whether the request is an authentic confirmation that
	// the order was paid in full. A forged payload, or one for another order
	// or amount, yields false with a nil error; only infrastructure failures
	// return an error.
	Verify(ctx context.Context, req VerifyRequest) (bool, error)
}
