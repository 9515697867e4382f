// Package coupon decides whether a coupon applies to a cart and computes the
// discount it grants.
package coupon

import (
	"context"

	"freshcart/internal/model"

	"github.com/google/uuid"
)

// Validator defines the interface for coupon eligibility checks.
type Validator interface {
	// Validate checks, in order, that the coupon exists, is active, is within
	// its validity window, meets the minimum order amount, and has total and
	// per-user uses left. The first failing check decides the error.
	//
	// The result is advisory: usage limits are enforced again atomically
	// when the order is committed.
	Validate(ctx context.Context, code string, subtotal model.Money, userID uuid.UUID) (*model.DiscountResult, error)
}

// Store is the subset of the coupon repository the validator reads.
type Store interface {
	GetByCode(ctx context.Context, code string) (*model.Coupon, error)
	CountUserRedemptions(ctx context.Context, couponID, userID uuid.UUID) (int, error)
}
