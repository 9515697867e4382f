package coupon

import (
	"context"
	"fmt"
	"strings"
	"time"

	"freshcart/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// validator implements Validator on top of the coupon store.
type validator struct {
	store  Store
	now    func() time.Time
	logger zerolog.Logger
}

// Option customises a validator.
type Option func(*validator)

// WithClock replaces the time source used for the validity window.
func WithClock(now func() time.Time) Option {
	return func(v *validator) {
		v.now = now
	}
}

// NewValidator creates a new coupon validator.
func NewValidator(store Store, logger zerolog.Logger, opts ...Option) Validator {
	v := &validator{
		store:  store,
		now:    time.Now,
		logger: logger.With().Str("component", "coupon-validator").Logger(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate checks the coupon against the cart subtotal and the user's history.
func (v *validator) Validate(ctx context.Context, code string, subtotal model.Money, userID uuid.UUID) (*model.DiscountResult, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, model.ErrCouponNotFound
	}

	c, err := v.store.GetByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to look up coupon: %w", err)
	}
	if c == nil {
		v.logger.Debug().Str("code", code).Msg("coupon not found")
		return nil, model.ErrCouponNotFound
	}

	if !c.IsActive {
		return nil, model.ErrCouponInactive
	}

	now := v.now()
	if now.Before(c.ValidFrom) || now.After(c.ValidUntil) {
		v.logger.Debug().
			Str("code", c.Code).
			Time("valid_from", c.ValidFrom).
			Time("valid_until", c.ValidUntil).
			Msg("coupon outside validity window")
		return nil, model.ErrCouponExpired
	}

	if subtotal < c.MinOrderAmount {
		return nil, model.NewCouponBelowMinimumError(c.MinOrderAmount - subtotal)
	}

	if c.TotalUsageLimit != nil && c.UsedCount >= *c.TotalUsageLimit {
		return nil, model.ErrCouponUsageLimitReached
	}

	if c.PerUserUsageLimit > 0 {
		used, err := v.store.CountUserRedemptions(ctx, c.ID, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to count coupon redemptions: %w", err)
		}
		if used >= c.PerUserUsageLimit {
			v.logger.Debug().
				Str("code", c.Code).
				Str("user_id", userID.String()).
				Int("used", used).
				Msg("coupon per-user limit reached")
			return nil, model.ErrCouponPerUserLimit
		}
	}

	result := &model.DiscountResult{
		CouponID:     c.ID,
		Code:         c.Code,
		Type:         c.DiscountType,
		Discount:     ComputeDiscount(c, subtotal),
		FreeDelivery: c.DiscountType == model.DiscountFreeDelivery,
	}

	v.logger.Debug().
		Str("code", c.Code).
		Int64("discount", int64(result.Discount)).
		Msg("coupon validated successfully")

	return result, nil
}
