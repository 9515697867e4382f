package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"freshcart/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type couponRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewCouponRepository creates a new PostgreSQL-backed coupon repository.
func NewCouponRepository(pool *pgxpool.Pool, logger zerolog.Logger) CouponRepository {
	return &couponRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "coupon").Logger(),
	}
}

// GetByCode looks a coupon up case-insensitively.
func (r *couponRepository) GetByCode(ctx context.Context, code string) (*model.Coupon, error) {
	query := `
		SELECT id, code, discount_type, value::text, min_order_amount, max_discount_amount,
		       total_usage_limit, per_user_usage_limit, valid_from, valid_until,
		       is_active, used_count, reserved_count, created_at
		FROM coupons
		WHERE LOWER(code) = LOWER($1)
	`

	var (
		c           model.Coupon
		value       string
		minOrder    int64
		maxDiscount *int64
	)
	err := r.pool.QueryRow(ctx, query, strings.TrimSpace(code)).Scan(
		&c.ID, &c.Code, &c.DiscountType, &value, &minOrder, &maxDiscount,
		&c.TotalUsageLimit, &c.PerUserUsageLimit, &c.ValidFrom, &c.ValidUntil,
		&c.IsActive, &c.UsedCount, &c.ReservedCount, &c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("code", code).Msg("coupon not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("code", code).Msg("failed to query coupon")
		return nil, fmt.Errorf("failed to query coupon: %w", err)
	}

	c.Value, err = decimal.NewFromString(value)
	if err != nil {
		return nil, fmt.Errorf("failed to parse coupon value %q: %w", value, err)
	}
	c.MinOrderAmount = model.Money(minOrder)
	if maxDiscount != nil {
		m := model.Money(*maxDiscount)
		c.MaxDiscountAmount = &m
	}

	return &c, nil
}

// CountUserRedemptions counts reserved and redeemed uses by one user.
func (r *couponRepository) CountUserRedemptions(ctx context.Context, couponID, userID uuid.UUID) (int, error) {
	return r.countUserRedemptions(ctx, r.pool, couponID, userID)
}

func (r *couponRepository) countUserRedemptions(ctx context.Context, q querier, couponID, userID uuid.UUID) (int, error) {
	var count int
	err := q.QueryRow(ctx,
		`SELECT COUNT(*) FROM coupon_redemptions WHERE coupon_id = $1 AND user_id = $2`,
		couponID, userID,
	).Scan(&count)
	if err != nil {
		r.logger.Error().Err(err).
			Str("coupon_id", couponID.String()).
			Str("user_id", userID.String()).
			Msg("failed to count coupon redemptions")
		return 0, fmt.Errorf("failed to count coupon redemptions: %w", err)
	}
	return count, nil
}

// Redeem consumes one use of the coupon for a committed order.
func (r *couponRepository) Redeem(ctx context.Context, tx pgx.Tx, couponID, userID, orderID uuid.UUID) error {
	return r.claim(ctx, tx, "used_count", model.RedemptionRedeemed, couponID, userID, orderID)
}

// Reserve holds one use of the coupon for an order awaiting payment.
func (r *couponRepository) Reserve(ctx context.Context, tx pgx.Tx, couponID, userID, orderID uuid.UUID) error {
	return r.claim(ctx, tx, "reserved_count", model.RedemptionReserved, couponID, userID, orderID)
}

// claim increments counter under the total usage limit, then checks the
// per-user limit while the coupon row lock taken by the update is held.
// Callers roll the transaction back on error.
func (r *couponRepository) claim(ctx context.Context, tx pgx.Tx, counter string, status model.RedemptionStatus, couponID, userID, orderID uuid.UUID) error {
	query := `
		UPDATE coupons
		SET ` + counter + ` = ` + counter + ` + 1, updated_at = NOW()
		WHERE id = $1
		  AND (total_usage_limit IS NULL OR used_count + reserved_count < total_usage_limit)
		RETURNING per_user_usage_limit
	`

	var perUserLimit int
	if err := tx.QueryRow(ctx, query, couponID).Scan(&perUserLimit); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Warn().Str("coupon_id", couponID.String()).Msg("coupon usage limit reached at commit")
			return model.ErrCouponUsageLimitReached
		}
		r.logger.Error().Err(err).Str("coupon_id", couponID.String()).Msg("failed to claim coupon")
		return fmt.Errorf("failed to claim coupon: %w", err)
	}

	if perUserLimit > 0 {
		used, err := r.countUserRedemptions(ctx, tx, couponID, userID)
		if err != nil {
			return err
		}
		if used >= perUserLimit {
			r.logger.Warn().
				Str("coupon_id", couponID.String()).
				Str("user_id", userID.String()).
				Int("used", used).
				Msg("coupon per-user limit reached at commit")
			return model.ErrCouponPerUserLimit
		}
	}

	_, err := tx.Exec(ctx, `
		INSERT INTO coupon_redemptions (id, coupon_id, user_id, order_id, status)
		VALUES ($1, $2, $3, $4, $5)
	`, uuid.New(), couponID, userID, orderID, status)
	if err != nil {
		r.logger.Error().Err(err).
			Str("coupon_id", couponID.String()).
			Str("order_id", orderID.String()).
			Msg("failed to record coupon redemption")
		return fmt.Errorf("failed to record coupon redemption: %w", err)
	}

	return nil
}

// ConfirmReservation turns the order's reservation into a redemption. Orders
// without a reservation are left untouched.
func (r *couponRepository) ConfirmReservation(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) error {
	var couponID uuid.UUID
	err := tx.QueryRow(ctx, `
		UPDATE coupon_redemptions
		SET status = 'REDEEMED'
		WHERE order_id = $1 AND status = 'RESERVED'
		RETURNING coupon_id
	`, orderID).Scan(&couponID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		r.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to confirm coupon reservation")
		return fmt.Errorf("failed to confirm coupon reservation: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE coupons
		SET reserved_count = reserved_count - 1, used_count = used_count + 1, updated_at = NOW()
		WHERE id = $1
	`, couponID)
	if err != nil {
		r.logger.Error().Err(err).Str("coupon_id", couponID.String()).Msg("failed to convert coupon reservation")
		return fmt.Errorf("failed to convert coupon reservation: %w", err)
	}

	return nil
}

// ReleaseReservation frees the order's reservation, if it holds one.
func (r *couponRepository) ReleaseReservation(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) error {
	var couponID uuid.UUID
	err := tx.QueryRow(ctx, `
		DELETE FROM coupon_redemptions
		WHERE order_id = $1 AND status = 'RESERVED'
		RETURNING coupon_id
	`, orderID).Scan(&couponID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		r.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to delete coupon reservation")
		return fmt.Errorf("failed to delete coupon reservation: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE coupons
		SET reserved_count = reserved_count - 1, updated_at = NOW()
		WHERE id = $1
	`, couponID)
	if err != nil {
		r.logger.Error().Err(err).Str("coupon_id", couponID.String()).Msg("failed to release coupon reservation")
		return fmt.Errorf("failed to release coupon reservation: %w", err)
	}

	r.logger.Debug().
		Str("coupon_id", couponID.String()).
		Str("order_id", orderID.String()).
		Msg("coupon reservation released")

	return nil
}
