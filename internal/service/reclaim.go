package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"freshcart/internal/model"
	"freshcart/internal/notify"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
)

// ReclaimExpired cancels expired pending online orders in batches. Each order
// is rolled back in its own transaction; failures are collected and the
// sweep moves on.
func (s *orderService) ReclaimExpired(ctx context.Context, now time.Time) (reclaimed int, err error) {
	ctx, span := tracer.Start(ctx, "OrderService.ReclaimExpired")
	defer func() {
		span.SetAttributes(attribute.Int("orders.reclaimed", reclaimed))
		endSpan(span, err)
	}()

	var errs []error
	for {
		ids, err := s.orders.ListExpiredPending(ctx, now, s.opts.ReclaimBatchSize)
		if err != nil {
			s.logger.Error().Err(err).Msg("failed to list expired orders")
			return reclaimed, fmt.Errorf("failed to list expired orders: %w", err)
		}

		progressed := 0
		for _, id := range ids {
			if ctx.Err() != nil {
				return reclaimed, errors.Join(append(errs, ctx.Err())...)
			}

			order, err := s.reclaimOne(ctx, id, now)
			if err != nil {
				s.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to reclaim order")
				errs = append(errs, fmt.Errorf("order %s: %w", id, err))
				continue
			}
			if order == nil {
				continue
			}

			progressed++
			s.logger.Info().
				Str("order_id", order.ID.String()).
				Str("order_number", order.OrderNumber).
				Msg("expired online order reclaimed")
			s.emit(ctx, notify.EventOrderCancelled, order)
		}
		reclaimed += progressed

		if len(ids) < s.opts.ReclaimBatchSize || progressed == 0 {
			break
		}
	}

	return reclaimed, errors.Join(errs...)
}

// reclaimOne rolls back a single expired order. It returns nil without error
// when the order was confirmed or cancelled since it was listed.
func (s *orderService) reclaimOne(ctx context.Context, id uuid.UUID, now time.Time) (*model.Order, error) {
	var reclaimed *model.Order
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		order, items, err := s.orders.GetForUpdate(ctx, tx, id)
		if err != nil {
			return fmt.Errorf("failed to lock order: %w", err)
		}
		if order == nil ||
			order.PaymentMethod != model.PaymentMethodOnline ||
			order.Status != model.OrderStatusPending ||
			order.ExpiresAt == nil ||
			!order.ExpiresAt.Before(now) {
			return nil
		}

		if err := s.rollbackPending(ctx, tx, order, items, model.PaymentStatusFailed); err != nil {
			return err
		}
		reclaimed = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reclaimed, nil
}

// Reclaimer cancels expired pending orders.
type Reclaimer interface {
	ReclaimExpired(ctx context.Context, now time.Time) (int, error)
}

// ReclaimSweeper periodically returns the stock and coupon holds of online
// orders whose payment never arrived.
type ReclaimSweeper struct {
	reclaimer Reclaimer
	interval  time.Duration
	now       func() time.Time
	logger    zerolog.Logger
}

// NewReclaimSweeper creates a sweeper that runs every interval.
func NewReclaimSweeper(reclaimer Reclaimer, interval time.Duration, logger zerolog.Logger) *ReclaimSweeper {
	return &ReclaimSweeper{
		reclaimer: reclaimer,
		interval:  interval,
		now:       time.Now,
		logger:    logger.With().Str("component", "reclaim-sweeper").Logger(),
	}
}

// Run sweeps once immediately and then on every tick until ctx is done.
func (s *ReclaimSweeper) Run(ctx context.Context) {
	s.logger.Info().Dur("interval", s.interval).Msg("reclaim sweeper started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		s.Sweep(ctx)

		select {
		case <-ctx.Done():
			s.logger.Info().Msg("reclaim sweeper stopped")
			return
		case <-ticker.C:
		}
	}
}

// Sweep performs a single reclaim pass.
func (s *ReclaimSweeper) Sweep(ctx context.Context) {
	n, err := s.reclaimer.ReclaimExpired(ctx, s.now().UTC())
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error().Err(err).Int("reclaimed", n).Msg("reclaim sweep finished with errors")
		return
	}
	if n > 0 {
		s.logger.Info().Int("reclaimed", n).Msg("reclaim sweep finished")
	}
}
