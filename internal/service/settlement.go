package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"freshcart/internal/model"
	"freshcart/internal/notify"
	"freshcart/internal/payment"
	"freshcart/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
)

// settlement sets an order's initial state for its payment method and applies
// the method's side effects inside the commit transaction.
type settlement interface {
	prepare(order *model.Order, now time.Time)
	settle(ctx context.Context, tx pgx.Tx, order *model.Order) error
}

// codSettlement confirms immediately and collects payment on delivery.
type codSettlement struct {
	coupons repository.CouponRepository
}

func (c codSettlement) prepare(order *model.Order, _ time.Time) {
	order.Status = model.OrderStatusConfirmed
	order.PaymentStatus = model.PaymentStatusPending
}

func (c codSettlement) settle(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	return redeemCoupon(ctx, tx, c.coupons, order)
}

// walletSettlement pays from the stored balance within the commit.
type walletSettlement struct {
	coupons repository.CouponRepository
	wallets repository.WalletRepository
}

func (w walletSettlement) prepare(order *model.Order, _ time.Time) {
	order.Status = model.OrderStatusConfirmed
	order.PaymentStatus = model.PaymentStatusPaid
}

func (w walletSettlement) settle(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	if err := redeemCoupon(ctx, tx, w.coupons, order); err != nil {
		return err
	}
	ok, err := w.wallets.Debit(ctx, tx, order.UserID, order.ID, order.Total)
	if err != nil {
		return fmt.Errorf("failed to debit wallet: %w", err)
	}
	if !ok {
		return model.ErrInsufficientWalletBalance
	}
	return nil
}

// onlineSettlement holds stock and the coupon while the customer pays at
// the gateway.
type onlineSettlement struct {
	coupons repository.CouponRepository
	ttl     time.Duration
}

func (o onlineSettlement) prepare(order *model.Order, now time.Time) {
	order.Status = model.OrderStatusPending
	order.PaymentStatus = model.PaymentStatusPending
	expiresAt := now.Add(o.ttl)
	order.ExpiresAt = &expiresAt
}

func (o onlineSettlement) settle(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	if order.CouponID == nil {
		return nil
	}
	return o.coupons.Reserve(ctx, tx, *order.CouponID, order.UserID, order.ID)
}

func redeemCoupon(ctx context.Context, tx pgx.Tx, coupons repository.CouponRepository, order *model.Order) error {
	if order.CouponID == nil {
		return nil
	}
	return coupons.Redeem(ctx, tx, *order.CouponID, order.UserID, order.ID)
}

// ConfirmOnlinePayment verifies the gateway's confirmation. A failed
// verification is final: the order is cancelled and its holds released.
func (s *orderService) ConfirmOnlinePayment(ctx context.Context, req *model.ConfirmPaymentRequest) (resp *model.OrderResponse, err error) {
	ctx, span := tracer.Start(ctx, "OrderService.ConfirmOnlinePayment")
	defer func() { endSpan(span, err) }()

	if req == nil {
		return nil, fmt.Errorf("confirm request is nil")
	}
	if req.Signature == "" {
		return nil, model.NewMissingFieldError("signature")
	}
	span.SetAttributes(
		attribute.String("order.id", req.OrderID.String()),
		attribute.String("payment.method", string(model.PaymentMethodOnline)),
	)

	var (
		order     *model.Order
		items     []model.OrderItem
		verified  bool
		confirmed bool
	)
	err = s.withTx(ctx, func(tx pgx.Tx) error {
		var err error
		order, items, err = s.orders.GetForUpdate(ctx, tx, req.OrderID)
		if err != nil {
			return fmt.Errorf("failed to lock order: %w", err)
		}
		if order == nil {
			return model.ErrOrderNotFound
		}
		if order.PaymentMethod != model.PaymentMethodOnline {
			return model.NewInvalidTransitionError(order.Status, model.OrderStatusConfirmed)
		}
		if order.Status == model.OrderStatusConfirmed && order.PaymentStatus == model.PaymentStatusPaid {
			confirmed = true
			return nil
		}
		if order.Status != model.OrderStatusPending {
			return model.NewInvalidTransitionError(order.Status, model.OrderStatusConfirmed)
		}

		sessionID := req.SessionID
		if order.GatewaySessionID != nil {
			if sessionID != "" && sessionID != *order.GatewaySessionID {
				return s.rollbackPending(ctx, tx, order, items, model.PaymentStatusFailed)
			}
			sessionID = *order.GatewaySessionID
		}

		verified, err = s.gateway.Verify(ctx, payment.VerifyRequest{
			OrderID:   order.ID,
			Amount:    order.Total,
			SessionID: sessionID,
			Signature: req.Signature,
			Payload:   []byte(req.Payload),
		})
		if err != nil {
			return fmt.Errorf("failed to verify payment: %w", err)
		}
		if !verified {
			return s.rollbackPending(ctx, tx, order, items, model.PaymentStatusFailed)
		}

		if err := s.orders.UpdateStatus(ctx, tx, order.ID, model.OrderStatusConfirmed, model.PaymentStatusPaid); err != nil {
			return fmt.Errorf("failed to confirm order: %w", err)
		}
		if err := s.coupons.ConfirmReservation(ctx, tx, order.ID); err != nil {
			return err
		}
		order.Status = model.OrderStatusConfirmed
		order.PaymentStatus = model.PaymentStatusPaid
		order.ExpiresAt = nil
		return nil
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("order_id", req.OrderID.String()).Msg("payment confirmation failed")
		return nil, err
	}

	if confirmed {
		s.logger.Debug().Str("order_id", order.ID.String()).Msg("order already confirmed")
		return &model.OrderResponse{Order: *order, Items: items}, nil
	}

	if !verified {
		s.logger.Warn().Str("order_id", order.ID.String()).Msg("payment verification failed, order cancelled")
		s.emit(ctx, notify.EventOrderPaymentFailed, order)
		return nil, model.ErrPaymentVerificationFailed
	}

	s.logger.Info().
		Str("order_id", order.ID.String()).
		Str("order_number", order.OrderNumber).
		Msg("online payment confirmed")
	s.emit(ctx, notify.EventOrderConfirmed, order)

	return &model.OrderResponse{Order: *order, Items: items}, nil
}

// HandlePaymentWebhook authenticates a gateway push and confirms the order
// it names. A forged webhook changes nothing. Authentic events that do not
// complete a session for a known order are acknowledged with a nil order.
func (s *orderService) HandlePaymentWebhook(ctx context.Context, signature string, payload []byte) (resp *model.OrderResponse, err error) {
	ctx, span := tracer.Start(ctx, "OrderService.HandlePaymentWebhook")
	defer func() { endSpan(span, err) }()

	parser, ok := s.gateway.(payment.WebhookParser)
	if !ok {
		s.logger.Warn().Str("gateway", s.gateway.Name()).Msg("gateway does not push webhooks")
		return nil, model.ErrPaymentVerificationFailed
	}

	event, err := parser.ParseWebhook(signature, payload)
	if err != nil {
		if errors.Is(err, payment.ErrInvalidWebhook) {
			return nil, model.ErrPaymentVerificationFailed
		}
		return nil, fmt.Errorf("failed to parse webhook: %w", err)
	}

	if !event.Completed || event.OrderID == uuid.Nil {
		s.logger.Debug().
			Str("session_id", event.SessionID).
			Bool("completed", event.Completed).
			Msg("webhook acknowledged without action")
		return nil, nil
	}
	span.SetAttributes(attribute.String("order.id", event.OrderID.String()))

	return s.ConfirmOnlinePayment(ctx, &model.ConfirmPaymentRequest{
		OrderID:   event.OrderID,
		SessionID: event.SessionID,
		Signature: signature,
		Payload:   string(payload),
	})
}

// CancelPendingOnlineOrder lets the owner abandon an unpaid online order.
func (s *orderService) CancelPendingOnlineOrder(ctx context.Context, orderID, userID uuid.UUID) (resp *model.OrderResponse, err error) {
	ctx, span := tracer.Start(ctx, "OrderService.CancelPendingOnlineOrder")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(
		attribute.String("order.id", orderID.String()),
		attribute.String("payment.method", string(model.PaymentMethodOnline)),
	)

	resp, err = s.cancelPending(ctx, orderID, &userID, model.PaymentStatusFailed)
	if err != nil {
		s.logger.Warn().Err(err).Str("order_id", orderID.String()).Msg("cancel rejected")
		return nil, err
	}

	s.logger.Info().Str("order_id", orderID.String()).Msg("pending online order cancelled")
	s.emit(ctx, notify.EventOrderCancelled, &resp.Order)
	return resp, nil
}

// cancelPending locks a pending online order and rolls it back. When owner
// is set, orders of other users are reported as not found.
func (s *orderService) cancelPending(ctx context.Context, orderID uuid.UUID, owner *uuid.UUID, paymentStatus model.PaymentStatus) (*model.OrderResponse, error) {
	var (
		order *model.Order
		items []model.OrderItem
	)
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		var err error
		order, items, err = s.orders.GetForUpdate(ctx, tx, orderID)
		if err != nil {
			return fmt.Errorf("failed to lock order: %w", err)
		}
		if order == nil || (owner != nil && order.UserID != *owner) {
			return model.ErrOrderNotFound
		}
		if order.PaymentMethod != model.PaymentMethodOnline || order.Status != model.OrderStatusPending {
			return model.NewInvalidTransitionError(order.Status, model.OrderStatusCancelled)
		}
		return s.rollbackPending(ctx, tx, order, items, paymentStatus)
	})
	if err != nil {
		return nil, err
	}
	return &model.OrderResponse{Order: *order, Items: items}, nil
}

// rollbackPending cancels a locked pending online order, returning its stock
// and releasing its coupon reservation.
func (s *orderService) rollbackPending(ctx context.Context, tx pgx.Tx, order *model.Order, items []model.OrderItem, paymentStatus model.PaymentStatus) error {
	if err := s.orders.UpdateStatus(ctx, tx, order.ID, model.OrderStatusCancelled, paymentStatus); err != nil {
		return fmt.Errorf("failed to cancel order: %w", err)
	}
	if err := s.restock(ctx, tx, items); err != nil {
		return err
	}
	if err := s.coupons.ReleaseReservation(ctx, tx, order.ID); err != nil {
		return fmt.Errorf("failed to release coupon reservation: %w", err)
	}

	order.Status = model.OrderStatusCancelled
	order.PaymentStatus = paymentStatus
	order.ExpiresAt = nil
	return nil
}
