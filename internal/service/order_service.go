package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"
	"unicode/utf8"

	"freshcart/internal/cart"
	"freshcart/internal/coupon"
	"freshcart/internal/model"
	"freshcart/internal/notify"
	"freshcart/internal/payment"
	"freshcart/internal/repository"
	"freshcart/internal/servicearea"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const maxNotesLength = 500

var (
	tracer      = otel.Tracer("freshcart/internal/service")
	notesPolicy = bluemonday.StrictPolicy()
)

// OrderServiceDeps groups the collaborators of the order service.
type OrderServiceDeps struct {
	Orders    repository.OrderRepository
	Products  repository.ProductRepository
	Carts     repository.CartRepository
	Addresses repository.AddressRepository
	Coupons   repository.CouponRepository
	Wallets   repository.WalletRepository
	Areas     servicearea.Resolver
	Snapshots cart.Builder
	Validator coupon.Validator
	Gateway   payment.Gateway
	Notifier  EventNotifier
}

// CheckoutOptions tunes pricing and the online payment flow.
type CheckoutOptions struct {
	Currency              string
	FreeDeliveryThreshold model.Money
	PendingOrderTTL       time.Duration
	GatewayTimeout        time.Duration
	ReclaimBatchSize      int
	Clock                 func() time.Time
}

// orderService implements OrderService.
type orderService struct {
	orders      repository.OrderRepository
	products    repository.ProductRepository
	carts       repository.CartRepository
	addresses   repository.AddressRepository
	coupons     repository.CouponRepository
	wallets     repository.WalletRepository
	areas       servicearea.Resolver
	snapshots   cart.Builder
	validator   coupon.Validator
	gateway     payment.Gateway
	notifier    EventNotifier
	settlements map[model.PaymentMethod]settlement
	opts        CheckoutOptions
	logger      zerolog.Logger
}

// NewOrderService creates a new order service.
func NewOrderService(deps OrderServiceDeps, opts CheckoutOptions, logger zerolog.Logger) OrderService {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Currency == "" {
		opts.Currency = "INR"
	}
	if opts.ReclaimBatchSize <= 0 {
		opts.ReclaimBatchSize = 100
	}

	s := &orderService{
		orders:    deps.Orders,
		products:  deps.Products,
		carts:     deps.Carts,
		addresses: deps.Addresses,
		coupons:   deps.Coupons,
		wallets:   deps.Wallets,
		areas:     deps.Areas,
		snapshots: deps.Snapshots,
		validator: deps.Validator,
		gateway:   deps.Gateway,
		notifier:  deps.Notifier,
		opts:      opts,
		logger:    logger.With().Str("service", "order").Logger(),
	}
	s.settlements = map[model.PaymentMethod]settlement{
		model.PaymentMethodCOD:    codSettlement{coupons: deps.Coupons},
		model.PaymentMethodWallet: walletSettlement{coupons: deps.Coupons, wallets: deps.Wallets},
		model.PaymentMethodOnline: onlineSettlement{coupons: deps.Coupons, ttl: opts.PendingOrderTTL},
	}
	return s
}

// PlaceOrder validates the cart against the address, coupon and catalogue and
// commits the order, stock, coupon usage and wallet debit atomically.
func (s *orderService) PlaceOrder(ctx context.Context, req *model.PlaceOrderRequest) (resp *model.PlaceOrderResponse, err error) {
	ctx, span := tracer.Start(ctx, "OrderService.PlaceOrder")
	defer func() { endSpan(span, err) }()

	if err := s.validatePlaceOrderRequest(req); err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("payment.method", string(req.PaymentMethod)))

	log := s.logger.With().
		Str("user_id", req.UserID.String()).
		Str("payment_method", string(req.PaymentMethod)).
		Logger()

	address, err := s.addresses.Get(ctx, req.AddressID, req.UserID)
	if err != nil {
		log.Error().Err(err).Str("address_id", req.AddressID.String()).Msg("failed to load address")
		return nil, fmt.Errorf("failed to load address: %w", err)
	}
	if address == nil {
		log.Warn().Str("address_id", req.AddressID.String()).Msg("address not found")
		return nil, model.ErrAddressNotFound
	}

	resolution, err := s.areas.Resolve(ctx, address.PostalCode)
	if err != nil {
		log.Error().Err(err).Str("postal_code", address.PostalCode).Msg("failed to resolve service area")
		return nil, err
	}
	if !resolution.IsServiceable || resolution.Terms == nil {
		log.Warn().Str("postal_code", address.PostalCode).Msg("address not serviceable")
		return nil, model.ErrAddressNotServiceable
	}
	terms := resolution.Terms

	snapshot, err := s.snapshots.Build(ctx, req.UserID)
	if err != nil {
		log.Warn().Err(err).Msg("cart snapshot rejected")
		return nil, err
	}

	if snapshot.Subtotal < terms.MinOrderValue {
		shortfall := terms.MinOrderValue - snapshot.Subtotal
		log.Warn().Int64("shortfall", int64(shortfall)).Msg("cart below area minimum")
		return nil, model.NewBelowAreaMinimumError(shortfall)
	}

	var discount *model.DiscountResult
	if req.CouponCode != nil && strings.TrimSpace(*req.CouponCode) != "" {
		discount, err = s.validator.Validate(ctx, *req.CouponCode, snapshot.Subtotal, req.UserID)
		if err != nil {
			log.Warn().Err(err).Str("coupon_code", *req.CouponCode).Msg("coupon rejected")
			return nil, err
		}
	}

	pricing := priceOrder(snapshot.Subtotal, discount, terms.DeliveryFee, s.opts.FreeDeliveryThreshold)

	now := s.opts.Clock().UTC()
	order := &model.Order{
		ID:            uuid.New(),
		UserID:        req.UserID,
		Address:       address.Snapshot(),
		Subtotal:      snapshot.Subtotal,
		Discount:      pricing.discount,
		DeliveryFee:   pricing.deliveryFee,
		Total:         pricing.total,
		PaymentMethod: req.PaymentMethod,
		Notes:         req.Notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if discount != nil {
		order.CouponID = &discount.CouponID
		order.CouponCode = &discount.Code
	}
	span.SetAttributes(attribute.String("order.id", order.ID.String()))

	items := make([]model.OrderItem, len(snapshot.Lines))
	for i, line := range snapshot.Lines {
		items[i] = model.OrderItem{
			ID:          uuid.New(),
			OrderID:     order.ID,
			ProductID:   line.ProductID,
			ProductName: line.Name,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			LineTotal:   line.LineTotal,
		}
	}

	settle := s.settlements[req.PaymentMethod]
	settle.prepare(order, now)

	if err := s.commitOrder(ctx, order, items, settle); err != nil {
		log.Warn().Err(err).Str("order_id", order.ID.String()).Msg("order commit failed")
		return nil, err
	}

	log.Info().
		Str("order_id", order.ID.String()).
		Str("order_number", order.OrderNumber).
		Int64("total", int64(order.Total)).
		Str("status", string(order.Status)).
		Msg("order placed")

	s.emit(ctx, notify.EventOrderCreated, order)

	resp = &model.PlaceOrderResponse{
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		Status:        order.Status,
		PaymentStatus: order.PaymentStatus,
		Subtotal:      order.Subtotal,
		Discount:      order.Discount,
		DeliveryFee:   order.DeliveryFee,
		Total:         order.Total,
	}

	if order.PaymentMethod == model.PaymentMethodOnline {
		session, err := s.openPaymentSession(ctx, order)
		if err != nil {
			return nil, err
		}
		resp.Payment = session
	}

	return resp, nil
}

// commitOrder writes the order and applies every side effect in one transaction.
func (s *orderService) commitOrder(ctx context.Context, order *model.Order, items []model.OrderItem, settle settlement) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		number, err := s.orders.NextOrderNumber(ctx, tx, order.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to allocate order number: %w", err)
		}
		order.OrderNumber = number

		if err := s.orders.CreateOrder(ctx, tx, order); err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}
		if err := s.orders.CreateOrderItems(ctx, tx, items); err != nil {
			return fmt.Errorf("failed to create order items: %w", err)
		}

		// Items arrive sorted by product id, which fixes the lock order.
		for _, item := range items {
			ok, err := s.products.DecrementStock(ctx, tx, item.ProductID, item.Quantity)
			if err != nil {
				return fmt.Errorf("failed to decrement stock: %w", err)
			}
			if !ok {
				return s.stockError(ctx, item.ProductID)
			}
		}

		if err := settle.settle(ctx, tx, order); err != nil {
			return err
		}

		if err := s.carts.Clear(ctx, tx, order.UserID); err != nil {
			return fmt.Errorf("failed to clear cart: %w", err)
		}
		return nil
	})
}

// stockError explains a failed conditional decrement with fresh product state.
func (s *orderService) stockError(ctx context.Context, productID string) error {
	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return fmt.Errorf("failed to read product stock: %w", err)
	}
	if product == nil || !product.IsActive {
		return model.NewProductUnavailableError(productID)
	}
	return model.NewInsufficientStockError(productID, product.Stock)
}

// openPaymentSession opens the gateway session for a committed online order.
// A timeout leaves the order pending for the sweeper; any other gateway
// failure cancels it straight away.
func (s *orderService) openPaymentSession(ctx context.Context, order *model.Order) (*model.PaymentSession, error) {
	gwCtx, cancel := context.WithTimeout(ctx, s.opts.GatewayTimeout)
	defer cancel()

	req := payment.SessionRequest{
		Amount:      order.Total,
		Currency:    s.opts.Currency,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Metadata:    map[string]string{"user_id": order.UserID.String()},
	}
	if order.ExpiresAt != nil {
		req.ExpiresAt = *order.ExpiresAt
	}

	session, err := s.gateway.CreateSession(gwCtx, req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(gwCtx.Err(), context.DeadlineExceeded) {
			s.logger.Warn().
				Err(err).
				Str("order_id", order.ID.String()).
				Dur("timeout", s.opts.GatewayTimeout).
				Msg("payment gateway timed out, order left pending")
			return nil, model.ErrGatewayTimeout.WithDetail("orderId", order.ID.String())
		}

		s.logger.Error().
			Err(err).
			Str("order_id", order.ID.String()).
			Str("gateway", s.gateway.Name()).
			Msg("payment gateway rejected session, cancelling order")

		cancelCtx := context.WithoutCancel(ctx)
		if cancelled, cErr := s.cancelPending(cancelCtx, order.ID, nil, model.PaymentStatusFailed); cErr != nil {
			s.logger.Error().Err(cErr).Str("order_id", order.ID.String()).Msg("failed to cancel order after gateway error")
		} else {
			s.emit(cancelCtx, notify.EventOrderCancelled, &cancelled.Order)
		}
		return nil, model.ErrPaymentGateway.WithDetail("orderId", order.ID.String())
	}

	if err := s.orders.SetGatewaySession(ctx, order.ID, session.ID); err != nil {
		s.logger.Error().
			Err(err).
			Str("order_id", order.ID.String()).
			Str("session_id", session.ID).
			Msg("failed to record gateway session")
	} else {
		order.GatewaySessionID = &session.ID
	}

	return &model.PaymentSession{
		Provider:    s.gateway.Name(),
		SessionID:   session.ID,
		ClientToken: session.ClientToken,
		ExpiresAt:   session.ExpiresAt,
	}, nil
}

// GetByID returns an order with its items for its owner.
func (s *orderService) GetByID(ctx context.Context, orderID, userID uuid.UUID) (*model.OrderResponse, error) {
	order, items, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to get order")
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	if order == nil || order.UserID != userID {
		s.logger.Debug().Str("order_id", orderID.String()).Msg("order not found")
		return nil, model.ErrOrderNotFound
	}

	return &model.OrderResponse{Order: *order, Items: items}, nil
}

// UpdateStatus applies an admin transition. Cancelling restocks the items,
// refunds wallet payments and releases any coupon reservation. Coupon usage
// that was already consumed is kept.
func (s *orderService) UpdateStatus(ctx context.Context, orderID uuid.UUID, next model.OrderStatus) (*model.OrderResponse, error) {
	if !next.Valid() {
		return nil, model.NewInvalidTransitionError("", next)
	}

	var (
		order    *model.Order
		items    []model.OrderItem
		previous model.OrderStatus
	)
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		var err error
		order, items, err = s.orders.GetForUpdate(ctx, tx, orderID)
		if err != nil {
			return fmt.Errorf("failed to lock order: %w", err)
		}
		if order == nil {
			return model.ErrOrderNotFound
		}
		previous = order.Status

		if !model.CanTransition(order.Status, next) {
			return model.NewInvalidTransitionError(order.Status, next)
		}

		awaitingPayment := order.PaymentMethod == model.PaymentMethodOnline && order.Status == model.OrderStatusPending
		if awaitingPayment && next != model.OrderStatusCancelled {
			return model.NewInvalidTransitionError(order.Status, next)
		}

		if next != model.OrderStatusCancelled {
			if err := s.orders.UpdateStatus(ctx, tx, order.ID, next, order.PaymentStatus); err != nil {
				return fmt.Errorf("failed to update order status: %w", err)
			}
			order.Status = next
			return nil
		}

		if awaitingPayment {
			return s.rollbackPending(ctx, tx, order, items, model.PaymentStatusFailed)
		}
		return s.cancelSettled(ctx, tx, order, items)
	})
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("order_id", orderID.String()).
			Str("next", string(next)).
			Msg("status update rejected")
		return nil, err
	}

	s.logger.Info().
		Str("order_id", order.ID.String()).
		Str("from", string(previous)).
		Str("to", string(order.Status)).
		Msg("order status updated")

	if order.Status == model.OrderStatusCancelled {
		s.emit(ctx, notify.EventOrderCancelled, order)
	} else {
		s.emit(ctx, notify.EventOrderStatusChanged, order)
	}

	return &model.OrderResponse{Order: *order, Items: items}, nil
}

// cancelSettled cancels an order whose payment was already settled or
// deferred to delivery.
func (s *orderService) cancelSettled(ctx context.Context, tx pgx.Tx, order *model.Order, items []model.OrderItem) error {
	if err := s.restock(ctx, tx, items); err != nil {
		return err
	}

	paymentStatus := order.PaymentStatus
	switch order.PaymentMethod {
	case model.PaymentMethodWallet:
		if order.PaymentStatus == model.PaymentStatusPaid && order.Total > 0 {
			if err := s.wallets.Credit(ctx, tx, order.UserID, order.ID, order.Total); err != nil {
				return fmt.Errorf("failed to refund wallet: %w", err)
			}
		}
	case model.PaymentMethodCOD:
		paymentStatus = model.PaymentStatusFailed
	case model.PaymentMethodOnline:
		s.logger.Warn().
			Str("order_id", order.ID.String()).
			Int64("total", int64(order.Total)).
			Msg("paid online order cancelled, refund must be issued through the gateway")
	}

	if err := s.orders.UpdateStatus(ctx, tx, order.ID, model.OrderStatusCancelled, paymentStatus); err != nil {
		return fmt.Errorf("failed to cancel order: %w", err)
	}
	order.Status = model.OrderStatusCancelled
	order.PaymentStatus = paymentStatus
	order.ExpiresAt = nil
	return nil
}

func (s *orderService) restock(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error {
	for _, item := range items {
		if err := s.products.IncrementStock(ctx, tx, item.ProductID, item.Quantity); err != nil {
			return fmt.Errorf("failed to restore stock: %w", err)
		}
	}
	return nil
}

// withTx runs fn in a transaction, rolling back when fn or the commit fails.
func (s *orderService) withTx(ctx context.Context, fn func(tx pgx.Tx) error) (err error) {
	tx, err := s.orders.BeginTx(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to begin transaction")
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		s.logger.Error().Err(err).Msg("failed to commit transaction")
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *orderService) emit(ctx context.Context, eventType notify.EventType, order *model.Order) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, notify.OrderEvent(eventType, order, s.opts.Currency))
}

// validatePlaceOrderRequest checks the request and sanitises its notes.
func (s *orderService) validatePlaceOrderRequest(req *model.PlaceOrderRequest) error {
	if req == nil {
		return fmt.Errorf("order request is nil")
	}
	if req.UserID == uuid.Nil {
		return model.NewMissingFieldError("userId")
	}
	if req.AddressID == uuid.Nil {
		return model.NewMissingFieldError("addressId")
	}
	if !req.PaymentMethod.Valid() {
		s.logger.Warn().Str("payment_method", string(req.PaymentMethod)).Msg("invalid payment method")
		return model.ErrInvalidPaymentMethod
	}
	req.Notes = sanitizeNotes(req.Notes)
	return nil
}

// sanitizeNotes strips markup and caps the length. Blank notes become nil.
func sanitizeNotes(notes *string) *string {
	if notes == nil {
		return nil
	}
	clean := strings.TrimSpace(html.UnescapeString(notesPolicy.Sanitize(*notes)))
	if clean == "" {
		return nil
	}
	if utf8.RuneCountInString(clean) > maxNotesLength {
		clean = string([]rune(clean)[:maxNotesLength])
	}
	return &clean
}

type orderPricing struct {
	discount    model.Money
	deliveryFee model.Money
	total       model.Money
}

// priceOrder applies the discount and delivery rules. A zero threshold
// disables free delivery by order value.
func priceOrder(subtotal model.Money, discount *model.DiscountResult, areaFee, freeDeliveryThreshold model.Money) orderPricing {
	var p orderPricing

	p.deliveryFee = areaFee
	if freeDeliveryThreshold > 0 && subtotal >= freeDeliveryThreshold {
		p.deliveryFee = 0
	}
	if discount != nil {
		if discount.FreeDelivery {
			p.deliveryFee = 0
		}
		p.discount = max(0, min(discount.Discount, subtotal+p.deliveryFee))
	}

	p.total = subtotal - p.discount + p.deliveryFee
	return p
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
