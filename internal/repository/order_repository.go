package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"freshcart/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const orderColumns = `
	id, order_number, user_id, address_snapshot, subtotal, discount, delivery_fee, total,
	payment_method, payment_status, status, coupon_code, coupon_id, notes,
	gateway_session_id, expires_at, created_at, updated_at`

// orderRepository implements the OrderRepository interface using PostgreSQL.
type orderRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool *pgxpool.Pool, logger zerolog.Logger) OrderRepository {
	return &orderRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "order").Logger(),
	}
}

// BeginTx starts a new database transaction.
func (r *orderRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

// NextOrderNumber allocates a unique order number of the form FC-<year>-<seq>.
func (r *orderRepository) NextOrderNumber(ctx context.Context, tx pgx.Tx, now time.Time) (string, error) {
	var seq int64
	if err := tx.QueryRow(ctx, `SELECT nextval('order_number_seq')`).Scan(&seq); err != nil {
		r.logger.Error().Err(err).Msg("failed to allocate order number")
		return "", fmt.Errorf("failed to allocate order number: %w", err)
	}
	return fmt.Sprintf("FC-%04d-%06d", now.UTC().Year(), seq), nil
}

// CreateOrder inserts a new order within the provided transaction.
func (r *orderRepository) CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	query := `
		INSERT INTO orders (
			id, order_number, user_id, address_snapshot, subtotal, discount, delivery_fee, total,
			payment_method, payment_status, status, coupon_code, coupon_id, notes,
			gateway_session_id, expires_at, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`

	_, err := tx.Exec(ctx, query,
		order.ID, order.OrderNumber, order.UserID, order.Address,
		int64(order.Subtotal), int64(order.Discount), int64(order.DeliveryFee), int64(order.Total),
		order.PaymentMethod, order.PaymentStatus, order.Status,
		order.CouponCode, order.CouponID, order.Notes,
		order.GatewaySessionID, order.ExpiresAt, order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", order.ID.String()).
			Msg("failed to create order")
		return fmt.Errorf("failed to create order: %w", err)
	}

	r.logger.Debug().
		Str("order_id", order.ID.String()).
		Str("order_number", order.OrderNumber).
		Msg("order created successfully")

	return nil
}

// CreateOrderItems inserts multiple order items within the provided transaction.
func (r *orderRepository) CreateOrderItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error {
	if len(items) == 0 {
		return nil
	}

	query := `
		INSERT INTO order_items (id, order_id, product_id, product_name, quantity, unit_price, line_total)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	batch := &pgx.Batch{}
	for _, item := range items {
		batch.Queue(query, item.ID, item.OrderID, item.ProductID, item.ProductName,
			item.Quantity, int64(item.UnitPrice), int64(item.LineTotal))
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for i := range items {
		if _, err := results.Exec(); err != nil {
			r.logger.Error().
				Err(err).
				Str("order_id", items[i].OrderID.String()).
				Str("product_id", items[i].ProductID).
				Msg("failed to create order item")
			return fmt.Errorf("failed to create order item: %w", err)
		}
	}

	r.logger.Debug().
		Int("count", len(items)).
		Msg("order items created successfully")

	return nil
}

// GetByID retrieves an order by its ID along with its items.
func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, []model.OrderItem, error) {
	return r.get(ctx, r.pool, id, false)
}

// GetForUpdate retrieves and row-locks an order along with its items.
func (r *orderRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Order, []model.OrderItem, error) {
	return r.get(ctx, tx, id, true)
}

func (r *orderRepository) get(ctx context.Context, q querier, id uuid.UUID, lock bool) (*model.Order, []model.OrderItem, error) {
	orderQuery := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	if lock {
		orderQuery += ` FOR UPDATE`
	}

	order, err := scanOrder(q.QueryRow(ctx, orderQuery, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("order_id", id.String()).Msg("order not found")
			return nil, nil, nil
		}
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to query order")
		return nil, nil, fmt.Errorf("failed to query order: %w", err)
	}

	itemsQuery := `
		SELECT id, order_id, product_id, product_name, quantity, unit_price, line_total
		FROM order_items
		WHERE order_id = $1
		ORDER BY product_id
	`

	rows, err := q.Query(ctx, itemsQuery, id)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", id.String()).
			Msg("failed to query order items")
		return nil, nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	items := []model.OrderItem{}
	for rows.Next() {
		var (
			item             model.OrderItem
			unitPrice, total int64
		)
		err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.ProductName,
			&item.Quantity, &unitPrice, &total)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order item row")
			return nil, nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		item.UnitPrice = model.Money(unitPrice)
		item.LineTotal = model.Money(total)
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating order item rows")
		return nil, nil, fmt.Errorf("error iterating order items: %w", err)
	}

	return order, items, nil
}

func scanOrder(row pgx.Row) (*model.Order, error) {
	var (
		o                                   model.Order
		subtotal, discount, fee, orderTotal int64
	)
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.UserID, &o.Address,
		&subtotal, &discount, &fee, &orderTotal,
		&o.PaymentMethod, &o.PaymentStatus, &o.Status,
		&o.CouponCode, &o.CouponID, &o.Notes,
		&o.GatewaySessionID, &o.ExpiresAt, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	o.Subtotal = model.Money(subtotal)
	o.Discount = model.Money(discount)
	o.DeliveryFee = model.Money(fee)
	o.Total = model.Money(orderTotal)
	return &o, nil
}

// UpdateStatus sets both status axes. Leaving PENDING clears the expiry so
// the reclaim sweeper no longer sees the order.
func (r *orderRepository) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status model.OrderStatus, paymentStatus model.PaymentStatus) error {
	query := `
		UPDATE orders
		SET status = $2,
		    payment_status = $3,
		    expires_at = CASE WHEN $2 = 'PENDING' THEN expires_at ELSE NULL END,
		    updated_at = NOW()
		WHERE id = $1
	`

	tag, err := tx.Exec(ctx, query, id, string(status), string(paymentStatus))
	if err != nil {
		r.logger.Error().Err(err).
			Str("order_id", id.String()).
			Str("status", string(status)).
			Msg("failed to update order status")
		return fmt.Errorf("failed to update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrOrderNotFound
	}

	return nil
}

// SetGatewaySession records the payment session opened for an order.
func (r *orderRepository) SetGatewaySession(ctx context.Context, id uuid.UUID, sessionID string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE orders SET gateway_session_id = $2, updated_at = NOW() WHERE id = $1`,
		id, sessionID)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to store gateway session")
		return fmt.Errorf("failed to store gateway session: %w", err)
	}
	return nil
}

// ListExpiredPending returns PENDING online orders whose expiry is before the given time.
func (r *orderRepository) ListExpiredPending(ctx context.Context, before time.Time, limit int) ([]uuid.UUID, error) {
	query := `
		SELECT id
		FROM orders
		WHERE status = 'PENDING' AND payment_method = 'ONLINE' AND expires_at < $1
		ORDER BY expires_at
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, before, limit)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query expired pending orders")
		return nil, fmt.Errorf("failed to query expired pending orders: %w", err)
	}
	defer rows.Close()

	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to scan expired pending orders")
		return nil, fmt.Errorf("failed to scan expired pending orders: %w", err)
	}

	return ids, nil
}
