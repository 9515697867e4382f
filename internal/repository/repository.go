package repository

import (
	"context"
	"time"

	"freshcart/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ProductRepository defines the interface for catalog data access operations.
type ProductRepository interface {
	// GetAll retrieves products matching the filter with pagination support.
	GetAll(ctx context.Context, filter model.ProductFilter) ([]model.Product, error)

	// GetByID retrieves a single product by its ID.
	GetByID(ctx context.Context, id string) (*model.Product, error)

	// GetByIDs retrieves multiple products by their IDs in one query.
	// Unknown IDs are simply absent from the result.
	GetByIDs(ctx context.Context, ids []string) ([]model.Product, error)

	// DecrementStock removes quantity units if the product is active and has
	// enough stock. It reports false when the conditional update matched no row.
	DecrementStock(ctx context.Context, tx pgx.Tx, productID string, quantity int) (bool, error)

	// IncrementStock returns quantity units to a product.
	IncrementStock(ctx context.Context, tx pgx.Tx, productID string, quantity int) error
}

// CartRepository defines the interface for persisted cart lines.
type CartRepository interface {
	GetLines(ctx context.Context, userID uuid.UUID) ([]model.CartLine, error)
	UpsertLine(ctx context.Context, line *model.CartLine) error
	RemoveLine(ctx context.Context, userID uuid.UUID, productID string) error

	// Clear deletes every line of the user's cart within the provided transaction.
	Clear(ctx context.Context, tx pgx.Tx, userID uuid.UUID) error
}

// AddressRepository defines the interface for the user address book.
type AddressRepository interface {
	// Get returns the address only when it belongs to userID.
	Get(ctx context.Context, addressID, userID uuid.UUID) (*model.Address, error)

	// Create inserts an address. A default address replaces the prior default.
	Create(ctx context.Context, address *model.Address) error

	// SetDefault marks an owned address as the user's only default.
	SetDefault(ctx context.Context, addressID, userID uuid.UUID) error
}

// ServiceAreaRepository defines the interface for delivery reference data.
type ServiceAreaRepository interface {
	// GetActiveByPostalCode returns nil when no active record matches exactly.
	GetActiveByPostalCode(ctx context.Context, postalCode string) (*model.ServiceArea, error)

	// Upsert inserts or replaces areas keyed by postal code in one batch.
	Upsert(ctx context.Context, areas []model.ServiceArea) error
}

// CouponRepository defines the interface for coupon lookups and usage accounting.
type CouponRepository interface {
	// GetByCode looks a coupon up case-insensitively.
	GetByCode(ctx context.Context, code string) (*model.Coupon, error)

	// CountUserRedemptions counts reserved and redeemed uses by one user.
	CountUserRedemptions(ctx context.Context, couponID, userID uuid.UUID) (int, error)

	// Redeem consumes one use of the coupon for a committed order.
	Redeem(ctx context.Context, tx pgx.Tx, couponID, userID, orderID uuid.UUID) error

	// Reserve holds one use of the coupon for an order awaiting payment.
	Reserve(ctx context.Context, tx pgx.Tx, couponID, userID, orderID uuid.UUID) error

	// ConfirmReservation turns the order's reservation into a redemption.
	ConfirmReservation(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) error

	// ReleaseReservation frees the order's reservation, if it holds one.
	ReleaseReservation(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) error
}

// WalletRepository defines the interface for stored-value wallets.
type WalletRepository interface {
	// GetBalance returns zero for users without a wallet.
	GetBalance(ctx context.Context, userID uuid.UUID) (model.Money, error)

	// Debit removes amount when the balance covers it and records a ledger
	// entry. It reports false when the balance is too low.
	Debit(ctx context.Context, tx pgx.Tx, userID, orderID uuid.UUID, amount model.Money) (bool, error)

	// Credit adds amount, creating the wallet if needed, and records a ledger entry.
	Credit(ctx context.Context, tx pgx.Tx, userID, orderID uuid.UUID, amount model.Money) error
}

// OrderRepository defines the interface for order data access operations.
type OrderRepository interface {
	// BeginTx starts a new database transaction.
	BeginTx(ctx context.Context) (pgx.Tx, error)

	// NextOrderNumber allocates a unique human-readable order number.
	NextOrderNumber(ctx context.Context, tx pgx.Tx, now time.Time) (string, error)

	// CreateOrder inserts a new order within the provided transaction.
	CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error

	// CreateOrderItems inserts multiple order items within the provided transaction.
	CreateOrderItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error

	// GetByID retrieves an order by its ID along with its items.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, []model.OrderItem, error)

	// GetForUpdate retrieves and row-locks an order along with its items.
	GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Order, []model.OrderItem, error)

	// UpdateStatus sets both status axes. Leaving PENDING clears the expiry.
	UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status model.OrderStatus, paymentStatus model.PaymentStatus) error

	// SetGatewaySession records the payment session opened for an order.
	SetGatewaySession(ctx context.Context, id uuid.UUID, sessionID string) error

	// ListExpiredPending returns PENDING online orders whose expiry is before the given time.
	ListExpiredPending(ctx context.Context, before time.Time, limit int) ([]uuid.UUID, error)
}
