package repository

import (
	"context"
	"testing"
	"time"

	"freshcart/internal/database"
	"freshcart/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupTestDB starts a PostgreSQL container and applies the application schema.
func setupTestDB(t *testing.T) (*pgxpool.Pool, func()) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping database test in short mode")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	require.NoError(t, database.Migrate(ctx, pool, zerolog.Nop()))

	cleanup := func() {
		pool.Close()
		_ = pgContainer.Terminate(ctx)
	}

	return pool, cleanup
}

// seedProducts inserts test products into the database.
func seedProducts(t *testing.T, pool *pgxpool.Pool, products []model.Product) {
	t.Helper()
	ctx := context.Background()

	query := `
		INSERT INTO products (id, name, category, price, stock, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	for _, p := range products {
		_, err := pool.Exec(ctx, query, p.ID, p.Name, p.Category, int64(p.Price), p.Stock, p.IsActive, p.CreatedAt)
		require.NoError(t, err)
	}
}

// seedCoupon inserts a coupon valid for the surrounding day.
func seedCoupon(t *testing.T, pool *pgxpool.Pool, code string, totalLimit *int, perUserLimit int) uuid.UUID {
	t.Helper()
	id := uuid.New()
	now := time.Now()

	_, err := pool.Exec(context.Background(), `
		INSERT INTO coupons (id, code, discount_type, value, min_order_amount, total_usage_limit,
		                     per_user_usage_limit, valid_from, valid_until, is_active)
		VALUES ($1, $2, 'PERCENTAGE', 10::numeric, 0, $3, $4, $5, $6, TRUE)
	`, id, code, totalLimit, perUserLimit, now.Add(-24*time.Hour), now.Add(24*time.Hour))
	require.NoError(t, err)

	return id
}

// seedOrder inserts a minimal order so rows referencing it can be written.
func seedOrder(t *testing.T, pool *pgxpool.Pool, userID uuid.UUID, status model.OrderStatus, method model.PaymentMethod, expiresAt *time.Time) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	repo := NewOrderRepository(pool, zerolog.Nop())

	tx, err := repo.BeginTx(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	now := time.Now()
	number, err := repo.NextOrderNumber(ctx, tx, now)
	require.NoError(t, err)

	order := &model.Order{
		ID:          uuid.New(),
		OrderNumber: number,
		UserID:      userID,
		Address: model.AddressSnapshot{
			AddressID:     uuid.New(),
			Type:          model.AddressTypeHome,
			RecipientName: "Asha",
			Phone:         "9800000000",
			Line1:         "12 MG Road",
			City:          "Bengaluru",
			State:         "KA",
			PostalCode:    "560001",
		},
		Subtotal:      10000,
		Total:         10000,
		PaymentMethod: method,
		PaymentStatus: model.PaymentStatusPending,
		Status:        status,
		ExpiresAt:     expiresAt,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	require.NoError(t, repo.CreateOrder(ctx, tx, order))
	require.NoError(t, tx.Commit(ctx))

	return order.ID
}

func intPtr(v int) *int { return &v }
