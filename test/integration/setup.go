package integration

import (
	"context"
	"net/http"
	"testing"
	"time"

	"freshcart/internal/cart"
	"freshcart/internal/coupon"
	"freshcart/internal/database"
	"freshcart/internal/handler"
	"freshcart/internal/model"
	"freshcart/internal/notify"
	"freshcart/internal/payment"
	"freshcart/internal/repository"
	"freshcart/internal/router"
	"freshcart/internal/service"
	"freshcart/internal/servicearea"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	testAPIKey        = "test-api-key"
	testSandboxSecret = "sandbox-secret"

	servedPostalCode   = "560001"
	unservedPostalCode = "110001"
)

// TestDB represents a test database instance.
type TestDB struct {
	Container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
	ConnStr   string
}

// SetupTestDB creates a PostgreSQL test container with the application schema.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()

	// Create PostgreSQL container
	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		t.Fatalf("failed to create connection pool: %v", err)
	}

	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("failed to ping database: %v", err)
	}

	if err := database.Migrate(ctx, pool, zerolog.Nop()); err != nil {
		t.Fatalf("failed to apply schema: %v", err)
	}

	t.Cleanup(func() {
		pool.Close()
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	return &TestDB{
		Container: postgresContainer,
		Pool:      pool,
		ConnStr:   connStr,
	}
}

// CleanupDB removes all data from the test database.
func CleanupDB(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	_, err := pool.Exec(context.Background(), `
		TRUNCATE wallet_transactions, wallets, coupon_redemptions, order_items, orders,
		         coupons, cart_lines, addresses, service_areas, products
	`)
	require.NoError(t, err)
}

// App is the fully wired checkout stack over a test database.
type App struct {
	DB       *TestDB
	Handler  http.Handler
	Orders   service.OrderService
	Sandbox  *payment.SandboxGateway
	notifier *notify.Notifier
}

// NewApp wires repositories, services and the router the way the API
// binary does, with the sandbox gateway and a log notifier.
func NewApp(t *testing.T, testDB *TestDB) *App {
	t.Helper()

	logger := zerolog.Nop()
	pool := testDB.Pool

	productRepo := repository.NewProductRepository(pool, logger)
	cartRepo := repository.NewCartRepository(pool, logger)
	couponRepo := repository.NewCouponRepository(pool, logger)

	sandbox, err := payment.NewSandboxGateway(testSandboxSecret, logger)
	require.NoError(t, err)

	notifier := notify.NewNotifier(notify.NewLogSink(logger), 64, logger)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = notifier.Close(ctx)
	})

	orders := service.NewOrderService(service.OrderServiceDeps{
		Orders:    repository.NewOrderRepository(pool, logger),
		Products:  productRepo,
		Carts:     cartRepo,
		Addresses: repository.NewAddressRepository(pool, logger),
		Coupons:   couponRepo,
		Wallets:   repository.NewWalletRepository(pool, logger),
		Areas:     servicearea.NewResolver(repository.NewServiceAreaRepository(pool, logger), logger),
		Snapshots: cart.NewBuilder(cartRepo, productRepo, logger),
		Validator: coupon.NewValidator(couponRepo, logger),
		Gateway:   sandbox,
		Notifier:  notifier,
	}, service.CheckoutOptions{
		Currency:              "INR",
		FreeDeliveryThreshold: 49900,
		PendingOrderTTL:       30 * time.Minute,
		GatewayTimeout:        5 * time.Second,
		ReclaimBatchSize:      10,
	}, logger)

	h := router.New(router.Handlers{
		Products: handler.NewProductHandler(service.NewProductService(productRepo, logger), logger),
		Cart:     handler.NewCartHandler(service.NewCartService(cartRepo, productRepo, logger), logger),
		Orders:   handler.NewOrderHandler(orders, logger),
	}, testAPIKey, logger)

	return &App{
		DB:       testDB,
		Handler:  h,
		Orders:   orders,
		Sandbox:  sandbox,
		notifier: notifier,
	}
}

// SeedProduct inserts a product.
func SeedProduct(t *testing.T, pool *pgxpool.Pool, id string, price model.Money, stock int) {
	t.Helper()

	_, err := pool.Exec(context.Background(), `
		INSERT INTO products (id, name, category, price, stock, is_active)
		VALUES ($1, $2, 'grocery', $3, $4, TRUE)
	`, id, "Product "+id, int64(price), stock)
	require.NoError(t, err)
}

// SeedServiceArea inserts an active service area.
func SeedServiceArea(t *testing.T, pool *pgxpool.Pool, postalCode string, fee, minOrder model.Money) {
	t.Helper()

	_, err := pool.Exec(context.Background(), `
		INSERT INTO service_areas (postal_code, area, city, state, delivery_eta_label, delivery_fee, min_order_value)
		VALUES ($1, 'MG Road', 'Bengaluru', 'KA', '30 mins', $2, $3)
	`, postalCode, int64(fee), int64(minOrder))
	require.NoError(t, err)
}

// SeedAddress inserts an address for userID and returns its id.
func SeedAddress(t *testing.T, pool *pgxpool.Pool, userID uuid.UUID, postalCode string) uuid.UUID {
	t.Helper()

	id := uuid.New()
	_, err := pool.Exec(context.Background(), `
		INSERT INTO addresses (id, user_id, type, recipient_name, phone, line1, city, state, postal_code)
		VALUES ($1, $2, 'HOME', 'Asha Rao', '9876543210', '12 MG Road', 'Bengaluru', 'KA', $3)
	`, id, userID, postalCode)
	require.NoError(t, err)
	return id
}

// SeedCoupon inserts an active percentage coupon valid around now.
func SeedCoupon(t *testing.T, pool *pgxpool.Pool, code string, percent int, minOrder model.Money, totalLimit *int, perUserLimit int) uuid.UUID {
	t.Helper()

	id := uuid.New()
	now := time.Now()
	_, err := pool.Exec(context.Background(), `
		INSERT INTO coupons (id, code, discount_type, value, min_order_amount, total_usage_limit,
		                     per_user_usage_limit, valid_from, valid_until, is_active)
		VALUES ($1, $2, 'PERCENTAGE', $3::numeric, $4, $5, $6, $7, $8, TRUE)
	`, id, code, percent, int64(minOrder), totalLimit, perUserLimit, now.Add(-24*time.Hour), now.Add(24*time.Hour))
	require.NoError(t, err)
	return id
}

// SeedWallet sets the wallet balance for userID.
func SeedWallet(t *testing.T, pool *pgxpool.Pool, userID uuid.UUID, balance model.Money) {
	t.Helper()

	_, err := pool.Exec(context.Background(), `
		INSERT INTO wallets (user_id, balance) VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET balance = EXCLUDED.balance
	`, userID, int64(balance))
	require.NoError(t, err)
}

// SeedCartLine puts a product in the user's cart at its current price.
func SeedCartLine(t *testing.T, pool *pgxpool.Pool, userID uuid.UUID, productID string, quantity int) {
	t.Helper()

	_, err := pool.Exec(context.Background(), `
		INSERT INTO cart_lines (user_id, product_id, quantity, unit_price_at_add)
		SELECT $1, id, $3, price FROM products WHERE id = $2
	`, userID, productID, quantity)
	require.NoError(t, err)
}

// Stock reads the current stock of a product.
func Stock(t *testing.T, pool *pgxpool.Pool, productID string) int {
	t.Helper()

	var stock int
	require.NoError(t, pool.QueryRow(context.Background(),
		`SELECT stock FROM products WHERE id = $1`, productID).Scan(&stock))
	return stock
}

// CouponCounts reads the used and reserved counters of a coupon.
func CouponCounts(t *testing.T, pool *pgxpool.Pool, couponID uuid.UUID) (used, reserved int) {
	t.Helper()

	require.NoError(t, pool.QueryRow(context.Background(),
		`SELECT used_count, reserved_count FROM coupons WHERE id = $1`, couponID).Scan(&used, &reserved))
	return used, reserved
}

// Balance reads a wallet balance.
func Balance(t *testing.T, pool *pgxpool.Pool, userID uuid.UUID) model.Money {
	t.Helper()

	var balance int64
	require.NoError(t, pool.QueryRow(context.Background(),
		`SELECT balance FROM wallets WHERE user_id = $1`, userID).Scan(&balance))
	return model.Money(balance)
}

// CountOrders returns the number of orders in the database.
func CountOrders(t *testing.T, pool *pgxpool.Pool) int {
	t.Helper()

	var n int
	require.NoError(t, pool.QueryRow(context.Background(), `SELECT COUNT(*) FROM orders`).Scan(&n))
	return n
}
