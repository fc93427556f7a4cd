package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"foodkart/internal/database"
	"foodkart/internal/handler"
	"foodkart/internal/repository"
	"foodkart/internal/router"
	"foodkart/internal/service"

	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const testAPIKey = "test-api-key"

// TestEnv is a running backend: migrated PostgreSQL, an in-memory redis and
// the full HTTP stack in front of them.
type TestEnv struct {
	Pool    *pgxpool.Pool
	Redis   *miniredis.Miniredis
	Handler http.Handler
	Server  *httptest.Server
}

// SetupTestEnv starts a PostgreSQL container, applies the migrations with the
// demo restaurants and wires the API against it.
func SetupTestEnv(t *testing.T) *TestEnv {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()

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
	t.Cleanup(func() {
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		t.Fatalf("failed to create connection pool: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("failed to ping database: %v", err)
	}

	logger := zerolog.Nop()
	if err := database.Migrate(pool, logger); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	h := newHandler(pool, rdb, logger)
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	return &TestEnv{Pool: pool, Redis: mr, Handler: h, Server: srv}
}

func newHandler(pool *pgxpool.Pool, rdb *redis.Client, logger zerolog.Logger) http.Handler {
	restaurantRepo := repository.NewRestaurantRepository(pool, logger)
	orderRepo := repository.NewOrderRepository(pool, logger)
	cartStore := repository.NewRedisCartStore(rdb, time.Hour, logger)
	linkStore := repository.NewRedisPaymentLinkStore(rdb, logger)

	return router.New(router.Handlers{
		Restaurant: handler.NewRestaurantHandler(service.NewRestaurantService(restaurantRepo, logger), logger),
		Cart:       handler.NewCartHandler(service.NewCartService(cartStore, restaurantRepo, logger), logger),
		Order: handler.NewOrderHandler(
			service.NewOrderService(orderRepo, restaurantRepo, cartStore, linkStore, logger), logger),
		Payment: handler.NewPaymentHandler(
			service.NewPaymentLinkService(linkStore, "https://pay.test/", 15*time.Minute, logger), logger),
	}, testAPIKey, logger)
}

// Reset removes orders and every redis key. The seeded restaurants stay.
func (e *TestEnv) Reset(t *testing.T) {
	t.Helper()

	ctx := context.Background()
	for _, table := range []string{"order_items", "orders"} {
		if _, err := e.Pool.Exec(ctx, "DELETE FROM "+table); err != nil {
			t.Logf("failed to clean table %s: %v", table, err)
		}
	}
	e.Redis.FlushAll()
}

// Do sends one authenticated request straight to the handler.
func (e *TestEnv) Do(t *testing.T, method, path, userID string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", testAPIKey)
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}

	w := httptest.NewRecorder()
	e.Handler.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(w.Body).Decode(v), "body: %s", w.Body.String())
}
