package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"foodkart/internal/fallback"
	"foodkart/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend serves the subset of the API cartctl talks to.
type fakeBackend struct {
	mu         sync.Mutex
	cart       model.CartResponse
	puts       int
	failPuts   bool
	orders     []model.OrderDraft
	failOrders bool
	rejected   []model.OrderDraft
	// links maps every payment link handed out to its amount. A link counts
	// as paid as soon as its status is read.
	links     map[string]decimal.Decimal
	linkCount int
}

func (f *fakeBackend) handler() http.Handler {
	roma := model.Restaurant{
		ID: "roma-pizzeria", Name: "Roma Pizzeria", IsOpen: true,
		MinOrder: decimal.NewFromInt(15), DeliveryFee: decimal.NewFromInt(3),
	}
	menu := []model.MenuItem{
		{ID: "margherita", RestaurantID: roma.ID, Name: "Margherita", Price: decimal.NewFromInt(10), IsAvailable: true},
	}

	f.mu.Lock()
	if f.links == nil {
		f.links = map[string]decimal.Decimal{}
	}
	f.mu.Unlock()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/restaurants/roma-pizzeria", func(w http.ResponseWriter, r *http.Request) {
		writeTestJSON(w, http.StatusOK, roma)
	})
	mux.HandleFunc("GET /api/restaurants/roma-pizzeria/menu", func(w http.ResponseWriter, r *http.Request) {
		writeTestJSON(w, http.StatusOK, menu)
	})
	mux.HandleFunc("GET /api/cart", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		writeTestJSON(w, http.StatusOK, f.cart)
	})
	mux.HandleFunc("PUT /api/cart", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.puts++
		if f.failPuts {
			writeTestJSON(w, http.StatusInternalServerError, model.ErrorResponse{Error: model.ErrCodeInternalError, Message: "down"})
			return
		}
		var req model.CartSyncRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.cart = model.CartResponse{UserID: r.Header.Get("X-User-ID"), Restaurant: req.Restaurant, Items: req.Items}
		writeTestJSON(w, http.StatusOK, f.cart)
	})
	mux.HandleFunc("POST /api/orders", func(w http.ResponseWriter, r *http.Request) {
		var draft model.OrderDraft
		if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		if f.failOrders {
			f.rejected = append(f.rejected, draft)
			f.mu.Unlock()
			writeTestJSON(w, http.StatusInternalServerError, model.ErrorResponse{Error: model.ErrCodeInternalError, Message: "database unavailable"})
			return
		}
		f.orders = append(f.orders, draft)
		f.mu.Unlock()
		writeTestJSON(w, http.StatusCreated, model.Order{
			ID:            uuid.New(),
			OrderNumber:   "FK-000042",
			Status:        model.OrderStatusConfirmed,
			PaymentMethod: draft.PaymentMethod,
			PaymentLinkID: draft.PaymentLinkID,
			Total:         draft.Total,
		})
	})
	mux.HandleFunc("GET /api/orders/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(r.PathValue("id"))
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		writeTestJSON(w, http.StatusOK, model.Order{
			ID:            id,
			OrderNumber:   "FK-000042",
			Status:        model.OrderStatusConfirmed,
			PaymentMethod: model.PaymentCash,
			Total:         decimal.NewFromInt(23),
		})
	})
	mux.HandleFunc("POST /api/payment/links", func(w http.ResponseWriter, r *http.Request) {
		var req model.CreateLinkRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		f.linkCount++
		id := fmt.Sprintf("L%d", f.linkCount)
		f.links[id] = req.Amount
		f.mu.Unlock()
		writeTestJSON(w, http.StatusCreated, model.PaymentLink{
			LinkID:    id,
			Amount:    req.Amount,
			URL:       "https://pay.test/" + id,
			Status:    model.LinkStatusCreated,
			ExpiresAt: time.Now().Add(15 * time.Minute),
		})
	})
	mux.HandleFunc("GET /api/payment/links/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		f.mu.Lock()
		amount, ok := f.links[id]
		f.mu.Unlock()
		if !ok {
			writeTestJSON(w, http.StatusNotFound, model.ErrorResponse{Error: model.ErrCodePaymentLinkNotFound, Message: "Payment link not found"})
			return
		}
		writeTestJSON(w, http.StatusOK, model.LinkStatusReport{
			LinkID:     id,
			Status:     model.LinkStatusPaid,
			AmountPaid: amount,
			Payments:   []model.Payment{{PaymentID: "pay-" + id, Amount: amount, CompletedAt: time.Now()}},
		})
	})
	return mux
}

func writeTestJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func runCLI(t *testing.T, apiURL, dbPath string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = io.Discard
	app.Reader = strings.NewReader("")

	base := []string{"cartctl", "--api-url", apiURL, "--user", "user-1", "--fallback-db", dbPath, "--debounce", "10ms"}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	err := app.RunContext(ctx, append(base, args...))
	return out.String(), err
}

func TestCartctl_AddSyncsToBackend(t *testing.T) {
	backend := &fakeBackend{}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()
	dbPath := filepath.Join(t.TempDir(), "local.db")

	out, err := runCLI(t, srv.URL, dbPath, "cart", "add", "--restaurant", "roma-pizzeria", "--item", "margherita", "--qty", "2")

	require.NoError(t, err)
	assert.Contains(t, out, "Margherita")
	assert.Contains(t, out, "subtotal 20.00")

	backend.mu.Lock()
	stored := backend.cart
	backend.mu.Unlock()
	require.Len(t, stored.Items, 1)
	assert.Equal(t, 2, stored.Items[0].Quantity)
	assert.Equal(t, "user-1", stored.UserID)

	// The next session restores the cart from the backend.
	out, err = runCLI(t, srv.URL, dbPath, "cart", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "Margherita")
}

func TestCartctl_FallsBackToDeviceCopy(t *testing.T) {
	backend := &fakeBackend{failPuts: true}
	srv := httptest.NewServer(backend.handler())
	dbPath := filepath.Join(t.TempDir(), "local.db")

	_, err := runCLI(t, srv.URL, dbPath, "cart", "add", "--restaurant", "roma-pizzeria", "--item", "margherita")
	require.NoError(t, err)
	srv.Close()

	out, err := runCLI(t, srv.URL, dbPath, "cart", "show")

	require.NoError(t, err)
	assert.Contains(t, out, "using the cart saved on this device")
	assert.Contains(t, out, "Margherita")
}

func TestCartctl_CashCheckout(t *testing.T) {
	backend := &fakeBackend{}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()
	dbPath := filepath.Join(t.TempDir(), "local.db")

	_, err := runCLI(t, srv.URL, dbPath, "cart", "add", "--restaurant", "roma-pizzeria", "--item", "margherita", "--qty", "2")
	require.NoError(t, err)

	out, err := runCLI(t, srv.URL, dbPath, "checkout",
		"--address-id", "addr-1", "--line1", "1 Main St", "--city", "Springfield", "--state", "IL", "--zip", "62701",
		"--method", "cash")

	require.NoError(t, err)
	assert.Contains(t, out, "FK-000042")

	backend.mu.Lock()
	defer backend.mu.Unlock()
	require.Len(t, backend.orders, 1)
	assert.Equal(t, "23.00", backend.orders[0].Subtotal.Add(backend.orders[0].DeliveryFee).StringFixed(2))
	assert.Empty(t, backend.cart.Items, "the cart is cleared after the order")
}

func TestCartctl_CheckoutRejectsEmptyCart(t *testing.T) {
	backend := &fakeBackend{}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	_, err := runCLI(t, srv.URL, filepath.Join(t.TempDir(), "local.db"), "checkout",
		"--address-id", "addr-1", "--line1", "1 Main St", "--city", "Springfield", "--state", "IL", "--zip", "62701")

	assert.ErrorIs(t, err, model.ErrEmptyCart)
	backend.mu.Lock()
	defer backend.mu.Unlock()
	assert.Empty(t, backend.orders)
}

var checkoutAddress = []string{
	"--address-id", "addr-1", "--line1", "1 Main St", "--city", "Springfield", "--state", "IL", "--zip", "62701",
}

func checkoutArgs(method string, extra ...string) []string {
	args := append([]string{"checkout"}, checkoutAddress...)
	args = append(args, "--method", method)
	return append(args, extra...)
}

func fastPolling(t *testing.T) {
	t.Setenv("POLL_INTERVAL", "20ms")
	t.Setenv("POLL_TIMEOUT", "5s")
}

func TestCartctl_PaidOrderFailureSurvivesRestart(t *testing.T) {
	fastPolling(t)
	backend := &fakeBackend{failOrders: true}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()
	dbPath := filepath.Join(t.TempDir(), "local.db")

	_, err := runCLI(t, srv.URL, dbPath, "cart", "add", "--restaurant", "roma-pizzeria", "--item", "margherita", "--qty", "2")
	require.NoError(t, err)

	out, err := runCLI(t, srv.URL, dbPath, checkoutArgs("upi", "--phone", "5551234567")...)
	require.Error(t, err)
	assert.Contains(t, out, "Payment L1 of")
	assert.Contains(t, out, "was received but the order could not be created")

	// A second invocation must not hand out another link for the same cart.
	for _, method := range []string{"upi", "cash"} {
		out, err = runCLI(t, srv.URL, dbPath, checkoutArgs(method, "--phone", "5551234567")...)
		assert.ErrorIs(t, err, model.ErrUnreconciledPayment)
		assert.Contains(t, out, "cartctl order retry")
	}

	out, err = runCLI(t, srv.URL, dbPath, "payment", "evidence")
	require.NoError(t, err)
	assert.Contains(t, out, "pay-L1")

	backend.mu.Lock()
	assert.Equal(t, 1, backend.linkCount)
	require.NotEmpty(t, backend.rejected)
	firstKey := backend.rejected[0].IdempotencyKey
	backend.failOrders = false
	backend.mu.Unlock()

	out, err = runCLI(t, srv.URL, dbPath, "order", "retry")
	require.NoError(t, err)
	assert.Contains(t, out, "FK-000042")

	backend.mu.Lock()
	require.Len(t, backend.orders, 1)
	assert.Equal(t, firstKey, backend.orders[0].IdempotencyKey)
	require.NotNil(t, backend.orders[0].PaymentLinkID)
	assert.Equal(t, "L1", *backend.orders[0].PaymentLinkID)
	assert.Equal(t, 1, backend.linkCount)
	assert.Empty(t, backend.cart.Items, "the cart is cleared once the order exists")
	backend.mu.Unlock()

	out, err = runCLI(t, srv.URL, dbPath, "payment", "evidence")
	require.NoError(t, err)
	assert.Contains(t, out, "no unreconciled payments")

	out, err = runCLI(t, srv.URL, dbPath, "order", "retry")
	require.NoError(t, err)
	assert.Contains(t, out, "nothing to retry")
}

func TestCartctl_PaidLinkFromEndedSessionBlocksCheckout(t *testing.T) {
	fastPolling(t)
	backend := &fakeBackend{}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()
	dbPath := filepath.Join(t.TempDir(), "local.db")

	_, err := runCLI(t, srv.URL, dbPath, "cart", "add", "--restaurant", "roma-pizzeria", "--item", "margherita", "--qty", "2")
	require.NoError(t, err)

	// An earlier invocation created link L9 and exited before polling saw
	// the payment.
	key := uuid.New()
	link := "L9"
	backend.mu.Lock()
	backend.links[link] = decimal.RequireFromString("24.60")
	backend.mu.Unlock()
	db, err := fallback.Open(context.Background(), dbPath, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, fallback.NewAttemptStore(db, zerolog.Nop()).Save(context.Background(), model.CheckoutAttempt{
		OwnerID: "user-1",
		Draft: model.OrderDraft{
			IdempotencyKey: key,
			RestaurantID:   "roma-pizzeria",
			PaymentMethod:  model.PaymentUPI,
			PaymentLinkID:  &link,
			Total:          decimal.RequireFromString("24.60"),
		},
		LinkID: link,
	}))
	require.NoError(t, db.Close())

	_, err = runCLI(t, srv.URL, dbPath, checkoutArgs("upi", "--phone", "5551234567")...)
	assert.ErrorIs(t, err, model.ErrUnreconciledPayment)

	out, err := runCLI(t, srv.URL, dbPath, "order", "retry")
	require.NoError(t, err)
	assert.Contains(t, out, "FK-000042")

	backend.mu.Lock()
	defer backend.mu.Unlock()
	assert.Zero(t, backend.linkCount, "no new link was created")
	require.Len(t, backend.orders, 1)
	assert.Equal(t, key, backend.orders[0].IdempotencyKey)
}

func TestCartctl_OnlineCheckout(t *testing.T) {
	fastPolling(t)
	backend := &fakeBackend{}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()
	dbPath := filepath.Join(t.TempDir(), "local.db")

	_, err := runCLI(t, srv.URL, dbPath, "cart", "add", "--restaurant", "roma-pizzeria", "--item", "margherita", "--qty", "2")
	require.NoError(t, err)

	out, err := runCLI(t, srv.URL, dbPath, checkoutArgs("card", "--phone", "5551234567")...)

	require.NoError(t, err)
	assert.Contains(t, out, "https://pay.test/L1")
	assert.Contains(t, out, "FK-000042")

	// Nothing is left for the next invocation.
	out, err = runCLI(t, srv.URL, dbPath, "order", "retry")
	require.NoError(t, err)
	assert.Contains(t, out, "nothing to retry")
}

func TestCartctl_OrderGet(t *testing.T) {
	backend := &fakeBackend{}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()
	id := uuid.New()

	out, err := runCLI(t, srv.URL, filepath.Join(t.TempDir(), "local.db"), "order", "get", "--id", id.String())

	require.NoError(t, err)
	assert.Contains(t, out, "FK-000042")
	assert.Contains(t, out, id.String())
}

func TestCartctl_OrderGetRejectsBadID(t *testing.T) {
	backend := &fakeBackend{}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	_, err := runCLI(t, srv.URL, filepath.Join(t.TempDir(), "local.db"), "order", "get", "--id", "not-a-uuid")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid order id")
}

func TestCartctl_RequiresUser(t *testing.T) {
	t.Setenv("USER_ID", "")
	app := newApp()
	app.Writer = io.Discard
	app.ErrWriter = io.Discard

	err := app.Run([]string{"cartctl", "--fallback-db", filepath.Join(t.TempDir(), "local.db"), "cart", "show"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "user id is required")
}

func TestAsk(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.input), func(t *testing.T) {
			assert.Equal(t, tt.expected, ask(strings.NewReader(tt.input), io.Discard, "? "))
		})
	}
}
