package repository

import (
	"context"
	"time"

	"foodkart/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// RestaurantRepository defines read access to restaurants and their menus.
type RestaurantRepository interface {
	// GetByID retrieves a restaurant. It returns nil, nil when absent.
	GetByID(ctx context.Context, id string) (*model.Restaurant, error)

	// ListMenu retrieves the menu of a restaurant with pagination support.
	ListMenu(ctx context.Context, restaurantID string, limit, offset int) ([]model.MenuItem, error)

	// GetMenuItems retrieves the listed items of one restaurant.
	GetMenuItems(ctx context.Context, restaurantID string, ids []string) ([]model.MenuItem, error)
}

// OrderRepository defines the interface for order data access operations.
type OrderRepository interface {
	// BeginTx starts a new database transaction.
	BeginTx(ctx context.Context) (pgx.Tx, error)

	// NextOrderNumber allocates a human-readable order number.
	NextOrderNumber(ctx context.Context, tx pgx.Tx) (string, error)

	// CreateOrder inserts a new order within the provided transaction.
	CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error

	// CreateOrderItems inserts multiple order items within the provided transaction.
	CreateOrderItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error

	// GetByID retrieves an order by its ID along with its items.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)

	// GetByIdempotencyKey retrieves the order created for key, if any.
	GetByIdempotencyKey(ctx context.Context, key uuid.UUID) (*model.Order, error)
}

// CartStore holds pending carts keyed by user.
type CartStore interface {
	// Get returns the stored cart. It returns nil, nil when absent.
	Get(ctx context.Context, userID string) (*model.CartResponse, error)

	Save(ctx context.Context, cart *model.CartResponse) error

	Delete(ctx context.Context, userID string) error
}

// PaymentLinkStore holds sandbox payment links.
type PaymentLinkStore interface {
	Save(ctx context.Context, rec *model.PaymentLinkRecord) error

	// Get returns the stored link. It returns nil, nil when absent.
	Get(ctx context.Context, linkID string) (*model.PaymentLinkRecord, error)

	// Update applies fn to the stored link atomically. fn is retried when
	// the link changes concurrently.
	Update(ctx context.Context, linkID string, fn func(rec *model.PaymentLinkRecord) error) (*model.PaymentLinkRecord, error)
}

// linkRetention is how long a payment link stays readable after it expires.
const linkRetention = 24 * time.Hour
