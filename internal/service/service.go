package service

import (
	"context"

	"foodkart/internal/model"

	"github.com/google/uuid"
)

// RestaurantService defines read operations on restaurants.
type RestaurantService interface {
	// GetByID retrieves a restaurant. Missing restaurants are ErrRestaurantNotFound.
	GetByID(ctx context.Context, id string) (*model.Restaurant, error)

	// Menu retrieves the menu of a restaurant with pagination.
	Menu(ctx context.Context, restaurantID string, limit, offset int) ([]model.MenuItem, error)
}

// CartService defines operations on the remote pending cart of a user.
type CartService interface {
	// Get returns the stored cart, or an empty one.
	Get(ctx context.Context, userID string) (*model.CartResponse, error)

	// Sync replaces the stored cart. No items clears it.
	Sync(ctx context.Context, userID string, req model.CartSyncRequest) (*model.CartResponse, error)

	// AddItem adds an item. An item from another restaurant replaces the cart.
	AddItem(ctx context.Context, userID string, req model.CartItemRequest) (*model.CartResponse, error)

	// UpdateItemQuantity sets the quantity of an item. Zero removes it.
	UpdateItemQuantity(ctx context.Context, userID, itemID string, qty int) (*model.CartResponse, error)

	RemoveItem(ctx context.Context, userID, itemID string) (*model.CartResponse, error)

	Clear(ctx context.Context, userID string) error
}

// OrderService defines operations for order management.
type OrderService interface {
	// CreateOrder creates an order from draft. Replaying an idempotency key
	// returns the order created the first time.
	CreateOrder(ctx context.Context, customerID string, draft *model.OrderDraft) (*model.Order, error)

	// GetByID retrieves an order of the customer.
	GetByID(ctx context.Context, customerID string, id uuid.UUID) (*model.Order, error)
}

// PaymentLinkService is the sandbox payment-link provider.
type PaymentLinkService interface {
	CreateLink(ctx context.Context, customerID string, req model.CreateLinkRequest) (*model.PaymentLink, error)

	GetStatus(ctx context.Context, linkID string) (*model.LinkStatusReport, error)

	// MarkPaid simulates the customer completing payment.
	MarkPaid(ctx context.Context, linkID, method string) (*model.LinkStatusReport, error)
}
