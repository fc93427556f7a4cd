package service

import (
	"context"
	"fmt"
	"time"

	"foodkart/internal/model"
	"foodkart/internal/repository"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// cartService implements CartService.
type cartService struct {
	store       repository.CartStore
	restaurants repository.RestaurantRepository
	group       singleflight.Group
	now         func() time.Time
	logger      zerolog.Logger
}

// NewCartService creates a new cart service.
func NewCartService(store repository.CartStore, restaurants repository.RestaurantRepository, logger zerolog.Logger) CartService {
	return &cartService{
		store:       store,
		restaurants: restaurants,
		now:         time.Now,
		logger:      logger.With().Str("service", "cart").Logger(),
	}
}

// Get collapses concurrent reads of the same cart into one store call.
func (s *cartService) Get(ctx context.Context, userID string) (*model.CartResponse, error) {
	v, err, shared := s.group.Do(userID, func() (interface{}, error) {
		return s.store.Get(ctx, userID)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	if shared {
		s.logger.Debug().Str("user_id", userID).Msg("cart read shared")
	}

	cart, _ := v.(*model.CartResponse)
	if cart == nil {
		return emptyCart(userID), nil
	}

	out := *cart
	out.Items = append([]model.CartLine(nil), cart.Items...)
	return &out, nil
}

func (s *cartService) Sync(ctx context.Context, userID string, req model.CartSyncRequest) (*model.CartResponse, error) {
	if len(req.Items) == 0 {
		if err := s.Clear(ctx, userID); err != nil {
			return nil, err
		}
		return emptyCart(userID), nil
	}

	if req.Restaurant == nil || req.Restaurant.ID == "" {
		return nil, model.NewDomainError(model.ErrCodeMissingField, "Restaurant is required for a non-empty cart")
	}

	seen := make(map[string]bool, len(req.Items))
	for _, line := range req.Items {
		if line.Quantity <= 0 || line.UnitPrice.IsNegative() {
			return nil, model.ErrInvalidQuantity
		}
		if line.ItemID == "" || seen[line.ItemID] {
			return nil, model.NewDomainError(model.ErrCodeMissingField, "Cart items need unique item ids")
		}
		seen[line.ItemID] = true
	}

	cart := &model.CartResponse{
		UserID:     userID,
		Restaurant: req.Restaurant,
		Items:      req.Items,
		UpdatedAt:  s.now().UTC(),
	}
	if err := s.store.Save(ctx, cart); err != nil {
		return nil, fmt.Errorf("failed to save cart: %w", err)
	}

	s.logger.Debug().
		Str("user_id", userID).
		Str("restaurant_id", req.Restaurant.ID).
		Int("items", len(req.Items)).
		Msg("cart synced")

	return cart, nil
}

func (s *cartService) AddItem(ctx context.Context, userID string, req model.CartItemRequest) (*model.CartResponse, error) {
	if req.Item.Quantity <= 0 {
		return nil, model.ErrInvalidQuantity
	}

	rest, err := s.restaurants.GetByID(ctx, req.Restaurant.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get restaurant: %w", err)
	}
	if rest == nil {
		return nil, model.ErrRestaurantNotFound
	}

	items, err := s.restaurants.GetMenuItems(ctx, rest.ID, []string{req.Item.ItemID})
	if err != nil {
		return nil, fmt.Errorf("failed to get menu item: %w", err)
	}
	if len(items) == 0 || !items[0].IsAvailable {
		return nil, model.ErrMenuItemNotFound
	}
	menuItem := items[0]

	cart, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	if cart.Restaurant != nil && cart.Restaurant.ID != rest.ID && len(cart.Items) > 0 {
		s.logger.Info().
			Str("user_id", userID).
			Str("from", cart.Restaurant.ID).
			Str("to", rest.ID).
			Msg("replacing cart from another restaurant")
		cart.Items = nil
	}
	cart.Restaurant = rest

	found := false
	for i := range cart.Items {
		if cart.Items[i].ItemID == menuItem.ID {
			cart.Items[i].Quantity += req.Item.Quantity
			found = true
			break
		}
	}
	if !found {
		cart.Items = append(cart.Items, model.CartLine{
			ItemID:    menuItem.ID,
			Name:      menuItem.Name,
			UnitPrice: menuItem.Price,
			Quantity:  req.Item.Quantity,
		})
	}

	return s.save(ctx, cart)
}

func (s *cartService) UpdateItemQuantity(ctx context.Context, userID, itemID string, qty int) (*model.CartResponse, error) {
	if qty < 0 {
		return nil, model.ErrInvalidQuantity
	}
	if qty == 0 {
		return s.RemoveItem(ctx, userID, itemID)
	}

	cart, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	for i := range cart.Items {
		if cart.Items[i].ItemID == itemID {
			cart.Items[i].Quantity = qty
			return s.save(ctx, cart)
		}
	}
	return nil, model.ErrLineNotFound
}

func (s *cartService) RemoveItem(ctx context.Context, userID, itemID string) (*model.CartResponse, error) {
	cart, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	for i := range cart.Items {
		if cart.Items[i].ItemID == itemID {
			cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
			return s.save(ctx, cart)
		}
	}
	return nil, model.ErrLineNotFound
}

func (s *cartService) Clear(ctx context.Context, userID string) error {
	if err := s.store.Delete(ctx, userID); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	s.logger.Debug().Str("user_id", userID).Msg("cart cleared")
	return nil
}

func (s *cartService) load(ctx context.Context, userID string) (*model.CartResponse, error) {
	cart, err := s.store.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	if cart == nil {
		return emptyCart(userID), nil
	}
	return cart, nil
}

// save persists cart, deleting it once it has no items.
func (s *cartService) save(ctx context.Context, cart *model.CartResponse) (*model.CartResponse, error) {
	if len(cart.Items) == 0 {
		if err := s.Clear(ctx, cart.UserID); err != nil {
			return nil, err
		}
		return emptyCart(cart.UserID), nil
	}

	cart.UpdatedAt = s.now().UTC()
	if err := s.store.Save(ctx, cart); err != nil {
		return nil, fmt.Errorf("failed to save cart: %w", err)
	}
	return cart, nil
}

func emptyCart(userID string) *model.CartResponse {
	return &model.CartResponse{UserID: userID, Items: []model.CartLine{}}
}
