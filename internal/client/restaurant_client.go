package client

import (
	"context"
	"net/http"
	"net/url"

	"foodkart/internal/model"
)

// RestaurantClient reads restaurants and menus.
type RestaurantClient struct {
	c *Client
}

// NewRestaurantClient creates a restaurant client.
func NewRestaurantClient(c *Client) *RestaurantClient {
	return &RestaurantClient{c: c}
}

// Get returns a restaurant.
func (rc *RestaurantClient) Get(ctx context.Context, id string) (*model.Restaurant, error) {
	var r model.Restaurant
	if err := rc.c.do(ctx, http.MethodGet, "/api/restaurants/"+url.PathEscape(id), "", nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// Menu returns the menu of a restaurant.
func (rc *RestaurantClient) Menu(ctx context.Context, id string) ([]model.MenuItem, error) {
	var items []model.MenuItem
	if err := rc.c.do(ctx, http.MethodGet, "/api/restaurants/"+url.PathEscape(id)+"/menu", "", nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// MenuItem returns one item of a restaurant's menu.
func (rc *RestaurantClient) MenuItem(ctx context.Context, restaurantID, itemID string) (*model.MenuItem, error) {
	items, err := rc.Menu(ctx, restaurantID)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if items[i].ID == itemID {
			return &items[i], nil
		}
	}
	return nil, model.ErrMenuItemNotFound
}
