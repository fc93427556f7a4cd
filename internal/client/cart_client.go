package client

import (
	"context"
	"net/http"
	"net/url"

	"foodkart/internal/model"
)

// CartClient is the remote pending cart.
type CartClient struct {
	c *Client
}

// NewCartClient creates a cart client.
func NewCartClient(c *Client) *CartClient {
	return &CartClient{c: c}
}

// Get returns the stored cart of ownerID, or nil when it is empty.
func (cc *CartClient) Get(ctx context.Context, ownerID string) (*model.CartSnapshot, error) {
	var resp model.CartResponse
	if err := cc.c.do(ctx, http.MethodGet, "/api/cart", ownerID, nil, &resp); err != nil {
		return nil, err
	}
	if len(resp.Items) == 0 {
		return nil, nil
	}
	return &model.CartSnapshot{
		OwnerID:       ownerID,
		Restaurant:    resp.Restaurant,
		Lines:         resp.Items,
		LastMutatedAt: resp.UpdatedAt,
	}, nil
}

// Put replaces the stored cart with snapshot. An empty snapshot clears it.
func (cc *CartClient) Put(ctx context.Context, snapshot model.CartSnapshot) error {
	req := model.CartSyncRequest{
		Items:      snapshot.Lines,
		Restaurant: snapshot.Restaurant,
	}
	if req.Items == nil {
		req.Items = []model.CartLine{}
	}
	return cc.c.do(ctx, http.MethodPut, "/api/cart", snapshot.OwnerID, req, nil)
}

// AddItem adds one item to the stored cart.
func (cc *CartClient) AddItem(ctx context.Context, ownerID string, restaurant model.Restaurant, line model.CartLine) (*model.CartResponse, error) {
	var resp model.CartResponse
	req := model.CartItemRequest{Restaurant: restaurant, Item: line}
	if err := cc.c.do(ctx, http.MethodPost, "/api/cart/items", ownerID, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UpdateQuantity sets the quantity of a stored item. Zero removes it.
func (cc *CartClient) UpdateQuantity(ctx context.Context, ownerID, itemID string, qty int) (*model.CartResponse, error) {
	var resp model.CartResponse
	path := "/api/cart/items/" + url.PathEscape(itemID)
	if err := cc.c.do(ctx, http.MethodPut, path, ownerID, model.QuantityRequest{Quantity: qty}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RemoveItem removes a stored item.
func (cc *CartClient) RemoveItem(ctx context.Context, ownerID, itemID string) (*model.CartResponse, error) {
	var resp model.CartResponse
	path := "/api/cart/items/" + url.PathEscape(itemID)
	if err := cc.c.do(ctx, http.MethodDelete, path, ownerID, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Clear deletes the stored cart.
func (cc *CartClient) Clear(ctx context.Context, ownerID string) error {
	return cc.c.do(ctx, http.MethodDelete, "/api/cart", ownerID, nil, nil)
}
