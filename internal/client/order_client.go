package client

import (
	"context"
	"net/http"

	"foodkart/internal/model"

	"github.com/google/uuid"
)

// OrderClient creates and reads orders.
type OrderClient struct {
	c *Client
}

// NewOrderClient creates an order client.
func NewOrderClient(c *Client) *OrderClient {
	return &OrderClient{c: c}
}

// Create submits draft for the configured user.
func (oc *OrderClient) Create(ctx context.Context, draft model.OrderDraft) (*model.Order, error) {
	var order model.Order
	if err := oc.c.do(ctx, http.MethodPost, "/api/orders", oc.c.userID, draft, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// Get returns an order of the configured user.
func (oc *OrderClient) Get(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	var order model.Order
	if err := oc.c.do(ctx, http.MethodGet, "/api/orders/"+id.String(), oc.c.userID, nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}
