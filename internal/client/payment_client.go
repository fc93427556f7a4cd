package client

import (
	"context"
	"net/http"
	"net/url"

	"foodkart/internal/model"
)

// PaymentClient is the payment-link provider.
type PaymentClient struct {
	c *Client
}

// NewPaymentClient creates a payment client.
func NewPaymentClient(c *Client) *PaymentClient {
	return &PaymentClient{c: c}
}

// CreateLink creates a payment link.
func (pc *PaymentClient) CreateLink(ctx context.Context, req model.CreateLinkRequest) (*model.PaymentLink, error) {
	var link model.PaymentLink
	if err := pc.c.do(ctx, http.MethodPost, "/api/payment/links", pc.c.userID, req, &link); err != nil {
		return nil, err
	}
	return &link, nil
}

// GetLinkStatus returns the current status of a link.
func (pc *PaymentClient) GetLinkStatus(ctx context.Context, linkID string) (*model.LinkStatusReport, error) {
	var report model.LinkStatusReport
	if err := pc.c.do(ctx, http.MethodGet, "/api/payment/links/"+url.PathEscape(linkID), pc.c.userID, nil, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// MarkPaid simulates the customer paying a sandbox link.
func (pc *PaymentClient) MarkPaid(ctx context.Context, linkID, method string) (*model.LinkStatusReport, error) {
	var report model.LinkStatusReport
	body := map[string]string{"method": method}
	if err := pc.c.do(ctx, http.MethodPost, "/api/payment/links/"+url.PathEscape(linkID)+"/pay", pc.c.userID, body, &report); err != nil {
		return nil, err
	}
	return &report, nil
}
