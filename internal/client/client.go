// Package client talks to the foodkart backend API over HTTP.
package client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"foodkart/internal/model"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

// Config holds the connection settings of the API client.
type Config struct {
	BaseURL string
	APIKey  string
	UserID  string
	Timeout time.Duration
}

// APIError is a non-2xx response whose code is not a known domain error.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("api error: status %d", e.Status)
	}
	return fmt.Sprintf("api error: status %d: %s: %s", e.Status, e.Code, e.Message)
}

// Client is the shared HTTP transport of the typed clients.
type Client struct {
	rest   *resty.Client
	userID string
	logger zerolog.Logger
}

// New creates an API client.
func New(cfg Config, logger zerolog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	rest := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json")
	if cfg.APIKey != "" {
		rest.SetHeader("X-API-Key", cfg.APIKey)
	}

	return &Client{
		rest:   rest,
		userID: cfg.UserID,
		logger: logger.With().Str("component", "api-client").Logger(),
	}
}

// do sends one request. body may be nil; out receives the decoded 2xx body
// when non-nil.
func (c *Client) do(ctx context.Context, method, path, userID string, body, out interface{}) error {
	var apiErr model.ErrorResponse

	req := c.rest.R().
		SetContext(ctx).
		SetError(&apiErr)
	if userID != "" {
		req.SetHeader("X-User-ID", userID)
	}
	if body != nil {
		req.SetBody(body)
	}
	if out != nil {
		req.SetResult(out)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		c.logger.Debug().Err(err).Str("method", method).Str("path", path).Msg("request failed")
		return fmt.Errorf("%s %s: %w", method, path, err)
	}

	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode()).
		Dur("duration", resp.Time()).
		Msg("api request")

	if resp.IsError() {
		return decodeError(resp.StatusCode(), apiErr)
	}
	return nil
}

// decodeError maps an error body back to the domain error with the same
// code, keeping the server's message.
func decodeError(status int, body model.ErrorResponse) error {
	if sentinel, ok := model.LookupDomainError(body.Error); ok {
		if body.Message == "" {
			return sentinel
		}
		return model.NewDomainError(body.Error, body.Message)
	}
	if status == http.StatusNotFound && body.Error == "" {
		return &APIError{Status: status, Code: model.ErrCodeNotFound, Message: "not found"}
	}
	return &APIError{Status: status, Code: body.Error, Message: body.Message}
}
