package handler

import (
	"net/http"

	"foodkart/internal/model"
	"foodkart/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// CartHandler handles the remote pending cart of the calling user.
type CartHandler struct {
	service service.CartService
	logger  zerolog.Logger
}

// NewCartHandler creates a new cart handler.
func NewCartHandler(service service.CartService, logger zerolog.Logger) *CartHandler {
	return &CartHandler{
		service: service,
		logger:  logger.With().Str("handler", "cart").Logger(),
	}
}

// Get handles GET /api/cart requests.
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}

	cart, err := h.service.Get(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err, "failed to retrieve cart", h.logger)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

// Put handles PUT /api/cart requests, replacing the stored cart.
func (h *CartHandler) Put(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}

	var req model.CartSyncRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	cart, err := h.service.Sync(r.Context(), userID, req)
	if err != nil {
		writeServiceError(w, err, "failed to save cart", h.logger)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

// Clear handles DELETE /api/cart requests.
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.service.Clear(r.Context(), userID); err != nil {
		writeServiceError(w, err, "failed to clear cart", h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddItem handles POST /api/cart/items requests.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}

	var req model.CartItemRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}
	if req.Restaurant.ID == "" || req.Item.ItemID == "" {
		writeError(w, http.StatusBadRequest, model.ErrCodeMissingField, "restaurant.id and item.itemId are required", h.logger)
		return
	}

	cart, err := h.service.AddItem(r.Context(), userID, req)
	if err != nil {
		writeServiceError(w, err, "failed to add item", h.logger)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

// UpdateQuantity handles PUT /api/cart/items/{itemId} requests.
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}

	var req model.QuantityRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	cart, err := h.service.UpdateItemQuantity(r.Context(), userID, chi.URLParam(r, "itemId"), req.Quantity)
	if err != nil {
		writeServiceError(w, err, "failed to update item", h.logger)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

// RemoveItem handles DELETE /api/cart/items/{itemId} requests.
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}

	cart, err := h.service.RemoveItem(r.Context(), userID, chi.URLParam(r, "itemId"))
	if err != nil {
		writeServiceError(w, err, "failed to remove item", h.logger)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}
