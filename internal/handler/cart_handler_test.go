package handler

import (
	"errors"
	"net/http"
	"testing"

	"foodkart/internal/model"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testCart() *model.CartResponse {
	return &model.CartResponse{
		UserID:     "user-1",
		Restaurant: &model.Restaurant{ID: "roma-pizzeria", Name: "Roma Pizzeria"},
		Items: []model.CartLine{
			{ItemID: "margherita", Name: "Margherita", UnitPrice: decimal.NewFromInt(10), Quantity: 2},
		},
	}
}

func TestCartHandler_Get(t *testing.T) {
	mockService := new(MockCartService)
	handler := NewCartHandler(mockService, zerolog.Nop())
	mockService.On("Get", mock.Anything, "user-1").Return(testCart(), nil)

	w := serve(t, http.MethodGet, "/api/cart", "/api/cart", nil, "user-1", handler.Get)

	require.Equal(t, http.StatusOK, w.Code)
	var got model.CartResponse
	require.NoError(t, jsonDecode(w, &got))
	require.Len(t, got.Items, 1)
	assert.Equal(t, "margherita", got.Items[0].ItemID)
	assert.True(t, got.Items[0].UnitPrice.Equal(decimal.NewFromInt(10)))
	mockService.AssertExpectations(t)
}

func TestCartHandler_RequiresUser(t *testing.T) {
	mockService := new(MockCartService)
	handler := NewCartHandler(mockService, zerolog.Nop())

	tests := []struct {
		name    string
		method  string
		pattern string
		path    string
		fn      http.HandlerFunc
	}{
		{name: "Get", method: http.MethodGet, pattern: "/api/cart", path: "/api/cart", fn: handler.Get},
		{name: "Put", method: http.MethodPut, pattern: "/api/cart", path: "/api/cart", fn: handler.Put},
		{name: "Clear", method: http.MethodDelete, pattern: "/api/cart", path: "/api/cart", fn: handler.Clear},
		{name: "AddItem", method: http.MethodPost, pattern: "/api/cart/items", path: "/api/cart/items", fn: handler.AddItem},
		{name: "UpdateQuantity", method: http.MethodPut, pattern: "/api/cart/items/{itemId}", path: "/api/cart/items/x", fn: handler.UpdateQuantity},
		{name: "RemoveItem", method: http.MethodDelete, pattern: "/api/cart/items/{itemId}", path: "/api/cart/items/x", fn: handler.RemoveItem},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(t, tt.method, tt.pattern, tt.path, "{}", "", tt.fn)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, model.ErrCodeUnauthorised, decodeErrorBody(t, w).Error)
		})
	}
	mockService.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

func TestCartHandler_Put(t *testing.T) {
	tests := []struct {
		name           string
		body           interface{}
		mockError      error
		expectedStatus int
		expectService  bool
	}{
		{
			name:           "Success",
			body:           model.CartSyncRequest{Restaurant: testCart().Restaurant, Items: testCart().Items},
			expectedStatus: http.StatusOK,
			expectService:  true,
		},
		{
			name:           "Validation error",
			body:           model.CartSyncRequest{Items: testCart().Items},
			mockError:      model.NewDomainError(model.ErrCodeMissingField, "Restaurant is required for a non-empty cart"),
			expectedStatus: http.StatusBadRequest,
			expectService:  true,
		},
		{
			name:           "Invalid JSON",
			body:           "{",
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockCartService)
			handler := NewCartHandler(mockService, zerolog.Nop())
			if tt.expectService {
				ret := testCart()
				if tt.mockError != nil {
					ret = nil
				}
				mockService.On("Sync", mock.Anything, "user-1", mock.AnythingOfType("model.CartSyncRequest")).
					Return(ret, tt.mockError)
			}

			w := serve(t, http.MethodPut, "/api/cart", "/api/cart", tt.body, "user-1", handler.Put)

			assert.Equal(t, tt.expectedStatus, w.Code)
			mockService.AssertExpectations(t)
		})
	}
}

func TestCartHandler_Clear(t *testing.T) {
	mockService := new(MockCartService)
	handler := NewCartHandler(mockService, zerolog.Nop())
	mockService.On("Clear", mock.Anything, "user-1").Return(nil)

	w := serve(t, http.MethodDelete, "/api/cart", "/api/cart", nil, "user-1", handler.Clear)

	assert.Equal(t, http.StatusNoContent, w.Code)
	mockService.AssertExpectations(t)
}

func TestCartHandler_AddItem(t *testing.T) {
	valid := model.CartItemRequest{
		Restaurant: model.Restaurant{ID: "roma-pizzeria"},
		Item:       model.CartLine{ItemID: "margherita", Quantity: 1},
	}

	tests := []struct {
		name           string
		body           interface{}
		mockReturn     *model.CartResponse
		mockError      error
		expectedStatus int
		expectService  bool
	}{
		{name: "Success", body: valid, mockReturn: testCart(), expectedStatus: http.StatusOK, expectService: true},
		{name: "Unknown item", body: valid, mockError: model.ErrMenuItemNotFound, expectedStatus: http.StatusNotFound, expectService: true},
		{name: "Invalid quantity", body: valid, mockError: model.ErrInvalidQuantity, expectedStatus: http.StatusBadRequest, expectService: true},
		{
			name:           "Missing restaurant",
			body:           model.CartItemRequest{Item: model.CartLine{ItemID: "margherita", Quantity: 1}},
			expectedStatus: http.StatusBadRequest,
		},
		{name: "Store failure", body: valid, mockError: errors.New("redis down"), expectedStatus: http.StatusInternalServerError, expectService: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockCartService)
			handler := NewCartHandler(mockService, zerolog.Nop())
			if tt.expectService {
				matchesValid := mock.MatchedBy(func(req model.CartItemRequest) bool {
					return req.Restaurant.ID == valid.Restaurant.ID && req.Item.ItemID == valid.Item.ItemID && req.Item.Quantity == 1
				})
				mockService.On("AddItem", mock.Anything, "user-1", matchesValid).Return(tt.mockReturn, tt.mockError)
			}

			w := serve(t, http.MethodPost, "/api/cart/items", "/api/cart/items", tt.body, "user-1", handler.AddItem)

			assert.Equal(t, tt.expectedStatus, w.Code)
			mockService.AssertExpectations(t)
		})
	}
}

func TestCartHandler_UpdateQuantity(t *testing.T) {
	tests := []struct {
		name           string
		body           interface{}
		quantity       int
		mockError      error
		expectedStatus int
		expectService  bool
	}{
		{name: "Success", body: model.QuantityRequest{Quantity: 3}, quantity: 3, expectedStatus: http.StatusOK, expectService: true},
		{name: "Zero removes", body: model.QuantityRequest{Quantity: 0}, quantity: 0, expectedStatus: http.StatusOK, expectService: true},
		{name: "Line not found", body: model.QuantityRequest{Quantity: 3}, quantity: 3, mockError: model.ErrLineNotFound, expectedStatus: http.StatusNotFound, expectService: true},
		{name: "Invalid JSON", body: "nope", expectedStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockCartService)
			handler := NewCartHandler(mockService, zerolog.Nop())
			if tt.expectService {
				ret := testCart()
				if tt.mockError != nil {
					ret = nil
				}
				mockService.On("UpdateItemQuantity", mock.Anything, "user-1", "margherita", tt.quantity).Return(ret, tt.mockError)
			}

			w := serve(t, http.MethodPut, "/api/cart/items/{itemId}", "/api/cart/items/margherita", tt.body, "user-1", handler.UpdateQuantity)

			assert.Equal(t, tt.expectedStatus, w.Code)
			mockService.AssertExpectations(t)
		})
	}
}

func TestCartHandler_RemoveItem(t *testing.T) {
	mockService := new(MockCartService)
	handler := NewCartHandler(mockService, zerolog.Nop())
	mockService.On("RemoveItem", mock.Anything, "user-1", "margherita").
		Return(&model.CartResponse{UserID: "user-1", Items: []model.CartLine{}}, nil)

	w := serve(t, http.MethodDelete, "/api/cart/items/{itemId}", "/api/cart/items/margherita", nil, "user-1", handler.RemoveItem)

	require.Equal(t, http.StatusOK, w.Code)
	var got model.CartResponse
	require.NoError(t, jsonDecode(w, &got))
	assert.Empty(t, got.Items)
	mockService.AssertExpectations(t)
}
