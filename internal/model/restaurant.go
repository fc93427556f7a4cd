package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Restaurant is the restaurant a cart is bound to. Checkout reads the
// minimum order and delivery fee from it.
type Restaurant struct {
	ID           string          `json:"id" db:"id"`
	Name         string          `json:"name" db:"name"`
	MinOrder     decimal.Decimal `json:"minOrder" db:"min_order"`
	DeliveryFee  decimal.Decimal `json:"deliveryFee" db:"delivery_fee"`
	IsOpen       bool            `json:"isOpen" db:"is_open"`
	DeliveryTime string          `json:"deliveryTime,omitempty" db:"delivery_time"`
}

// MenuItem represents a dish on a restaurant's menu.
type MenuItem struct {
	ID           string          `json:"id" db:"id"`
	RestaurantID string          `json:"restaurantId" db:"restaurant_id"`
	Name         string          `json:"name" db:"name"`
	Price        decimal.Decimal `json:"price" db:"price"`
	Category     string          `json:"category" db:"category"`
	IsAvailable  bool            `json:"isAvailable" db:"is_available"`
	CreatedAt    time.Time       `json:"createdAt" db:"created_at"`
}
