package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentMethod is how the customer pays for an order.
type PaymentMethod string

const (
	PaymentCash       PaymentMethod = "cash"
	PaymentUPI        PaymentMethod = "upi"
	PaymentCard       PaymentMethod = "card"
	PaymentNetBanking PaymentMethod = "netbanking"
	PaymentWallet     PaymentMethod = "wallet"
)

// Valid reports whether m is a supported payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentUPI, PaymentCard, PaymentNetBanking, PaymentWallet:
		return true
	}
	return false
}

// IsOnline reports whether m is settled through a payment link.
func (m PaymentMethod) IsOnline() bool {
	return m.Valid() && m != PaymentCash
}

// OrderStatus is the lifecycle status of a persisted order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// OrderDraft is a not-yet-persisted order assembled at checkout.
type OrderDraft struct {
	IdempotencyKey      uuid.UUID       `json:"idempotencyKey"`
	RestaurantID        string          `json:"restaurantId"`
	Lines               []CartLine      `json:"lines"`
	DeliveryAddressID   string          `json:"deliveryAddressId"`
	SpecialInstructions string          `json:"specialInstructions,omitempty"`
	PaymentMethod       PaymentMethod   `json:"paymentMethod"`
	Subtotal            decimal.Decimal `json:"subtotal"`
	DeliveryFee         decimal.Decimal `json:"deliveryFee"`
	Tax                 decimal.Decimal `json:"tax"`
	Total               decimal.Decimal `json:"total"`
	PaymentLinkID       *string         `json:"paymentLinkId,omitempty"`
}

// Order represents a customer order accepted by the backend.
type Order struct {
	ID                  uuid.UUID       `json:"id" db:"id"`
	OrderNumber         string          `json:"orderNumber" db:"order_number"`
	IdempotencyKey      uuid.UUID       `json:"idempotencyKey" db:"idempotency_key"`
	CustomerID          string          `json:"customerId" db:"customer_id"`
	RestaurantID        string          `json:"restaurantId" db:"restaurant_id"`
	Status              OrderStatus     `json:"status" db:"status"`
	PaymentMethod       PaymentMethod   `json:"paymentMethod" db:"payment_method"`
	PaymentLinkID       *string         `json:"paymentLinkId,omitempty" db:"payment_link_id"`
	DeliveryAddressID   string          `json:"deliveryAddressId" db:"delivery_address_id"`
	SpecialInstructions string          `json:"specialInstructions,omitempty" db:"special_instructions"`
	Subtotal            decimal.Decimal `json:"subtotal" db:"subtotal"`
	DeliveryFee         decimal.Decimal `json:"deliveryFee" db:"delivery_fee"`
	Tax                 decimal.Decimal `json:"tax" db:"tax"`
	Total               decimal.Decimal `json:"total" db:"total"`
	Items               []OrderItem     `json:"items"`
	CreatedAt           time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt           time.Time       `json:"updatedAt" db:"updated_at"`
}

// OrderItem represents a line item in an order.
type OrderItem struct {
	ID         uuid.UUID       `json:"-" db:"id"`
	OrderID    uuid.UUID       `json:"-" db:"order_id"`
	MenuItemID string          `json:"menuItemId" db:"menu_item_id"`
	Name       string          `json:"name" db:"name"`
	UnitPrice  decimal.Decimal `json:"unitPrice" db:"unit_price"`
	Quantity   int             `json:"quantity" db:"quantity"`
}
