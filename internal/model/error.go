package model

import "errors"

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Standard error codes for API responses and domain failures
const (
	ErrCodeInvalidJSON          = "INVALID_JSON"
	ErrCodeMissingField         = "MISSING_FIELD"
	ErrCodeUnauthorised         = "UNAUTHORIZED"
	ErrCodeInternalError        = "INTERNAL_ERROR"
	ErrCodeNotFound             = "NOT_FOUND"
	ErrCodeInvalidQuantity      = "INVALID_QUANTITY"
	ErrCodeLineNotFound         = "LINE_NOT_FOUND"
	ErrCodeRestaurantMismatch   = "RESTAURANT_MISMATCH"
	ErrCodeRestaurantNotFound   = "RESTAURANT_NOT_FOUND"
	ErrCodeRestaurantClosed     = "RESTAURANT_CLOSED"
	ErrCodeMenuItemNotFound     = "MENU_ITEM_NOT_FOUND"
	ErrCodeEmptyCart            = "EMPTY_CART"
	ErrCodeAddressRequired      = "ADDRESS_REQUIRED"
	ErrCodeInvalidAddress       = "INVALID_ADDRESS"
	ErrCodeMinimumOrderNotMet   = "MINIMUM_ORDER_NOT_MET"
	ErrCodeInvalidPhone         = "INVALID_PHONE"
	ErrCodeInvalidPaymentMethod = "INVALID_PAYMENT_METHOD"
	ErrCodeInvalidAmount        = "INVALID_AMOUNT"
	ErrCodeTotalsMismatch       = "TOTALS_MISMATCH"
	ErrCodeCheckoutInProgress   = "CHECKOUT_IN_PROGRESS"
	ErrCodeUnreconciledPayment  = "UNRECONCILED_PAYMENT"
	ErrCodeOrderNotFound        = "ORDER_NOT_FOUND"
	ErrCodePaymentLinkNotFound  = "PAYMENT_LINK_NOT_FOUND"
	ErrCodePaymentLinkExpired   = "PAYMENT_LINK_EXPIRED"
	ErrCodePaymentNotCompleted  = "PAYMENT_NOT_COMPLETED"
	ErrCodePaymentLinkInUse     = "PAYMENT_LINK_IN_USE"
	ErrCodeIdempotencyConflict  = "IDEMPOTENCY_CONFLICT"
)

// DomainError is a business failure with a stable code.
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// Is matches any DomainError carrying the same code, so sentinels keep
// working when the message was customised.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrInvalidQuantity      = NewDomainError(ErrCodeInvalidQuantity, "Quantity must be greater than zero")
	ErrLineNotFound         = NewDomainError(ErrCodeLineNotFound, "Item is not in the cart")
	ErrRestaurantMismatch   = NewDomainError(ErrCodeRestaurantMismatch, "Cart contains items from another restaurant")
	ErrRestaurantNotFound   = NewDomainError(ErrCodeRestaurantNotFound, "Restaurant not found")
	ErrRestaurantClosed     = NewDomainError(ErrCodeRestaurantClosed, "Restaurant is currently closed")
	ErrMenuItemNotFound     = NewDomainError(ErrCodeMenuItemNotFound, "Menu item not found")
	ErrEmptyCart            = NewDomainError(ErrCodeEmptyCart, "Cart is empty, nothing to checkout")
	ErrAddressRequired      = NewDomainError(ErrCodeAddressRequired, "Please select a delivery address")
	ErrInvalidAddress       = NewDomainError(ErrCodeInvalidAddress, "Delivery address is incomplete")
	ErrMinimumOrderNotMet   = NewDomainError(ErrCodeMinimumOrderNotMet, "Minimum order amount not met")
	ErrInvalidPhone         = NewDomainError(ErrCodeInvalidPhone, "Phone number must contain 7 to 15 digits")
	ErrInvalidPaymentMethod = NewDomainError(ErrCodeInvalidPaymentMethod, "Unsupported payment method")
	ErrInvalidAmount        = NewDomainError(ErrCodeInvalidAmount, "Amount must be greater than zero")
	ErrTotalsMismatch       = NewDomainError(ErrCodeTotalsMismatch, "Order totals do not match its items")
	ErrCheckoutInProgress   = NewDomainError(ErrCodeCheckoutInProgress, "A checkout is already in progress")
	ErrUnreconciledPayment  = NewDomainError(ErrCodeUnreconciledPayment, "A paid order is awaiting confirmation, contact support")
	ErrOrderNotFound        = NewDomainError(ErrCodeOrderNotFound, "Order not found")
	ErrPaymentLinkNotFound  = NewDomainError(ErrCodePaymentLinkNotFound, "Payment link not found")
	ErrPaymentLinkExpired   = NewDomainError(ErrCodePaymentLinkExpired, "Payment link has expired")
	ErrPaymentNotCompleted  = NewDomainError(ErrCodePaymentNotCompleted, "Payment link has not been paid in full")
	ErrPaymentLinkInUse     = NewDomainError(ErrCodePaymentLinkInUse, "Payment link already belongs to another order")
	ErrIdempotencyConflict  = NewDomainError(ErrCodeIdempotencyConflict, "Idempotency key already used")
)

var validationCodes = map[string]bool{
	ErrCodeInvalidQuantity:      true,
	ErrCodeEmptyCart:            true,
	ErrCodeRestaurantClosed:     true,
	ErrCodeAddressRequired:      true,
	ErrCodeInvalidAddress:       true,
	ErrCodeMinimumOrderNotMet:   true,
	ErrCodeInvalidPhone:         true,
	ErrCodeInvalidPaymentMethod: true,
	ErrCodeInvalidAmount:        true,
	ErrCodeTotalsMismatch:       true,
	ErrCodeMissingField:         true,
}

// IsValidation reports whether err is a validation failure that was raised
// before any side effect was attempted.
func IsValidation(err error) bool {
	var de *DomainError
	if !errors.As(err, &de) {
		return false
	}
	return validationCodes[de.Code]
}

// LookupDomainError returns the sentinel registered for code.
func LookupDomainError(code string) (*DomainError, bool) {
	for _, e := range []*DomainError{
		ErrInvalidQuantity, ErrLineNotFound, ErrRestaurantMismatch, ErrRestaurantNotFound,
		ErrRestaurantClosed, ErrMenuItemNotFound, ErrEmptyCart, ErrAddressRequired,
		ErrInvalidAddress, ErrMinimumOrderNotMet, ErrInvalidPhone, ErrInvalidPaymentMethod,
		ErrInvalidAmount, ErrTotalsMismatch, ErrCheckoutInProgress, ErrUnreconciledPayment,
		ErrOrderNotFound, ErrPaymentLinkNotFound, ErrPaymentLinkExpired, ErrPaymentNotCompleted,
		ErrIdempotencyConflict, ErrPaymentLinkInUse,
	} {
		if e.Code == code {
			return e, true
		}
	}
	return nil, false
}
