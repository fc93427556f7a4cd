package payment

import (
	"errors"
	"fmt"

	"foodkart/internal/model"
)

var (
	// ErrPaymentTimeout is returned when no payment arrived before the
	// polling ceiling. The link is expired; paying again needs a new
	// checkout.
	ErrPaymentTimeout = errors.New("payment not completed")

	// ErrPaymentCancelled is returned when the user abandoned the payment.
	ErrPaymentCancelled = errors.New("payment cancelled")

	// ErrInvalidState is returned when an operation is not allowed in the
	// poller's current state.
	ErrInvalidState = errors.New("invalid payment poller state")
)

// LinkError reports that the payment link could not be created. Nothing was
// charged and the attempt may be retried.
type LinkError struct {
	Err error
}

func (e *LinkError) Error() string {
	return fmt.Sprintf("failed to create payment link: %v", e.Err)
}

func (e *LinkError) Unwrap() error {
	return e.Err
}

// FinalizeError reports that the customer paid but the order could not be
// created. It is never retried automatically.
type FinalizeError struct {
	Draft    model.OrderDraft
	Evidence model.PaymentEvidence
	Err      error
}

func (e *FinalizeError) Error() string {
	return fmt.Sprintf("payment %s received but order was not created: %v", e.Evidence.LinkID, e.Err)
}

func (e *FinalizeError) Unwrap() error {
	return e.Err
}

// Critical reports that money was taken without an order.
func (e *FinalizeError) Critical() bool {
	return true
}
