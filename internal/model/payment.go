package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// LinkStatus is the status of a payment link.
type LinkStatus string

const (
	LinkStatusCreated   LinkStatus = "created"
	LinkStatusPolling   LinkStatus = "polling"
	LinkStatusPaid      LinkStatus = "paid"
	LinkStatusExpired   LinkStatus = "expired"
	LinkStatusCancelled LinkStatus = "cancelled"
)

// IsTerminal reports whether no further transition is possible.
func (s LinkStatus) IsTerminal() bool {
	return s == LinkStatusPaid || s == LinkStatusExpired || s == LinkStatusCancelled
}

// PaymentLink is a provider-hosted payable resource created for one order
// attempt. It is never reused.
type PaymentLink struct {
	LinkID    string          `json:"linkId"`
	Amount    decimal.Decimal `json:"amount"`
	URL       string          `json:"url"`
	QRData    string          `json:"qrData,omitempty"`
	Status    LinkStatus      `json:"status"`
	ExpiresAt time.Time       `json:"expiresAt"`
}

// LinkMetadata is attached to a payment link when it is created.
type LinkMetadata struct {
	RestaurantName string `json:"restaurantName"`
	RestaurantID   string `json:"restaurantId"`
}

// CreateLinkRequest is the payload for creating a payment link.
type CreateLinkRequest struct {
	Amount     decimal.Decimal `json:"amount"`
	PayerPhone string          `json:"payerPhone"`
	Metadata   LinkMetadata    `json:"metadata"`
}

// Payment is one completed payment against a link.
type Payment struct {
	PaymentID   string          `json:"paymentId"`
	Amount      decimal.Decimal `json:"amount"`
	Method      string          `json:"method,omitempty"`
	CompletedAt time.Time       `json:"completedAt"`
}

// LinkStatusReport is the provider's view of a payment link.
type LinkStatusReport struct {
	LinkID     string          `json:"linkId"`
	Status     LinkStatus      `json:"status"`
	AmountPaid decimal.Decimal `json:"amountPaid"`
	Payments   []Payment       `json:"payments"`
}

// IsPaid reports whether the report proves a completed payment.
func (r LinkStatusReport) IsPaid() bool {
	return r.AmountPaid.IsPositive() && len(r.Payments) > 0
}

// Evidence builds the payment evidence for a paid report observed at at.
// The report must be paid.
func (r LinkStatusReport) Evidence(at time.Time) PaymentEvidence {
	return PaymentEvidence{
		LinkID:     r.LinkID,
		AmountPaid: r.AmountPaid,
		Payment:    r.Payments[len(r.Payments)-1],
		ObservedAt: at,
	}
}

// PaymentEvidence proves that a payment link was paid. It is kept for
// support reconciliation until an order referencing it exists.
type PaymentEvidence struct {
	LinkID     string          `json:"linkId"`
	AmountPaid decimal.Decimal `json:"amountPaid"`
	Payment    Payment         `json:"payment"`
	ObservedAt time.Time       `json:"observedAt"`
}

// EvidenceRecord is what gets archived when a paid order could not be
// created, so support can reconcile it later.
type EvidenceRecord struct {
	IdempotencyKey string          `json:"idempotencyKey"`
	OwnerID        string          `json:"ownerId"`
	Draft          OrderDraft      `json:"draft"`
	Evidence       PaymentEvidence `json:"evidence"`
	FailureReason  string          `json:"failureReason"`
	RecordedAt     time.Time       `json:"recordedAt"`
}

// CheckoutAttempt is the device-side record of an online checkout whose
// payment link exists but whose order has not been confirmed. Evidence is
// set once the link is known to be paid.
type CheckoutAttempt struct {
	OwnerID       string           `json:"ownerId"`
	Draft         OrderDraft       `json:"draft"`
	LinkID        string           `json:"linkId"`
	Evidence      *PaymentEvidence `json:"evidence,omitempty"`
	FailureReason string           `json:"failureReason,omitempty"`
	UpdatedAt     time.Time        `json:"updatedAt"`
}

// PaymentLinkRecord is the provider-side state of a sandbox payment link.
type PaymentLinkRecord struct {
	Link       PaymentLink  `json:"link"`
	CustomerID string       `json:"customerId"`
	PayerPhone string       `json:"payerPhone"`
	Metadata   LinkMetadata `json:"metadata"`
	Payments   []Payment    `json:"payments"`
	CreatedAt  time.Time    `json:"createdAt"`
}

// Report returns the status report of the record as seen at now.
func (r PaymentLinkRecord) Report(now time.Time) LinkStatusReport {
	status := r.Link.Status
	if !status.IsTerminal() && !r.Link.ExpiresAt.IsZero() && now.After(r.Link.ExpiresAt) {
		status = LinkStatusExpired
	}

	paid := decimal.Zero
	for _, p := range r.Payments {
		paid = paid.Add(p.Amount)
	}

	payments := r.Payments
	if payments == nil {
		payments = []Payment{}
	}

	return LinkStatusReport{
		LinkID:     r.Link.LinkID,
		Status:     status,
		AmountPaid: paid,
		Payments:   payments,
	}
}
