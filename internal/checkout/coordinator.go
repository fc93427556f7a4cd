// Package checkout validates the cart, builds the order draft and routes it
// either straight to order creation (cash) or through a payment link.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"foodkart/internal/cart"
	"foodkart/internal/model"
	"foodkart/internal/payment"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// ErrNothingToRetry is returned by RetryFinalize when no draft failed.
var ErrNothingToRetry = errors.New("no failed order to retry")

// Request holds the customer's checkout choices.
type Request struct {
	Address             *model.Address
	PaymentMethod       model.PaymentMethod
	PayerPhone          string
	SpecialInstructions string
}

// Config holds checkout settings.
type Config struct {
	TaxRate decimal.Decimal
	Poller  payment.Config
}

// Outcome is the result of a successful Checkout call. Exactly one field is
// set: Order for cash, Poller for online methods.
type Outcome struct {
	Order  *model.Order
	Poller *payment.Poller
}

// Coordinator runs checkout attempts for one cart session. Only one attempt
// may be in flight.
type Coordinator struct {
	store     *cart.Store
	finalizer *Finalizer
	provider  payment.Provider
	cfg       Config
	root      zerolog.Logger
	logger    zerolog.Logger
	newKey    func() uuid.UUID

	mu       sync.Mutex
	inFlight bool
}

// NewCoordinator creates a checkout coordinator.
func NewCoordinator(store *cart.Store, finalizer *Finalizer, provider payment.Provider, cfg Config, logger zerolog.Logger) *Coordinator {
	return &Coordinator{
		store:     store,
		finalizer: finalizer,
		provider:  provider,
		cfg:       cfg,
		root:      logger,
		logger:    logger.With().Str("component", "checkout").Logger(),
		newKey:    uuid.New,
	}
}

// Checkout validates the cart and req and starts the attempt.
//
// For cash the order is created before Checkout returns. For online methods
// a payment link is created and the returned poller is in LinkCreated; the
// caller shows the link and calls Begin, or Cancel to abandon. The in-flight
// guard stays held until the poller finishes.
func (c *Coordinator) Checkout(ctx context.Context, req Request) (*Outcome, error) {
	release, ok := c.acquire()
	if !ok {
		return nil, model.ErrCheckoutInProgress
	}
	handedOff := false
	defer func() {
		if !handedOff {
			release()
		}
	}()

	if p := c.finalizer.Pending(); p != nil && p.Evidence != nil {
		c.logger.Warn().
			Str("link_id", p.Evidence.LinkID).
			Str("idempotency_key", p.Draft.IdempotencyKey.String()).
			Msg("checkout blocked by unreconciled payment")
		return nil, model.ErrUnreconciledPayment
	}

	snap := c.store.Snapshot()
	if err := validate(snap, req); err != nil {
		c.logger.Debug().Err(err).Msg("checkout rejected")
		return nil, err
	}

	restaurant := *snap.Restaurant
	totals := ComputeTotals(snap.Lines, restaurant, c.cfg.TaxRate)
	draft := model.OrderDraft{
		IdempotencyKey:      c.newKey(),
		RestaurantID:        restaurant.ID,
		Lines:               snap.Lines,
		DeliveryAddressID:   req.Address.ID,
		SpecialInstructions: strings.TrimSpace(req.SpecialInstructions),
		PaymentMethod:       req.PaymentMethod,
		Subtotal:            totals.Subtotal,
		DeliveryFee:         totals.DeliveryFee,
		Tax:                 totals.Tax,
		Total:               totals.Total,
	}

	// A new attempt supersedes an unpaid failed one.
	c.finalizer.DropPending()

	logger := c.logger.With().
		Str("idempotency_key", draft.IdempotencyKey.String()).
		Str("payment_method", string(draft.PaymentMethod)).
		Str("total", draft.Total.String()).
		Logger()

	if req.PaymentMethod == model.PaymentCash {
		logger.Info().Msg("placing cash order")
		order, err := c.finalizer.Finalize(ctx, draft, nil)
		if err != nil {
			return nil, err
		}
		return &Outcome{Order: order}, nil
	}

	poller := payment.NewPoller(payment.Attempt{
		Draft:      draft,
		Restaurant: restaurant,
		PayerPhone: req.PayerPhone,
	}, c.provider, c.finalizer, c.cfg.Poller, c.root)

	link, err := poller.CreateLink(ctx)
	if err != nil {
		return nil, err
	}

	// The link is only shown once the attempt survives a restart.
	if err := c.finalizer.saveAttempt(ctx, model.CheckoutAttempt{
		OwnerID: c.store.OwnerID(),
		Draft:   poller.Draft(),
		LinkID:  link.LinkID,
	}); err != nil {
		poller.Cancel()
		return nil, fmt.Errorf("failed to record checkout attempt: %w", err)
	}

	poller.OnFinish(func(r payment.Result) {
		logger.Info().Str("state", r.State.String()).Err(r.Err).Msg("payment attempt finished")
		if r.State == payment.StateCancelled || r.State == payment.StateTimedOut {
			c.finalizer.forgetAttempt(context.Background())
		}
		release()
	})
	handedOff = true

	logger.Info().Msg("payment link ready")
	return &Outcome{Poller: poller}, nil
}

// Restore picks up the checkout attempt an earlier process left behind. An
// attempt whose link is paid becomes the pending draft, so Checkout reports
// ErrUnreconciledPayment until RetryFinalize creates its order. An unpaid
// attempt is forgotten. When the link status cannot be read the error is
// returned and nothing changes.
func (c *Coordinator) Restore(ctx context.Context) error {
	attempts := c.finalizer.attempts
	if attempts == nil {
		return nil
	}

	owner := c.store.OwnerID()
	attempt, err := attempts.Load(ctx, owner)
	if err != nil {
		return err
	}
	if attempt == nil {
		return nil
	}

	logger := c.logger.With().
		Str("idempotency_key", attempt.Draft.IdempotencyKey.String()).
		Str("link_id", attempt.LinkID).
		Logger()

	if attempt.Evidence == nil {
		report, err := c.provider.GetLinkStatus(ctx, attempt.LinkID)
		if err != nil {
			return fmt.Errorf("failed to check payment link %s: %w", attempt.LinkID, err)
		}
		if !report.IsPaid() {
			logger.Info().Str("status", string(report.Status)).Msg("dropping unpaid checkout attempt")
			return attempts.Delete(ctx, owner)
		}

		ev := report.Evidence(time.Now())
		ev.LinkID = attempt.LinkID
		attempt.Evidence = &ev
		attempt.FailureReason = "order not created before the previous session ended"
		if err := c.finalizer.saveAttempt(ctx, *attempt); err != nil {
			return err
		}
		c.finalizer.archiveEvidence(ctx, attempt.Draft, ev, errors.New(attempt.FailureReason))
	}

	logger.Warn().
		Str("amount_paid", attempt.Evidence.AmountPaid.String()).
		Msg("restored paid checkout attempt without an order")

	c.finalizer.restore(Pending{
		Draft:    attempt.Draft,
		Evidence: attempt.Evidence,
		Err:      errors.New(attempt.FailureReason),
		FailedAt: attempt.UpdatedAt,
	})
	return nil
}

// RetryFinalize re-submits the last failed draft with its original
// idempotency key and evidence. It is only ever user-triggered.
func (c *Coordinator) RetryFinalize(ctx context.Context) (*model.Order, error) {
	release, ok := c.acquire()
	if !ok {
		return nil, model.ErrCheckoutInProgress
	}
	defer release()

	p := c.finalizer.Pending()
	if p == nil {
		return nil, ErrNothingToRetry
	}

	c.logger.Info().
		Str("idempotency_key", p.Draft.IdempotencyKey.String()).
		Bool("paid", p.Evidence != nil).
		Msg("retrying order creation")

	order, err := c.finalizer.Finalize(ctx, p.Draft, p.Evidence)
	if err != nil {
		if p.Evidence != nil {
			return nil, &payment.FinalizeError{Draft: p.Draft, Evidence: *p.Evidence, Err: err}
		}
		return nil, err
	}
	return order, nil
}

// InFlight reports whether a checkout attempt is running.
func (c *Coordinator) InFlight() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight
}

// acquire takes the in-flight guard. The returned release is safe to call
// more than once.
func (c *Coordinator) acquire() (func(), bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inFlight {
		return nil, false
	}
	c.inFlight = true

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			c.inFlight = false
			c.mu.Unlock()
		})
	}, true
}

func validate(snap model.CartSnapshot, req Request) error {
	if snap.IsEmpty() || snap.Restaurant == nil {
		return model.ErrEmptyCart
	}
	if !snap.Restaurant.IsOpen {
		return model.ErrRestaurantClosed
	}
	if req.Address == nil || strings.TrimSpace(req.Address.ID) == "" {
		return model.ErrAddressRequired
	}
	if err := req.Address.Validate(); err != nil {
		return err
	}
	if !req.PaymentMethod.Valid() {
		return model.ErrInvalidPaymentMethod
	}
	if req.PaymentMethod.IsOnline() && !model.ValidPhone(req.PayerPhone) {
		return model.ErrInvalidPhone
	}
	if snap.Subtotal().LessThan(snap.Restaurant.MinOrder) {
		return model.NewDomainError(model.ErrCodeMinimumOrderNotMet,
			fmt.Sprintf("Minimum order amount is %s", snap.Restaurant.MinOrder.StringFixed(2)))
	}
	return nil
}
