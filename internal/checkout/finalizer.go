package checkout

import (
	"context"
	"sync"
	"time"

	"foodkart/internal/cart"
	"foodkart/internal/evidence"
	"foodkart/internal/model"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// OrderService creates orders on the backend.
type OrderService interface {
	// Create submits draft. Submitting the same idempotency key twice
	// returns the order created the first time.
	Create(ctx context.Context, draft model.OrderDraft) (*model.Order, error)
}

// LocalCache is the device-local cart copy dropped after an order.
type LocalCache interface {
	Delete(ctx context.Context, ownerID string) error
}

// AttemptStore persists the open online checkout attempt of a user across
// processes.
type AttemptStore interface {
	Save(ctx context.Context, attempt model.CheckoutAttempt) error
	// Load returns nil when the owner has no stored attempt.
	Load(ctx context.Context, ownerID string) (*model.CheckoutAttempt, error)
	Delete(ctx context.Context, ownerID string) error
}

// Pending is a draft whose order creation failed.
type Pending struct {
	Draft    model.OrderDraft
	Evidence *model.PaymentEvidence
	Err      error
	FailedAt time.Time
}

// Finalizer creates the order for a draft and cleans up the cart once it
// exists.
type Finalizer struct {
	orders  OrderService
	store   *cart.Store
	cache   LocalCache
	archive  evidence.Archive
	attempts AttemptStore
	logger   zerolog.Logger

	group   singleflight.Group
	mu      sync.Mutex
	pending *Pending
}

// NewFinalizer creates a finalizer. archive and attempts may be nil.
func NewFinalizer(orders OrderService, store *cart.Store, cache LocalCache, archive evidence.Archive, attempts AttemptStore, logger zerolog.Logger) *Finalizer {
	return &Finalizer{
		orders:   orders,
		store:    store,
		cache:    cache,
		archive:  archive,
		attempts: attempts,
		logger:   logger.With().Str("component", "order-finalizer").Logger(),
	}
}

// Finalize creates the order for draft. On success the cart is cleared and
// the local copy dropped. On failure the cart is left untouched, draft and
// evidence are kept for an explicit retry, and evidence is archived.
// Concurrent calls for the same idempotency key share one request.
func (f *Finalizer) Finalize(ctx context.Context, draft model.OrderDraft, ev *model.PaymentEvidence) (*model.Order, error) {
	v, err, shared := f.group.Do(draft.IdempotencyKey.String(), func() (interface{}, error) {
		return f.finalize(ctx, draft, ev)
	})
	if shared {
		f.logger.Debug().Str("idempotency_key", draft.IdempotencyKey.String()).Msg("finalize collapsed into in-flight call")
	}
	if err != nil {
		return nil, err
	}
	return v.(*model.Order), nil
}

func (f *Finalizer) finalize(ctx context.Context, draft model.OrderDraft, ev *model.PaymentEvidence) (*model.Order, error) {
	logger := f.logger.With().
		Str("idempotency_key", draft.IdempotencyKey.String()).
		Str("payment_method", string(draft.PaymentMethod)).
		Logger()

	order, err := f.orders.Create(ctx, draft)
	if err != nil {
		f.mu.Lock()
		f.pending = &Pending{Draft: draft, Evidence: ev, Err: err, FailedAt: time.Now()}
		f.mu.Unlock()

		if ev == nil {
			logger.Warn().Err(err).Msg("order creation failed")
			return nil, err
		}

		logger.Error().
			Err(err).
			Str("link_id", ev.LinkID).
			Str("amount_paid", ev.AmountPaid.String()).
			Msg("order creation failed after payment")
		f.archiveEvidence(ctx, draft, *ev, err)
		f.saveAttempt(ctx, model.CheckoutAttempt{
			OwnerID:       f.store.OwnerID(),
			Draft:         draft,
			LinkID:        ev.LinkID,
			Evidence:      ev,
			FailureReason: err.Error(),
		})
		return nil, err
	}

	f.mu.Lock()
	f.pending = nil
	f.mu.Unlock()

	if draft.PaymentLinkID != nil {
		f.forgetAttempt(ctx)
	}

	f.store.Clear()
	if derr := f.cache.Delete(ctx, f.store.OwnerID()); derr != nil {
		logger.Warn().Err(derr).Msg("failed to drop local cart copy")
	}

	logger.Info().
		Str("order_id", order.ID.String()).
		Str("order_number", order.OrderNumber).
		Str("total", order.Total.String()).
		Msg("order created")

	return order, nil
}

func (f *Finalizer) archiveEvidence(ctx context.Context, draft model.OrderDraft, ev model.PaymentEvidence, cause error) {
	if f.archive == nil {
		return
	}
	rec := model.EvidenceRecord{
		IdempotencyKey: draft.IdempotencyKey.String(),
		OwnerID:        f.store.OwnerID(),
		Draft:          draft,
		Evidence:       ev,
		FailureReason:  cause.Error(),
		RecordedAt:     time.Now().UTC(),
	}
	// The caller's context may already be done; the evidence must still land.
	archiveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	if err := f.archive.Store(archiveCtx, rec); err != nil {
		f.logger.Error().Err(err).Str("link_id", ev.LinkID).Msg("failed to archive payment evidence")
	}
}

// saveAttempt stores attempt, replacing the owner's previous one.
func (f *Finalizer) saveAttempt(ctx context.Context, attempt model.CheckoutAttempt) error {
	if f.attempts == nil {
		return nil
	}
	attempt.UpdatedAt = time.Now().UTC()
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	if err := f.attempts.Save(saveCtx, attempt); err != nil {
		f.logger.Error().Err(err).Str("link_id", attempt.LinkID).Msg("failed to save checkout attempt")
		return err
	}
	return nil
}

// forgetAttempt drops the owner's stored attempt.
func (f *Finalizer) forgetAttempt(ctx context.Context) {
	if f.attempts == nil {
		return
	}
	delCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	if err := f.attempts.Delete(delCtx, f.store.OwnerID()); err != nil {
		f.logger.Warn().Err(err).Msg("failed to drop checkout attempt")
	}
}

// restore installs p as the pending draft unless one is already held.
func (f *Finalizer) restore(p Pending) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pending == nil {
		f.pending = &p
	}
}

// Pending returns the last failed draft, or nil.
func (f *Finalizer) Pending() *Pending {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pending == nil {
		return nil
	}
	p := *f.pending
	return &p
}

// DropPending forgets a failed draft that carries no payment evidence. Paid
// drafts are kept until an order exists for them.
func (f *Finalizer) DropPending() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pending != nil && f.pending.Evidence == nil {
		f.pending = nil
	}
}
