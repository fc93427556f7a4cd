// Package payment drives a single payment-link attempt: link creation,
// status polling and hand-off to order finalization.
package payment

import (
	"context"
	"sync"
	"time"

	"foodkart/internal/model"

	"github.com/rs/zerolog"
)

// Provider is the external payment-link service.
type Provider interface {
	CreateLink(ctx context.Context, req model.CreateLinkRequest) (*model.PaymentLink, error)
	GetLinkStatus(ctx context.Context, linkID string) (*model.LinkStatusReport, error)
}

// Finalizer turns a paid draft into an order.
type Finalizer interface {
	Finalize(ctx context.Context, draft model.OrderDraft, evidence *model.PaymentEvidence) (*model.Order, error)
}

// State is the poller lifecycle state.
type State int

const (
	StateIdle State = iota
	StateLinkCreated
	StatePolling
	StateSucceeded
	StateTimedOut
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLinkCreated:
		return "link_created"
	case StatePolling:
		return "polling"
	case StateSucceeded:
		return "succeeded"
	case StateTimedOut:
		return "timed_out"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether the poller can no longer change state.
func (s State) IsTerminal() bool {
	return s == StateSucceeded || s == StateTimedOut || s == StateCancelled
}

// Config controls polling timing.
type Config struct {
	// Interval between two status polls.
	Interval time.Duration
	// Timeout is the ceiling after which polling stops.
	Timeout time.Duration
	// RequestTimeout bounds each provider call.
	RequestTimeout time.Duration
	// FinalizeTimeout bounds order creation after payment.
	FinalizeTimeout time.Duration
}

// DefaultConfig returns the production timing.
func DefaultConfig() Config {
	return Config{
		Interval:        3 * time.Second,
		Timeout:         10 * time.Minute,
		RequestTimeout:  10 * time.Second,
		FinalizeTimeout: 30 * time.Second,
	}
}

// Attempt describes what is being paid for.
type Attempt struct {
	Draft      model.OrderDraft
	Restaurant model.Restaurant
	PayerPhone string
}

// Result is the outcome of a finished attempt.
type Result struct {
	State    State
	Order    *model.Order
	Evidence *model.PaymentEvidence
	Err      error
}

// Poller tracks one payment link from creation to a terminal state.
//
// Polls are issued on their own goroutines and may overlap. Every response
// is checked against the current state and the poll-session token under the
// lock, so at most one response can cause the Succeeded transition and the
// order is finalized at most once.
type Poller struct {
	provider  Provider
	finalizer Finalizer
	cfg       Config
	logger    zerolog.Logger
	now       func() time.Time

	mu       sync.Mutex
	state    State
	attempt  Attempt
	link     *model.PaymentLink
	creating bool
	// token identifies the current poll session; it increments on every
	// terminal transition.
	token    uint64
	stop     context.CancelFunc
	done     chan struct{}
	finished bool
	result   Result
	onFinish []func(Result)
}

// NewPoller creates an idle poller for attempt.
func NewPoller(attempt Attempt, provider Provider, finalizer Finalizer, cfg Config, logger zerolog.Logger) *Poller {
	def := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = def.RequestTimeout
	}
	if cfg.FinalizeTimeout <= 0 {
		cfg.FinalizeTimeout = def.FinalizeTimeout
	}

	return &Poller{
		provider:  provider,
		finalizer: finalizer,
		cfg:       cfg,
		logger: logger.With().
			Str("component", "payment-poller").
			Str("idempotency_key", attempt.Draft.IdempotencyKey.String()).
			Logger(),
		now:     time.Now,
		state:   StateIdle,
		attempt: attempt,
		done:    make(chan struct{}),
	}
}

// CreateLink asks the provider for a payment link: Idle to LinkCreated. On
// failure the poller stays Idle, nothing is retained and a *LinkError is
// returned.
func (p *Poller) CreateLink(ctx context.Context) (*model.PaymentLink, error) {
	p.mu.Lock()
	if p.state != StateIdle || p.creating {
		p.mu.Unlock()
		return nil, ErrInvalidState
	}
	p.creating = true
	attempt := p.attempt
	p.mu.Unlock()

	req := model.CreateLinkRequest{
		Amount:     attempt.Draft.Total,
		PayerPhone: attempt.PayerPhone,
		Metadata: model.LinkMetadata{
			RestaurantName: attempt.Restaurant.Name,
			RestaurantID:   attempt.Restaurant.ID,
		},
	}

	reqCtx, cancel := context.WithTimeout(ctx, p.cfg.RequestTimeout)
	link, err := p.provider.CreateLink(reqCtx, req)
	cancel()

	p.mu.Lock()
	defer p.mu.Unlock()
	p.creating = false

	if err != nil {
		p.logger.Warn().Err(err).Str("amount", req.Amount.String()).Msg("payment link creation failed")
		return nil, &LinkError{Err: err}
	}
	if link == nil || link.LinkID == "" {
		p.logger.Warn().Msg("payment provider returned an empty link")
		return nil, &LinkError{Err: ErrInvalidState}
	}

	l := *link
	l.Status = model.LinkStatusCreated
	p.link = &l
	linkID := l.LinkID
	p.attempt.Draft.PaymentLinkID = &linkID
	p.state = StateLinkCreated

	p.logger.Info().
		Str("link_id", l.LinkID).
		Str("amount", l.Amount.String()).
		Msg("payment link created")

	out := l
	return &out, nil
}

// Begin starts polling: LinkCreated to Polling.
func (p *Poller) Begin() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StateLinkCreated {
		return ErrInvalidState
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.state = StatePolling
	p.link.Status = model.LinkStatusPolling
	p.stop = cancel
	token := p.token
	linkID := p.link.LinkID

	go p.loop(ctx, token, linkID)

	p.logger.Debug().Str("link_id", linkID).Dur("interval", p.cfg.Interval).Msg("payment polling started")
	return nil
}

// Cancel abandons the attempt from LinkCreated or Polling. It returns false
// when the poller was in any other state.
func (p *Poller) Cancel() bool {
	p.mu.Lock()
	if p.state != StateLinkCreated && p.state != StatePolling {
		p.mu.Unlock()
		return false
	}
	p.state = StateCancelled
	p.token++
	p.link.Status = model.LinkStatusCancelled
	if p.stop != nil {
		p.stop()
	}
	p.mu.Unlock()

	p.logger.Info().Msg("payment cancelled by user")
	p.finish(Result{State: StateCancelled, Err: ErrPaymentCancelled})
	return true
}

// State returns the current state.
func (p *Poller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Link returns a copy of the payment link, or nil before CreateLink
// succeeded.
func (p *Poller) Link() *model.PaymentLink {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.link == nil {
		return nil
	}
	l := *p.link
	return &l
}

// Draft returns the order draft, including the payment link id once the
// link exists.
func (p *Poller) Draft() model.OrderDraft {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.attempt.Draft
}

// Done is closed once the attempt is finished.
func (p *Poller) Done() <-chan struct{} {
	return p.done
}

// Result returns the outcome and whether the attempt has finished.
func (p *Poller) Result() (Result, bool) {
	select {
	case <-p.done:
	default:
		return Result{}, false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.result, true
}

// Wait blocks until the attempt finishes or ctx is done.
func (p *Poller) Wait(ctx context.Context) (*model.Order, error) {
	select {
	case <-p.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	r, _ := p.Result()
	return r.Order, r.Err
}

// OnFinish registers fn to run once with the final result. If the attempt
// already finished, fn runs immediately.
func (p *Poller) OnFinish(fn func(Result)) {
	p.mu.Lock()
	if p.finished {
		r := p.result
		p.mu.Unlock()
		fn(r)
		return
	}
	p.onFinish = append(p.onFinish, fn)
	p.mu.Unlock()
}

func (p *Poller) loop(ctx context.Context, token uint64, linkID string) {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()
	ceiling := time.NewTimer(p.cfg.Timeout)
	defer ceiling.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ceiling.C:
			p.expire(token)
			return
		case <-ticker.C:
			go p.poll(ctx, token, linkID)
		}
	}
}

func (p *Poller) poll(ctx context.Context, token uint64, linkID string) {
	reqCtx, cancel := context.WithTimeout(ctx, p.cfg.RequestTimeout)
	report, err := p.provider.GetLinkStatus(reqCtx, linkID)
	cancel()

	if err != nil {
		if ctx.Err() == nil {
			p.logger.Warn().Err(err).Str("link_id", linkID).Msg("payment status poll failed")
		}
		return
	}
	if report == nil || !report.IsPaid() {
		return
	}

	p.mu.Lock()
	if p.state != StatePolling || p.token != token {
		p.mu.Unlock()
		p.logger.Debug().Str("link_id", linkID).Msg("discarding late payment status")
		return
	}
	p.state = StateSucceeded
	p.token++
	p.link.Status = model.LinkStatusPaid
	p.stop()
	evidence := report.Evidence(p.now())
	evidence.LinkID = linkID
	draft := p.attempt.Draft
	p.mu.Unlock()

	p.logger.Info().
		Str("link_id", linkID).
		Str("amount_paid", evidence.AmountPaid.String()).
		Str("payment_id", evidence.Payment.PaymentID).
		Msg("payment received")

	p.finalize(draft, evidence)
}

func (p *Poller) finalize(draft model.OrderDraft, evidence model.PaymentEvidence) {
	ctx, cancel := context.WithTimeout(context.Background(), p.cfg.FinalizeTimeout)
	defer cancel()

	order, err := p.finalizer.Finalize(ctx, draft, &evidence)
	if err != nil {
		p.logger.Error().
			Err(err).
			Str("link_id", evidence.LinkID).
			Str("amount_paid", evidence.AmountPaid.String()).
			Str("idempotency_key", draft.IdempotencyKey.String()).
			Msg("payment received but order creation failed")
		p.finish(Result{
			State:    StateSucceeded,
			Evidence: &evidence,
			Err:      &FinalizeError{Draft: draft, Evidence: evidence, Err: err},
		})
		return
	}

	p.finish(Result{State: StateSucceeded, Order: order, Evidence: &evidence})
}

func (p *Poller) expire(token uint64) {
	p.mu.Lock()
	if p.state != StatePolling || p.token != token {
		p.mu.Unlock()
		return
	}
	p.state = StateTimedOut
	p.token++
	p.link.Status = model.LinkStatusExpired
	p.stop()
	linkID := p.link.LinkID
	p.mu.Unlock()

	p.logger.Warn().Str("link_id", linkID).Dur("timeout", p.cfg.Timeout).Msg("payment not completed before timeout")
	p.finish(Result{State: StateTimedOut, Err: ErrPaymentTimeout})
}

// finish records the result. Callbacks run before Done is closed.
func (p *Poller) finish(r Result) {
	p.mu.Lock()
	p.result = r
	p.finished = true
	callbacks := p.onFinish
	p.onFinish = nil
	p.mu.Unlock()

	for _, fn := range callbacks {
		fn(r)
	}
	close(p.done)
}
