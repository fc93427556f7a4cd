package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"foodkart/internal/model"
	"foodkart/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// paymentLinkService implements PaymentLinkService as a sandbox provider.
type paymentLinkService struct {
	store   repository.PaymentLinkStore
	baseURL string
	ttl     time.Duration
	now     func() time.Time
	logger  zerolog.Logger
}

// NewPaymentLinkService creates a sandbox payment-link provider. Links are
// payable at baseURL+linkID until ttl elapses.
func NewPaymentLinkService(store repository.PaymentLinkStore, baseURL string, ttl time.Duration, logger zerolog.Logger) PaymentLinkService {
	return &paymentLinkService{
		store:   store,
		baseURL: baseURL,
		ttl:     ttl,
		now:     time.Now,
		logger:  logger.With().Str("service", "payment_link").Logger(),
	}
}

func (s *paymentLinkService) CreateLink(ctx context.Context, customerID string, req model.CreateLinkRequest) (*model.PaymentLink, error) {
	if !req.Amount.IsPositive() {
		return nil, model.ErrInvalidAmount
	}
	if !model.ValidPhone(req.PayerPhone) {
		return nil, model.ErrInvalidPhone
	}

	now := s.now().UTC()
	id := "plink_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	link := model.PaymentLink{
		LinkID:    id,
		Amount:    req.Amount,
		URL:       s.baseURL + id,
		QRData:    fmt.Sprintf("upi://pay?tr=%s&am=%s", id, req.Amount.StringFixed(2)),
		Status:    model.LinkStatusCreated,
		ExpiresAt: now.Add(s.ttl),
	}

	rec := &model.PaymentLinkRecord{
		Link:       link,
		CustomerID: customerID,
		PayerPhone: req.PayerPhone,
		Metadata:   req.Metadata,
		CreatedAt:  now,
	}
	if err := s.store.Save(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to create payment link: %w", err)
	}

	s.logger.Info().
		Str("link_id", id).
		Str("amount", req.Amount.StringFixed(2)).
		Str("restaurant_id", req.Metadata.RestaurantID).
		Msg("payment link created")

	return &link, nil
}

func (s *paymentLinkService) GetStatus(ctx context.Context, linkID string) (*model.LinkStatusReport, error) {
	rec, err := s.store.Get(ctx, linkID)
	if err != nil {
		return nil, fmt.Errorf("failed to get payment link: %w", err)
	}
	if rec == nil {
		return nil, model.ErrPaymentLinkNotFound
	}

	report := rec.Report(s.now())
	return &report, nil
}

// MarkPaid records a full payment against the link. Paying a paid link is
// a no-op.
func (s *paymentLinkService) MarkPaid(ctx context.Context, linkID, method string) (*model.LinkStatusReport, error) {
	rec, err := s.store.Update(ctx, linkID, func(rec *model.PaymentLinkRecord) error {
		switch rec.Report(s.now()).Status {
		case model.LinkStatusPaid:
			return nil
		case model.LinkStatusExpired, model.LinkStatusCancelled:
			return model.ErrPaymentLinkExpired
		}

		rec.Link.Status = model.LinkStatusPaid
		rec.Payments = append(rec.Payments, model.Payment{
			PaymentID:   "pay_" + strings.ReplaceAll(uuid.NewString(), "-", ""),
			Amount:      rec.Link.Amount,
			Method:      method,
			CompletedAt: s.now().UTC(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("link_id", linkID).Str("method", method).Msg("payment link paid")

	report := rec.Report(s.now())
	return &report, nil
}
