package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"foodkart/internal/model"
	"foodkart/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// pgUniqueViolation is the PostgreSQL error code for unique_violation.
const pgUniqueViolation = "23505"

// paymentLinkIndex is the unique index that binds a payment link to one
// order.
const paymentLinkIndex = "idx_orders_payment_link"

// orderService implements OrderService.
type orderService struct {
	orderRepo      repository.OrderRepository
	restaurantRepo repository.RestaurantRepository
	carts          repository.CartStore
	links          repository.PaymentLinkStore
	now            func() time.Time
	logger         zerolog.Logger
}

// NewOrderService creates a new order service. links may be nil, in which
// case online orders are accepted without checking their payment link.
func NewOrderService(
	orderRepo repository.OrderRepository,
	restaurantRepo repository.RestaurantRepository,
	carts repository.CartStore,
	links repository.PaymentLinkStore,
	logger zerolog.Logger,
) OrderService {
	return &orderService{
		orderRepo:      orderRepo,
		restaurantRepo: restaurantRepo,
		carts:          carts,
		links:          links,
		now:            time.Now,
		logger:         logger.With().Str("service", "order").Logger(),
	}
}

// CreateOrder validates draft and persists it with its items in one
// transaction.
func (s *orderService) CreateOrder(ctx context.Context, customerID string, draft *model.OrderDraft) (*model.Order, error) {
	if err := s.validateDraft(draft); err != nil {
		return nil, err
	}

	existing, err := s.orderRepo.GetByIdempotencyKey(ctx, draft.IdempotencyKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}
	if existing != nil {
		return s.replay(existing, customerID)
	}

	rest, err := s.restaurantRepo.GetByID(ctx, draft.RestaurantID)
	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}
	if rest == nil {
		return nil, model.ErrRestaurantNotFound
	}
	if !rest.IsOpen {
		return nil, model.ErrRestaurantClosed
	}
	if draft.Subtotal.LessThan(rest.MinOrder) {
		return nil, model.NewDomainError(model.ErrCodeMinimumOrderNotMet,
			fmt.Sprintf("Minimum order amount is %s", rest.MinOrder.StringFixed(2)))
	}

	if err := s.checkMenu(ctx, rest.ID, draft.Lines); err != nil {
		return nil, err
	}

	if draft.PaymentMethod.IsOnline() {
		if err := s.checkPayment(ctx, customerID, draft); err != nil {
			return nil, err
		}
	}

	order, err := s.insert(ctx, customerID, draft)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			if pgErr.ConstraintName == paymentLinkIndex {
				s.logger.Warn().
					Str("customer_id", customerID).
					Str("idempotency_key", draft.IdempotencyKey.String()).
					Msg("payment link already backs another order")
				return nil, model.ErrPaymentLinkInUse
			}
			// A concurrent request with the same key won the insert.
			existing, getErr := s.orderRepo.GetByIdempotencyKey(ctx, draft.IdempotencyKey)
			if getErr == nil && existing != nil {
				return s.replay(existing, customerID)
			}
		}
		return nil, err
	}

	if err := s.carts.Delete(ctx, customerID); err != nil {
		s.logger.Warn().Err(err).Str("customer_id", customerID).Msg("failed to clear cart after order")
	}

	s.logger.Info().
		Str("order_id", order.ID.String()).
		Str("order_number", order.OrderNumber).
		Str("customer_id", customerID).
		Str("total", order.Total.StringFixed(2)).
		Msg("order created successfully")

	return order, nil
}

func (s *orderService) insert(ctx context.Context, customerID string, draft *model.OrderDraft) (order *model.Order, err error) {
	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	// Ensure transaction is rolled back on error
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	number, err := s.orderRepo.NextOrderNumber(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	now := s.now().UTC()
	order = &model.Order{
		ID:                  uuid.New(),
		OrderNumber:         number,
		IdempotencyKey:      draft.IdempotencyKey,
		CustomerID:          customerID,
		RestaurantID:        draft.RestaurantID,
		Status:              model.OrderStatusConfirmed,
		PaymentMethod:       draft.PaymentMethod,
		PaymentLinkID:       draft.PaymentLinkID,
		DeliveryAddressID:   draft.DeliveryAddressID,
		SpecialInstructions: draft.SpecialInstructions,
		Subtotal:            draft.Subtotal,
		DeliveryFee:         draft.DeliveryFee,
		Tax:                 draft.Tax,
		Total:               draft.Total,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	if err = s.orderRepo.CreateOrder(ctx, tx, order); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	items := make([]model.OrderItem, len(draft.Lines))
	for i, line := range draft.Lines {
		items[i] = model.OrderItem{
			ID:         uuid.New(),
			OrderID:    order.ID,
			MenuItemID: line.ItemID,
			Name:       line.Name,
			UnitPrice:  line.UnitPrice,
			Quantity:   line.Quantity,
		}
	}

	if err = s.orderRepo.CreateOrderItems(ctx, tx, items); err != nil {
		s.logger.Error().
			Err(err).
			Str("order_id", order.ID.String()).
			Int("item_count", len(items)).
			Msg("failed to create order items")
		return nil, fmt.Errorf("failed to create order items: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		s.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to commit transaction")
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	order.Items = items
	return order, nil
}

func (s *orderService) replay(existing *model.Order, customerID string) (*model.Order, error) {
	if existing.CustomerID != customerID {
		s.logger.Warn().
			Str("idempotency_key", existing.IdempotencyKey.String()).
			Msg("idempotency key reused by another customer")
		return nil, model.ErrIdempotencyConflict
	}
	s.logger.Info().
		Str("order_id", existing.ID.String()).
		Str("idempotency_key", existing.IdempotencyKey.String()).
		Msg("returning existing order for idempotency key")
	return existing, nil
}

// GetByID retrieves an order by its ID. Orders of other customers are
// reported as not found.
func (s *orderService) GetByID(ctx context.Context, customerID string, id uuid.UUID) (*model.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to get order")
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if order == nil || order.CustomerID != customerID {
		return nil, model.ErrOrderNotFound
	}
	return order, nil
}

// validateDraft checks the draft without touching any store.
func (s *orderService) validateDraft(draft *model.OrderDraft) error {
	if draft == nil {
		return model.NewDomainError(model.ErrCodeMissingField, "Order is required")
	}
	if draft.IdempotencyKey == uuid.Nil {
		return model.NewDomainError(model.ErrCodeMissingField, "Idempotency key is required")
	}
	if len(draft.Lines) == 0 {
		return model.ErrEmptyCart
	}
	if strings.TrimSpace(draft.DeliveryAddressID) == "" {
		return model.ErrAddressRequired
	}
	if !draft.PaymentMethod.Valid() {
		return model.ErrInvalidPaymentMethod
	}

	subtotal := decimal.Zero
	for i, line := range draft.Lines {
		if line.ItemID == "" {
			return model.NewDomainError(model.ErrCodeMissingField, fmt.Sprintf("Item %d: item id is required", i))
		}
		if line.Quantity <= 0 || line.UnitPrice.IsNegative() {
			s.logger.Warn().
				Int("item_index", i).
				Str("item_id", line.ItemID).
				Int("quantity", line.Quantity).
				Msg("invalid quantity")
			return model.ErrInvalidQuantity
		}
		subtotal = subtotal.Add(line.LineTotal())
	}

	if !subtotal.Equal(draft.Subtotal) {
		return model.ErrTotalsMismatch
	}
	if !draft.Subtotal.Add(draft.DeliveryFee).Add(draft.Tax).Equal(draft.Total) {
		return model.ErrTotalsMismatch
	}
	return nil
}

func (s *orderService) checkMenu(ctx context.Context, restaurantID string, lines []model.CartLine) error {
	ids := make([]string, len(lines))
	for i, l := range lines {
		ids[i] = l.ItemID
	}

	items, err := s.restaurantRepo.GetMenuItems(ctx, restaurantID, ids)
	if err != nil {
		return fmt.Errorf("failed to validate menu items: %w", err)
	}

	known := make(map[string]bool, len(items))
	for _, it := range items {
		known[it.ID] = it.IsAvailable
	}
	for _, id := range ids {
		if !known[id] {
			s.logger.Warn().Str("item_id", id).Str("restaurant_id", restaurantID).Msg("menu item unavailable")
			return model.ErrMenuItemNotFound
		}
	}
	return nil
}

// checkPayment requires online orders to reference a link of customerID
// paid in full.
func (s *orderService) checkPayment(ctx context.Context, customerID string, draft *model.OrderDraft) error {
	if draft.PaymentLinkID == nil || *draft.PaymentLinkID == "" {
		return model.NewDomainError(model.ErrCodeMissingField, "Payment link is required for online payment")
	}
	if s.links == nil {
		return nil
	}

	rec, err := s.links.Get(ctx, *draft.PaymentLinkID)
	if err != nil {
		return fmt.Errorf("failed to verify payment: %w", err)
	}
	if rec == nil {
		return model.ErrPaymentLinkNotFound
	}
	if rec.CustomerID != customerID {
		s.logger.Warn().
			Str("link_id", rec.Link.LinkID).
			Str("customer_id", customerID).
			Msg("order references another customer's payment link")
		return model.ErrPaymentLinkNotFound
	}

	report := rec.Report(s.now())
	if !report.IsPaid() || report.AmountPaid.LessThan(draft.Total) {
		s.logger.Warn().
			Str("link_id", report.LinkID).
			Str("amount_paid", report.AmountPaid.StringFixed(2)).
			Str("total", draft.Total.StringFixed(2)).
			Msg("order references an unpaid link")
		return model.ErrPaymentNotCompleted
	}
	return nil
}
