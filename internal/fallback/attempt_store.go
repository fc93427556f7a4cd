package fallback

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"foodkart/internal/model"

	"github.com/rs/zerolog"
)

// AttemptStore keeps the open online checkout attempt per user so a paid
// link outlives the process that created it.
type AttemptStore struct {
	db     *sql.DB
	logger zerolog.Logger
}

// NewAttemptStore creates an attempt store on top of an open local database.
func NewAttemptStore(d *DB, logger zerolog.Logger) *AttemptStore {
	return &AttemptStore{
		db:     d.db,
		logger: logger.With().Str("component", "fallback-attempt-store").Logger(),
	}
}

// Save replaces the stored attempt of the attempt's owner.
func (s *AttemptStore) Save(ctx context.Context, attempt model.CheckoutAttempt) error {
	if attempt.OwnerID == "" {
		return fmt.Errorf("checkout attempt has no owner")
	}
	if attempt.LinkID == "" {
		return fmt.Errorf("checkout attempt has no payment link")
	}
	if attempt.UpdatedAt.IsZero() {
		attempt.UpdatedAt = time.Now().UTC()
	}

	payload, err := json.Marshal(attempt)
	if err != nil {
		return fmt.Errorf("failed to encode checkout attempt: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO checkout_attempts (owner_id, idempotency_key, link_id, payload, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (owner_id) DO UPDATE SET
			idempotency_key = excluded.idempotency_key,
			link_id = excluded.link_id,
			payload = excluded.payload,
			updated_at = excluded.updated_at
	`, attempt.OwnerID, attempt.Draft.IdempotencyKey.String(), attempt.LinkID, string(payload),
		attempt.UpdatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to save checkout attempt: %w", err)
	}

	s.logger.Debug().
		Str("owner_id", attempt.OwnerID).
		Str("link_id", attempt.LinkID).
		Bool("paid", attempt.Evidence != nil).
		Msg("checkout attempt saved")

	return nil
}

// Load returns the stored attempt for ownerID, or nil if none exists.
func (s *AttemptStore) Load(ctx context.Context, ownerID string) (*model.CheckoutAttempt, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM checkout_attempts WHERE owner_id = ?`, ownerID,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load checkout attempt: %w", err)
	}

	var attempt model.CheckoutAttempt
	if err := json.Unmarshal([]byte(payload), &attempt); err != nil {
		return nil, fmt.Errorf("failed to decode checkout attempt: %w", err)
	}
	return &attempt, nil
}

// Delete removes the stored attempt for ownerID. Deleting a missing entry is
// not an error.
func (s *AttemptStore) Delete(ctx context.Context, ownerID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM checkout_attempts WHERE owner_id = ?`, ownerID); err != nil {
		return fmt.Errorf("failed to delete checkout attempt: %w", err)
	}
	return nil
}
