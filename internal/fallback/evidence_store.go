package fallback

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"foodkart/internal/model"

	"github.com/rs/zerolog"
)

// EvidenceStore archives payment evidence on the device.
type EvidenceStore struct {
	db     *sql.DB
	logger zerolog.Logger
}

// NewEvidenceStore creates an evidence store on top of an open local database.
func NewEvidenceStore(d *DB, logger zerolog.Logger) *EvidenceStore {
	return &EvidenceStore{
		db:     d.db,
		logger: logger.With().Str("component", "fallback-evidence-store").Logger(),
	}
}

// Store saves rec keyed by its payment link. Storing the same link twice
// keeps the latest record.
func (s *EvidenceStore) Store(ctx context.Context, rec model.EvidenceRecord) error {
	if rec.Evidence.LinkID == "" {
		return fmt.Errorf("evidence record has no payment link")
	}
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = time.Now().UTC()
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode evidence record: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO payment_evidence (link_id, idempotency_key, owner_id, payload, recorded_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (link_id) DO UPDATE SET
			idempotency_key = excluded.idempotency_key,
			owner_id = excluded.owner_id,
			payload = excluded.payload,
			recorded_at = excluded.recorded_at
	`, rec.Evidence.LinkID, rec.IdempotencyKey, rec.OwnerID, string(payload), rec.RecordedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to store evidence record: %w", err)
	}

	s.logger.Info().
		Str("link_id", rec.Evidence.LinkID).
		Str("idempotency_key", rec.IdempotencyKey).
		Msg("payment evidence archived locally")

	return nil
}

// ListByOwner returns the records of ownerID, oldest first.
func (s *EvidenceStore) ListByOwner(ctx context.Context, ownerID string) ([]model.EvidenceRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM payment_evidence WHERE owner_id = ? ORDER BY recorded_at`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list evidence records: %w", err)
	}
	defer rows.Close()

	var records []model.EvidenceRecord
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan evidence record: %w", err)
		}
		var rec model.EvidenceRecord
		if err := json.Unmarshal([]byte(payload), &rec); err != nil {
			return nil, fmt.Errorf("failed to decode evidence record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating evidence records: %w", err)
	}

	return records, nil
}

// Delete removes the record for linkID once it has been reconciled.
func (s *EvidenceStore) Delete(ctx context.Context, linkID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM payment_evidence WHERE link_id = ?`, linkID); err != nil {
		return fmt.Errorf("failed to delete evidence record: %w", err)
	}
	return nil
}
