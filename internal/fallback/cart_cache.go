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

// CartCache keeps the last-known cart snapshot per user.
type CartCache struct {
	db     *sql.DB
	logger zerolog.Logger
}

// NewCartCache creates a cart cache on top of an open local database.
func NewCartCache(d *DB, logger zerolog.Logger) *CartCache {
	return &CartCache{
		db:     d.db,
		logger: logger.With().Str("component", "fallback-cart-cache").Logger(),
	}
}

// Load returns the stored snapshot for ownerID, or nil if none exists.
func (c *CartCache) Load(ctx context.Context, ownerID string) (*model.CartSnapshot, error) {
	var payload string
	err := c.db.QueryRowContext(ctx,
		`SELECT payload FROM cart_snapshots WHERE owner_id = ?`, ownerID,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load cart snapshot: %w", err)
	}

	var snap model.CartSnapshot
	if err := json.Unmarshal([]byte(payload), &snap); err != nil {
		return nil, fmt.Errorf("failed to decode cart snapshot: %w", err)
	}

	c.logger.Debug().
		Str("owner_id", ownerID).
		Int("lines", len(snap.Lines)).
		Msg("cart snapshot loaded from local cache")

	return &snap, nil
}

// Save replaces the stored snapshot for the snapshot's owner.
func (c *CartCache) Save(ctx context.Context, snapshot model.CartSnapshot) error {
	if snapshot.OwnerID == "" {
		return fmt.Errorf("cart snapshot has no owner")
	}

	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode cart snapshot: %w", err)
	}

	_, err = c.db.ExecContext(ctx, `
		INSERT INTO cart_snapshots (owner_id, payload, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (owner_id) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at
	`, snapshot.OwnerID, string(payload), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to save cart snapshot: %w", err)
	}

	c.logger.Debug().
		Str("owner_id", snapshot.OwnerID).
		Uint64("version", snapshot.Version).
		Msg("cart snapshot saved to local cache")

	return nil
}

// Delete removes the stored snapshot for ownerID. Deleting a missing entry is
// not an error.
func (c *CartCache) Delete(ctx context.Context, ownerID string) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM cart_snapshots WHERE owner_id = ?`, ownerID); err != nil {
		return fmt.Errorf("failed to delete cart snapshot: %w", err)
	}
	return nil
}
