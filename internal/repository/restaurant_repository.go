package repository

import (
	"context"
	"errors"
	"fmt"

	"foodkart/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// restaurantRepository implements the RestaurantRepository interface using PostgreSQL.
type restaurantRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewRestaurantRepository creates a new PostgreSQL-backed restaurant repository.
func NewRestaurantRepository(pool *pgxpool.Pool, logger zerolog.Logger) RestaurantRepository {
	return &restaurantRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "restaurant").Logger(),
	}
}

// GetByID retrieves a single restaurant by its ID.
func (r *restaurantRepository) GetByID(ctx context.Context, id string) (*model.Restaurant, error) {
	query := `
		SELECT id, name, min_order, delivery_fee, is_open, delivery_time
		FROM restaurants
		WHERE id = $1
	`

	var rest model.Restaurant
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&rest.ID,
		&rest.Name,
		&rest.MinOrder,
		&rest.DeliveryFee,
		&rest.IsOpen,
		&rest.DeliveryTime,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("restaurant_id", id).Msg("restaurant not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("restaurant_id", id).Msg("failed to query restaurant")
		return nil, fmt.Errorf("failed to query restaurant: %w", err)
	}

	return &rest, nil
}

// ListMenu retrieves the menu of a restaurant ordered by category and name.
func (r *restaurantRepository) ListMenu(ctx context.Context, restaurantID string, limit, offset int) ([]model.MenuItem, error) {
	query := `
		SELECT id, restaurant_id, name, price, category, is_available, created_at
		FROM menu_items
		WHERE restaurant_id = $1
		ORDER BY category, name
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, restaurantID, limit, offset)
	if err != nil {
		r.logger.Error().Err(err).
			Str("restaurant_id", restaurantID).
			Int("limit", limit).
			Int("offset", offset).
			Msg("failed to query menu")
		return nil, fmt.Errorf("failed to query menu: %w", err)
	}

	return r.scanMenuItems(rows)
}

// GetMenuItems retrieves the listed items of one restaurant.
func (r *restaurantRepository) GetMenuItems(ctx context.Context, restaurantID string, ids []string) ([]model.MenuItem, error) {
	if len(ids) == 0 {
		return []model.MenuItem{}, nil
	}

	query := `
		SELECT id, restaurant_id, name, price, category, is_available, created_at
		FROM menu_items
		WHERE restaurant_id = $1 AND id = ANY($2)
		ORDER BY name
	`

	rows, err := r.pool.Query(ctx, query, restaurantID, ids)
	if err != nil {
		r.logger.Error().Err(err).Int("count", len(ids)).Msg("failed to query menu items by IDs")
		return nil, fmt.Errorf("failed to query menu items by IDs: %w", err)
	}

	return r.scanMenuItems(rows)
}

func (r *restaurantRepository) scanMenuItems(rows pgx.Rows) ([]model.MenuItem, error) {
	defer rows.Close()

	items := []model.MenuItem{}
	for rows.Next() {
		var m model.MenuItem
		err := rows.Scan(&m.ID, &m.RestaurantID, &m.Name, &m.Price, &m.Category, &m.IsAvailable, &m.CreatedAt)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan menu item row")
			return nil, fmt.Errorf("failed to scan menu item: %w", err)
		}
		items = append(items, m)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating menu item rows")
		return nil, fmt.Errorf("error iterating menu items: %w", err)
	}

	return items, nil
}
