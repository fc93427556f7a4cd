package service

import (
	"context"
	"fmt"

	"foodkart/internal/model"
	"foodkart/internal/repository"

	"github.com/rs/zerolog"
)

const (
	defaultMenuLimit = 50
	maxMenuLimit     = 200
)

// restaurantService implements RestaurantService.
type restaurantService struct {
	repo   repository.RestaurantRepository
	logger zerolog.Logger
}

// NewRestaurantService creates a new restaurant service.
func NewRestaurantService(repo repository.RestaurantRepository, logger zerolog.Logger) RestaurantService {
	return &restaurantService{
		repo:   repo,
		logger: logger.With().Str("service", "restaurant").Logger(),
	}
}

func (s *restaurantService) GetByID(ctx context.Context, id string) (*model.Restaurant, error) {
	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get restaurant: %w", err)
	}
	if r == nil {
		return nil, model.ErrRestaurantNotFound
	}
	return r, nil
}

func (s *restaurantService) Menu(ctx context.Context, restaurantID string, limit, offset int) ([]model.MenuItem, error) {
	if limit <= 0 {
		limit = defaultMenuLimit
	}
	if limit > maxMenuLimit {
		limit = maxMenuLimit
	}
	if offset < 0 {
		offset = 0
	}

	if _, err := s.GetByID(ctx, restaurantID); err != nil {
		return nil, err
	}

	items, err := s.repo.ListMenu(ctx, restaurantID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get menu: %w", err)
	}

	s.logger.Debug().
		Str("restaurant_id", restaurantID).
		Int("count", len(items)).
		Msg("menu retrieved")

	return items, nil
}
