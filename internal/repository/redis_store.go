package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"foodkart/internal/model"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// maxUpdateRetries bounds optimistic retries of PaymentLinkStore.Update.
const maxUpdateRetries = 5

// redisCartStore implements CartStore on Redis.
type redisCartStore struct {
	client  *redis.Client
	baseTTL time.Duration
	logger  zerolog.Logger
}

// NewRedisCartStore creates a Redis-backed cart store. Carts expire after
// ttl plus up to five minutes of jitter.
func NewRedisCartStore(client *redis.Client, ttl time.Duration, logger zerolog.Logger) CartStore {
	return &redisCartStore{
		client:  client,
		baseTTL: ttl,
		logger:  logger.With().Str("repository", "cart").Logger(),
	}
}

func (s *redisCartStore) Get(ctx context.Context, userID string) (*model.CartResponse, error) {
	data, err := s.client.Get(ctx, cartKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("failed to read cart")
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var cart model.CartResponse
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, fmt.Errorf("unmarshal cart failed: %w", err)
	}

	return &cart, nil
}

func (s *redisCartStore) Save(ctx context.Context, cart *model.CartResponse) error {
	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}

	jitter := time.Duration(rand.Intn(5)) * time.Minute
	if err := s.client.Set(ctx, cartKey(cart.UserID), data, s.baseTTL+jitter).Err(); err != nil {
		s.logger.Error().Err(err).Str("user_id", cart.UserID).Msg("failed to write cart")
		return fmt.Errorf("redis set failed: %w", err)
	}

	s.logger.Debug().Str("user_id", cart.UserID).Int("items", len(cart.Items)).Msg("cart saved")
	return nil
}

func (s *redisCartStore) Delete(ctx context.Context, userID string) error {
	if err := s.client.Del(ctx, cartKey(userID)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func cartKey(userID string) string {
	return fmt.Sprintf("cart:%s", userID)
}

// redisPaymentLinkStore implements PaymentLinkStore on Redis.
type redisPaymentLinkStore struct {
	client *redis.Client
	logger zerolog.Logger
}

// NewRedisPaymentLinkStore creates a Redis-backed payment link store.
func NewRedisPaymentLinkStore(client *redis.Client, logger zerolog.Logger) PaymentLinkStore {
	return &redisPaymentLinkStore{
		client: client,
		logger: logger.With().Str("repository", "payment_link").Logger(),
	}
}

func (s *redisPaymentLinkStore) Save(ctx context.Context, rec *model.PaymentLinkRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal payment link failed: %w", err)
	}

	if err := s.client.Set(ctx, linkKey(rec.Link.LinkID), data, linkTTL(rec)).Err(); err != nil {
		s.logger.Error().Err(err).Str("link_id", rec.Link.LinkID).Msg("failed to write payment link")
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (s *redisPaymentLinkStore) Get(ctx context.Context, linkID string) (*model.PaymentLinkRecord, error) {
	data, err := s.client.Get(ctx, linkKey(linkID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var rec model.PaymentLinkRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal payment link failed: %w", err)
	}
	return &rec, nil
}

func (s *redisPaymentLinkStore) Update(ctx context.Context, linkID string, fn func(rec *model.PaymentLinkRecord) error) (*model.PaymentLinkRecord, error) {
	key := linkKey(linkID)
	var updated *model.PaymentLinkRecord

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return model.ErrPaymentLinkNotFound
		}
		if err != nil {
			return err
		}

		var rec model.PaymentLinkRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return fmt.Errorf("unmarshal payment link failed: %w", err)
		}
		if err := fn(&rec); err != nil {
			return err
		}

		out, err := json.Marshal(&rec)
		if err != nil {
			return fmt.Errorf("marshal payment link failed: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, linkTTL(&rec))
			return nil
		})
		if err == nil {
			updated = &rec
		}
		return err
	}

	for i := 0; i < maxUpdateRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return updated, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			s.logger.Debug().Str("link_id", linkID).Int("attempt", i+1).Msg("payment link changed concurrently, retrying")
			continue
		}
		return nil, err
	}

	return nil, fmt.Errorf("payment link %s: too much contention", linkID)
}

func linkKey(linkID string) string {
	return fmt.Sprintf("payment_link:%s", linkID)
}

func linkTTL(rec *model.PaymentLinkRecord) time.Duration {
	ttl := time.Until(rec.Link.ExpiresAt) + linkRetention
	if ttl < time.Minute {
		ttl = time.Minute
	}
	return ttl
}
