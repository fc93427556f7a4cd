package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"foodkart/internal/cart"
	"foodkart/internal/cartsync"
	"foodkart/internal/checkout"
	"foodkart/internal/client"
	"foodkart/internal/config"
	"foodkart/internal/evidence"
	"foodkart/internal/fallback"
	"foodkart/internal/payment"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
)

// session is one cartctl invocation: a restored cart plus everything needed
// to sync it and check it out.
type session struct {
	cfg    *config.ClientConfig
	logger zerolog.Logger
	out    io.Writer

	db          *fallback.DB
	store       *cart.Store
	scheduler   *cartsync.Scheduler
	carts       *fallback.CartCache
	evidence    *fallback.EvidenceStore
	restaurants *client.RestaurantClient
	orders      *client.OrderClient
	payments    *client.PaymentClient
}

// loadConfig reads the environment and applies global flag overrides.
func loadConfig(c *cli.Context) (*config.ClientConfig, error) {
	cfg, err := config.LoadClient()
	if err != nil {
		return nil, err
	}

	if c.IsSet("api-url") {
		cfg.APIURL = c.String("api-url")
	}
	if c.IsSet("api-key") {
		cfg.APIKey = c.String("api-key")
	}
	if c.IsSet("user") {
		cfg.UserID = c.String("user")
	}
	if c.IsSet("fallback-db") {
		cfg.FallbackPath = c.String("fallback-db")
	}
	if c.IsSet("log-level") {
		cfg.Logger.Level = c.String("log-level")
	}
	if c.IsSet("debounce") {
		cfg.SyncDebounce = c.Duration("debounce")
	}

	if cfg.UserID == "" {
		return nil, fmt.Errorf("a user id is required (--user or USER_ID)")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// openSession opens the local database and restores the cart. A cart that
// cannot be restored from either source leaves the session with an empty
// cart.
func openSession(c *cli.Context) (*session, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}

	logger := config.NewLoggerWithWriter(cfg.Logger, c.App.ErrWriter).
		With().Str("user_id", cfg.UserID).Logger()

	db, err := fallback.Open(c.Context, cfg.FallbackPath, logger)
	if err != nil {
		return nil, err
	}

	api := client.New(client.Config{
		BaseURL: cfg.APIURL,
		APIKey:  cfg.APIKey,
		UserID:  cfg.UserID,
		Timeout: cfg.RequestTimeout,
	}, logger)

	s := &session{
		cfg:         cfg,
		logger:      logger,
		out:         c.App.Writer,
		db:          db,
		store:       cart.NewStore(cfg.UserID, logger),
		carts:       fallback.NewCartCache(db, logger),
		evidence:    fallback.NewEvidenceStore(db, logger),
		restaurants: client.NewRestaurantClient(api),
		orders:      client.NewOrderClient(api),
		payments:    client.NewPaymentClient(api),
	}
	s.scheduler = cartsync.NewScheduler(s.store, client.NewCartClient(api), s.carts, cartsync.Config{
		Debounce: cfg.SyncDebounce,
		Timeout:  cfg.SyncTimeout,
	}, logger)

	if err := s.scheduler.Start(c.Context); err != nil {
		logger.Warn().Err(err).Msg("starting with an empty cart")
	}
	if st := s.scheduler.State(); st.UsingFallback {
		fmt.Fprintln(s.out, "warning: backend unreachable, using the cart saved on this device")
	}

	return s, nil
}

// close syncs pending changes and releases the local database.
func (s *session) close(ctx context.Context) error {
	flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.SyncTimeout)
	defer cancel()

	flushErr := s.scheduler.Flush(flushCtx)
	if flushErr != nil {
		s.logger.Warn().Err(flushErr).Msg("cart kept on this device, will sync next time")
	}
	s.scheduler.Close()

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close local database: %w", err)
	}
	return nil
}

// coordinator builds the checkout pipeline for the session and restores the
// checkout attempt a previous invocation left open.
func (s *session) coordinator(ctx context.Context) (*checkout.Coordinator, error) {
	var s3Archive evidence.Archive
	if s.cfg.S3.Enabled {
		a, err := evidence.NewS3Archive(ctx, s.cfg.S3.Bucket, s.cfg.S3.Region, s.cfg.S3.Prefix, s.logger)
		if err != nil {
			s.logger.Warn().Err(err).Msg("failed to initialise S3 archive, keeping evidence on this device only")
		} else {
			s3Archive = a
		}
	}
	archive := evidence.NewFallbackArchive(s3Archive, s.evidence, s.cfg.S3.Enabled, s.logger)

	finalizer := checkout.NewFinalizer(s.orders, s.store, s.carts, archive, fallback.NewAttemptStore(s.db, s.logger), s.logger)
	coordinator := checkout.NewCoordinator(s.store, finalizer, s.payments, checkout.Config{
		TaxRate: s.cfg.TaxRate,
		Poller: payment.Config{
			Interval:        s.cfg.PollInterval,
			Timeout:         s.cfg.PollTimeout,
			RequestTimeout:  s.cfg.RequestTimeout,
			FinalizeTimeout: 30 * time.Second,
		},
	}, s.logger)

	if err := coordinator.Restore(ctx); err != nil {
		return nil, fmt.Errorf("could not check the previous checkout: %w", err)
	}
	return coordinator, nil
}

// withSession opens a session, runs fn and closes the session.
func withSession(fn func(c *cli.Context, s *session) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		s, err := openSession(c)
		if err != nil {
			return err
		}
		runErr := fn(c, s)
		if err := s.close(c.Context); err != nil && runErr == nil {
			runErr = err
		}
		return runErr
	}
}
