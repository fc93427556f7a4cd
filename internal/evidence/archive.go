// Package evidence archives payment evidence for support reconciliation when
// a customer paid but no order could be created.
package evidence

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"foodkart/internal/model"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// Archive stores evidence records durably.
type Archive interface {
	Store(ctx context.Context, rec model.EvidenceRecord) error
}

// S3API is the subset of the S3 client used by the archive.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// s3Archive implements Archive by writing one JSON object per payment link.
type s3Archive struct {
	client S3API
	bucket string
	prefix string
	logger zerolog.Logger
}

// NewS3Archive creates an S3-backed archive using the default AWS
// credential chain.
func NewS3Archive(ctx context.Context, bucket, region, prefix string, logger zerolog.Logger) (Archive, error) {
	logger = logger.With().Str("component", "s3-evidence-archive").Logger()

	// Load AWS configuration
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		logger.Error().Err(err).Msg("failed to load AWS configuration")
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	logger.Info().
		Str("bucket", bucket).
		Str("region", region).
		Msg("S3 evidence archive initialised")

	return NewS3ArchiveWithClient(s3.NewFromConfig(cfg), bucket, prefix, logger), nil
}

// NewS3ArchiveWithClient creates an S3-backed archive with a caller-supplied
// client.
func NewS3ArchiveWithClient(client S3API, bucket, prefix string, logger zerolog.Logger) Archive {
	return &s3Archive{
		client: client,
		bucket: bucket,
		prefix: prefix,
		logger: logger.With().Str("component", "s3-evidence-archive").Logger(),
	}
}

// Key returns the object key of the record for linkID.
func Key(prefix, linkID string) string {
	return prefix + linkID + ".json"
}

func (a *s3Archive) Store(ctx context.Context, rec model.EvidenceRecord) error {
	if rec.Evidence.LinkID == "" {
		return fmt.Errorf("evidence record has no payment link")
	}
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = time.Now().UTC()
	}

	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode evidence record: %w", err)
	}

	key := Key(a.prefix, rec.Evidence.LinkID)
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		a.logger.Error().
			Err(err).
			Str("bucket", a.bucket).
			Str("key", key).
			Msg("failed to put evidence object to S3")
		return fmt.Errorf("failed to put evidence to S3 (bucket=%s, key=%s): %w", a.bucket, key, err)
	}

	a.logger.Info().
		Str("bucket", a.bucket).
		Str("key", key).
		Str("idempotency_key", rec.IdempotencyKey).
		Msg("payment evidence archived to S3")

	return nil
}

// fallbackArchive tries S3 first, then the local store.
type fallbackArchive struct {
	s3Archive    Archive
	localArchive Archive
	s3Enabled    bool
	logger       zerolog.Logger
}

// NewFallbackArchive creates an archive that tries S3 first, then falls back
// to the local store. If s3Archive is nil only the local store is used.
func NewFallbackArchive(s3Archive, localArchive Archive, s3Enabled bool, logger zerolog.Logger) Archive {
	return &fallbackArchive{
		s3Archive:    s3Archive,
		localArchive: localArchive,
		s3Enabled:    s3Enabled,
		logger:       logger.With().Str("component", "fallback-evidence-archive").Logger(),
	}
}

func (a *fallbackArchive) Store(ctx context.Context, rec model.EvidenceRecord) error {
	var s3Err error

	// Try S3 first if enabled and configured
	if a.s3Enabled && a.s3Archive != nil {
		s3Err = a.s3Archive.Store(ctx, rec)
		if s3Err == nil {
			return nil
		}
		a.logger.Warn().
			Err(s3Err).
			Str("link_id", rec.Evidence.LinkID).
			Msg("failed to archive evidence to S3, falling back to local store")
	} else {
		a.logger.Debug().
			Bool("s3_enabled", a.s3Enabled).
			Bool("has_s3_archive", a.s3Archive != nil).
			Msg("S3 disabled or not configured, using local store")
	}

	if err := a.localArchive.Store(ctx, rec); err != nil {
		return fmt.Errorf("failed to archive payment evidence: %w", errors.Join(s3Err, err))
	}
	return nil
}
