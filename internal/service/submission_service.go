package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/parisxmas/OxiDB/OxiSubmit/internal/errdefs"
	"github.com/parisxmas/OxiDB/OxiSubmit/internal/logging"
	"github.com/parisxmas/OxiDB/OxiSubmit/internal/metrics"
	"github.com/parisxmas/OxiDB/OxiSubmit/internal/models"
	"github.com/parisxmas/OxiDB/OxiSubmit/internal/storage"
)

const listingCacheKey = "submissions:listing"

// SubmissionRepository persists submissions. Both the OxiDB and MongoDB
// repositories implement it.
type SubmissionRepository interface {
	Create(ctx context.Context, sub *models.Submission) (string, error)
	FindAll(ctx context.Context) ([]models.Submission, error)
}

// ListingCache holds the encoded listing between writes.
type ListingCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration)
	Delete(ctx context.Context, key string)
}

type CreateSubmissionInput struct {
	Name         string
	SocialHandle string
	Images       []models.ImageUpload
}

// Validate reports every missing field. Whitespace-only text counts as
// missing.
func (in CreateSubmissionInput) Validate() error {
	var missing []string
	if strings.TrimSpace(in.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(in.SocialHandle) == "" {
		missing = append(missing, "socialHandle")
	}
	if len(in.Images) == 0 {
		missing = append(missing, "images")
	}
	if len(missing) > 0 {
		return &errdefs.ValidationError{Missing: missing}
	}
	return nil
}

type Option func(*SubmissionService)

// WithCache caches the listing for ttl; every successful Create drops it.
func WithCache(c ListingCache, ttl time.Duration) Option {
	return func(s *SubmissionService) {
		s.cache = c
		s.cacheTTL = ttl
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *SubmissionService) { s.now = now }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *SubmissionService) { s.metrics = m }
}

type SubmissionService struct {
	subs   SubmissionRepository
	images storage.ImageStore
	logger *zap.Logger

	cache    ListingCache
	cacheTTL time.Duration
	// cacheMu orders listing writes against invalidations. gen counts
	// successful creates; a listing read across a bump is not cached.
	cacheMu sync.Mutex
	gen     uint64
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewSubmissionService(subs SubmissionRepository, images storage.ImageStore, logger *zap.Logger, opts ...Option) *SubmissionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &SubmissionService{
		subs:    subs,
		images:  images,
		logger:  logger.Named("submissions"),
		metrics: metrics.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates in, stores its images and persists one record.
// Images stored before a failed database write are not removed.
func (s *SubmissionService) Create(ctx context.Context, in CreateSubmissionInput) (*models.Submission, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	logger := logging.FromContext(ctx, s.logger)

	refs, err := storage.StoreAll(ctx, s.images, in.Images)
	if err != nil {
		logger.Error("store images", zap.Int("count", len(in.Images)), zap.Error(err))
		return nil, err
	}
	s.metrics.ImagesStored.WithLabelValues(s.images.Backend()).Add(float64(len(refs)))

	now := s.now().UTC()
	sub := &models.Submission{
		Name:         strings.TrimSpace(in.Name),
		SocialHandle: strings.TrimSpace(in.SocialHandle),
		Images:       refs,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	id, err := s.subs.Create(ctx, sub)
	if err != nil {
		logger.Warn("submission not saved, stored images are orphaned",
			zap.Strings("images", refs), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", errdefs.ErrPersistence, err)
	}
	sub.ID = id

	s.metrics.SubmissionsCreated.Inc()
	s.invalidate(ctx)
	logger.Info("submission created", zap.String("id", id), zap.Int("images", len(refs)))
	return sub, nil
}

// List returns every submission in insertion order. Total is the length of
// the returned slice.
func (s *SubmissionService) List(ctx context.Context) (*models.Listing, error) {
	if listing, ok := s.cached(ctx); ok {
		return listing, nil
	}

	gen := s.generation()
	subs, err := s.subs.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errdefs.ErrPersistence, err)
	}
	if subs == nil {
		subs = []models.Submission{}
	}
	listing := &models.Listing{Users: subs, Total: len(subs)}

	s.store(ctx, gen, listing)
	return listing, nil
}

func (s *SubmissionService) generation() uint64 {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	return s.gen
}

func (s *SubmissionService) invalidate(ctx context.Context) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.gen++
	if s.cache != nil {
		s.cache.Delete(ctx, listingCacheKey)
	}
}

// store caches listing unless a create landed after gen was read, in which
// case listing may predate it.
func (s *SubmissionService) store(ctx context.Context, gen uint64, listing *models.Listing) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(listing)
	if err != nil {
		return
	}
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	if s.gen != gen {
		return
	}
	s.cache.Set(ctx, listingCacheKey, data, s.cacheTTL)
}

func (s *SubmissionService) cached(ctx context.Context) (*models.Listing, bool) {
	if s.cache == nil {
		return nil, false
	}
	data, ok := s.cache.Get(ctx, listingCacheKey)
	if !ok {
		s.metrics.ListCacheMisses.Inc()
		return nil, false
	}
	var listing models.Listing
	if err := json.Unmarshal(data, &listing); err != nil {
		logging.FromContext(ctx, s.logger).Warn("drop undecodable cached listing", zap.Error(err))
		s.cache.Delete(ctx, listingCacheKey)
		s.metrics.ListCacheMisses.Inc()
		return nil, false
	}
	if listing.Users == nil {
		listing.Users = []models.Submission{}
	}
	listing.Total = len(listing.Users)
	s.metrics.ListCacheHits.Inc()
	return &listing, true
}
