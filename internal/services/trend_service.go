package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/rand"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rith-wik/attribute-forecasting-system/internal/dataset"
	"github.com/rith-wik/attribute-forecasting-system/internal/models"
	"github.com/rith-wik/attribute-forecasting-system/internal/storage"
	"github.com/rith-wik/attribute-forecasting-system/internal/utils"
)

const trendCachePrefix = "trends:recent:"

// TrendService manages the social trend signal: ingesting new
// observations, serving recent ones, and generating synthetic demo data.
// A Redis client is optional; without one every read goes to the store.
type TrendService struct {
	store  storage.Store
	redis  *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewTrendService creates a trend service. redisClient may be nil.
func NewTrendService(store storage.Store, redisClient *redis.Client, ttl time.Duration, logger *slog.Logger) *TrendService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TrendService{store: store, redis: redisClient, ttl: ttl, logger: logger}
}

// Recent returns the most recent trend observations for a region, newest
// first. Results are cached in Redis per region when a client is
// configured. An empty region matches everything.
func (s *TrendService) Recent(ctx context.Context, region string, limit int) ([]models.TrendRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	if cached, ok := s.cacheGet(ctx, region); ok {
		if len(cached) > limit {
			cached = cached[:limit]
		}
		return cached, nil
	}

	records, err := s.loadAll(ctx)
	if err != nil {
		return nil, err
	}

	filtered := records[:0:0]
	for _, rec := range records {
		if region == "" || rec.Region == region {
			filtered = append(filtered, rec)
		}
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Timestamp.After(filtered[j].Timestamp)
	})

	s.cacheSet(ctx, region, filtered)

	if len(filtered) > limit {
		filtered = filtered[:limit]
	}
	return filtered, nil
}

// Ingest appends trend observations to the stored table and invalidates
// the affected cache entries. Scores are clamped into [0, 1].
func (s *TrendService) Ingest(ctx context.Context, records []models.TrendRecord) (int, error) {
	if len(records) == 0 {
		return 0, utils.NewValidationError("no trend records to ingest")
	}

	existing, err := s.loadAll(ctx)
	if err != nil {
		return 0, err
	}

	regions := make(map[string]struct{})
	for _, rec := range records {
		if rec.TrendScore < 0 {
			rec.TrendScore = 0
		} else if rec.TrendScore > 1 {
			rec.TrendScore = 1
		}
		if rec.Timestamp.IsZero() {
			rec.Timestamp = time.Now().UTC()
		}
		existing = append(existing, rec)
		regions[rec.Region] = struct{}{}
	}

	data, err := dataset.EncodeTrends(existing).EncodeCSV()
	if err != nil {
		return 0, utils.NewPersistenceError("encode trends", err)
	}
	if err := s.store.Upload(ctx, dataset.TrendsObject, data); err != nil {
		return 0, utils.NewPersistenceError("write trends", err)
	}

	for region := range regions {
		s.cacheInvalidate(ctx, region)
	}
	s.cacheInvalidate(ctx, "")

	s.logger.Info("trend records ingested", "count", len(records), "total", len(existing))
	return len(records), nil
}

// GenerateMock produces synthetic trend observations for demos and
// seeding.
func (s *TrendService) GenerateMock(region string, count int) []models.TrendRecord {
	if region == "" {
		region = "AE"
	}
	if count <= 0 {
		count = 5
	}

	colors := []string{"Black", "White", "Flame", "Navy", "Olive"}
	styles := []string{"slim tee", "day dress", "cargo pants", "oversized hoodie"}
	channels := []string{"instagram", "tiktok", "pinterest"}

	now := time.Now().UTC()
	records := make([]models.TrendRecord, 0, count)
	for i := 0; i < count; i++ {
		records = append(records, models.TrendRecord{
			Timestamp:    now,
			Region:       region,
			Channel:      channels[rand.Intn(len(channels))],
			ColorName:    colors[rand.Intn(len(colors))],
			StyleKeyword: styles[rand.Intn(len(styles))],
			TrendScore:   0.3 + rand.Float64()*0.7,
		})
	}
	return records
}

func (s *TrendService) loadAll(ctx context.Context) ([]models.TrendRecord, error) {
	exists, err := s.store.Exists(ctx, dataset.TrendsObject)
	if err != nil {
		return nil, utils.NewPersistenceError("check trends", err)
	}
	if !exists {
		return nil, nil
	}
	data, err := s.store.Download(ctx, dataset.TrendsObject)
	if err != nil {
		return nil, utils.NewPersistenceError("read trends", err)
	}
	table, err := dataset.ReadCSVBytes(data)
	if err != nil {
		return nil, utils.NewValidationErrorf("malformed trends table: %v", err)
	}
	return dataset.DecodeTrends(table), nil
}

func (s *TrendService) cacheGet(ctx context.Context, region string) ([]models.TrendRecord, bool) {
	if s.redis == nil {
		return nil, false
	}
	data, err := s.redis.Get(ctx, trendCachePrefix+region).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.logger.Warn("trend cache read failed", "region", region, "error", err)
		}
		return nil, false
	}
	var records []models.TrendRecord
	if err := json.Unmarshal(data, &records); err != nil {
		s.logger.Warn("trend cache entry corrupt", "region", region, "error", err)
		return nil, false
	}
	return records, true
}

func (s *TrendService) cacheSet(ctx context.Context, region string, records []models.TrendRecord) {
	if s.redis == nil {
		return
	}
	data, err := json.Marshal(records)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, trendCachePrefix+region, data, s.ttl).Err(); err != nil {
		s.logger.Warn("trend cache write failed", "region", region, "error", err)
	}
}

func (s *TrendService) cacheInvalidate(ctx context.Context, region string) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, trendCachePrefix+region).Err(); err != nil {
		s.logger.Warn("trend cache invalidation failed", "region", region, "error", err)
	}
}
