package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rith-wik/attribute-forecasting-system/internal/dataset"
	"github.com/rith-wik/attribute-forecasting-system/internal/features"
	"github.com/rith-wik/attribute-forecasting-system/internal/forecast"
	"github.com/rith-wik/attribute-forecasting-system/internal/models"
	"github.com/rith-wik/attribute-forecasting-system/internal/utils"
)

// Training statuses reported to the caller.
const (
	TrainStatusTrained = "trained"
	TrainStatusSkipped = "skipped"
)

// TrainingService runs the train/evaluate/publish cycle. Training is
// serialized through its own mutex; the model is built entirely off to
// the side and published with an atomic registry swap, so concurrent
// prediction reads are never blocked.
type TrainingService struct {
	loader   *dataset.Loader
	pipeline *features.Pipeline
	trainer  *forecast.Trainer
	registry *forecast.Registry
	logger   *slog.Logger

	mu sync.Mutex
}

// NewTrainingService creates a training service.
func NewTrainingService(loader *dataset.Loader, pipeline *features.Pipeline, trainer *forecast.Trainer, registry *forecast.Registry, logger *slog.Logger) *TrainingService {
	return &TrainingService{
		loader:   loader,
		pipeline: pipeline,
		trainer:  trainer,
		registry: registry,
		logger:   logger,
	}
}

// Train builds the attribute-level feature table from the current
// snapshot, fits a model and publishes it. With Retrain false an already
// published model short-circuits to a skipped response. A failed run
// leaves the previously published model untouched.
func (s *TrainingService) Train(ctx context.Context, req *models.TrainRequest) (*models.TrainResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req.Normalize()
	jobID := uuid.New().String()
	log := s.logger.With("job_id", jobID)

	if !req.Retrain {
		if _, meta := s.registry.Current(); meta != nil {
			log.Info("model already published, skipping training", "version", meta.Version)
			return &models.TrainResponse{
				Status:  TrainStatusSkipped,
				Version: meta.Version,
				Metrics: meta.Metrics,
			}, nil
		}
	}

	snap := s.loader.LoadSnapshot(ctx)
	snap.Sales = backfillWindow(snap.Sales, req.BackfillDays)
	if len(snap.Sales) == 0 {
		return nil, utils.NewValidationError("no sales history available for training")
	}

	table := s.pipeline.Build(snap, models.LevelAttribute)
	log.Info("feature table built", "rows", len(table.Rows), "backfill_days", req.BackfillDays)

	result, err := s.trainer.Train(table)
	if err != nil {
		return nil, err
	}

	meta := forecast.Metadata{
		Version:      result.Version,
		TrainedAt:    result.Model.TrainedAt,
		BackfillDays: req.BackfillDays,
		Level:        models.LevelAttribute,
		Metrics:      result.Metrics,
		Importance:   result.Importance,
		Permutation:  result.PermutationImportance,
	}
	version, err := s.registry.Publish(ctx, result.Model, meta)
	if err != nil {
		return nil, err
	}

	return &models.TrainResponse{
		Status:  TrainStatusTrained,
		Version: version,
		Metrics: result.Metrics,
	}, nil
}

// backfillWindow keeps only sales within backfillDays of the most recent
// sale.
func backfillWindow(sales []models.SalesRecord, backfillDays int) []models.SalesRecord {
	if len(sales) == 0 {
		return sales
	}

	var latest time.Time
	for _, rec := range sales {
		if rec.Date.After(latest) {
			latest = rec.Date
		}
	}
	cutoff := latest.AddDate(0, 0, -backfillDays)

	kept := make([]models.SalesRecord, 0, len(sales))
	for _, rec := range sales {
		if !rec.Date.Before(cutoff) {
			kept = append(kept, rec)
		}
	}
	return kept
}
