// Package services wires the feature pipeline, model registry and
// what-if engine into the operations the API layer exposes.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rith-wik/attribute-forecasting-system/internal/dataset"
	"github.com/rith-wik/attribute-forecasting-system/internal/features"
	"github.com/rith-wik/attribute-forecasting-system/internal/forecast"
	"github.com/rith-wik/attribute-forecasting-system/internal/models"
)

// Degradation reasons reported alongside a fallback forecast.
const (
	DegradedNoFeatures = "no_feature_rows"
	DegradedNoModel    = "no_trained_model"
	DegradedPrediction = "prediction_failed"
)

// ForecastService serves prediction requests. It reads the published
// model through the registry; a request uses whichever model reference
// was current when it began.
type ForecastService struct {
	loader    *dataset.Loader
	pipeline  *features.Pipeline
	registry  *forecast.Registry
	whatIf    *forecast.WhatIfEngine
	assembler *forecast.Assembler
	logger    *slog.Logger
}

// NewForecastService creates a forecast service.
func NewForecastService(loader *dataset.Loader, pipeline *features.Pipeline, registry *forecast.Registry, logger *slog.Logger) *ForecastService {
	return &ForecastService{
		loader:    loader,
		pipeline:  pipeline,
		registry:  registry,
		whatIf:    forecast.NewWhatIfEngine(logger),
		assembler: forecast.NewAssembler(nil),
		logger:    logger,
	}
}

// Predict computes a forecast for the request. Degraded paths (no
// features, no published model, prediction failure) fall back rather
// than erroring and are reported in the response.
func (s *ForecastService) Predict(ctx context.Context, req *models.PredictRequest) (*models.PredictResponse, error) {
	req.Normalize()

	resp := &models.PredictResponse{
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		HorizonDays: req.HorizonDays,
	}

	snap := filterSnapshot(s.loader.LoadSnapshot(ctx), req)
	table := s.pipeline.Build(snap, req.Level)
	if table.Empty() {
		resp.Mode = models.ForecastModePlaceholder
		resp.Degraded = []string{DegradedNoFeatures}
		resp.Results = s.assembler.Placeholder(req)
		s.logger.Warn("no feature rows for request, serving placeholder",
			"level", req.Level, "stores", req.StoreIDs, "skus", req.SKUs)
		return resp, nil
	}

	model, _ := s.registry.Current()
	switch {
	case model == nil:
		s.baselineForecast(table)
		resp.Mode = models.ForecastModeBaseline
		resp.Degraded = []string{DegradedNoModel}
	default:
		if err := s.modelForecast(model, table); err != nil {
			s.logger.Error("model prediction failed, falling back to baseline", "error", err)
			s.baselineForecast(table)
			resp.Mode = models.ForecastModeBaseline
			resp.Degraded = []string{DegradedPrediction}
		} else {
			resp.Mode = models.ForecastModeModel
		}
	}

	s.whatIf.Apply(table.Rows, req.WhatIf, table.HasColumn(models.FeaturePromoRate))

	resp.Results = s.assembler.Assemble(table, req.HorizonDays, snap.Products)
	return resp, nil
}

// modelForecast fills each row's forecast base from the published model.
// A panic inside prediction is caught locally and converted into a
// fallback, never surfaced to the caller.
func (s *ForecastService) modelForecast(model *forecast.HybridModel, table *models.FeatureTable) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("prediction panicked: %v", r)
		}
	}()
	for i := range table.Rows {
		table.Rows[i].ForecastBase = model.PredictRow(&table.Rows[i])
	}
	return nil
}

// baselineForecast uses the 7-day moving average as the forecast base,
// falling back to the raw observation when no average is available.
func (s *ForecastService) baselineForecast(table *models.FeatureTable) {
	for i := range table.Rows {
		base := table.Rows[i].MA7
		if base <= 0 {
			base = table.Rows[i].UnitsSold
		}
		table.Rows[i].ForecastBase = base
	}
}

// filterSnapshot applies the request's store and SKU filters to the raw
// tables before feature engineering.
func filterSnapshot(snap models.Snapshot, req *models.PredictRequest) models.Snapshot {
	if len(req.StoreIDs) == 0 && len(req.SKUs) == 0 {
		return snap
	}

	stores := toSet(req.StoreIDs)
	skus := toSet(req.SKUs)

	var sales []models.SalesRecord
	for _, rec := range snap.Sales {
		if matches(stores, rec.StoreID) && matches(skus, rec.SKU) {
			sales = append(sales, rec)
		}
	}
	snap.Sales = sales

	var inventory []models.InventoryRecord
	for _, rec := range snap.Inventory {
		if matches(stores, rec.StoreID) && matches(skus, rec.SKU) {
			inventory = append(inventory, rec)
		}
	}
	snap.Inventory = inventory
	return snap
}

func toSet(values []string) map[string]struct{} {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

func matches(set map[string]struct{}, v string) bool {
	if set == nil {
		return true
	}
	_, ok := set[v]
	return ok
}
