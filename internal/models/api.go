package models

// WhatIf describes a counterfactual scenario applied on top of the
// baseline forecast.
type WhatIf struct {
	PriceDelta *float64           `json:"price_delta,omitempty"`
	PromoFlag  *int               `json:"promo_flag,omitempty"`
	TrendBoost map[string]float64 `json:"trend_boost,omitempty"`
}

// PredictRequest is the body of POST /api/v1/predict.
type PredictRequest struct {
	HorizonDays int      `json:"horizon_days"`
	StoreIDs    []string `json:"store_ids,omitempty"`
	SKUs        []string `json:"skus,omitempty"`
	Level       string   `json:"level"`
	WhatIf      *WhatIf  `json:"what_if,omitempty"`
}

// Normalize applies request defaults in place.
func (r *PredictRequest) Normalize() {
	if r.HorizonDays <= 0 {
		r.HorizonDays = 30
	}
	if r.Level == "" {
		r.Level = LevelAttribute
	}
}

// DailyForecast is a single day of a forecast series.
type DailyForecast struct {
	Date          string  `json:"date"`
	ForecastUnits float64 `json:"forecast_units"`
	Lo            float64 `json:"lo"`
	Hi            float64 `json:"hi"`
}

// ForecastResult is the forecast for one store/entity combination.
type ForecastResult struct {
	StoreID    string             `json:"store_id"`
	SKU        string             `json:"sku"`
	Attributes map[string]string  `json:"attributes"`
	Daily      []DailyForecast    `json:"daily"`
	Explain    map[string]float64 `json:"explain"`
}

// Forecast modes reported alongside results so callers can distinguish
// a model-backed forecast from a fallback.
const (
	ForecastModeModel       = "model"
	ForecastModeBaseline    = "baseline"
	ForecastModePlaceholder = "placeholder"
)

// PredictResponse is the body returned by POST /api/v1/predict.
type PredictResponse struct {
	GeneratedAt string           `json:"generated_at"`
	HorizonDays int              `json:"horizon_days"`
	Mode        string           `json:"mode"`
	Degraded    []string         `json:"degraded,omitempty"`
	Results     []ForecastResult `json:"results"`
}

// TrainRequest is the body of POST /api/v1/train.
type TrainRequest struct {
	BackfillDays int  `json:"backfill_days"`
	Retrain      bool `json:"retrain"`
}

// Normalize applies request defaults in place.
func (r *TrainRequest) Normalize() {
	if r.BackfillDays <= 0 {
		r.BackfillDays = 365
	}
}

// TrainResponse is the body returned by POST /api/v1/train.
type TrainResponse struct {
	Status  string             `json:"status"`
	Version string             `json:"version"`
	Metrics map[string]float64 `json:"metrics,omitempty"`
}

// UploadResponse reports the outcome of a dataset upload.
type UploadResponse struct {
	Success     bool           `json:"success"`
	DatasetType string         `json:"dataset_type"`
	Filename    string         `json:"filename"`
	Columns     []string       `json:"columns"`
	TotalRows   int            `json:"total_rows"`
	Statistics  map[string]int `json:"statistics"`
}
