package forecast

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/rith-wik/attribute-forecasting-system/internal/models"
)

// PermutationImportance estimates per-feature importance from the rise
// in mean absolute error when that feature's column is shuffled. Scores
// are normalized by the sum of their absolute values.
func PermutationImportance(model *HybridModel, table *models.FeatureTable, repeats int, seed int64) map[string]float64 {
	out := make(map[string]float64)
	if !model.Fitted() || table.Empty() {
		return out
	}
	if repeats <= 0 {
		repeats = 10
	}

	actual := table.Target()
	baseline := meanAbsError(actual, model.Predict(table))
	rng := rand.New(rand.NewSource(seed))

	n := len(table.Rows)
	original := make([]float64, n)
	shuffled := make([]float64, n)

	for _, feature := range model.Features {
		for i := range table.Rows {
			original[i] = table.Rows[i].Feature(feature)
		}

		var increase float64
		for r := 0; r < repeats; r++ {
			copy(shuffled, original)
			rng.Shuffle(n, func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

			for i := range table.Rows {
				table.Rows[i].SetFeature(feature, shuffled[i])
			}
			increase += meanAbsError(actual, model.Predict(table)) - baseline
		}

		for i := range table.Rows {
			table.Rows[i].SetFeature(feature, original[i])
		}
		out[feature] = increase / float64(repeats)
	}

	var total float64
	for _, v := range out {
		total += math.Abs(v)
	}
	if total > 0 {
		for k, v := range out {
			out[k] = v / total
		}
	}
	return out
}

// HeuristicAttribution explains a single row with a fixed rule table.
// It is the fallback when no model-native importance is available.
// Columns gated on data availability (trend, stock) only contribute when
// the table actually carries them.
func HeuristicAttribution(row *models.FeatureRow, table *models.FeatureTable) map[string]float64 {
	out := make(map[string]float64)

	out["price"] = (1 - row.PriceIndex) * 0.15

	promo := row.PromoRate
	if promo == 0 {
		promo = row.PromoFlag
	}
	out["promo"] = promo * 0.20

	if table.HasColumn(models.FeatureTrendScore) {
		trendKey := "trend_color"
		if row.ColorName != "" {
			trendKey = "trend_" + row.ColorName
		}
		out[trendKey] = (row.TrendScore - 0.5) * 0.30
	}

	out["seasonality"] = math.Hypot(row.DaySin, row.DayCos) * 0.15

	if row.MA28 > 0 {
		out["momentum"] = (row.MA7/row.MA28 - 1) * 0.25
	}

	if table.HasColumn(models.FeatureStockCoverage) {
		if row.StockCoverage < 1 {
			out["stock"] = -0.20
		} else if row.StockCoverage > 5 {
			out["stock"] = -0.05
		}
	}
	return out
}

// ForecastChange describes the difference between a baseline and an
// adjusted forecast in terms of the scenario drivers.
type ForecastChange struct {
	AbsoluteChange float64  `json:"absolute_change"`
	PercentChange  float64  `json:"percent_change"`
	Drivers        []Driver `json:"drivers"`
}

// Driver is one scenario input and the direction of its effect.
type Driver struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Positive    bool   `json:"positive"`
}

// ExplainForecastChange reports the delta between forecasts and tags
// each applied what-if driver with the sign of its effect.
func ExplainForecastChange(baseline, adjusted float64, scenario *models.WhatIf) ForecastChange {
	change := ForecastChange{AbsoluteChange: adjusted - baseline}
	if baseline != 0 {
		change.PercentChange = (adjusted - baseline) / baseline * 100
	}
	if scenario == nil {
		return change
	}

	if scenario.PriceDelta != nil {
		d := *scenario.PriceDelta
		change.Drivers = append(change.Drivers, Driver{
			Name:        "price_delta",
			Description: fmt.Sprintf("price change of %+.2f", d),
			Positive:    d < 0,
		})
	}
	if scenario.PromoFlag != nil && *scenario.PromoFlag == 1 {
		change.Drivers = append(change.Drivers, Driver{
			Name:        "promo_flag",
			Description: "promotion activated",
			Positive:    true,
		})
	}
	for color, boost := range scenario.TrendBoost {
		change.Drivers = append(change.Drivers, Driver{
			Name:        "trend_" + color,
			Description: fmt.Sprintf("trend boost %+.2f for %s", boost, color),
			Positive:    boost > 0,
		})
	}
	return change
}

// SensitivityRange defines the sweep interval for one feature.
type SensitivityRange struct {
	Feature string
	Min     float64
	Max     float64
}

// DefaultSensitivityRanges are the sweeps evaluated when the caller does
// not supply any.
func DefaultSensitivityRanges() []SensitivityRange {
	return []SensitivityRange{
		{Feature: models.FeaturePriceIndex, Min: 0.8, Max: 1.2},
		{Feature: models.FeaturePromoFlag, Min: 0, Max: 1},
		{Feature: models.FeatureTrendScore, Min: 0.3, Max: 0.9},
	}
}

// SensitivityPoint is one evaluated (feature value, prediction) pair.
type SensitivityPoint struct {
	Value      float64 `json:"value"`
	Prediction float64 `json:"prediction"`
}

// SensitivityResult is the sweep for one feature plus the elasticity
// estimate over the whole interval.
type SensitivityResult struct {
	Feature    string             `json:"feature"`
	Points     []SensitivityPoint `json:"points"`
	Elasticity float64            `json:"elasticity"`
}

const sensitivitySteps = 10

// SensitivityAnalysis evaluates the model over each range at evenly
// spaced values of one feature, holding the rest of the row fixed.
func SensitivityAnalysis(model *HybridModel, row models.FeatureRow, ranges []SensitivityRange) []SensitivityResult {
	if !model.Fitted() {
		return nil
	}
	if len(ranges) == 0 {
		ranges = DefaultSensitivityRanges()
	}

	basePred := model.PredictRow(&row)
	baseRow := row

	results := make([]SensitivityResult, 0, len(ranges))
	for _, rg := range ranges {
		res := SensitivityResult{Feature: rg.Feature}
		baseValue := baseRow.Feature(rg.Feature)

		probe := baseRow
		step := (rg.Max - rg.Min) / float64(sensitivitySteps-1)
		for s := 0; s < sensitivitySteps; s++ {
			v := rg.Min + step*float64(s)
			probe.SetFeature(rg.Feature, v)
			res.Points = append(res.Points, SensitivityPoint{
				Value:      v,
				Prediction: model.PredictRow(&probe),
			})
		}

		first, last := res.Points[0], res.Points[len(res.Points)-1]
		if basePred != 0 && baseValue != 0 && last.Value != first.Value {
			predDelta := (last.Prediction - first.Prediction) / basePred
			featDelta := (last.Value - first.Value) / baseValue
			res.Elasticity = predDelta / featDelta
		}
		results = append(results, res)
	}
	return results
}
