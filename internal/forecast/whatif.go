package forecast

import (
	"log/slog"
	"math"

	"github.com/rith-wik/attribute-forecasting-system/internal/models"
)

// What-if tuning constants.
const (
	priceElasticity   = -1.5
	priceMultiplierLo = 0.3
	priceMultiplierHi = 2.0
	promoBaseLift     = 1.25
)

// WhatIfEngine applies counterfactual adjustments multiplicatively to
// each row's forecast base, recording every multiplier in the row's
// Impacts map for explainability.
type WhatIfEngine struct {
	logger *slog.Logger
}

// NewWhatIfEngine creates a what-if engine.
func NewWhatIfEngine(logger *slog.Logger) *WhatIfEngine {
	return &WhatIfEngine{logger: logger}
}

// Apply mutates the rows' ForecastBase according to the scenario. The
// adjustments are independent multipliers, so application order does not
// change the outcome. Rows must already carry a forecast base.
func (e *WhatIfEngine) Apply(rows []models.FeatureRow, scenario *models.WhatIf, hasPromoRate bool) {
	if scenario == nil {
		return
	}

	if scenario.PriceDelta != nil {
		e.applyPriceDelta(rows, *scenario.PriceDelta)
	}
	if scenario.PromoFlag != nil && *scenario.PromoFlag == 1 {
		e.applyPromoLift(rows, hasPromoRate)
	}
	for color, boost := range scenario.TrendBoost {
		e.applyTrendBoost(rows, color, boost)
	}
}

// applyPriceDelta converts an absolute price change into a percent
// change against the mean price in scope and scales demand by a
// constant elasticity, clamped to a sane multiplier range.
func (e *WhatIfEngine) applyPriceDelta(rows []models.FeatureRow, delta float64) {
	var priceSum float64
	var n int
	for i := range rows {
		if rows[i].Price > 0 {
			priceSum += rows[i].Price
			n++
		}
	}
	if n == 0 {
		return
	}
	meanPrice := priceSum / float64(n)
	pctChange := delta / meanPrice

	multiplier := 1 + priceElasticity*pctChange
	if multiplier < priceMultiplierLo {
		multiplier = priceMultiplierLo
	}
	if multiplier > priceMultiplierHi {
		multiplier = priceMultiplierHi
	}

	for i := range rows {
		applyImpact(&rows[i], "price_delta", multiplier)
	}
	e.logger.Debug("applied price scenario", "delta", delta, "multiplier", multiplier)
}

// applyPromoLift applies the promotion lift, discounted by how often
// the rows in scope were already on promotion. The discount uses the
// mean historical promo rate so one lift applies uniformly.
func (e *WhatIfEngine) applyPromoLift(rows []models.FeatureRow, hasPromoRate bool) {
	lift := promoBaseLift
	if hasPromoRate && len(rows) > 0 {
		var sum float64
		for i := range rows {
			sum += rows[i].PromoRate
		}
		lift = promoBaseLift * (1 - 0.5*sum/float64(len(rows)))
	}
	for i := range rows {
		applyImpact(&rows[i], "promo_flag", lift)
	}
}

// applyTrendBoost applies a diminishing-returns trend multiplier to rows
// whose color matches.
func (e *WhatIfEngine) applyTrendBoost(rows []models.FeatureRow, color string, boost float64) {
	effective := boost / (1 + math.Abs(boost)*0.5)
	for i := range rows {
		if rows[i].ColorName != color {
			continue
		}
		applyImpact(&rows[i], "trend_"+color, 1+effective)
	}
}

func applyImpact(row *models.FeatureRow, driver string, multiplier float64) {
	if row.Impacts == nil {
		row.Impacts = make(map[string]float64)
	}
	row.Impacts[driver] = multiplier
	row.ForecastBase *= multiplier
	if row.ForecastBase < 0 {
		row.ForecastBase = 0
	}
}
