package forecast

import (
	"testing"

	"github.com/rith-wik/attribute-forecasting-system/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scenarioRows() []models.FeatureRow {
	return []models.FeatureRow{
		{StoreID: "DXB01", SKU: "A1001", ColorName: "Black", Price: 20, PromoRate: 0.2, ForecastBase: 10},
		{StoreID: "DXB01", SKU: "A1002", ColorName: "Navy", Price: 20, PromoRate: 0.0, ForecastBase: 8},
	}
}

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }

func TestPriceDecreaseRaisesForecast(t *testing.T) {
	engine := NewWhatIfEngine(testLogger())
	rows := scenarioRows()

	engine.Apply(rows, &models.WhatIf{PriceDelta: floatPtr(-2.0)}, true)

	// pct change = -0.1, multiplier = 1 + (-1.5)(-0.1) = 1.15.
	assert.InDelta(t, 11.5, rows[0].ForecastBase, 1e-9)
	assert.InDelta(t, 1.15, rows[0].Impacts["price_delta"], 1e-9)
}

func TestPriceIncreaseLowersForecast(t *testing.T) {
	engine := NewWhatIfEngine(testLogger())
	rows := scenarioRows()

	engine.Apply(rows, &models.WhatIf{PriceDelta: floatPtr(5.0)}, true)

	// pct change = 0.25, multiplier = 1 - 1.5*0.25 = 0.625.
	assert.InDelta(t, 6.25, rows[0].ForecastBase, 1e-9)
	assert.Less(t, rows[0].ForecastBase, 10.0)
}

func TestExtremePriceIncreaseClampsNonNegative(t *testing.T) {
	engine := NewWhatIfEngine(testLogger())
	rows := scenarioRows()

	engine.Apply(rows, &models.WhatIf{PriceDelta: floatPtr(100.0)}, true)

	// Elasticity would push the multiplier far below zero; the clamp
	// floors it at 0.3 and the forecast stays non-negative.
	assert.InDelta(t, 3.0, rows[0].ForecastBase, 1e-9)
	assert.GreaterOrEqual(t, rows[0].ForecastBase, 0.0)
}

func TestPromoLiftWithinBounds(t *testing.T) {
	engine := NewWhatIfEngine(testLogger())
	rows := scenarioRows()
	baseline := []float64{rows[0].ForecastBase, rows[1].ForecastBase}

	engine.Apply(rows, &models.WhatIf{PromoFlag: intPtr(1)}, true)

	for i := range rows {
		lift := rows[i].ForecastBase / baseline[i]
		assert.GreaterOrEqual(t, lift, 1.10-1e-9)
		assert.LessOrEqual(t, lift, 1.40+1e-9)
	}
	// The lift is discounted by the mean historical promo rate, 0.1 here.
	assert.InDelta(t, 1.25*(1-0.5*0.1), rows[0].Impacts["promo_flag"], 1e-9)
	assert.InDelta(t, 1.25*(1-0.5*0.1), rows[1].Impacts["promo_flag"], 1e-9)
}

func TestPromoLiftWithoutHistoricalRate(t *testing.T) {
	engine := NewWhatIfEngine(testLogger())
	rows := scenarioRows()

	engine.Apply(rows, &models.WhatIf{PromoFlag: intPtr(1)}, false)
	assert.InDelta(t, 1.25, rows[0].Impacts["promo_flag"], 1e-9)
}

func TestTrendBoostMatchesColorOnly(t *testing.T) {
	engine := NewWhatIfEngine(testLogger())
	rows := scenarioRows()

	engine.Apply(rows, &models.WhatIf{TrendBoost: map[string]float64{"Black": 0.5}}, true)

	// effective = 0.5 / (1 + 0.25) = 0.4.
	assert.InDelta(t, 14.0, rows[0].ForecastBase, 1e-9)
	assert.InDelta(t, 1.4, rows[0].Impacts["trend_Black"], 1e-9)

	// Navy row untouched.
	assert.Equal(t, 8.0, rows[1].ForecastBase)
	assert.Empty(t, rows[1].Impacts)
}

func TestAdjustmentsCompose(t *testing.T) {
	engine := NewWhatIfEngine(testLogger())
	rows := scenarioRows()

	engine.Apply(rows, &models.WhatIf{
		PriceDelta: floatPtr(-2.0),
		PromoFlag:  intPtr(1),
		TrendBoost: map[string]float64{"Black": 0.5},
	}, true)

	require.Len(t, rows[0].Impacts, 3)
	want := 10.0 * 1.15 * (1.25 * (1 - 0.5*0.1)) * 1.4
	assert.InDelta(t, want, rows[0].ForecastBase, 1e-9)
}

func TestNilScenarioIsNoOp(t *testing.T) {
	engine := NewWhatIfEngine(testLogger())
	rows := scenarioRows()
	engine.Apply(rows, nil, true)
	assert.Equal(t, 10.0, rows[0].ForecastBase)
}
