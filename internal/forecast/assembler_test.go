package forecast

import (
	"testing"
	"time"

	"github.com/rith-wik/attribute-forecasting-system/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock() func() time.Time {
	return func() time.Time {
		return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	}
}

func assembledTable() *models.FeatureTable {
	return &models.FeatureTable{
		Level:   models.LevelSKU,
		Columns: []string{models.FeatureMA7, models.FeatureMA28, models.FeaturePriceIndex},
		Rows: []models.FeatureRow{
			{
				Date: day(0), StoreID: "DXB01", SKU: "A1001",
				ColorName: "Black", Size: "M", StyleDesc: "Slim Tee", StyleCode: "S1",
				MA7: 12, MA28: 10, PriceIndex: 1, ForecastBase: 10,
			},
			{
				Date: day(5), StoreID: "DXB01", SKU: "A1001",
				ColorName: "Black", Size: "M", StyleDesc: "Slim Tee", StyleCode: "S1",
				MA7: 14, MA28: 10, PriceIndex: 1, ForecastBase: 12,
			},
		},
	}
}

func TestAssembleHorizonAndOrdering(t *testing.T) {
	a := NewAssembler(fixedClock())

	results := a.Assemble(assembledTable(), 30, nil)
	require.Len(t, results, 1)

	daily := results[0].Daily
	require.Len(t, daily, 30)

	prevWidth := -1.0
	for i, d := range daily {
		parsed, err := time.Parse("2006-01-02", d.Date)
		require.NoError(t, err)
		if i == 0 {
			assert.Equal(t, "2025-06-02", d.Date)
		} else {
			prev, _ := time.Parse("2006-01-02", daily[i-1].Date)
			assert.Equal(t, prev.AddDate(0, 0, 1), parsed)
		}

		assert.GreaterOrEqual(t, d.Lo, 0.0)
		assert.LessOrEqual(t, d.Lo, d.ForecastUnits)
		assert.LessOrEqual(t, d.ForecastUnits, d.Hi)

		// Relative band width is non-decreasing across the horizon.
		if d.ForecastUnits > 0 {
			width := (d.Hi - d.Lo) / d.ForecastUnits
			assert.GreaterOrEqual(t, width, prevWidth-1e-9)
			prevWidth = width
		}
	}
}

func TestAssembleUsesMostRecentRow(t *testing.T) {
	a := NewAssembler(fixedClock())
	table := assembledTable()

	results := a.Assemble(table, 7, nil)
	require.Len(t, results, 1)

	// The day(5) row has ForecastBase 12 and MA7/MA28 = 1.4, so the
	// trend factor clamps at 1.2 rather than 1.0.
	first := results[0].Daily[0]
	assert.Greater(t, first.ForecastUnits, 0.0)
	assert.Equal(t, "A1001", results[0].SKU)
	assert.Equal(t, "Black", results[0].Attributes["color"])
}

func TestAssembleAttributeLevelIdentifier(t *testing.T) {
	a := NewAssembler(fixedClock())
	table := assembledTable()
	table.Level = models.LevelAttribute

	results := a.Assemble(table, 7, nil)
	require.Len(t, results, 1)
	assert.Equal(t, "S1-Bla-M", results[0].SKU)
	assert.Equal(t, "Slim Tee", results[0].Attributes["style"])
}

func TestAssembleProductLookupForSKULevel(t *testing.T) {
	a := NewAssembler(fixedClock())
	table := &models.FeatureTable{
		Level:   models.LevelSKU,
		Columns: []string{models.FeatureMA7},
		Rows: []models.FeatureRow{
			{Date: day(0), StoreID: "DXB01", SKU: "A1001", ForecastBase: 5},
		},
	}
	products := []models.ProductRecord{
		{SKU: "A1001", ColorName: "Flame", Size: "L", StyleDesc: "Day Dress"},
	}

	results := a.Assemble(table, 7, products)
	require.Len(t, results, 1)
	assert.Equal(t, "Flame", results[0].Attributes["color"])
	assert.Equal(t, "L", results[0].Attributes["size"])
}

func TestAssembleEmptyTable(t *testing.T) {
	a := NewAssembler(fixedClock())
	assert.Nil(t, a.Assemble(&models.FeatureTable{Level: models.LevelSKU}, 7, nil))
}

func TestPlaceholderSeries(t *testing.T) {
	a := NewAssembler(fixedClock())

	req := &models.PredictRequest{HorizonDays: 30, Level: models.LevelSKU}
	results := a.Placeholder(req)
	require.Len(t, results, 1)

	assert.Equal(t, "DXB01", results[0].StoreID)
	assert.Equal(t, "A1001", results[0].SKU)
	// The fallback series is capped at seven days.
	require.Len(t, results[0].Daily, 7)
	assert.InDelta(t, 0.9, results[0].Daily[0].ForecastUnits, 1e-9)
	assert.InDelta(t, 1.5, results[0].Daily[6].ForecastUnits, 1e-9)
	assert.Equal(t, "2025-06-02", results[0].Daily[0].Date)
}

func TestPlaceholderHonorsFilters(t *testing.T) {
	a := NewAssembler(fixedClock())

	req := &models.PredictRequest{
		HorizonDays: 5,
		StoreIDs:    []string{"DXB01", "AUH01"},
		SKUs:        []string{"Z9"},
	}
	results := a.Placeholder(req)
	require.Len(t, results, 2)
	assert.Equal(t, "AUH01", results[1].StoreID)
	assert.Equal(t, "Z9", results[1].SKU)
	assert.Len(t, results[1].Daily, 5)
}
