package forecast

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rith-wik/attribute-forecasting-system/internal/models"
)

// epsilon guards divisions by near-zero moving averages.
const epsilon = 1e-6

// Assembler turns per-row forecast bases into the daily API series with
// confidence bands.
type Assembler struct {
	now func() time.Time
}

// NewAssembler creates an assembler. The clock is injectable for tests.
func NewAssembler(now func() time.Time) *Assembler {
	if now == nil {
		now = time.Now
	}
	return &Assembler{now: now}
}

// Assemble groups the table's rows per entity, takes the most recent row
// of each group as its representative and expands it into horizonDays of
// daily forecasts starting tomorrow. Products supply attribute lookups
// for SKU-level results.
func (a *Assembler) Assemble(table *models.FeatureTable, horizonDays int, products []models.ProductRecord) []models.ForecastResult {
	if table.Empty() {
		return nil
	}

	type resultKey struct {
		store, sku, color, size, style string
	}
	byKey := make(map[resultKey]int)
	var order []resultKey
	for i := range table.Rows {
		row := &table.Rows[i]
		key := resultKey{store: row.StoreID}
		if table.Level == models.LevelAttribute {
			key.color, key.size, key.style = row.ColorName, row.Size, row.StyleDesc
		} else {
			key.sku = row.SKU
		}
		prev, ok := byKey[key]
		if !ok {
			byKey[key] = i
			order = append(order, key)
			continue
		}
		if row.Date.After(table.Rows[prev].Date) {
			byKey[key] = i
		}
	}
	sort.Slice(order, func(a, b int) bool {
		ka, kb := order[a], order[b]
		if ka.store != kb.store {
			return ka.store < kb.store
		}
		if ka.sku != kb.sku {
			return ka.sku < kb.sku
		}
		if ka.color != kb.color {
			return ka.color < kb.color
		}
		if ka.size != kb.size {
			return ka.size < kb.size
		}
		return ka.style < kb.style
	})

	prodBySKU := make(map[string]models.ProductRecord, len(products))
	for _, p := range products {
		prodBySKU[p.SKU] = p
	}

	results := make([]models.ForecastResult, 0, len(order))
	for _, key := range order {
		latest := &table.Rows[byKey[key]]

		result := models.ForecastResult{
			StoreID: latest.StoreID,
			Daily:   a.dailySeries(latest, horizonDays),
			Explain: HeuristicAttribution(latest, table),
		}

		if table.Level == models.LevelAttribute {
			result.SKU = attributeIdentifier(latest)
			result.Attributes = map[string]string{
				"color": latest.ColorName,
				"size":  latest.Size,
				"style": latest.StyleDesc,
			}
		} else {
			result.SKU = latest.SKU
			attrs := map[string]string{
				"color": latest.ColorName,
				"size":  latest.Size,
				"style": latest.StyleDesc,
			}
			if prod, ok := prodBySKU[latest.SKU]; ok {
				attrs["color"] = prod.ColorName
				attrs["size"] = prod.Size
				attrs["style"] = prod.StyleDesc
			}
			result.Attributes = attrs
		}
		results = append(results, result)
	}
	return results
}

// dailySeries expands one representative row into the daily forecast
// curve. Bands widen with the horizon and with the volatility implied by
// the spread between the short and long moving averages.
func (a *Assembler) dailySeries(latest *models.FeatureRow, horizonDays int) []models.DailyForecast {
	base := latest.ForecastBase

	volatility := 0.2
	if latest.MA28 > 0 {
		volatility = math.Abs(latest.MA7-latest.MA28) / (latest.MA28 + epsilon)
	}
	volatility = clamp(volatility, 0.1, 0.5)

	trendFactor := 1.0
	if latest.MA28 > 0 {
		trendFactor = clamp(latest.MA7/(latest.MA28+epsilon), 0.8, 1.2)
	}

	start := a.now().UTC()
	daily := make([]models.DailyForecast, 0, horizonDays)
	for i := 0; i < horizonDays; i++ {
		date := start.AddDate(0, 0, i+1)

		dow := float64(models.DayOfWeek(date))
		dowMultiplier := 1 + 0.1*math.Sin(2*math.Pi*dow/7)

		point := base * dowMultiplier * math.Pow(trendFactor, float64(i)/30)

		widthFactor := 0.2 + 0.2*float64(i)/30
		ciWidth := widthFactor * (1 + volatility)

		lo := point * (1 - ciWidth)
		hi := point * (1 + ciWidth)

		daily = append(daily, models.DailyForecast{
			Date:          date.Format("2006-01-02"),
			ForecastUnits: round2(math.Max(0, point)),
			Lo:            round2(math.Max(0, lo)),
			Hi:            round2(hi),
		})
	}
	return daily
}

// Placeholder produces the deterministic fallback series returned when
// no feature rows are available, so the API shape stays stable.
func (a *Assembler) Placeholder(req *models.PredictRequest) []models.ForecastResult {
	skus := req.SKUs
	if len(skus) == 0 {
		skus = []string{"A1001"}
	}
	stores := req.StoreIDs
	if len(stores) == 0 {
		stores = []string{"DXB01"}
	}

	days := req.HorizonDays
	if days > 7 {
		days = 7
	}
	start := a.now().UTC()

	var results []models.ForecastResult
	for _, store := range stores {
		for _, sku := range skus {
			daily := make([]models.DailyForecast, 0, days)
			for i := 0; i < days; i++ {
				daily = append(daily, models.DailyForecast{
					Date:          start.AddDate(0, 0, i+1).Format("2006-01-02"),
					ForecastUnits: 0.9 + float64(i)*0.1,
					Lo:            0.6 + float64(i)*0.1,
					Hi:            1.2 + float64(i)*0.1,
				})
			}
			results = append(results, models.ForecastResult{
				StoreID:    store,
				SKU:        sku,
				Attributes: map[string]string{"color": "Black", "size": "M", "style": "Slim Tee"},
				Daily:      daily,
				Explain:    map[string]float64{"price": -0.12, "trend_Black": 0.25, "seasonality": 0.18},
			})
		}
	}
	return results
}

// attributeIdentifier derives a synthetic SKU-like identifier for an
// attribute-level result.
func attributeIdentifier(row *models.FeatureRow) string {
	style := row.StyleCode
	if style == "" {
		style = "UNK"
	}
	color := row.ColorName
	if color == "" {
		color = "UNK"
	}
	if len(color) > 3 {
		color = color[:3]
	}
	size := row.Size
	if size == "" {
		size = "M"
	}
	return fmt.Sprintf("%s-%s-%s", style, color, size)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
