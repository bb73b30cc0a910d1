package models

import "time"

// Aggregation levels supported by the feature pipeline.
const (
	LevelSKU       = "sku"
	LevelAttribute = "attribute"
)

// Feature column names. The order of AllowedFeatures is the canonical
// column order shared by training and inference.
const (
	FeatureMA7              = "ma_7d"
	FeatureMA28             = "ma_28d"
	FeaturePromoFlag        = "promo_flag"
	FeaturePromoRate        = "promo_rate_7d"
	FeaturePriceIndex       = "price_index"
	FeatureDaySin           = "day_sin"
	FeatureDayCos           = "day_cos"
	FeatureDowSin           = "dow_sin"
	FeatureDowCos           = "dow_cos"
	FeatureStockCoverage    = "stock_coverage"
	FeatureIncomingCoverage = "incoming_coverage"
	FeatureTrendScore       = "trend_score"
)

// AllowedFeatures is the ordered set of columns the model may train on.
// Present columns are intersected with this list at fit time.
var AllowedFeatures = []string{
	FeatureMA7, FeatureMA28, FeaturePromoFlag, FeaturePromoRate,
	FeaturePriceIndex, FeatureDaySin, FeatureDayCos, FeatureDowSin, FeatureDowCos,
	FeatureStockCoverage, FeatureIncomingCoverage, FeatureTrendScore,
}

// FeatureRow is an aggregated observation plus its derived numeric features.
// Identity columns depend on the aggregation level: SKU rows carry SKU,
// attribute rows are keyed by (color, size, style).
type FeatureRow struct {
	Date      time.Time `json:"date"`
	StoreID   string    `json:"store_id"`
	Channel   string    `json:"channel"`
	SKU       string    `json:"sku,omitempty"`
	StyleCode string    `json:"style_code,omitempty"`
	StyleDesc string    `json:"style_desc,omitempty"`
	ColorName string    `json:"color_name,omitempty"`
	Size      string    `json:"size,omitempty"`
	Category  string    `json:"category,omitempty"`

	UnitsSold float64 `json:"units_sold"`
	PromoFlag float64 `json:"promo_flag"`
	Price     float64 `json:"price"`

	MA7              float64 `json:"ma_7d"`
	MA28             float64 `json:"ma_28d"`
	PromoRate        float64 `json:"promo_rate_7d"`
	PriceIndex       float64 `json:"price_index"`
	DaySin           float64 `json:"day_sin"`
	DayCos           float64 `json:"day_cos"`
	DowSin           float64 `json:"dow_sin"`
	DowCos           float64 `json:"dow_cos"`
	StockCoverage    float64 `json:"stock_coverage,omitempty"`
	IncomingCoverage float64 `json:"incoming_coverage,omitempty"`
	TrendScore       float64 `json:"trend_score,omitempty"`

	// ForecastBase is filled in by the prediction path; Impacts tracks
	// what-if multipliers applied to it, keyed by driver name.
	ForecastBase float64            `json:"forecast_base,omitempty"`
	Impacts      map[string]float64 `json:"impacts,omitempty"`
}

// Feature returns the named feature value from the row.
func (r *FeatureRow) Feature(name string) float64 {
	switch name {
	case FeatureMA7:
		return r.MA7
	case FeatureMA28:
		return r.MA28
	case FeaturePromoFlag:
		return r.PromoFlag
	case FeaturePromoRate:
		return r.PromoRate
	case FeaturePriceIndex:
		return r.PriceIndex
	case FeatureDaySin:
		return r.DaySin
	case FeatureDayCos:
		return r.DayCos
	case FeatureDowSin:
		return r.DowSin
	case FeatureDowCos:
		return r.DowCos
	case FeatureStockCoverage:
		return r.StockCoverage
	case FeatureIncomingCoverage:
		return r.IncomingCoverage
	case FeatureTrendScore:
		return r.TrendScore
	}
	return 0
}

// SetFeature writes the named feature value back onto the row.
func (r *FeatureRow) SetFeature(name string, v float64) {
	switch name {
	case FeatureMA7:
		r.MA7 = v
	case FeatureMA28:
		r.MA28 = v
	case FeaturePromoFlag:
		r.PromoFlag = v
	case FeaturePromoRate:
		r.PromoRate = v
	case FeaturePriceIndex:
		r.PriceIndex = v
	case FeatureDaySin:
		r.DaySin = v
	case FeatureDayCos:
		r.DayCos = v
	case FeatureDowSin:
		r.DowSin = v
	case FeatureDowCos:
		r.DowCos = v
	case FeatureStockCoverage:
		r.StockCoverage = v
	case FeatureIncomingCoverage:
		r.IncomingCoverage = v
	case FeatureTrendScore:
		r.TrendScore = v
	}
}

// FeatureTable is an ordered set of feature rows plus the list of feature
// columns actually populated for this aggregation level.
type FeatureTable struct {
	Level   string
	Rows    []FeatureRow
	Columns []string
}

// Empty reports whether the table has no rows.
func (t *FeatureTable) Empty() bool {
	return t == nil || len(t.Rows) == 0
}

// HasColumn reports whether the named feature column is populated.
func (t *FeatureTable) HasColumn(name string) bool {
	if t == nil {
		return false
	}
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Matrix extracts the feature matrix for the given column order.
func (t *FeatureTable) Matrix(cols []string) [][]float64 {
	m := make([][]float64, len(t.Rows))
	for i := range t.Rows {
		row := make([]float64, len(cols))
		for j, c := range cols {
			row[j] = t.Rows[i].Feature(c)
		}
		m[i] = row
	}
	return m
}

// Target extracts the named target column, which must be units_sold today.
func (t *FeatureTable) Target() []float64 {
	y := make([]float64, len(t.Rows))
	for i := range t.Rows {
		y[i] = t.Rows[i].UnitsSold
	}
	return y
}
