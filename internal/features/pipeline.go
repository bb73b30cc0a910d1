// Package features turns raw transactional tables into model-ready
// feature rows. Aggregation and windowing are implemented with explicit
// partition maps and running-sum rolling windows; inputs are sorted by
// date (with a stable secondary key) before any grouping so that
// "first observed value" aggregation is deterministic.
package features

import (
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/rith-wik/attribute-forecasting-system/internal/models"
)

const epsilon = 1e-6

// Pipeline engineers feature tables from raw snapshots.
type Pipeline struct {
	windows     []int
	promoWindow int
	logger      *slog.Logger
}

// NewPipeline creates a feature pipeline. windows are the moving-average
// window sizes (default 7 and 28); promoWindow is the trailing window for
// the promo rate.
func NewPipeline(windows []int, promoWindow int, logger *slog.Logger) *Pipeline {
	if len(windows) == 0 {
		windows = []int{7, 28}
	}
	if promoWindow <= 0 {
		promoWindow = 7
	}
	return &Pipeline{windows: windows, promoWindow: promoWindow, logger: logger}
}

// groupKey identifies one aggregated observation. SKU-level keys leave
// the attribute fields empty and vice versa.
type groupKey struct {
	date    time.Time
	storeID string
	channel string
	sku     string
	color   string
	size    string
	style   string
}

// partitionKey identifies one windowing partition (entity per store).
type partitionKey struct {
	storeID string
	sku     string
	color   string
	size    string
	style   string
}

// BuildSKU aggregates sales by (date, store, channel, sku) and derives
// the SKU-level feature table. Empty inputs yield an empty table.
func (p *Pipeline) BuildSKU(snap models.Snapshot) *models.FeatureTable {
	table := &models.FeatureTable{Level: models.LevelSKU}
	if len(snap.Sales) == 0 || len(snap.Products) == 0 {
		return table
	}

	rows := p.aggregate(snap, false)
	p.addDerived(rows, false)
	p.addStockCoverage(rows, snap.Inventory)

	table.Rows = rows
	table.Columns = []string{
		models.FeatureMA7, models.FeatureMA28, models.FeaturePromoFlag,
		models.FeaturePromoRate, models.FeaturePriceIndex,
		models.FeatureDaySin, models.FeatureDayCos, models.FeatureDowSin, models.FeatureDowCos,
	}
	if len(snap.Inventory) > 0 {
		table.Columns = append(table.Columns, models.FeatureStockCoverage, models.FeatureIncomingCoverage)
	}
	return table
}

// BuildAttribute aggregates sales by (date, store, channel, color, size,
// style) and derives the attribute-level feature table, including trend
// scores when trend records are present.
func (p *Pipeline) BuildAttribute(snap models.Snapshot) *models.FeatureTable {
	table := &models.FeatureTable{Level: models.LevelAttribute}
	if len(snap.Sales) == 0 || len(snap.Products) == 0 {
		return table
	}

	rows := p.aggregate(snap, true)
	p.addDerived(rows, true)
	p.addTrendScores(rows, snap.Trends)

	table.Rows = rows
	table.Columns = []string{
		models.FeatureMA7, models.FeatureMA28, models.FeaturePromoFlag,
		models.FeaturePromoRate, models.FeaturePriceIndex,
		models.FeatureDaySin, models.FeatureDayCos, models.FeatureDowSin, models.FeatureDowCos,
	}
	if len(snap.Trends) > 0 {
		table.Columns = append(table.Columns, models.FeatureTrendScore)
	}
	return table
}

// Build returns the table for the requested aggregation level.
func (p *Pipeline) Build(snap models.Snapshot, level string) *models.FeatureTable {
	if level == models.LevelSKU {
		return p.BuildSKU(snap)
	}
	return p.BuildAttribute(snap)
}

type aggState struct {
	row        models.FeatureRow
	priceSum   float64
	priceCount int
}

// aggregate joins sales with product attributes and groups them.
// units_sold sums, promo_flag takes the max, price averages, and
// categorical attributes keep the first observed value in date order.
func (p *Pipeline) aggregate(snap models.Snapshot, byAttribute bool) []models.FeatureRow {
	products := make(map[string]models.ProductRecord, len(snap.Products))
	for _, prod := range snap.Products {
		products[prod.SKU] = prod
	}

	sales := make([]models.SalesRecord, len(snap.Sales))
	copy(sales, snap.Sales)
	sort.SliceStable(sales, func(i, j int) bool {
		a, b := sales[i], sales[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.StoreID != b.StoreID {
			return a.StoreID < b.StoreID
		}
		if a.Channel != b.Channel {
			return a.Channel < b.Channel
		}
		return a.SKU < b.SKU
	})

	groups := make(map[groupKey]*aggState)
	var order []groupKey

	for _, sale := range sales {
		prod := products[sale.SKU]

		key := groupKey{
			date:    models.DateOnly(sale.Date),
			storeID: sale.StoreID,
			channel: sale.Channel,
		}
		if byAttribute {
			key.color = prod.ColorName
			key.size = prod.Size
			key.style = prod.StyleDesc
		} else {
			key.sku = sale.SKU
		}

		state, ok := groups[key]
		if !ok {
			state = &aggState{row: models.FeatureRow{
				Date:      key.date,
				StoreID:   sale.StoreID,
				Channel:   sale.Channel,
				SKU:       key.sku,
				StyleCode: prod.StyleCode,
				StyleDesc: prod.StyleDesc,
				ColorName: prod.ColorName,
				Size:      prod.Size,
				Category:  prod.Category,
			}}
			groups[key] = state
			order = append(order, key)
		}

		state.row.UnitsSold += sale.UnitsSold
		if float64(sale.PromoFlag) > state.row.PromoFlag {
			state.row.PromoFlag = float64(sale.PromoFlag)
		}
		state.priceSum += sale.Price.InexactFloat64()
		state.priceCount++
	}

	rows := make([]models.FeatureRow, 0, len(order))
	for _, key := range order {
		state := groups[key]
		if state.priceCount > 0 {
			state.row.Price = state.priceSum / float64(state.priceCount)
		}
		rows = append(rows, state.row)
	}
	return rows
}

// addDerived computes moving averages, promo rate, price index and
// seasonality per windowing partition, in date order.
func (p *Pipeline) addDerived(rows []models.FeatureRow, byAttribute bool) {
	partitions := partitionIndexes(rows, byAttribute)

	for _, idx := range partitions {
		// Moving averages with at-least-one-sample semantics: the
		// trailing mean over min(window, seen) observations.
		for _, window := range p.windows {
			rollingMean(rows, idx, window, func(r *models.FeatureRow) float64 { return r.UnitsSold },
				func(r *models.FeatureRow, v float64) {
					if window == 7 {
						r.MA7 = v
					} else if window == 28 {
						r.MA28 = v
					}
				})
		}

		rollingMean(rows, idx, p.promoWindow,
			func(r *models.FeatureRow) float64 { return r.PromoFlag },
			func(r *models.FeatureRow, v float64) { r.PromoRate = v })

		// Price index: current price over the partition mean price.
		var priceSum float64
		for _, i := range idx {
			priceSum += rows[i].Price
		}
		meanPrice := priceSum / float64(len(idx))
		for _, i := range idx {
			rows[i].PriceIndex = rows[i].Price / (meanPrice + epsilon)
		}
	}

	for i := range rows {
		doy := float64(rows[i].Date.YearDay())
		rows[i].DaySin = math.Sin(2 * math.Pi * doy / 365.25)
		rows[i].DayCos = math.Cos(2 * math.Pi * doy / 365.25)

		dow := float64(models.DayOfWeek(rows[i].Date))
		rows[i].DowSin = math.Sin(2 * math.Pi * dow / 7)
		rows[i].DowCos = math.Cos(2 * math.Pi * dow / 7)
	}
}

// partitionIndexes groups row indexes by windowing partition, each
// partition ordered by date.
func partitionIndexes(rows []models.FeatureRow, byAttribute bool) map[partitionKey][]int {
	partitions := make(map[partitionKey][]int)
	for i := range rows {
		key := partitionKey{storeID: rows[i].StoreID}
		if byAttribute {
			key.color = rows[i].ColorName
			key.size = rows[i].Size
			key.style = rows[i].StyleDesc
		} else {
			key.sku = rows[i].SKU
		}
		partitions[key] = append(partitions[key], i)
	}
	for _, idx := range partitions {
		sort.SliceStable(idx, func(a, b int) bool {
			return rows[idx[a]].Date.Before(rows[idx[b]].Date)
		})
	}
	return partitions
}

// rollingMean computes a trailing running-sum mean over the partition.
func rollingMean(rows []models.FeatureRow, idx []int, window int, get func(*models.FeatureRow) float64, set func(*models.FeatureRow, float64)) {
	var sum float64
	for pos, i := range idx {
		sum += get(&rows[i])
		if pos >= window {
			sum -= get(&rows[idx[pos-window]])
		}
		n := pos + 1
		if n > window {
			n = window
		}
		set(&rows[i], sum/float64(n))
	}
}

// addStockCoverage joins inventory on (date, store, sku) and derives
// on-hand and on-order coverage against the 7-day moving average. Rows
// without a joinable inventory record keep zero coverage.
func (p *Pipeline) addStockCoverage(rows []models.FeatureRow, inventory []models.InventoryRecord) {
	if len(inventory) == 0 {
		return
	}

	type invKey struct {
		date    time.Time
		storeID string
		sku     string
	}
	byKey := make(map[invKey]models.InventoryRecord, len(inventory))
	for _, inv := range inventory {
		byKey[invKey{models.DateOnly(inv.Date), inv.StoreID, inv.SKU}] = inv
	}

	for i := range rows {
		inv, ok := byKey[invKey{rows[i].Date, rows[i].StoreID, rows[i].SKU}]
		if !ok {
			continue
		}
		rows[i].StockCoverage = inv.OnHand / (rows[i].MA7 + epsilon)
		rows[i].IncomingCoverage = inv.OnOrder / (rows[i].MA7 + epsilon)
	}
}

// addTrendScores left-joins the daily mean trend score per color onto the
// rows. Rows without a matching trend observation get the neutral 0.5.
func (p *Pipeline) addTrendScores(rows []models.FeatureRow, trends []models.TrendRecord) {
	if len(trends) == 0 {
		return
	}

	type trendKey struct {
		date  time.Time
		color string
	}
	sums := make(map[trendKey]float64)
	counts := make(map[trendKey]int)
	for _, tr := range trends {
		key := trendKey{models.DateOnly(tr.Timestamp), tr.ColorName}
		sums[key] += tr.TrendScore
		counts[key]++
	}

	for i := range rows {
		key := trendKey{rows[i].Date, rows[i].ColorName}
		if n := counts[key]; n > 0 {
			rows[i].TrendScore = sums[key] / float64(n)
		} else {
			rows[i].TrendScore = 0.5
		}
	}
}
