package dataset

import (
	"strconv"
	"strings"
	"time"

	"github.com/rith-wik/attribute-forecasting-system/internal/models"
	"github.com/shopspring/decimal"
)

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}

func parseInt(s string) int {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		// Tolerate "1.0" style flags.
		return int(parseFloat(s))
	}
	return v
}

func parsePrice(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// DecodeProducts converts a validated products table into typed records.
func DecodeProducts(t *Table) []models.ProductRecord {
	records := make([]models.ProductRecord, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		records = append(records, models.ProductRecord{
			SKU:       t.Cell(i, "sku"),
			StyleCode: t.Cell(i, "style_code"),
			StyleDesc: t.Cell(i, "style_desc"),
			ColorName: t.Cell(i, "color_name"),
			Size:      t.Cell(i, "size"),
			Category:  t.Cell(i, "category"),
			Price:     parsePrice(t.Cell(i, "price")),
			ColorHex:  t.Cell(i, "color_hex"),
			ImagePath: t.Cell(i, "image_path"),
		})
	}
	return records
}

// DecodeSales converts a validated sales table into typed records. Rows
// with unparseable dates are dropped.
func DecodeSales(t *Table) []models.SalesRecord {
	records := make([]models.SalesRecord, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		date, err := ParseDate(t.Cell(i, "date"))
		if err != nil {
			continue
		}
		records = append(records, models.SalesRecord{
			Date:      date,
			StoreID:   t.Cell(i, "store_id"),
			Channel:   t.Cell(i, "channel"),
			SKU:       t.Cell(i, "sku"),
			UnitsSold: parseFloat(t.Cell(i, "units_sold")),
			Price:     parsePrice(t.Cell(i, "price")),
			PromoFlag: parseInt(t.Cell(i, "promo_flag")),
		})
	}
	return records
}

// DecodeInventory converts a validated inventory table into typed records.
func DecodeInventory(t *Table) []models.InventoryRecord {
	records := make([]models.InventoryRecord, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		date, err := ParseDate(t.Cell(i, "date"))
		if err != nil {
			continue
		}
		records = append(records, models.InventoryRecord{
			Date:         date,
			StoreID:      t.Cell(i, "store_id"),
			SKU:          t.Cell(i, "sku"),
			OnHand:       parseFloat(t.Cell(i, "on_hand")),
			OnOrder:      parseFloat(t.Cell(i, "on_order")),
			LeadTimeDays: parseInt(t.Cell(i, "lead_time_days")),
		})
	}
	return records
}

// EncodeTrends converts trend records back into their tabular form for
// persistence.
func EncodeTrends(records []models.TrendRecord) *Table {
	t := NewTable([]string{"timestamp", "region", "channel", "color_name", "style_keyword", "trend_score"})
	for _, r := range records {
		t.Rows = append(t.Rows, []string{
			r.Timestamp.UTC().Format(time.RFC3339),
			r.Region,
			r.Channel,
			r.ColorName,
			r.StyleKeyword,
			strconv.FormatFloat(r.TrendScore, 'f', 2, 64),
		})
	}
	return t
}

// DecodeTrends converts a trends table into typed records. Scores are
// clamped into [0, 1].
func DecodeTrends(t *Table) []models.TrendRecord {
	records := make([]models.TrendRecord, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		ts, err := ParseDate(t.Cell(i, "timestamp"))
		if err != nil {
			continue
		}
		score := parseFloat(t.Cell(i, "trend_score"))
		if score < 0 {
			score = 0
		} else if score > 1 {
			score = 1
		}
		records = append(records, models.TrendRecord{
			Timestamp:    ts,
			Region:       t.Cell(i, "region"),
			Channel:      t.Cell(i, "channel"),
			ColorName:    t.Cell(i, "color_name"),
			StyleKeyword: t.Cell(i, "style_keyword"),
			TrendScore:   score,
		})
	}
	return records
}
