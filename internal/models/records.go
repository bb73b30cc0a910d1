package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProductRecord is a single row of the products dataset, keyed by SKU.
type ProductRecord struct {
	SKU       string          `json:"sku"`
	StyleCode string          `json:"style_code"`
	StyleDesc string          `json:"style_desc"`
	ColorName string          `json:"color_name"`
	Size      string          `json:"size"`
	Category  string          `json:"category"`
	Price     decimal.Decimal `json:"price"`
	ColorHex  string          `json:"color_hex,omitempty"`
	ImagePath string          `json:"image_path,omitempty"`
}

// SalesRecord is a single row of the sales dataset, keyed by (date, store_id, sku).
type SalesRecord struct {
	Date      time.Time       `json:"date"`
	StoreID   string          `json:"store_id"`
	Channel   string          `json:"channel"`
	SKU       string          `json:"sku"`
	UnitsSold float64         `json:"units_sold"`
	Price     decimal.Decimal `json:"price"`
	PromoFlag int             `json:"promo_flag,omitempty"`
}

// InventoryRecord is a single row of the inventory dataset, keyed by (date, store_id, sku).
type InventoryRecord struct {
	Date         time.Time `json:"date"`
	StoreID      string    `json:"store_id"`
	SKU          string    `json:"sku"`
	OnHand       float64   `json:"on_hand"`
	OnOrder      float64   `json:"on_order,omitempty"`
	LeadTimeDays int       `json:"lead_time_days,omitempty"`
}

// TrendRecord is an externally supplied popularity signal per color/region.
// TrendScore is normalized to [0, 1].
type TrendRecord struct {
	Timestamp    time.Time `json:"timestamp"`
	Region       string    `json:"region"`
	Channel      string    `json:"channel"`
	ColorName    string    `json:"color_name"`
	StyleKeyword string    `json:"style_keyword"`
	TrendScore   float64   `json:"trend_score"`
}

// Snapshot bundles the raw tables a forecasting or training call reads.
// Feature rows are recomputed from a fresh snapshot on every call.
type Snapshot struct {
	Products  []ProductRecord
	Sales     []SalesRecord
	Inventory []InventoryRecord
	Trends    []TrendRecord
}
