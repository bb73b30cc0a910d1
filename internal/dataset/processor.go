package dataset

import (
	"fmt"
	"strings"
	"time"

	"github.com/rith-wik/attribute-forecasting-system/internal/utils"
)

// Dataset type names.
const (
	TypeProducts  = "products"
	TypeSales     = "sales"
	TypeInventory = "inventory"
)

// Schema describes the expected shape of one dataset type.
type Schema struct {
	RequiredColumns []string
	OptionalColumns []string
	PrimaryKey      []string
}

// Schemas maps dataset type to its expected schema.
var Schemas = map[string]Schema{
	TypeProducts: {
		RequiredColumns: []string{"sku", "style_code", "style_desc", "color_name", "size", "category", "price"},
		OptionalColumns: []string{"color_hex", "image_path"},
		PrimaryKey:      []string{"sku"},
	},
	TypeSales: {
		RequiredColumns: []string{"date", "store_id", "channel", "sku", "units_sold", "price"},
		OptionalColumns: []string{"promo_flag"},
		PrimaryKey:      []string{"date", "store_id", "sku"},
	},
	TypeInventory: {
		RequiredColumns: []string{"date", "store_id", "sku", "on_hand"},
		OptionalColumns: []string{"on_order", "lead_time_days"},
		PrimaryKey:      []string{"date", "store_id", "sku"},
	},
}

// MergeStats reports what a merge did with the incoming rows.
type MergeStats struct {
	TotalNewRows int `json:"total_new_rows"`
	RowsAdded    int `json:"rows_added"`
	RowsUpdated  int `json:"rows_updated"`
	RowsSkipped  int `json:"rows_skipped"`
}

// Map converts the stats to the generic map shape used in API responses.
func (s MergeStats) Map() map[string]int {
	return map[string]int{
		"total_new_rows": s.TotalNewRows,
		"rows_added":     s.RowsAdded,
		"rows_updated":   s.RowsUpdated,
		"rows_skipped":   s.RowsSkipped,
	}
}

// DetectType infers the dataset type from a filename. Returns "" when the
// name matches no known dataset.
func DetectType(filename string) string {
	name := strings.ToLower(filename)
	switch {
	case strings.Contains(name, "product"):
		return TypeProducts
	case strings.Contains(name, "sale"):
		return TypeSales
	case strings.Contains(name, "inventory"), strings.Contains(name, "stock"):
		return TypeInventory
	}
	return ""
}

// ValidateSchema checks a parsed table against the schema for datasetType.
// All problems found are reported in a single ValidationError.
func ValidateSchema(t *Table, datasetType string) error {
	schema, ok := Schemas[datasetType]
	if !ok {
		return utils.NewValidationErrorf("unknown dataset type: %s", datasetType)
	}

	var errs []string

	for _, col := range schema.RequiredColumns {
		if !t.HasColumn(col) {
			errs = append(errs, fmt.Sprintf("missing required column: %s", col))
		}
	}

	if t.Len() == 0 {
		errs = append(errs, "dataset is empty")
	}

	switch datasetType {
	case TypeProducts:
		if t.HasColumn("sku") {
			seen := make(map[string]bool, t.Len())
			dupes := 0
			for i := 0; i < t.Len(); i++ {
				sku := t.Cell(i, "sku")
				if sku == "" {
					errs = append(errs, fmt.Sprintf("row %d: sku is empty", i+1))
					continue
				}
				if seen[sku] {
					dupes++
				}
				seen[sku] = true
			}
			if dupes > 0 {
				errs = append(errs, fmt.Sprintf("sku column contains %d duplicates", dupes))
			}
		}
	case TypeSales, TypeInventory:
		if t.HasColumn("date") {
			for i := 0; i < t.Len(); i++ {
				if _, err := ParseDate(t.Cell(i, "date")); err != nil {
					errs = append(errs, fmt.Sprintf("row %d: invalid date %q", i+1, t.Cell(i, "date")))
					break
				}
			}
		}
	}

	if len(errs) > 0 {
		return utils.NewValidationErrorf("schema validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// rowKey is an exact tuple primary key. Comparing tuples directly avoids
// the collision risk of concatenating key values with a separator.
type rowKey [3]string

func keyOf(t *Table, i int, pk []string) rowKey {
	var k rowKey
	for j, col := range pk {
		k[j] = t.Cell(i, col)
	}
	return k
}

// Merge combines incoming rows into an existing table of the same dataset
// type. Rows whose primary key already exists replace the old row; the
// rest are appended in input order.
func Merge(existing, incoming *Table, datasetType string) (*Table, MergeStats, error) {
	schema, ok := Schemas[datasetType]
	if !ok {
		return nil, MergeStats{}, utils.NewValidationErrorf("unknown dataset type: %s", datasetType)
	}

	stats := MergeStats{TotalNewRows: incoming.Len()}

	if existing.Len() == 0 {
		stats.RowsAdded = incoming.Len()
		return incoming, stats, nil
	}

	updates := make(map[rowKey][]string, incoming.Len())
	var additions [][]string
	for i := 0; i < incoming.Len(); i++ {
		k := keyOf(incoming, i, schema.PrimaryKey)
		if _, dup := updates[k]; dup {
			stats.RowsSkipped++
			continue
		}
		updates[k] = incoming.Rows[i]
	}

	existingKeys := make(map[rowKey]bool, existing.Len())
	for i := 0; i < existing.Len(); i++ {
		existingKeys[keyOf(existing, i, schema.PrimaryKey)] = true
	}

	merged := NewTable(incoming.Columns)
	for i := 0; i < existing.Len(); i++ {
		k := keyOf(existing, i, schema.PrimaryKey)
		if replacement, ok := updates[k]; ok {
			merged.Rows = append(merged.Rows, replacement)
			stats.RowsUpdated++
			delete(updates, k)
			continue
		}
		merged.Rows = append(merged.Rows, projectRow(existing, i, incoming.Columns))
	}

	// Remaining incoming rows are genuinely new; keep input order.
	for i := 0; i < incoming.Len(); i++ {
		k := keyOf(incoming, i, schema.PrimaryKey)
		if _, pending := updates[k]; pending && !existingKeys[k] {
			merged.Rows = append(merged.Rows, incoming.Rows[i])
			additions = append(additions, incoming.Rows[i])
			delete(updates, k)
		}
	}
	stats.RowsAdded = len(additions)

	return merged, stats, nil
}

// projectRow re-maps a row of t onto the given column order, filling
// columns t does not have with "".
func projectRow(t *Table, i int, columns []string) []string {
	row := make([]string, len(columns))
	for j, col := range columns {
		row[j] = t.Cell(i, col)
	}
	return row
}

// ParseDate parses dataset date cells. Plain dates and RFC 3339
// timestamps are both accepted.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"2006-01-02", time.RFC3339, "2006-01-02 15:04:05"} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format: %q", s)
}
