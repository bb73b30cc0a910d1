package dataset

import (
	"strings"
	"testing"

	"github.com/rith-wik/attribute-forecasting-system/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const salesCSV = `date,store_id,channel,sku,units_sold,price,promo_flag
2025-01-01,DXB01,retail,A1001,5,20.00,0
2025-01-02,DXB01,retail,A1001,7,18.00,1
2025-01-03,DXB01,retail,A1001,6,22.00,1
`

func TestDetectType(t *testing.T) {
	tests := []struct {
		filename string
		expected string
	}{
		{"products.csv", TypeProducts},
		{"Product_Catalog.csv", TypeProducts},
		{"sales_2025.csv", TypeSales},
		{"store_inventory.csv", TypeInventory},
		{"stock_levels.csv", TypeInventory},
		{"trends.csv", ""},
	}

	for _, tc := range tests {
		t.Run(tc.filename, func(t *testing.T) {
			assert.Equal(t, tc.expected, DetectType(tc.filename))
		})
	}
}

func TestReadCSV(t *testing.T) {
	table, err := ReadCSV(strings.NewReader(salesCSV))
	require.NoError(t, err)

	assert.Equal(t, []string{"date", "store_id", "channel", "sku", "units_sold", "price", "promo_flag"}, table.Columns)
	assert.Equal(t, 3, table.Len())
	assert.Equal(t, "A1001", table.Cell(0, "sku"))
	assert.Equal(t, "18.00", table.Cell(1, "price"))
	assert.Equal(t, "", table.Cell(0, "no_such_column"))
}

func TestReadCSVEmpty(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""))
	assert.Error(t, err)
}

func TestValidateSchemaOK(t *testing.T) {
	table, err := ReadCSV(strings.NewReader(salesCSV))
	require.NoError(t, err)
	assert.NoError(t, ValidateSchema(table, TypeSales))
}

func TestValidateSchemaMissingColumns(t *testing.T) {
	table, err := ReadCSV(strings.NewReader("date,store_id\n2025-01-01,DXB01\n"))
	require.NoError(t, err)

	err = ValidateSchema(table, TypeSales)
	require.Error(t, err)
	assert.True(t, utils.IsValidationError(err))
	assert.Contains(t, err.Error(), "missing required column")
	assert.Contains(t, err.Error(), "sku")
}

func TestValidateSchemaEmptyTable(t *testing.T) {
	table := NewTable([]string{"date", "store_id", "channel", "sku", "units_sold", "price"})
	err := ValidateSchema(table, TypeSales)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty")
}

func TestValidateSchemaDuplicateSKUs(t *testing.T) {
	csv := `sku,style_code,style_desc,color_name,size,category,price
A1001,S1,Slim Tee,Black,M,tops,20
A1001,S1,Slim Tee,Black,L,tops,20
`
	table, err := ReadCSV(strings.NewReader(csv))
	require.NoError(t, err)

	err = ValidateSchema(table, TypeProducts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicates")
}

func TestValidateSchemaBadDate(t *testing.T) {
	csv := `date,store_id,channel,sku,units_sold,price
01/02/2025,DXB01,retail,A1001,5,20
`
	table, err := ReadCSV(strings.NewReader(csv))
	require.NoError(t, err)

	err = ValidateSchema(table, TypeSales)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid date")
}

func TestMergeIntoEmpty(t *testing.T) {
	incoming, err := ReadCSV(strings.NewReader(salesCSV))
	require.NoError(t, err)

	merged, stats, err := Merge(NewTable(incoming.Columns), incoming, TypeSales)
	require.NoError(t, err)
	assert.Equal(t, 3, merged.Len())
	assert.Equal(t, 3, stats.RowsAdded)
	assert.Equal(t, 0, stats.RowsUpdated)
}

func TestMergeUpdatesAndAppends(t *testing.T) {
	existing, err := ReadCSV(strings.NewReader(salesCSV))
	require.NoError(t, err)

	incoming, err := ReadCSV(strings.NewReader(`date,store_id,channel,sku,units_sold,price,promo_flag
2025-01-03,DXB01,retail,A1001,9,22.00,0
2025-01-04,DXB01,retail,A1001,4,20.00,0
`))
	require.NoError(t, err)

	merged, stats, err := Merge(existing, incoming, TypeSales)
	require.NoError(t, err)

	assert.Equal(t, 4, merged.Len())
	assert.Equal(t, 1, stats.RowsUpdated)
	assert.Equal(t, 1, stats.RowsAdded)

	// The updated row replaced the old value in place.
	assert.Equal(t, "9", merged.Cell(2, "units_sold"))
	// The new row was appended.
	assert.Equal(t, "2025-01-04", merged.Cell(3, "date"))
}

func TestMergeExactTupleKeys(t *testing.T) {
	// Key values containing a would-be separator must not collide:
	// ("2025-01-01", "A_B", "C") vs ("2025-01-01", "A", "B_C").
	existing, err := ReadCSV(strings.NewReader(`date,store_id,channel,sku,units_sold,price
2025-01-01,A_B,retail,C,1,10
`))
	require.NoError(t, err)

	incoming, err := ReadCSV(strings.NewReader(`date,store_id,channel,sku,units_sold,price
2025-01-01,A,retail,B_C,2,10
`))
	require.NoError(t, err)

	merged, stats, err := Merge(existing, incoming, TypeSales)
	require.NoError(t, err)

	assert.Equal(t, 2, merged.Len())
	assert.Equal(t, 1, stats.RowsAdded)
	assert.Equal(t, 0, stats.RowsUpdated)
}

func TestEncodeCSVRoundTrip(t *testing.T) {
	table, err := ReadCSV(strings.NewReader(salesCSV))
	require.NoError(t, err)

	data, err := table.EncodeCSV()
	require.NoError(t, err)

	reparsed, err := ReadCSVBytes(data)
	require.NoError(t, err)
	assert.Equal(t, table.Columns, reparsed.Columns)
	assert.Equal(t, table.Rows, reparsed.Rows)
}
