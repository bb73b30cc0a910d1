package services

import (
	"context"
	"testing"

	"github.com/rith-wik/attribute-forecasting-system/internal/dataset"
	"github.com/rith-wik/attribute-forecasting-system/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadNewDataset(t *testing.T) {
	f := newFixture(t, false)
	svc := NewDatasetService(f.loader, testLogger())

	resp, err := svc.Upload(context.Background(), "products.csv", []byte(productsCSV))
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.Equal(t, dataset.TypeProducts, resp.DatasetType)
	assert.Equal(t, 2, resp.TotalRows)
	assert.Equal(t, 2, resp.Statistics["rows_added"])
}

func TestUploadMergesUpdates(t *testing.T) {
	f := newFixture(t, false)
	svc := NewDatasetService(f.loader, testLogger())
	ctx := context.Background()

	_, err := svc.Upload(ctx, "products.csv", []byte(productsCSV))
	require.NoError(t, err)

	update := `sku,style_code,style_desc,color_name,size,category,price
A1001,S1,Slim Tee,Black,M,tops,22.00
A2001,S3,Cargo Pant,Olive,L,bottoms,60.00
`
	resp, err := svc.Upload(ctx, "products_v2.csv", []byte(update))
	require.NoError(t, err)

	assert.Equal(t, 3, resp.TotalRows)
	assert.Equal(t, 1, resp.Statistics["rows_added"])
	assert.Equal(t, 1, resp.Statistics["rows_updated"])
}

func TestUploadRejectsUnknownType(t *testing.T) {
	f := newFixture(t, false)
	svc := NewDatasetService(f.loader, testLogger())

	_, err := svc.Upload(context.Background(), "mystery.csv", []byte("a,b\n1,2\n"))
	require.Error(t, err)
	assert.True(t, utils.IsValidationError(err))
}

func TestUploadRejectsBadSchema(t *testing.T) {
	f := newFixture(t, false)
	svc := NewDatasetService(f.loader, testLogger())

	_, err := svc.Upload(context.Background(), "sales.csv", []byte("date,store_id\n2025-01-01,DXB01\n"))
	require.Error(t, err)
	assert.True(t, utils.IsValidationError(err))
}
