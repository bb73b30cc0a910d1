package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/rith-wik/attribute-forecasting-system/internal/dataset"
	"github.com/rith-wik/attribute-forecasting-system/internal/features"
	"github.com/rith-wik/attribute-forecasting-system/internal/forecast"
	"github.com/rith-wik/attribute-forecasting-system/internal/storage"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.Default()
}

func day(offset int) time.Time {
	return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
}

const productsCSV = `sku,style_code,style_desc,color_name,size,category,price
A1001,S1,Slim Tee,Black,M,tops,20.00
A1002,S2,Day Dress,Flame,S,dresses,45.00
`

// seedSalesCSV builds n days of sales for two SKUs with a weekly rhythm.
func seedSalesCSV(n int) string {
	var b strings.Builder
	b.WriteString("date,store_id,channel,sku,units_sold,price,promo_flag\n")
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		date := start.AddDate(0, 0, i).Format("2006-01-02")
		units := 8 + i%7
		promo := 0
		if i%5 == 0 {
			promo = 1
		}
		fmt.Fprintf(&b, "%s,DXB01,retail,A1001,%d,20.00,%d\n", date, units, promo)
		fmt.Fprintf(&b, "%s,DXB01,retail,A1002,%d,45.00,0\n", date, 3+i%3)
	}
	return b.String()
}

type fixture struct {
	store    storage.Store
	loader   *dataset.Loader
	pipeline *features.Pipeline
	registry *forecast.Registry
	trainer  *forecast.Trainer
}

func newFixture(t *testing.T, seed bool) *fixture {
	t.Helper()

	store, err := storage.NewFSStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	if seed {
		require.NoError(t, store.Upload(ctx, dataset.ProductsObject, []byte(productsCSV)))
		require.NoError(t, store.Upload(ctx, dataset.SalesObject, []byte(seedSalesCSV(90))))
	}

	logger := testLogger()
	return &fixture{
		store:    store,
		loader:   dataset.NewLoader(store, logger),
		pipeline: features.NewPipeline(nil, 0, logger),
		registry: forecast.NewRegistry(store, logger),
		trainer:  forecast.NewTrainer(forecast.DefaultAlpha, 7, 10, logger),
	}
}

func (f *fixture) forecastService() *ForecastService {
	return NewForecastService(f.loader, f.pipeline, f.registry, testLogger())
}

func (f *fixture) trainingService() *TrainingService {
	return NewTrainingService(f.loader, f.pipeline, f.trainer, f.registry, testLogger())
}
