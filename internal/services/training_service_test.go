package services

import (
	"context"
	"strings"
	"testing"

	"github.com/rith-wik/attribute-forecasting-system/internal/models"
	"github.com/rith-wik/attribute-forecasting-system/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrainPublishesModel(t *testing.T) {
	f := newFixture(t, true)
	svc := f.trainingService()

	resp, err := svc.Train(context.Background(), &models.TrainRequest{Retrain: true})
	require.NoError(t, err)

	assert.Equal(t, TrainStatusTrained, resp.Status)
	assert.True(t, strings.HasPrefix(resp.Version, "afs-"))
	assert.Contains(t, resp.Metrics, "mae")
	assert.Contains(t, resp.Metrics, "rmse")

	model, meta := f.registry.Current()
	require.NotNil(t, model)
	assert.Equal(t, resp.Version, meta.Version)
	assert.Equal(t, models.LevelAttribute, meta.Level)
	assert.Equal(t, 365, meta.BackfillDays)
	assert.NotEmpty(t, meta.Importance)
	assert.NotEmpty(t, meta.Permutation)
}

func TestTrainSkipsWhenModelPublished(t *testing.T) {
	f := newFixture(t, true)
	svc := f.trainingService()
	ctx := context.Background()

	first, err := svc.Train(ctx, &models.TrainRequest{Retrain: true})
	require.NoError(t, err)

	second, err := svc.Train(ctx, &models.TrainRequest{})
	require.NoError(t, err)
	assert.Equal(t, TrainStatusSkipped, second.Status)
	assert.Equal(t, first.Version, second.Version)

	third, err := svc.Train(ctx, &models.TrainRequest{Retrain: true})
	require.NoError(t, err)
	assert.Equal(t, TrainStatusTrained, third.Status)

	// Back-to-back retrains land in the same minute; the second run gets a
	// bumped version and the first artifact stays on disk.
	assert.NotEqual(t, first.Version, third.Version)
	versions, err := f.registry.Versions(ctx)
	require.NoError(t, err)
	assert.Len(t, versions, 2)
	assert.Contains(t, versions, first.Version)
	assert.Contains(t, versions, third.Version)
}

func TestTrainFailsWithoutSales(t *testing.T) {
	f := newFixture(t, false)
	svc := f.trainingService()

	_, err := svc.Train(context.Background(), &models.TrainRequest{Retrain: true})
	require.Error(t, err)
	assert.True(t, utils.IsValidationError(err))

	model, _ := f.registry.Current()
	assert.Nil(t, model)
}

func TestBackfillWindowCutsOldSales(t *testing.T) {
	sales := []models.SalesRecord{
		{Date: day(0)}, {Date: day(100)}, {Date: day(200)},
	}
	kept := backfillWindow(sales, 150)
	assert.Len(t, kept, 2)

	kept = backfillWindow(sales, 365)
	assert.Len(t, kept, 3)
}
