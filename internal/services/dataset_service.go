package services

import (
	"context"
	"log/slog"

	"github.com/rith-wik/attribute-forecasting-system/internal/dataset"
	"github.com/rith-wik/attribute-forecasting-system/internal/models"
	"github.com/rith-wik/attribute-forecasting-system/internal/utils"
)

// DatasetService ingests uploaded CSV snapshots: type detection, schema
// validation and duplicate-aware merging into the stored tables.
type DatasetService struct {
	loader *dataset.Loader
	logger *slog.Logger
}

// NewDatasetService creates a dataset service.
func NewDatasetService(loader *dataset.Loader, logger *slog.Logger) *DatasetService {
	return &DatasetService{loader: loader, logger: logger}
}

// Upload validates the uploaded file and merges it into the existing
// table for its dataset type. Incoming rows matching an existing primary
// key update that row in place.
func (s *DatasetService) Upload(ctx context.Context, filename string, content []byte) (*models.UploadResponse, error) {
	datasetType := dataset.DetectType(filename)
	if datasetType == "" {
		return nil, utils.NewValidationErrorf("cannot infer dataset type from filename %q", filename)
	}

	incoming, err := dataset.ReadCSVBytes(content)
	if err != nil {
		return nil, utils.NewValidationErrorf("failed to parse %s: %v", filename, err)
	}
	if err := dataset.ValidateSchema(incoming, datasetType); err != nil {
		return nil, err
	}

	existing := s.loader.LoadExisting(ctx, datasetType)
	merged, stats, err := dataset.Merge(existing, incoming, datasetType)
	if err != nil {
		return nil, err
	}

	if err := s.loader.SaveTable(ctx, datasetType, merged); err != nil {
		return nil, utils.NewPersistenceError("save dataset", err)
	}

	s.logger.Info("dataset uploaded",
		"type", datasetType,
		"filename", filename,
		"added", stats.RowsAdded,
		"updated", stats.RowsUpdated,
		"skipped", stats.RowsSkipped)

	return &models.UploadResponse{
		Success:     true,
		DatasetType: datasetType,
		Filename:    filename,
		Columns:     merged.Columns,
		TotalRows:   merged.Len(),
		Statistics:  stats.Map(),
	}, nil
}
