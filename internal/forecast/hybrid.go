package forecast

import (
	"encoding/json"
	"time"

	"github.com/rith-wik/attribute-forecasting-system/internal/models"
	"github.com/rith-wik/attribute-forecasting-system/internal/utils"
)

// DefaultAlpha is the blend weight of the regressor against the
// seasonal-naive baseline.
const DefaultAlpha = 0.7

// ArtifactSchemaVersion tags the serialized model layout. Bump it when
// the artifact fields change shape.
const ArtifactSchemaVersion = 1

// HybridModel blends a gradient-boosted regressor with a seasonal-naive
// baseline. A model is either untrained or fitted; a fitted model is
// immutable and safe for concurrent prediction.
type HybridModel struct {
	Alpha     float64        `json:"alpha"`
	Features  []string       `json:"features"`
	Regressor *GBDTRegressor `json:"regressor"`
	Naive     SeasonalNaive  `json:"naive"`
	TrainedAt time.Time      `json:"trained_at"`
}

// NewHybridModel creates an untrained model with the given blend weight.
// Alpha outside (0, 1] falls back to the default.
func NewHybridModel(alpha float64) *HybridModel {
	if alpha <= 0 || alpha > 1 {
		alpha = DefaultAlpha
	}
	return &HybridModel{
		Alpha:     alpha,
		Regressor: NewGBDTRegressor(DefaultGBDTParams()),
	}
}

// Fitted reports whether the model has been trained.
func (m *HybridModel) Fitted() bool {
	return m.Regressor != nil && m.Regressor.Fitted()
}

// Fit trains both components on the feature table. The regressor trains
// over the intersection of the allowed feature list and the table's
// populated columns, in canonical order.
func (m *HybridModel) Fit(table *models.FeatureTable) error {
	if table.Empty() {
		return utils.NewValidationError("cannot fit model on an empty feature table")
	}

	features := make([]string, 0, len(models.AllowedFeatures))
	for _, f := range models.AllowedFeatures {
		if table.HasColumn(f) {
			features = append(features, f)
		}
	}
	if len(features) == 0 {
		return utils.NewValidationError("feature table has no trainable columns")
	}
	m.Features = features

	X := table.Matrix(features)
	y := table.Target()
	if err := m.Regressor.Fit(X, y); err != nil {
		return err
	}

	dates := make([]time.Time, len(table.Rows))
	for i := range table.Rows {
		dates[i] = table.Rows[i].Date
	}
	m.Naive.Fit(dates, y)

	m.TrainedAt = time.Now().UTC()
	return nil
}

// PredictRow returns the blended prediction for a single feature row,
// clamped to be non-negative.
func (m *HybridModel) PredictRow(row *models.FeatureRow) float64 {
	x := make([]float64, len(m.Features))
	for j, f := range m.Features {
		x[j] = row.Feature(f)
	}
	reg := m.Regressor.PredictOne(x)
	naive := m.Naive.Predict(row.Date)

	pred := m.Alpha*reg + (1-m.Alpha)*naive
	if pred < 0 {
		return 0
	}
	return pred
}

// Predict returns blended predictions for every row of the table.
func (m *HybridModel) Predict(table *models.FeatureTable) []float64 {
	out := make([]float64, len(table.Rows))
	for i := range table.Rows {
		out[i] = m.PredictRow(&table.Rows[i])
	}
	return out
}

// FeatureImportance maps regressor-native importances to feature names.
// Empty when the model is untrained.
func (m *HybridModel) FeatureImportance() map[string]float64 {
	out := make(map[string]float64)
	if !m.Fitted() {
		return out
	}
	values := m.Regressor.FeatureImportances()
	for i, f := range m.Features {
		if i < len(values) {
			out[f] = values[i]
		}
	}
	return out
}

// Artifact is the on-disk representation of a fitted model.
type Artifact struct {
	SchemaVersion int          `json:"schema_version"`
	Alpha         float64      `json:"alpha"`
	Features      []string     `json:"features"`
	Regressor     *GBDTRegressor `json:"regressor"`
	Naive         SeasonalNaive  `json:"naive"`
	TrainedAt     time.Time      `json:"trained_at"`
}

// MarshalArtifact serializes the fitted model into its versioned
// artifact form.
func (m *HybridModel) MarshalArtifact() ([]byte, error) {
	if !m.Fitted() {
		return nil, utils.NewValidationError("cannot serialize an untrained model")
	}
	return json.Marshal(Artifact{
		SchemaVersion: ArtifactSchemaVersion,
		Alpha:         m.Alpha,
		Features:      m.Features,
		Regressor:     m.Regressor,
		Naive:         m.Naive,
		TrainedAt:     m.TrainedAt,
	})
}

// UnmarshalArtifact restores a model from its artifact form. A loaded
// model reproduces the predictions of the instance it was saved from.
func UnmarshalArtifact(data []byte) (*HybridModel, error) {
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, utils.NewValidationErrorf("malformed model artifact: %v", err)
	}
	if a.SchemaVersion != ArtifactSchemaVersion {
		return nil, utils.NewValidationErrorf("unsupported artifact schema version %d", a.SchemaVersion)
	}
	if a.Regressor == nil || !a.Regressor.Fitted() {
		return nil, utils.NewValidationError("artifact does not contain a fitted regressor")
	}
	return &HybridModel{
		Alpha:     a.Alpha,
		Features:  a.Features,
		Regressor: a.Regressor,
		Naive:     a.Naive,
		TrainedAt: a.TrainedAt,
	}, nil
}
