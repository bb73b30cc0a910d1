package forecast

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/rith-wik/attribute-forecasting-system/internal/models"
	"github.com/rith-wik/attribute-forecasting-system/internal/utils"
)

// permutationSeed fixes the shuffle order so repeated training runs on
// the same data report the same permutation scores.
const permutationSeed = 42

// Trainer runs the train/evaluate/backtest cycle and produces the
// material the registry persists.
type Trainer struct {
	alpha       float64
	horizon     int
	permRepeats int
	logger      *slog.Logger
}

// NewTrainer creates a trainer. horizon is the backtest window length in
// days (default 7); permRepeats is the number of shuffles per feature
// when scoring permutation importance (default 10).
func NewTrainer(alpha float64, horizon, permRepeats int, logger *slog.Logger) *Trainer {
	if horizon <= 0 {
		horizon = 7
	}
	if permRepeats <= 0 {
		permRepeats = 10
	}
	return &Trainer{alpha: alpha, horizon: horizon, permRepeats: permRepeats, logger: logger}
}

// TrainResult carries a fitted model together with its evaluation.
type TrainResult struct {
	Model      *HybridModel
	Version    string
	Metrics    map[string]float64
	Importance map[string]float64

	// PermutationImportance scores features by the error increase when
	// their column is shuffled on the evaluation slice.
	PermutationImportance map[string]float64

	// BacktestInsufficient is set when the series was too short for a
	// single backtest window. The training run itself still succeeded.
	BacktestInsufficient bool
}

// Train fits a model on the table and evaluates it on a chronological
// holdout. Rows are sorted by date and never shuffled; later rows depend
// on earlier ones through the rolling features.
func (t *Trainer) Train(table *models.FeatureTable) (*TrainResult, error) {
	if table.Empty() {
		return nil, utils.NewValidationError("cannot train on an empty feature table")
	}

	sorted := &models.FeatureTable{
		Level:   table.Level,
		Columns: table.Columns,
		Rows:    make([]models.FeatureRow, len(table.Rows)),
	}
	copy(sorted.Rows, table.Rows)
	sort.SliceStable(sorted.Rows, func(i, j int) bool {
		return sorted.Rows[i].Date.Before(sorted.Rows[j].Date)
	})

	split := int(float64(len(sorted.Rows)) * 0.8)
	if split < 1 {
		split = len(sorted.Rows)
	}
	train := &models.FeatureTable{Level: sorted.Level, Columns: sorted.Columns, Rows: sorted.Rows[:split]}
	holdout := &models.FeatureTable{Level: sorted.Level, Columns: sorted.Columns, Rows: sorted.Rows[split:]}

	model := NewHybridModel(t.alpha)
	if err := model.Fit(train); err != nil {
		return nil, err
	}

	eval := holdout
	forcedZeroMAPE := false
	if len(holdout.Rows) == 0 {
		eval = train
		forcedZeroMAPE = true
	}

	predicted := model.Predict(eval)
	actual := eval.Target()

	metrics := map[string]float64{
		"mae":  meanAbsError(actual, predicted),
		"rmse": rmse(actual, predicted),
	}
	if forcedZeroMAPE {
		metrics["mape"] = 0
		metrics["rmse"] = metrics["mae"]
	} else {
		metrics["mape"] = meanAbsPctError(actual, predicted)
	}

	result := &TrainResult{
		Model:                 model,
		Version:               fmt.Sprintf("afs-%s", model.TrainedAt.Format("2006-01-02-1504")),
		Metrics:               metrics,
		Importance:            model.FeatureImportance(),
		PermutationImportance: PermutationImportance(model, eval, t.permRepeats, permutationSeed),
	}

	bt, ok := t.Backtest(model, sorted)
	if ok {
		metrics["backtest_mae"] = bt.MAE
		metrics["backtest_mape"] = bt.MAPE
	} else {
		result.BacktestInsufficient = true
		t.logger.Warn("backtest skipped, series shorter than one window",
			"rows", len(sorted.Rows), "horizon_days", t.horizon)
	}

	t.logger.Info("model trained",
		"version", result.Version,
		"rows", len(sorted.Rows),
		"features", len(model.Features),
		"mae", metrics["mae"])
	return result, nil
}

// BacktestResult aggregates errors over every rolling-origin window.
type BacktestResult struct {
	MAE     float64
	MAPE    float64
	Windows int
}

// Backtest sweeps a rolling origin through the date-sorted table and
// scores the fitted model on each forward window. The boolean is false
// when the series cannot fit a single window; that outcome is not an
// error.
func (t *Trainer) Backtest(model *HybridModel, sorted *models.FeatureTable) (BacktestResult, bool) {
	n := len(sorted.Rows)
	if n < t.horizon+1 {
		return BacktestResult{}, false
	}

	start := n - 4*t.horizon
	if start < t.horizon {
		start = t.horizon
	}
	if start >= n-t.horizon {
		return BacktestResult{}, false
	}

	var predicted, actual []float64
	windows := 0
	for i := start; i < n-t.horizon; i++ {
		for j := i; j < i+t.horizon; j++ {
			predicted = append(predicted, model.PredictRow(&sorted.Rows[j]))
			actual = append(actual, sorted.Rows[j].UnitsSold)
		}
		windows++
	}
	if windows == 0 {
		return BacktestResult{}, false
	}

	return BacktestResult{
		MAE:     meanAbsError(actual, predicted),
		MAPE:    meanAbsPctError(actual, predicted),
		Windows: windows,
	}, true
}
