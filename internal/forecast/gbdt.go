package forecast

import (
	"math"
	"math/rand"
	"sort"

	"github.com/rith-wik/attribute-forecasting-system/internal/utils"
)

// GBDTParams configures the gradient-boosted tree regressor.
type GBDTParams struct {
	NEstimators  int     `json:"n_estimators"`
	MaxDepth     int     `json:"max_depth"`
	LearningRate float64 `json:"learning_rate"`
	Subsample    float64 `json:"subsample"`
	MinLeaf      int     `json:"min_leaf"`
	Seed         int64   `json:"seed"`
}

// DefaultGBDTParams mirrors the tuning the model has always shipped with.
func DefaultGBDTParams() GBDTParams {
	return GBDTParams{
		NEstimators:  100,
		MaxDepth:     5,
		LearningRate: 0.1,
		Subsample:    0.8,
		MinLeaf:      2,
		Seed:         42,
	}
}

// TreeNode is one node of a regression tree. Leaf nodes carry the
// predicted residual in Value; internal nodes route on
// x[Feature] <= Threshold.
type TreeNode struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Value     float64 `json:"value"`
	Leaf      bool    `json:"leaf"`
}

// Tree is a regression tree stored as a flat node array rooted at 0.
type Tree struct {
	Nodes []TreeNode `json:"nodes"`
}

func (t *Tree) predict(x []float64) float64 {
	i := 0
	for {
		node := t.Nodes[i]
		if node.Leaf {
			return node.Value
		}
		if x[node.Feature] <= node.Threshold {
			i = node.Left
		} else {
			i = node.Right
		}
	}
}

// GBDTRegressor is a gradient-boosted ensemble of regression trees with
// squared-error loss. Its fitted state serializes directly into the
// versioned model artifact.
type GBDTRegressor struct {
	Params    GBDTParams `json:"params"`
	BaseScore float64    `json:"base_score"`
	Trees     []Tree     `json:"trees"`

	// Gains accumulates per-feature squared-error gain during fitting;
	// it is persisted so importances survive an artifact round-trip.
	Gains []float64 `json:"gains,omitempty"`
}

// NewGBDTRegressor creates an untrained regressor.
func NewGBDTRegressor(params GBDTParams) *GBDTRegressor {
	return &GBDTRegressor{Params: params}
}

// Fitted reports whether the regressor has been trained.
func (g *GBDTRegressor) Fitted() bool {
	return len(g.Trees) > 0
}

// Fit trains the ensemble on the feature matrix X and target y.
func (g *GBDTRegressor) Fit(X [][]float64, y []float64) error {
	if len(X) == 0 || len(X) != len(y) {
		return utils.NewValidationErrorf("cannot fit regressor on %d rows with %d targets", len(X), len(y))
	}
	nFeatures := len(X[0])
	if nFeatures == 0 {
		return utils.NewValidationError("cannot fit regressor with no feature columns")
	}

	g.BaseScore = mean(y)
	g.Trees = make([]Tree, 0, g.Params.NEstimators)
	g.Gains = make([]float64, nFeatures)

	pred := make([]float64, len(y))
	for i := range pred {
		pred[i] = g.BaseScore
	}

	rng := rand.New(rand.NewSource(g.Params.Seed))
	residual := make([]float64, len(y))
	all := make([]int, len(y))
	for i := range all {
		all[i] = i
	}

	sampleSize := int(float64(len(y)) * g.Params.Subsample)
	if sampleSize < 1 {
		sampleSize = len(y)
	}

	for iter := 0; iter < g.Params.NEstimators; iter++ {
		for i := range y {
			residual[i] = y[i] - pred[i]
		}

		sample := all
		if sampleSize < len(y) {
			rng.Shuffle(len(all), func(a, b int) { all[a], all[b] = all[b], all[a] })
			sample = make([]int, sampleSize)
			copy(sample, all[:sampleSize])
		}

		tree := Tree{}
		g.buildNode(&tree, X, residual, sample, 0)
		g.Trees = append(g.Trees, tree)

		for i := range y {
			pred[i] += g.Params.LearningRate * tree.predict(X[i])
		}
	}
	return nil
}

// buildNode grows the tree greedily and returns the index of the node it
// appended.
func (g *GBDTRegressor) buildNode(tree *Tree, X [][]float64, residual []float64, idx []int, depth int) int {
	nodeIdx := len(tree.Nodes)
	tree.Nodes = append(tree.Nodes, TreeNode{Leaf: true, Value: meanAt(residual, idx)})

	if depth >= g.Params.MaxDepth || len(idx) < 2*g.Params.MinLeaf {
		return nodeIdx
	}

	feature, threshold, gain, ok := g.bestSplit(X, residual, idx)
	if !ok {
		return nodeIdx
	}

	var left, right []int
	for _, i := range idx {
		if X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) < g.Params.MinLeaf || len(right) < g.Params.MinLeaf {
		return nodeIdx
	}

	g.Gains[feature] += gain

	leftIdx := g.buildNode(tree, X, residual, left, depth+1)
	rightIdx := g.buildNode(tree, X, residual, right, depth+1)

	tree.Nodes[nodeIdx] = TreeNode{
		Feature:   feature,
		Threshold: threshold,
		Left:      leftIdx,
		Right:     rightIdx,
	}
	return nodeIdx
}

// bestSplit scans every feature for the threshold with the largest
// squared-error reduction.
func (g *GBDTRegressor) bestSplit(X [][]float64, residual []float64, idx []int) (int, float64, float64, bool) {
	var totalSum, totalSq float64
	for _, i := range idx {
		totalSum += residual[i]
		totalSq += residual[i] * residual[i]
	}
	n := float64(len(idx))
	parentErr := totalSq - totalSum*totalSum/n

	bestGain := 0.0
	bestFeature, bestThreshold := -1, 0.0

	sorted := make([]int, len(idx))
	for f := 0; f < len(X[idx[0]]); f++ {
		copy(sorted, idx)
		sort.Slice(sorted, func(a, b int) bool { return X[sorted[a]][f] < X[sorted[b]][f] })

		var leftSum, leftSq float64
		for pos := 0; pos < len(sorted)-1; pos++ {
			i := sorted[pos]
			leftSum += residual[i]
			leftSq += residual[i] * residual[i]

			cur, next := X[i][f], X[sorted[pos+1]][f]
			if cur == next {
				continue
			}
			nl := float64(pos + 1)
			nr := n - nl
			if int(nl) < g.Params.MinLeaf || int(nr) < g.Params.MinLeaf {
				continue
			}

			rightSum := totalSum - leftSum
			rightSq := totalSq - leftSq
			childErr := (leftSq - leftSum*leftSum/nl) + (rightSq - rightSum*rightSum/nr)
			gain := parentErr - childErr
			if gain > bestGain+1e-12 {
				bestGain = gain
				bestFeature = f
				bestThreshold = (cur + next) / 2
			}
		}
	}

	if bestFeature < 0 {
		return 0, 0, 0, false
	}
	return bestFeature, bestThreshold, bestGain, true
}

// Predict returns the ensemble prediction for each row of X.
func (g *GBDTRegressor) Predict(X [][]float64) []float64 {
	out := make([]float64, len(X))
	for i := range X {
		out[i] = g.PredictOne(X[i])
	}
	return out
}

// PredictOne returns the ensemble prediction for a single row.
func (g *GBDTRegressor) PredictOne(x []float64) float64 {
	pred := g.BaseScore
	for t := range g.Trees {
		pred += g.Params.LearningRate * g.Trees[t].predict(x)
	}
	return pred
}

// FeatureImportances returns the normalized squared-error gain per
// feature index. Nil before fitting.
func (g *GBDTRegressor) FeatureImportances() []float64 {
	if g.Gains == nil {
		return nil
	}
	var total float64
	for _, v := range g.Gains {
		total += v
	}
	out := make([]float64, len(g.Gains))
	if total == 0 {
		return out
	}
	for i, v := range g.Gains {
		out[i] = v / total
	}
	return out
}

func mean(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	var sum float64
	for _, x := range v {
		sum += x
	}
	return sum / float64(len(v))
}

func meanAt(v []float64, idx []int) float64 {
	if len(idx) == 0 {
		return 0
	}
	var sum float64
	for _, i := range idx {
		sum += v[i]
	}
	return sum / float64(len(idx))
}

func rmse(actual, predicted []float64) float64 {
	if len(actual) == 0 {
		return 0
	}
	var sum float64
	for i := range actual {
		d := actual[i] - predicted[i]
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(actual)))
}

func meanAbsError(actual, predicted []float64) float64 {
	if len(actual) == 0 {
		return 0
	}
	var sum float64
	for i := range actual {
		sum += math.Abs(actual[i] - predicted[i])
	}
	return sum / float64(len(actual))
}

// meanAbsPctError excludes zero actuals from the denominator and reports
// 0 when no non-zero actual exists. The result is a percentage.
func meanAbsPctError(actual, predicted []float64) float64 {
	var sum float64
	var n int
	for i := range actual {
		if actual[i] == 0 {
			continue
		}
		sum += math.Abs((actual[i] - predicted[i]) / actual[i])
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n) * 100
}
