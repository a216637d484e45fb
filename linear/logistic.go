// Package linear provides the gradient-descent logistic regression
// classifier used by the churn and loan pipelines.
package linear

import (
	"encoding/gob"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/banktools/bankml/core/model"
	"github.com/banktools/bankml/pkg/errors"
)

const (
	epsilonSmall = 1e-15
	// logitClip bounds the linear term before the sigmoid so exp never
	// overflows.
	logitClip = 500.0
	// initStdDev is the standard deviation of the weight initialisation.
	initStdDev = 0.01
)

// LogisticRegression is a binary classifier trained by batch gradient
// descent on the cross-entropy loss. Weights initialise from a seeded
// normal distribution so training is reproducible.
type LogisticRegression struct {
	model.BaseEstimator

	learningRate float64
	maxIter      int
	tol          float64
	seed         uint64

	weights []float64
	bias    float64
	// costHistory holds the loss at every iteration until convergence.
	costHistory []float64
	nFeatures   int
	nIter       int
}

// LogisticRegressionOption configures a LogisticRegression.
type LogisticRegressionOption func(*LogisticRegression)

// WithLearningRate sets the gradient-descent step size.
func WithLearningRate(lr float64) LogisticRegressionOption {
	return func(m *LogisticRegression) { m.learningRate = lr }
}

// WithMaxIterations sets the iteration budget.
func WithMaxIterations(n int) LogisticRegressionOption {
	return func(m *LogisticRegression) { m.maxIter = n }
}

// WithTolerance sets the early-stopping threshold on the absolute change
// in loss between iterations.
func WithTolerance(tol float64) LogisticRegressionOption {
	return func(m *LogisticRegression) { m.tol = tol }
}

// WithSeed sets the weight-initialisation seed.
func WithSeed(seed uint64) LogisticRegressionOption {
	return func(m *LogisticRegression) { m.seed = seed }
}

// NewLogisticRegression creates a classifier with learning rate 0.01,
// 1000 iterations, tolerance 1e-6 and seed 42.
func NewLogisticRegression(opts ...LogisticRegressionOption) *LogisticRegression {
	m := &LogisticRegression{
		learningRate: 0.01,
		maxIter:      1000,
		tol:          1e-6,
		seed:         42,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// stableSigmoid computes sigmoid(z) without overflow.
func stableSigmoid(z float64) float64 {
	if z > logitClip {
		z = logitClip
	} else if z < -logitClip {
		z = -logitClip
	}
	if z >= 0 {
		ez := math.Exp(-z)
		return 1.0 / (1.0 + ez)
	}
	ez := math.Exp(z)
	return ez / (1.0 + ez)
}

// clampProbability clamps p away from 0 and 1 to keep log finite.
func clampProbability(p float64) float64 {
	if p < epsilonSmall {
		return epsilonSmall
	}
	if p > 1-epsilonSmall {
		return 1 - epsilonSmall
	}
	return p
}

// Fit trains on X (samples x features) with binary labels y in {0, 1}.
func (m *LogisticRegression) Fit(x mat.Matrix, y []float64) (err error) {
	defer errors.Recover(&err, "LogisticRegression.Fit")
	return m.fit(x, y, nil)
}

// FitWeighted trains with per-sample weights. Weights are rescaled to
// mean 1 so the learning rate keeps its usual meaning.
func (m *LogisticRegression) FitWeighted(x mat.Matrix, y, sampleWeight []float64) (err error) {
	defer errors.Recover(&err, "LogisticRegression.FitWeighted")
	if len(sampleWeight) != len(y) {
		return errors.NewDimensionError("LogisticRegression.FitWeighted", len(y), len(sampleWeight), 0)
	}
	return m.fit(x, y, sampleWeight)
}

func (m *LogisticRegression) fit(x mat.Matrix, y, sampleWeight []float64) error {
	rows, cols := x.Dims()
	if rows == 0 || cols == 0 {
		return errors.NewValueError("LogisticRegression.Fit", "empty training matrix")
	}
	if len(y) != rows {
		return errors.NewDimensionError("LogisticRegression.Fit", rows, len(y), 0)
	}
	for _, label := range y {
		if label != 0 && label != 1 {
			return errors.NewValueError("LogisticRegression.Fit", "labels must be 0 or 1")
		}
	}

	weight := make([]float64, rows)
	if sampleWeight == nil {
		for i := range weight {
			weight[i] = 1
		}
	} else {
		sum := 0.0
		for _, w := range sampleWeight {
			if w < 0 {
				return errors.NewValueError("LogisticRegression.FitWeighted", "sample weights must be non-negative")
			}
			sum += w
		}
		if sum <= 0 {
			return errors.NewValueError("LogisticRegression.FitWeighted", "sample weights sum to zero")
		}
		for i, w := range sampleWeight {
			weight[i] = w / sum * float64(rows)
		}
	}

	normal := distuv.Normal{
		Mu:    0,
		Sigma: initStdDev,
		Src:   rand.NewPCG(m.seed, m.seed),
	}
	m.weights = make([]float64, cols)
	for j := range m.weights {
		m.weights[j] = normal.Rand()
	}
	m.bias = 0
	m.costHistory = m.costHistory[:0]
	m.nFeatures = cols
	m.nIter = 0

	probs := make([]float64, rows)
	grad := make([]float64, cols)
	prevCost := math.Inf(1)

	for iter := 0; iter < m.maxIter; iter++ {
		cost := 0.0
		for i := 0; i < rows; i++ {
			z := m.bias
			for j := 0; j < cols; j++ {
				z += x.At(i, j) * m.weights[j]
			}
			p := stableSigmoid(z)
			probs[i] = p
			pc := clampProbability(p)
			cost -= weight[i] * (y[i]*math.Log(pc) + (1-y[i])*math.Log(1-pc))
		}
		cost /= float64(rows)
		m.costHistory = append(m.costHistory, cost)
		m.nIter = iter + 1

		if math.Abs(prevCost-cost) < m.tol {
			break
		}
		prevCost = cost

		for j := range grad {
			grad[j] = 0
		}
		gradBias := 0.0
		for i := 0; i < rows; i++ {
			diff := weight[i] * (probs[i] - y[i])
			for j := 0; j < cols; j++ {
				grad[j] += x.At(i, j) * diff
			}
			gradBias += diff
		}
		inv := 1.0 / float64(rows)
		for j := 0; j < cols; j++ {
			m.weights[j] -= m.learningRate * grad[j] * inv
		}
		m.bias -= m.learningRate * gradBias * inv
	}

	m.SetFitted()
	return nil
}

// PredictProba returns the positive-class probability for each row of X.
func (m *LogisticRegression) PredictProba(x mat.Matrix) ([]float64, error) {
	if !m.IsFitted() {
		return nil, errors.NewNotFittedError("LogisticRegression", "PredictProba")
	}
	rows, cols := x.Dims()
	if cols != m.nFeatures {
		return nil, errors.NewDimensionError("LogisticRegression.PredictProba", m.nFeatures, cols, 1)
	}
	probs := make([]float64, rows)
	for i := 0; i < rows; i++ {
		z := m.bias
		for j := 0; j < cols; j++ {
			z += x.At(i, j) * m.weights[j]
		}
		probs[i] = stableSigmoid(z)
	}
	return probs, nil
}

// Predict returns hard 0/1 labels at the 0.5 threshold.
func (m *LogisticRegression) Predict(x mat.Matrix) ([]float64, error) {
	probs, err := m.PredictProba(x)
	if err != nil {
		return nil, err
	}
	labels := make([]float64, len(probs))
	for i, p := range probs {
		if p >= 0.5 {
			labels[i] = 1
		}
	}
	return labels, nil
}

// CostHistory returns the recorded loss values, one per iteration run.
func (m *LogisticRegression) CostHistory() []float64 {
	out := make([]float64, len(m.costHistory))
	copy(out, m.costHistory)
	return out
}

// NIter returns the number of iterations actually run.
func (m *LogisticRegression) NIter() int { return m.nIter }

// Weights returns a copy of the learned coefficients.
func (m *LogisticRegression) Weights() []float64 {
	out := make([]float64, len(m.weights))
	copy(out, m.weights)
	return out
}

// Bias returns the learned intercept.
func (m *LogisticRegression) Bias() float64 { return m.bias }

func init() {
	// Registered so pipeline states can embed the snapshot as an
	// interface field.
	gob.Register(&logisticState{})
}

// logisticState is the serialisable snapshot of a trained classifier.
type logisticState struct {
	LearningRate float64
	MaxIter      int
	Tol          float64
	Seed         uint64
	Weights      []float64
	Bias         float64
	CostHistory  []float64
	NFeatures    int
	NIter        int
	Fitted       bool
}

// ExportState returns a snapshot for persistence.
func (m *LogisticRegression) ExportState() (interface{}, error) {
	return &logisticState{
		LearningRate: m.learningRate,
		MaxIter:      m.maxIter,
		Tol:          m.tol,
		Seed:         m.seed,
		Weights:      m.Weights(),
		Bias:         m.bias,
		CostHistory:  m.CostHistory(),
		NFeatures:    m.nFeatures,
		NIter:        m.nIter,
		Fitted:       m.IsFitted(),
	}, nil
}

// ImportState restores a snapshot produced by ExportState.
func (m *LogisticRegression) ImportState(state interface{}) error {
	s, ok := state.(*logisticState)
	if !ok {
		return errors.NewValueError("LogisticRegression.ImportState", "unexpected state type")
	}
	m.learningRate = s.LearningRate
	m.maxIter = s.MaxIter
	m.tol = s.Tol
	m.seed = s.Seed
	m.weights = append([]float64(nil), s.Weights...)
	m.bias = s.Bias
	m.costHistory = append([]float64(nil), s.CostHistory...)
	m.nFeatures = s.NFeatures
	m.nIter = s.NIter
	if s.Fitted {
		m.SetFitted()
	} else {
		m.Reset()
	}
	return nil
}
