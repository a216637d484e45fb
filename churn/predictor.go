// Package churn implements the customer-churn prediction pipeline: quality
// assessment, cleaning, feature engineering, training and per-customer
// risk scoring with retention recommendations.
package churn

import (
	"gonum.org/v1/gonum/mat"

	"github.com/banktools/bankml/cleaning"
	"github.com/banktools/bankml/core/model"
	"github.com/banktools/bankml/dataset"
	"github.com/banktools/bankml/features"
	"github.com/banktools/bankml/linear"
	"github.com/banktools/bankml/metrics"
	"github.com/banktools/bankml/pipeline"
	"github.com/banktools/bankml/pkg/errors"
	"github.com/banktools/bankml/pkg/log"
	"github.com/banktools/bankml/preprocessing"
	"github.com/banktools/bankml/quality"
)

// Risk tier thresholds on churn probability.
const (
	highRiskThreshold   = 0.35
	mediumRiskThreshold = 0.15
)

// aggressiveCleaningScore is the quality score below which training
// switches to aggressive cleaning.
const aggressiveCleaningScore = 80

// Training hyperparameters.
const (
	churnLearningRate = 0.05
	churnMaxIter      = 3000
	churnTolerance    = 1e-8
	churnSeed         = 42
)

// Identifier columns dropped before training.
var identifierColumns = []string{"RowNumber", "CustomerId", "Surname"}

// categoricalColumns are one-hot encoded before training.
var categoricalColumns = []string{"Geography", "Gender"}

// targetColumn is the binary churn label.
const targetColumn = "Exited"

// Customer is one customer's raw attributes at the prediction boundary.
type Customer struct {
	CreditScore     float64
	Geography       string
	Gender          string
	Age             float64
	Tenure          float64
	Balance         float64
	NumOfProducts   float64
	HasCrCard       float64
	IsActiveMember  float64
	EstimatedSalary float64
}

// Prediction is the scored churn outcome for one customer.
type Prediction struct {
	Probability     float64
	WillChurn       bool
	RiskLevel       string
	Recommendations []string
}

// TrainingResult summarises one training run.
type TrainingResult struct {
	Quality  *quality.Report
	Cleaning *cleaning.Report
	// Train, Validation and Test hold the evaluation metrics per split.
	Train      metrics.Metrics
	Validation metrics.Metrics
	Test       metrics.Metrics
	// Features is the final training feature order.
	Features []string
	// Iterations is the number of gradient-descent iterations run.
	Iterations int
}

// Predictor is the end-to-end churn pipeline. Train once, then Predict
// concurrently from any number of goroutines.
type Predictor struct {
	model.BaseEstimator

	assessor   *quality.Assessor
	cleaner    *cleaning.Cleaner
	engineer   *features.ChurnFeatureEngineer
	classifier *linear.LogisticRegression
	scaler     *preprocessing.StandardScaler

	seed           uint64
	cleaningCutoff float64

	featureNames []string
	result       *TrainingResult
}

// Option configures a Predictor at construction time.
type Option func(*Predictor)

// WithSeed sets the seed driving the train/validation/test split and the
// classifier's weight initialisation.
func WithSeed(seed uint64) Option {
	return func(p *Predictor) { p.seed = seed }
}

// WithAggressiveCleaningScore sets the quality score below which training
// switches to aggressive cleaning.
func WithAggressiveCleaningScore(score float64) Option {
	return func(p *Predictor) { p.cleaningCutoff = score }
}

// NewPredictor creates an untrained churn predictor.
func NewPredictor(opts ...Option) *Predictor {
	p := &Predictor{
		assessor:       quality.NewAssessor(),
		cleaner:        cleaning.NewCleaner(),
		engineer:       features.NewChurnFeatureEngineer(),
		scaler:         preprocessing.NewStandardScaler(),
		seed:           churnSeed,
		cleaningCutoff: aggressiveCleaningScore,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.classifier = linear.NewLogisticRegression(
		linear.WithLearningRate(churnLearningRate),
		linear.WithMaxIterations(churnMaxIter),
		linear.WithTolerance(churnTolerance),
		linear.WithSeed(p.seed),
	)
	return p
}

// Train runs the full pipeline on raw customer data with an Exited label
// column. Aggressive cleaning kicks in when the quality score falls below
// the configured cutoff (default 80).
func (p *Predictor) Train(ds *dataset.Dataset) (_ *TrainingResult, err error) {
	defer errors.Recover(&err, "churn.Predictor.Train")
	logger := log.GetLoggerWithName("ChurnPredictor")

	if ds.NumRows() == 0 {
		return nil, errors.NewValueError("churn.Predictor.Train", "empty training dataset")
	}
	if !ds.HasColumn(targetColumn) {
		return nil, errors.NewMissingColumnError("churn.Predictor.Train", targetColumn)
	}

	qualityReport := p.assessor.GenerateQualityReport(ds, quality.ChurnRules())
	logger.Info().Float64("score", qualityReport.Overall.Score).
		Str("grade", qualityReport.Overall.Grade).Msg("data quality assessed")

	cleaned, cleaningReport := p.cleaner.Clean(ds, cleaning.Config{
		TargetColumn: targetColumn,
		Aggressive:   qualityReport.Overall.Score < p.cleaningCutoff,
	})

	engineered, err := p.engineer.Transform(cleaned)
	if err != nil {
		return nil, err
	}
	engineered.DropColumns(identifierColumns...)
	encoded, err := preprocessing.EncodeCategorical(engineered, categoricalColumns...)
	if err != nil {
		return nil, err
	}

	featureNames := make([]string, 0, encoded.NumCols()-1)
	for _, c := range encoded.Columns() {
		if c != targetColumn {
			featureNames = append(featureNames, c)
		}
	}

	trainIdx, valIdx, testIdx := pipeline.SplitIndices(encoded.NumRows(), p.seed)
	trainSet := pipeline.Subset(encoded, trainIdx)
	valSet := pipeline.Subset(encoded, valIdx)
	testSet := pipeline.Subset(encoded, testIdx)

	xTrainRaw, err := pipeline.ToMatrix(trainSet, featureNames)
	if err != nil {
		return nil, err
	}
	yTrain, err := pipeline.Labels(trainSet, targetColumn)
	if err != nil {
		return nil, err
	}

	// Normalisation statistics come from the training split only.
	xTrain, err := p.scaler.FitTransform(xTrainRaw)
	if err != nil {
		return nil, err
	}

	if err := p.classifier.FitWeighted(xTrain, yTrain, balancedWeights(yTrain)); err != nil {
		return nil, err
	}
	logger.Info().Int("iterations", p.classifier.NIter()).
		Int("features", len(featureNames)).Msg("classifier trained")

	result := &TrainingResult{
		Quality:    qualityReport,
		Cleaning:   cleaningReport,
		Features:   featureNames,
		Iterations: p.classifier.NIter(),
	}
	if result.Train, err = p.evaluate(trainSet, featureNames); err != nil {
		return nil, err
	}
	if result.Validation, err = p.evaluate(valSet, featureNames); err != nil {
		return nil, err
	}
	if result.Test, err = p.evaluate(testSet, featureNames); err != nil {
		return nil, err
	}

	p.featureNames = featureNames
	p.result = result
	p.SetFitted()
	return result, nil
}

func (p *Predictor) evaluate(ds *dataset.Dataset, featureNames []string) (metrics.Metrics, error) {
	var m metrics.Metrics
	if ds.NumRows() == 0 {
		return m, nil
	}
	xRaw, err := pipeline.ToMatrix(ds, featureNames)
	if err != nil {
		return m, err
	}
	x, err := p.scaler.Transform(xRaw)
	if err != nil {
		return m, err
	}
	y, err := pipeline.Labels(ds, targetColumn)
	if err != nil {
		return m, err
	}
	probs, err := p.classifier.PredictProba(x)
	if err != nil {
		return m, err
	}
	return metrics.EvaluateBinary(y, probs)
}

// Predict scores a single customer.
func (p *Predictor) Predict(c Customer) (_ *Prediction, err error) {
	defer errors.Recover(&err, "churn.Predictor.Predict")
	if !p.IsFitted() {
		return nil, errors.NewNotFittedError("ChurnPredictor", "Predict")
	}
	if err := validateCustomer(c); err != nil {
		return nil, err
	}

	record := c.toDataset()
	engineered, err := p.engineer.Transform(record)
	if err != nil {
		return nil, err
	}
	encoded, err := preprocessing.EncodeCategorical(engineered, categoricalColumns...)
	if err != nil {
		return nil, err
	}

	row := pipeline.AlignRow(encoded, 0, p.featureNames)
	x, err := p.scaler.Transform(rowMatrix(row))
	if err != nil {
		return nil, err
	}
	probs, err := p.classifier.PredictProba(x)
	if err != nil {
		return nil, err
	}

	prob := probs[0]
	return &Prediction{
		Probability:     prob,
		WillChurn:       prob >= 0.5,
		RiskLevel:       RiskLevel(prob),
		Recommendations: recommendations(prob, c),
	}, nil
}

// RiskLevel maps a churn probability to a tier.
func RiskLevel(p float64) string {
	switch {
	case p >= highRiskThreshold:
		return "High"
	case p >= mediumRiskThreshold:
		return "Medium"
	default:
		return "Low"
	}
}

// Features returns the training feature order, or nil before training.
func (p *Predictor) Features() []string {
	return append([]string(nil), p.featureNames...)
}

// TrainingResult returns the last training summary, or nil before training.
func (p *Predictor) TrainingResult() *TrainingResult { return p.result }

// CostHistory exposes the classifier's loss curve for reporting.
func (p *Predictor) CostHistory() []float64 { return p.classifier.CostHistory() }

func validateCustomer(c Customer) error {
	switch {
	case c.CreditScore < 300 || c.CreditScore > 850:
		return errors.NewValidationError("CreditScore", "must be between 300 and 850", c.CreditScore)
	case c.Age < 18 || c.Age > 100:
		return errors.NewValidationError("Age", "must be between 18 and 100", c.Age)
	case c.Tenure < 0 || c.Tenure > 50:
		return errors.NewValidationError("Tenure", "must be between 0 and 50", c.Tenure)
	case c.Balance < 0:
		return errors.NewValidationError("Balance", "must be non-negative", c.Balance)
	case c.NumOfProducts < 1 || c.NumOfProducts > 4:
		return errors.NewValidationError("NumOfProducts", "must be between 1 and 4", c.NumOfProducts)
	case c.EstimatedSalary < 0:
		return errors.NewValidationError("EstimatedSalary", "must be non-negative", c.EstimatedSalary)
	}
	return nil
}

func (c Customer) toDataset() *dataset.Dataset {
	columns := []string{
		"CreditScore", "Geography", "Gender", "Age", "Tenure",
		"Balance", "NumOfProducts", "HasCrCard", "IsActiveMember", "EstimatedSalary",
	}
	return dataset.FromRecords(columns, []dataset.Record{{
		"CreditScore":     dataset.Num(c.CreditScore),
		"Geography":       dataset.Str(c.Geography),
		"Gender":          dataset.Str(c.Gender),
		"Age":             dataset.Num(c.Age),
		"Tenure":          dataset.Num(c.Tenure),
		"Balance":         dataset.Num(c.Balance),
		"NumOfProducts":   dataset.Num(c.NumOfProducts),
		"HasCrCard":       dataset.Num(c.HasCrCard),
		"IsActiveMember":  dataset.Num(c.IsActiveMember),
		"EstimatedSalary": dataset.Num(c.EstimatedSalary),
	}})
}

// recommendations builds the retention playbook for one scored customer.
func recommendations(prob float64, c Customer) []string {
	var out []string
	switch RiskLevel(prob) {
	case "High":
		out = append(out, "Schedule immediate retention outreach with a dedicated account manager")
	case "Medium":
		out = append(out, "Add to the next retention campaign and monitor engagement monthly")
	default:
		out = append(out, "Maintain regular engagement; no retention action required")
	}
	if c.IsActiveMember == 0 {
		out = append(out, "Re-engage through personalized product offers; inactive members churn more often")
	}
	if c.Balance == 0 {
		out = append(out, "Promote savings products to establish a balance relationship")
	}
	if c.NumOfProducts == 1 {
		out = append(out, "Cross-sell a second product to deepen the relationship")
	}
	if c.Tenure < 2 {
		out = append(out, "Enroll in the new-customer onboarding program")
	}
	if c.CreditScore < 650 {
		out = append(out, "Offer credit counseling or a secured card to improve credit standing")
	}
	return out
}

// balancedWeights gives each class a weight inversely proportional to its
// frequency, so the minority churn class is not drowned out.
func balancedWeights(y []float64) []float64 {
	counts := map[float64]float64{}
	for _, label := range y {
		counts[label]++
	}
	n := float64(len(y))
	k := float64(len(counts))
	weights := make([]float64, len(y))
	for i, label := range y {
		weights[i] = n / (k * counts[label])
	}
	return weights
}

func rowMatrix(row []float64) *mat.Dense {
	return mat.NewDense(1, len(row), append([]float64(nil), row...))
}
