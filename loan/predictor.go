package loan

import (
	"math"

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

// Training hyperparameters.
const (
	loanLearningRate = 0.01
	loanMaxIter      = 1000
	loanSeed         = 42
)

// approvalThreshold is the probability at which an application is approved.
const approvalThreshold = 0.5

// creditHistoryCutoff is the estimated credit score above which an
// applicant is treated as having a good credit history.
const creditHistoryCutoff = 650

const aggressiveCleaningScore = 80

const targetColumn = "Loan_Status"

var identifierColumns = []string{"Loan_ID"}

// categoricalColumns are one-hot encoded before training. The inferred
// LoanPurpose label is descriptive only and dropped instead.
var categoricalColumns = []string{"Gender", "Married", "Education", "Self_Employed", "Property_Area"}

// Application is the applicant-facing loan request form. Demographic
// fields left at their zero value take conservative defaults.
type Application struct {
	// Amount is the requested loan in dollars.
	Amount float64
	// Income is the applicant's monthly income in dollars.
	Income float64
	// EmploymentYears is the applicant's years of employment.
	EmploymentYears float64
	// CreditScore is the applicant's credit score in [300, 850].
	CreditScore float64

	Gender       string
	Married      string
	Dependents   float64
	Education    string
	SelfEmployed string
	PropertyArea string
}

// Prediction is the scored outcome for one application.
type Prediction struct {
	Approved    bool
	Probability float64
	// Confidence reflects how far the probability sits from the decision
	// boundary: High, Medium or Low.
	Confidence string
	// RiskLevel grades the application: Low, Medium, High or Very High.
	RiskLevel       string
	Recommendations []string
}

// TrainingResult summarises one training run.
type TrainingResult struct {
	Quality  *quality.Report
	Cleaning *cleaning.Report

	Train      metrics.Metrics
	Validation metrics.Metrics
	Test       metrics.Metrics

	Features   []string
	Iterations int
}

// Predictor is the end-to-end loan pipeline. Train once, then Predict
// concurrently from any number of goroutines.
type Predictor struct {
	model.BaseEstimator

	assessor   *quality.Assessor
	cleaner    *cleaning.Cleaner
	engineer   *features.LoanFeatureEngineer
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

// NewPredictor creates an untrained loan predictor.
func NewPredictor(opts ...Option) *Predictor {
	p := &Predictor{
		assessor:       quality.NewAssessor(),
		cleaner:        cleaning.NewCleaner(),
		engineer:       features.NewLoanFeatureEngineer(),
		scaler:         preprocessing.NewStandardScaler(),
		seed:           loanSeed,
		cleaningCutoff: aggressiveCleaningScore,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.classifier = linear.NewLogisticRegression(
		linear.WithLearningRate(loanLearningRate),
		linear.WithMaxIterations(loanMaxIter),
		linear.WithSeed(p.seed),
	)
	return p
}

// Train runs the full pipeline on historical application data with a
// Loan_Status label column holding Y/N outcomes.
func (p *Predictor) Train(ds *dataset.Dataset) (_ *TrainingResult, err error) {
	defer errors.Recover(&err, "loan.Predictor.Train")
	logger := log.GetLoggerWithName("LoanPredictor")

	if ds.NumRows() == 0 {
		return nil, errors.NewValueError("loan.Predictor.Train", "empty training dataset")
	}
	if !ds.HasColumn(targetColumn) {
		return nil, errors.NewMissingColumnError("loan.Predictor.Train", targetColumn)
	}

	qualityReport := p.assessor.GenerateQualityReport(ds, quality.LoanRules())
	logger.Info().Float64("score", qualityReport.Overall.Score).
		Str("grade", qualityReport.Overall.Grade).Msg("data quality assessed")

	prepared := CleanApplications(ds)
	cleaned, cleaningReport := p.cleaner.Clean(prepared, cleaning.Config{
		TargetColumn: targetColumn,
		Aggressive:   qualityReport.Overall.Score < p.cleaningCutoff,
	})

	engineered, err := p.engineer.Transform(cleaned)
	if err != nil {
		return nil, err
	}
	engineered.DropColumns(identifierColumns...)
	engineered.DropColumns("LoanPurpose")
	encoded, err := preprocessing.EncodeCategorical(engineered, categoricalColumns...)
	if err != nil {
		return nil, err
	}
	binarizeTarget(encoded)

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
	xTrain, err := p.scaler.FitTransform(xTrainRaw)
	if err != nil {
		return nil, err
	}
	if err := p.classifier.Fit(xTrain, yTrain); err != nil {
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

// Predict scores a single application.
func (p *Predictor) Predict(app Application) (_ *Prediction, err error) {
	defer errors.Recover(&err, "loan.Predictor.Predict")
	if !p.IsFitted() {
		return nil, errors.NewNotFittedError("LoanPredictor", "Predict")
	}
	if err := validateApplication(app); err != nil {
		return nil, err
	}

	record := app.toDataset()
	engineered, err := p.engineer.Transform(record)
	if err != nil {
		return nil, err
	}
	engineered.DropColumns("LoanPurpose")
	encoded, err := preprocessing.EncodeCategorical(engineered, categoricalColumns...)
	if err != nil {
		return nil, err
	}

	row := pipeline.AlignRow(encoded, 0, p.featureNames)
	x, err := p.scaler.Transform(mat.NewDense(1, len(row), row))
	if err != nil {
		return nil, err
	}
	probs, err := p.classifier.PredictProba(x)
	if err != nil {
		return nil, err
	}

	prob := probs[0]
	return &Prediction{
		Approved:        prob >= approvalThreshold,
		Probability:     prob,
		Confidence:      Confidence(prob),
		RiskLevel:       RiskLevel(prob),
		Recommendations: recommendations(prob, app),
	}, nil
}

// Confidence grades how far a probability sits from the 0.5 decision
// boundary: beyond 0.3 is High, beyond 0.1 Medium, else Low.
func Confidence(p float64) string {
	d := math.Abs(p - 0.5)
	switch {
	case d > 0.3:
		return "High"
	case d > 0.1:
		return "Medium"
	default:
		return "Low"
	}
}

// RiskLevel grades an application by approval probability.
func RiskLevel(p float64) string {
	switch {
	case p > 0.8:
		return "Low"
	case p > 0.6:
		return "Medium"
	case p > 0.4:
		return "High"
	default:
		return "Very High"
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

func validateApplication(app Application) error {
	switch {
	case app.Amount <= 0:
		return errors.NewValidationError("Amount", "must be positive", app.Amount)
	case app.Income < 0:
		return errors.NewValidationError("Income", "must be non-negative", app.Income)
	case app.EmploymentYears < 0:
		return errors.NewValidationError("EmploymentYears", "must be non-negative", app.EmploymentYears)
	case app.CreditScore < 300 || app.CreditScore > 850:
		return errors.NewValidationError("CreditScore", "must be between 300 and 850", app.CreditScore)
	}
	return nil
}

// toDataset converts the applicant form into the historical training
// schema: the amount in thousands, the term from employment years and the
// credit history flag from the score.
func (app Application) toDataset() *dataset.Dataset {
	term := clampFloat(app.EmploymentYears*12, 120, 360)
	history := 0.0
	if app.CreditScore >= creditHistoryCutoff {
		history = 1
	}
	columns := []string{
		"Gender", "Married", "Dependents", "Education", "Self_Employed",
		"ApplicantIncome", "CoapplicantIncome", "LoanAmount",
		"Loan_Amount_Term", "Credit_History", "Property_Area",
	}
	return dataset.FromRecords(columns, []dataset.Record{{
		"Gender":            dataset.Str(defaultString(app.Gender, "Male")),
		"Married":           dataset.Str(defaultString(app.Married, "Yes")),
		"Dependents":        dataset.Num(app.Dependents),
		"Education":         dataset.Str(defaultString(app.Education, "Graduate")),
		"Self_Employed":     dataset.Str(defaultString(app.SelfEmployed, "No")),
		"ApplicantIncome":   dataset.Num(app.Income),
		"CoapplicantIncome": dataset.Num(0),
		"LoanAmount":        dataset.Num(app.Amount / 1000),
		"Loan_Amount_Term":  dataset.Num(term),
		"Credit_History":    dataset.Num(history),
		"Property_Area":     dataset.Str(defaultString(app.PropertyArea, "Urban")),
	}})
}

// recommendations builds applicant guidance from the score and the form.
func recommendations(prob float64, app Application) []string {
	var out []string
	if prob >= approvalThreshold {
		out = append(out, "Application looks strong; proceed with document verification")
	} else {
		out = append(out, "Application is unlikely to be approved as submitted")
	}
	if app.CreditScore < creditHistoryCutoff {
		out = append(out, "Improve credit score above 650 before reapplying; on-time payments have the largest effect")
	}
	monthlyPayment := app.Amount / clampFloat(app.EmploymentYears*12, 120, 360)
	if app.Income > 0 && monthlyPayment/app.Income > 0.4 {
		out = append(out, "Debt-to-income ratio is high; consider a smaller amount or a longer term")
	}
	if app.Income > 0 && app.Amount/app.Income > 60 {
		out = append(out, "Requested amount is large relative to income; a co-applicant would strengthen the file")
	}
	if prob < 0.4 {
		out = append(out, "Consider a secured loan or a larger down payment to offset risk")
	}
	return out
}

// binarizeTarget rewrites Y/N loan outcomes as 1/0 in place.
func binarizeTarget(ds *dataset.Dataset) {
	for i := 0; i < ds.NumRows(); i++ {
		v := ds.At(i, targetColumn)
		switch {
		case v.Kind == dataset.String && v.Str == "Y":
			ds.Set(i, targetColumn, dataset.Num(1))
		case v.Kind == dataset.String && v.Str == "N":
			ds.Set(i, targetColumn, dataset.Num(0))
		}
	}
}

func defaultString(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
