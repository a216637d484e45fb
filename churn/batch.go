package churn

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banktools/bankml/dataset"
	"github.com/banktools/bankml/pkg/errors"
	"github.com/banktools/bankml/pkg/log"
)

// maxSkipSamples bounds how many per-row failure messages a batch report
// carries.
const maxSkipSamples = 5

// defaultSalary substitutes for negative or absent salaries in batch rows.
const defaultSalary = 50000

// GeographyStats aggregates batch results for one geography.
type GeographyStats struct {
	Count              int
	AverageProbability float64
	HighRisk           int
}

// RowResult is the scored outcome of one batch row.
type RowResult struct {
	Row         int
	Probability float64
	RiskLevel   string
}

// BatchResult summarises a batch churn analysis run.
type BatchResult struct {
	RunID       string
	GeneratedAt time.Time

	TotalRows int
	Analyzed  int
	Skipped   int
	// SkipSamples holds the first few per-row failure messages.
	SkipSamples []string

	AverageProbability float64
	// RiskDistribution counts customers per risk tier.
	RiskDistribution map[string]int
	// ByGeography aggregates per geography.
	ByGeography map[string]GeographyStats

	Results []RowResult
}

// AnalyzeBatch scores a batch of loosely-typed customer records, such as
// rows parsed from an uploaded CSV. Out-of-range numeric fields are
// clamped into their valid domain; rows whose required fields cannot be
// read at all are skipped and counted, never failing the batch.
func (p *Predictor) AnalyzeBatch(records []dataset.Record) (_ *BatchResult, err error) {
	defer errors.Recover(&err, "churn.Predictor.AnalyzeBatch")
	if !p.IsFitted() {
		return nil, errors.NewNotFittedError("ChurnPredictor", "AnalyzeBatch")
	}
	if len(records) == 0 {
		return nil, errors.NewValueError("churn.Predictor.AnalyzeBatch", "empty batch")
	}
	logger := log.GetLoggerWithName("ChurnBatch")

	result := &BatchResult{
		RunID:            uuid.NewString(),
		GeneratedAt:      time.Now().UTC(),
		TotalRows:        len(records),
		RiskDistribution: map[string]int{"High": 0, "Medium": 0, "Low": 0},
		ByGeography:      map[string]GeographyStats{},
	}

	probSum := 0.0
	geoProbSum := map[string]float64{}

	for i, rec := range records {
		customer, cerr := coerceCustomer(rec)
		if cerr != nil {
			result.Skipped++
			if len(result.SkipSamples) < maxSkipSamples {
				result.SkipSamples = append(result.SkipSamples, fmt.Sprintf("row %d: %v", i, cerr))
			}
			continue
		}
		pred, perr := p.Predict(customer)
		if perr != nil {
			result.Skipped++
			if len(result.SkipSamples) < maxSkipSamples {
				result.SkipSamples = append(result.SkipSamples, fmt.Sprintf("row %d: %v", i, perr))
			}
			continue
		}

		result.Analyzed++
		probSum += pred.Probability
		result.RiskDistribution[pred.RiskLevel]++
		result.Results = append(result.Results, RowResult{
			Row:         i,
			Probability: pred.Probability,
			RiskLevel:   pred.RiskLevel,
		})

		stats := result.ByGeography[customer.Geography]
		stats.Count++
		if pred.RiskLevel == "High" {
			stats.HighRisk++
		}
		result.ByGeography[customer.Geography] = stats
		geoProbSum[customer.Geography] += pred.Probability
	}

	if result.Analyzed > 0 {
		result.AverageProbability = probSum / float64(result.Analyzed)
	}
	for geo, stats := range result.ByGeography {
		stats.AverageProbability = geoProbSum[geo] / float64(stats.Count)
		result.ByGeography[geo] = stats
	}

	logger.Info().Str("run_id", result.RunID).
		Int("analyzed", result.Analyzed).Int("skipped", result.Skipped).
		Float64("avg_probability", result.AverageProbability).
		Msg("batch analysis completed")
	return result, nil
}

// coerceCustomer builds a Customer from a loose record, clamping numeric
// fields into their valid domain. Unreadable required fields are an error.
func coerceCustomer(rec dataset.Record) (Customer, error) {
	var c Customer
	credit, err := numericField(rec, "CreditScore")
	if err != nil {
		return c, err
	}
	age, err := numericField(rec, "Age")
	if err != nil {
		return c, err
	}

	c.CreditScore = clamp(credit, 300, 850)
	c.Age = clamp(age, 18, 100)
	c.Tenure = clamp(numericOr(rec, "Tenure", 0), 0, 50)
	c.Balance = clamp(numericOr(rec, "Balance", 0), 0, maxFloat)
	c.NumOfProducts = clamp(numericOr(rec, "NumOfProducts", 1), 1, 4)
	c.HasCrCard = flagOr(rec, "HasCrCard")
	c.IsActiveMember = flagOr(rec, "IsActiveMember")
	c.EstimatedSalary = numericOr(rec, "EstimatedSalary", defaultSalary)
	if c.EstimatedSalary < 0 {
		c.EstimatedSalary = defaultSalary
	}

	c.Geography = stringOr(rec, "Geography", "France")
	c.Gender = stringOr(rec, "Gender", "Male")
	return c, nil
}

const maxFloat = 1e308

func numericField(rec dataset.Record, name string) (float64, error) {
	v, ok := rec[name]
	if !ok || v.IsMissingLike() {
		return 0, errors.NewMissingColumnError("coerceCustomer", name)
	}
	f, ok := v.Float()
	if !ok {
		return 0, errors.NewValidationError(name, "not a number", v.Str)
	}
	return f, nil
}

func numericOr(rec dataset.Record, name string, fallback float64) float64 {
	if v, ok := rec[name]; ok {
		if f, ok := v.Float(); ok {
			return f
		}
	}
	return fallback
}

// flagOr reads a 0/1 field, treating anything else as 1.
func flagOr(rec dataset.Record, name string) float64 {
	f := numericOr(rec, name, 1)
	if f != 0 && f != 1 {
		return 1
	}
	return f
}

func stringOr(rec dataset.Record, name, fallback string) string {
	if v, ok := rec[name]; ok && v.Kind == dataset.String && !v.IsMissingLike() {
		return v.Str
	}
	return fallback
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
