// Package features derives model inputs from raw banking columns. Each
// engineer appends columns to a copy of its input dataset; raw columns are
// kept so downstream selection stays explicit.
package features

import (
	"github.com/banktools/bankml/dataset"
	"github.com/banktools/bankml/pkg/errors"
)

// Bucket edges for the derived churn categories. A value v lands in code i
// when edges[i] <= v < edges[i+1]; values at or beyond the last edge take
// the final code.
var (
	ageGroupEdges   = []float64{0, 25, 35, 50, 65, 100}
	creditTierEdges = []float64{0, 580, 670, 740, 800, 850}
)

// Lifecycle stage codes derived from tenure.
const (
	LifecycleNew = iota
	LifecycleGrowing
	LifecycleMature
	LifecycleLoyal
)

// ChurnFeatureEngineer derives the engineered churn columns:
// BalanceToSalaryRatio, AgeGroup, CreditCategory, CustomerLifecycle and
// ProductUtilization. Stateless.
type ChurnFeatureEngineer struct{}

// NewChurnFeatureEngineer returns a ChurnFeatureEngineer.
func NewChurnFeatureEngineer() *ChurnFeatureEngineer { return &ChurnFeatureEngineer{} }

// Transform returns a copy of ds with the engineered columns appended.
// Required source columns: Balance, EstimatedSalary, Age, CreditScore,
// Tenure, NumOfProducts.
func (e *ChurnFeatureEngineer) Transform(ds *dataset.Dataset) (*dataset.Dataset, error) {
	required := []string{"Balance", "EstimatedSalary", "Age", "CreditScore", "Tenure", "NumOfProducts"}
	for _, col := range required {
		if !ds.HasColumn(col) {
			return nil, errors.NewMissingColumnError("ChurnFeatureEngineer.Transform", col)
		}
	}

	out := ds.Clone()
	n := out.NumRows()
	ratio := make([]dataset.Value, n)
	ageGroup := make([]dataset.Value, n)
	creditTier := make([]dataset.Value, n)
	lifecycle := make([]dataset.Value, n)
	utilization := make([]dataset.Value, n)

	for i := 0; i < n; i++ {
		balance, _ := out.At(i, "Balance").Float()
		salary, _ := out.At(i, "EstimatedSalary").Float()
		age, _ := out.At(i, "Age").Float()
		credit, _ := out.At(i, "CreditScore").Float()
		tenure, _ := out.At(i, "Tenure").Float()
		products, _ := out.At(i, "NumOfProducts").Float()

		// The +1 keeps zero salaries from dividing by zero.
		ratio[i] = dataset.Num(balance / (salary + 1))
		ageGroup[i] = dataset.Num(float64(bucketCode(age, ageGroupEdges)))
		creditTier[i] = dataset.Num(float64(bucketCode(credit, creditTierEdges)))
		lifecycle[i] = dataset.Num(float64(LifecycleStage(tenure)))
		if products > 0 {
			utilization[i] = dataset.Num(balance / products)
		} else {
			utilization[i] = dataset.Num(0)
		}
	}

	out.AddColumn("BalanceToSalaryRatio", ratio)
	out.AddColumn("AgeGroup", ageGroup)
	out.AddColumn("CreditCategory", creditTier)
	out.AddColumn("CustomerLifecycle", lifecycle)
	out.AddColumn("ProductUtilization", utilization)
	return out, nil
}

// LifecycleStage maps tenure in years to a lifecycle code.
func LifecycleStage(tenure float64) int {
	switch {
	case tenure < 2:
		return LifecycleNew
	case tenure < 5:
		return LifecycleGrowing
	case tenure < 10:
		return LifecycleMature
	default:
		return LifecycleLoyal
	}
}

// bucketCode returns the index of the half-open interval [edges[i],
// edges[i+1]) containing v. Values below the first edge take code 0,
// values at or above the last edge take the final code.
func bucketCode(v float64, edges []float64) int {
	last := len(edges) - 2
	for i := 1; i < len(edges)-1; i++ {
		if v < edges[i] {
			return i - 1
		}
	}
	return last
}
