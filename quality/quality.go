// Package quality implements read-only data quality assessment for tabular
// datasets: completeness, consistency, validity against declared rules,
// uniqueness, and outlier statistics, composed into a weighted overall
// score with a letter grade and textual recommendations.
//
// All operations are pure; the dataset is never mutated. Data-quality
// findings are reported, not raised as errors.
package quality

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/banktools/bankml/dataset"
)

// Dimension weights for the overall score.
const (
	completenessWeight = 0.30
	consistencyWeight  = 0.25
	validityWeight     = 0.25
	uniquenessWeight   = 0.20
)

// Per-column penalties applied by the consistency assessment.
const (
	mixedTypePenalty    = 5.0
	caseVariantPenalty  = 3.0
	dominancePenalty    = 4.0
	zeroHeavyPenalty    = 2.0
	dominanceThreshold  = 0.30
	zeroHeavyThreshold  = 0.10
)

// CompletenessReport summarises missing cells across the dataset.
type CompletenessReport struct {
	TotalCells         int
	MissingCells       int
	Percentage         float64
	MissingByColumn    map[string]int
	ColumnsWithMissing []string
}

// ConsistencyReport lists representation problems and the resulting score.
type ConsistencyReport struct {
	Score  float64
	Issues []string
}

// ValidityReport summarises rule violations.
type ValidityReport struct {
	Percentage    float64
	Issues        []string
	TotalChecked  int
	InvalidValues int
}

// UniquenessReport summarises duplicate rows and column cardinality.
type UniquenessReport struct {
	DuplicateRows     int
	Percentage        float64
	ColumnUniqueness  map[string]float64
}

// OutlierStats holds the IQR outlier assessment for one numeric column.
type OutlierStats struct {
	Count      int
	Percentage float64
	LowerBound float64
	UpperBound float64
}

// Overall is the weighted composite score, grade and recommendations.
type Overall struct {
	Score           float64
	Grade           string
	Recommendations []string
}

// Report is the full quality snapshot for a dataset.
type Report struct {
	Completeness CompletenessReport
	Consistency  ConsistencyReport
	Validity     ValidityReport
	Uniqueness   UniquenessReport
	Outliers     map[string]OutlierStats
	Overall      Overall
}

// Assessor computes quality reports. It is stateless and safe to share.
type Assessor struct{}

// NewAssessor returns an Assessor.
func NewAssessor() *Assessor { return &Assessor{} }

// AssessCompleteness counts missing cells under the extended vocabulary:
// canonical missing markers, placeholder strings, and non-finite numbers.
func (a *Assessor) AssessCompleteness(ds *dataset.Dataset) CompletenessReport {
	rep := CompletenessReport{
		MissingByColumn: make(map[string]int, ds.NumCols()),
	}
	rep.TotalCells = ds.NumRows() * ds.NumCols()
	for _, col := range ds.Columns() {
		n := 0
		for i := 0; i < ds.NumRows(); i++ {
			if ds.At(i, col).IsMissingLike() {
				n++
			}
		}
		rep.MissingByColumn[col] = n
		rep.MissingCells += n
		if n > 0 {
			rep.ColumnsWithMissing = append(rep.ColumnsWithMissing, col)
		}
	}
	if rep.TotalCells == 0 {
		rep.Percentage = 100
		return rep
	}
	rep.Percentage = float64(rep.TotalCells-rep.MissingCells) / float64(rep.TotalCells) * 100
	return rep
}

// AssessConsistency flags columns with mixed representable types,
// case/whitespace variants of the same category, and numeric columns
// dominated by a single repeated value or by zeros, which usually signal
// placeholder contamination. The score starts at 100 and each finding
// subtracts its penalty.
func (a *Assessor) AssessConsistency(ds *dataset.Dataset) ConsistencyReport {
	rep := ConsistencyReport{Score: 100}

	for _, col := range ds.Columns() {
		numbers, strs := 0, 0
		counts := make(map[string]int)
		folded := make(map[string]map[string]bool)
		zeros, nonMissing := 0, 0
		topCount := 0

		for i := 0; i < ds.NumRows(); i++ {
			v := ds.At(i, col)
			if v.IsMissingLike() {
				continue
			}
			nonMissing++
			if f, ok := v.Float(); ok {
				numbers++
				if f == 0 {
					zeros++
				}
				key := fmt.Sprintf("%g", f)
				counts[key]++
				if counts[key] > topCount {
					topCount = counts[key]
				}
				continue
			}
			strs++
			key := strings.ToLower(strings.TrimSpace(v.Str))
			if folded[key] == nil {
				folded[key] = make(map[string]bool)
			}
			folded[key][v.Str] = true
		}
		if nonMissing == 0 {
			continue
		}

		if numbers > 0 && strs > 0 {
			rep.Issues = append(rep.Issues,
				fmt.Sprintf("mixed numeric and string values in column %q", col))
			rep.Score -= mixedTypePenalty
		}
		for _, variants := range folded {
			if len(variants) > 1 {
				rep.Issues = append(rep.Issues,
					fmt.Sprintf("case or spacing variants of the same category in column %q", col))
				rep.Score -= caseVariantPenalty
				break
			}
		}
		if strs == 0 && numbers > 0 {
			if frac := float64(topCount) / float64(nonMissing); topCount > 1 && frac > dominanceThreshold && len(counts) > 1 {
				rep.Issues = append(rep.Issues,
					fmt.Sprintf("column %q dominated by a single repeated value (%.0f%%)", col, frac*100))
				rep.Score -= dominancePenalty
			}
			if frac := float64(zeros) / float64(nonMissing); frac > zeroHeavyThreshold {
				rep.Issues = append(rep.Issues,
					fmt.Sprintf("column %q has a high share of zeros (%.0f%%)", col, frac*100))
				rep.Score -= zeroHeavyPenalty
			}
		}
	}
	if rep.Score < 0 {
		rep.Score = 0
	}
	return rep
}

// AssessValidity counts values violating their column's rule. Columns
// without a rule are skipped; missing-like cells are not checked.
func (a *Assessor) AssessValidity(ds *dataset.Dataset, rules RuleSet) ValidityReport {
	rep := ValidityReport{}
	cols := append([]string(nil), ds.Columns()...)
	sort.Strings(cols)

	for _, col := range cols {
		rule, ok := rules[col]
		if !ok {
			continue
		}
		invalid := 0
		for i := 0; i < ds.NumRows(); i++ {
			v := ds.At(i, col)
			if v.IsMissingLike() {
				continue
			}
			rep.TotalChecked++
			switch rule.Kind {
			case Numeric:
				f, ok := v.Float()
				if !ok {
					invalid++
					continue
				}
				if (rule.Min != nil && f < *rule.Min) || (rule.Max != nil && f > *rule.Max) {
					invalid++
				}
			case Categorical:
				if v.Kind != dataset.String || !contains(rule.AllowedValues, v.Str) {
					invalid++
				}
			}
		}
		if invalid > 0 {
			rep.Issues = append(rep.Issues,
				fmt.Sprintf("%d invalid values in column %q", invalid, col))
			rep.InvalidValues += invalid
		}
	}
	if rep.TotalChecked == 0 {
		rep.Percentage = 100
		return rep
	}
	rep.Percentage = float64(rep.TotalChecked-rep.InvalidValues) / float64(rep.TotalChecked) * 100
	return rep
}

// AssessUniqueness measures the duplicate-row fraction and per-column
// cardinality ratios.
func (a *Assessor) AssessUniqueness(ds *dataset.Dataset) UniquenessReport {
	rep := UniquenessReport{
		ColumnUniqueness: make(map[string]float64, ds.NumCols()),
	}
	seen := make(map[string]bool, ds.NumRows())
	for i := 0; i < ds.NumRows(); i++ {
		sig := rowSignature(ds.Row(i))
		if seen[sig] {
			rep.DuplicateRows++
		}
		seen[sig] = true
	}
	if ds.NumRows() == 0 {
		rep.Percentage = 100
	} else {
		rep.Percentage = float64(ds.NumRows()-rep.DuplicateRows) / float64(ds.NumRows()) * 100
	}
	for _, col := range ds.Columns() {
		uniq := make(map[string]bool)
		nonMissing := 0
		for i := 0; i < ds.NumRows(); i++ {
			v := ds.At(i, col)
			if v.IsMissingLike() {
				continue
			}
			nonMissing++
			uniq[cellSignature(v)] = true
		}
		if nonMissing == 0 {
			rep.ColumnUniqueness[col] = 100
		} else {
			rep.ColumnUniqueness[col] = float64(len(uniq)) / float64(nonMissing) * 100
		}
	}
	return rep
}

// AssessOutliers reports IQR-rule outlier statistics (k=1.5) for every
// numeric column. Informational only; removal is the cleaner's job.
func (a *Assessor) AssessOutliers(ds *dataset.Dataset) map[string]OutlierStats {
	out := make(map[string]OutlierStats)
	for _, col := range ds.Columns() {
		if !ds.IsNumericColumn(col) {
			continue
		}
		vals := numericColumn(ds, col)
		if len(vals) == 0 {
			continue
		}
		lower, upper := IQRBounds(vals, 1.5)
		n := 0
		for _, f := range vals {
			if f < lower || f > upper {
				n++
			}
		}
		out[col] = OutlierStats{
			Count:      n,
			Percentage: float64(n) / float64(len(vals)) * 100,
			LowerBound: lower,
			UpperBound: upper,
		}
	}
	return out
}

// GenerateQualityReport composes all assessments into a weighted overall
// score, letter grade and recommendation list.
func (a *Assessor) GenerateQualityReport(ds *dataset.Dataset, rules RuleSet) *Report {
	rep := &Report{
		Completeness: a.AssessCompleteness(ds),
		Consistency:  a.AssessConsistency(ds),
		Validity:     a.AssessValidity(ds, rules),
		Uniqueness:   a.AssessUniqueness(ds),
		Outliers:     a.AssessOutliers(ds),
	}

	score := rep.Completeness.Percentage*completenessWeight +
		rep.Consistency.Score*consistencyWeight +
		rep.Validity.Percentage*validityWeight +
		rep.Uniqueness.Percentage*uniquenessWeight

	var recs []string
	if rep.Completeness.Percentage < 95 {
		recs = append(recs, "Address missing values through imputation or data collection")
	}
	if rep.Consistency.Score < 90 {
		recs = append(recs, "Standardize data formats and resolve inconsistencies")
	}
	if rep.Validity.Percentage < 95 {
		recs = append(recs, "Validate and correct out-of-range or invalid values")
	}
	if rep.Uniqueness.Percentage < 95 {
		recs = append(recs, "Remove duplicate records")
	}

	rep.Overall = Overall{Score: score, Grade: GradeFor(score), Recommendations: recs}
	return rep
}

// GradeFor maps a 0-100 score to a letter grade.
func GradeFor(score float64) string {
	switch {
	case score >= 95:
		return "A+"
	case score >= 90:
		return "A"
	case score >= 80:
		return "B"
	case score >= 70:
		return "C"
	case score >= 60:
		return "D"
	default:
		return "F"
	}
}

// IQRBounds returns the [Q1 - k*IQR, Q3 + k*IQR] fences for vals.
// Quantiles interpolate linearly at rank (n-1)*p on a sorted copy, so the
// 0.5 quantile is the standard median.
func IQRBounds(vals []float64, k float64) (lower, upper float64) {
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	q1 := Quantile(sorted, 0.25)
	q3 := Quantile(sorted, 0.75)
	iqr := q3 - q1
	return q1 - k*iqr, q3 + k*iqr
}

// Quantile returns the p-th quantile of sorted, interpolating linearly
// between the values at ranks floor((n-1)p) and ceil((n-1)p). sorted must
// be non-empty and in ascending order.
func Quantile(sorted []float64, p float64) float64 {
	pos := p * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

func numericColumn(ds *dataset.Dataset, col string) []float64 {
	var out []float64
	for i := 0; i < ds.NumRows(); i++ {
		v := ds.At(i, col)
		if v.IsMissingLike() {
			continue
		}
		if f, ok := v.Float(); ok && !math.IsNaN(f) && !math.IsInf(f, 0) {
			out = append(out, f)
		}
	}
	return out
}

func rowSignature(row []dataset.Value) string {
	var b strings.Builder
	for _, v := range row {
		b.WriteString(cellSignature(v))
		b.WriteByte('\x1f')
	}
	return b.String()
}

func cellSignature(v dataset.Value) string {
	switch v.Kind {
	case dataset.Number:
		return "n:" + fmt.Sprintf("%g", v.Num)
	case dataset.String:
		return "s:" + v.Str
	}
	return "m"
}

func contains(values []string, s string) bool {
	for _, v := range values {
		if v == s {
			return true
		}
	}
	return false
}
