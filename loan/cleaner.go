// Package loan implements the loan-approval pipeline: applicant form
// conversion, cleaning, feature engineering, training and per-application
// scoring with approval recommendations.
package loan

import (
	"fmt"
	"sort"

	"github.com/banktools/bankml/dataset"
)

// Columns filled with the mode when missing.
var modeFilled = []string{"Gender", "Married", "Dependents", "Self_Employed", "Credit_History"}

// Columns filled with the median when missing.
var medianFilled = []string{"LoanAmount", "Loan_Amount_Term"}

// CleanApplications normalises raw loan application data in place on a
// copy: categorical gaps take the column mode, numeric gaps the column
// median, and the "3+" dependents bucket becomes the number 3.
func CleanApplications(ds *dataset.Dataset) *dataset.Dataset {
	out := ds.Clone()

	if out.HasColumn("Dependents") {
		for i := 0; i < out.NumRows(); i++ {
			v := out.At(i, "Dependents")
			if v.Kind == dataset.String {
				if v.Str == "3+" {
					out.Set(i, "Dependents", dataset.Num(3))
				} else if f, ok := v.Float(); ok {
					out.Set(i, "Dependents", dataset.Num(f))
				}
			}
		}
	}

	for _, col := range modeFilled {
		if !out.HasColumn(col) {
			continue
		}
		fill, ok := columnMode(out, col)
		if !ok {
			continue
		}
		for i := 0; i < out.NumRows(); i++ {
			if out.At(i, col).IsMissingLike() {
				out.Set(i, col, fill)
			}
		}
	}

	for _, col := range medianFilled {
		if !out.HasColumn(col) {
			continue
		}
		fill, ok := columnMedian(out, col)
		if !ok {
			continue
		}
		for i := 0; i < out.NumRows(); i++ {
			if out.At(i, col).IsMissingLike() {
				out.Set(i, col, dataset.Num(fill))
			}
		}
	}

	// Unreadable dependents after mode fill default to 0.
	if out.HasColumn("Dependents") {
		for i := 0; i < out.NumRows(); i++ {
			if _, ok := out.At(i, "Dependents").Float(); !ok {
				out.Set(i, "Dependents", dataset.Num(0))
			}
		}
	}
	return out
}

func columnMode(ds *dataset.Dataset, col string) (dataset.Value, bool) {
	counts := map[string]int{}
	values := map[string]dataset.Value{}
	for i := 0; i < ds.NumRows(); i++ {
		v := ds.At(i, col)
		if v.IsMissingLike() {
			continue
		}
		key := cellKey(v)
		counts[key]++
		values[key] = v
	}
	bestKey, bestCount := "", 0
	for key, n := range counts {
		if n > bestCount || (n == bestCount && key < bestKey) {
			bestKey, bestCount = key, n
		}
	}
	if bestCount == 0 {
		return dataset.NA(), false
	}
	return values[bestKey], true
}

func columnMedian(ds *dataset.Dataset, col string) (float64, bool) {
	var vals []float64
	for i := 0; i < ds.NumRows(); i++ {
		v := ds.At(i, col)
		if v.IsMissingLike() {
			continue
		}
		if f, ok := v.Float(); ok {
			vals = append(vals, f)
		}
	}
	if len(vals) == 0 {
		return 0, false
	}
	sort.Float64s(vals)
	mid := len(vals) / 2
	if len(vals)%2 == 1 {
		return vals[mid], true
	}
	return (vals[mid-1] + vals[mid]) / 2, true
}

func cellKey(v dataset.Value) string {
	if v.Kind == dataset.Number {
		return fmt.Sprintf("n%g", v.Num)
	}
	return "s" + v.Str
}
