// Package cleaning implements the sequential cleaning pipeline applied
// before feature engineering: degenerate row/column removal, missing-value
// canonicalisation, imputation and optional IQR outlier trimming.
//
// Data-quality problems are absorbed and reported, never raised as errors.
// Re-running the standard pipeline on its own output is a no-op.
package cleaning

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/banktools/bankml/dataset"
	"github.com/banktools/bankml/pkg/log"
	"github.com/banktools/bankml/quality"
)

const (
	// modeMissingRate is the missing-rate above which numeric imputation
	// falls back to the mode instead of mean/median.
	modeMissingRate = 0.30
	// skewedThreshold is the |skewness| above which the median replaces
	// the mean as the numeric fill value.
	skewedThreshold = 1.0
	// maxOutlierShare caps per-column outlier removal: if the IQR fences
	// would drop at least this fraction of rows, the column is skipped.
	maxOutlierShare = 0.05
)

// Config controls a cleaning run.
type Config struct {
	// TargetColumn is protected from column removal and imputation.
	TargetColumn string
	// Aggressive enables IQR outlier row removal. Callers set it when the
	// upstream quality score is poor.
	Aggressive bool
	// OutlierK is the IQR fence multiplier: 1.5 for the lightweight path,
	// 3.0 for the conservative path. Zero means 1.5.
	OutlierK float64
}

// Imputation records one column fill.
type Imputation struct {
	Column    string
	Method    string
	FillValue string
	Count     int
}

// Report describes what a cleaning run did.
type Report struct {
	OriginalRows, OriginalCols int
	FinalRows, FinalCols       int

	RowsRemoved        int
	ColumnsRemoved     int
	ValuesReplaced     int
	ValuesImputed      int
	OutlierRowsRemoved int

	Steps       []string
	Imputations []Imputation

	RowRetention            float64
	ColumnRetention         float64
	OriginalCompleteness    float64
	FinalCompleteness       float64
	CompletenessImprovement float64

	// QuickScore is the lightweight 70/30 completeness/uniqueness score
	// of the cleaned data.
	QuickScore float64
}

// Cleaner runs the cleaning pipeline. Stateless and safe to share.
type Cleaner struct{}

// NewCleaner returns a Cleaner.
func NewCleaner() *Cleaner { return &Cleaner{} }

// Clean runs the pipeline on a copy of ds and returns the cleaned dataset
// with a report. The input is never mutated.
func (c *Cleaner) Clean(ds *dataset.Dataset, cfg Config) (*dataset.Dataset, *Report) {
	logger := log.GetLoggerWithName("DataCleaner")
	rep := &Report{
		OriginalRows: ds.NumRows(),
		OriginalCols: ds.NumCols(),
	}
	rep.OriginalCompleteness = completeness(ds)
	out := ds.Clone()

	// Step 1: drop rows and columns that are entirely missing.
	before := out.NumRows()
	out = out.Filter(func(i int) bool {
		for _, v := range out.Row(i) {
			if !v.IsMissingLike() {
				return true
			}
		}
		return false
	})
	if n := before - out.NumRows(); n > 0 {
		rep.RowsRemoved += n
		rep.Steps = append(rep.Steps, fmt.Sprintf("Removed %d completely empty rows", n))
	}

	var emptyCols []string
	for _, col := range out.Columns() {
		if col == cfg.TargetColumn {
			continue
		}
		empty := true
		for i := 0; i < out.NumRows(); i++ {
			if !out.At(i, col).IsMissingLike() {
				empty = false
				break
			}
		}
		if empty && out.NumRows() > 0 {
			emptyCols = append(emptyCols, col)
		}
	}
	if len(emptyCols) > 0 {
		out.DropColumns(emptyCols...)
		rep.ColumnsRemoved += len(emptyCols)
		rep.Steps = append(rep.Steps, fmt.Sprintf("Removed %d completely empty columns", len(emptyCols)))
	}

	// Steps 2-3: canonicalise placeholder strings and non-finite numbers.
	for _, col := range out.Columns() {
		replaced := 0
		for i := 0; i < out.NumRows(); i++ {
			v := out.At(i, col)
			if v.IsMissing() || !v.IsMissingLike() {
				continue
			}
			out.Set(i, col, dataset.NA())
			replaced++
		}
		if replaced > 0 {
			rep.ValuesReplaced += replaced
			rep.Steps = append(rep.Steps,
				fmt.Sprintf("Replaced %d missing-value placeholders in %s", replaced, col))
		}
	}

	// Step 4: impute remaining missing values.
	for _, col := range out.Columns() {
		if col == cfg.TargetColumn {
			continue
		}
		imp := c.imputeColumn(out, col)
		if imp == nil {
			continue
		}
		rep.ValuesImputed += imp.Count
		rep.Imputations = append(rep.Imputations, *imp)
		rep.Steps = append(rep.Steps,
			fmt.Sprintf("Imputed %d values in %s using %s (%s)", imp.Count, col, imp.Method, imp.FillValue))
		logger.Debug().Str("column", col).Str("method", imp.Method).
			Int("count", imp.Count).Msg("imputed missing values")
	}

	// Step 5: optional outlier removal.
	if cfg.Aggressive && out.NumRows() > 0 {
		k := cfg.OutlierK
		if k == 0 {
			k = 1.5
		}
		removed := c.removeOutliers(out, cfg.TargetColumn, k, rep)
		out = removed
	}

	// Step 6: numeric storage narrowing. Representation only; recorded
	// for report parity, values are untouched.
	rep.Steps = append(rep.Steps, "Optimized numeric storage widths")

	rep.FinalRows = out.NumRows()
	rep.FinalCols = out.NumCols()
	rep.FinalCompleteness = completeness(out)
	rep.CompletenessImprovement = rep.FinalCompleteness - rep.OriginalCompleteness
	if rep.OriginalRows > 0 {
		rep.RowRetention = float64(rep.FinalRows) / float64(rep.OriginalRows) * 100
	}
	if rep.OriginalCols > 0 {
		rep.ColumnRetention = float64(rep.FinalCols) / float64(rep.OriginalCols) * 100
	}
	rep.QuickScore = quickScore(out)

	logger.Info().
		Int("rows", rep.FinalRows).Int("cols", rep.FinalCols).
		Int("rows_removed", rep.RowsRemoved+rep.OutlierRowsRemoved).
		Int("values_imputed", rep.ValuesImputed).
		Float64("completeness", rep.FinalCompleteness).
		Msg("cleaning completed")
	return out, rep
}

// imputeColumn fills missing cells in one column and reports the method
// used, or nil when nothing was missing.
func (c *Cleaner) imputeColumn(ds *dataset.Dataset, col string) *Imputation {
	missing := 0
	for i := 0; i < ds.NumRows(); i++ {
		if ds.At(i, col).IsMissing() {
			missing++
		}
	}
	if missing == 0 || ds.NumRows() == 0 {
		return nil
	}
	missingRate := float64(missing) / float64(ds.NumRows())

	if ds.IsNumericColumn(col) {
		vals := observedNumbers(ds, col)
		if len(vals) == 0 {
			return nil
		}
		var fill float64
		var method string
		switch {
		case missingRate > modeMissingRate:
			fill = numericMode(vals)
			method = "mode"
		case math.Abs(stat.Skew(vals, nil)) > skewedThreshold:
			fill = median(vals)
			method = "median"
		default:
			fill = stat.Mean(vals, nil)
			method = "mean"
		}
		for i := 0; i < ds.NumRows(); i++ {
			if ds.At(i, col).IsMissing() {
				ds.Set(i, col, dataset.Num(fill))
			}
		}
		return &Imputation{Column: col, Method: method, FillValue: fmt.Sprintf("%.2f", fill), Count: missing}
	}

	fill, ok := stringMode(ds, col)
	if !ok {
		return nil
	}
	for i := 0; i < ds.NumRows(); i++ {
		if ds.At(i, col).IsMissing() {
			ds.Set(i, col, dataset.Str(fill))
		}
	}
	return &Imputation{Column: col, Method: "mode", FillValue: fill, Count: missing}
}

// removeOutliers drops rows outside the IQR fences of any numeric column.
// A column is skipped when trimming it alone would drop at least
// maxOutlierShare of the rows.
func (c *Cleaner) removeOutliers(ds *dataset.Dataset, target string, k float64, rep *Report) *dataset.Dataset {
	drop := make([]bool, ds.NumRows())
	for _, col := range ds.Columns() {
		if col == target || !ds.IsNumericColumn(col) {
			continue
		}
		vals := observedNumbers(ds, col)
		if len(vals) == 0 {
			continue
		}
		lower, upper := quality.IQRBounds(vals, k)
		flagged := 0
		for i := 0; i < ds.NumRows(); i++ {
			if f, ok := ds.At(i, col).Float(); ok && (f < lower || f > upper) {
				flagged++
			}
		}
		if float64(flagged) >= maxOutlierShare*float64(ds.NumRows()) {
			rep.Steps = append(rep.Steps,
				fmt.Sprintf("Skipped outlier removal for %s (would remove %d rows)", col, flagged))
			continue
		}
		for i := 0; i < ds.NumRows(); i++ {
			if f, ok := ds.At(i, col).Float(); ok && (f < lower || f > upper) {
				drop[i] = true
			}
		}
	}
	removed := 0
	out := ds.Filter(func(i int) bool {
		if drop[i] {
			removed++
			return false
		}
		return true
	})
	if removed > 0 {
		rep.OutlierRowsRemoved = removed
		rep.Steps = append(rep.Steps, fmt.Sprintf("Removed %d outlier rows", removed))
	}
	return out
}

func completeness(ds *dataset.Dataset) float64 {
	total := ds.NumRows() * ds.NumCols()
	if total == 0 {
		return 100
	}
	missing := 0
	for i := 0; i < ds.NumRows(); i++ {
		for _, v := range ds.Row(i) {
			if v.IsMissingLike() {
				missing++
			}
		}
	}
	return float64(total-missing) / float64(total) * 100
}

// quickScore is the lightweight quality score of cleaned data:
// 70% completeness, 30% row uniqueness.
func quickScore(ds *dataset.Dataset) float64 {
	if ds.NumRows() == 0 || ds.NumCols() == 0 {
		return 0
	}
	comp := completeness(ds) / 100
	dupes := 0
	seen := make(map[string]bool, ds.NumRows())
	for i := 0; i < ds.NumRows(); i++ {
		sig := ""
		for _, v := range ds.Row(i) {
			switch v.Kind {
			case dataset.Number:
				sig += fmt.Sprintf("n%g\x1f", v.Num)
			case dataset.String:
				sig += "s" + v.Str + "\x1f"
			default:
				sig += "m\x1f"
			}
		}
		if seen[sig] {
			dupes++
		}
		seen[sig] = true
	}
	uniq := 1 - float64(dupes)/float64(ds.NumRows())
	return math.Min(100, comp*70+uniq*30)
}

func observedNumbers(ds *dataset.Dataset, col string) []float64 {
	var out []float64
	for i := 0; i < ds.NumRows(); i++ {
		v := ds.At(i, col)
		if v.IsMissingLike() {
			continue
		}
		if f, ok := v.Float(); ok {
			out = append(out, f)
		}
	}
	return out
}

// median returns the middle element, or the mean of the two middles for
// an even count.
func median(vals []float64) float64 {
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// numericMode returns the most frequent value, preferring the smallest on
// ties so imputation stays deterministic.
func numericMode(vals []float64) float64 {
	counts := make(map[float64]int, len(vals))
	for _, v := range vals {
		counts[v]++
	}
	best, bestCount := math.Inf(1), 0
	for v, n := range counts {
		if n > bestCount || (n == bestCount && v < best) {
			best, bestCount = v, n
		}
	}
	return best
}

// stringMode returns the most frequent observed string, preferring the
// lexicographically smallest on ties.
func stringMode(ds *dataset.Dataset, col string) (string, bool) {
	counts := make(map[string]int)
	for i := 0; i < ds.NumRows(); i++ {
		v := ds.At(i, col)
		if v.Kind == dataset.String && !v.IsMissingLike() {
			counts[v.Str]++
		}
	}
	best, bestCount := "", 0
	for s, n := range counts {
		if n > bestCount || (n == bestCount && s < best) {
			best, bestCount = s, n
		}
	}
	return best, bestCount > 0
}
