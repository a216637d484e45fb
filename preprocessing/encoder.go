package preprocessing

import (
	"fmt"
	"sort"

	"github.com/banktools/bankml/dataset"
	bankmlErrors "github.com/banktools/bankml/pkg/errors"
)

// EncodeCategorical replaces each listed column with one indicator column
// per observed category, named "<column>_<category>". Categories are
// emitted in sorted order and every category keeps its own column. Missing
// values encode as all zeros. Columns absent from ds are an error.
func EncodeCategorical(ds *dataset.Dataset, columns ...string) (*dataset.Dataset, error) {
	for _, col := range columns {
		if !ds.HasColumn(col) {
			return nil, bankmlErrors.NewMissingColumnError("EncodeCategorical", col)
		}
	}

	out := ds.Clone()
	for _, col := range columns {
		categories := observedCategories(out, col)
		for _, cat := range categories {
			indicator := make([]dataset.Value, out.NumRows())
			for i := 0; i < out.NumRows(); i++ {
				if categoryOf(out.At(i, col)) == cat {
					indicator[i] = dataset.Num(1)
				} else {
					indicator[i] = dataset.Num(0)
				}
			}
			out.AddColumn(col+"_"+cat, indicator)
		}
		out.DropColumns(col)
	}
	return out, nil
}

// observedCategories returns the sorted distinct non-missing categories
// of one column.
func observedCategories(ds *dataset.Dataset, col string) []string {
	seen := make(map[string]bool)
	for i := 0; i < ds.NumRows(); i++ {
		v := ds.At(i, col)
		if v.IsMissingLike() {
			continue
		}
		seen[categoryOf(v)] = true
	}
	out := make([]string, 0, len(seen))
	for cat := range seen {
		out = append(out, cat)
	}
	sort.Strings(out)
	return out
}

func categoryOf(v dataset.Value) string {
	if v.Kind == dataset.Number {
		return fmt.Sprintf("%g", v.Num)
	}
	return v.Str
}
