// Package pipeline holds the plumbing shared by the churn and loan
// training pipelines: deterministic splitting, dataset-to-matrix
// conversion and prediction-time feature alignment.
package pipeline

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/banktools/bankml/dataset"
	bankmlErrors "github.com/banktools/bankml/pkg/errors"
)

// Split fractions for train/validation/test.
const (
	trainFraction      = 0.70
	validationFraction = 0.15
)

// SplitIndices partitions [0, n) into train, validation and test index
// sets (70/15/15) using a permutation seeded by seed. The same n and seed
// always produce the same split.
func SplitIndices(n int, seed uint64) (train, validation, test []int) {
	rng := rand.New(rand.NewPCG(seed, seed))
	perm := rng.Perm(n)
	trainEnd := int(float64(n) * trainFraction)
	valEnd := trainEnd + int(float64(n)*validationFraction)
	return perm[:trainEnd], perm[trainEnd:valEnd], perm[valEnd:]
}

// Subset returns the rows of ds at the given indices, in index order so
// the split order matches the permutation.
func Subset(ds *dataset.Dataset, indices []int) *dataset.Dataset {
	out := dataset.New(ds.Columns())
	for _, i := range indices {
		row := append([]dataset.Value(nil), ds.Row(i)...)
		_ = out.Append(row)
	}
	return out
}

// ToMatrix converts the named feature columns of ds into a dense matrix,
// one row per dataset row. Non-numeric or missing cells become 0.
func ToMatrix(ds *dataset.Dataset, features []string) (*mat.Dense, error) {
	if ds.NumRows() == 0 || len(features) == 0 {
		return nil, bankmlErrors.NewValueError("pipeline.ToMatrix", "empty dataset or feature list")
	}
	for _, f := range features {
		if !ds.HasColumn(f) {
			return nil, bankmlErrors.NewMissingColumnError("pipeline.ToMatrix", f)
		}
	}
	out := mat.NewDense(ds.NumRows(), len(features), nil)
	for i := 0; i < ds.NumRows(); i++ {
		for j, f := range features {
			if v, ok := ds.At(i, f).Float(); ok {
				out.Set(i, j, v)
			}
		}
	}
	return out, nil
}

// Labels extracts the named column as a float slice, with non-numeric
// cells as 0.
func Labels(ds *dataset.Dataset, target string) ([]float64, error) {
	if !ds.HasColumn(target) {
		return nil, bankmlErrors.NewMissingColumnError("pipeline.Labels", target)
	}
	out := make([]float64, ds.NumRows())
	for i := range out {
		if v, ok := ds.At(i, target).Float(); ok {
			out[i] = v
		}
	}
	return out, nil
}

// AlignRow maps row i of ds onto the training feature order: features
// missing from ds (for example one-hot categories not present in this
// record) become 0 and extra columns are dropped.
func AlignRow(ds *dataset.Dataset, i int, features []string) []float64 {
	out := make([]float64, len(features))
	for j, f := range features {
		if !ds.HasColumn(f) {
			continue
		}
		if v, ok := ds.At(i, f).Float(); ok {
			out[j] = v
		}
	}
	return out
}
