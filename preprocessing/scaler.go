// Package preprocessing provides the feature transforms the pipelines run
// between cleaning and training: z-score standardisation and categorical
// one-hot expansion.
package preprocessing

import (
	"encoding/gob"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/banktools/bankml/core/model"
	bankmlErrors "github.com/banktools/bankml/pkg/errors"
)

// zeroVarianceFloor guards constant columns: any standard deviation below
// it is replaced by 1 so transformed values come out as 0, not NaN.
const zeroVarianceFloor = 1e-8

// StandardScaler standardises features to zero mean and unit variance.
// Statistics are computed by Fit, typically on the training split only,
// and reused verbatim by every later Transform.
type StandardScaler struct {
	model.BaseEstimator

	// Mean holds the per-feature means computed by Fit.
	Mean []float64
	// Scale holds the per-feature standard deviations computed by Fit,
	// with constant columns floored to 1.
	Scale []float64
	// NFeatures is the fitted feature count.
	NFeatures int
}

// NewStandardScaler creates an unfitted StandardScaler.
func NewStandardScaler() *StandardScaler {
	return &StandardScaler{}
}

// Fit computes per-feature mean and standard deviation from X
// (samples x features).
func (s *StandardScaler) Fit(x mat.Matrix) (err error) {
	defer bankmlErrors.Recover(&err, "StandardScaler.Fit")
	r, c := x.Dims()
	if r == 0 || c == 0 {
		return bankmlErrors.NewModelError("StandardScaler.Fit", "empty data", bankmlErrors.ErrEmptyData)
	}

	s.NFeatures = c
	s.Mean = make([]float64, c)
	s.Scale = make([]float64, c)

	for j := 0; j < c; j++ {
		sum := 0.0
		for i := 0; i < r; i++ {
			sum += x.At(i, j)
		}
		s.Mean[j] = sum / float64(r)
	}
	for j := 0; j < c; j++ {
		sumSquares := 0.0
		for i := 0; i < r; i++ {
			diff := x.At(i, j) - s.Mean[j]
			sumSquares += diff * diff
		}
		s.Scale[j] = math.Sqrt(sumSquares / float64(r))
		if s.Scale[j] < zeroVarianceFloor {
			s.Scale[j] = 1
		}
	}

	s.SetFitted()
	return nil
}

// Transform standardises X using the fitted statistics.
func (s *StandardScaler) Transform(x mat.Matrix) (_ *mat.Dense, err error) {
	defer bankmlErrors.Recover(&err, "StandardScaler.Transform")
	if !s.IsFitted() {
		return nil, bankmlErrors.NewNotFittedError("StandardScaler", "Transform")
	}
	r, c := x.Dims()
	if c != s.NFeatures {
		return nil, bankmlErrors.NewDimensionError("StandardScaler.Transform", s.NFeatures, c, 1)
	}

	out := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out.Set(i, j, (x.At(i, j)-s.Mean[j])/s.Scale[j])
		}
	}
	return out, nil
}

// FitTransform fits on X and returns the standardised result.
func (s *StandardScaler) FitTransform(x mat.Matrix) (*mat.Dense, error) {
	if err := s.Fit(x); err != nil {
		return nil, err
	}
	return s.Transform(x)
}

// InverseTransform maps standardised values back to the original scale.
func (s *StandardScaler) InverseTransform(x mat.Matrix) (_ *mat.Dense, err error) {
	defer bankmlErrors.Recover(&err, "StandardScaler.InverseTransform")
	if !s.IsFitted() {
		return nil, bankmlErrors.NewNotFittedError("StandardScaler", "InverseTransform")
	}
	r, c := x.Dims()
	if c != s.NFeatures {
		return nil, bankmlErrors.NewDimensionError("StandardScaler.InverseTransform", s.NFeatures, c, 1)
	}

	out := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out.Set(i, j, x.At(i, j)*s.Scale[j]+s.Mean[j])
		}
	}
	return out, nil
}

func init() {
	// Registered so pipeline states can embed the snapshot as an
	// interface field.
	gob.Register(&scalerState{})
}

// scalerState is the serialisable snapshot of a fitted scaler.
type scalerState struct {
	Mean      []float64
	Scale     []float64
	NFeatures int
	Fitted    bool
}

// ExportState returns a snapshot for persistence.
func (s *StandardScaler) ExportState() (interface{}, error) {
	return &scalerState{
		Mean:      append([]float64(nil), s.Mean...),
		Scale:     append([]float64(nil), s.Scale...),
		NFeatures: s.NFeatures,
		Fitted:    s.IsFitted(),
	}, nil
}

// ImportState restores a snapshot produced by ExportState.
func (s *StandardScaler) ImportState(state interface{}) error {
	st, ok := state.(*scalerState)
	if !ok {
		return bankmlErrors.NewValueError("StandardScaler.ImportState", "unexpected state type")
	}
	s.Mean = append([]float64(nil), st.Mean...)
	s.Scale = append([]float64(nil), st.Scale...)
	s.NFeatures = st.NFeatures
	if st.Fitted {
		s.SetFitted()
	} else {
		s.Reset()
	}
	return nil
}
