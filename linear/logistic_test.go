package linear_test

import (
	"bytes"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/banktools/bankml/core/model"
	"github.com/banktools/bankml/linear"
	bankmlErrors "github.com/banktools/bankml/pkg/errors"
	"github.com/cockroachdb/errors"
)

func TestLogisticRegressionLearnsANDGate(t *testing.T) {
	x := mat.NewDense(4, 2, []float64{
		0, 0,
		0, 1,
		1, 0,
		1, 1,
	})
	y := []float64{0, 0, 0, 1}

	clf := linear.NewLogisticRegression(
		linear.WithLearningRate(0.5),
		linear.WithMaxIterations(5000),
		linear.WithTolerance(1e-10),
	)
	if err := clf.Fit(x, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	preds, err := clf.Predict(x)
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	for i, want := range y {
		if preds[i] != want {
			t.Errorf("sample %d: predicted %g, want %g", i, preds[i], want)
		}
	}
}

func TestLogisticRegressionCostDecreases(t *testing.T) {
	x := mat.NewDense(6, 1, []float64{-2, -1, -0.5, 0.5, 1, 2})
	y := []float64{0, 0, 0, 1, 1, 1}

	clf := linear.NewLogisticRegression(linear.WithMaxIterations(200))
	if err := clf.Fit(x, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	history := clf.CostHistory()
	if len(history) == 0 {
		t.Fatal("cost history is empty")
	}
	if len(history) != clf.NIter() {
		t.Errorf("cost history length %d does not match iterations %d", len(history), clf.NIter())
	}
	if first, last := history[0], history[len(history)-1]; last >= first {
		t.Errorf("cost did not decrease: first %g, last %g", first, last)
	}
}

func TestLogisticRegressionEarlyStopping(t *testing.T) {
	x := mat.NewDense(4, 1, []float64{-1, -0.5, 0.5, 1})
	y := []float64{0, 0, 1, 1}

	clf := linear.NewLogisticRegression(
		linear.WithMaxIterations(10000),
		linear.WithTolerance(1e-3),
	)
	if err := clf.Fit(x, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	if clf.NIter() >= 10000 {
		t.Errorf("expected early stopping, ran all %d iterations", clf.NIter())
	}
}

func TestLogisticRegressionDeterministicWithSeed(t *testing.T) {
	x := mat.NewDense(4, 2, []float64{0, 0, 0, 1, 1, 0, 1, 1})
	y := []float64{0, 1, 1, 1}

	train := func() []float64 {
		clf := linear.NewLogisticRegression(linear.WithSeed(7), linear.WithMaxIterations(100))
		if err := clf.Fit(x, y); err != nil {
			t.Fatalf("Fit failed: %v", err)
		}
		probs, err := clf.PredictProba(x)
		if err != nil {
			t.Fatalf("PredictProba failed: %v", err)
		}
		return probs
	}

	a, b := train(), train()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("probabilities differ between identical runs: %g vs %g", a[i], b[i])
		}
	}
}

func TestLogisticRegressionPredictBeforeFit(t *testing.T) {
	clf := linear.NewLogisticRegression()
	x := mat.NewDense(1, 2, []float64{1, 2})

	if _, err := clf.Predict(x); !errors.Is(err, bankmlErrors.ErrNotFitted) {
		t.Errorf("expected ErrNotFitted, got %v", err)
	}
	if _, err := clf.PredictProba(x); !errors.Is(err, bankmlErrors.ErrNotFitted) {
		t.Errorf("expected ErrNotFitted, got %v", err)
	}
}

func TestLogisticRegressionInvalidInputs(t *testing.T) {
	clf := linear.NewLogisticRegression()

	x := mat.NewDense(2, 1, []float64{1, 2})
	if err := clf.Fit(x, []float64{0, 2}); !errors.Is(err, bankmlErrors.ErrInvalidInput) {
		t.Errorf("non-binary labels: expected ErrInvalidInput, got %v", err)
	}
	if err := clf.Fit(x, []float64{0}); !errors.Is(err, bankmlErrors.ErrDimensionMismatch) {
		t.Errorf("label length mismatch: expected ErrDimensionMismatch, got %v", err)
	}

	if err := clf.Fit(x, []float64{0, 1}); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	wide := mat.NewDense(1, 3, []float64{1, 2, 3})
	if _, err := clf.Predict(wide); !errors.Is(err, bankmlErrors.ErrDimensionMismatch) {
		t.Errorf("width mismatch: expected ErrDimensionMismatch, got %v", err)
	}
}

func TestLogisticRegressionWeightedFit(t *testing.T) {
	// Overlapping point at x=0 labelled both ways; weights decide the side.
	x := mat.NewDense(4, 1, []float64{-1, 0, 0, 1})
	y := []float64{0, 0, 1, 1}

	clf := linear.NewLogisticRegression(linear.WithMaxIterations(2000), linear.WithLearningRate(0.5))
	if err := clf.FitWeighted(x, y, []float64{1, 0.1, 10, 1}); err != nil {
		t.Fatalf("FitWeighted failed: %v", err)
	}
	probs, err := clf.PredictProba(mat.NewDense(1, 1, []float64{0}))
	if err != nil {
		t.Fatalf("PredictProba failed: %v", err)
	}
	if probs[0] <= 0.5 {
		t.Errorf("heavily weighted positive sample should pull probability above 0.5, got %g", probs[0])
	}

	if err := clf.FitWeighted(x, y, []float64{1, 1}); !errors.Is(err, bankmlErrors.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch for short weights, got %v", err)
	}
	if err := clf.FitWeighted(x, y, []float64{-1, 1, 1, 1}); !errors.Is(err, bankmlErrors.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for negative weights, got %v", err)
	}
}

func TestLogisticRegressionSaveLoadRoundTrip(t *testing.T) {
	x := mat.NewDense(4, 2, []float64{0, 0, 0, 1, 1, 0, 1, 1})
	y := []float64{0, 0, 0, 1}

	clf := linear.NewLogisticRegression(linear.WithMaxIterations(500))
	if err := clf.Fit(x, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	original, err := clf.PredictProba(x)
	if err != nil {
		t.Fatalf("PredictProba failed: %v", err)
	}

	var buf bytes.Buffer
	if err := model.SaveModelToWriter(clf, &buf); err != nil {
		t.Fatalf("SaveModelToWriter failed: %v", err)
	}

	loaded := linear.NewLogisticRegression()
	if err := model.LoadModelFromReader(loaded, &buf); err != nil {
		t.Fatalf("LoadModelFromReader failed: %v", err)
	}
	restored, err := loaded.PredictProba(x)
	if err != nil {
		t.Fatalf("PredictProba on loaded model failed: %v", err)
	}

	for i := range original {
		if original[i] != restored[i] {
			t.Errorf("sample %d: probability changed across save/load: %v vs %v", i, original[i], restored[i])
		}
	}
	if loaded.Bias() != clf.Bias() {
		t.Errorf("bias changed across save/load: %v vs %v", clf.Bias(), loaded.Bias())
	}
}

func TestStableSigmoidExtremes(t *testing.T) {
	// Extreme linear terms must yield finite probabilities.
	x := mat.NewDense(2, 1, []float64{1e6, -1e6})
	y := []float64{1, 0}

	clf := linear.NewLogisticRegression(linear.WithMaxIterations(5))
	if err := clf.Fit(x, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	probs, err := clf.PredictProba(x)
	if err != nil {
		t.Fatalf("PredictProba failed: %v", err)
	}
	for i, p := range probs {
		if math.IsNaN(p) || math.IsInf(p, 0) || p < 0 || p > 1 {
			t.Errorf("sample %d: probability %v out of range", i, p)
		}
	}
	for _, c := range clf.CostHistory() {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			t.Errorf("cost history contains non-finite value %v", c)
		}
	}
}
