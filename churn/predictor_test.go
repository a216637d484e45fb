package churn_test

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/banktools/bankml/churn"
	"github.com/banktools/bankml/core/model"
	"github.com/banktools/bankml/dataset"
	bankmlErrors "github.com/banktools/bankml/pkg/errors"
	"github.com/cockroachdb/errors"
)

var churnColumns = []string{
	"RowNumber", "CustomerId", "Surname", "CreditScore", "Geography", "Gender",
	"Age", "Tenure", "Balance", "NumOfProducts", "HasCrCard", "IsActiveMember",
	"EstimatedSalary", "Exited",
}

// trainingData builds a separable synthetic dataset: young, inactive,
// single-product customers churn; established active customers stay.
func trainingData(t *testing.T, n int) *dataset.Dataset {
	t.Helper()
	geos := []string{"France", "Germany", "Spain"}
	ds := dataset.New(churnColumns)
	for i := 0; i < n; i++ {
		churned := i%2 == 1
		tenure, active, products := 8.0, 1.0, 2.0
		credit, balance := 750.0, 120000.0
		if churned {
			tenure, active, products = 1, 0, 1
			credit, balance = 480, 0
		}
		exited := 0.0
		if churned {
			exited = 1
		}
		row := []dataset.Value{
			dataset.Num(float64(i + 1)),
			dataset.Num(float64(1000 + i)),
			dataset.Str(fmt.Sprintf("Customer%d", i)),
			dataset.Num(credit + float64(i%7)),
			dataset.Str(geos[i%3]),
			dataset.Str([]string{"Male", "Female"}[i%2]),
			dataset.Num(30 + float64(i%30)),
			dataset.Num(tenure),
			dataset.Num(balance + float64(i%5)*1000),
			dataset.Num(products),
			dataset.Num(float64(i % 2)),
			dataset.Num(active),
			dataset.Num(40000 + float64(i%10)*5000),
			dataset.Num(exited),
		}
		if err := ds.Append(row); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}
	return ds
}

func trainedPredictor(t *testing.T) *churn.Predictor {
	t.Helper()
	p := churn.NewPredictor()
	if _, err := p.Train(trainingData(t, 80)); err != nil {
		t.Fatalf("Train failed: %v", err)
	}
	return p
}

func stayingCustomer() churn.Customer {
	return churn.Customer{
		CreditScore: 750, Geography: "France", Gender: "Female",
		Age: 45, Tenure: 8, Balance: 120000, NumOfProducts: 2,
		HasCrCard: 1, IsActiveMember: 1, EstimatedSalary: 60000,
	}
}

func churningCustomer() churn.Customer {
	return churn.Customer{
		CreditScore: 480, Geography: "Germany", Gender: "Male",
		Age: 32, Tenure: 1, Balance: 0, NumOfProducts: 1,
		HasCrCard: 0, IsActiveMember: 0, EstimatedSalary: 45000,
	}
}

func TestPredictorTrainAndPredict(t *testing.T) {
	p := churn.NewPredictor()
	result, err := p.Train(trainingData(t, 80))
	if err != nil {
		t.Fatalf("Train failed: %v", err)
	}

	if result.Train.Accuracy < 0.9 {
		t.Errorf("train accuracy = %g on separable data, want >= 0.9", result.Train.Accuracy)
	}
	if result.Test.Accuracy < 0.8 {
		t.Errorf("test accuracy = %g on separable data, want >= 0.8", result.Test.Accuracy)
	}
	if result.Iterations == 0 {
		t.Error("iterations should be recorded")
	}
	if len(result.Features) == 0 {
		t.Error("feature order should be recorded")
	}

	risky, err := p.Predict(churningCustomer())
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	loyal, err := p.Predict(stayingCustomer())
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	if risky.Probability <= loyal.Probability {
		t.Errorf("churn-pattern customer %g should outscore loyal customer %g",
			risky.Probability, loyal.Probability)
	}
	// An inactive, zero-balance, single-product customer must land at or
	// above the Medium tier when those conditions correlate with churn.
	if risky.Probability < 0.15 {
		t.Errorf("churn-pattern customer probability = %g, want >= 0.15 (Medium threshold)",
			risky.Probability)
	}
}

func TestPredictorSeedOption(t *testing.T) {
	a := churn.NewPredictor(churn.WithSeed(7))
	if _, err := a.Train(trainingData(t, 80)); err != nil {
		t.Fatalf("Train failed: %v", err)
	}
	b := churn.NewPredictor(churn.WithSeed(7))
	if _, err := b.Train(trainingData(t, 80)); err != nil {
		t.Fatalf("Train failed: %v", err)
	}

	pa, err := a.Predict(churningCustomer())
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	pb, err := b.Predict(churningCustomer())
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	if pa.Probability != pb.Probability {
		t.Errorf("same seed should reproduce the same model: %v vs %v",
			pa.Probability, pb.Probability)
	}

	// A different seed changes the split and the weight init, so the first
	// recorded loss moves.
	c := trainedPredictor(t)
	if a.CostHistory()[0] == c.CostHistory()[0] {
		t.Error("seed option had no effect on the training trajectory")
	}
}

func TestAggressiveCleaningScoreOption(t *testing.T) {
	withOutlier := func() *dataset.Dataset {
		ds := trainingData(t, 80)
		row := []dataset.Value{
			dataset.Num(81), dataset.Num(1081), dataset.Str("Customer81"),
			dataset.Num(750), dataset.Str("France"), dataset.Str("Male"),
			dataset.Num(40), dataset.Num(8), dataset.Num(1e9), dataset.Num(2),
			dataset.Num(1), dataset.Num(1), dataset.Num(60000), dataset.Num(0),
		}
		if err := ds.Append(row); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
		return ds
	}

	forced := churn.NewPredictor(churn.WithAggressiveCleaningScore(100))
	res, err := forced.Train(withOutlier())
	if err != nil {
		t.Fatalf("Train failed: %v", err)
	}
	if res.Cleaning.OutlierRowsRemoved == 0 {
		t.Error("cutoff 100 should force aggressive cleaning and drop the extreme balance row")
	}

	standard := churn.NewPredictor()
	res, err = standard.Train(withOutlier())
	if err != nil {
		t.Fatalf("Train failed: %v", err)
	}
	if res.Cleaning.OutlierRowsRemoved != 0 {
		t.Errorf("good-quality data should stay on the standard path, removed %d rows",
			res.Cleaning.OutlierRowsRemoved)
	}
}

func TestPredictBeforeTrain(t *testing.T) {
	p := churn.NewPredictor()
	if _, err := p.Predict(stayingCustomer()); !errors.Is(err, bankmlErrors.ErrNotFitted) {
		t.Errorf("expected ErrNotFitted, got %v", err)
	}
}

func TestPredictValidation(t *testing.T) {
	p := trainedPredictor(t)
	bad := stayingCustomer()
	bad.CreditScore = 900
	if _, err := p.Predict(bad); !errors.Is(err, bankmlErrors.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for out-of-range credit score, got %v", err)
	}
}

func TestRiskLevelThresholds(t *testing.T) {
	cases := []struct {
		p    float64
		want string
	}{
		{0.90, "High"}, {0.35, "High"},
		{0.34, "Medium"}, {0.20, "Medium"}, {0.15, "Medium"},
		{0.1499, "Low"}, {0.01, "Low"},
	}
	for _, tc := range cases {
		if got := churn.RiskLevel(tc.p); got != tc.want {
			t.Errorf("RiskLevel(%g) = %q, want %q", tc.p, got, tc.want)
		}
	}
}

func TestPredictionRecommendations(t *testing.T) {
	p := trainedPredictor(t)
	pred, err := p.Predict(churningCustomer())
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	if len(pred.Recommendations) < 2 {
		t.Errorf("inactive zero-balance single-product customer should get several recommendations, got %v",
			pred.Recommendations)
	}
}

func TestPredictorSaveLoadRoundTrip(t *testing.T) {
	p := trainedPredictor(t)
	original, err := p.Predict(churningCustomer())
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}

	var buf bytes.Buffer
	if err := model.SaveModelToWriter(p, &buf); err != nil {
		t.Fatalf("SaveModelToWriter failed: %v", err)
	}
	loaded := churn.NewPredictor()
	if err := model.LoadModelFromReader(loaded, &buf); err != nil {
		t.Fatalf("LoadModelFromReader failed: %v", err)
	}

	restored, err := loaded.Predict(churningCustomer())
	if err != nil {
		t.Fatalf("Predict on loaded model failed: %v", err)
	}
	if restored.Probability != original.Probability {
		t.Errorf("probability changed across save/load: %v vs %v",
			original.Probability, restored.Probability)
	}
	if restored.RiskLevel != original.RiskLevel {
		t.Errorf("risk level changed across save/load: %q vs %q", original.RiskLevel, restored.RiskLevel)
	}
}

func TestPredictConcurrent(t *testing.T) {
	p := trainedPredictor(t)
	customer := churningCustomer()

	done := make(chan float64, 8)
	for g := 0; g < 8; g++ {
		go func() {
			pred, err := p.Predict(customer)
			if err != nil {
				done <- -1
				return
			}
			done <- pred.Probability
		}()
	}
	first := <-done
	for g := 1; g < 8; g++ {
		if got := <-done; got != first {
			t.Fatalf("concurrent predictions disagree: %v vs %v", first, got)
		}
	}
	if first < 0 {
		t.Fatal("concurrent prediction failed")
	}
}
