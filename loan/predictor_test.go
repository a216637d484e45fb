package loan_test

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/banktools/bankml/core/model"
	"github.com/banktools/bankml/dataset"
	"github.com/banktools/bankml/loan"
	bankmlErrors "github.com/banktools/bankml/pkg/errors"
	"github.com/cockroachdb/errors"
)

var loanColumns = []string{
	"Loan_ID", "Gender", "Married", "Dependents", "Education", "Self_Employed",
	"ApplicantIncome", "CoapplicantIncome", "LoanAmount", "Loan_Amount_Term",
	"Credit_History", "Property_Area", "Loan_Status",
}

// trainingData builds a separable synthetic dataset: good credit history
// and high income approve, the rest decline.
func trainingData(t *testing.T, n int) *dataset.Dataset {
	t.Helper()
	areas := []string{"Urban", "Semiurban", "Rural"}
	ds := dataset.New(loanColumns)
	for i := 0; i < n; i++ {
		approved := i%2 == 0
		income, history, status := 9000.0, 1.0, "Y"
		amount := 120.0
		if !approved {
			income, history, status = 1500, 0, "N"
			amount = 300
		}
		row := []dataset.Value{
			dataset.Str(fmt.Sprintf("LP%04d", i)),
			dataset.Str([]string{"Male", "Female"}[i%2]),
			dataset.Str([]string{"Yes", "No"}[i%2]),
			dataset.Num(float64(i % 3)),
			dataset.Str([]string{"Graduate", "Not Graduate"}[i%2]),
			dataset.Str("No"),
			dataset.Num(income + float64(i%5)*100),
			dataset.Num(float64(i%3) * 500),
			dataset.Num(amount + float64(i%4)*10),
			dataset.Num(360),
			dataset.Num(history),
			dataset.Str(areas[i%3]),
			dataset.Str(status),
		}
		if err := ds.Append(row); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}
	return ds
}

func trainedPredictor(t *testing.T) *loan.Predictor {
	t.Helper()
	p := loan.NewPredictor()
	if _, err := p.Train(trainingData(t, 80)); err != nil {
		t.Fatalf("Train failed: %v", err)
	}
	return p
}

func strongApplication() loan.Application {
	return loan.Application{
		Amount: 120000, Income: 9500, EmploymentYears: 10, CreditScore: 760,
	}
}

func weakApplication() loan.Application {
	return loan.Application{
		Amount: 300000, Income: 1500, EmploymentYears: 1, CreditScore: 520,
	}
}

func TestLoanTrainAndPredict(t *testing.T) {
	p := loan.NewPredictor()
	result, err := p.Train(trainingData(t, 80))
	if err != nil {
		t.Fatalf("Train failed: %v", err)
	}
	if result.Train.Accuracy < 0.9 {
		t.Errorf("train accuracy = %g on separable data, want >= 0.9", result.Train.Accuracy)
	}

	strong, err := p.Predict(strongApplication())
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	weak, err := p.Predict(weakApplication())
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	if strong.Probability <= weak.Probability {
		t.Errorf("strong application %g should outscore weak application %g",
			strong.Probability, weak.Probability)
	}
}

func TestLoanSeedOption(t *testing.T) {
	a := loan.NewPredictor(loan.WithSeed(7))
	if _, err := a.Train(trainingData(t, 80)); err != nil {
		t.Fatalf("Train failed: %v", err)
	}
	b := loan.NewPredictor(loan.WithSeed(7))
	if _, err := b.Train(trainingData(t, 80)); err != nil {
		t.Fatalf("Train failed: %v", err)
	}

	pa, err := a.Predict(strongApplication())
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	pb, err := b.Predict(strongApplication())
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	if pa.Probability != pb.Probability {
		t.Errorf("same seed should reproduce the same model: %v vs %v",
			pa.Probability, pb.Probability)
	}
}

func TestLoanCreditScoreMonotonicity(t *testing.T) {
	p := trainedPredictor(t)

	// Crossing the credit-history cutoff must never lower the approval
	// probability, all else equal.
	app := strongApplication()
	app.CreditScore = 600
	below, err := p.Predict(app)
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	app.CreditScore = 700
	above, err := p.Predict(app)
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	if above.Probability < below.Probability {
		t.Errorf("raising credit score lowered approval probability: %g -> %g",
			below.Probability, above.Probability)
	}
}

func TestLoanPredictBeforeTrain(t *testing.T) {
	p := loan.NewPredictor()
	if _, err := p.Predict(strongApplication()); !errors.Is(err, bankmlErrors.ErrNotFitted) {
		t.Errorf("expected ErrNotFitted, got %v", err)
	}
}

func TestLoanPredictValidation(t *testing.T) {
	p := trainedPredictor(t)

	bad := strongApplication()
	bad.Amount = -5
	if _, err := p.Predict(bad); !errors.Is(err, bankmlErrors.ErrInvalidInput) {
		t.Errorf("negative amount: expected ErrInvalidInput, got %v", err)
	}

	bad = strongApplication()
	bad.CreditScore = 200
	if _, err := p.Predict(bad); !errors.Is(err, bankmlErrors.ErrInvalidInput) {
		t.Errorf("low credit score: expected ErrInvalidInput, got %v", err)
	}
}

func TestConfidenceBands(t *testing.T) {
	cases := []struct {
		p    float64
		want string
	}{
		{0.95, "High"}, {0.05, "High"},
		{0.75, "Medium"}, {0.25, "Medium"}, {0.62, "Medium"},
		{0.60, "Low"}, {0.55, "Low"}, {0.5, "Low"},
	}
	for _, tc := range cases {
		if got := loan.Confidence(tc.p); got != tc.want {
			t.Errorf("Confidence(%g) = %q, want %q", tc.p, got, tc.want)
		}
	}
}

func TestRiskLevels(t *testing.T) {
	cases := []struct {
		p    float64
		want string
	}{
		{0.9, "Low"}, {0.7, "Medium"}, {0.5, "High"}, {0.2, "Very High"},
	}
	for _, tc := range cases {
		if got := loan.RiskLevel(tc.p); got != tc.want {
			t.Errorf("RiskLevel(%g) = %q, want %q", tc.p, got, tc.want)
		}
	}
}

func TestLoanRecommendationsForWeakApplication(t *testing.T) {
	p := trainedPredictor(t)
	pred, err := p.Predict(weakApplication())
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	if len(pred.Recommendations) < 2 {
		t.Errorf("weak application should get several recommendations, got %v", pred.Recommendations)
	}
}

func TestLoanSaveLoadRoundTrip(t *testing.T) {
	p := trainedPredictor(t)
	original, err := p.Predict(strongApplication())
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}

	var buf bytes.Buffer
	if err := model.SaveModelToWriter(p, &buf); err != nil {
		t.Fatalf("SaveModelToWriter failed: %v", err)
	}
	loaded := loan.NewPredictor()
	if err := model.LoadModelFromReader(loaded, &buf); err != nil {
		t.Fatalf("LoadModelFromReader failed: %v", err)
	}

	restored, err := loaded.Predict(strongApplication())
	if err != nil {
		t.Fatalf("Predict on loaded model failed: %v", err)
	}
	if restored.Probability != original.Probability {
		t.Errorf("probability changed across save/load: %v vs %v",
			original.Probability, restored.Probability)
	}
}

func TestCleanApplications(t *testing.T) {
	ds := dataset.New([]string{"Gender", "Dependents", "LoanAmount"})
	rows := [][]dataset.Value{
		{dataset.Str("Male"), dataset.Str("3+"), dataset.Num(100)},
		{dataset.NA(), dataset.Num(1), dataset.NA()},
		{dataset.Str("Male"), dataset.Num(0), dataset.Num(200)},
		{dataset.Str("Female"), dataset.Num(2), dataset.Num(150)},
	}
	for _, row := range rows {
		if err := ds.Append(row); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	cleaned := loan.CleanApplications(ds)

	if v, _ := cleaned.At(0, "Dependents").Float(); v != 3 {
		t.Errorf("Dependents 3+ = %g, want 3", v)
	}
	if got := cleaned.At(1, "Gender").Str; got != "Male" {
		t.Errorf("missing gender = %q, want mode Male", got)
	}
	if v, _ := cleaned.At(1, "LoanAmount").Float(); v != 150 {
		t.Errorf("missing amount = %g, want median 150", v)
	}
	// Input untouched.
	if !ds.At(1, "Gender").IsMissing() {
		t.Error("input dataset was mutated")
	}
}
