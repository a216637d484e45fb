package errors_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"

	bankmlErrors "github.com/banktools/bankml/pkg/errors"
)

func TestNotFittedError(t *testing.T) {
	err := bankmlErrors.NewNotFittedError("LogisticRegression", "Predict")

	if !errors.Is(err, bankmlErrors.ErrNotFitted) {
		t.Error("should match ErrNotFitted sentinel")
	}
	var nf *bankmlErrors.NotFittedError
	if !errors.As(err, &nf) {
		t.Fatal("should expose the typed error")
	}
	if nf.ModelName != "LogisticRegression" || nf.Method != "Predict" {
		t.Errorf("unexpected fields: %+v", nf)
	}
	if !strings.HasPrefix(err.Error(), "bankml: ") {
		t.Errorf("message should carry the bankml prefix: %q", err.Error())
	}
}

func TestDimensionError(t *testing.T) {
	err := bankmlErrors.NewDimensionError("StandardScaler.Transform", 4, 3, 1)

	if !errors.Is(err, bankmlErrors.ErrDimensionMismatch) {
		t.Error("should match ErrDimensionMismatch sentinel")
	}
	var de *bankmlErrors.DimensionError
	if !errors.As(err, &de) {
		t.Fatal("should expose the typed error")
	}
	if de.Expected != 4 || de.Got != 3 || de.Axis != 1 {
		t.Errorf("unexpected fields: %+v", de)
	}
}

func TestValidationErrorCarriesValue(t *testing.T) {
	err := bankmlErrors.NewValidationError("CreditScore", "out of range", 900.0)

	if !errors.Is(err, bankmlErrors.ErrInvalidInput) {
		t.Error("should match ErrInvalidInput sentinel")
	}
	var ve *bankmlErrors.ValidationError
	if !errors.As(err, &ve) {
		t.Fatal("should expose the typed error")
	}
	if ve.Value != 900.0 {
		t.Errorf("value = %v, want 900", ve.Value)
	}
}

func TestMissingColumnError(t *testing.T) {
	err := bankmlErrors.NewMissingColumnError("Train", "Exited")

	if !errors.Is(err, bankmlErrors.ErrMissingColumn) {
		t.Error("should match ErrMissingColumn sentinel")
	}
	if !strings.Contains(err.Error(), "Exited") {
		t.Errorf("message should name the column: %q", err.Error())
	}
}

func TestWrapNil(t *testing.T) {
	if bankmlErrors.Wrap(nil, "op") != nil {
		t.Error("wrapping nil should stay nil")
	}
}

func TestRecoverConvertsPanic(t *testing.T) {
	run := func() (err error) {
		defer bankmlErrors.Recover(&err, "Matrix.At")
		panic("index out of range")
	}

	err := run()
	if err == nil {
		t.Fatal("panic should surface as an error")
	}
	if !strings.Contains(err.Error(), "index out of range") {
		t.Errorf("error should carry the panic message: %q", err.Error())
	}
}

func TestStackTraceRendering(t *testing.T) {
	err := bankmlErrors.NewValueError("Fit", "empty training matrix")
	// %+v renders the stack captured at construction.
	detailed := fmt.Sprintf("%+v", err)
	if !strings.Contains(detailed, "errors_test.go") {
		t.Errorf("detailed rendering should include the construction site:\n%s", detailed)
	}
}
