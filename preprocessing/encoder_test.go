package preprocessing_test

import (
	"reflect"
	"testing"

	"github.com/banktools/bankml/dataset"
	bankmlErrors "github.com/banktools/bankml/pkg/errors"
	"github.com/banktools/bankml/preprocessing"
	"github.com/cockroachdb/errors"
)

func geographyDataset(t *testing.T, values ...string) *dataset.Dataset {
	t.Helper()
	ds := dataset.New([]string{"Geography", "Balance"})
	for i, v := range values {
		if err := ds.Append([]dataset.Value{dataset.Str(v), dataset.Num(float64(i))}); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}
	return ds
}

func TestEncodeCategoricalSortedColumns(t *testing.T) {
	ds := geographyDataset(t, "Spain", "France", "Germany", "France")

	encoded, err := preprocessing.EncodeCategorical(ds, "Geography")
	if err != nil {
		t.Fatalf("EncodeCategorical failed: %v", err)
	}

	want := []string{"Balance", "Geography_France", "Geography_Germany", "Geography_Spain"}
	if !reflect.DeepEqual(encoded.Columns(), want) {
		t.Fatalf("columns = %v, want %v", encoded.Columns(), want)
	}

	// Row 0 is Spain.
	if v, _ := encoded.At(0, "Geography_Spain").Float(); v != 1 {
		t.Error("row 0 should be Spain")
	}
	if v, _ := encoded.At(0, "Geography_France").Float(); v != 0 {
		t.Error("row 0 should not be France")
	}
	// Every row has exactly one hot indicator.
	for i := 0; i < encoded.NumRows(); i++ {
		sum := 0.0
		for _, col := range want[1:] {
			v, _ := encoded.At(i, col).Float()
			sum += v
		}
		if sum != 1 {
			t.Errorf("row %d: indicator sum = %g, want 1", i, sum)
		}
	}
}

func TestEncodeCategoricalMissingValues(t *testing.T) {
	ds := dataset.New([]string{"Geography"})
	for _, v := range []dataset.Value{dataset.Str("France"), dataset.NA(), dataset.Str("n/a")} {
		if err := ds.Append([]dataset.Value{v}); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	encoded, err := preprocessing.EncodeCategorical(ds, "Geography")
	if err != nil {
		t.Fatalf("EncodeCategorical failed: %v", err)
	}
	// Placeholder strings are not categories.
	if encoded.NumCols() != 1 {
		t.Fatalf("columns = %v, want only Geography_France", encoded.Columns())
	}
	// Missing rows encode as all zeros.
	for i := 1; i < 3; i++ {
		if v, _ := encoded.At(i, "Geography_France").Float(); v != 0 {
			t.Errorf("row %d: missing value should encode as 0", i)
		}
	}
}

func TestEncodeCategoricalUnknownColumn(t *testing.T) {
	ds := geographyDataset(t, "France")
	if _, err := preprocessing.EncodeCategorical(ds, "Nope"); !errors.Is(err, bankmlErrors.ErrMissingColumn) {
		t.Errorf("expected ErrMissingColumn, got %v", err)
	}
}

func TestEncodeCategoricalKeepsInputUnchanged(t *testing.T) {
	ds := geographyDataset(t, "France", "Spain")
	if _, err := preprocessing.EncodeCategorical(ds, "Geography"); err != nil {
		t.Fatalf("EncodeCategorical failed: %v", err)
	}
	if !ds.HasColumn("Geography") {
		t.Error("input dataset was mutated")
	}
}
