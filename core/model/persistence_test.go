package model_test

import (
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/banktools/bankml/core/model"
	"github.com/banktools/bankml/preprocessing"
)

func TestSaveLoadModelFile(t *testing.T) {
	scaler := preprocessing.NewStandardScaler()
	x := mat.NewDense(4, 1, []float64{1, 2, 3, 4})
	if err := scaler.Fit(x); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	path := filepath.Join(t.TempDir(), "scaler.gob")
	if err := model.SaveModel(scaler, path); err != nil {
		t.Fatalf("SaveModel failed: %v", err)
	}

	loaded := preprocessing.NewStandardScaler()
	if err := model.LoadModel(loaded, path); err != nil {
		t.Fatalf("LoadModel failed: %v", err)
	}

	original, err := scaler.Transform(x)
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}
	restored, err := loaded.Transform(x)
	if err != nil {
		t.Fatalf("Transform on loaded scaler failed: %v", err)
	}
	for i := 0; i < 4; i++ {
		if original.At(i, 0) != restored.At(i, 0) {
			t.Errorf("row %d: transform changed across save/load: %v vs %v",
				i, original.At(i, 0), restored.At(i, 0))
		}
	}
}

func TestLoadModelMissingFile(t *testing.T) {
	scaler := preprocessing.NewStandardScaler()
	if err := model.LoadModel(scaler, filepath.Join(t.TempDir(), "nope.gob")); err == nil {
		t.Fatal("loading a missing file should fail")
	}
}
