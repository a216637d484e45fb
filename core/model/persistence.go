package model

import (
	"encoding/gob"
	"io"
	"os"

	bankmlErrors "github.com/banktools/bankml/pkg/errors"
)

// Persistable is implemented by estimators that expose their trainable
// state as a single gob-encodable value. The blob format is an
// implementation detail: the only contract is that SaveModel then LoadModel
// on a fresh instance reproduces bit-identical predictions.
type Persistable interface {
	// ExportState returns the estimator's complete trained state.
	ExportState() (interface{}, error)
	// ImportState restores the estimator from a previously exported state.
	ImportState(state interface{}) error
}

// SaveModel writes m's trained state to path.
func SaveModel(m Persistable, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return bankmlErrors.Wrap(err, "SaveModel")
	}
	defer f.Close()
	if err := SaveModelToWriter(m, f); err != nil {
		return err
	}
	return bankmlErrors.Wrap(f.Sync(), "SaveModel")
}

// SaveModelToWriter writes m's trained state to w.
func SaveModelToWriter(m Persistable, w io.Writer) error {
	state, err := m.ExportState()
	if err != nil {
		return bankmlErrors.Wrap(err, "SaveModelToWriter")
	}
	if err := gob.NewEncoder(w).Encode(state); err != nil {
		return bankmlErrors.NewModelError("SaveModelToWriter", "gob encoding failed", err)
	}
	return nil
}

// LoadModel restores m's trained state from path.
func LoadModel(m Persistable, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return bankmlErrors.Wrap(err, "LoadModel")
	}
	defer f.Close()
	return LoadModelFromReader(m, f)
}

// LoadModelFromReader restores m's trained state from r.
func LoadModelFromReader(m Persistable, r io.Reader) error {
	state, err := m.ExportState()
	if err != nil {
		return bankmlErrors.Wrap(err, "LoadModelFromReader")
	}
	if err := gob.NewDecoder(r).Decode(state); err != nil {
		return bankmlErrors.NewModelError("LoadModelFromReader", "gob decoding failed", err)
	}
	return m.ImportState(state)
}
