package dataset

import (
	"encoding/csv"
	"io"
	"os"

	bankmlErrors "github.com/banktools/bankml/pkg/errors"
	"github.com/banktools/bankml/pkg/log"
)

// LoadResult reports what happened during a CSV load. Malformed rows are
// skipped and counted rather than failing the whole load; an unreadable
// file or empty header is an error.
type LoadResult struct {
	Rows        int
	SkippedRows int
}

// ReadCSV reads a headered CSV stream into a dataset, coercing every cell
// through the fixed token tables. Rows whose field count does not match the
// header are skipped and counted.
func ReadCSV(r io.Reader) (*Dataset, *LoadResult, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, nil, bankmlErrors.NewModelError("ReadCSV", "cannot read header", err)
	}
	if len(header) == 0 {
		return nil, nil, bankmlErrors.NewValueError("ReadCSV", "empty header row")
	}

	ds := New(header)
	res := &LoadResult{}
	logger := log.GetLoggerWithName("Dataset")

	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			res.SkippedRows++
			continue
		}
		if len(rec) != len(header) {
			res.SkippedRows++
			continue
		}
		row := make([]Value, len(rec))
		for i, cell := range rec {
			row[i] = Coerce(cell)
		}
		ds.rows = append(ds.rows, row)
		res.Rows++
	}

	if res.SkippedRows > 0 {
		logger.Warn().Int("skipped", res.SkippedRows).Int("loaded", res.Rows).
			Msg("skipped malformed CSV rows")
	}
	return ds, res, nil
}

// LoadCSV reads the CSV file at path.
func LoadCSV(path string) (*Dataset, *LoadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, bankmlErrors.NewModelError("LoadCSV", "cannot open "+path, err)
	}
	defer f.Close()
	return ReadCSV(f)
}
