// Package dataset implements the tabular data model shared by the quality,
// cleaning, feature-engineering and predictor packages.
//
// A Dataset is an ordered sequence of rows over a fixed, ordered column
// set. Cells are Values: a number, a string, or the canonical missing
// marker. Coercion from loosely-typed sources (CSV cells, JSON payloads)
// happens once at the ingestion boundary through the fixed token tables in
// coerce.go; everything downstream works on typed Values.
package dataset

import (
	"math"

	bankmlErrors "github.com/banktools/bankml/pkg/errors"
)

// Kind discriminates the representable cell types.
type Kind int

const (
	// Missing is the canonical missing marker.
	Missing Kind = iota
	// Number is a float64 cell.
	Number
	// String is a categorical or free-text cell.
	String
)

// Value is a single dataset cell.
type Value struct {
	Kind Kind
	Num  float64
	Str  string
}

// Num returns a numeric Value.
func Num(v float64) Value { return Value{Kind: Number, Num: v} }

// Str returns a string Value.
func Str(s string) Value { return Value{Kind: String, Str: s} }

// NA returns the missing marker.
func NA() Value { return Value{Kind: Missing} }

// IsMissing reports whether v is the canonical missing marker. It does not
// recognise placeholder strings or non-finite numbers; use IsMissingLike
// for the extended test the quality assessor and cleaner apply.
func (v Value) IsMissing() bool { return v.Kind == Missing }

// IsMissingLike reports whether v is missing under the extended vocabulary:
// the canonical marker, a recognised placeholder string, or a non-finite
// number.
func (v Value) IsMissingLike() bool {
	switch v.Kind {
	case Missing:
		return true
	case String:
		return IsMissingToken(v.Str)
	case Number:
		return math.IsNaN(v.Num) || math.IsInf(v.Num, 0)
	}
	return false
}

// Float returns the numeric content of v, parsing numeric strings.
// The second return is false for missing or unparseable cells.
func (v Value) Float() (float64, bool) {
	switch v.Kind {
	case Number:
		return v.Num, true
	case String:
		return ParseFloat(v.Str)
	}
	return 0, false
}

// Equal reports cell equality; used for duplicate-row detection.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case Number:
		return v.Num == o.Num
	case String:
		return v.Str == o.Str
	}
	return true
}

// Dataset is an ordered collection of rows over named columns.
// After cleaning, every row has a cell for every column.
type Dataset struct {
	columns []string
	index   map[string]int
	rows    [][]Value
}

// New creates an empty dataset with the given column order.
func New(columns []string) *Dataset {
	ds := &Dataset{
		columns: append([]string(nil), columns...),
		index:   make(map[string]int, len(columns)),
	}
	for i, c := range ds.columns {
		ds.index[c] = i
	}
	return ds
}

// Columns returns the column names in order. The returned slice is shared;
// callers must not mutate it.
func (ds *Dataset) Columns() []string { return ds.columns }

// NumRows returns the row count.
func (ds *Dataset) NumRows() int { return len(ds.rows) }

// NumCols returns the column count.
func (ds *Dataset) NumCols() int { return len(ds.columns) }

// HasColumn reports whether name is a column.
func (ds *Dataset) HasColumn(name string) bool {
	_, ok := ds.index[name]
	return ok
}

// ColumnIndex returns the position of name, or -1.
func (ds *Dataset) ColumnIndex(name string) int {
	if i, ok := ds.index[name]; ok {
		return i
	}
	return -1
}

// Append adds a row. The row must match the column count.
func (ds *Dataset) Append(row []Value) error {
	if len(row) != len(ds.columns) {
		return bankmlErrors.NewDimensionError("Dataset.Append", len(ds.columns), len(row), 1)
	}
	ds.rows = append(ds.rows, row)
	return nil
}

// At returns the cell at row i, column name. Missing column yields NA.
func (ds *Dataset) At(i int, name string) Value {
	j, ok := ds.index[name]
	if !ok {
		return NA()
	}
	return ds.rows[i][j]
}

// Set overwrites the cell at row i, column name. Unknown columns are a no-op.
func (ds *Dataset) Set(i int, name string, v Value) {
	if j, ok := ds.index[name]; ok {
		ds.rows[i][j] = v
	}
}

// Row returns row i as a shared slice in column order.
func (ds *Dataset) Row(i int) []Value { return ds.rows[i] }

// Column returns a copy of the named column's cells.
func (ds *Dataset) Column(name string) []Value {
	j, ok := ds.index[name]
	if !ok {
		return nil
	}
	out := make([]Value, len(ds.rows))
	for i, row := range ds.rows {
		out[i] = row[j]
	}
	return out
}

// Clone deep-copies the dataset.
func (ds *Dataset) Clone() *Dataset {
	out := New(ds.columns)
	out.rows = make([][]Value, len(ds.rows))
	for i, row := range ds.rows {
		out.rows[i] = append([]Value(nil), row...)
	}
	return out
}

// AddColumn appends a column with the given cells, which must match the
// row count.
func (ds *Dataset) AddColumn(name string, cells []Value) error {
	if ds.HasColumn(name) {
		return bankmlErrors.NewValueError("Dataset.AddColumn", "column "+name+" already exists")
	}
	if len(cells) != len(ds.rows) {
		return bankmlErrors.NewDimensionError("Dataset.AddColumn", len(ds.rows), len(cells), 0)
	}
	ds.index[name] = len(ds.columns)
	ds.columns = append(ds.columns, name)
	for i := range ds.rows {
		ds.rows[i] = append(ds.rows[i], cells[i])
	}
	return nil
}

// DropColumns removes the named columns, ignoring unknown names.
func (ds *Dataset) DropColumns(names ...string) {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}
	keep := make([]int, 0, len(ds.columns))
	newCols := make([]string, 0, len(ds.columns))
	for i, c := range ds.columns {
		if !drop[c] {
			keep = append(keep, i)
			newCols = append(newCols, c)
		}
	}
	if len(keep) == len(ds.columns) {
		return
	}
	for r, row := range ds.rows {
		newRow := make([]Value, len(keep))
		for k, i := range keep {
			newRow[k] = row[i]
		}
		ds.rows[r] = newRow
	}
	ds.columns = newCols
	ds.index = make(map[string]int, len(newCols))
	for i, c := range newCols {
		ds.index[c] = i
	}
}

// Filter returns a new dataset containing the rows for which keep is true.
func (ds *Dataset) Filter(keep func(i int) bool) *Dataset {
	out := New(ds.columns)
	for i, row := range ds.rows {
		if keep(i) {
			out.rows = append(out.rows, append([]Value(nil), row...))
		}
	}
	return out
}

// IsNumericColumn reports whether every non-missing-like cell in the named
// column carries a numeric value (including numeric strings).
func (ds *Dataset) IsNumericColumn(name string) bool {
	j, ok := ds.index[name]
	if !ok {
		return false
	}
	seen := false
	for _, row := range ds.rows {
		v := row[j]
		if v.IsMissingLike() {
			continue
		}
		if _, ok := v.Float(); !ok {
			return false
		}
		seen = true
	}
	return seen
}

// Record is the loose field-name to value mapping used at the raw
// ingestion boundary, before validation and typing.
type Record map[string]Value

// FromRecords builds a dataset from records using the given column order.
// Fields absent from a record become the missing marker; fields outside
// columns are dropped.
func FromRecords(columns []string, records []Record) *Dataset {
	ds := New(columns)
	for _, rec := range records {
		row := make([]Value, len(columns))
		for i, c := range columns {
			if v, ok := rec[c]; ok {
				row[i] = v
			} else {
				row[i] = NA()
			}
		}
		ds.rows = append(ds.rows, row)
	}
	return ds
}
