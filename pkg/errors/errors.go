// Package errors defines the error taxonomy shared by all bankml components.
//
// Errors come in two layers: sentinel errors for errors.Is checks
// (ErrNotFitted, ErrEmptyData, ...) and typed errors for errors.As checks
// carrying structured context (NotFittedError, DimensionError, ...). All
// constructors build on cockroachdb/errors so wrapped errors keep stack
// traces and render them under %+v.
//
// Usage errors (predict before train, shape mismatches) should fail fast
// through these types; data-quality findings are never errors and belong in
// the quality and cleaning reports instead.
package errors

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Sentinel errors for errors.Is comparisons.
var (
	// ErrNotFitted indicates an estimator was used before training.
	ErrNotFitted = errors.New("model is not fitted")
	// ErrEmptyData indicates an empty matrix or dataset was supplied.
	ErrEmptyData = errors.New("empty data")
	// ErrDimensionMismatch indicates incompatible matrix shapes.
	ErrDimensionMismatch = errors.New("dimension mismatch")
	// ErrInvalidInput indicates a value outside the accepted domain.
	ErrInvalidInput = errors.New("invalid input")
	// ErrMissingColumn indicates a required dataset column is absent.
	ErrMissingColumn = errors.New("missing column")
)

// NotFittedError is returned when Predict/Transform is called on an
// untrained estimator.
type NotFittedError struct {
	ModelName string
	Method    string
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("bankml: %s.%s: model is not fitted, call Fit or Train first", e.ModelName, e.Method)
}

func (e *NotFittedError) Unwrap() error { return ErrNotFitted }

// NewNotFittedError creates a NotFittedError for the given model and method.
func NewNotFittedError(modelName, method string) error {
	return errors.WithStack(&NotFittedError{ModelName: modelName, Method: method})
}

// DimensionError reports a shape mismatch along a given axis.
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("bankml: %s: dimension mismatch on axis %d: expected %d, got %d",
		e.Op, e.Axis, e.Expected, e.Got)
}

func (e *DimensionError) Unwrap() error { return ErrDimensionMismatch }

// NewDimensionError creates a DimensionError for the given operation.
func NewDimensionError(op string, expected, got, axis int) error {
	return errors.WithStack(&DimensionError{Op: op, Expected: expected, Got: got, Axis: axis})
}

// ValueError reports an argument outside the accepted domain.
type ValueError struct {
	Op      string
	Message string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("bankml: %s: %s", e.Op, e.Message)
}

func (e *ValueError) Unwrap() error { return ErrInvalidInput }

// NewValueError creates a ValueError for the given operation.
func NewValueError(op, message string) error {
	return errors.WithStack(&ValueError{Op: op, Message: message})
}

// ValidationError reports a single field value that failed validation.
type ValidationError struct {
	Field   string
	Message string
	Value   interface{}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("bankml: validation failed for %q: %s (got %v)", e.Field, e.Message, e.Value)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// NewValidationError creates a ValidationError for a named field.
func NewValidationError(field, message string, value interface{}) error {
	return errors.WithStack(&ValidationError{Field: field, Message: message, Value: value})
}

// MissingColumnError reports a required dataset column that is absent.
type MissingColumnError struct {
	Op     string
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("bankml: %s: required column %q is missing", e.Op, e.Column)
}

func (e *MissingColumnError) Unwrap() error { return ErrMissingColumn }

// NewMissingColumnError creates a MissingColumnError for the given operation.
func NewMissingColumnError(op, column string) error {
	return errors.WithStack(&MissingColumnError{Op: op, Column: column})
}

// ModelError wraps a lower-level cause with the operation that hit it.
type ModelError struct {
	Op      string
	Message string
	Err     error
}

func (e *ModelError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("bankml: %s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("bankml: %s: %s", e.Op, e.Message)
}

func (e *ModelError) Unwrap() error { return e.Err }

// NewModelError creates a ModelError wrapping cause.
func NewModelError(op, message string, cause error) error {
	return errors.WithStack(&ModelError{Op: op, Message: message, Err: cause})
}

// Wrap annotates err with op context, preserving the original chain.
// Returns nil if err is nil.
func Wrap(err error, op string) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(err, op)
}

// Recover converts a panic in a numeric routine into an error on *errp,
// so hot loops can stay free of per-element checks. Deferred at the top of
// exported estimator methods.
func Recover(errp *error, op string) {
	if r := recover(); r != nil {
		*errp = errors.Errorf("bankml: %s: panic: %v", op, r)
	}
}
