// Package model provides the shared estimator foundation for bankml.
//
// Every trainable component (the classifier, the scaler, the encoder and
// the two predictor pipelines) embeds BaseEstimator to get consistent
// fitted-state tracking, and persists through the gob-based SaveModel and
// LoadModel helpers. Callers must not use an estimator for prediction or
// transformation before it reports IsFitted.
package model

// EstimatorState represents the learning state of an estimator.
type EstimatorState int

const (
	// NotFitted indicates the estimator has not been trained yet.
	NotFitted EstimatorState = iota
	// Fitted indicates the estimator has been trained.
	Fitted
)

// BaseEstimator is embedded by all trainable types.
type BaseEstimator struct {
	// State is exported so gob encoding round-trips the fitted flag.
	State EstimatorState
}

// IsFitted reports whether the estimator has been trained.
func (e *BaseEstimator) IsFitted() bool {
	return e.State == Fitted
}

// SetFitted marks the estimator as trained. Called by implementations at
// the end of a successful Fit or Train, never by consumers.
func (e *BaseEstimator) SetFitted() {
	e.State = Fitted
}

// Reset returns the estimator to its untrained state.
func (e *BaseEstimator) Reset() {
	e.State = NotFitted
}
