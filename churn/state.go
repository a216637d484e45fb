package churn

import (
	"github.com/banktools/bankml/pkg/errors"
)

// predictorState is the serialisable snapshot of a trained churn pipeline:
// the classifier and scaler states plus the feature order needed to align
// prediction inputs.
type predictorState struct {
	Classifier   interface{}
	Scaler       interface{}
	FeatureNames []string
	Fitted       bool
}

// ExportState returns a snapshot for persistence.
func (p *Predictor) ExportState() (interface{}, error) {
	classifierState, err := p.classifier.ExportState()
	if err != nil {
		return nil, err
	}
	scalerState, err := p.scaler.ExportState()
	if err != nil {
		return nil, err
	}
	return &predictorState{
		Classifier:   classifierState,
		Scaler:       scalerState,
		FeatureNames: append([]string(nil), p.featureNames...),
		Fitted:       p.IsFitted(),
	}, nil
}

// ImportState restores a snapshot produced by ExportState. Training
// reports are not persisted; a loaded predictor predicts but reports a nil
// TrainingResult.
func (p *Predictor) ImportState(state interface{}) error {
	s, ok := state.(*predictorState)
	if !ok {
		return errors.NewValueError("churn.Predictor.ImportState", "unexpected state type")
	}
	if err := p.classifier.ImportState(s.Classifier); err != nil {
		return err
	}
	if err := p.scaler.ImportState(s.Scaler); err != nil {
		return err
	}
	p.featureNames = append([]string(nil), s.FeatureNames...)
	p.result = nil
	if s.Fitted {
		p.SetFitted()
	} else {
		p.Reset()
	}
	return nil
}
