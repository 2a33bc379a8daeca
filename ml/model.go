package ml

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrUnsupportedModel    = errors.New("unsupported model type")
	ErrFeatureMismatch     = errors.New("feature mismatch")
	ErrModelNotTrained     = errors.New("model not trained")
	ErrNonFinitePrediction = errors.New("prediction is not a finite number")
)

// Model types accepted in the artifact envelope.
const (
	ModelTypeLinear = "linear"
	ModelTypeTree   = "tree"
	ModelTypeForest = "forest"
)

// Regressor predicts a single value for an encoded row.
type Regressor interface {
	Predict(row EncodedRow) (float64, error)
}

// PredictionError reports a failed model call. Its message is the text
// shown to users.
type PredictionError struct {
	Err error
}

func (e *PredictionError) Error() string {
	return "Prediction failed: " + e.Err.Error()
}

func (e *PredictionError) Unwrap() error {
	return e.Err
}

func checkFinite(v float64) (float64, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %v", ErrNonFinitePrediction, v)
	}
	return v, nil
}
