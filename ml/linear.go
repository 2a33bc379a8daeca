package ml

import (
	"fmt"
)

// LinearModel is an ordinary least squares fit exported from training.
type LinearModel struct {
	Columns      []string  `json:"columns,omitempty"`
	Intercept    float64   `json:"intercept"`
	Coefficients []float64 `json:"coefficients"`
}

func (m *LinearModel) validate() error {
	if len(m.Coefficients) == 0 {
		return ErrModelNotTrained
	}
	if len(m.Columns) > 0 && len(m.Columns) != len(m.Coefficients) {
		return fmt.Errorf("linear model has %d columns and %d coefficients", len(m.Columns), len(m.Coefficients))
	}
	return nil
}

func (m *LinearModel) Predict(row EncodedRow) (float64, error) {
	if len(m.Coefficients) == 0 {
		return 0, ErrModelNotTrained
	}
	if len(row.Values) != len(m.Coefficients) {
		return 0, fmt.Errorf("%w: model expects %d features, row has %d", ErrFeatureMismatch, len(m.Coefficients), len(row.Values))
	}
	if err := matchColumns(m.Columns, row.Columns); err != nil {
		return 0, err
	}

	sum := m.Intercept
	for i, v := range row.Values {
		sum += m.Coefficients[i] * v
	}
	return checkFinite(sum)
}

// matchColumns fails when the model was trained on named columns that do
// not line up with the row. A model without names accepts any row of the
// right width.
func matchColumns(want, got []string) error {
	if len(want) == 0 {
		return nil
	}
	if len(want) != len(got) {
		return fmt.Errorf("%w: model expects %d columns, row has %d", ErrFeatureMismatch, len(want), len(got))
	}
	for i := range want {
		if want[i] != got[i] {
			return fmt.Errorf("%w: column %d is %q, model expects %q", ErrFeatureMismatch, i, got[i], want[i])
		}
	}
	return nil
}
