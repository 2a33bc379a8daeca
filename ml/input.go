package ml

import (
	"errors"
	"fmt"
	"math"
)

var ErrInvalidInput = errors.New("invalid input")

// Bound is the inclusive range accepted for a scalar feature.
type Bound struct {
	Name  string  `json:"name"`
	Label string  `json:"label"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Step  float64 `json:"step"`
}

// InputBounds lists the accepted ranges in form order. The builder does
// not consult them; callers collecting input do.
func InputBounds() []Bound {
	return []Bound{
		{Name: FeatureSqftLiving, Label: "Living Area (sqft)", Min: 200, Max: 10000, Step: 1},
		{Name: FeatureBedrooms, Label: "Bedrooms", Min: 1, Max: 10, Step: 1},
		{Name: FeatureBathrooms, Label: "Bathrooms", Min: 1, Max: 10, Step: 1},
		{Name: FeatureFloors, Label: "Floors", Min: 1, Max: 3, Step: 1},
		{Name: FeatureWaterfront, Label: "Waterfront View", Min: 0, Max: 1, Step: 1},
		{Name: FeatureView, Label: "View Score", Min: 0, Max: 4, Step: 1},
		{Name: FeatureCondition, Label: "Condition (1-5)", Min: 1, Max: 5, Step: 1},
		{Name: FeatureGrade, Label: "Grade (1-13)", Min: 1, Max: 13, Step: 1},
	}
}

// Validate checks every scalar against InputBounds: inside the range and
// on the Step grid starting at Min.
func (f HouseFeatures) Validate() error {
	raw := f.Raw()
	var errs []error
	for _, b := range InputBounds() {
		v := raw[b.Name]
		switch {
		case math.IsNaN(v) || v < b.Min || v > b.Max:
			errs = append(errs, fmt.Errorf("%w: %s must be between %g and %g, got %g", ErrInvalidInput, b.Name, b.Min, b.Max, v))
		case !b.onGrid(v):
			errs = append(errs, fmt.Errorf("%w: %s must be a multiple of %g from %g, got %g", ErrInvalidInput, b.Name, b.Step, b.Min, v))
		}
	}
	return errors.Join(errs...)
}

const gridTolerance = 1e-9

func (b Bound) onGrid(v float64) bool {
	if b.Step <= 0 {
		return true
	}
	return math.Abs(math.Remainder(v-b.Min, b.Step)) <= gridTolerance
}
