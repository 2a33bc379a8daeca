package ml

import (
	"encoding/json"
	"strings"
)

// Scalar feature names as they appear in the trained schema.
const (
	FeatureSqftLiving = "sqft_living"
	FeatureBedrooms   = "bedrooms"
	FeatureBathrooms  = "bathrooms"
	FeatureFloors     = "floors"
	FeatureWaterfront = "waterfront"
	FeatureView       = "view"
	FeatureCondition  = "condition"
	FeatureGrade      = "grade"
)

// RawInput maps scalar feature names to user-supplied values.
type RawInput map[string]float64

// HouseFeatures is the typed form of the scalar inputs.
type HouseFeatures struct {
	SqftLiving float64 `json:"sqft_living"`
	Bedrooms   float64 `json:"bedrooms"`
	Bathrooms  float64 `json:"bathrooms"`
	Floors     float64 `json:"floors"`
	Waterfront float64 `json:"waterfront"`
	View       float64 `json:"view"`
	Condition  float64 `json:"condition"`
	Grade      float64 `json:"grade"`
}

// DefaultHouseFeatures returns the values the input form starts with.
func DefaultHouseFeatures() HouseFeatures {
	return HouseFeatures{
		SqftLiving: 2000,
		Bedrooms:   3,
		Bathrooms:  2,
		Floors:     1,
		Waterfront: 0,
		View:       1,
		Condition:  3,
		Grade:      7,
	}
}

func (f HouseFeatures) Raw() RawInput {
	return RawInput{
		FeatureSqftLiving: f.SqftLiving,
		FeatureBedrooms:   f.Bedrooms,
		FeatureBathrooms:  f.Bathrooms,
		FeatureFloors:     f.Floors,
		FeatureWaterfront: f.Waterfront,
		FeatureView:       f.View,
		FeatureCondition:  f.Condition,
		FeatureGrade:      f.Grade,
	}
}

func ScalarFeatureNames() []string {
	return []string{
		FeatureSqftLiving,
		FeatureBedrooms,
		FeatureBathrooms,
		FeatureFloors,
		FeatureWaterfront,
		FeatureView,
		FeatureCondition,
		FeatureGrade,
	}
}

// EncodedRow is a single model input row. Columns and Values are parallel
// and follow the schema order.
type EncodedRow struct {
	Columns []string
	Values  []float64
}

// Get returns the value of column name.
func (r EncodedRow) Get(name string) (float64, bool) {
	for i, col := range r.Columns {
		if col == name {
			return r.Values[i], true
		}
	}
	return 0, false
}

func (r EncodedRow) Map() map[string]float64 {
	m := make(map[string]float64, len(r.Columns))
	for i, col := range r.Columns {
		m[col] = r.Values[i]
	}
	return m
}

// MarshalJSON writes the row as an object with keys in column order.
func (r EncodedRow) MarshalJSON() ([]byte, error) {
	var b strings.Builder
	b.WriteByte('{')
	for i, col := range r.Columns {
		if i > 0 {
			b.WriteByte(',')
		}
		key, err := json.Marshal(col)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(r.Values[i])
		if err != nil {
			return nil, err
		}
		b.Write(key)
		b.WriteByte(':')
		b.Write(val)
	}
	b.WriteByte('}')
	return []byte(b.String()), nil
}

// BuildFeatureVector encodes raw and city into a row matching schema.
// City columns are one-hot: the column whose suffix equals city is 1, all
// others 0, so OtherCity or an unknown city encodes as all zero. Schema
// columns missing from raw default to 0 and raw entries outside the schema
// are dropped.
func BuildFeatureVector(raw RawInput, city string, schema *FeatureSchema) EncodedRow {
	values := make(map[string]float64, len(raw)+len(schema.cities))
	for name, v := range raw {
		values[name] = v
	}
	for _, col := range schema.CityColumns() {
		if col == CityCategoryPrefix+city {
			values[col] = 1
		} else {
			values[col] = 0
		}
	}

	row := EncodedRow{
		Columns: schema.Columns(),
		Values:  make([]float64, schema.Len()),
	}
	for i, col := range row.Columns {
		// absent columns keep the zero value
		row.Values[i] = values[col]
	}
	return row
}
