package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v2"
)

// CityCategoryPrefix marks a schema column as the one-hot indicator of a city.
const CityCategoryPrefix = "city_grouped_"

// OtherCity is the sentinel selection that matches no city column.
const OtherCity = "Other"

var (
	ErrEmptySchema     = errors.New("feature schema is empty")
	ErrEmptyColumn     = errors.New("feature schema contains an empty column name")
	ErrDuplicateColumn = errors.New("feature schema contains a duplicate column")
	ErrEmptyCity       = errors.New("feature schema contains a city column without a city name")
)

// FeatureSchema is the ordered list of columns a trained model expects.
// It is immutable once constructed.
type FeatureSchema struct {
	columns []string
	index   map[string]int
	cities  []string
}

func NewFeatureSchema(columns []string) (*FeatureSchema, error) {
	if len(columns) == 0 {
		return nil, ErrEmptySchema
	}
	schema := &FeatureSchema{
		columns: append([]string(nil), columns...),
		index:   make(map[string]int, len(columns)),
	}
	for i, name := range columns {
		if strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("column %d: %w", i, ErrEmptyColumn)
		}
		if _, ok := schema.index[name]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateColumn, name)
		}
		schema.index[name] = i
		if city, ok := strings.CutPrefix(name, CityCategoryPrefix); ok {
			if strings.TrimSpace(city) == "" {
				return nil, fmt.Errorf("column %d: %w", i, ErrEmptyCity)
			}
			schema.cities = append(schema.cities, city)
		}
	}
	return schema, nil
}

// LoadFeatureSchema reads a schema file. Files ending in .yaml or .yml are
// decoded as a YAML sequence, everything else as a JSON array.
func LoadFeatureSchema(path string) (*FeatureSchema, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read feature schema: %w", err)
	}

	var columns []string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(payload, &columns)
	default:
		err = json.Unmarshal(payload, &columns)
	}
	if err != nil {
		return nil, fmt.Errorf("decode feature schema %s: %w", path, err)
	}
	return NewFeatureSchema(columns)
}

// Columns returns a copy of the schema columns in order.
func (s *FeatureSchema) Columns() []string {
	return append([]string(nil), s.columns...)
}

func (s *FeatureSchema) Len() int {
	return len(s.columns)
}

// Index returns the position of name in the schema.
func (s *FeatureSchema) Index(name string) (int, bool) {
	i, ok := s.index[name]
	return i, ok
}

// CityColumns returns the one-hot city columns in schema order.
func (s *FeatureSchema) CityColumns() []string {
	cols := make([]string, 0, len(s.cities))
	for _, city := range s.cities {
		cols = append(cols, CityCategoryPrefix+city)
	}
	return cols
}

// Cities returns the city names encoded by the schema, in schema order.
func (s *FeatureSchema) Cities() []string {
	return append([]string(nil), s.cities...)
}

// CityOptions is the list offered for selection: OtherCity first, then
// every known city.
func (s *FeatureSchema) CityOptions() []string {
	return append([]string{OtherCity}, s.cities...)
}

func (s *FeatureSchema) HasCity(city string) bool {
	_, ok := s.index[CityCategoryPrefix+city]
	return ok
}
