package ml

import (
	"encoding/json"
	"fmt"
	"os"
)

// modelEnvelope is the on-disk artifact format. Type selects which of the
// remaining fields are used.
type modelEnvelope struct {
	Type         string            `json:"type"`
	Columns      []string          `json:"columns,omitempty"`
	Intercept    float64           `json:"intercept"`
	Coefficients []float64         `json:"coefficients"`
	Nodes        []TreeNode        `json:"nodes"`
	Trees        []*RegressionTree `json:"trees"`
}

// LoadModel reads a model artifact from path. An empty modelType accepts
// whatever the artifact declares; otherwise the two must agree.
func LoadModel(modelType, path string) (Regressor, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}
	var env modelEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("decode model %s: %w", path, err)
	}
	if modelType != "" && modelType != env.Type {
		return nil, fmt.Errorf("%w: configured %q, artifact is %q", ErrUnsupportedModel, modelType, env.Type)
	}

	switch env.Type {
	case ModelTypeLinear:
		model := &LinearModel{
			Columns:      env.Columns,
			Intercept:    env.Intercept,
			Coefficients: env.Coefficients,
		}
		if err := model.validate(); err != nil {
			return nil, err
		}
		return model, nil
	case ModelTypeTree:
		if len(env.Nodes) == 0 {
			return nil, ErrModelNotTrained
		}
		return &RegressionTree{Columns: env.Columns, Nodes: env.Nodes}, nil
	case ModelTypeForest:
		if len(env.Trees) == 0 {
			return nil, ErrModelNotTrained
		}
		return &Forest{Columns: env.Columns, Trees: env.Trees}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedModel, env.Type)
	}
}

// ModelType names the kind of a loaded model.
func ModelType(m Regressor) string {
	switch m.(type) {
	case *LinearModel:
		return ModelTypeLinear
	case *RegressionTree:
		return ModelTypeTree
	case *Forest:
		return ModelTypeForest
	default:
		return fmt.Sprintf("%T", m)
	}
}
