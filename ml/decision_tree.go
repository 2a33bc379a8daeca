package ml

import (
	"errors"
	"fmt"
)

// RegressionTree is a fitted regression tree stored as a flat node slice
// with the root at index 0.
type RegressionTree struct {
	Columns []string   `json:"columns,omitempty"`
	Nodes   []TreeNode `json:"nodes"`
}

type TreeNode struct {
	FeatureIdx int     `json:"feature_idx"`
	Threshold  float64 `json:"threshold"`
	LeftChild  int     `json:"left_child"`
	RightChild int     `json:"right_child"`
	Value      float64 `json:"value"`
	IsLeaf     bool    `json:"is_leaf"`
}

func (t *RegressionTree) Predict(row EncodedRow) (float64, error) {
	if len(t.Nodes) == 0 {
		return 0, ErrModelNotTrained
	}
	if err := matchColumns(t.Columns, row.Columns); err != nil {
		return 0, err
	}
	v, err := t.walk(row.Values)
	if err != nil {
		return 0, err
	}
	return checkFinite(v)
}

func (t *RegressionTree) walk(features []float64) (float64, error) {
	idx := 0
	// a well formed tree reaches a leaf within len(Nodes) steps
	for steps := 0; steps <= len(t.Nodes); steps++ {
		node := t.Nodes[idx]
		if node.IsLeaf {
			return node.Value, nil
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= len(features) {
			return 0, fmt.Errorf("%w: feature index %d out of range", ErrFeatureMismatch, node.FeatureIdx)
		}
		if features[node.FeatureIdx] <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
		if idx < 0 || idx >= len(t.Nodes) {
			return 0, errors.New("invalid tree state")
		}
	}
	return 0, errors.New("invalid tree state: cycle detected")
}

// Forest averages the predictions of its trees.
type Forest struct {
	Columns []string          `json:"columns,omitempty"`
	Trees   []*RegressionTree `json:"trees"`
}

func (f *Forest) Predict(row EncodedRow) (float64, error) {
	if len(f.Trees) == 0 {
		return 0, ErrModelNotTrained
	}
	if err := matchColumns(f.Columns, row.Columns); err != nil {
		return 0, err
	}
	sum := 0.0
	for i, tree := range f.Trees {
		if tree == nil || len(tree.Nodes) == 0 {
			return 0, fmt.Errorf("tree %d: %w", i, ErrModelNotTrained)
		}
		v, err := tree.walk(row.Values)
		if err != nil {
			return 0, fmt.Errorf("tree %d: %w", i, err)
		}
		sum += v
	}
	return checkFinite(sum / float64(len(f.Trees)))
}
