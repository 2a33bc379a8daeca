package ml

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadModelLinear(t *testing.T) {
	path := writeFile(t, t.TempDir(), "model.json",
		`{"type":"linear","columns":["a","b"],"intercept":1,"coefficients":[2,3]}`)

	model, err := LoadModel("", path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ModelType(model) != ModelTypeLinear {
		t.Fatalf("unexpected model type %s", ModelType(model))
	}
	got, err := model.Predict(EncodedRow{Columns: []string{"a", "b"}, Values: []float64{1, 1}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 6 {
		t.Fatalf("expected 6, got %v", got)
	}
}

func TestLoadModelTreeAndForest(t *testing.T) {
	dir := t.TempDir()
	tree := writeFile(t, dir, "tree.json",
		`{"type":"tree","nodes":[{"feature_idx":0,"threshold":5,"left_child":1,"right_child":2},`+
			`{"is_leaf":true,"value":10},{"is_leaf":true,"value":20}]}`)
	forest := writeFile(t, dir, "forest.json",
		`{"type":"forest","trees":[{"nodes":[{"is_leaf":true,"value":10}]},{"nodes":[{"is_leaf":true,"value":30}]}]}`)

	row := EncodedRow{Columns: []string{"x"}, Values: []float64{7}}

	model, err := LoadModel(ModelTypeTree, tree)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, _ := model.Predict(row); got != 20 {
		t.Fatalf("tree: expected 20, got %v", got)
	}

	model, err = LoadModel("", forest)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, _ := model.Predict(row); got != 20 {
		t.Fatalf("forest: expected 20, got %v", got)
	}
}

func TestLoadModelErrors(t *testing.T) {
	dir := t.TempDir()
	unknown := writeFile(t, dir, "unknown.json", `{"type":"svm"}`)
	if _, err := LoadModel("", unknown); !errors.Is(err, ErrUnsupportedModel) {
		t.Fatalf("expected unsupported model, got %v", err)
	}

	linear := writeFile(t, dir, "linear.json", `{"type":"linear","coefficients":[1]}`)
	if _, err := LoadModel(ModelTypeTree, linear); !errors.Is(err, ErrUnsupportedModel) {
		t.Fatalf("expected type mismatch to fail, got %v", err)
	}

	empty := writeFile(t, dir, "empty.json", `{"type":"linear"}`)
	if _, err := LoadModel("", empty); !errors.Is(err, ErrModelNotTrained) {
		t.Fatalf("expected untrained model to fail, got %v", err)
	}

	broken := writeFile(t, dir, "broken.json", `{"type":`)
	if _, err := LoadModel("", broken); err == nil {
		t.Fatal("expected malformed json to fail")
	}

	if _, err := LoadModel("", filepath.Join(dir, "missing.json")); err == nil {
		t.Fatal("expected missing file to fail")
	}
}
