package ml

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// ArtifactPaths locates the persisted model and its feature schema.
type ArtifactPaths struct {
	ModelType  string
	ModelPath  string
	SchemaPath string
}

// Artifacts is a loaded model together with the schema it was trained on.
// A handle is read-only and safe for concurrent use.
type Artifacts struct {
	Model    Regressor
	Schema   *FeatureSchema
	Paths    ArtifactPaths
	LoadedAt time.Time
}

// LoadArtifacts loads the model and schema named by paths.
func LoadArtifacts(paths ArtifactPaths) (*Artifacts, error) {
	if paths.ModelPath == "" {
		return nil, errors.New("model path is required")
	}
	if paths.SchemaPath == "" {
		return nil, errors.New("schema path is required")
	}
	schema, err := LoadFeatureSchema(paths.SchemaPath)
	if err != nil {
		return nil, err
	}
	model, err := LoadModel(paths.ModelType, paths.ModelPath)
	if err != nil {
		return nil, err
	}
	artifacts := NewArtifacts(model, schema)
	artifacts.Paths = paths
	return artifacts, nil
}

// NewArtifacts wraps an in-memory model and schema.
func NewArtifacts(model Regressor, schema *FeatureSchema) *Artifacts {
	return &Artifacts{Model: model, Schema: schema, LoadedAt: time.Now()}
}

// Encode builds the model row for raw and city.
func (a *Artifacts) Encode(raw RawInput, city string) EncodedRow {
	return BuildFeatureVector(raw, city, a.Schema)
}

// Predict encodes the input and runs the model. Model failures are
// returned as *PredictionError.
func (a *Artifacts) Predict(raw RawInput, city string) (float64, EncodedRow, error) {
	row := a.Encode(raw, city)
	price, err := a.PredictRow(row)
	return price, row, err
}

// PredictRow runs the model on an already encoded row.
func (a *Artifacts) PredictRow(row EncodedRow) (price float64, err error) {
	defer func() {
		// a panicking model fails this call only
		if r := recover(); r != nil {
			price, err = 0, &PredictionError{Err: fmt.Errorf("model panic: %v", r)}
		}
	}()
	price, err = a.Model.Predict(row)
	if err != nil {
		return 0, &PredictionError{Err: err}
	}
	return price, nil
}

// ArtifactStore holds the current artifact handle and replaces it on reload.
type ArtifactStore struct {
	current  atomic.Pointer[versioned]
	paths    ArtifactPaths
	swapMu   sync.Mutex
	reloadMu sync.Mutex
	onSwap   []func(*Artifacts)
}

type versioned struct {
	artifacts  *Artifacts
	generation uint64
}

// NewArtifactStore loads the initial handle. A failure here is a startup
// failure and no store is returned.
func NewArtifactStore(paths ArtifactPaths) (*ArtifactStore, error) {
	artifacts, err := LoadArtifacts(paths)
	if err != nil {
		return nil, err
	}
	store := &ArtifactStore{paths: paths}
	store.Swap(artifacts)
	return store, nil
}

// NewStaticStore serves a fixed handle. Reload is not supported.
func NewStaticStore(artifacts *Artifacts) *ArtifactStore {
	store := &ArtifactStore{}
	store.Swap(artifacts)
	return store
}

// Current returns the active handle and its generation.
func (s *ArtifactStore) Current() (*Artifacts, uint64) {
	v := s.current.Load()
	if v == nil {
		return nil, 0
	}
	return v.artifacts, v.generation
}

// Swap installs artifacts and bumps the generation.
func (s *ArtifactStore) Swap(artifacts *Artifacts) {
	s.swapMu.Lock()
	defer s.swapMu.Unlock()

	var next uint64 = 1
	if prev := s.current.Load(); prev != nil {
		next = prev.generation + 1
	}
	s.current.Store(&versioned{artifacts: artifacts, generation: next})
	for _, fn := range s.onSwap {
		fn(artifacts)
	}
}

// OnSwap registers fn to run after every later swap. fn runs with the
// swap lock held and must not call OnSwap or Swap.
func (s *ArtifactStore) OnSwap(fn func(*Artifacts)) {
	s.swapMu.Lock()
	defer s.swapMu.Unlock()
	s.onSwap = append(s.onSwap, fn)
}

// Paths returns the locations the store reloads from.
func (s *ArtifactStore) Paths() ArtifactPaths {
	return s.paths
}

// Reload loads fresh artifacts from disk. On failure the previous handle
// stays active.
func (s *ArtifactStore) Reload() error {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	if s.paths.ModelPath == "" {
		return errors.New("artifact store has no paths to reload from")
	}
	artifacts, err := LoadArtifacts(s.paths)
	if err != nil {
		return fmt.Errorf("reload artifacts: %w", err)
	}
	s.Swap(artifacts)
	return nil
}
