package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"pricepred/db"
	"pricepred/ml"
	"pricepred/monitoring"
)

type countingModel struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (m *countingModel) Predict(row ml.EncodedRow) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return 0, m.err
	}
	sqft, _ := row.Get(ml.FeatureSqftLiving)
	seattle, _ := row.Get("city_grouped_Seattle")
	return sqft*250 + seattle*100000, nil
}

type memoryHistory struct {
	records []db.PredictionRecord
}

func (h *memoryHistory) SavePrediction(ctx context.Context, record db.PredictionRecord, row ml.EncodedRow) (db.PredictionRecord, error) {
	record.Features = row.Map()
	h.records = append(h.records, record)
	return record, nil
}

type memoryPublisher struct {
	messages []monitoring.PredictionMessage
}

func (p *memoryPublisher) PublishPrediction(msg monitoring.PredictionMessage) error {
	p.messages = append(p.messages, msg)
	return nil
}

func newTestPredictor(t *testing.T, model ml.Regressor) (*Predictor, *memoryHistory, *memoryPublisher, *monitoring.MetricsCollector) {
	t.Helper()
	schema, err := ml.NewFeatureSchema([]string{"sqft_living", "bedrooms", "city_grouped_Seattle", "city_grouped_Austin"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cache, err := ml.NewPredictionCache(16)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	history := &memoryHistory{}
	publisher := &memoryPublisher{}
	metrics := monitoring.NewMetricsCollector()
	p := NewPredictor(ml.NewStaticStore(ml.NewArtifacts(model, schema)),
		WithCache(cache),
		WithHistory(history),
		WithPublisher(publisher),
		WithMetrics(metrics),
	)
	return p, history, publisher, metrics
}

func TestPredictorPredict(t *testing.T) {
	model := &countingModel{}
	p, history, publisher, _ := newTestPredictor(t, model)

	features := ml.DefaultHouseFeatures()
	features.SqftLiving = 1800
	got, err := p.Predict(context.Background(), features, "Seattle")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Price != 1800*250+100000 {
		t.Fatalf("unexpected price %v", got.Price)
	}
	if got.Formatted != "$550,000.00" {
		t.Fatalf("unexpected formatted price %q", got.Formatted)
	}
	if got.Cached {
		t.Fatal("first prediction should not be cached")
	}
	if len(history.records) != 1 || history.records[0].City != "Seattle" {
		t.Fatalf("unexpected history: %+v", history.records)
	}
	if len(publisher.messages) != 1 || publisher.messages[0].Price != got.Price {
		t.Fatalf("unexpected published messages: %+v", publisher.messages)
	}
}

func TestPredictorCachesIdenticalRows(t *testing.T) {
	model := &countingModel{}
	p, _, _, metrics := newTestPredictor(t, model)

	features := ml.DefaultHouseFeatures()
	first, err := p.Predict(context.Background(), features, "Austin")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := p.Predict(context.Background(), features, "Austin")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !second.Cached || second.Price != first.Price {
		t.Fatalf("expected cached identical result, got %+v", second)
	}
	if model.calls != 1 {
		t.Fatalf("expected model to be called once, got %d", model.calls)
	}
	if metrics.Snapshot().Counters[monitoring.MetricCacheHits] != 1 {
		t.Fatal("expected cache hit to be counted")
	}
}

func TestPredictorFailureKeepsServing(t *testing.T) {
	model := &countingModel{err: errors.New("shape mismatch")}
	p, history, _, metrics := newTestPredictor(t, model)

	_, err := p.Predict(context.Background(), ml.DefaultHouseFeatures(), ml.OtherCity)
	var predErr *ml.PredictionError
	if !errors.As(err, &predErr) {
		t.Fatalf("expected *ml.PredictionError, got %v", err)
	}
	if err.Error() != "Prediction failed: shape mismatch" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if len(history.records) != 1 || history.records[0].Error == "" {
		t.Fatal("expected failure to be recorded")
	}

	model.mu.Lock()
	model.err = nil
	model.mu.Unlock()
	if _, err := p.Predict(context.Background(), ml.DefaultHouseFeatures(), ml.OtherCity); err != nil {
		t.Fatalf("expected predictor to recover, got %v", err)
	}
	if metrics.Snapshot().Counters[monitoring.MetricPredictionFailure] != 1 {
		t.Fatal("expected one failure to be counted")
	}
}
