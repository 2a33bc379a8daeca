// Package service runs predictions against the loaded artifacts and
// records their outcome.
package service

import (
	"context"
	"errors"
	"time"

	"pricepred/db"
	"pricepred/ml"
	"pricepred/monitoring"

	"go.uber.org/zap"
)

var ErrNoArtifacts = errors.New("no model loaded")

// Prediction is the outcome of one successful request.
type Prediction struct {
	Price     float64       `json:"price"`
	Formatted string        `json:"formatted"`
	City      string        `json:"city"`
	Row       ml.EncodedRow `json:"row"`
	Cached    bool          `json:"cached"`
	ModelType string        `json:"model_type"`
	Duration  time.Duration `json:"duration_ns"`
}

// History is the subset of db.Store the predictor writes to.
type History interface {
	SavePrediction(ctx context.Context, record db.PredictionRecord, row ml.EncodedRow) (db.PredictionRecord, error)
}

// Publisher receives prediction events.
type Publisher interface {
	PublishPrediction(msg monitoring.PredictionMessage) error
}

// Predictor is safe for concurrent use.
type Predictor struct {
	store     *ml.ArtifactStore
	cache     *ml.PredictionCache
	history   History
	publisher Publisher
	metrics   *monitoring.MetricsCollector
	logger    *zap.Logger
}

// Option configures optional collaborators.
type Option func(*Predictor)

func WithCache(cache *ml.PredictionCache) Option {
	return func(p *Predictor) { p.cache = cache }
}

func WithHistory(h History) Option {
	return func(p *Predictor) { p.history = h }
}

func WithPublisher(pub Publisher) Option {
	return func(p *Predictor) { p.publisher = pub }
}

func WithMetrics(mc *monitoring.MetricsCollector) Option {
	return func(p *Predictor) { p.metrics = mc }
}

func WithLogger(logger *zap.Logger) Option {
	return func(p *Predictor) { p.logger = logger }
}

func NewPredictor(store *ml.ArtifactStore, opts ...Option) *Predictor {
	p := &Predictor{store: store, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Artifacts returns the handle currently serving predictions.
func (p *Predictor) Artifacts() (*ml.Artifacts, error) {
	artifacts, _ := p.store.Current()
	if artifacts == nil {
		return nil, ErrNoArtifacts
	}
	return artifacts, nil
}

// Predict encodes features and city, runs the model and records the
// outcome. Model failures come back as *ml.PredictionError and leave the
// predictor usable.
func (p *Predictor) Predict(ctx context.Context, features ml.HouseFeatures, city string) (*Prediction, error) {
	start := time.Now()
	artifacts, generation := p.store.Current()
	if artifacts == nil {
		return nil, &ml.PredictionError{Err: ErrNoArtifacts}
	}

	row := artifacts.Encode(features.Raw(), city)
	result := &Prediction{
		City:      city,
		Row:       row,
		ModelType: ml.ModelType(artifacts.Model),
	}

	price, cached := p.cache.Get(generation, row)
	var err error
	if !cached {
		price, err = artifacts.PredictRow(row)
		if err == nil {
			p.cache.Add(generation, row, price)
		}
	}
	result.Duration = time.Since(start)
	result.Cached = cached

	if p.metrics != nil {
		p.metrics.RecordPrediction(result.Duration, cached, err)
	}
	if err == nil {
		result.Price = price
		result.Formatted = ml.FormatPrice(price)
	}
	p.record(ctx, result, err)

	if err != nil {
		p.logger.Warn("prediction failed",
			zap.String("city", city),
			zap.String("model_type", result.ModelType),
			zap.Error(err),
		)
		return nil, err
	}
	p.logger.Debug("prediction",
		zap.String("city", city),
		zap.Float64("price", price),
		zap.Bool("cached", cached),
		zap.Duration("duration", result.Duration),
	)
	return result, nil
}

// record writes history and publishes the event. Both are best effort.
func (p *Predictor) record(ctx context.Context, result *Prediction, predErr error) {
	errText := ""
	if predErr != nil {
		errText = predErr.Error()
	}
	if p.history != nil {
		_, err := p.history.SavePrediction(ctx, db.PredictionRecord{
			City:      result.City,
			ModelType: result.ModelType,
			Price:     result.Price,
			Error:     errText,
		}, result.Row)
		if err != nil {
			p.logger.Error("save prediction history failed", zap.Error(err))
		}
	}
	if p.publisher != nil {
		err := p.publisher.PublishPrediction(monitoring.PredictionMessage{
			City:      result.City,
			Price:     result.Price,
			Formatted: result.Formatted,
			Cached:    result.Cached,
			Error:     errText,
			ModelType: result.ModelType,
			Timestamp: time.Now(),
		})
		if err != nil {
			p.logger.Warn("publish prediction failed", zap.Error(err))
		}
	}
}

// Reload reloads the artifacts from disk.
func (p *Predictor) Reload() error {
	return p.store.Reload()
}
