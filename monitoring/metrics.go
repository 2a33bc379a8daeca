package monitoring

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 指标名称
const (
	MetricPredictions       = "predictions_total"
	MetricPredictionFailure = "prediction_failures_total"
	MetricCacheHits         = "cache_hits_total"
	MetricArtifactReloads   = "artifact_reloads_total"
)

// LatencySummary 预测耗时统计
type LatencySummary struct {
	Count int64   `json:"count"`
	MinMS float64 `json:"min_ms"`
	MaxMS float64 `json:"max_ms"`
	AvgMS float64 `json:"avg_ms"`
}

// Snapshot 指标快照
type Snapshot struct {
	Counters  map[string]int64 `json:"counters"`
	Latency   LatencySummary   `json:"latency"`
	StartTime time.Time        `json:"start_time"`
	Uptime    string           `json:"uptime"`
}

// MetricsCollector 指标收集器
type MetricsCollector struct {
	mu        sync.RWMutex
	counters  map[string]int64
	latency   LatencySummary
	totalMS   float64
	startTime time.Time

	registry    *prometheus.Registry
	predictions *prometheus.CounterVec
	cacheHits   prometheus.Counter
	reloads     prometheus.Counter
	duration    prometheus.Histogram
}

// NewMetricsCollector 创建指标收集器
func NewMetricsCollector() *MetricsCollector {
	mc := &MetricsCollector{
		counters: map[string]int64{
			MetricPredictions:       0,
			MetricPredictionFailure: 0,
			MetricCacheHits:         0,
			MetricArtifactReloads:   0,
		},
		startTime: time.Now(),
		registry:  prometheus.NewRegistry(),
		predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pricepred_predictions_total",
			Help: "Predictions served, by outcome.",
		}, []string{"outcome"}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pricepred_cache_hits_total",
			Help: "Predictions answered from the cache.",
		}),
		reloads: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pricepred_artifact_reloads_total",
			Help: "Model and schema reloads.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pricepred_prediction_duration_seconds",
			Help:    "Time spent encoding and predicting.",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
		}),
	}
	mc.registry.MustRegister(mc.predictions, mc.cacheHits, mc.reloads, mc.duration)
	return mc
}

// RecordPrediction 记录一次预测
func (mc *MetricsCollector) RecordPrediction(d time.Duration, cached bool, err error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.counters[MetricPredictions]++
	outcome := "success"
	if err != nil {
		mc.counters[MetricPredictionFailure]++
		outcome = "failure"
	}
	if cached {
		mc.counters[MetricCacheHits]++
		mc.cacheHits.Inc()
	}
	mc.predictions.WithLabelValues(outcome).Inc()
	mc.duration.Observe(d.Seconds())

	ms := float64(d) / float64(time.Millisecond)
	if mc.latency.Count == 0 || ms < mc.latency.MinMS {
		mc.latency.MinMS = ms
	}
	if ms > mc.latency.MaxMS {
		mc.latency.MaxMS = ms
	}
	mc.latency.Count++
	mc.totalMS += ms
	mc.latency.AvgMS = mc.totalMS / float64(mc.latency.Count)
}

// RecordReload 记录一次模型重载
func (mc *MetricsCollector) RecordReload() {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.counters[MetricArtifactReloads]++
	mc.reloads.Inc()
}

// Snapshot 获取指标快照
func (mc *MetricsCollector) Snapshot() Snapshot {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	counters := make(map[string]int64, len(mc.counters))
	for k, v := range mc.counters {
		counters[k] = v
	}
	return Snapshot{
		Counters:  counters,
		Latency:   mc.latency,
		StartTime: mc.startTime,
		Uptime:    time.Since(mc.startTime).Round(time.Second).String(),
	}
}

// Handler 返回Prometheus格式的指标处理器
func (mc *MetricsCollector) Handler() http.Handler {
	return promhttp.HandlerFor(mc.registry, promhttp.HandlerOpts{})
}
