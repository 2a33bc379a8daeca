package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"pricepred/db"
	"pricepred/ml"
	"pricepred/monitoring"
	"pricepred/service"

	"go.uber.org/zap"
)

const streamPath = "/api/ws/predictions"

// HistoryReader 预测历史查询
type HistoryReader interface {
	RecentPredictions(ctx context.Context, limit int) ([]db.PredictionRecord, error)
}

// API 处理器依赖
type API struct {
	predictor *service.Predictor
	history   HistoryReader
	metrics   *monitoring.MetricsCollector
	stream    http.Handler
	logger    *zap.Logger
}

// NewAPI 创建处理器依赖。history、metrics、stream可以为nil
func NewAPI(predictor *service.Predictor, history HistoryReader, metrics *monitoring.MetricsCollector, stream http.Handler, logger *zap.Logger) *API {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &API{
		predictor: predictor,
		history:   history,
		metrics:   metrics,
		stream:    stream,
		logger:    logger,
	}
}

// RegisterHandlers 注册所有处理器
func RegisterHandlers(mux *http.ServeMux, api *API) {
	mux.HandleFunc("GET /{$}", api.handleForm)
	mux.HandleFunc("POST /{$}", api.handleFormSubmit)

	mux.HandleFunc("GET /api/health", handleHealth)
	mux.HandleFunc("GET /api/schema", api.handleSchema)
	mux.HandleFunc("POST /api/predict", api.handlePredict)
	mux.HandleFunc("GET /api/predictions", api.handlePredictions)
	mux.HandleFunc("GET /api/stats", api.handleStats)
	mux.HandleFunc("POST /api/reload", api.handleReload)

	if api.metrics != nil {
		mux.Handle("GET /metrics", api.metrics.Handler())
	}
	if api.stream != nil {
		mux.Handle("GET "+streamPath, api.stream)
	}
}

// PredictRequest 预测请求。缺省字段取表单默认值
type PredictRequest struct {
	ml.HouseFeatures
	City string `json:"city"`
}

// SchemaResponse 特征结构
type SchemaResponse struct {
	Columns     []string         `json:"columns"`
	CityOptions []string         `json:"city_options"`
	Bounds      []ml.Bound       `json:"bounds"`
	Defaults    ml.HouseFeatures `json:"defaults"`
	ModelType   string           `json:"model_type"`
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) handleSchema(w http.ResponseWriter, r *http.Request) {
	artifacts, err := a.predictor.Artifacts()
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, SchemaResponse{
		Columns:     artifacts.Schema.Columns(),
		CityOptions: artifacts.Schema.CityOptions(),
		Bounds:      ml.InputBounds(),
		Defaults:    ml.DefaultHouseFeatures(),
		ModelType:   ml.ModelType(artifacts.Model),
	})
}

func (a *API) handlePredict(w http.ResponseWriter, r *http.Request) {
	req := PredictRequest{HouseFeatures: ml.DefaultHouseFeatures(), City: ml.OtherCity}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.City == "" {
		req.City = ml.OtherCity
	}
	if err := req.HouseFeatures.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	prediction, err := a.predictor.Predict(r.Context(), req.HouseFeatures, req.City)
	if err != nil {
		respondError(w, predictionStatus(err), err.Error())
		return
	}
	respondJSON(w, http.StatusOK, prediction)
}

func (a *API) handlePredictions(w http.ResponseWriter, r *http.Request) {
	if a.history == nil {
		respondError(w, http.StatusNotFound, "prediction history is disabled")
		return
	}
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 && v <= 1000 {
			limit = v
		}
	}
	records, err := a.history.RecentPredictions(r.Context(), limit)
	if err != nil {
		a.logger.Error("query prediction history failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to load prediction history")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(records),
		"data":  records,
	})
}

func (a *API) handleStats(w http.ResponseWriter, r *http.Request) {
	if a.metrics == nil {
		respondError(w, http.StatusNotFound, "metrics are disabled")
		return
	}
	respondJSON(w, http.StatusOK, a.metrics.Snapshot())
}

func (a *API) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := a.predictor.Reload(); err != nil {
		a.logger.Error("manual artifact reload failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	artifacts, _ := a.predictor.Artifacts()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "reloaded",
		"model_type": ml.ModelType(artifacts.Model),
		"columns":    artifacts.Schema.Len(),
		"loaded_at":  artifacts.LoadedAt,
	})
}

// predictionStatus 预测错误对应的状态码
func predictionStatus(err error) int {
	if errors.Is(err, service.ErrNoArtifacts) {
		return http.StatusServiceUnavailable
	}
	var predErr *ml.PredictionError
	if errors.As(err, &predErr) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// respondJSON 统一JSON响应
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
