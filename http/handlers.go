package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"probeserve/monitoring"
	"probeserve/probe"
)

// serviceName 出现在健康检查消息中
var serviceName = "probeserve"

// Predictor 预测接口，便于测试注入
type Predictor interface {
	Predict(ctx context.Context, req probe.Request) (probe.Result, error)
}

var (
	probeCatalog *probe.Catalog
	engine       Predictor
	monitor      *monitoring.Monitor
)

// SetCatalog 注入探针目录
func SetCatalog(c *probe.Catalog) { probeCatalog = c }

// SetEngine 注入推理引擎
func SetEngine(p Predictor) { engine = p }

// SetMonitor 注入监控器
func SetMonitor(m *monitoring.Monitor) { monitor = m }

// SetServiceName 设置健康检查中的服务名
func SetServiceName(name string) {
	if name != "" {
		serviceName = name
	}
}

func RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", handleHealth)
	mux.HandleFunc("GET /v1/probes", handleListProbes)
	mux.HandleFunc("POST /v1/predict", handlePredict)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"message": serviceName + " is running",
	})
}

func handleListProbes(w http.ResponseWriter, r *http.Request) {
	if probeCatalog == nil {
		writeError(w, http.StatusInternalServerError, "probe catalog not initialized")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"probes": probeCatalog.List(),
	})
}

func handlePredict(w http.ResponseWriter, r *http.Request) {
	if engine == nil {
		writeError(w, http.StatusInternalServerError, "inference engine not initialized")
		return
	}

	var req probe.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	start := time.Now()
	result, err := engine.Predict(r.Context(), req)
	if monitor != nil {
		monitor.RecordPrediction(req.Model, req.Layer, result.PredictedProbability, time.Since(start), err)
	}
	if err != nil {
		writeError(w, predictStatus(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// predictStatus 将推理错误映射到HTTP状态码
func predictStatus(err error) int {
	var (
		unknownProbe *probe.UnknownProbeError
		invalidLayer *probe.InvalidLayerError
		dimMismatch  *probe.DimensionMismatchError
		noWeights    *probe.WeightsUnavailableError
	)
	switch {
	case errors.As(err, &unknownProbe):
		return http.StatusNotFound
	case errors.As(err, &invalidLayer):
		return http.StatusBadRequest
	case errors.As(err, &dimMismatch):
		return http.StatusBadRequest
	case errors.As(err, &noWeights):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
