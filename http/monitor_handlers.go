package http

import "net/http"

// RegisterMonitorHandlers 注册监控相关处理器
func RegisterMonitorHandlers(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/metrics", handleMetrics)
	mux.HandleFunc("GET /api/ws/monitor", handleMonitorWS)
}

func handleMetrics(w http.ResponseWriter, r *http.Request) {
	if monitor == nil {
		writeError(w, http.StatusServiceUnavailable, "monitoring not enabled")
		return
	}
	writeJSON(w, http.StatusOK, monitor.Snapshot())
}

func handleMonitorWS(w http.ResponseWriter, r *http.Request) {
	if monitor == nil || monitor.Hub() == nil {
		writeError(w, http.StatusServiceUnavailable, "monitoring not enabled")
		return
	}
	monitor.Hub().ServeWS(w, r)
}
