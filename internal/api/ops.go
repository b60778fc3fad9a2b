package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ringlater/review-followup/internal/scheduler"
)

// OpsHandler exposes the worker's process lifecycle: pause and resume the
// processor loop, and report whether it is running.
type OpsHandler struct {
	sched *scheduler.Scheduler
}

func NewOpsHandler(s *scheduler.Scheduler) *OpsHandler {
	return &OpsHandler{sched: s}
}

func (h *OpsHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *OpsHandler) ProcessorStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"running": h.sched.IsRunning()})
}

func (h *OpsHandler) ProcessorStart(w http.ResponseWriter, r *http.Request) {
	h.sched.Start()
	writeJSON(w, http.StatusOK, map[string]any{"running": h.sched.IsRunning()})
}

func (h *OpsHandler) ProcessorStop(w http.ResponseWriter, r *http.Request) {
	h.sched.Stop()
	writeJSON(w, http.StatusOK, map[string]any{"running": h.sched.IsRunning()})
}

// OpsRouter is mounted by the worker binary.
func OpsRouter(h *OpsHandler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/health", h.Health)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /v1/processor/status", h.ProcessorStatus)
	mux.HandleFunc("POST /v1/processor/start", h.ProcessorStart)
	mux.HandleFunc("POST /v1/processor/stop", h.ProcessorStop)

	return mux
}
