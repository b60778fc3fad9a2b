package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router wires the webhook plane and the admin plane into one server.
func Router(webhook *WebhookHandler, admin *AdminHandler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("POST /webhooks/twilio/voice-status", webhook.VoiceStatus)

	mux.HandleFunc("GET /admin/businesses", admin.requireKey(admin.ListBusinesses))
	mux.HandleFunc("POST /admin/businesses", admin.requireKey(admin.CreateBusiness))
	mux.HandleFunc("GET /admin/phone-numbers", admin.requireKey(admin.ListPhoneNumbers))
	mux.HandleFunc("POST /admin/phone-numbers", admin.requireKey(admin.CreatePhoneNumber))
	mux.HandleFunc("GET /admin/businesses/{businessID}/templates", admin.requireKey(admin.ListTemplates))
	mux.HandleFunc("POST /admin/templates", admin.requireKey(admin.CreateTemplate))
	mux.HandleFunc("GET /admin/jobs", admin.requireKey(admin.ListJobs))
	mux.HandleFunc("POST /admin/jobs/{id}/requeue", admin.requireKey(admin.RequeueJob))

	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("review-followup"))
	})

	return mux
}
