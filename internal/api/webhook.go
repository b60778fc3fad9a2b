package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/ringlater/review-followup/internal/model"
	"github.com/ringlater/review-followup/internal/repo"
)

// Admitter is the slice of the admission service the webhook needs.
type Admitter interface {
	Admit(ctx context.Context, ev model.CallEvent) error
}

// WebhookHandler receives Twilio voice status callbacks. The raw event is
// always persisted first; admission runs only for completed calls, and a
// suppress/skip decision is still a 200 to the provider.
type WebhookHandler struct {
	events    repo.CallEventRepository
	admission Admitter

	authToken     string
	publicBaseURL string
	validate      *validator.Validate
}

func NewWebhookHandler(events repo.CallEventRepository, admission Admitter, authToken, publicBaseURL string) *WebhookHandler {
	return &WebhookHandler{
		events:        events,
		admission:     admission,
		authToken:     authToken,
		publicBaseURL: publicBaseURL,
		validate:      validator.New(),
	}
}

type voiceStatusPayload struct {
	CallSid    string `validate:"required"`
	From       string `validate:"required"`
	To         string `validate:"required"`
	CallStatus string `validate:"required"`
}

const voiceStatusPath = "/webhooks/twilio/voice-status"

func (h *WebhookHandler) VoiceStatus(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form payload", http.StatusBadRequest)
		return
	}

	callbackURL, err := url.JoinPath(h.publicBaseURL, voiceStatusPath)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if !validTwilioSignature(h.authToken, r.Header.Get("X-Twilio-Signature"), callbackURL, r.PostForm) {
		http.Error(w, "invalid signature", http.StatusForbidden)
		return
	}

	payload := voiceStatusPayload{
		CallSid:    r.PostForm.Get("CallSid"),
		From:       r.PostForm.Get("From"),
		To:         r.PostForm.Get("To"),
		CallStatus: r.PostForm.Get("CallStatus"),
	}
	if err := h.validate.Struct(payload); err != nil {
		http.Error(w, "missing required fields", http.StatusBadRequest)
		return
	}

	var duration *int
	if raw := r.PostForm.Get("CallDuration"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			http.Error(w, "invalid CallDuration", http.StatusBadRequest)
			return
		}
		duration = &v
	}

	rawPayload, err := json.Marshal(flattenForm(r.PostForm))
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	ev := model.CallEvent{
		CallSID:         payload.CallSid,
		FromNumber:      payload.From,
		ToNumber:        payload.To,
		CallStatus:      payload.CallStatus,
		DurationSeconds: duration,
		RawPayload:      rawPayload,
	}

	if err := h.events.Upsert(r.Context(), ev); err != nil {
		slog.Error("call event upsert failed", "call_sid", ev.CallSID, "err", err)
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}

	if payload.CallStatus == "completed" {
		if err := h.admission.Admit(r.Context(), ev); err != nil {
			slog.Error("job admission failed", "call_sid", ev.CallSID, "err", err)
			http.Error(w, "storage error", http.StatusInternalServerError)
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func flattenForm(form url.Values) map[string]string {
	out := make(map[string]string, len(form))
	for k := range form {
		out[k] = form.Get(k)
	}
	return out
}
