package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/ringlater/review-followup/internal/model"
	"github.com/ringlater/review-followup/internal/repo"
)

// AdminHandler serves the config plane: businesses, phone numbers,
// templates, and manual job operations.
type AdminHandler struct {
	businesses repo.BusinessRepository
	phones     repo.PhoneNumberRepository
	templates  repo.TemplateRepository
	jobs       repo.JobRepository

	apiKey   string
	validate *validator.Validate
}

func NewAdminHandler(
	businesses repo.BusinessRepository,
	phones repo.PhoneNumberRepository,
	templates repo.TemplateRepository,
	jobs repo.JobRepository,
	apiKey string,
) *AdminHandler {
	return &AdminHandler{
		businesses: businesses,
		phones:     phones,
		templates:  templates,
		jobs:       jobs,
		apiKey:     apiKey,
		validate:   validator.New(),
	}
}

// requireKey gates every admin route on the x-api-key header.
func (h *AdminHandler) requireKey(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != h.apiKey {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "unauthorized"})
			return
		}
		next(w, r)
	}
}

func (h *AdminHandler) ListBusinesses(w http.ResponseWriter, r *http.Request) {
	items, err := h.businesses.List(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

type createBusinessRequest struct {
	Name string `json:"name" validate:"required,min=1"`
}

func (h *AdminHandler) CreateBusiness(w http.ResponseWriter, r *http.Request) {
	var req createBusinessRequest
	if !h.decodeValid(w, r, &req) {
		return
	}

	b, err := h.businesses.Create(r.Context(), req.Name)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (h *AdminHandler) ListPhoneNumbers(w http.ResponseWriter, r *http.Request) {
	items, err := h.phones.List(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

type createPhoneNumberRequest struct {
	TwilioNumber       string `json:"twilio_number" validate:"required,e164"`
	BusinessID         string `json:"business_id" validate:"required,uuid"`
	Enabled            bool   `json:"enabled"`
	MinDurationSeconds *int   `json:"min_duration_seconds" validate:"omitempty,gt=0"`
	SendDelaySeconds   *int   `json:"send_delay_seconds" validate:"omitempty,gte=0"`
}

func (h *AdminHandler) CreatePhoneNumber(w http.ResponseWriter, r *http.Request) {
	var req createPhoneNumberRequest
	if !h.decodeValid(w, r, &req) {
		return
	}

	businessID, err := uuid.Parse(req.BusinessID)
	if err != nil {
		http.Error(w, "invalid business_id", http.StatusBadRequest)
		return
	}

	pn, err := h.phones.Create(r.Context(), model.PhoneNumber{
		TwilioNumber:       req.TwilioNumber,
		BusinessID:         businessID,
		Enabled:            req.Enabled,
		MinDurationSeconds: req.MinDurationSeconds,
		SendDelaySeconds:   req.SendDelaySeconds,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, pn)
}

func (h *AdminHandler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	businessID, err := uuid.Parse(r.PathValue("businessID"))
	if err != nil {
		http.Error(w, "invalid business id", http.StatusBadRequest)
		return
	}

	items, err := h.templates.List(r.Context(), businessID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

type createTemplateRequest struct {
	BusinessID string `json:"business_id" validate:"required,uuid"`
	Name       string `json:"name" validate:"required"`
	Body       string `json:"body" validate:"required"`
	IsDefault  bool   `json:"is_default"`
}

func (h *AdminHandler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	var req createTemplateRequest
	if !h.decodeValid(w, r, &req) {
		return
	}

	businessID, err := uuid.Parse(req.BusinessID)
	if err != nil {
		http.Error(w, "invalid business_id", http.StatusBadRequest)
		return
	}

	tpl, err := h.templates.Create(r.Context(), model.MessageTemplate{
		BusinessID: businessID,
		Name:       req.Name,
		Body:       req.Body,
		IsDefault:  req.IsDefault,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, tpl)
}

func (h *AdminHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	limit := parseInt(r.URL.Query().Get("limit"), 50)
	offset := parseInt(r.URL.Query().Get("offset"), 0)

	items, err := h.jobs.ListRecent(r.Context(), limit, offset)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// RequeueJob is the manual retry path for FAILED jobs; the processor
// itself never retries.
func (h *AdminHandler) RequeueJob(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid job id", http.StatusBadRequest)
		return
	}

	requeued, err := h.jobs.Requeue(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !requeued {
		writeJSON(w, http.StatusConflict, map[string]any{"error": "job is not in FAILED status"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"requeued": true})
}

func (h *AdminHandler) decodeValid(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return false
	}
	return true
}

func parseInt(raw string, def int) int {
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
