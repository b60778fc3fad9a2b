package model

import (
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	JobQueued     JobStatus = "QUEUED"
	JobSent       JobStatus = "SENT"
	JobFailed     JobStatus = "FAILED"
	JobSuppressed JobStatus = "SUPPRESSED"
)

// SuppressReasonNoValidSendTime marks jobs admitted outside any reachable
// send window.
const SuppressReasonNoValidSendTime = "no_valid_send_time"

type Business struct {
	ID                        uuid.UUID `json:"id"`
	Name                      string    `json:"name"`
	DefaultMinDurationSeconds int       `json:"default_min_duration_seconds"`
	DefaultSendDelaySeconds   int       `json:"default_send_delay_seconds"`
	Timezone                  string    `json:"timezone"`
	SendWindowStartLocal      string    `json:"send_window_start_local"`
	SendWindowEndLocal        string    `json:"send_window_end_local"`
	SendWithinHours           int       `json:"send_within_hours"`
	CreatedAt                 time.Time `json:"created_at"`
}

type PhoneNumber struct {
	ID                 uuid.UUID `json:"id"`
	TwilioNumber       string    `json:"twilio_number"`
	BusinessID         uuid.UUID `json:"business_id"`
	MinDurationSeconds *int      `json:"min_duration_seconds"`
	SendDelaySeconds   *int      `json:"send_delay_seconds"`
	Enabled            bool      `json:"enabled"`
	CreatedAt          time.Time `json:"created_at"`
}

type MessageTemplate struct {
	ID         uuid.UUID `json:"id"`
	BusinessID uuid.UUID `json:"business_id"`
	Name       string    `json:"name"`
	Body       string    `json:"body"`
	IsDefault  bool      `json:"is_default"`
	CreatedAt  time.Time `json:"created_at"`
}

// CallEvent is the upstream view of a voice call. DurationSeconds is nil
// until the provider reports a completed call with a known duration.
type CallEvent struct {
	CallSID         string
	FromNumber      string
	ToNumber        string
	CallStatus      string
	DurationSeconds *int
	RawPayload      []byte
}

// SendPolicy is the effective follow-up policy for one phone number,
// derived at admission time from the number row, its business row and the
// business's default template. It is never persisted.
type SendPolicy struct {
	BusinessID           uuid.UUID
	PhoneNumberID        uuid.UUID
	Enabled              bool
	Timezone             string
	SendWindowStartLocal string
	SendWindowEndLocal   string
	MinDurationSeconds   int
	SendDelaySeconds     int
	SendWithinHours      int
	TemplateBody         *string
}

type Job struct {
	ID             uuid.UUID  `json:"id"`
	BusinessID     uuid.UUID  `json:"business_id"`
	PhoneNumberID  uuid.UUID  `json:"phone_number_id"`
	CallSID        string     `json:"call_sid"`
	ToNumber       string     `json:"to_number"`
	TemplateBody   *string    `json:"template_body"`
	Status         JobStatus  `json:"status"`
	ScheduledAt    *time.Time `json:"scheduled_at"`
	SentAt         *time.Time `json:"sent_at"`
	LastError      *string    `json:"last_error"`
	SuppressReason *string    `json:"suppress_reason"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// NewJob carries the fields Job Admission decides; everything else is
// assigned by the store.
type NewJob struct {
	BusinessID     uuid.UUID
	PhoneNumberID  uuid.UUID
	CallSID        string
	ToNumber       string
	TemplateBody   *string
	Status         JobStatus
	ScheduledAt    *time.Time
	SuppressReason *string
}
