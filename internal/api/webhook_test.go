package api

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ringlater/review-followup/internal/model"
	"github.com/ringlater/review-followup/internal/repo"
)

const (
	testAuthToken = "twilio-auth-token"
	testBaseURL   = "https://hooks.example.com"
)

type fakeEventRepo struct {
	mu     sync.Mutex
	events []model.CallEvent
	err    error
}

var _ repo.CallEventRepository = (*fakeEventRepo)(nil)

func (f *fakeEventRepo) Upsert(ctx context.Context, ev model.CallEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, ev)
	return nil
}

type fakeAdmitter struct {
	mu       sync.Mutex
	admitted []model.CallEvent
	err      error
}

func (f *fakeAdmitter) Admit(ctx context.Context, ev model.CallEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.admitted = append(f.admitted, ev)
	return nil
}

func signForm(form url.Values) string {
	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	mac := hmac.New(sha1.New, []byte(testAuthToken))
	mac.Write([]byte(testBaseURL + voiceStatusPath))
	for _, k := range keys {
		mac.Write([]byte(k))
		mac.Write([]byte(form.Get(k)))
	}
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func postVoiceStatus(t *testing.T, h *WebhookHandler, form url.Values, signature string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, voiceStatusPath, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Twilio-Signature", signature)

	rr := httptest.NewRecorder()
	h.VoiceStatus(rr, req)
	return rr
}

func completedForm() url.Values {
	return url.Values{
		"CallSid":      {"CA123"},
		"From":         {"+15557770001"},
		"To":           {"+15551230001"},
		"CallStatus":   {"completed"},
		"CallDuration": {"240"},
	}
}

func TestVoiceStatus_CompletedCallIsStoredAndAdmitted(t *testing.T) {
	t.Parallel()

	events := &fakeEventRepo{}
	admitter := &fakeAdmitter{}
	h := NewWebhookHandler(events, admitter, testAuthToken, testBaseURL)

	form := completedForm()
	rr := postVoiceStatus(t, h, form, signForm(form))

	require.Equal(t, http.StatusOK, rr.Code)

	require.Len(t, events.events, 1)
	ev := events.events[0]
	assert.Equal(t, "CA123", ev.CallSID)
	assert.Equal(t, "+15557770001", ev.FromNumber)
	assert.Equal(t, "+15551230001", ev.ToNumber)
	assert.Equal(t, "completed", ev.CallStatus)
	require.NotNil(t, ev.DurationSeconds)
	assert.Equal(t, 240, *ev.DurationSeconds)
	assert.Contains(t, string(ev.RawPayload), `"CallSid":"CA123"`)

	require.Len(t, admitter.admitted, 1)
	assert.Equal(t, "CA123", admitter.admitted[0].CallSID)
}

func TestVoiceStatus_InvalidSignatureIsRejected(t *testing.T) {
	t.Parallel()

	events := &fakeEventRepo{}
	admitter := &fakeAdmitter{}
	h := NewWebhookHandler(events, admitter, testAuthToken, testBaseURL)

	rr := postVoiceStatus(t, h, completedForm(), "bogus-signature")

	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Empty(t, events.events)
	assert.Empty(t, admitter.admitted)
}

func TestVoiceStatus_SignatureCoversParams(t *testing.T) {
	t.Parallel()

	events := &fakeEventRepo{}
	h := NewWebhookHandler(events, &fakeAdmitter{}, testAuthToken, testBaseURL)

	// Sign one payload, send a tampered one.
	signature := signForm(completedForm())
	tampered := completedForm()
	tampered.Set("From", "+19998887777")

	rr := postVoiceStatus(t, h, tampered, signature)

	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Empty(t, events.events)
}

func TestVoiceStatus_MissingRequiredFields(t *testing.T) {
	t.Parallel()

	h := NewWebhookHandler(&fakeEventRepo{}, &fakeAdmitter{}, testAuthToken, testBaseURL)

	form := completedForm()
	form.Del("CallSid")

	rr := postVoiceStatus(t, h, form, signForm(form))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestVoiceStatus_InvalidDuration(t *testing.T) {
	t.Parallel()

	h := NewWebhookHandler(&fakeEventRepo{}, &fakeAdmitter{}, testAuthToken, testBaseURL)

	form := completedForm()
	form.Set("CallDuration", "soon")

	rr := postVoiceStatus(t, h, form, signForm(form))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestVoiceStatus_NonCompletedCallSkipsAdmission(t *testing.T) {
	t.Parallel()

	events := &fakeEventRepo{}
	admitter := &fakeAdmitter{}
	h := NewWebhookHandler(events, admitter, testAuthToken, testBaseURL)

	form := completedForm()
	form.Set("CallStatus", "ringing")
	form.Del("CallDuration")

	rr := postVoiceStatus(t, h, form, signForm(form))

	require.Equal(t, http.StatusOK, rr.Code)
	require.Len(t, events.events, 1)
	assert.Nil(t, events.events[0].DurationSeconds)
	assert.Empty(t, admitter.admitted)
}

func TestVoiceStatus_StorageFailures(t *testing.T) {
	t.Parallel()

	t.Run("event upsert fails", func(t *testing.T) {
		t.Parallel()

		h := NewWebhookHandler(&fakeEventRepo{err: errors.New("db down")}, &fakeAdmitter{}, testAuthToken, testBaseURL)

		form := completedForm()
		rr := postVoiceStatus(t, h, form, signForm(form))

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})

	t.Run("admission fails", func(t *testing.T) {
		t.Parallel()

		h := NewWebhookHandler(&fakeEventRepo{}, &fakeAdmitter{err: errors.New("db down")}, testAuthToken, testBaseURL)

		form := completedForm()
		rr := postVoiceStatus(t, h, form, signForm(form))

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})
}
