package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yoockh/labourline/internal/models"
	"github.com/yoockh/labourline/internal/providers/voice"
	"github.com/yoockh/labourline/internal/services"
	"github.com/yoockh/labourline/internal/sessions"
)

const baseURL = "https://ivr.example.com"

type countingDispatcher struct {
	mu    sync.Mutex
	calls []string
}

func (d *countingDispatcher) Dispatch(_ context.Context, callID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, callID)
	return nil
}

type nopAbandoner struct{}

func (nopAbandoner) Abandon(context.Context, string, error) {}

type memCallLogs struct {
	mu      sync.Mutex
	entries []services.CallLogEntry
}

func (m *memCallLogs) Record(_ context.Context, e services.CallLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

type nopTelemetry struct{}

func (nopTelemetry) Publish(context.Context, models.CallEvent) {}

type ivrFixture struct {
	router     *gin.Engine
	store      *sessions.MemoryStore
	dispatcher *countingDispatcher
	logs       *memCallLogs
}

func newIVRFixture() *ivrFixture {
	gin.SetMode(gin.TestMode)

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	fx := &ivrFixture{
		store:      sessions.NewMemoryStore(time.Minute),
		dispatcher: &countingDispatcher{},
		logs:       &memCallLogs{},
	}
	flow := services.NewCallFlowService(fx.store, fx.dispatcher, nopAbandoner{}, fx.logs, nopTelemetry{}, log)
	h := NewIVRHandler(flow, voice.NewRenderer(baseURL, 5, 30), log)

	r := gin.New()
	r.POST("/ivr/welcome", h.Welcome)
	r.POST("/ivr/language", h.Language)
	r.POST("/ivr/purpose", h.Purpose)
	r.POST("/ivr/record/:field", h.Record)
	r.POST("/ivr/recording-status", h.RecordingStatus)
	r.POST("/ivr/status", h.Status)
	fx.router = r
	return fx
}

func (fx *ivrFixture) post(t *testing.T, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	fx.router.ServeHTTP(w, req)
	return w
}

func TestIVR_FullEmployerCall(t *testing.T) {
	fx := newIVRFixture()

	w := fx.post(t, "/ivr/welcome", url.Values{"CallSid": {"CA1"}, "From": {"+919800000001"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/xml")
	assert.Contains(t, w.Body.String(), "<Gather")
	assert.Contains(t, w.Body.String(), baseURL+"/Audio/en/welcome.mp3")

	w = fx.post(t, "/ivr/language", url.Values{"CallSid": {"CA1"}, "Digits": {"3"}})
	assert.Contains(t, w.Body.String(), `action="`+baseURL+`/ivr/purpose"`)
	assert.Contains(t, w.Body.String(), "/Audio/hi/")

	w = fx.post(t, "/ivr/purpose", url.Values{"CallSid": {"CA1"}, "Digits": {"2"}})
	assert.Contains(t, w.Body.String(), "<Record")
	assert.Contains(t, w.Body.String(), `action="`+baseURL+`/ivr/record/type_of_work"`)

	w = fx.post(t, "/ivr/record/type_of_work", url.Values{"CallSid": {"CA1"}, "RecordingUrl": {"https://api.twilio.com/rec/RE1"}})
	assert.Contains(t, w.Body.String(), `action="`+baseURL+`/ivr/record/location"`)

	w = fx.post(t, "/ivr/record/location", url.Values{"CallSid": {"CA1"}, "RecordingUrl": {"https://api.twilio.com/rec/RE2"}})
	assert.Contains(t, w.Body.String(), "/Audio/hi/completion_employer.mp3")
	assert.Contains(t, w.Body.String(), "<Hangup")

	assert.Equal(t, []string{"CA1"}, fx.dispatcher.calls)
}

func TestIVR_UnknownCallGetsExpiredMessage(t *testing.T) {
	fx := newIVRFixture()

	w := fx.post(t, "/ivr/language", url.Values{"CallSid": {"CA404"}, "Digits": {"1"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), voice.ExpiredMessage(models.LanguageEnglish))
	assert.Contains(t, w.Body.String(), "<Hangup")
}

func TestIVR_MissingCallSid(t *testing.T) {
	fx := newIVRFixture()

	w := fx.post(t, "/ivr/welcome", url.Values{"From": {"+919800000001"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), voice.ExpiredMessage(models.LanguageEnglish))
	assert.Equal(t, 0, fx.store.Len())
}

func TestIVR_StatusCallbackDropsUnfinishedCall(t *testing.T) {
	fx := newIVRFixture()

	fx.post(t, "/ivr/welcome", url.Values{"CallSid": {"CA1"}, "From": {"+919800000001"}})
	w := fx.post(t, "/ivr/status", url.Values{"CallSid": {"CA1"}, "CallStatus": {"no-answer"}})

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, 0, fx.store.Len())
	require.Len(t, fx.logs.entries, 1)
	assert.Equal(t, models.CallDropped, fx.logs.entries[0].Status)
}

func TestIVR_RecordingStatusAcknowledged(t *testing.T) {
	fx := newIVRFixture()

	w := fx.post(t, "/ivr/recording-status", url.Values{"CallSid": {"CA1"}, "RecordingSid": {"RE1"}})
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
}
