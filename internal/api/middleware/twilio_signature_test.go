package middleware

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

const (
	testAuthToken = "12345"
	testBaseURL   = "https://ivr.example.com"
)

// sign computes the provider signature: HMAC-SHA1 over the URL followed by
// the sorted form keys and values.
func sign(token, fullURL string, form url.Values) string {
	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(fullURL)
	for _, k := range keys {
		b.WriteString(k)
		b.WriteString(form.Get(k))
	}
	mac := hmac.New(sha1.New, []byte(token))
	mac.Write([]byte(b.String()))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func signedRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	g := r.Group("/ivr", TwilioSignature(testAuthToken, testBaseURL))
	g.POST("/welcome", func(c *gin.Context) {
		c.String(http.StatusOK, c.PostForm("From"))
	})
	return r
}

func postWelcome(r *gin.Engine, form url.Values, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/ivr/welcome", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if signature != "" {
		req.Header.Set("X-Twilio-Signature", signature)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestTwilioSignature_AcceptsSignedWebhook(t *testing.T) {
	r := signedRouter()
	form := url.Values{"CallSid": {"CA1"}, "From": {"+919800000001"}}

	w := postWelcome(r, form, sign(testAuthToken, testBaseURL+"/ivr/welcome", form))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "+919800000001", w.Body.String())
}

func TestTwilioSignature_RejectsTamperedOrUnsigned(t *testing.T) {
	r := signedRouter()
	form := url.Values{"CallSid": {"CA1"}, "From": {"+919800000001"}}
	sig := sign(testAuthToken, testBaseURL+"/ivr/welcome", form)

	tampered := url.Values{"CallSid": {"CA1"}, "From": {"+919811111111"}}
	assert.Equal(t, http.StatusForbidden, postWelcome(r, tampered, sig).Code)

	assert.Equal(t, http.StatusForbidden, postWelcome(r, form, "").Code)

	wrongKey := sign("other-token", testBaseURL+"/ivr/welcome", form)
	assert.Equal(t, http.StatusForbidden, postWelcome(r, form, wrongKey).Code)
}
