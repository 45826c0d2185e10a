package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yoockh/labourline/internal/api/middleware"
	"github.com/yoockh/labourline/internal/models"
	"github.com/yoockh/labourline/internal/utils"
)

const testSecret = "test-secret"

type fakeFailures struct {
	rows     []models.PipelineFailure
	replayed []uint
}

func (f *fakeFailures) ListUnresolved(context.Context, int) ([]models.PipelineFailure, error) {
	return f.rows, nil
}

func (f *fakeFailures) Replay(_ context.Context, id uint) error {
	for _, r := range f.rows {
		if r.ID == id {
			f.replayed = append(f.replayed, id)
			return nil
		}
	}
	return utils.E(utils.CodeNotFound, "fakeFailures.Replay", "pipeline failure not found", utils.ErrNotFound)
}

func newOpsRouter(f *fakeFailures) *gin.Engine {
	gin.SetMode(gin.TestMode)
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	h := NewOpsHandler(f, log)
	r := gin.New()
	ops := r.Group("/ops")
	ops.Use(middleware.JWTAuth(middleware.JWTConfig{Secret: testSecret}), middleware.RequireAdmin())
	ops.GET("/pipeline-failures", h.ListFailures)
	ops.POST("/pipeline-failures/:id/replay", h.ReplayFailure)
	return r
}

func token(t *testing.T, role string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub": "operator-1",
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	if role != "" {
		claims["app_metadata"] = map[string]any{"role": role}
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func do(r *gin.Engine, method, path, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestOps_RequiresAdminToken(t *testing.T) {
	r := newOpsRouter(&fakeFailures{})

	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/ops/pipeline-failures", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/ops/pipeline-failures", "garbage").Code)
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodGet, "/ops/pipeline-failures", token(t, "")).Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/ops/pipeline-failures", token(t, "admin")).Code)
}

func TestOps_ListAndReplay(t *testing.T) {
	f := &fakeFailures{rows: []models.PipelineFailure{{ID: 7, CallID: "CA1", FailedStep: "notify"}}}
	r := newOpsRouter(f)
	admin := token(t, "admin")

	w := do(r, http.MethodGet, "/ops/pipeline-failures", admin)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Items []models.PipelineFailure `json:"items"`
		Count int                      `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)
	assert.Equal(t, "CA1", body.Items[0].CallID)

	w = do(r, http.MethodPost, "/ops/pipeline-failures/7/replay", admin)
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, []uint{7}, f.replayed)

	assert.Equal(t, http.StatusNotFound, do(r, http.MethodPost, "/ops/pipeline-failures/8/replay", admin).Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/ops/pipeline-failures/abc/replay", admin).Code)
}
