package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orris-inc/billing/internal/shared/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type recordedRequest struct {
	method string
	path   string
	status int
}

type fakeHTTPRecorder struct {
	mu       sync.Mutex
	requests []recordedRequest
}

func (r *fakeHTTPRecorder) HTTPRequest(method, path string, status int, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, recordedRequest{method, path, status})
}

func TestMetrics_UsesRouteTemplate(t *testing.T) {
	rec := &fakeHTTPRecorder{}
	engine := gin.New()
	engine.Use(Metrics(rec))
	engine.GET("/subscriptions/:sid", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/subscriptions/sub_42", nil))

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	require.Len(t, rec.requests, 2)
	assert.Equal(t, recordedRequest{http.MethodGet, "/subscriptions/:sid", http.StatusNoContent}, rec.requests[0])
	assert.Equal(t, "unmatched", rec.requests[1].path)
	assert.Equal(t, http.StatusNotFound, rec.requests[1].status)
}

func TestRecovery_ReturnsInternalError(t *testing.T) {
	engine := gin.New()
	engine.Use(Recovery(logger.NewNopLogger()), Logger(logger.NewNopLogger()))
	engine.GET("/panic", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Internal server error occurred")
	assert.NotContains(t, w.Body.String(), "boom")
}
