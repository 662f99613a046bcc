package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/qs3c/redact_go_server/internal/pkg/metrics"
)

func TestObserve(t *testing.T) {
	router := gin.New()
	router.Use(Observe())
	router.GET("/items/:id", func(c *gin.Context) {
		c.Status(http.StatusAccepted)
	})

	counter := metrics.HTTPRequests.WithLabelValues("GET", "/items/:id", "202")
	before := testutil.ToFloat64(counter)

	req := httptest.NewRequest("GET", "/items/42", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}

func TestObserve_KeepsRequestID(t *testing.T) {
	router := gin.New()
	router.Use(Observe())
	router.GET("/ping", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest("GET", "/ping", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "req-123", w.Header().Get(RequestIDHeader))
}
