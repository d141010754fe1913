package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"studyspot/pkg/config"
	"studyspot/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func testConfig() *config.Config {
	return &config.Config{
		Environment:        "test",
		CORSAllowedOrigins: []string{"http://localhost:3000"},
	}
}

func TestNewEngine_Health(t *testing.T) {
	r := NewEngine(testConfig(), logger.New())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
}

func TestNewEngine_CORSPreflight(t *testing.T) {
	r := NewEngine(testConfig(), logger.New())
	r.POST("/api/v1/payments", func(c *gin.Context) {})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/payments", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestNewEngine_ForceHTTPS(t *testing.T) {
	cfg := testConfig()
	cfg.ForceHTTPS = true
	r := NewEngine(cfg, logger.New())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "http://api.studyspot.in/swagger/index.html", nil))
	assert.Equal(t, http.StatusPermanentRedirect, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "http://api.studyspot.in/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
