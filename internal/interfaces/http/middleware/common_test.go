package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/invest/ledger/internal/infrastructure/config"
	"github.com/invest/ledger/internal/infrastructure/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func corsRouter(cfg CORSConfig) *gin.Engine {
	r := gin.New()
	r.Use(CORS(cfg))
	r.GET("/test", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	return r
}

func TestCORS(t *testing.T) {
	cfg := CORSConfigFromHTTP(config.HTTPConfig{
		CORSAllowOrigins: []string{"https://app.example.com"},
		CORSAllowMethods: []string{"GET", "POST"},
		CORSAllowHeaders: []string{"Content-Type", "Idempotency-Key"},
	})

	t.Run("allowed origin gets headers", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("Origin", "https://app.example.com")
		w := httptest.NewRecorder()
		corsRouter(cfg).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
		assert.Equal(t, "Content-Type, Idempotency-Key", w.Header().Get("Access-Control-Allow-Headers"))
		assert.Equal(t, "43200", w.Header().Get("Access-Control-Max-Age"))
	})

	t.Run("unknown origin gets nothing", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		w := httptest.NewRecorder()
		corsRouter(cfg).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight is answered with 204", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/test", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		w := httptest.NewRecorder()
		corsRouter(cfg).ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("wildcard never allows credentials", func(t *testing.T) {
		wild := cfg
		wild.AllowOrigins = []string{"*"}
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("Origin", "https://any.example.com")
		w := httptest.NewRecorder()
		corsRouter(wild).ServeHTTP(w, req)

		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))
	})
}

func TestRequestID(t *testing.T) {
	var seenRequestID, seenKey string
	r := gin.New()
	r.Use(RequestID())
	r.GET("/test", func(c *gin.Context) {
		seenRequestID = logger.RequestID(c.Request.Context())
		seenKey = logger.IdempotencyKey(c.Request.Context())
		c.Status(http.StatusOK)
	})

	t.Run("propagates caller id and idempotency key", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(RequestIDHeader, "req-42")
		req.Header.Set(IdempotencyKeyHeader, " pay-1 ")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, "req-42", w.Header().Get(RequestIDHeader))
		assert.Equal(t, "req-42", seenRequestID)
		assert.Equal(t, "pay-1", seenKey)
	})

	t.Run("mints an id when absent", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		id := w.Header().Get(RequestIDHeader)
		require.Len(t, id, 36)
		assert.Equal(t, id, seenRequestID)
		assert.Empty(t, seenKey)
	})
}

func TestSecure(t *testing.T) {
	serve := func(cfg SecurityConfig) http.Header {
		r := gin.New()
		r.Use(Secure(cfg))
		r.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
		return w.Header()
	}

	dev := serve(SecurityConfigFor("development"))
	assert.Equal(t, "DENY", dev.Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", dev.Get("X-Content-Type-Options"))
	assert.Equal(t, "no-store", dev.Get("Cache-Control"))
	assert.Empty(t, dev.Get("Strict-Transport-Security"))

	prod := serve(SecurityConfigFor("production"))
	assert.Equal(t, "max-age=31536000; includeSubDomains", prod.Get("Strict-Transport-Security"))

	custom := serve(SecurityConfig{HSTSMaxAge: time.Hour})
	assert.Equal(t, "max-age=3600", custom.Get("Strict-Transport-Security"))
	assert.Empty(t, custom.Get("Content-Security-Policy"))
}
