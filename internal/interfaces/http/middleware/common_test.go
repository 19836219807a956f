package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/erp/stockledger/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestRequestID(t *testing.T) {
	router := gin.New()
	router.Use(RequestID())
	router.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(RequestIDKey))
	})

	t.Run("generates an id", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
		assert.Len(t, w.Body.String(), 32)
		assert.Equal(t, w.Body.String(), w.Header().Get(RequestIDKey))
	})

	t.Run("keeps the caller's id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(RequestIDKey, "req-42")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, "req-42", w.Body.String())
	})

	t.Run("truncates oversized ids", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(RequestIDKey, strings.Repeat("a", 500))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Len(t, w.Body.String(), MaxRequestIDLength)
	})
}

func TestActor(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	router := gin.New()
	router.Use(RequestID(), logger.GinMiddleware(zap.New(core)), Actor())
	router.GET("/test", func(c *gin.Context) {
		logger.L(c.Request.Context()).Info("handled")
		c.String(http.StatusOK, logger.GetActor(c.Request.Context()))
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(ActorHeader, "warehouse-ops")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "warehouse-ops", w.Body.String())
	entries := logs.FilterMessage("handled").All()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, "warehouse-ops", entries[0].ContextMap()["actor"])
	}
}

func TestCORS(t *testing.T) {
	cfg := DefaultCORSConfig()
	cfg.AllowOrigins = []string{"https://ops.example.com"}
	router := gin.New()
	router.Use(CORSWithConfig(cfg))
	router.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	t.Run("allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("Origin", "https://ops.example.com")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, "https://ops.example.com", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), ActorHeader)
	})

	t.Run("unknown origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/test", nil)
		req.Header.Set("Origin", "https://ops.example.com")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "43200", w.Header().Get("Access-Control-Max-Age"))
	})
}
