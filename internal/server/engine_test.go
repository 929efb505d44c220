package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func TestEngineRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var buf bytes.Buffer
	engine := NewEngine(zerolog.New(&buf))
	var seen string
	engine.POST("/*path", func(c *gin.Context) {
		log := LoggerFrom(c.Request.Context(), zerolog.Nop())
		log.Info().Msg("inside")
		seen = c.Writer.Header().Get(RequestIDHeader)
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/any/path", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	resp := httptest.NewRecorder()
	engine.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if seen != "req-123" || resp.Header().Get(RequestIDHeader) != "req-123" {
		t.Fatalf("expected request id to be propagated, got %q", seen)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines, got %d: %s", len(lines), buf.String())
	}
	for _, line := range lines {
		var payload map[string]any
		if err := json.Unmarshal([]byte(line), &payload); err != nil {
			t.Fatalf("decode log line: %v", err)
		}
		if payload["request_id"] != "req-123" {
			t.Fatalf("expected request_id on every line, got %v", payload)
		}
	}
}

func TestEngineGeneratesRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	engine := NewEngine(zerolog.Nop())
	engine.POST("/*path", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	resp := httptest.NewRecorder()
	engine.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/", nil))
	if resp.Header().Get(RequestIDHeader) == "" {
		t.Fatalf("expected generated request id")
	}
}

func TestEngineMethodNotAllowed(t *testing.T) {
	gin.SetMode(gin.TestMode)

	engine := NewEngine(zerolog.Nop())
	engine.POST("/*path", func(c *gin.Context) { c.Status(http.StatusOK) })

	resp := httptest.NewRecorder()
	engine.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	if resp.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.Code)
	}
	var body ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error == "" {
		t.Fatalf("expected error message")
	}
}

func TestEngineRecoversPanics(t *testing.T) {
	gin.SetMode(gin.TestMode)

	engine := NewEngine(zerolog.Nop())
	engine.POST("/*path", func(c *gin.Context) { panic("boom") })

	resp := httptest.NewRecorder()
	engine.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/", nil))
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.Code)
	}
}

func TestLoggerFromFallback(t *testing.T) {
	var buf bytes.Buffer
	fallback := zerolog.New(&buf)
	log := LoggerFrom(context.Background(), fallback)
	log.Info().Msg("fallback")
	if !strings.Contains(buf.String(), "fallback") {
		t.Fatalf("expected fallback logger to be used")
	}
}
