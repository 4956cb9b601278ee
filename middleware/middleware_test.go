package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap/zaptest"

	"captchaSolver/dto"
)

func TestTraceIDGeneratedWhenMissing(t *testing.T) {
	var seen string
	handler := TraceID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetTraceID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if seen == "" {
		t.Fatal("No trace id generated")
	}
	if got := rec.Header().Get("X-Trace-ID"); got != seen {
		t.Errorf("Header trace id %q does not match context %q", got, seen)
	}
}

func TestTraceIDPropagated(t *testing.T) {
	var seen string
	handler := TraceID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetTraceID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Trace-ID", "client-trace")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if seen != "client-trace" {
		t.Errorf("Expected client trace id to propagate, got %q", seen)
	}
}

func TestRecoveryConvertsPanic(t *testing.T) {
	handler := Recovery(zaptest.NewLogger(t))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	req := httptest.NewRequest(http.MethodGet, "/in.php", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("Expected status 500, got %d", rec.Code)
	}
	var resp dto.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Error != "Internal server error" {
		t.Errorf("Unexpected error body: %+v", resp)
	}
}

func TestLoggingRecordsStatus(t *testing.T) {
	handler := Logging(zaptest.NewLogger(t))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusTeapot {
		t.Errorf("Status not passed through recorder: %d", rec.Code)
	}
}
