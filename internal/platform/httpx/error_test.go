package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
)

func TestWriteErrorEnvelope(t *testing.T) {
	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "req-1")
	rec := httptest.NewRecorder()

	WriteError(ctx, rec, NewError("not_found", "order ord-1 not found", http.StatusNotFound))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content type = %q", ct)
	}

	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if payload["error"] != "not_found" || payload["message"] != "order ord-1 not found" {
		t.Fatalf("payload = %+v", payload)
	}
	if payload["status"] != float64(http.StatusNotFound) {
		t.Fatalf("status field = %v", payload["status"])
	}
	if payload["request_id"] != "req-1" {
		t.Fatalf("request_id = %v, want req-1", payload["request_id"])
	}
}

func TestWriteErrorDetailsAndExplicitRequestID(t *testing.T) {
	rec := httptest.NewRecorder()
	err := NewError("invalid_request", "bad input", http.StatusBadRequest).
		WithRequestID("req-9").
		WithDetails(map[string]any{"field": "quantity"})

	WriteError(context.Background(), rec, err)

	var payload map[string]any
	if jsonErr := json.Unmarshal(rec.Body.Bytes(), &payload); jsonErr != nil {
		t.Fatalf("unmarshal: %v", jsonErr)
	}
	if payload["request_id"] != "req-9" {
		t.Fatalf("request_id = %v, want req-9", payload["request_id"])
	}
	if payload["field"] != "quantity" {
		t.Fatalf("detail field = %v, want quantity", payload["field"])
	}
}

func TestNewErrorSanitizes(t *testing.T) {
	err := NewError("code", "line one\nline two\r\n", 0)
	if err.Status != http.StatusInternalServerError {
		t.Fatalf("zero status must default to 500, got %d", err.Status)
	}
	if strings.ContainsAny(err.Message, "\n\r") {
		t.Fatalf("message keeps line breaks: %q", err.Message)
	}

	long := NewError("code", strings.Repeat("x", 600), http.StatusBadRequest)
	if len(long.Message) != 512 {
		t.Fatalf("message length = %d, want 512", len(long.Message))
	}
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusCreated, map[string]string{"id": "ord-1"})

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}
	var payload map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if payload["id"] != "ord-1" {
		t.Fatalf("payload = %+v", payload)
	}

	empty := httptest.NewRecorder()
	WriteJSON(empty, http.StatusNoContent, nil)
	if empty.Body.Len() != 0 {
		t.Fatalf("nil payload must write no body, got %q", empty.Body)
	}
}
