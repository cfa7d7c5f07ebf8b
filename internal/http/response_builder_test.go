package http

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"payables/internal/objectstore"
	"payables/internal/ocr"
	"payables/internal/services"
)

func TestJSONResponseBuilder_Basic(t *testing.T) {
	w := httptest.NewRecorder()

	NewJSONResponse().
		Status(http.StatusCreated).
		Header("X-Custom", "value").
		Body(map[string]int{"count": 2}).
		Write(w)

	if w.Code != http.StatusCreated {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusCreated)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	if w.Header().Get("X-Custom") != "value" {
		t.Error("custom header not set")
	}
	if strings.TrimSpace(w.Body.String()) != `{"count":2}` {
		t.Errorf("Body = %q", w.Body.String())
	}
}

func TestJSONResponseBuilder_NoBody(t *testing.T) {
	w := httptest.NewRecorder()
	NewJSONResponse().Status(http.StatusNoContent).Write(w)

	if w.Code != http.StatusNoContent || w.Body.Len() != 0 {
		t.Errorf("got %d %q", w.Code, w.Body.String())
	}
	if w.Header().Get("Content-Type") != "" {
		t.Error("Content-Type set without body")
	}
}

func TestErrorResponses(t *testing.T) {
	tests := []struct {
		name    string
		builder *JSONResponseBuilder
		code    int
		detail  string
	}{
		{"bad request", BadRequestError("bad"), http.StatusBadRequest, "bad"},
		{"unauthorized", UnauthorizedError(), http.StatusUnauthorized, "missing user"},
		{"not found", NotFoundError("gone"), http.StatusNotFound, "gone"},
		{"internal", InternalServerError(), http.StatusInternalServerError, "internal server error"},
		{"missing report object", ErrorFor(fmt.Errorf("read report r1: %w", objectstore.ErrObjectNotFound)), http.StatusNotFound, "object not found"},
		{"download unsupported", ErrorFor(services.ErrDownloadUnavailable), http.StatusNotImplemented, "not supported"},
		{"wrapped upload error", ErrorFor(fmt.Errorf("ingest: %w", ocr.ErrUnsupportedContentType)), http.StatusUnprocessableEntity, "unsupported content type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.builder.Write(w)
			if w.Code != tt.code {
				t.Fatalf("code = %d, want %d", w.Code, tt.code)
			}
			if !strings.Contains(w.Body.String(), `"detail":`) || !strings.Contains(w.Body.String(), tt.detail) {
				t.Fatalf("body = %q", w.Body.String())
			}
		})
	}
}
