package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type stubChecker struct{ err error }

func (s stubChecker) Ready(context.Context) error { return s.err }

func TestHealthzHandler(t *testing.T) {
	handler := NewHealthHandler(nil)
	rec := httptest.NewRecorder()

	handler.HealthzHandler(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("unexpected healthz response %d %q", rec.Code, rec.Body.String())
	}
}

func TestReadyzHandler(t *testing.T) {
	t.Run("ready", func(t *testing.T) {
		rec := httptest.NewRecorder()
		NewHealthHandler(stubChecker{}).ReadyzHandler(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		if rec.Code != http.StatusOK || rec.Body.String() != "ready" {
			t.Fatalf("unexpected readyz response %d %q", rec.Code, rec.Body.String())
		}
	})

	t.Run("store down", func(t *testing.T) {
		rec := httptest.NewRecorder()
		NewHealthHandler(stubChecker{err: errors.New("connection refused")}).ReadyzHandler(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected 503, got %d", rec.Code)
		}
	})
}
