package handlers

import (
	"context"
	"net/http"
	"time"

	"leaderboard/internal/utils"
)

type ReadinessChecker interface {
	Ready(ctx context.Context) error
}

type HealthHandler struct {
	checker ReadinessChecker
	timeout time.Duration
}

func NewHealthHandler(checker ReadinessChecker) *HealthHandler {
	return &HealthHandler{checker: checker, timeout: 2 * time.Second}
}

func (handler *HealthHandler) HealthzHandler(writer http.ResponseWriter, request *http.Request) {
	writer.Header().Set("Content-Type", "text/plain; charset=utf-8")
	writer.WriteHeader(http.StatusOK)
	writer.Write([]byte("ok"))
}

// ReadyzHandler reports 503 while the store cannot be reached.
func (handler *HealthHandler) ReadyzHandler(writer http.ResponseWriter, request *http.Request) {
	if handler.checker != nil {
		ctx, cancel := context.WithTimeout(request.Context(), handler.timeout)
		defer cancel()
		if err := handler.checker.Ready(ctx); err != nil {
			utils.JSONError(writer, http.StatusServiceUnavailable, "not_ready", "store unavailable")
			return
		}
	}
	writer.Header().Set("Content-Type", "text/plain; charset=utf-8")
	writer.WriteHeader(http.StatusOK)
	writer.Write([]byte("ready"))
}
