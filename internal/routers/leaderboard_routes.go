package routers

import (
	"net/http"
	"time"

	"leaderboard/internal/handlers"
	"leaderboard/internal/middleware"
	"leaderboard/internal/models"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

const requestTimeout = 60 * time.Second

// LeaderboardRoutes mounts the REST API under /api. The websocket stream sits
// outside the request timeout since it is long-lived.
func LeaderboardRoutes(router *chi.Mux, handler *handlers.LeaderboardHandler, ws http.HandlerFunc) {
	router.Route("/api", func(r chi.Router) {
		if ws != nil {
			r.Get("/ws", ws)
		}

		r.Group(func(r chi.Router) {
			r.Use(chimw.Timeout(requestTimeout))

			r.Get("/ping", handler.PingHandler)
			r.Get("/users", handler.GetUsersHandler)
			r.With(middleware.ValidateRequest[*models.CreateUserRequest]()).Post("/users", handler.CreateUserHandler)
			r.With(middleware.ValidateRequest[*models.ClaimPointsRequest]()).Post("/claim-points", handler.ClaimPointsHandler)
			r.Get("/history", handler.GetHistoryHandler)
		})
	})
}
