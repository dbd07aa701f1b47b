package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"leaderboard/internal/middleware"
	"leaderboard/internal/models"
	"leaderboard/internal/services"
	"leaderboard/internal/utils"

	"go.uber.org/zap"
)

type LeaderboardAPI interface {
	ListUsers(ctx context.Context) ([]models.User, error)
	CreateUser(ctx context.Context, name string) (*models.CreateUserResponse, error)
	ClaimPoints(ctx context.Context, userID string) (*models.ClaimPointsResponse, error)
	ListHistory(ctx context.Context, limit int) ([]models.ClaimHistory, error)
}

type LeaderboardHandler struct {
	service LeaderboardAPI
	logger  *zap.Logger
}

func NewLeaderboardHandler(service LeaderboardAPI, logger *zap.Logger) *LeaderboardHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LeaderboardHandler{service: service, logger: logger}
}

// GET /api/users
func (handler *LeaderboardHandler) GetUsersHandler(writer http.ResponseWriter, request *http.Request) {
	users, err := handler.service.ListUsers(request.Context())
	if err != nil {
		handler.writeServiceError(writer, err)
		return
	}
	if users == nil {
		users = []models.User{}
	}
	utils.JSON(writer, http.StatusOK, models.UsersResponse{Users: users})
}

// POST /api/users
func (handler *LeaderboardHandler) CreateUserHandler(writer http.ResponseWriter, request *http.Request) {
	req := middleware.GetValidatedRequest[*models.CreateUserRequest](request)

	resp, err := handler.service.CreateUser(request.Context(), req.Name)
	if err != nil {
		handler.writeServiceError(writer, err)
		return
	}
	utils.JSON(writer, http.StatusCreated, resp)
}

// POST /api/claim-points
func (handler *LeaderboardHandler) ClaimPointsHandler(writer http.ResponseWriter, request *http.Request) {
	req := middleware.GetValidatedRequest[*models.ClaimPointsRequest](request)

	resp, err := handler.service.ClaimPoints(request.Context(), req.UserID)
	if err != nil {
		handler.writeServiceError(writer, err)
		return
	}
	utils.JSON(writer, http.StatusOK, resp)
}

// GET /api/history
func (handler *LeaderboardHandler) GetHistoryHandler(writer http.ResponseWriter, request *http.Request) {
	limit := 0
	if limitStr := request.URL.Query().Get("limit"); limitStr != "" {
		l, err := strconv.Atoi(limitStr)
		if err != nil || l < 1 {
			utils.JSONError(writer, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
			return
		}
		limit = l
	}

	history, err := handler.service.ListHistory(request.Context(), limit)
	if err != nil {
		handler.writeServiceError(writer, err)
		return
	}
	if history == nil {
		history = []models.ClaimHistory{}
	}
	utils.JSON(writer, http.StatusOK, models.HistoryResponse{History: history})
}

// PingMessage is the liveness reply clients match on.
const PingMessage = "Hello from Express server v2!"

// GET /api/ping
func (handler *LeaderboardHandler) PingHandler(writer http.ResponseWriter, request *http.Request) {
	utils.JSON(writer, http.StatusOK, models.PingResponse{Message: PingMessage})
}

func (handler *LeaderboardHandler) writeServiceError(writer http.ResponseWriter, err error) {
	var svcErr *services.Error
	if !errors.As(err, &svcErr) {
		handler.logger.Error("unexpected service error", zap.Error(err))
		utils.JSONError(writer, http.StatusInternalServerError, "internal_error", "Internal server error")
		return
	}

	switch {
	case errors.Is(err, services.ErrValidation):
		utils.JSONError(writer, http.StatusBadRequest, "validation_error", svcErr.Message)
	case errors.Is(err, services.ErrDuplicate):
		utils.JSONError(writer, http.StatusBadRequest, "duplicate_name", svcErr.Message)
	case errors.Is(err, services.ErrNotFound):
		utils.JSONError(writer, http.StatusNotFound, "not_found", svcErr.Message)
	default:
		utils.JSONError(writer, http.StatusInternalServerError, "internal_error", svcErr.Message)
	}
}
