package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"leaderboard/internal/metrics"
	"leaderboard/internal/models"
	"leaderboard/internal/repositories"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	MinClaimPoints = 1
	MaxClaimPoints = 10
)

// DefaultRoster is the set of users created on first start when seeding is enabled.
var DefaultRoster = []string{"Rahul", "Kamal", "Sanak", "Priya", "Amit", "Neha", "Ravi", "Anita", "Vikram", "Meera"}

// LeaderboardStore captures the persistence operations the service needs.
// ClaimPoints and CreateUser must apply their whole mutation, rank
// recalculation included, atomically.
type LeaderboardStore interface {
	ListUsers(ctx context.Context) ([]models.User, error)
	GetUserByID(ctx context.Context, userID string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
	ClaimPoints(ctx context.Context, userID string, points int, entry *models.ClaimHistory) (*models.User, error)
	ListHistory(ctx context.Context, limit int) ([]models.ClaimHistory, error)
	Ping(ctx context.Context) error
}

// EventPublisher receives an event after every successful mutation.
type EventPublisher interface {
	Publish(ctx context.Context, event models.LeaderboardEvent) error
}

type LeaderboardService struct {
	store     LeaderboardStore
	publisher EventPublisher
	logger    *zap.Logger

	drawPoints func() int
	now        func() time.Time
	newID      func() string
}

func NewLeaderboardService(store LeaderboardStore, publisher EventPublisher, logger *zap.Logger) *LeaderboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LeaderboardService{
		store:      store,
		publisher:  publisher,
		logger:     logger,
		drawPoints: randomPoints,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

func randomPoints() int {
	return rand.Intn(MaxClaimPoints-MinClaimPoints+1) + MinClaimPoints
}

func (s *LeaderboardService) ListUsers(ctx context.Context) ([]models.User, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		s.logger.Error("failed to list users", zap.Error(err))
		return nil, newError(ErrInternal, "Failed to fetch users", err)
	}
	return users, nil
}

func (s *LeaderboardService) ListHistory(ctx context.Context, limit int) ([]models.ClaimHistory, error) {
	history, err := s.store.ListHistory(ctx, limit)
	if err != nil {
		s.logger.Error("failed to list claim history", zap.Error(err))
		return nil, newError(ErrInternal, "Failed to fetch history", err)
	}
	return history, nil
}

// CreateUser adds a user with zero points. Names are trimmed and must be unique
// ignoring case.
func (s *LeaderboardService) CreateUser(ctx context.Context, name string) (*models.CreateUserResponse, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, newError(ErrValidation, "Name is required", nil)
	}

	user := &models.User{
		ID:        s.newID(),
		Name:      name,
		NameKey:   strings.ToLower(name),
		CreatedAt: s.now(),
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicateName) {
			return nil, newError(ErrDuplicate, "User with this name already exists", err)
		}
		s.logger.Error("failed to create user", zap.String("name", name), zap.Error(err))
		return nil, newError(ErrInternal, "Failed to create user", err)
	}

	metrics.RecordUserCreated()
	s.logger.Info("user created", zap.String("userId", user.ID), zap.String("name", user.Name), zap.Int("rank", user.Rank))
	s.publish(ctx, models.LeaderboardEvent{
		Type:      models.EventUserCreated,
		User:      user,
		Timestamp: user.CreatedAt,
	})

	return &models.CreateUserResponse{
		User:    user,
		Message: fmt.Sprintf("User %s created successfully!", name),
	}, nil
}

// ClaimPoints awards a random number of points in [MinClaimPoints, MaxClaimPoints]
// to the user. Every call is an independent claim.
func (s *LeaderboardService) ClaimPoints(ctx context.Context, userID string) (*models.ClaimPointsResponse, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, newError(ErrValidation, "User ID is required", nil)
	}

	if _, err := s.store.GetUserByID(ctx, userID); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, newError(ErrNotFound, "User not found", err)
		}
		s.logger.Error("failed to load user", zap.String("userId", userID), zap.Error(err))
		return nil, newError(ErrInternal, "Failed to load user", err)
	}

	points := s.drawPoints()
	entry := &models.ClaimHistory{
		ID:            s.newID(),
		UserID:        userID,
		PointsAwarded: points,
		Timestamp:     s.now(),
	}

	user, err := s.store.ClaimPoints(ctx, userID, points, entry)
	if err != nil {
		s.logger.Error("failed to update user points", zap.String("userId", userID), zap.Int("points", points), zap.Error(err))
		return nil, newError(ErrInternal, "Failed to update user points", err)
	}

	metrics.RecordClaim(points)
	s.logger.Info("points claimed",
		zap.String("userId", user.ID),
		zap.Int("points", points),
		zap.Int("totalPoints", user.TotalPoints),
		zap.Int("rank", user.Rank))
	s.publish(ctx, models.LeaderboardEvent{
		Type:          models.EventPointsClaimed,
		User:          user,
		History:       entry,
		PointsAwarded: points,
		Timestamp:     entry.Timestamp,
	})

	return &models.ClaimPointsResponse{
		User:          user,
		PointsAwarded: points,
		NewRank:       user.Rank,
		History:       entry,
		Message:       fmt.Sprintf("%s earned %d points! New rank: #%d", user.Name, points, user.Rank),
	}, nil
}

// SeedUsers creates each named user, skipping names that already exist.
func (s *LeaderboardService) SeedUsers(ctx context.Context, names []string) error {
	created := 0
	for _, name := range names {
		if _, err := s.CreateUser(ctx, name); err != nil {
			if errors.Is(err, ErrDuplicate) {
				continue
			}
			return fmt.Errorf("seed user %q: %w", name, err)
		}
		created++
	}
	s.logger.Info("seeded users", zap.Int("created", created), zap.Int("requested", len(names)))
	return nil
}

// Ready reports whether the backing store is reachable.
func (s *LeaderboardService) Ready(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// publish failures never fail the mutation that triggered them.
func (s *LeaderboardService) publish(ctx context.Context, event models.LeaderboardEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish leaderboard event", zap.String("type", event.Type), zap.Error(err))
	}
}
