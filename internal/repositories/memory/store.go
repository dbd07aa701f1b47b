// Package memory keeps the leaderboard in process memory behind a single mutex.
package memory

import (
	"context"
	"sync"

	"leaderboard/internal/models"
	"leaderboard/internal/ranking"
	"leaderboard/internal/repositories"
)

type Store struct {
	mu      sync.RWMutex
	users   []models.User // insertion order
	byID    map[string]int
	byName  map[string]int
	history []models.ClaimHistory // newest first
	nextSeq uint
}

func NewStore() *Store {
	return &Store{
		byID:   make(map[string]int),
		byName: make(map[string]int),
	}
}

// ListUsers returns a copy of all users ordered by rank.
func (s *Store) ListUsers(_ context.Context) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.User, len(s.users))
	for _, u := range s.users {
		out[u.Rank-1] = u
	}
	return out, nil
}

func (s *Store) GetUserByID(_ context.Context, userID string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.byID[userID]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	u := s.users[idx]
	return &u, nil
}

func (s *Store) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byName[user.NameKey]; exists {
		return repositories.ErrDuplicateName
	}

	s.nextSeq++
	user.Seq = s.nextSeq
	s.users = append(s.users, *user)
	s.byID[user.ID] = len(s.users) - 1
	s.byName[user.NameKey] = len(s.users) - 1
	s.rerank()

	user.Rank = s.users[s.byID[user.ID]].Rank
	return nil
}

func (s *Store) ClaimPoints(_ context.Context, userID string, points int, entry *models.ClaimHistory) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.byID[userID]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}

	s.users[idx].TotalPoints += points
	s.rerank()

	claimed := s.users[idx]
	entry.UserID = claimed.ID
	entry.UserName = claimed.Name

	s.nextSeq++
	entry.Seq = s.nextSeq
	s.history = append([]models.ClaimHistory{*entry}, s.history...)
	return &claimed, nil
}

func (s *Store) ListHistory(_ context.Context, limit int) ([]models.ClaimHistory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.history)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]models.ClaimHistory, n)
	copy(out, s.history[:n])
	return out, nil
}

func (s *Store) Ping(context.Context) error {
	return nil
}

// rerank must be called with mu held for writing.
func (s *Store) rerank() {
	for _, u := range ranking.Assign(s.users) {
		s.users[s.byID[u.ID]].Rank = u.Rank
	}
}
