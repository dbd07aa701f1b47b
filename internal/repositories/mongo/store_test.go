package mongo

import (
	"context"
	"errors"
	"os"
	"sort"
	"strings"
	"testing"
	"time"

	"leaderboard/internal/models"
	"leaderboard/internal/ranking"
	"leaderboard/internal/repositories"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
)

func TestNewClientRequiresURI(t *testing.T) {
	if _, err := NewClient(context.Background(), "", "db"); err == nil {
		t.Fatalf("expected error for empty uri")
	}
}

func TestClientDBNotInitialized(t *testing.T) {
	var c *Client
	if _, err := c.DB(); err == nil {
		t.Fatalf("expected error for nil client")
	}
	if err := c.Disconnect(context.Background()); err != nil {
		t.Fatalf("expected nil client disconnect to be a no-op, got %v", err)
	}
}

func TestRankWritesOnlyChangedUsers(t *testing.T) {
	users := []models.User{
		{ID: "a", TotalPoints: 0, Rank: 1},
		{ID: "b", TotalPoints: 5, Rank: 2},
		{ID: "c", TotalPoints: 0, Rank: 3},
	}

	ranked, writes := rankWrites(users)

	if ranked[0].ID != "b" || ranked[1].ID != "a" || ranked[2].ID != "c" {
		t.Fatalf("unexpected ranking order: %s %s %s", ranked[0].ID, ranked[1].ID, ranked[2].ID)
	}
	// c keeps rank 3
	if len(writes) != 2 {
		t.Fatalf("expected 2 rank writes, got %d", len(writes))
	}
}

func TestRankWritesNoChanges(t *testing.T) {
	users := []models.User{{ID: "a", TotalPoints: 3, Rank: 1}, {ID: "b", TotalPoints: 1, Rank: 2}}
	if _, writes := rankWrites(users); len(writes) != 0 {
		t.Fatalf("expected no writes, got %d", len(writes))
	}
}

func TestUserSeqSurvivesBSONRoundTrip(t *testing.T) {
	createdAt := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	// same millisecond once stored, ids sort opposite to insertion
	first := models.User{Seq: 1, ID: "f0000000-0000-0000-0000-000000000000", Name: "First", CreatedAt: createdAt.Add(100 * time.Microsecond)}
	second := models.User{Seq: 2, ID: "10000000-0000-0000-0000-000000000000", Name: "Second", CreatedAt: createdAt.Add(500 * time.Microsecond)}

	decoded := make([]models.User, 0, 2)
	for _, u := range []models.User{first, second} {
		raw, err := bson.Marshal(u)
		if err != nil {
			t.Fatalf("marshal failed: %v", err)
		}
		var out models.User
		if err := bson.Unmarshal(raw, &out); err != nil {
			t.Fatalf("unmarshal failed: %v", err)
		}
		if out.Seq != u.Seq {
			t.Fatalf("expected seq %d after round trip, got %d", u.Seq, out.Seq)
		}
		if !out.CreatedAt.Equal(createdAt) {
			t.Fatalf("expected createdAt truncated to %v, got %v", createdAt, out.CreatedAt)
		}
		decoded = append(decoded, out)
	}

	if len(insertionOrder) != 1 || insertionOrder[0].Key != "seq" {
		t.Fatalf("expected users to be ordered by seq, got %v", insertionOrder)
	}

	// reverse the input to make sure order comes from seq, not from the slice
	stored := []models.User{decoded[1], decoded[0]}
	sort.Slice(stored, func(i, j int) bool { return stored[i].Seq < stored[j].Seq })
	ranked := ranking.Assign(stored)
	if ranked[0].Name != "First" || ranked[0].Rank != 1 || ranked[1].Name != "Second" || ranked[1].Rank != 2 {
		t.Fatalf("expected insertion order to break the tie, got %s(%d) %s(%d)", ranked[0].Name, ranked[0].Rank, ranked[1].Name, ranked[1].Rank)
	}
}

// newIntegrationStore connects to MONGO_TEST_URI, which must point at a replica set.
func newIntegrationStore(t *testing.T) *Store {
	t.Helper()
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}

	ctx := context.Background()
	dbName := "leaderboard_test_" + strings.ReplaceAll(uuid.NewString()[:8], "-", "")
	c, err := NewClient(ctx, uri, dbName)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	t.Cleanup(func() {
		if db, err := c.DB(); err == nil {
			_ = db.Drop(context.Background())
		}
		_ = c.Disconnect(context.Background())
	})

	s, err := NewStore(ctx, c)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return s
}

func TestStoreClaimScenario(t *testing.T) {
	s := newIntegrationStore(t)
	ctx := context.Background()

	a := &models.User{ID: uuid.NewString(), Name: "A", NameKey: "a", CreatedAt: time.Now()}
	b := &models.User{ID: uuid.NewString(), Name: "B", NameKey: "b", CreatedAt: time.Now().Add(time.Millisecond)}
	for _, u := range []*models.User{a, b} {
		if err := s.CreateUser(ctx, u); err != nil {
			t.Fatalf("CreateUser returned error: %v", err)
		}
	}

	dup := &models.User{ID: uuid.NewString(), Name: "a", NameKey: "a", CreatedAt: time.Now()}
	if err := s.CreateUser(ctx, dup); !errors.Is(err, repositories.ErrDuplicateName) {
		t.Fatalf("expected ErrDuplicateName, got %v", err)
	}

	entry := &models.ClaimHistory{ID: uuid.NewString(), PointsAwarded: 5, Timestamp: time.Now()}
	claimed, err := s.ClaimPoints(ctx, b.ID, 5, entry)
	if err != nil {
		t.Fatalf("ClaimPoints returned error: %v", err)
	}
	if claimed.TotalPoints != 5 || claimed.Rank != 1 {
		t.Fatalf("expected B at 5 points rank 1, got %+v", claimed)
	}

	storedA, err := s.GetUserByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetUserByID returned error: %v", err)
	}
	if storedA.Rank != 2 {
		t.Fatalf("expected A at rank 2, got %d", storedA.Rank)
	}

	if _, err := s.ClaimPoints(ctx, "ghost", 1, &models.ClaimHistory{ID: uuid.NewString()}); !errors.Is(err, repositories.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	history, err := s.ListHistory(ctx, 0)
	if err != nil {
		t.Fatalf("ListHistory returned error: %v", err)
	}
	if len(history) != 1 || history[0].UserName != "B" {
		t.Fatalf("unexpected history: %+v", history)
	}
}

func TestStoreTiesFollowInsertionOrder(t *testing.T) {
	s := newIntegrationStore(t)
	ctx := context.Background()

	createdAt := time.Now().Truncate(time.Millisecond)
	ids := []string{
		"ffffffff-0000-0000-0000-000000000000",
		"88888888-0000-0000-0000-000000000000",
		"00000000-0000-0000-0000-000000000000",
	}
	for i, id := range ids {
		name := []string{"Rahul", "Kamal", "Sanak"}[i]
		u := &models.User{ID: id, Name: name, NameKey: strings.ToLower(name), CreatedAt: createdAt}
		if err := s.CreateUser(ctx, u); err != nil {
			t.Fatalf("CreateUser returned error: %v", err)
		}
		if u.Seq != uint(i+1) || u.Rank != i+1 {
			t.Fatalf("expected %s at seq %d rank %d, got seq %d rank %d", name, i+1, i+1, u.Seq, u.Rank)
		}
	}

	users, err := s.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers returned error: %v", err)
	}
	for i, u := range users {
		if u.ID != ids[i] || u.Rank != i+1 {
			t.Fatalf("position %d: expected %s rank %d, got %s rank %d", i, ids[i], i+1, u.ID, u.Rank)
		}
	}

	stamp := time.Now().Truncate(time.Millisecond)
	for i := 0; i < 2; i++ {
		entry := &models.ClaimHistory{ID: []string{"z-entry", "a-entry"}[i], Timestamp: stamp}
		if _, err := s.ClaimPoints(ctx, ids[0], 1, entry); err != nil {
			t.Fatalf("ClaimPoints returned error: %v", err)
		}
	}
	history, err := s.ListHistory(ctx, 0)
	if err != nil {
		t.Fatalf("ListHistory returned error: %v", err)
	}
	if len(history) != 2 || history[0].ID != "a-entry" {
		t.Fatalf("expected newest entry first, got %+v", history)
	}
}
