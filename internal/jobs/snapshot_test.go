package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"leaderboard/internal/models"
)

type stubLister struct {
	users []models.User
	err   error
}

func (s stubLister) ListUsers(context.Context) ([]models.User, error) { return s.users, s.err }

func TestRunSnapshotWritesFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "snapshots")
	users := []models.User{
		{ID: "b", Name: "Kamal", TotalPoints: 9, Rank: 1},
		{ID: "a", Name: "Rahul", TotalPoints: 2, Rank: 2},
	}
	job := NewSnapshotJob(stubLister{users: users}, SnapshotConfig{Dir: dir}, nil)
	job.now = func() time.Time { return time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC) }

	path, err := job.RunSnapshot(context.Background())
	if err != nil {
		t.Fatalf("RunSnapshot returned error: %v", err)
	}

	if want := filepath.Join(dir, "leaderboard-20240501T123000Z.json"); path != want {
		t.Fatalf("expected path %s, got %s", want, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read snapshot: %v", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		t.Fatalf("failed to decode snapshot: %v", err)
	}
	if len(snap.Users) != 2 || snap.Users[0].Name != "Kamal" || snap.Users[0].Rank != 1 {
		t.Fatalf("unexpected snapshot users: %+v", snap.Users)
	}
}

func TestRunSnapshotPropagatesListError(t *testing.T) {
	job := NewSnapshotJob(stubLister{err: errors.New("db down")}, SnapshotConfig{Dir: t.TempDir()}, nil)

	if _, err := job.RunSnapshot(context.Background()); err == nil {
		t.Fatal("expected error when listing users fails")
	}
}

func TestStartDisabledIsNoop(t *testing.T) {
	job := NewSnapshotJob(stubLister{}, SnapshotConfig{Enabled: false, Schedule: "not a schedule"}, nil)

	if err := job.Start(); err != nil {
		t.Fatalf("disabled job should not validate schedule, got %v", err)
	}
	job.Stop()
}

func TestStartRejectsInvalidSchedule(t *testing.T) {
	job := NewSnapshotJob(stubLister{}, SnapshotConfig{Enabled: true, Schedule: "every tuesday", Dir: t.TempDir()}, nil)

	if err := job.Start(); err == nil {
		t.Fatal("expected invalid schedule error")
	}
}

func TestStartSchedulesJob(t *testing.T) {
	job := NewSnapshotJob(stubLister{}, SnapshotConfig{Enabled: true, Schedule: "@hourly", Dir: t.TempDir()}, nil)

	if err := job.Start(); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	defer job.Stop()

	if entries := job.cron.Entries(); len(entries) != 1 {
		t.Fatalf("expected 1 scheduled entry, got %d", len(entries))
	}
}
