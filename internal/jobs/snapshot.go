package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"leaderboard/internal/models"
)

type UserLister interface {
	ListUsers(ctx context.Context) ([]models.User, error)
}

type SnapshotConfig struct {
	Enabled  bool
	Schedule string // cron spec, e.g. "0 * * * *"
	Dir      string
}

// Snapshot is the on-disk shape of one leaderboard dump.
type Snapshot struct {
	GeneratedAt time.Time     `json:"generatedAt"`
	Users       []models.User `json:"users"`
}

// SnapshotJob periodically writes the current ranking to a JSON file.
type SnapshotJob struct {
	lister UserLister
	config SnapshotConfig
	logger *zap.Logger
	cron   *cron.Cron
	now    func() time.Time
}

func NewSnapshotJob(lister UserLister, config SnapshotConfig, logger *zap.Logger) *SnapshotJob {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SnapshotJob{
		lister: lister,
		config: config,
		logger: logger,
		cron:   cron.New(),
		now:    time.Now,
	}
}

func (j *SnapshotJob) Start() error {
	if !j.config.Enabled {
		j.logger.Info("leaderboard snapshots disabled, skipping scheduler")
		return nil
	}

	_, err := j.cron.AddFunc(j.config.Schedule, func() {
		if _, err := j.RunSnapshot(context.Background()); err != nil {
			j.logger.Error("snapshot job failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule snapshot job: %w", err)
	}

	j.cron.Start()
	j.logger.Info("snapshot job started", zap.String("schedule", j.config.Schedule), zap.String("dir", j.config.Dir))
	return nil
}

// Stop waits for a running snapshot to finish.
func (j *SnapshotJob) Stop() {
	if j.cron != nil {
		<-j.cron.Stop().Done()
	}
}

// RunSnapshot writes one snapshot and returns its path.
func (j *SnapshotJob) RunSnapshot(ctx context.Context) (string, error) {
	users, err := j.lister.ListUsers(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list users: %w", err)
	}
	if users == nil {
		users = []models.User{}
	}

	generatedAt := j.now().UTC()
	data, err := json.MarshalIndent(Snapshot{GeneratedAt: generatedAt, Users: users}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode snapshot: %w", err)
	}

	if err := os.MkdirAll(j.config.Dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	filename := fmt.Sprintf("leaderboard-%s.json", generatedAt.Format("20060102T150405Z"))
	path := filepath.Join(j.config.Dir, filename)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write snapshot file: %w", err)
	}

	j.logger.Info("leaderboard snapshot written", zap.String("path", path), zap.Int("users", len(users)))
	return path, nil
}
