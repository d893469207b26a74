package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// ExpiredDeleter is the part of the refresh token store the purge needs.
type ExpiredDeleter interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// PurgeJob removes expired refresh token records.
type PurgeJob struct {
	store  ExpiredDeleter
	logger *slog.Logger
	now    func() time.Time
}

// NewPurgeJob constructs a PurgeJob. now defaults to time.Now.
func NewPurgeJob(store ExpiredDeleter, logger *slog.Logger, now func() time.Time) *PurgeJob {
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &PurgeJob{store: store, logger: logger, now: now}
}

// Handle is the asynq handler for TaskPurgeExpiredRefreshTokens.
func (j *PurgeJob) Handle(ctx context.Context, task *asynq.Task) error {
	var payload PurgePayload
	if len(task.Payload()) > 0 {
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			return fmt.Errorf("decode purge payload: %v: %w", err, asynq.SkipRetry)
		}
	}
	deleted, err := j.Run(ctx, payload.Grace)
	if err != nil {
		return err
	}
	j.logger.InfoContext(ctx, "expired refresh tokens purged", slog.Int64("deleted", deleted))
	return nil
}

// Run deletes records that expired more than grace ago and returns how many went.
func (j *PurgeJob) Run(ctx context.Context, grace time.Duration) (int64, error) {
	cutoff := j.now().UTC().Add(-grace)
	deleted, err := j.store.DeleteExpired(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge expired refresh tokens: %w", err)
	}
	return deleted, nil
}
