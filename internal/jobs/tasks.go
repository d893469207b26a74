// Package jobs runs the scheduled maintenance tasks on asynq.
package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// QueueDefault is the only queue the worker consumes.
const QueueDefault = "default"

// TaskPurgeExpiredRefreshTokens deletes refresh token records past their expiry.
const TaskPurgeExpiredRefreshTokens = "session:purge_expired"

// PurgePayload is the task payload. Grace keeps records for a while after expiry; zero purges
// everything already expired.
type PurgePayload struct {
	Grace time.Duration `json:"grace"`
}

// NewPurgeTask builds the purge task. It is unique per hour so overlapping schedulers do not double-enqueue.
func NewPurgeTask(payload PurgePayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal purge payload: %w", err)
	}
	return asynq.NewTask(TaskPurgeExpiredRefreshTokens, body,
		asynq.Queue(QueueDefault), asynq.Unique(time.Hour), asynq.MaxRetry(3)), nil
}
