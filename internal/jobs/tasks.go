// Package jobs runs the bulk catalog syncs on an asynq queue.
package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

// Task types.
const (
	TaskScheduledSync   = "catalog:sync:scheduled"
	TaskFullSync        = "catalog:sync:full"
	TaskIncrementalSync = "catalog:sync:incremental"
)

// QueueSync is the queue every sync task runs on.
const QueueSync = "sync"

// Sync runs walk thousands of pages with a delay between each.
const syncTimeout = 6 * time.Hour

// IncrementalSyncPayload carries the updates window.
type IncrementalSyncPayload struct {
	Days int `json:"days"`
}

func NewScheduledSyncTask() *asynq.Task {
	return asynq.NewTask(TaskScheduledSync, nil,
		asynq.Queue(QueueSync),
		asynq.MaxRetry(0),
		asynq.Timeout(syncTimeout),
	)
}

func NewFullSyncTask() *asynq.Task {
	return asynq.NewTask(TaskFullSync, nil,
		asynq.Queue(QueueSync),
		asynq.MaxRetry(1),
		asynq.Timeout(syncTimeout),
	)
}

func NewIncrementalSyncTask(days int) (*asynq.Task, error) {
	payload, err := json.Marshal(IncrementalSyncPayload{Days: days})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIncrementalSync, payload,
		asynq.Queue(QueueSync),
		asynq.MaxRetry(2),
		asynq.Timeout(time.Hour),
	), nil
}
