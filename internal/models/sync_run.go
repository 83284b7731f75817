package models

import (
	"time"

	"gorm.io/datatypes"
)

// Sync run kinds.
const (
	SyncKindFull        = "full"
	SyncKindIncremental = "incremental"
)

// SyncRun records the outcome of one bulk sync.
type SyncRun struct {
	BaseModel
	Kind           string                      `gorm:"index" json:"kind"`
	StartedAt      time.Time                   `json:"started_at"`
	FinishedAt     time.Time                   `json:"finished_at"`
	PagesAttempted int                         `json:"pages_attempted"`
	PagesSucceeded int                         `json:"pages_succeeded"`
	TotalProducts  int                         `json:"total_products"`
	NewCount       int                         `json:"new_count"`
	UpdatedCount   int                         `json:"updated_count"`
	Aborted        bool                        `json:"aborted"`
	Errors         datatypes.JSONSlice[string] `json:"errors"`
	DurationMs     int64                       `json:"duration_ms"`
}
