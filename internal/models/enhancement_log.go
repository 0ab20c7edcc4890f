package models

import "time"

type LogStatus string

const (
	LogStatusPending    LogStatus = "pending"
	LogStatusProcessing LogStatus = "processing"
	LogStatusCompleted  LogStatus = "completed"
	LogStatusFailed     LogStatus = "failed"
)

// EnhancementLog records one job against one image. A log moves strictly
// pending -> processing -> completed|failed and never leaves a terminal
// state; the refund guard relies on that.
type EnhancementLog struct {
	ID          string
	ImageID     string
	UserID      string
	ModelID     string
	Kind        string
	Status      LogStatus
	Prompt      string
	Params      map[string]string
	CostCredits float64
	ResultKey   *string
	ErrorText   *string
	StartedAt   time.Time
	FinishedAt  *time.Time
	DurationMS  *int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
