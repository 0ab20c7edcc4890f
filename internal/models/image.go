package models

import "time"

type ImageStatus string

const (
	ImageStatusOriginal   ImageStatus = "original"
	ImageStatusProcessing ImageStatus = "processing"
	ImageStatusEnhanced   ImageStatus = "enhanced"
	ImageStatusFailed     ImageStatus = "failed"
)

// Image is one uploaded property photograph. OriginalKey always points at
// the source object; ResultKey and WatermarkedKey are set once a job has
// produced output for it.
type Image struct {
	ID             string
	UserID         string
	FolderID       *string
	Status         ImageStatus
	Bucket         string
	OriginalKey    string
	ResultKey      *string
	WatermarkedKey *string
	Format         string
	SizeBytes      int64
	Metadata       map[string]string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
