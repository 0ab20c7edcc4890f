package service

import (
	"context"
	"time"

	"roomlift/api/internal/models"
)

// The orchestrator depends on narrow store interfaces rather than the
// concrete pgx repositories so job flows can be exercised against in-memory
// fakes. The repository and ledger types satisfy these as-is.

type ImageStore interface {
	GetByID(ctx context.Context, id string) (models.Image, error)
	ClaimForProcessing(ctx context.Context, id string) (bool, error)
	MarkEnhanced(ctx context.Context, id string, resultKey string, metadata map[string]string) error
	MarkFailed(ctx context.Context, id string) error
	ListByIDs(ctx context.Context, ids []string) ([]models.Image, error)
}

type LogStore interface {
	Create(ctx context.Context, entry models.EnhancementLog) error
	Complete(ctx context.Context, id string, resultKey string, duration time.Duration) (bool, error)
	Fail(ctx context.Context, id string, errorText string) (bool, error)
	GetByID(ctx context.Context, id string) (models.EnhancementLog, error)
	ListByImage(ctx context.Context, imageID string, limit int) ([]models.EnhancementLog, error)
}

type CreditLedger interface {
	Reserve(ctx context.Context, userID string, amount float64, logID string) error
	Refund(ctx context.Context, userID string, amount float64, logID string) error
}

type ObjectStore interface {
	Download(ctx context.Context, bucket, objectKey string) ([]byte, error)
	Upload(ctx context.Context, bucket, objectKey string, data []byte, contentType string) error
	PublicURL(bucket, objectKey string) string
	ResultsBucket() string
}

type ModelResolver interface {
	Resolve(ctx context.Context, modelID string) (models.AIModel, error)
}
