package service

import (
	"context"

	"github.com/rs/zerolog"

	"roomlift/api/internal/models"
)

type BatchItem struct {
	ImageID string `json:"imageId"`
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
}

type BatchResult struct {
	Items     []BatchItem `json:"items"`
	Total     int         `json:"total"`
	Completed int         `json:"completed"`
	Failed    int         `json:"failed"`
}

// BatchService drives the orchestrator once per selected image, strictly
// in order. One slow or broken image never aborts the rest; its failure is
// recorded and the loop moves on.
type BatchService struct {
	jobs   *JobService
	images ImageStore
	logs   LogStore
	log    zerolog.Logger
}

func NewBatchService(jobs *JobService, images ImageStore, logs LogStore, log zerolog.Logger) *BatchService {
	return &BatchService{
		jobs:   jobs,
		images: images,
		logs:   logs,
		log:    log,
	}
}

func (s *BatchService) Run(ctx context.Context, userID string, imageIDs []string, modelID string, promptOverride string, kind JobKind) BatchResult {
	result := BatchResult{
		Items: make([]BatchItem, 0, len(imageIDs)),
		Total: len(imageIDs),
	}

	for _, imageID := range imageIDs {
		if err := ctx.Err(); err != nil {
			// Caller went away; everything not yet started counts as failed
			// so completed+failed still adds up to total.
			result.Items = append(result.Items, BatchItem{ImageID: imageID, Status: "failed", Error: err.Error()})
			result.Failed++
			continue
		}

		_, err := s.jobs.Run(ctx, JobRequest{
			UserID:         userID,
			ImageID:        imageID,
			ModelID:        modelID,
			PromptOverride: promptOverride,
			Kind:           kind,
		})
		if err != nil {
			s.log.Warn().Err(err).Str("image_id", imageID).Msg("batch item failed")
			result.Items = append(result.Items, BatchItem{ImageID: imageID, Status: "failed", Error: err.Error()})
			result.Failed++
			continue
		}

		result.Items = append(result.Items, BatchItem{ImageID: imageID, Status: "completed"})
		result.Completed++
	}

	return result
}

// Status re-derives per-image progress from the database so a client that
// reloads mid-batch sees the true state, not a cached snapshot.
func (s *BatchService) Status(ctx context.Context, userID string, imageIDs []string) (BatchResult, error) {
	images, err := s.images.ListByIDs(ctx, imageIDs)
	if err != nil {
		return BatchResult{}, err
	}

	byID := make(map[string]models.Image, len(images))
	for _, image := range images {
		if image.UserID == userID {
			byID[image.ID] = image
		}
	}

	result := BatchResult{
		Items: make([]BatchItem, 0, len(imageIDs)),
		Total: len(imageIDs),
	}

	for _, imageID := range imageIDs {
		image, ok := byID[imageID]
		if !ok {
			result.Items = append(result.Items, BatchItem{ImageID: imageID, Status: "failed", Error: "image not found"})
			result.Failed++
			continue
		}

		switch image.Status {
		case models.ImageStatusEnhanced:
			result.Items = append(result.Items, BatchItem{ImageID: imageID, Status: "completed"})
			result.Completed++
		case models.ImageStatusFailed:
			item := BatchItem{ImageID: imageID, Status: "failed"}
			if logs, err := s.logs.ListByImage(ctx, imageID, 1); err == nil && len(logs) == 1 && logs[0].ErrorText != nil {
				item.Error = *logs[0].ErrorText
			}
			result.Items = append(result.Items, item)
			result.Failed++
		case models.ImageStatusProcessing:
			result.Items = append(result.Items, BatchItem{ImageID: imageID, Status: "processing"})
		default:
			result.Items = append(result.Items, BatchItem{ImageID: imageID, Status: "pending"})
		}
	}

	return result, nil
}
