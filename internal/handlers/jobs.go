package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"roomlift/api/internal/ledger"
	"roomlift/api/internal/models"
	"roomlift/api/internal/repository"
	"roomlift/api/internal/service"
)

type jobRequest struct {
	ModelID string `json:"modelId"`
	Prompt  string `json:"prompt"`
}

type imageResponse struct {
	ID        string            `json:"id"`
	Status    string            `json:"status"`
	ResultKey *string           `json:"resultKey,omitempty"`
	Format    string            `json:"format"`
	Metadata  map[string]string `json:"metadata"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

type logResponse struct {
	ID          string  `json:"id"`
	ImageID     string  `json:"imageId"`
	ModelID     string  `json:"modelId"`
	Kind        string  `json:"kind"`
	Status      string  `json:"status"`
	CostCredits float64 `json:"costCredits"`
	DurationMS  *int64  `json:"durationMs,omitempty"`
	ErrorText   *string `json:"error,omitempty"`
}

func toImageResponse(image models.Image) imageResponse {
	return imageResponse{
		ID:        image.ID,
		Status:    string(image.Status),
		ResultKey: image.ResultKey,
		Format:    image.Format,
		Metadata:  image.Metadata,
		CreatedAt: image.CreatedAt,
		UpdatedAt: image.UpdatedAt,
	}
}

func toLogResponse(entry models.EnhancementLog) logResponse {
	return logResponse{
		ID:          entry.ID,
		ImageID:     entry.ImageID,
		ModelID:     entry.ModelID,
		Kind:        entry.Kind,
		Status:      string(entry.Status),
		CostCredits: entry.CostCredits,
		DurationMS:  entry.DurationMS,
		ErrorText:   entry.ErrorText,
	}
}

func (h HandlerSet) Enhance(c *gin.Context) {
	h.runJob(c, h.enhanceKind)
}

func (h HandlerSet) Decorate(c *gin.Context) {
	h.runJob(c, h.decorateKind)
}

func (h HandlerSet) runJob(c *gin.Context, kind service.JobKind) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var body jobRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "malformed_body"})
			return
		}
	}

	result, err := h.jobs.Run(c.Request.Context(), service.JobRequest{
		UserID:         user.ID,
		ImageID:        c.Param("id"),
		ModelID:        body.ModelID,
		PromptOverride: body.Prompt,
		Kind:           kind,
	})
	if err != nil {
		h.writeJobError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"image":     toImageResponse(result.Image),
		"log":       toLogResponse(result.Log),
		"resultUrl": result.ResultURL,
	})
}

func (h HandlerSet) writeJobError(c *gin.Context, err error) {
	var insufficient *ledger.InsufficientCreditError

	switch {
	case errors.Is(err, repository.ErrImageNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "image_not_found"})
	case errors.Is(err, service.ErrNotOwner):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case errors.Is(err, service.ErrJobInFlight):
		c.JSON(http.StatusConflict, gin.H{"error": "job_in_flight"})
	case errors.Is(err, repository.ErrModelNotFound), errors.Is(err, service.ErrUnsupportedProvider):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_model"})
	case errors.As(err, &insufficient):
		c.JSON(http.StatusPaymentRequired, gin.H{
			"error":     "insufficient_credits",
			"required":  insufficient.Required,
			"available": insufficient.Available,
		})
	default:
		h.log.Error().Err(err).Msg("job failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
