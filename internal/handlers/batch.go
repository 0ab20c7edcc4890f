package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"roomlift/api/internal/service"
)

type batchRequest struct {
	ImageIDs []string `json:"imageIds" binding:"required,min=1"`
	ModelID  string   `json:"modelId"`
	Prompt   string   `json:"prompt"`
	Kind     string   `json:"kind"`
}

func (h HandlerSet) RunBatch(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var body batchRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed_body"})
		return
	}

	kind := h.enhanceKind
	switch body.Kind {
	case "", service.KindEnhance:
	case service.KindDecorate:
		kind = h.decorateKind
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_kind"})
		return
	}

	result := h.batch.Run(c.Request.Context(), user.ID, body.ImageIDs, body.ModelID, body.Prompt, kind)

	c.JSON(http.StatusOK, result)
}

func (h HandlerSet) BatchStatus(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	idsParam := c.Query("ids")
	if idsParam == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ids_required"})
		return
	}

	imageIDs := make([]string, 0)
	for _, id := range strings.Split(idsParam, ",") {
		if trimmed := strings.TrimSpace(id); trimmed != "" {
			imageIDs = append(imageIDs, trimmed)
		}
	}
	if len(imageIDs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ids_required"})
		return
	}

	result, err := h.batch.Status(c.Request.Context(), user.ID, imageIDs)
	if err != nil {
		h.log.Error().Err(err).Msg("batch status failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "batch_status_failed"})
		return
	}

	c.JSON(http.StatusOK, result)
}
