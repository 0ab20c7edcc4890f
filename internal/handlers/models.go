package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type modelResponse struct {
	ID          string `json:"id"`
	Identifier  string `json:"identifier"`
	DisplayName string `json:"displayName"`
	Description string `json:"description"`
	Kind        string `json:"kind"`
}

func (h HandlerSet) ListModels(c *gin.Context) {
	active, err := h.catalog.ListActive(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("list models failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list_models_failed"})
		return
	}

	items := make([]modelResponse, 0, len(active))
	for _, model := range active {
		items = append(items, modelResponse{
			ID:          model.ID,
			Identifier:  model.Identifier,
			DisplayName: model.DisplayName,
			Description: model.Description,
			Kind:        string(model.Kind),
		})
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}
