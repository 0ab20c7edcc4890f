package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"roomlift/api/internal/repository"
)

func (h HandlerSet) GetImage(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	image, err := h.images.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrImageNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "image_not_found"})
			return
		}
		h.log.Error().Err(err).Msg("get image failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get_image_failed"})
		return
	}

	if image.UserID != user.ID {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}

	resp := gin.H{"image": toImageResponse(image)}
	if image.ResultKey != nil {
		resp["resultUrl"] = h.store.PublicURL(h.store.ResultsBucket(), *image.ResultKey)
	}
	c.JSON(http.StatusOK, resp)
}

func (h HandlerSet) ListImages(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	limit, offset := pagination(c)

	images, err := h.images.ListByUser(c.Request.Context(), user.ID, limit, offset)
	if err != nil {
		h.log.Error().Err(err).Msg("list images failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list_images_failed"})
		return
	}

	items := make([]imageResponse, 0, len(images))
	for _, image := range images {
		items = append(items, toImageResponse(image))
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h HandlerSet) ListLogs(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	imageID := c.Query("imageId")
	if imageID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image_id_required"})
		return
	}

	image, err := h.images.GetByID(c.Request.Context(), imageID)
	if err != nil {
		if errors.Is(err, repository.ErrImageNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "image_not_found"})
			return
		}
		h.log.Error().Err(err).Msg("get image failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list_logs_failed"})
		return
	}
	if image.UserID != user.ID {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}

	logs, err := h.logs.ListByImage(c.Request.Context(), imageID, 50)
	if err != nil {
		h.log.Error().Err(err).Msg("list logs failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list_logs_failed"})
		return
	}

	items := make([]logResponse, 0, len(logs))
	for _, entry := range logs {
		items = append(items, toLogResponse(entry))
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h HandlerSet) AdminListImages(c *gin.Context) {
	limit, offset := pagination(c)

	images, err := h.images.List(c.Request.Context(), limit, offset)
	if err != nil {
		h.log.Error().Err(err).Msg("admin list images failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list_images_failed"})
		return
	}

	items := make([]map[string]interface{}, 0, len(images))
	for _, img := range images {
		items = append(items, map[string]interface{}{
			"id":        img.ID,
			"userId":    img.UserID,
			"status":    img.Status,
			"format":    img.Format,
			"sizeBytes": img.SizeBytes,
			"createdAt": img.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}

func pagination(c *gin.Context) (limit, offset int) {
	limit = 50
	offset = 0

	if perPage := c.Query("perPage"); perPage != "" {
		if v, err := strconv.Atoi(perPage); err == nil && v > 0 && v <= 200 {
			limit = v
		}
	}
	if page := c.Query("page"); page != "" {
		if v, err := strconv.Atoi(page); err == nil && v > 1 {
			offset = (v - 1) * limit
		}
	}
	return limit, offset
}
