package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"roomlift/api/internal/models"
)

// modelSource is what the catalog needs from the model repository.
type modelSource interface {
	GetByID(ctx context.Context, id string) (models.AIModel, error)
	GetByIdentifier(ctx context.Context, identifier string) (models.AIModel, error)
	ListActive(ctx context.Context) ([]models.AIModel, error)
}

// ModelCatalog resolves job requests to an active model, read-through
// cached in redis. The catalog changes rarely, and every single job hits
// it, so a short TTL saves one query per invocation without any
// invalidation machinery.
type ModelCatalog struct {
	models       modelSource
	cache        *redis.Client
	defaultModel string
	ttl          time.Duration
	log          zerolog.Logger
}

func NewModelCatalog(modelRepo modelSource, cache *redis.Client, defaultModel string, ttl time.Duration, log zerolog.Logger) *ModelCatalog {
	return &ModelCatalog{
		models:       modelRepo,
		cache:        cache,
		defaultModel: defaultModel,
		ttl:          ttl,
		log:          log,
	}
}

// Resolve returns the requested model, or the configured default when no id
// is given. repository.ErrModelNotFound passes through for unknown or
// inactive models.
func (c *ModelCatalog) Resolve(ctx context.Context, modelID string) (models.AIModel, error) {
	if modelID != "" {
		return c.lookup(ctx, "model:id:"+modelID, func(ctx context.Context) (models.AIModel, error) {
			return c.models.GetByID(ctx, modelID)
		})
	}
	return c.lookup(ctx, "model:ident:"+c.defaultModel, func(ctx context.Context) (models.AIModel, error) {
		return c.models.GetByIdentifier(ctx, c.defaultModel)
	})
}

func (c *ModelCatalog) ListActive(ctx context.Context) ([]models.AIModel, error) {
	return c.models.ListActive(ctx)
}

func (c *ModelCatalog) lookup(ctx context.Context, cacheKey string, fetch func(context.Context) (models.AIModel, error)) (models.AIModel, error) {
	if c.cache != nil {
		if cached, err := c.cache.Get(ctx, cacheKey).Bytes(); err == nil {
			var model models.AIModel
			if err := json.Unmarshal(cached, &model); err == nil {
				return model, nil
			}
		}
	}

	model, err := fetch(ctx)
	if err != nil {
		return models.AIModel{}, err
	}

	if c.cache != nil {
		if encoded, err := json.Marshal(model); err == nil {
			if err := c.cache.Set(ctx, cacheKey, encoded, c.ttl).Err(); err != nil {
				c.log.Warn().Err(err).Str("key", cacheKey).Msg("model cache write failed")
			}
		}
	}
	return model, nil
}
