package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roomlift/api/internal/models"
	"roomlift/api/internal/provider"
)

type batchEnv struct {
	images *fakeImages
	logs   *fakeLogs
	ledger *fakeLedger
	store  *fakeStore
	batch  *BatchService
}

func newBatchEnv(t *testing.T, balance float64, imageIDs ...string) *batchEnv {
	t.Helper()

	var seeded []models.Image
	store := newFakeStore()
	for _, id := range imageIDs {
		key := "user-1/" + id + ".png"
		seeded = append(seeded, models.Image{
			ID:          id,
			UserID:      "user-1",
			Status:      models.ImageStatusOriginal,
			Bucket:      "originals",
			OriginalKey: key,
		})
		store.put("originals", key, pngBytes)
	}

	images := newFakeImages(seeded...)
	logs := newFakeLogs()
	creditLedger := newFakeLedger("user-1", balance)
	adapter := &fakeAdapter{kind: models.ProviderKindSync, result: provider.Result{Image: pngBytes}}
	catalog := &fakeCatalog{model: models.AIModel{
		ID:         "model-1",
		Identifier: "interior-relight-v2",
		Kind:       models.ProviderKindSync,
		Active:     true,
	}}

	jobs := NewJobService(images, logs, creditLedger, store, catalog, provider.NewRegistry(adapter), 4, zerolog.Nop())

	return &batchEnv{
		images: images,
		logs:   logs,
		ledger: creditLedger,
		store:  store,
		batch:  NewBatchService(jobs, images, logs, zerolog.Nop()),
	}
}

func TestBatchRunAllSucceed(t *testing.T) {
	env := newBatchEnv(t, 10, "img-1", "img-2", "img-3")

	result := env.batch.Run(context.Background(), "user-1", []string{"img-1", "img-2", "img-3"}, "", "", enhanceTestKind())

	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 3, result.Completed)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, 7.0, env.ledger.balance("user-1"))

	// Items come back in submission order.
	require.Len(t, result.Items, 3)
	for i, id := range []string{"img-1", "img-2", "img-3"} {
		assert.Equal(t, id, result.Items[i].ImageID)
		assert.Equal(t, "completed", result.Items[i].Status)
	}
}

func TestBatchRunIsolatesFailures(t *testing.T) {
	env := newBatchEnv(t, 10, "img-1", "img-2", "img-3", "img-4")
	// img-2's original is gone; its job fails, the rest still run.
	delete(env.store.objects, "originals/user-1/img-2.png")

	result := env.batch.Run(context.Background(), "user-1", []string{"img-1", "img-2", "img-3", "img-4"}, "", "", enhanceTestKind())

	assert.Equal(t, 4, result.Total)
	assert.Equal(t, 3, result.Completed)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, result.Total, result.Completed+result.Failed)

	assert.Equal(t, "failed", result.Items[1].Status)
	assert.NotEmpty(t, result.Items[1].Error)
	assert.Equal(t, "completed", result.Items[2].Status)

	// Only the three successes are billed.
	assert.Equal(t, 7.0, env.ledger.balance("user-1"))

	failed, _ := env.images.GetByID(context.Background(), "img-2")
	assert.Equal(t, models.ImageStatusFailed, failed.Status)
}

func TestBatchRunStopsBillingWhenCreditsRunOut(t *testing.T) {
	env := newBatchEnv(t, 2, "img-1", "img-2", "img-3")

	result := env.batch.Run(context.Background(), "user-1", []string{"img-1", "img-2", "img-3"}, "", "", enhanceTestKind())

	assert.Equal(t, 2, result.Completed)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 0.0, env.ledger.balance("user-1"))
	assert.Equal(t, "failed", result.Items[2].Status)

	// The starved image was never claimed.
	img, _ := env.images.GetByID(context.Background(), "img-3")
	assert.Equal(t, models.ImageStatusOriginal, img.Status)
}

func TestBatchRunCancelledContextFailsRemainder(t *testing.T) {
	env := newBatchEnv(t, 10, "img-1", "img-2")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := env.batch.Run(ctx, "user-1", []string{"img-1", "img-2"}, "", "", enhanceTestKind())

	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 0, result.Completed)
	assert.Equal(t, 2, result.Failed)
	assert.Equal(t, 10.0, env.ledger.balance("user-1"))
}

func TestBatchStatusDerivesFromImages(t *testing.T) {
	env := newBatchEnv(t, 10, "img-1", "img-2", "img-3", "img-4")

	require.NoError(t, env.images.MarkEnhanced(context.Background(), "img-1", "user-1/r1.png", nil))

	env.images.images["img-2"].Status = models.ImageStatusProcessing

	require.NoError(t, env.logs.Create(context.Background(), models.EnhancementLog{
		ID:      "log-3",
		ImageID: "img-3",
		UserID:  "user-1",
		Status:  models.LogStatusProcessing,
	}))
	_, err := env.logs.Fail(context.Background(), "log-3", "provider reported failure: bad lighting")
	require.NoError(t, err)
	env.images.images["img-3"].Status = models.ImageStatusFailed

	result, err := env.batch.Status(context.Background(), "user-1", []string{"img-1", "img-2", "img-3", "img-4", "missing"})
	require.NoError(t, err)

	assert.Equal(t, 5, result.Total)
	assert.Equal(t, "completed", result.Items[0].Status)
	assert.Equal(t, "processing", result.Items[1].Status)
	assert.Equal(t, "failed", result.Items[2].Status)
	assert.Contains(t, result.Items[2].Error, "bad lighting")
	assert.Equal(t, "pending", result.Items[3].Status)
	assert.Equal(t, "failed", result.Items[4].Status)
	assert.Equal(t, "image not found", result.Items[4].Error)
}

func TestBatchStatusHidesForeignImages(t *testing.T) {
	env := newBatchEnv(t, 10, "img-1")
	env.images.images["theirs"] = &models.Image{
		ID:     "theirs",
		UserID: "user-2",
		Status: models.ImageStatusEnhanced,
	}

	result, err := env.batch.Status(context.Background(), "user-1", []string{"img-1", "theirs"})
	require.NoError(t, err)

	assert.Equal(t, "pending", result.Items[0].Status)
	assert.Equal(t, "failed", result.Items[1].Status)
	assert.Equal(t, "image not found", result.Items[1].Error)
}
