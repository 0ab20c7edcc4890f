package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roomlift/api/internal/models"
	"roomlift/api/internal/repository"
)

type fakeLogStore struct {
	stale     []models.EnhancementLog
	status    map[string]models.LogStatus
	failText  map[string]string
	completed map[string]string
}

func newFakeLogStore(stale ...models.EnhancementLog) *fakeLogStore {
	f := &fakeLogStore{
		stale:     stale,
		status:    make(map[string]models.LogStatus),
		failText:  make(map[string]string),
		completed: make(map[string]string),
	}
	for _, entry := range stale {
		f.status[entry.ID] = entry.Status
	}
	return f
}

func (f *fakeLogStore) ListStaleProcessing(context.Context, time.Time) ([]models.EnhancementLog, error) {
	return f.stale, nil
}

func (f *fakeLogStore) Complete(_ context.Context, id string, resultKey string, _ time.Duration) (bool, error) {
	if f.status[id] != models.LogStatusProcessing {
		return false, nil
	}
	f.status[id] = models.LogStatusCompleted
	f.completed[id] = resultKey
	return true, nil
}

func (f *fakeLogStore) Fail(_ context.Context, id string, errorText string) (bool, error) {
	if f.status[id] != models.LogStatusProcessing && f.status[id] != models.LogStatusPending {
		return false, nil
	}
	f.status[id] = models.LogStatusFailed
	f.failText[id] = errorText
	return true, nil
}

type fakeImageStore struct {
	images map[string]models.Image
	failed []string
}

func (f *fakeImageStore) GetByID(_ context.Context, id string) (models.Image, error) {
	img, ok := f.images[id]
	if !ok {
		return models.Image{}, repository.ErrImageNotFound
	}
	return img, nil
}

func (f *fakeImageStore) MarkFailed(_ context.Context, id string) error {
	f.failed = append(f.failed, id)
	return nil
}

type refund struct {
	userID string
	amount float64
	logID  string
}

type fakeRefunder struct {
	refunds []refund
}

func (f *fakeRefunder) Refund(_ context.Context, userID string, amount float64, logID string) error {
	f.refunds = append(f.refunds, refund{userID: userID, amount: amount, logID: logID})
	return nil
}

func staleEntry(logID, imageID string) models.EnhancementLog {
	return models.EnhancementLog{
		ID:          logID,
		ImageID:     imageID,
		UserID:      "user-1",
		Status:      models.LogStatusProcessing,
		CostCredits: 1.5,
		StartedAt:   time.Now().Add(-time.Hour),
	}
}

func TestSweepFailsAbandonedJob(t *testing.T) {
	logs := newFakeLogStore(staleEntry("log-1", "img-1"))
	images := &fakeImageStore{images: map[string]models.Image{
		"img-1": {ID: "img-1", UserID: "user-1", Status: models.ImageStatusProcessing},
	}}
	credits := &fakeRefunder{}

	reaper := NewReaper(logs, images, credits, "0 */5 * * * *", 10*time.Minute, zerolog.Nop())
	reaper.sweep()

	assert.Equal(t, models.LogStatusFailed, logs.status["log-1"])
	assert.Contains(t, logs.failText["log-1"], "job abandoned")
	assert.Equal(t, []string{"img-1"}, images.failed)
	require.Len(t, credits.refunds, 1)
	assert.Equal(t, refund{userID: "user-1", amount: 1.5, logID: "log-1"}, credits.refunds[0])
}

func TestSweepSkipsAlreadyTerminalLog(t *testing.T) {
	logs := newFakeLogStore(staleEntry("log-1", "img-1"))
	// The live job won the terminal transition between listing and failing.
	logs.status["log-1"] = models.LogStatusFailed

	images := &fakeImageStore{images: map[string]models.Image{
		"img-1": {ID: "img-1", UserID: "user-1", Status: models.ImageStatusFailed},
	}}
	credits := &fakeRefunder{}

	reaper := NewReaper(logs, images, credits, "0 */5 * * * *", 10*time.Minute, zerolog.Nop())
	reaper.sweep()

	assert.Empty(t, images.failed)
	assert.Empty(t, credits.refunds)
}

func TestSweepRefundsOnceAcrossRepeatedSweeps(t *testing.T) {
	logs := newFakeLogStore(staleEntry("log-1", "img-1"))
	images := &fakeImageStore{images: map[string]models.Image{
		"img-1": {ID: "img-1", UserID: "user-1", Status: models.ImageStatusProcessing},
	}}
	credits := &fakeRefunder{}

	reaper := NewReaper(logs, images, credits, "0 */5 * * * *", 10*time.Minute, zerolog.Nop())
	reaper.sweep()
	reaper.sweep()

	assert.Len(t, credits.refunds, 1)
}

func TestSweepReconcilesEnhancedImage(t *testing.T) {
	// The job finished and the image holds the result, but the log update
	// was lost. The sweep must complete the log, not refund a paid job.
	resultKey := "user-1/log-1.png"
	logs := newFakeLogStore(staleEntry("log-1", "img-1"))
	images := &fakeImageStore{images: map[string]models.Image{
		"img-1": {ID: "img-1", UserID: "user-1", Status: models.ImageStatusEnhanced, ResultKey: &resultKey},
	}}
	credits := &fakeRefunder{}

	reaper := NewReaper(logs, images, credits, "0 */5 * * * *", 10*time.Minute, zerolog.Nop())
	reaper.sweep()

	assert.Equal(t, models.LogStatusCompleted, logs.status["log-1"])
	assert.Equal(t, resultKey, logs.completed["log-1"])
	assert.Empty(t, images.failed)
	assert.Empty(t, credits.refunds)
}

func TestSweepFailsLogWhenImageMissing(t *testing.T) {
	logs := newFakeLogStore(staleEntry("log-1", "img-gone"))
	images := &fakeImageStore{images: map[string]models.Image{}}
	credits := &fakeRefunder{}

	reaper := NewReaper(logs, images, credits, "0 */5 * * * *", 10*time.Minute, zerolog.Nop())
	reaper.sweep()

	assert.Equal(t, models.LogStatusFailed, logs.status["log-1"])
	assert.Len(t, credits.refunds, 1)
}
