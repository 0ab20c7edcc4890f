// Package jobs holds the cron-driven background work. The only job today is
// the reaper, which sweeps up enhancement logs orphaned by a crash so no
// image stays stuck in processing forever.
package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"roomlift/api/internal/models"
)

// The reaper declares what it needs from the stores; the pgx repositories
// and the ledger satisfy these as-is, and tests supply fakes.

type logStore interface {
	ListStaleProcessing(ctx context.Context, cutoff time.Time) ([]models.EnhancementLog, error)
	Complete(ctx context.Context, id string, resultKey string, duration time.Duration) (bool, error)
	Fail(ctx context.Context, id string, errorText string) (bool, error)
}

type imageStore interface {
	GetByID(ctx context.Context, id string) (models.Image, error)
	MarkFailed(ctx context.Context, id string) error
}

type creditLedger interface {
	Refund(ctx context.Context, userID string, amount float64, logID string) error
}

type Reaper struct {
	cron       *cron.Cron
	logs       logStore
	images     imageStore
	credits    creditLedger
	staleAfter time.Duration
	schedule   string
	log        zerolog.Logger
}

func NewReaper(logs logStore, images imageStore, credits creditLedger, schedule string, staleAfter time.Duration, log zerolog.Logger) *Reaper {
	return &Reaper{
		cron:       cron.New(cron.WithSeconds()),
		logs:       logs,
		images:     images,
		credits:    credits,
		staleAfter: staleAfter,
		schedule:   schedule,
		log:        log,
	}
}

func (r *Reaper) Start() error {
	if _, err := r.cron.AddFunc(r.schedule, r.sweep); err != nil {
		return err
	}
	r.cron.Start()
	return nil
}

func (r *Reaper) Stop() {
	<-r.cron.Stop().Done()
}

// sweep resolves every log stuck in processing past the cutoff. When the
// image already holds a result the job actually finished and only the log
// update was lost, so the log is completed instead of refunded. Everything
// else is failed; the refund rides on the log's conditional terminal
// transition, so a sweep racing a live job (or another sweep) can never
// refund twice.
func (r *Reaper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cutoff := time.Now().Add(-r.staleAfter)
	stale, err := r.logs.ListStaleProcessing(ctx, cutoff)
	if err != nil {
		r.log.Error().Err(err).Msg("list stale jobs failed")
		return
	}

	for _, entry := range stale {
		image, err := r.images.GetByID(ctx, entry.ImageID)
		if err == nil && image.Status == models.ImageStatusEnhanced && image.ResultKey != nil {
			if _, err := r.logs.Complete(ctx, entry.ID, *image.ResultKey, time.Since(entry.StartedAt)); err != nil {
				r.log.Error().Err(err).Str("log_id", entry.ID).Msg("reconcile finished job")
				continue
			}
			r.log.Info().
				Str("log_id", entry.ID).
				Str("image_id", entry.ImageID).
				Msg("stale log reconciled against enhanced image")
			continue
		}

		transitioned, err := r.logs.Fail(ctx, entry.ID, "job abandoned: no terminal state recorded")
		if err != nil {
			r.log.Error().Err(err).Str("log_id", entry.ID).Msg("fail stale log")
			continue
		}
		if !transitioned {
			continue
		}

		if err := r.images.MarkFailed(ctx, entry.ImageID); err != nil {
			r.log.Error().Err(err).Str("image_id", entry.ImageID).Msg("mark stale image failed")
		}
		if err := r.credits.Refund(ctx, entry.UserID, entry.CostCredits, entry.ID); err != nil {
			r.log.Error().Err(err).Str("log_id", entry.ID).Msg("refund stale job")
		}

		r.log.Warn().
			Str("log_id", entry.ID).
			Str("image_id", entry.ImageID).
			Time("started_at", entry.StartedAt).
			Msg("stale job reaped")
	}
}
