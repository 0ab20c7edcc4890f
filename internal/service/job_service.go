package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"roomlift/api/internal/ids"
	"roomlift/api/internal/media/sniffer"
	"roomlift/api/internal/models"
	"roomlift/api/internal/provider"
)

// ErrUnsupportedProvider means the resolved model names a provider kind no
// adapter is registered for; the caller has to pick another model.
var ErrUnsupportedProvider = errors.New("model uses an unsupported provider kind")

// JobKind parameterizes the one orchestrator flow for the two products:
// enhancement (relight/retouch) and decoration (virtual furnishing). They
// differ only in default prompt and price.
type JobKind struct {
	Name          string
	DefaultPrompt string
	CreditCost    float64
}

type JobRequest struct {
	UserID         string
	ImageID        string
	ModelID        string
	PromptOverride string
	Kind           JobKind
}

type JobResult struct {
	Image     models.Image
	Log       models.EnhancementLog
	ResultURL string
}

// JobService runs one enhancement job end to end: reserve credits, claim
// the image, dispatch to the provider adapter for the model's kind, persist
// the result, and keep image, log and balance consistent on every exit path.
type JobService struct {
	images   ImageStore
	logs     LogStore
	ledger   CreditLedger
	store    ObjectStore
	catalog  ModelResolver
	registry *provider.Registry
	gate     *semaphore.Weighted
	log      zerolog.Logger
}

func NewJobService(
	images ImageStore,
	logs LogStore,
	creditLedger CreditLedger,
	store ObjectStore,
	catalog ModelResolver,
	registry *provider.Registry,
	maxConcurrent int64,
	log zerolog.Logger,
) *JobService {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &JobService{
		images:   images,
		logs:     logs,
		ledger:   creditLedger,
		store:    store,
		catalog:  catalog,
		registry: registry,
		gate:     semaphore.NewWeighted(maxConcurrent),
		log:      log,
	}
}

func (s *JobService) Run(ctx context.Context, req JobRequest) (JobResult, error) {
	image, err := s.images.GetByID(ctx, req.ImageID)
	if err != nil {
		return JobResult{}, err
	}
	if image.UserID != req.UserID {
		return JobResult{}, ErrNotOwner
	}
	if image.Status == models.ImageStatusProcessing {
		return JobResult{}, ErrJobInFlight
	}

	model, err := s.catalog.Resolve(ctx, req.ModelID)
	if err != nil {
		return JobResult{}, err
	}

	adapter, err := s.registry.ForKind(model.Kind)
	if err != nil {
		return JobResult{}, fmt.Errorf("%w: %s", ErrUnsupportedProvider, model.Kind)
	}

	prompt := req.Kind.DefaultPrompt
	if req.PromptOverride != "" {
		prompt = req.PromptOverride
	}

	logID := ids.New()

	// Nothing before this point has mutated state. The reservation is the
	// first write; every later failure must undo it exactly once.
	if err := s.ledger.Reserve(ctx, req.UserID, req.Kind.CreditCost, logID); err != nil {
		return JobResult{}, err
	}

	claimed, err := s.images.ClaimForProcessing(ctx, req.ImageID)
	if err == nil && !claimed {
		err = ErrJobInFlight
	}
	if err != nil {
		// The image was never claimed, so there is no log to guard the
		// refund with; this is the only path that refunds directly.
		if refundErr := s.ledger.Refund(context.WithoutCancel(ctx), req.UserID, req.Kind.CreditCost, logID); refundErr != nil {
			s.log.Error().Err(refundErr).Str("log_id", logID).Msg("refund after failed claim")
		}
		return JobResult{}, err
	}

	entry := models.EnhancementLog{
		ID:          logID,
		ImageID:     req.ImageID,
		UserID:      req.UserID,
		ModelID:     model.ID,
		Kind:        req.Kind.Name,
		Status:      models.LogStatusProcessing,
		Prompt:      prompt,
		Params:      model.Settings,
		CostCredits: req.Kind.CreditCost,
		StartedAt:   time.Now().UTC(),
	}
	if err := s.logs.Create(ctx, entry); err != nil {
		// The log row never landed, so failJob's guard would see nothing to
		// transition; undo the claim and the reservation directly.
		cleanupCtx := context.WithoutCancel(ctx)
		if markErr := s.images.MarkFailed(cleanupCtx, req.ImageID); markErr != nil {
			s.log.Error().Err(markErr).Str("image_id", req.ImageID).Msg("mark image failed")
		}
		if refundErr := s.ledger.Refund(cleanupCtx, req.UserID, req.Kind.CreditCost, logID); refundErr != nil {
			s.log.Error().Err(refundErr).Str("log_id", logID).Msg("refund after failed log create")
		}
		return JobResult{}, fmt.Errorf("create log: %w", err)
	}

	s.log.Info().
		Str("log_id", logID).
		Str("image_id", req.ImageID).
		Str("model", model.Identifier).
		Str("kind", req.Kind.Name).
		Msg("job dispatched")

	result, err := s.dispatch(ctx, adapter, entry, image)
	if err != nil {
		return JobResult{}, s.failJob(ctx, req, entry, err)
	}

	return s.finalize(ctx, req, entry, model, result)
}

// dispatch downloads the source, runs the provider call under the global
// concurrency gate and returns the final bytes. Polling, when the adapter
// needs it, happens inside Edit.
func (s *JobService) dispatch(ctx context.Context, adapter provider.Adapter, entry models.EnhancementLog, image models.Image) (provider.Result, error) {
	source, err := s.store.Download(ctx, image.Bucket, image.OriginalKey)
	if err != nil {
		return provider.Result{}, fmt.Errorf("download original: %w", err)
	}

	detected, err := sniffer.DetectHead(source)
	if err != nil {
		return provider.Result{}, fmt.Errorf("detect source type: %w", err)
	}

	if err := s.gate.Acquire(ctx, 1); err != nil {
		return provider.Result{}, fmt.Errorf("acquire provider slot: %w", err)
	}
	defer s.gate.Release(1)

	return adapter.Edit(ctx, provider.Request{
		TaskID: entry.ID,
		Image:  source,
		MIME:   detected.MIME,
		Prompt: entry.Prompt,
		Params: entry.Params,
	})
}

func (s *JobService) finalize(ctx context.Context, req JobRequest, entry models.EnhancementLog, model models.AIModel, result provider.Result) (JobResult, error) {
	resultType := sniffer.TypePNG
	contentType := "image/png"
	if detected, err := sniffer.DetectHead(result.Image); err == nil {
		resultType = detected.Type
		contentType = detected.MIME
	}

	resultKey := path.Join(req.UserID, fmt.Sprintf("%s.%s", entry.ID, resultType))
	bucket := s.store.ResultsBucket()

	if err := s.store.Upload(ctx, bucket, resultKey, result.Image, contentType); err != nil {
		return JobResult{}, s.failJob(ctx, req, entry, fmt.Errorf("store result: %w", err))
	}

	now := time.Now().UTC()
	metadata := map[string]string{
		"ai_model":    model.Identifier,
		"ai_kind":     req.Kind.Name,
		"enhanced_at": now.Format(time.RFC3339),
	}
	if err := s.images.MarkEnhanced(ctx, req.ImageID, resultKey, metadata); err != nil {
		return JobResult{}, s.failJob(ctx, req, entry, fmt.Errorf("update image: %w", err))
	}

	duration := now.Sub(entry.StartedAt)
	if _, err := s.logs.Complete(ctx, entry.ID, resultKey, duration); err != nil {
		// The image already holds the result; a log bookkeeping failure is
		// not worth failing the job over.
		s.log.Error().Err(err).Str("log_id", entry.ID).Msg("complete log failed")
	}

	s.log.Info().
		Str("log_id", entry.ID).
		Str("image_id", req.ImageID).
		Dur("duration", duration).
		Msg("job completed")

	image, err := s.images.GetByID(ctx, req.ImageID)
	if err != nil {
		return JobResult{}, err
	}
	logEntry, err := s.logs.GetByID(ctx, entry.ID)
	if err != nil {
		return JobResult{}, err
	}

	return JobResult{
		Image:     image,
		Log:       logEntry,
		ResultURL: s.store.PublicURL(bucket, resultKey),
	}, nil
}

// failJob is the single failure path for everything after a successful
// reservation. The log's terminal transition doubles as the refund guard:
// only the caller that actually flipped the log to failed issues the
// refund, so crashes and racing reapers cannot double-credit.
func (s *JobService) failJob(ctx context.Context, req JobRequest, entry models.EnhancementLog, cause error) error {
	// Bookkeeping must run even when the request context died mid-job.
	cleanupCtx := context.WithoutCancel(ctx)

	transitioned, err := s.logs.Fail(cleanupCtx, entry.ID, cause.Error())
	if err != nil {
		s.log.Error().Err(err).Str("log_id", entry.ID).Msg("fail log update")
	}

	if markErr := s.images.MarkFailed(cleanupCtx, req.ImageID); markErr != nil {
		s.log.Error().Err(markErr).Str("image_id", req.ImageID).Msg("mark image failed")
	}

	if transitioned {
		if refundErr := s.ledger.Refund(cleanupCtx, req.UserID, req.Kind.CreditCost, entry.ID); refundErr != nil {
			s.log.Error().Err(refundErr).Str("log_id", entry.ID).Msg("refund failed")
		}
	}

	s.log.Warn().
		Str("log_id", entry.ID).
		Str("image_id", req.ImageID).
		Err(cause).
		Msg("job failed")

	return cause
}
