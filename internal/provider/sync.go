package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"roomlift/api/internal/config"
	"roomlift/api/internal/models"
)

// SyncAdapter drives providers that answer the edit call with the final
// image. Exactly one blocking request, no retry.
type SyncAdapter struct {
	httpClient *http.Client
	cfg        config.ProviderConfig
	log        zerolog.Logger
}

func NewSyncAdapter(cfg config.ProviderConfig, log zerolog.Logger) *SyncAdapter {
	return &SyncAdapter{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cfg:        cfg,
		log:        log,
	}
}

func (a *SyncAdapter) Kind() models.ProviderKind {
	return models.ProviderKindSync
}

func (a *SyncAdapter) Edit(ctx context.Context, req Request) (Result, error) {
	body, err := json.Marshal(encodeEditRequest(req))
	if err != nil {
		return Result{}, fmt.Errorf("marshal edit request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.EditURL, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("build edit request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+a.cfg.APIKey)

	a.log.Debug().Str("task_id", req.TaskID).Msg("sync edit dispatched")

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return Result{}, fmt.Errorf("edit call: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("read edit response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return Result{}, &Error{Status: resp.StatusCode, Body: string(respBody)}
	}

	var payload resultPayload
	if err := json.Unmarshal(respBody, &payload); err != nil {
		return Result{}, fmt.Errorf("parse edit response: %w", err)
	}

	return resolveResult(ctx, a.httpClient, payload)
}
