package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"roomlift/api/internal/config"
	"roomlift/api/internal/models"
)

const (
	taskStatusCompleted = "COMPLETED"
	taskStatusFailed    = "FAILED"
)

// QueueAdapter drives submit-then-poll providers. A submit can still answer
// with an inline result (fast path); otherwise the returned handle is polled
// at a fixed interval until a terminal status or the attempt cap.
type QueueAdapter struct {
	httpClient   *http.Client
	cfg          config.ProviderConfig
	pollInterval time.Duration
	maxAttempts  int
	log          zerolog.Logger
}

func NewQueueAdapter(cfg config.ProviderConfig, pollInterval time.Duration, maxAttempts int, log zerolog.Logger) *QueueAdapter {
	return &QueueAdapter{
		httpClient:   &http.Client{Timeout: cfg.Timeout},
		cfg:          cfg,
		pollInterval: pollInterval,
		maxAttempts:  maxAttempts,
		log:          log,
	}
}

func (a *QueueAdapter) Kind() models.ProviderKind {
	return models.ProviderKindQueue
}

type submitResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	resultPayload
}

type statusResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	resultPayload
}

func (a *QueueAdapter) Edit(ctx context.Context, req Request) (Result, error) {
	submitted, err := a.submit(ctx, req)
	if err != nil {
		return Result{}, err
	}

	// Fast path: some providers finish before the submit call returns.
	switch submitted.Status {
	case taskStatusCompleted:
		return resolveResult(ctx, a.httpClient, submitted.resultPayload)
	case taskStatusFailed:
		return Result{}, &Error{Body: submitted.Error}
	}

	if submitted.ID == "" {
		return Result{}, &Error{Body: "provider returned neither a result nor a queue handle"}
	}

	return a.poll(ctx, req.TaskID, submitted.ID)
}

func (a *QueueAdapter) submit(ctx context.Context, req Request) (submitResponse, error) {
	body, err := json.Marshal(encodeEditRequest(req))
	if err != nil {
		return submitResponse{}, fmt.Errorf("marshal submit request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.SubmitURL, bytes.NewReader(body))
	if err != nil {
		return submitResponse{}, fmt.Errorf("build submit request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+a.cfg.APIKey)

	a.log.Debug().Str("task_id", req.TaskID).Msg("queue job submitted")

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return submitResponse{}, fmt.Errorf("submit call: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return submitResponse{}, fmt.Errorf("read submit response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return submitResponse{}, &Error{Status: resp.StatusCode, Body: string(respBody)}
	}

	var submitted submitResponse
	if err := json.Unmarshal(respBody, &submitted); err != nil {
		return submitResponse{}, fmt.Errorf("parse submit response: %w", err)
	}
	return submitted, nil
}

// poll blocks on a fixed-interval timer between status reads. A terminal
// COMPLETED may carry the image inline or point at a secondary result URL;
// FAILED surfaces the provider diagnostic verbatim. Exceeding the attempt
// cap is ErrPollTimeout, never an unbounded loop.
func (a *QueueAdapter) poll(ctx context.Context, taskID, handle string) (Result, error) {
	ticker := time.NewTicker(a.pollInterval)
	defer ticker.Stop()

	for attempt := 1; attempt <= a.maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case <-ticker.C:
		}

		status, err := a.taskStatus(ctx, handle)
		if err != nil {
			return Result{}, err
		}

		switch status.Status {
		case taskStatusCompleted:
			a.log.Debug().Str("task_id", taskID).Int("attempts", attempt).Msg("queue job completed")
			return resolveResult(ctx, a.httpClient, status.resultPayload)
		case taskStatusFailed:
			return Result{}, &Error{Body: status.Error}
		}
	}

	a.log.Warn().Str("task_id", taskID).Int("attempts", a.maxAttempts).Msg("queue job timed out")
	return Result{}, ErrPollTimeout
}

func (a *QueueAdapter) taskStatus(ctx context.Context, handle string) (statusResponse, error) {
	statusURL := strings.TrimSuffix(a.cfg.StatusURL, "/") + "/" + handle

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, statusURL, nil)
	if err != nil {
		return statusResponse{}, fmt.Errorf("build status request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+a.cfg.APIKey)

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return statusResponse{}, fmt.Errorf("status call: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return statusResponse{}, fmt.Errorf("read status response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return statusResponse{}, &Error{Status: resp.StatusCode, Body: string(respBody)}
	}

	var status statusResponse
	if err := json.Unmarshal(respBody, &status); err != nil {
		return statusResponse{}, fmt.Errorf("parse status response: %w", err)
	}
	return status, nil
}
