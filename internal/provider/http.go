package provider

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
)

// editRequest is the JSON body both adapters submit. The image travels as a
// data URI, the way most hosted editing APIs accept source images.
type editRequest struct {
	TaskID string            `json:"taskId"`
	Image  string            `json:"image"`
	Prompt string            `json:"prompt"`
	Params map[string]string `json:"params,omitempty"`
}

// resultPayload is the polymorphic result shape shared by edit responses,
// submit responses and status responses. A provider may embed the image
// inline as base64 or point at a separately hosted result URL; callers must
// handle both on every call.
type resultPayload struct {
	Image    string `json:"image,omitempty"`
	ImageURL string `json:"imageUrl,omitempty"`
}

func encodeEditRequest(req Request) editRequest {
	return editRequest{
		TaskID: req.TaskID,
		Image:  fmt.Sprintf("data:%s;base64,%s", req.MIME, base64.StdEncoding.EncodeToString(req.Image)),
		Prompt: req.Prompt,
		Params: req.Params,
	}
}

// resolveResult turns a terminal payload into bytes, fetching the indirect
// result location when the image is not inline.
func resolveResult(ctx context.Context, client *http.Client, payload resultPayload) (Result, error) {
	if payload.Image != "" {
		data, err := base64.StdEncoding.DecodeString(payload.Image)
		if err != nil {
			return Result{}, fmt.Errorf("decode inline result: %w", err)
		}
		return Result{Image: data}, nil
	}

	if payload.ImageURL != "" {
		data, err := fetchResult(ctx, client, payload.ImageURL)
		if err != nil {
			return Result{}, err
		}
		return Result{Image: data}, nil
	}

	return Result{}, &Error{Body: "provider returned no result payload"}
}

func fetchResult(ctx context.Context, client *http.Client, resultURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resultURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build result request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch result: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read result: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &Error{Status: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}
