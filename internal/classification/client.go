// Package classification decides whether a submitted photo plausibly shows the
// problem a citizen is reporting. It calls an external image inference service,
// maps the returned labels onto the category taxonomy and turns the outcome into
// a user-facing gate result.
package classification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultTimeout bounds every inference call.
const DefaultTimeout = 60 * time.Second

// maxResponseBytes caps how much of an upstream response body is read.
const maxResponseBytes = 1 << 20

// Prediction is one label/score pair returned by the inference service.
type Prediction struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// InferenceError reports a failed inference call. Status is the upstream HTTP
// status, or 0 when the request never produced a response. Payload holds the
// upstream response body for diagnostics.
type InferenceError struct {
	Status  int
	Payload json.RawMessage
	Err     error
}

func (e *InferenceError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("inference request failed with status %d: %v", e.Status, e.Err)
	}
	return fmt.Sprintf("inference request failed: %v", e.Err)
}

func (e *InferenceError) Unwrap() error {
	return e.Err
}

// Inferrer returns raw predictions for an image.
type Inferrer interface {
	Infer(ctx context.Context, image []byte, contentType string) ([]Prediction, error)
}

// Client calls an HTTP inference endpoint that accepts raw image bytes and
// answers with a JSON array of predictions.
type Client struct {
	httpClient *http.Client
	url        string
	apiKey     string
}

// NewClient creates an inference client. A non-positive timeout uses DefaultTimeout.
func NewClient(url, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		url:    url,
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Infer posts the image to the inference endpoint and returns its predictions
// in upstream order. A successful response whose body is not a JSON array
// yields no predictions and no error.
func (c *Client) Infer(ctx context.Context, image []byte, contentType string) ([]Prediction, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(image))
	if err != nil {
		return nil, &InferenceError{Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &InferenceError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &InferenceError{Status: resp.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &InferenceError{
			Status:  resp.StatusCode,
			Payload: upstreamPayload(body),
			Err:     fmt.Errorf("unexpected status %s", resp.Status),
		}
	}

	return parsePredictions(body), nil
}

// parsePredictions decodes a JSON array of predictions. Elements are decoded
// one by one so that a malformed entry keeps its position with zero values.
func parsePredictions(body []byte) []Prediction {
	var items []json.RawMessage
	if err := json.Unmarshal(body, &items); err != nil {
		return nil
	}

	predictions := make([]Prediction, 0, len(items))
	for _, item := range items {
		var raw struct {
			Label any `json:"label"`
			Score any `json:"score"`
		}
		var p Prediction
		if err := json.Unmarshal(item, &raw); err == nil {
			p.Label, _ = raw.Label.(string)
			p.Score, _ = raw.Score.(float64)
		}
		predictions = append(predictions, p)
	}
	return predictions
}

// upstreamPayload returns body as JSON, quoting it when it is not valid JSON.
func upstreamPayload(body []byte) json.RawMessage {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil
	}
	if json.Valid(body) {
		return json.RawMessage(body)
	}
	quoted, err := json.Marshal(string(body))
	if err != nil {
		return nil
	}
	return quoted
}
