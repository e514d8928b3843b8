// Package publisher delivers approved content to the publishing system.
package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ErrNoPublishedID is returned when the sink accepts the content but does
// not return an id.
var ErrNoPublishedID = errors.New("publish sink returned no id")

type publishRequest struct {
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata"`
}

type publishResponse struct {
	PublishedID string `json:"published_id"`
}

// Webhook posts content to an HTTP endpoint.
type Webhook struct {
	client   *http.Client
	endpoint string
	apiKey   string
}

// NewWebhook creates a Webhook sink.
func NewWebhook(endpoint, apiKey string, timeout time.Duration) *Webhook {
	return &Webhook{
		client:   &http.Client{Timeout: timeout},
		endpoint: endpoint,
		apiKey:   apiKey,
	}
}

// Publish posts {content, metadata} and returns the sink's published_id.
func (w *Webhook) Publish(ctx context.Context, content string, metadata map[string]string) (string, error) {
	body, err := json.Marshal(publishRequest{Content: content, Metadata: metadata})
	if err != nil {
		return "", fmt.Errorf("marshal publish request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build publish request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if w.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+w.apiKey)
	}
	if id := metadata["task_id"]; id != "" {
		req.Header.Set("Idempotency-Key", id)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("publish request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read publish response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("publish sink error: status=%d, body=%s", resp.StatusCode, string(raw))
	}

	var out publishResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("decode publish response: %w", err)
	}
	if out.PublishedID == "" {
		return "", ErrNoPublishedID
	}
	return out.PublishedID, nil
}

// DryRun logs instead of publishing.
type DryRun struct {
	logger logrus.FieldLogger
}

// NewDryRun creates a DryRun sink.
func NewDryRun(logger logrus.FieldLogger) *DryRun {
	return &DryRun{logger: logger}
}

// Publish logs the content size and returns a fresh id.
func (d *DryRun) Publish(ctx context.Context, content string, metadata map[string]string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id := "dry-" + uuid.NewString()
	d.logger.WithFields(logrus.Fields{
		"published_id": id,
		"task_id":      metadata["task_id"],
		"bytes":        len(content),
	}).Info("dry-run publish")
	return id, nil
}
