// Package model_caller calls OpenAI-compatible chat completion endpoints.
package model_caller

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Message is one chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CallOptions tunes a single call.
type CallOptions struct {
	MaxTokens   int
	Temperature float64
	TopP        float64
}

type chatResponse struct {
	Choices []struct {
		Message      Message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// ErrEmptyCompletion is returned when the endpoint answers without text.
var ErrEmptyCompletion = errors.New("empty completion")

// ModelCaller is a client for one provider endpoint.
type ModelCaller struct {
	client  *http.Client
	apiBase string
	apiKey  string
}

// NewModelCaller creates a client. The per-call deadline comes from ctx.
func NewModelCaller(apiBase, apiKey string) *ModelCaller {
	return &ModelCaller{
		client:  &http.Client{},
		apiBase: strings.TrimRight(apiBase, "/"),
		apiKey:  apiKey,
	}
}

// Call sends one chat completion request and returns the first choice.
func (mc *ModelCaller) Call(ctx context.Context, model string, messages []Message, options *CallOptions) (string, error) {
	if options == nil {
		options = &CallOptions{MaxTokens: 2048, Temperature: 0.7, TopP: 1.0}
	}

	reqBody := map[string]interface{}{
		"model":       model,
		"messages":    messages,
		"max_tokens":  options.MaxTokens,
		"temperature": options.Temperature,
		"top_p":       options.TopP,
	}
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, mc.apiBase+"/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if mc.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+mc.apiKey)
	}

	resp, err := mc.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("api error: status=%d, body=%s", resp.StatusCode, truncate(string(body), 512))
	}

	var result chatResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(result.Choices) == 0 || strings.TrimSpace(result.Choices[0].Message.Content) == "" {
		return "", ErrEmptyCompletion
	}
	return result.Choices[0].Message.Content, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Limiter bounds concurrent calls per key.
type Limiter interface {
	Acquire(ctx context.Context, key string, limit int) error
	Release(ctx context.Context, key string)
}

// LocalLimiter is an in-process Limiter for single-instance deployments.
type LocalLimiter struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

// NewLocalLimiter creates a LocalLimiter.
func NewLocalLimiter() *LocalLimiter {
	return &LocalLimiter{slots: make(map[string]chan struct{})}
}

func (l *LocalLimiter) semaphore(key string, limit int) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	sem, ok := l.slots[key]
	if !ok {
		sem = make(chan struct{}, limit)
		l.slots[key] = sem
	}
	return sem
}

// Acquire blocks until a slot for key is free or ctx is done. The first
// call for a key fixes its limit.
func (l *LocalLimiter) Acquire(ctx context.Context, key string, limit int) error {
	if limit <= 0 {
		return nil
	}
	select {
	case l.semaphore(key, limit) <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a slot for key.
func (l *LocalLimiter) Release(_ context.Context, key string) {
	l.mu.Lock()
	sem, ok := l.slots[key]
	l.mu.Unlock()
	if !ok {
		return
	}
	select {
	case <-sem:
	default:
	}
}

// Provider is one configured endpoint.
type Provider struct {
	BaseURL       string
	APIKey        string
	MaxConcurrent int
	MaxTokens     int
}

// Request is one generation call.
type Request struct {
	Phase    string
	Provider string
	Model    string
	System   string
	Prompt   string
}

// ErrUnknownProvider is returned for a provider with no configured endpoint.
var ErrUnknownProvider = errors.New("unknown provider")

type endpoint struct {
	caller *ModelCaller
	cfg    Provider
}

// Router dispatches generation calls to provider endpoints, bounding each
// model's concurrency through the limiter.
type Router struct {
	endpoints map[string]endpoint
	limiter   Limiter
}

// NewRouter creates a Router over the configured providers.
func NewRouter(providers map[string]Provider, limiter Limiter) *Router {
	eps := make(map[string]endpoint, len(providers))
	for name, p := range providers {
		eps[name] = endpoint{caller: NewModelCaller(p.BaseURL, p.APIKey), cfg: p}
	}
	return &Router{endpoints: eps, limiter: limiter}
}

// Generate runs one call. The caller sets the deadline on ctx.
func (r *Router) Generate(ctx context.Context, req Request) (string, error) {
	ep, ok := r.endpoints[req.Provider]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownProvider, req.Provider)
	}

	if r.limiter != nil {
		key := req.Provider + ":" + req.Model
		if err := r.limiter.Acquire(ctx, key, ep.cfg.MaxConcurrent); err != nil {
			return "", fmt.Errorf("acquire model slot: %w", err)
		}
		defer r.limiter.Release(ctx, key)
	}

	messages := make([]Message, 0, 2)
	if req.System != "" {
		messages = append(messages, Message{Role: "system", Content: req.System})
	}
	messages = append(messages, Message{Role: "user", Content: req.Prompt})

	maxTokens := ep.cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2048
	}
	start := time.Now()
	text, err := ep.caller.Call(ctx, req.Model, messages, &CallOptions{MaxTokens: maxTokens, Temperature: 0.7, TopP: 1.0})
	if err != nil {
		return "", fmt.Errorf("%s/%s after %v: %w", req.Provider, req.Model, time.Since(start).Round(time.Millisecond), err)
	}
	return text, nil
}
