// Package createai is a thin client for the hosted CreateAI query endpoint
// that powers chat and study-aid generation.
package createai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/mind-engage/studycoach/internal/platform/logger"
)

var ErrNotConfigured = errors.New("createai: endpoint or token not configured")

type Config struct {
	URL           string
	Token         string
	ModelProvider string
	ModelName     string
	Timeout       time.Duration
	MaxRetries    int
	// Backoff is the first retry delay; it doubles on each retry.
	Backoff time.Duration
}

type QueryRequest struct {
	Query        string
	SessionID    string
	SystemPrompt string
	Temperature  *float64
}

type QueryResponse struct {
	Response  string `json:"response"`
	SessionID string `json:"session_id"`
}

type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("createai http %d", e.StatusCode)
	}
	return fmt.Sprintf("createai http %d: %s", e.StatusCode, e.Body)
}

type Client struct {
	log        *logger.Logger
	cfg        Config
	httpClient *http.Client
}

// New builds a client. An unconfigured client is valid; its queries fail
// with ErrNotConfigured.
func New(cfg Config, log *logger.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = time.Second
	}
	cfg.URL = strings.TrimSpace(cfg.URL)
	cfg.Token = strings.TrimSpace(cfg.Token)

	hc := oauth2.NewClient(context.Background(), oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: cfg.Token,
		TokenType:   "Bearer",
	}))
	hc.Timeout = cfg.Timeout

	return &Client{
		log:        log.With("service", "CreateAIClient"),
		cfg:        cfg,
		httpClient: hc,
	}
}

func (c *Client) Configured() bool { return c.cfg.URL != "" && c.cfg.Token != "" }

type modelParams struct {
	SystemPrompt string   `json:"system_prompt,omitempty"`
	Temperature  *float64 `json:"temperature,omitempty"`
}

type wireRequest struct {
	Action        string      `json:"action"`
	Query         string      `json:"query"`
	ModelProvider string      `json:"model_provider,omitempty"`
	ModelName     string      `json:"model_name,omitempty"`
	SessionID     string      `json:"session_id,omitempty"`
	ModelParams   modelParams `json:"model_params"`
}

// Query sends one prompt. 429, 5xx and transport failures are retried with
// exponential backoff, honoring Retry-After.
func (c *Client) Query(ctx context.Context, q QueryRequest) (QueryResponse, error) {
	if !c.Configured() {
		return QueryResponse{}, ErrNotConfigured
	}
	body := wireRequest{
		Action:        "query",
		Query:         q.Query,
		ModelProvider: c.cfg.ModelProvider,
		ModelName:     c.cfg.ModelName,
		SessionID:     q.SessionID,
		ModelParams:   modelParams{SystemPrompt: q.SystemPrompt, Temperature: q.Temperature},
	}

	var out QueryResponse
	if err := c.do(ctx, body, &out); err != nil {
		return QueryResponse{}, err
	}
	if out.SessionID == "" {
		out.SessionID = q.SessionID
	}
	return out, nil
}

func (c *Client) doOnce(ctx context.Context, body any) (*http.Response, []byte, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, &buf)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, raw, &HTTPError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	return resp, raw, nil
}

func (c *Client) do(ctx context.Context, body any, out any) error {
	backoff := c.cfg.Backoff

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		resp, raw, err := c.doOnce(ctx, body)
		if err == nil {
			if uErr := json.Unmarshal(raw, out); uErr != nil {
				return fmt.Errorf("createai decode: %w", uErr)
			}
			return nil
		}
		if !retryable(ctx, err) || attempt >= c.cfg.MaxRetries {
			return err
		}

		sleepFor := jitter(retryAfter(resp, backoff, 30*time.Second))
		c.log.Warn("CreateAI request retrying",
			"attempt", attempt+1,
			"max_retries", c.cfg.MaxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sleepFor):
		}
		backoff *= 2
	}
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var he *HTTPError
	if errors.As(err, &he) {
		return he.StatusCode == http.StatusTooManyRequests || he.StatusCode >= 500
	}
	var se *json.SyntaxError
	return !errors.As(err, &se)
}

func retryAfter(resp *http.Response, fallback, max time.Duration) time.Duration {
	sleepFor := fallback
	if resp != nil {
		if ra := strings.TrimSpace(resp.Header.Get("Retry-After")); ra != "" {
			if secs, err := strconv.Atoi(ra); err == nil && secs > 0 {
				sleepFor = time.Duration(secs) * time.Second
			}
		}
	}
	if max > 0 && sleepFor > max {
		sleepFor = max
	}
	return sleepFor
}

func jitter(base time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	delta := float64(base) * 0.2
	return time.Duration(float64(base) - delta + rand.Float64()*2*delta)
}
