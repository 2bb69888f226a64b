package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"elevate/internal/judge/model"
)

const (
	defaultHTTPTimeout    = 30 * time.Second
	defaultPollMaxRetries = 30
	defaultPollDelay      = time.Second
	defaultCPUTimeLimit   = 5.0
	defaultMemoryLimit    = 128000
)

// Config holds upstream judge client settings.
type Config struct {
	BaseURL      string        `yaml:"baseURL"`
	RapidAPIKey  string        `yaml:"rapidAPIKey"`
	RapidAPIHost string        `yaml:"rapidAPIHost"`
	AuthToken    string        `yaml:"authToken"`
	HTTPTimeout  time.Duration `yaml:"httpTimeout"`

	PollMaxRetries int           `yaml:"pollMaxRetries"`
	PollDelay      time.Duration `yaml:"pollDelay"`

	DefaultCPUTimeLimit float64 `yaml:"defaultCPUTimeLimit"` // seconds
	DefaultMemoryLimit  int     `yaml:"defaultMemoryLimit"`  // kilobytes
}

// SetDefaults fills zero-valued fields with process-wide defaults.
func (c *Config) SetDefaults() {
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = defaultHTTPTimeout
	}
	if c.PollMaxRetries <= 0 {
		c.PollMaxRetries = defaultPollMaxRetries
	}
	if c.PollDelay <= 0 {
		c.PollDelay = defaultPollDelay
	}
	if c.DefaultCPUTimeLimit <= 0 {
		c.DefaultCPUTimeLimit = defaultCPUTimeLimit
	}
	if c.DefaultMemoryLimit <= 0 {
		c.DefaultMemoryLimit = defaultMemoryLimit
	}
}

// Client talks to the upstream judge HTTP API.
type Client struct {
	cfg  Config
	http *http.Client
}

// New creates an upstream judge client.
func New(cfg Config) *Client {
	cfg.SetDefaults()
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.HTTPTimeout},
	}
}

// Config returns the effective client configuration.
func (c *Client) Config() Config {
	return c.cfg
}

// SubmitParams are the normalized parameters of one upstream submission.
type SubmitParams struct {
	SourceCode   string
	LanguageID   int
	Stdin        string
	CPUTimeLimit float64
	MemoryLimit  int
}

type submitRequest struct {
	SourceCode   string  `json:"source_code"`
	LanguageID   int     `json:"language_id"`
	Stdin        string  `json:"stdin"`
	CPUTimeLimit float64 `json:"cpu_time_limit"`
	MemoryLimit  int     `json:"memory_limit"`
}

type submitResponse struct {
	Token string `json:"token"`
}

// Submit sends a non-blocking creation request and returns the
// upstream token for the run.
func (c *Client) Submit(ctx context.Context, params SubmitParams) (string, error) {
	body, err := json.Marshal(submitRequest{
		SourceCode:   params.SourceCode,
		LanguageID:   params.LanguageID,
		Stdin:        params.Stdin,
		CPUTimeLimit: params.CPUTimeLimit,
		MemoryLimit:  params.MemoryLimit,
	})
	if err != nil {
		return "", fmt.Errorf("encode submission failed: %w", err)
	}

	url := fmt.Sprintf("%s/submissions?base64_encoded=false&wait=false", c.cfg.BaseURL)
	data, err := c.do(ctx, http.MethodPost, url, body)
	if err != nil {
		return "", err
	}

	var resp submitResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("decode submission response failed: %w", err)
	}
	if resp.Token == "" {
		return "", fmt.Errorf("upstream judge returned no token")
	}
	return resp.Token, nil
}

// FetchResult performs a single poll of upstream status for a token.
func (c *Client) FetchResult(ctx context.Context, token string) (*model.RawResult, error) {
	url := fmt.Sprintf("%s/submissions/%s?base64_encoded=false", c.cfg.BaseURL, token)
	data, err := c.do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	var result model.RawResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decode result failed: %w", err)
	}
	return &result, nil
}

// pollResult fetches until the status leaves the in-progress states or
// the retry budget runs out. After exhaustion it issues one final
// unconditional fetch and returns whatever comes back, even if still
// non-terminal. Fetch errors abort immediately and are not retried.
func (c *Client) pollResult(ctx context.Context, token string, maxRetries int, retryDelay time.Duration) (*model.RawResult, error) {
	if maxRetries <= 0 {
		maxRetries = c.cfg.PollMaxRetries
	}
	if retryDelay <= 0 {
		retryDelay = c.cfg.PollDelay
	}

	for i := 0; i < maxRetries; i++ {
		result, err := c.FetchResult(ctx, token)
		if err != nil {
			return nil, err
		}
		if result.Status.ID != StatusInQueue && result.Status.ID != StatusProcessing {
			return result, nil
		}

		timer := time.NewTimer(retryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	return c.FetchResult(ctx, token)
}

func (c *Client) do(ctx context.Context, method, url string, body []byte) ([]byte, error) {
	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("build request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.RapidAPIKey != "" {
		req.Header.Set("X-RapidAPI-Key", c.cfg.RapidAPIKey)
		req.Header.Set("X-RapidAPI-Host", c.cfg.RapidAPIHost)
	}
	if c.cfg.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.AuthToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upstream judge request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read upstream response failed: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("upstream judge returned status %d: %s", resp.StatusCode, bytes.TrimSpace(data))
	}
	return data, nil
}
