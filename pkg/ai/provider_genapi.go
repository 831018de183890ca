package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"resumebot/pkg/logx"
)

// DefaultGenAPIBaseURL is the production endpoint of the gen-api.ru gateway.
const DefaultGenAPIBaseURL = "https://api.gen-api.ru/api/v1"

// GenAPIConfig configures the submit-and-poll backend.
type GenAPIConfig struct {
	APIKey          string
	BaseURL         string
	Model           string
	PollInterval    time.Duration
	MaxPollAttempts int
	// HTTPClient may be overridden in tests.
	HTTPClient *http.Client
}

// GenAPIProvider is an asynchronous backend: it submits a generation job and
// polls a status endpoint until the job succeeds, fails, or the attempt
// ceiling is reached. The gateway does not report token usage, so usage is
// always zero.
type GenAPIProvider struct {
	cfg    GenAPIConfig
	client *http.Client
	logger *logx.Logger
}

// NewGenAPIProvider creates the provider, filling config defaults.
func NewGenAPIProvider(cfg GenAPIConfig) *GenAPIProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultGenAPIBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-5-mini"
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.MaxPollAttempts <= 0 {
		cfg.MaxPollAttempts = 60
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &GenAPIProvider{
		cfg:    cfg,
		client: client,
		logger: logx.NewLogger("genapi"),
	}
}

func (p *GenAPIProvider) Name() string { return "genapi" }

type genAPISubmitResponse struct {
	RequestID int64 `json:"request_id"`
}

type genAPIStatusResponse struct {
	Status string `json:"status"`
	Output string `json:"output"`
}

// Complete submits the job and polls until a terminal status or the attempt
// ceiling. Exceeding the ceiling is a timeout failure with the same shape as
// any other error.
func (p *GenAPIProvider) Complete(ctx context.Context, prompt string) (Completion, error) {
	requestID, err := p.submit(ctx, prompt)
	if err != nil {
		return Completion{}, err
	}
	p.logger.Debug("job %d submitted, polling every %s", requestID, p.cfg.PollInterval)

	for attempt := 1; attempt <= p.cfg.MaxPollAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return Completion{}, NewError(ErrorTypeTimeout, "genapi poll canceled", ctx.Err())
		case <-time.After(p.cfg.PollInterval):
		}

		status, err := p.poll(ctx, requestID)
		if err != nil {
			return Completion{}, err
		}

		switch status.Status {
		case "success":
			if status.Output == "" {
				return Completion{}, Errorf(ErrorTypeEmpty, "genapi job %d succeeded with no output", requestID)
			}
			return Completion{Content: status.Output}, nil
		case "failed":
			return Completion{}, Errorf(ErrorTypeUnavailable, "genapi job %d failed", requestID)
		default:
			// "starting"/"processing": keep polling.
		}
	}

	return Completion{}, Errorf(ErrorTypeTimeout,
		"genapi job %d not finished after %d attempts", requestID, p.cfg.MaxPollAttempts)
}

func (p *GenAPIProvider) submit(ctx context.Context, prompt string) (int64, error) {
	payload := map[string]any{
		"is_sync": false,
		"model":   p.cfg.Model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, NewError(ErrorTypeUnavailable, "genapi encode request", err)
	}

	url := fmt.Sprintf("%s/networks/%s", p.cfg.BaseURL, p.cfg.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, NewError(ErrorTypeUnavailable, "genapi build request", err)
	}
	p.setHeaders(req)

	resp, err := p.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return 0, NewError(ErrorTypeTimeout, "genapi submit canceled", err)
		}
		return 0, NewError(ErrorTypeUnavailable, "genapi submit failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, Errorf(ErrorTypeUnavailable, "genapi submit returned HTTP %d", resp.StatusCode)
	}

	var submitted genAPISubmitResponse
	if err := decodeBody(resp.Body, &submitted); err != nil {
		return 0, NewError(ErrorTypeMalformed, "genapi submit response", err)
	}
	if submitted.RequestID == 0 {
		return 0, Errorf(ErrorTypeMalformed, "genapi submit response missing request_id")
	}
	return submitted.RequestID, nil
}

func (p *GenAPIProvider) poll(ctx context.Context, requestID int64) (*genAPIStatusResponse, error) {
	url := fmt.Sprintf("%s/request/get/%d", p.cfg.BaseURL, requestID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, NewError(ErrorTypeUnavailable, "genapi build poll request", err)
	}
	p.setHeaders(req)

	resp, err := p.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, NewError(ErrorTypeTimeout, "genapi poll canceled", err)
		}
		return nil, NewError(ErrorTypeUnavailable, "genapi poll failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, Errorf(ErrorTypeUnavailable, "genapi poll returned HTTP %d", resp.StatusCode)
	}

	var status genAPIStatusResponse
	if err := decodeBody(resp.Body, &status); err != nil {
		return nil, NewError(ErrorTypeMalformed, "genapi poll response", err)
	}
	return &status, nil
}

func (p *GenAPIProvider) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
}

func decodeBody(r io.Reader, v any) error {
	data, err := io.ReadAll(io.LimitReader(r, 1<<20))
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
