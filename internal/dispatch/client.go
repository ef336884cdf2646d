// internal/dispatch/client.go
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	appErrors "github.com/glowdesk/campaigns-backend/internal/errors"
	"github.com/glowdesk/campaigns-backend/internal/model"
)

type Action string

const (
	ActionStop     Action = "stop"
	ActionContinue Action = "continue"
	ActionDelete   Action = "delete"
)

type Recipient struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// CreateJobRequest is the provider's job-creation payload.
type CreateJobRequest struct {
	Recipients          []Recipient       `json:"recipients"`
	DelayMin            int               `json:"delay_min"` // seconds between messages
	DelayMax            int               `json:"delay_max"`
	ScheduledForMinutes int               `json:"scheduled_for_minutes"` // minutes from now
	Kind                model.MessageKind `json:"type"`
	Text                string            `json:"text,omitempty"`
	FileURL             string            `json:"file_url,omitempty"`
	Label               string            `json:"label"`
}

// Message is one recipient-level outcome reported by the provider.
type Message struct {
	Recipient string     `json:"recipient"`
	Status    string     `json:"status"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// Client is the thin wrapper over the external dispatch provider.
type Client interface {
	CreateJob(ctx context.Context, req CreateJobRequest) (string, error)
	EditJob(ctx context.Context, jobID string, action Action) error
	ListMessages(ctx context.Context, jobID string) ([]Message, error)
}

type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewHTTPClient(baseURL, token string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) CreateJob(ctx context.Context, req CreateJobRequest) (string, error) {
	var out struct {
		JobID string `json:"job_id"`
	}
	if err := c.do(ctx, http.MethodPost, "/jobs", req, &out); err != nil {
		return "", err
	}
	if out.JobID == "" {
		return "", fmt.Errorf("dispatch provider returned an empty job id")
	}
	return out.JobID, nil
}

func (c *HTTPClient) EditJob(ctx context.Context, jobID string, action Action) error {
	body := struct {
		Action Action `json:"action"`
	}{Action: action}
	return c.do(ctx, http.MethodPatch, "/jobs/"+jobID, body, nil)
}

func (c *HTTPClient) ListMessages(ctx context.Context, jobID string) ([]Message, error) {
	var out struct {
		Messages []Message `json:"messages"`
	}
	if err := c.do(ctx, http.MethodGet, "/jobs/"+jobID+"/messages", nil, &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("dispatch provider unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &appErrors.ErrProvider{
			Operation:  method + " " + path,
			StatusCode: resp.StatusCode,
			Body:       string(raw),
		}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode provider response: %w", err)
		}
	}
	return nil
}

var _ Client = (*HTTPClient)(nil)
