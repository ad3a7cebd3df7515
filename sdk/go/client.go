// Package meetlinesdk is a minimal Meetline HTTP API client.
package meetlinesdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client talks to a Meetline server. WebhookSecret authorizes message
// posts; BearerToken authorizes the read endpoints.
type Client struct {
	BaseURL       string
	WebhookSecret string
	BearerToken   string
	HTTPClient    *http.Client
	Timeout       time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// Schedule mirrors the API schedule model.
type Schedule struct {
	ID        string `json:"id"`
	ChatID    int64  `json:"chat_id"`
	Summary   string `json:"summary"`
	StartAt   string `json:"start_at"`
	EndAt     string `json:"end_at"`
	Status    string `json:"status"`
	EventID   string `json:"event_id,omitempty"`
	MeetLink  string `json:"meet_link,omitempty"`
	CreatedAt string `json:"created_at"`
}

// Event mirrors one log entry.
type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts"`
	Type       string `json:"type"`
	ScheduleID string `json:"schedule_id,omitempty"`
	ChatID     int64  `json:"chat_id"`
	Payload    string `json:"payload_json"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// PostMessage submits one chat message and returns the bot's reply. An
// empty reply means the bot chose silence.
func (c *Client) PostMessage(ctx context.Context, chatID int64, text string) (string, error) {
	body := map[string]any{
		"chat_id": chatID,
		"text":    text,
	}
	var resp struct {
		Reply string `json:"reply"`
	}
	err := c.do(ctx, http.MethodPost, "messages", body, &resp)
	return resp.Reply, err
}

// ListSchedules returns recent schedule records, newest first.
func (c *Client) ListSchedules(ctx context.Context, limit int) ([]Schedule, error) {
	endpoint := "schedules"
	if limit > 0 {
		endpoint = fmt.Sprintf("%s?limit=%d", endpoint, limit)
	}
	var resp struct {
		Items []Schedule `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp.Items, err
}

// Events returns recent log entries.
func (c *Client) Events(ctx context.Context, limit int) ([]Event, error) {
	endpoint := "events"
	if limit > 0 {
		endpoint = fmt.Sprintf("%s?limit=%d", endpoint, limit)
	}
	var resp struct {
		Items []Event `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp.Items, err
}

func (c *Client) base() string {
	base := strings.TrimRight(c.BaseURL, "/")
	if !strings.HasSuffix(base, "/v0") {
		base += "/v0"
	}
	return base
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	}
	if c.WebhookSecret != "" {
		req.Header.Set("X-Meetline-Secret", c.WebhookSecret)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
