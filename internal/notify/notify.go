// Package notify delivers bot replies back to the chat platform.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

const defaultTimeout = 5 * time.Second

// Sender posts replies to the platform's delivery endpoint. A zero URL
// disables delivery (the API response body still carries the reply).
type Sender struct {
	URL    string
	Secret string
	Client *http.Client
	Logger *log.Logger
}

func New(url, secret string) Sender {
	return Sender{
		URL:    url,
		Secret: secret,
		Client: &http.Client{Timeout: defaultTimeout},
	}
}

func (s Sender) Enabled() bool { return strings.TrimSpace(s.URL) != "" }

type outgoingReply struct {
	ChatID int64  `json:"chat_id"`
	Text   string `json:"text"`
}

// Send posts one reply. A non-2xx answer is an error; the caller decides
// whether to log or drop it, there is no retry.
func (s Sender) Send(ctx context.Context, chatID int64, text string) error {
	if !s.Enabled() {
		return nil
	}
	data, err := json.Marshal(outgoingReply{ChatID: chatID, Text: text})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if strings.TrimSpace(s.Secret) != "" {
		req.Header.Set("X-Meetline-Secret", s.Secret)
	}
	client := s.Client
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	res, err := client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return fmt.Errorf("status %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

func (s Sender) logger() *log.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return log.Default()
}

// Deliver sends in the background and logs failures. Used on the serve path
// where the webhook response must not wait on the platform.
func (s Sender) Deliver(chatID int64, text string) {
	if !s.Enabled() || text == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
		defer cancel()
		if err := s.Send(ctx, chatID, text); err != nil {
			s.logger().Printf("notify: deliver to chat %d failed: %v", chatID, err)
		}
	}()
}
