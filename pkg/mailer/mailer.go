// Package mailer sends transactional email through an HTTP mail API.
package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Message is an outbound email.
type Message struct {
	To      []string
	Subject string
	Text    string
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Client posts messages to {baseURL}/emails with a bearer key.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	from       string
	logger     *zap.Logger
}

// New creates a mail API client.
func New(baseURL, apiKey, from string, timeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		from:       from,
		logger:     logger.With(zap.String("component", "mailer")),
	}
}

// Send delivers msg. Any non-2xx response is an error.
func (c *Client) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return fmt.Errorf("mailer: message has no recipients")
	}
	payload, err := json.Marshal(map[string]any{
		"from":    c.from,
		"to":      msg.To,
		"subject": msg.Subject,
		"text":    msg.Text,
	})
	if err != nil {
		return fmt.Errorf("encode email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/emails", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build email request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("mail api returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	c.logger.Info("email sent", zap.Strings("to", msg.To), zap.String("subject", msg.Subject))
	return nil
}

// Noop discards messages. Used when notifications are disabled.
type Noop struct {
	Logger *zap.Logger
}

// Send logs and drops the message.
func (n Noop) Send(_ context.Context, msg Message) error {
	if n.Logger != nil {
		n.Logger.Debug("email suppressed", zap.Strings("to", msg.To), zap.String("subject", msg.Subject))
	}
	return nil
}
