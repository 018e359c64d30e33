package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/acctbay/storefront-backend/pkg/config"
	"github.com/acctbay/storefront-backend/pkg/logger"
)

// Client sends transactional email through the configured provider. Without an
// API key it degrades to logging the send, which keeps dev environments
// working without credentials.
type Client struct {
	cfg        config.MailConfig
	httpClient *http.Client
	logger     *logger.Logger
}

// NewClient builds a mail client.
func NewClient(cfg config.MailConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, fmt.Errorf("mail logger is required")
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logg,
	}, nil
}

// SendLoginCode emails a one-time login code to the recipient.
func (c *Client) SendLoginCode(ctx context.Context, to, code string) error {
	subject := "Your login code"
	body := fmt.Sprintf("Your login code is %s. It expires in a few minutes.", code)
	return c.send(ctx, to, subject, body)
}

func (c *Client) send(ctx context.Context, to, subject, body string) error {
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		ctx = c.logger.WithField(ctx, "to", to)
		c.logger.Warn(ctx, "mail api key missing, skipping email send")
		return nil
	}

	payload := map[string]any{
		"personalizations": []map[string]any{
			{"to": []map[string]string{{"email": to}}},
		},
		"from":    map[string]string{"email": c.cfg.DefaultFrom},
		"subject": subject,
		"content": []map[string]string{
			{"type": "text/plain", "value": body},
		},
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding mail payload: %w", err)
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/v3/mail/send"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("building mail request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending mail: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("mail provider returned status %d", resp.StatusCode)
	}
	return nil
}
