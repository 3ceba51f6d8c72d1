// Package email delivers outbound mail through the Resend HTTP API.
// Used when SMTP egress is blocked on the hosting platform.
package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const defaultAPIURL = "https://api.resend.com/emails"

// Config holds Resend sender configuration
type Config struct {
	APIKey    string
	FromEmail string
	FromName  string
	APIURL    string // overridable for tests
}

// Sender sends transactional email via the Resend API.
type Sender struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger
}

// NewSender creates a new Resend email sender
func NewSender(cfg Config, logger *zap.Logger) *Sender {
	if cfg.APIURL == "" {
		cfg.APIURL = defaultAPIURL
	}
	return &Sender{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// Send delivers one HTML email. The body may carry a plaintext secret, so
// only the recipient and subject are ever logged.
func (s *Sender) Send(ctx context.Context, to, subject, htmlBody string) error {
	from := s.cfg.FromEmail
	if s.cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", s.cfg.FromName, s.cfg.FromEmail)
	}

	body, err := json.Marshal(sendRequest{
		From:    from,
		To:      []string{to},
		Subject: subject,
		HTML:    htmlBody,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.APIURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Warn("Resend request failed",
			zap.String("to", to),
			zap.Error(err))
		return fmt.Errorf("resend request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		s.logger.Warn("Resend API rejected email",
			zap.String("to", to),
			zap.Int("status", resp.StatusCode))
		return fmt.Errorf("resend API error %d: %s", resp.StatusCode, string(respBody))
	}

	s.logger.Info("Email delivered",
		zap.String("to", to),
		zap.String("subject", subject))
	return nil
}
