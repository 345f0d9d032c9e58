package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/labang-online/portal/internal/config"
)

// SMSSender posts messages to a Semaphore-style HTTP gateway.
type SMSSender struct {
	client     *resty.Client
	apiURL     string
	apiKey     string
	senderName string
}

// NewSMSSender creates an SMS gateway client.
func NewSMSSender(cfg config.SMSConfig) *SMSSender {
	client := resty.New().
		SetTimeout(10 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		SetHeader("Accept", "application/json")

	return &SMSSender{client: client, apiURL: cfg.APIURL, apiKey: cfg.APIKey, senderName: cfg.SenderName}
}

// Send delivers one text message.
func (s *SMSSender) Send(ctx context.Context, to, body string) error {
	if s.apiKey == "" {
		return fmt.Errorf("sms %w", ErrDisabled)
	}

	form := map[string]string{
		"apikey":  s.apiKey,
		"number":  to,
		"message": body,
	}
	if s.senderName != "" {
		form["sendername"] = s.senderName
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetFormData(form).
		Post(s.apiURL)
	if err != nil {
		return fmt.Errorf("sms gateway request failed: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("sms gateway returned %d: %s", resp.StatusCode(), truncate(resp.String(), 200))
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
