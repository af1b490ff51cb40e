// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TaskForge Contributors

package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/samber/oops"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/sethvargo/go-retry"
)

// DefaultAPIURL is the mail API endpoint used when none is configured.
const DefaultAPIURL = "https://api.sendgrid.com/v3/mail/send"

// SendGridSender delivers messages through the SendGrid v3 mail API.
// Transport errors and 5xx responses are retried with exponential backoff.
type SendGridSender struct {
	client     *rest.Client
	request    rest.Request
	baseDelay  time.Duration
	maxRetries uint64
}

// NewSendGridSender creates a SendGridSender posting to apiURL. A nil client
// uses http.DefaultClient.
func NewSendGridSender(client *http.Client, apiURL, apiKey string) (*SendGridSender, error) {
	if apiKey == "" {
		return nil, oops.Code("NOTIFY_API_KEY_REQUIRED").Errorf("mail API key is required")
	}
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	u, err := url.Parse(apiURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, oops.Code("NOTIFY_API_URL_INVALID").With("url", apiURL).Errorf("mail API URL must be absolute")
	}
	if client == nil {
		client = http.DefaultClient
	}

	request := sendgrid.GetRequest(apiKey, u.EscapedPath(), u.Scheme+"://"+u.Host)
	request.Method = rest.Post
	request.Headers["Content-Type"] = "application/json"

	return &SendGridSender{
		client:     &rest.Client{HTTPClient: client},
		request:    request,
		baseDelay:  200 * time.Millisecond,
		maxRetries: 3,
	}, nil
}

// Send posts msg to the mail API.
func (s *SendGridSender) Send(ctx context.Context, msg Message) error {
	email := mail.NewSingleEmail(
		mail.NewEmail("", msg.From),
		msg.Subject,
		mail.NewEmail("", msg.To),
		msg.Text,
		"",
	)
	request := s.request
	request.Body = mail.GetRequestBody(email)

	backoff := retry.WithMaxRetries(s.maxRetries, retry.NewExponential(s.baseDelay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		return s.send(ctx, request)
	})
	if err != nil {
		return oops.Code("NOTIFY_SEND_FAILED").With("subject", msg.Subject).Wrap(err)
	}
	return nil
}

func (s *SendGridSender) send(ctx context.Context, request rest.Request) error {
	resp, err := s.client.SendWithContext(ctx, request)
	if err != nil {
		return retry.RetryableError(err)
	}

	switch {
	case resp.StatusCode >= 500:
		return retry.RetryableError(fmt.Errorf("mail API returned %d", resp.StatusCode))
	case resp.StatusCode >= 300:
		return fmt.Errorf("mail API returned %d: %s", resp.StatusCode, resp.Body)
	default:
		return nil
	}
}

// LogSender logs messages instead of delivering them. It is used when no
// mail API key is configured.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a LogSender.
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// Send logs msg.
func (s *LogSender) Send(ctx context.Context, msg Message) error {
	s.logger.InfoContext(ctx, "mail delivery disabled, message not sent",
		"to", msg.To,
		"subject", msg.Subject,
	)
	return nil
}
