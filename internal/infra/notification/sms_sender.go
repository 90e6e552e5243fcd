// Package notification delivers reset tokens to account holders.
package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"renthouse/config"
	"renthouse/internal/domain/service"
	"renthouse/internal/errors"
	"renthouse/internal/util"

	"go.uber.org/fx"
)

const resetTokenMessage = "您的重設密碼憑證為 %s，%d 分鐘內有效。"

// Params defines the required parameters
type Params struct {
	fx.In

	Config *config.Config
	Logger *slog.Logger
}

// NewResetTokenSender returns the SMS gateway sender, or a log-only sender
// when no gateway is configured.
func NewResetTokenSender(params Params) service.ResetTokenSender {
	cfg := params.Config.Notification
	if cfg == nil || cfg.SMSGatewayURL == "" {
		params.Logger.Info("SMS gateway not configured, reset tokens will only be logged as sent")

		return &logSender{logger: params.Logger}
	}

	return NewSMSGatewaySender(cfg.SMSGatewayURL, cfg.APIKey, cfg.Timeout, params.Logger)
}

// smsGatewaySender posts messages to an HTTP SMS gateway.
type smsGatewaySender struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

type smsRequest struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

// NewSMSGatewaySender creates a sender for the gateway at endpoint.
func NewSMSGatewaySender(endpoint, apiKey string, timeout time.Duration, logger *slog.Logger) service.ResetTokenSender {
	return &smsGatewaySender{
		endpoint:   endpoint,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

func (s *smsGatewaySender) SendResetToken(ctx context.Context, phoneNumber, token string, validFor time.Duration) error {
	body, err := json.Marshal(smsRequest{
		To:      phoneNumber,
		Message: fmt.Sprintf(resetTokenMessage, token, int(validFor.Minutes())),
	})
	if err != nil {
		return errors.WithStack(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return errors.WithStack(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "sms gateway request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.Errorf("sms gateway returned non-success status: %d", resp.StatusCode)
	}

	s.logger.DebugContext(ctx, "[SMS] Reset token sent", slog.String("to", MaskPhoneNumber(phoneNumber)))

	return nil
}

// logSender records that a message would have been sent. The token itself
// is never logged.
type logSender struct {
	logger *slog.Logger
}

func (s *logSender) SendResetToken(ctx context.Context, phoneNumber, _ string, validFor time.Duration) error {
	s.logger.InfoContext(ctx, "[SMS] Gateway disabled, reset token not sent",
		slog.String("to", MaskPhoneNumber(phoneNumber)),
		slog.String("valid_for", util.FormatDuration(validFor)),
	)

	return nil
}

// MaskPhoneNumber keeps the last four digits.
func MaskPhoneNumber(phoneNumber string) string {
	const visible = 4
	if len(phoneNumber) <= visible {
		return "****"
	}

	return "****" + phoneNumber[len(phoneNumber)-visible:]
}
