package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"renthouse/config"
	deliverycontext "renthouse/internal/delivery/context"
	"renthouse/internal/domain/constants"
	"renthouse/internal/domain/entity"
	"renthouse/internal/domain/service"
	"renthouse/internal/infra/pubsub"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/fx"
	"google.golang.org/api/idtoken"
)

// retryableError wraps an error to indicate it should trigger a Pub/Sub retry
type retryableError struct {
	err error
}

func (e *retryableError) Error() string {
	return fmt.Sprintf("retryable: %v", e.err)
}

func (e *retryableError) Unwrap() error {
	return e.err
}

func newRetryableError(err error) error {
	return &retryableError{err: err}
}

func isRetryableError(err error) bool {
	var re *retryableError

	return errors.As(err, &re)
}

// PushHandler handles Pub/Sub push messages carrying account events
type PushHandler struct {
	verifyPushAuth bool
	logger         *slog.Logger
	sender         service.ResetTokenSender
	now            func() time.Time
}

// PushHandlerParams holds dependencies for the PushHandler
type PushHandlerParams struct {
	fx.In

	Config *config.Config
	Logger *slog.Logger
	Sender service.ResetTokenSender
}

// NewPushHandler creates a new Pub/Sub push handler
func NewPushHandler(params PushHandlerParams) *PushHandler {
	// Google push requests carry an OIDC token outside of develop
	verifyPushAuth := params.Config.PubSub != nil &&
		params.Config.PubSub.Provider == constants.PubSubProviderGoogle &&
		params.Config.Env.Env != constants.EnvDevelop

	return &PushHandler{
		verifyPushAuth: verifyPushAuth,
		logger:         params.Logger,
		sender:         params.Sender,
		now:            time.Now,
	}
}

// HandlePush handles incoming Pub/Sub push messages
func (h *PushHandler) HandlePush(c echo.Context) error {
	ctx := c.Request().Context()

	if h.verifyPushAuth {
		if err := verifyPubSubToken(c.Request()); err != nil {
			h.logger.Warn("[Worker] Invalid Pub/Sub token", slog.Any("error", err))

			return c.NoContent(http.StatusUnauthorized)
		}
	}

	var pushMsg pubsub.PubSubPushMessage
	if err := c.Bind(&pushMsg); err != nil {
		h.logger.Error("[Worker] Failed to parse push message", slog.Any("error", err))

		return c.NoContent(http.StatusBadRequest)
	}

	data, err := base64.StdEncoding.DecodeString(pushMsg.Message.Data)
	if err != nil {
		h.logger.Error("[Worker] Failed to decode message data", slog.Any("error", err))

		return c.NoContent(http.StatusBadRequest)
	}

	var event service.AccountEvent
	if err := json.Unmarshal(data, &event); err != nil {
		h.logger.Error("[Worker] Failed to parse account event", slog.Any("error", err))

		return c.NoContent(http.StatusBadRequest)
	}

	requestID := h.extractRequestID(ctx, &pushMsg, &event)
	reqLogger := h.logger.With(slog.String("request_id", requestID))
	ctx = deliverycontext.WithRequestID(ctx, requestID)
	ctx = deliverycontext.WithLogger(ctx, reqLogger)

	reqLogger.Info("[Worker] Processing account event",
		slog.String("message_id", pushMsg.Message.MessageID),
		slog.String("event_type", string(event.Type)),
		slog.Int64("account_id", event.AccountID),
	)

	if err := h.processEvent(ctx, &event); err != nil {
		reqLogger.Error("[Worker] Failed to process account event",
			slog.String("event_type", string(event.Type)),
			slog.Any("error", err),
			slog.Bool("retryable", isRetryableError(err)),
		)
		// 503 asks Pub/Sub to redeliver, 200 drops the message
		if isRetryableError(err) {
			return c.NoContent(http.StatusServiceUnavailable)
		}

		return c.NoContent(http.StatusOK)
	}

	return c.NoContent(http.StatusOK)
}

// extractRequestID prefers message attributes, then the payload, then the
// X-Request-Id header, and generates one as a last resort.
func (h *PushHandler) extractRequestID(ctx context.Context, pushMsg *pubsub.PubSubPushMessage, event *service.AccountEvent) string {
	if requestID, ok := pushMsg.Message.Attributes["request_id"]; ok && requestID != "" {
		return requestID
	}
	if event.RequestID != "" {
		return event.RequestID
	}
	if requestID := deliverycontext.GetRequestIDFromContext(ctx); requestID != "" {
		return requestID
	}

	return uuid.New().String()
}

func (h *PushHandler) processEvent(ctx context.Context, event *service.AccountEvent) error {
	logger := deliverycontext.GetLoggerOrDefault(ctx, h.logger)

	switch event.Type {
	case service.AccountEventPasswordResetRequested:
		return h.deliverResetToken(ctx, event)
	case service.AccountEventRegistered,
		service.AccountEventAdminCreated,
		service.AccountEventPasswordChanged,
		service.AccountEventPasswordReset:
		logger.Info("[Worker] Account event acknowledged", slog.String("event_type", string(event.Type)))

		return nil
	default:
		return errors.Errorf("unknown account event type %q", event.Type)
	}
}

// deliverResetToken sends the token by SMS. Tokens that already expired are
// dropped since redelivery can no longer help the account holder.
func (h *PushHandler) deliverResetToken(ctx context.Context, event *service.AccountEvent) error {
	if event.ResetToken == "" || event.PhoneNumber == "" {
		return errors.New("reset event carries no token or phone number")
	}

	remaining := entity.ResetTokenTTL
	if !event.OccurredAt.IsZero() {
		remaining = event.OccurredAt.Add(entity.ResetTokenTTL).Sub(h.now())
	}
	if remaining <= 0 {
		deliverycontext.GetLoggerOrDefault(ctx, h.logger).Warn("[Worker] Reset token expired before delivery",
			slog.Int64("account_id", event.AccountID),
		)

		return nil
	}

	if err := h.sender.SendResetToken(ctx, event.PhoneNumber, event.ResetToken, remaining); err != nil {
		return newRetryableError(errors.WithStack(err))
	}

	return nil
}

// verifyPubSubToken verifies the OIDC token Google Pub/Sub attaches to push requests.
func verifyPubSubToken(req *http.Request) error {
	authHeader := req.Header.Get("Authorization")
	if authHeader == "" {
		return errors.New("missing authorization header")
	}

	token, ok := strings.CutPrefix(authHeader, "Bearer ")
	if !ok {
		return errors.New("invalid authorization header format")
	}

	// The audience is the push endpoint URL
	scheme := "https"
	if req.TLS == nil {
		scheme = "http"
	}
	audience := fmt.Sprintf("%s://%s%s", scheme, req.Host, req.URL.Path)

	payload, err := idtoken.Validate(req.Context(), token, audience)
	if err != nil {
		return errors.Wrap(err, "failed to validate token")
	}

	if payload.Issuer != "accounts.google.com" && payload.Issuer != "https://accounts.google.com" {
		return errors.Errorf("invalid issuer: %s", payload.Issuer)
	}

	if emailVerified, ok := payload.Claims["email_verified"].(bool); ok && !emailVerified {
		return errors.New("email not verified")
	}

	return nil
}
