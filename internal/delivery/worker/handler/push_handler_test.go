package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"renthouse/config"
	"renthouse/internal/domain/entity"
	"renthouse/internal/domain/service"
	"renthouse/internal/infra/pubsub"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSender struct {
	mock.Mock
}

func (m *mockSender) SendResetToken(ctx context.Context, phoneNumber, token string, validFor time.Duration) error {
	return m.Called(ctx, phoneNumber, token, validFor).Error(0)
}

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestPushHandler(sender service.ResetTokenSender) *PushHandler {
	h := NewPushHandler(PushHandlerParams{
		Config: &config.Config{},
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Sender: sender,
	})
	h.now = func() time.Time { return fixedNow }

	return h
}

func pushBody(t *testing.T, event *service.AccountEvent) string {
	t.Helper()

	data, err := json.Marshal(event)
	require.NoError(t, err)

	var msg pubsub.PubSubPushMessage
	msg.Message.Data = base64.StdEncoding.EncodeToString(data)
	msg.Message.MessageID = "msg-1"
	msg.Message.Attributes = map[string]string{"request_id": "req-1"}
	body, err := json.Marshal(msg)
	require.NoError(t, err)

	return string(body)
}

func push(h *PushHandler, body string) *httptest.ResponseRecorder {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/push", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	_ = h.HandlePush(e.NewContext(req, rec))

	return rec
}

func resetEvent(occurredAt time.Time) *service.AccountEvent {
	return &service.AccountEvent{
		Type:        service.AccountEventPasswordResetRequested,
		AccountID:   7,
		PhoneNumber: "13800000000",
		ResetToken:  "tok-1",
		OccurredAt:  occurredAt,
	}
}

func TestHandlePush_DeliversResetToken(t *testing.T) {
	sender := &mockSender{}
	sender.On("SendResetToken", mock.Anything, "13800000000", "tok-1", entity.ResetTokenTTL-5*time.Minute).Return(nil).Once()

	rec := push(newTestPushHandler(sender), pushBody(t, resetEvent(fixedNow.Add(-5*time.Minute))))

	assert.Equal(t, http.StatusOK, rec.Code)
	sender.AssertExpectations(t)
}

func TestHandlePush_SenderFailureIsRetried(t *testing.T) {
	sender := &mockSender{}
	sender.On("SendResetToken", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("gateway down")).Once()

	rec := push(newTestPushHandler(sender), pushBody(t, resetEvent(fixedNow)))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHandlePush_ExpiredTokenIsDropped(t *testing.T) {
	sender := &mockSender{}

	rec := push(newTestPushHandler(sender), pushBody(t, resetEvent(fixedNow.Add(-entity.ResetTokenTTL))))

	assert.Equal(t, http.StatusOK, rec.Code)
	sender.AssertNotCalled(t, "SendResetToken", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandlePush_AcknowledgesOtherEvents(t *testing.T) {
	sender := &mockSender{}
	event := &service.AccountEvent{Type: service.AccountEventRegistered, AccountID: 1, OccurredAt: fixedNow}

	rec := push(newTestPushHandler(sender), pushBody(t, event))

	assert.Equal(t, http.StatusOK, rec.Code)
	sender.AssertNotCalled(t, "SendResetToken", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandlePush_MalformedMessages(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: "{"},
		{name: "bad base64", body: `{"message":{"data":"%%%"}}`},
		{name: "bad event", body: `{"message":{"data":"` + base64.StdEncoding.EncodeToString([]byte("[]")) + `"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := push(newTestPushHandler(&mockSender{}), tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestExtractRequestID(t *testing.T) {
	h := newTestPushHandler(&mockSender{})

	var msg pubsub.PubSubPushMessage
	assert.Equal(t, "from-event", h.extractRequestID(context.Background(), &msg, &service.AccountEvent{RequestID: "from-event"}))

	msg.Message.Attributes = map[string]string{"request_id": "from-attr"}
	assert.Equal(t, "from-attr", h.extractRequestID(context.Background(), &msg, &service.AccountEvent{RequestID: "from-event"}))

	generated := h.extractRequestID(context.Background(), &pubsub.PubSubPushMessage{}, &service.AccountEvent{})
	assert.NotEmpty(t, generated)
}
