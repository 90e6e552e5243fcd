// Package pubsub publishes account lifecycle events to a message queue.
package pubsub

import (
	"encoding/json"
	"strconv"

	"renthouse/internal/domain/service"

	"github.com/pkg/errors"
)

// eventAttributes builds the message attributes used for filtering and tracing.
// The reset token stays in the payload and is never copied into attributes.
func eventAttributes(event *service.AccountEvent) map[string]string {
	attributes := map[string]string{
		"event_type": string(event.Type),
		"account_id": strconv.FormatInt(event.AccountID, 10),
	}
	if event.RequestID != "" {
		attributes["request_id"] = event.RequestID
	}

	return attributes
}

func encodeEvent(event *service.AccountEvent) ([]byte, error) {
	if event == nil {
		return nil, errors.New("account event is nil")
	}

	data, err := json.Marshal(event)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return data, nil
}
