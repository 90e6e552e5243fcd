package service

import (
	"context"
	"time"
)

// AccountEventType names a change in an account's credential lifecycle.
type AccountEventType string

const (
	AccountEventRegistered             AccountEventType = "account.registered"
	AccountEventAdminCreated           AccountEventType = "account.admin_created"
	AccountEventPasswordChanged        AccountEventType = "account.password_changed"
	AccountEventPasswordResetRequested AccountEventType = "account.password_reset_requested"
	AccountEventPasswordReset          AccountEventType = "account.password_reset"
)

// AccountEvent is published after an account change has been committed.
type AccountEvent struct {
	RequestID   string           `json:"request_id,omitempty"` // For distributed tracing
	Type        AccountEventType `json:"type"`
	AccountID   int64            `json:"account_id"`
	PhoneNumber string           `json:"phone_number"`
	Authorities []string         `json:"authorities,omitempty"`
	// ResetToken is only set on reset-requested events so an SMS sender can
	// deliver it.
	ResetToken string    `json:"reset_token,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// EventPublisher defines the interface for publishing events to a message queue
type EventPublisher interface {
	// PublishAccountEvent publishes an account lifecycle event
	PublishAccountEvent(ctx context.Context, event *AccountEvent) error

	// Close releases any resources held by the publisher
	Close() error
}
