// Package entity contains the core business objects of the project,
// each representing a unique, identifiable concept within the domain.
package entity

import (
	"strings"
	"time"
)

// DefaultNickNamePrefix is prepended to the phone number to build the
// initial login name and nickname of a freshly registered account.
const DefaultNickNamePrefix = "zfyh"

// MaxPasswordBytes is the longest password bcrypt accepts, in bytes.
const MaxPasswordBytes = 72

// Account is the credential-bearing identity of a person in the system.
type Account struct {
	ID           int64       // Server-assigned identifier, immutable once created.
	PhoneNumber  string      // Unique login key, immutable.
	Name         string      // Login name, DefaultNickNamePrefix + phone number.
	NickName     string      // Display name, unique and mutable through profile updates.
	PasswordHash string      // bcrypt digest; empty when no password has been set yet.
	Avatar       string      // Avatar URL or storage key.
	Introduction string      // Free-form self introduction.
	Authorities  Authorities // Derived from the account's roles, never persisted.
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewPhoneAccount builds an unsaved account for the given phone number with
// the default login name and nickname.
func NewPhoneAccount(phoneNumber string) *Account {
	name := DefaultNickName(phoneNumber)

	return &Account{
		PhoneNumber: phoneNumber,
		Name:        name,
		NickName:    name,
	}
}

// DefaultNickName returns the nickname assigned at registration.
func DefaultNickName(phoneNumber string) string {
	return DefaultNickNamePrefix + phoneNumber
}

// HasPassword reports whether a password digest has been stored.
func (a *Account) HasPassword() bool {
	return strings.TrimSpace(a.PasswordHash) != ""
}
