package handler

import (
	"time"

	"renthouse/internal/domain/entity"
)

// AccountResponse is the public view of an account. The password digest
// never leaves the service.
type AccountResponse struct {
	ID           int64     `json:"id"`
	PhoneNumber  string    `json:"phoneNumber,omitempty"`
	Name         string    `json:"name"`
	NickName     string    `json:"nickName"`
	Avatar       string    `json:"avatar"`
	Introduction string    `json:"introduction"`
	Authorities  []string  `json:"authorities"`
	HasPassword  bool      `json:"hasPassword"`
	CreatedAt    time.Time `json:"createdAt"`
}

func newAccountResponse(account *entity.Account) *AccountResponse {
	return &AccountResponse{
		ID:           account.ID,
		PhoneNumber:  account.PhoneNumber,
		Name:         account.Name,
		NickName:     account.NickName,
		Avatar:       account.Avatar,
		Introduction: account.Introduction,
		Authorities:  account.Authorities.ToStrings(),
		HasPassword:  account.HasPassword(),
		CreatedAt:    account.CreatedAt,
	}
}

// newPublicAccountResponse hides contact details from other accounts.
func newPublicAccountResponse(account *entity.Account) *AccountResponse {
	resp := newAccountResponse(account)
	resp.PhoneNumber = ""
	resp.HasPassword = false

	return resp
}
