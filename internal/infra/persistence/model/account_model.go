// Package model holds the GORM persistence models.
package model

import (
	"time"
)

// Unique constraint names, referenced when translating violations.
const (
	ConstraintAccountPhoneNumber = "uk_accounts_phone_number"
	ConstraintAccountName        = "uk_accounts_name"
	ConstraintAccountNickName    = "uk_accounts_nick_name"
)

// AccountModel mirrors the 'accounts' table.
type AccountModel struct {
	ID           int64   `gorm:"primaryKey;autoIncrement"`
	PhoneNumber  string  `gorm:"type:varchar(32);not null;uniqueIndex:uk_accounts_phone_number"`
	Name         string  `gorm:"type:varchar(64);not null;uniqueIndex:uk_accounts_name"`
	NickName     string  `gorm:"type:varchar(64);not null;uniqueIndex:uk_accounts_nick_name"`
	Password     *string `gorm:"type:varchar(255)"`
	Avatar       string  `gorm:"type:varchar(512)"`
	Introduction string  `gorm:"type:text"`
	CreatedAt    time.Time
	UpdatedAt    time.Time

	Roles []RoleModel `gorm:"foreignKey:AccountID;constraint:OnDelete:CASCADE"`
}

// TableName explicitly sets the table name for GORM.
func (AccountModel) TableName() string {
	return "accounts"
}
