package model

// RoleModel mirrors the 'roles' table.
type RoleModel struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	AccountID int64  `gorm:"not null;index"`
	Name      string `gorm:"type:varchar(32);not null"`
}

// TableName explicitly sets the table name for GORM.
func (RoleModel) TableName() string {
	return "roles"
}
