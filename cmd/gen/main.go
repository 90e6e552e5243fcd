// Command gen generates type-safe gorm query helpers for the account tables.
package main

import (
	"renthouse/internal/infra/persistence/model"

	"gorm.io/gen"
)

// AccountQuerier declares lookups that are generated as raw SQL.
type AccountQuerier interface {
	// SELECT * FROM @@table WHERE phone_number = @phoneNumber LIMIT 1
	FindByPhoneNumber(phoneNumber string) (*gen.T, error)
	// SELECT * FROM @@table WHERE nick_name = @nickName LIMIT 1
	FindByNickName(nickName string) (*gen.T, error)
}

// RoleQuerier declares role lookups.
type RoleQuerier interface {
	// SELECT * FROM @@table WHERE account_id = @accountID ORDER BY id
	FindByAccountID(accountID int64) ([]*gen.T, error)
}

func main() {
	g := gen.NewGenerator(gen.Config{
		OutPath:       "./internal/infra/persistence/postgres/query",
		Mode:          gen.WithDefaultQuery | gen.WithQueryInterface,
		FieldNullable: true,
	})

	g.ApplyBasic(model.AccountModel{}, model.RoleModel{})
	g.ApplyInterface(func(AccountQuerier) {}, model.AccountModel{})
	g.ApplyInterface(func(RoleQuerier) {}, model.RoleModel{})

	g.Execute()
}
