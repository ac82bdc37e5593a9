package dialect

import "github.com/golobby/ormlite/schema"

// NamingStrategy maps Go type and field names to table and column names.
// Aliases set on a model or field always win over the strategy.
type NamingStrategy interface {
	TableName(name string) string
	ColumnName(name string) string
}

// DefaultNaming uses Go names as they are.
type DefaultNaming struct{}

func (DefaultNaming) TableName(name string) string  { return name }
func (DefaultNaming) ColumnName(name string) string { return name }

// SnakeCaseNaming turns UserAccount into user_account.
type SnakeCaseNaming struct{}

func (SnakeCaseNaming) TableName(name string) string  { return schema.SnakeCase(name) }
func (SnakeCaseNaming) ColumnName(name string) string { return schema.SnakeCase(name) }

// PluralSnakeCaseNaming turns UserAccount into user_accounts and keeps snake case columns.
type PluralSnakeCaseNaming struct{}

func (PluralSnakeCaseNaming) TableName(name string) string {
	return schema.SnakeCase(schema.Plural(name))
}
func (PluralSnakeCaseNaming) ColumnName(name string) string { return schema.SnakeCase(name) }

// NamingByName resolves the names accepted in configuration files.
func NamingByName(name string) NamingStrategy {
	switch name {
	case "snake", "snake_case":
		return SnakeCaseNaming{}
	case "plural_snake", "plural_snake_case":
		return PluralSnakeCaseNaming{}
	}
	return DefaultNaming{}
}
