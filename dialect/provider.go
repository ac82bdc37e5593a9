// Package dialect renders backend specific SQL: quoting, literals, column types, DDL,
// paging and parameter placeholders.
package dialect

import (
	"reflect"
	"strconv"

	"github.com/golobby/ormlite/schema"
)

// Provider is the per backend contract every statement is rendered through.
type Provider interface {
	Name() string

	QuoteTable(m *schema.ModelDefinition) string
	QuoteTableName(name string) string
	QuoteColumn(name string) string
	QuoteString(s string) string
	// Literal renders v inline, for the non parameterized mode.
	Literal(v any) string
	// ConstructLiteral renders values that are backend constructs rather than data.
	// Such values are never bound as parameters.
	ConstructLiteral(v any) (string, bool)
	TrueLiteral() string
	FalseLiteral() string

	TableName(m *schema.ModelDefinition) string
	ColumnName(f *schema.FieldDefinition) string
	ColumnType(f *schema.FieldDefinition) string
	EnumAsInt(f *schema.FieldDefinition) bool

	StringFunc(method, column string, args ...string) (string, error)
	Concat(parts ...string) string
	EscapeWildcards(s string) (string, bool)
	LikeEscape() string
	// SQLMethod translates a method call the compiler has no rule for.
	SQLMethod(method, target string, args []string) (string, bool)

	ToSelectStatement(p SelectParts) (string, error)
	ToExistsStatement(selectSQL string) string
	ToCreateTableStatement(m *schema.ModelDefinition) (string, error)
	ToAddColumnStatement(m *schema.ModelDefinition, f *schema.FieldDefinition) string
	ToAlterColumnStatement(m *schema.ModelDefinition, f *schema.FieldDefinition) (string, error)
	ToChangeColumnNameStatement(m *schema.ModelDefinition, f *schema.FieldDefinition, oldName string) string
	ToDropTableStatement(m *schema.ModelDefinition) string
	ToTableExistsStatement(m *schema.ModelDefinition) (string, []Param)
	ToInsertStatement(m *schema.ModelDefinition, columns, values []string, returning *schema.FieldDefinition) string
	ToSelectIdentityStatement(m *schema.ModelDefinition) (string, error)
	ToRowVersionStatement(m *schema.ModelDefinition) (string, error)
	IdentityStrategy() IdentityStrategy
	RowVersionNative() bool

	Finalize(text string, params []Param) (string, []Param)
	BindNamed(text string, named map[string]any) (string, []Param, error)
	SanitizeParamName(name string) string
	Args(params []Param) []any

	ToDBValue(f *schema.FieldDefinition, v any) (any, error)
	FromDBValue(t reflect.Type, v any) (any, error)

	Freeze()
}

// Param is a bound value. Named params are passed to the driver with sql.Named.
type Param struct {
	Name  string
	Value any
	Named bool
}

// Placeholder is the positional marker statements are built with before Finalize.
func Placeholder(i int) string {
	return "@" + strconv.Itoa(i)
}

// SelectParts are the clauses of a SELECT before paging is applied.
// Select holds the keyword and the column list, the others hold their keyword too or are empty,
// except Where which is only the condition.
type SelectParts struct {
	Model    *schema.ModelDefinition
	Select   string
	Distinct bool
	From     string
	Where    string
	GroupBy  string
	Having   string
	OrderBy  string
	Offset   *int
	Rows     *int
}

func (p SelectParts) paged() bool {
	return p.Rows != nil || p.offset() > 0
}

func (p SelectParts) offset() int {
	if p.Offset == nil {
		return 0
	}
	return *p.Offset
}

// IdentityStrategy is how a backend reports generated keys.
type IdentityStrategy int

const (
	// IdentityReturning appends RETURNING to the INSERT.
	IdentityReturning IdentityStrategy = iota
	// IdentityOutput adds an OUTPUT INSERTED clause.
	IdentityOutput
	// IdentityLastInsertID reads sql.Result.LastInsertId.
	IdentityLastInsertID
)
