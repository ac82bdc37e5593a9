// Package sqlexpr compiles expr trees into dialect specific SQL and assembles full statements
// around them.
package sqlexpr

import (
	"fmt"
	"reflect"
	"regexp"

	"github.com/golobby/ormlite/dialect"
	"github.com/golobby/ormlite/schema"
)

// PartialSQL is text that is already valid SQL. Any other value coming out of the compiler is
// data and still has to be quoted or bound.
type PartialSQL string

// EnumMemberAccess is a column of an enum type. Values compared with it are converted to the
// enum's stored form first.
type EnumMemberAccess struct {
	PartialSQL
	Enum  *schema.Enum
	Field *schema.FieldDefinition
}

type columnRef struct {
	sql   PartialSQL
	field *schema.FieldDefinition
	model *schema.ModelDefinition
}

func (c columnRef) isBool() bool {
	return c.field != nil && c.field.Underlying().Kind() == reflect.Bool
}

// Settings is passed to every query and selects the backend and rendering mode.
type Settings struct {
	Dialect dialect.Provider
	// Parameterized binds every value as a parameter instead of quoting it inline.
	Parameterized bool
	// DisableGuessFallback turns off {Table}{Field} name matching in SelectInto and OrderByFields.
	DisableGuessFallback bool
}

// Statement is rendered SQL in the backend's placeholder syntax with its parameters in order.
type Statement struct {
	SQL    string
	Params []dialect.Param
}

func (s Statement) String() string {
	return s.SQL
}

var illegalFragment = regexp.MustCompile(`(?i)(--|/\*|\*/|;|\b(union|insert|update|delete|drop|alter|create|truncate|exec|execute|merge|grant|revoke|declare)\b)`)

// VerifyFragment rejects raw SQL carrying comments, statement separators, unions or DML and DDL keywords.
func VerifyFragment(sql string) error {
	if m := illegalFragment.FindString(sql); m != "" {
		return fmt.Errorf("%w: illegal token %q in SQL fragment", schema.ErrNotSupported, m)
	}
	return nil
}
