package dialect

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/golobby/ormlite/schema"
)

// Logical type names keyed in Dialect.TypeNames.
const (
	TypeString     = "string"
	TypeText       = "text"
	TypeBool       = "bool"
	TypeInt16      = "int16"
	TypeInt        = "int"
	TypeInt64      = "int64"
	TypeFloat32    = "float32"
	TypeFloat64    = "float64"
	TypeDecimal    = "decimal"
	TypeTime       = "time"
	TypeBytes      = "bytes"
	TypeRowVersion = "rowversion"
)

// StringMax as a field length asks for the largest string column type.
const StringMax = -1

var timeType = reflect.TypeOf(time.Time{})

// valueType unwraps pointers and sql.NullX style wrappers.
func valueType(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() == reflect.Struct && t != timeType && t.NumField() == 2 {
		if v, ok := t.FieldByName("Valid"); ok && v.Type.Kind() == reflect.Bool {
			for i := 0; i < t.NumField(); i++ {
				if f := t.Field(i); f.Name != "Valid" {
					return valueType(f.Type)
				}
			}
		}
	}
	return t
}

func (d *Dialect) ColumnType(f *schema.FieldDefinition) string {
	if d.columnTypeFor != nil {
		if s, ok := d.columnTypeFor(d, f); ok {
			return s
		}
	}
	t := valueType(f.Type)
	if f.IsRowVersion {
		return d.TypeNames[TypeRowVersion]
	}
	if c := d.converter(t); c != nil && c.ColumnType != "" {
		return c.ColumnType
	}
	if f.IsEnum() {
		if d.EnumAsInt(f) {
			return d.TypeNames[TypeInt]
		}
		return d.stringColumn(255)
	}
	if t == timeType {
		return d.TypeNames[TypeTime]
	}
	switch t.Kind() {
	case reflect.String:
		length := f.FieldLength
		if length == 0 {
			length = d.stringLength
		}
		return d.stringColumn(length)
	case reflect.Bool:
		return d.TypeNames[TypeBool]
	case reflect.Int8, reflect.Int16, reflect.Uint8:
		return d.TypeNames[TypeInt16]
	case reflect.Int32, reflect.Uint16:
		return d.TypeNames[TypeInt]
	case reflect.Int, reflect.Int64, reflect.Uint, reflect.Uint32, reflect.Uint64:
		return d.TypeNames[TypeInt64]
	case reflect.Float32, reflect.Float64:
		if f.Precision > 0 {
			return fmt.Sprintf(d.TypeNames[TypeDecimal], f.Precision, f.Scale)
		}
		if t.Kind() == reflect.Float32 {
			return d.TypeNames[TypeFloat32]
		}
		return d.TypeNames[TypeFloat64]
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return d.TypeNames[TypeBytes]
		}
	}
	return d.TypeNames[TypeText]
}

func (d *Dialect) stringColumn(length int) string {
	if length == StringMax {
		return d.unicode(d.TypeNames[TypeText])
	}
	return d.unicode(fmt.Sprintf(d.TypeNames[TypeString], length))
}

func (d *Dialect) unicode(colType string) string {
	if d.useUnicode && d.unicodePrefix != "" && strings.HasPrefix(colType, "VARCHAR") {
		return d.unicodePrefix + colType
	}
	return colType
}

func (d *Dialect) columnDefinition(f *schema.FieldDefinition) string {
	colType := d.ColumnType(f)
	var sb strings.Builder
	sb.WriteString(d.QuoteColumn(d.ColumnName(f)))
	sb.WriteString(" ")
	switch {
	case f.IsPrimaryKey && f.AutoIncrement:
		sb.WriteString(d.autoIncrementColumn(colType, f))
	case f.IsPrimaryKey:
		sb.WriteString(colType + " PRIMARY KEY")
	case f.IsRowVersion && !d.rowVersionNative:
		sb.WriteString(colType + " NOT NULL DEFAULT 1")
	case f.IsRowVersion:
		sb.WriteString(colType + " NOT NULL")
	default:
		sb.WriteString(colType)
		if f.Nullable {
			sb.WriteString(" NULL")
		} else {
			sb.WriteString(" NOT NULL")
		}
		if f.DefaultValue != "" {
			sb.WriteString(" DEFAULT " + f.DefaultValue)
		}
	}
	return sb.String()
}

func (d *Dialect) foreignKeyConstraint(m *schema.ModelDefinition, f *schema.FieldDefinition) (string, error) {
	ref, err := schema.Of(f.ForeignKey.References)
	if err != nil {
		return "", err
	}
	target := schema.ReferencedField(f, ref)
	if target == nil {
		return "", fmt.Errorf("%w: foreign key %s.%s references %s which has no primary key",
			schema.ErrMalformedModel, m.Name, f.Name, ref.Name)
	}
	name := f.ForeignKey.Name
	if name == "" {
		name = fmt.Sprintf("FK_%s_%s_%s", d.TableName(m), d.TableName(ref), d.ColumnName(f))
	}
	sql := fmt.Sprintf("CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s)",
		d.QuoteColumn(name), d.QuoteColumn(d.ColumnName(f)), d.QuoteTable(ref), d.QuoteColumn(d.ColumnName(target)))
	sql += d.referentialAction("ON DELETE", f.ForeignKey.OnDelete)
	sql += d.referentialAction("ON UPDATE", f.ForeignKey.OnUpdate)
	return sql, nil
}

func (d *Dialect) referentialAction(clause, action string) string {
	action = strings.ToUpper(strings.TrimSpace(action))
	if action == "" || action == "RESTRICT" && d.restrictIsNoOp {
		return ""
	}
	return " " + clause + " " + action
}

func (d *Dialect) ToCreateTableStatement(m *schema.ModelDefinition) (string, error) {
	var cols, constraints []string
	for _, f := range m.Fields {
		cols = append(cols, d.columnDefinition(f))
		if f.ForeignKey != nil {
			c, err := d.foreignKeyConstraint(m, f)
			if err != nil {
				return "", err
			}
			constraints = append(constraints, c)
		}
	}
	body := strings.Join(cols, ", \n  ")
	if len(constraints) > 0 {
		body += ", \n\n  " + strings.Join(constraints, ", \n  ")
	}
	return fmt.Sprintf("CREATE TABLE %s \n(\n  %s \n); \n", d.QuoteTable(m), body), nil
}

func (d *Dialect) ToAddColumnStatement(m *schema.ModelDefinition, f *schema.FieldDefinition) string {
	return fmt.Sprintf("ALTER TABLE %s %s %s;", d.QuoteTable(m), d.addColumn, d.columnDefinition(f))
}

func (d *Dialect) ToAlterColumnStatement(m *schema.ModelDefinition, f *schema.FieldDefinition) (string, error) {
	if d.alterColumn == nil {
		return "", NewUnsupportedError(d.name, "ALTER COLUMN", "recreate the table instead")
	}
	return d.alterColumn(d, m, f)
}

func (d *Dialect) ToChangeColumnNameStatement(m *schema.ModelDefinition, f *schema.FieldDefinition, oldName string) string {
	if d.renameColumn != nil {
		return d.renameColumn(d, m, f, oldName)
	}
	return fmt.Sprintf("ALTER TABLE %s RENAME COLUMN %s TO %s;",
		d.QuoteTable(m), d.QuoteColumn(oldName), d.QuoteColumn(d.ColumnName(f)))
}

func (d *Dialect) ToDropTableStatement(m *schema.ModelDefinition) string {
	return "DROP TABLE " + d.QuoteTable(m)
}

func (d *Dialect) ToTableExistsStatement(m *schema.ModelDefinition) (string, []Param) {
	return d.tableExists(d, m)
}
