package dialect

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"

	"github.com/golobby/ormlite/schema"
)

// PostgreSQL returns a fresh PostgreSQL dialect, served by the postgres (lib/pq) and pgx drivers.
func PostgreSQL() *Dialect {
	d := newDialect("postgres", "postgres", "pgx")
	d.quoteIdentifier = pq.QuoteIdentifier
	d.quoteLiteral = func(s string) string {
		return strings.TrimSpace(pq.QuoteLiteral(s))
	}
	d.TypeNames = map[string]string{
		TypeString:     "VARCHAR(%d)",
		TypeText:       "TEXT",
		TypeBool:       "BOOLEAN",
		TypeInt16:      "SMALLINT",
		TypeInt:        "INTEGER",
		TypeInt64:      "BIGINT",
		TypeFloat32:    "REAL",
		TypeFloat64:    "DOUBLE PRECISION",
		TypeDecimal:    "NUMERIC(%d,%d)",
		TypeTime:       "TIMESTAMP",
		TypeBytes:      "BYTEA",
		TypeRowVersion: "BIGINT",
	}
	d.trueLiteral = "true"
	d.falseLiteral = "false"
	d.timeFormat = "2006-01-02 15:04:05.999999"
	d.bytesLiteral = hexBytes(`'\x`, "'::bytea")
	d.converters[uuidType] = textUUIDConverter("UUID")
	d.autoIncrementColumn = func(colType string, _ *schema.FieldDefinition) string {
		if colType == "BIGINT" {
			return "BIGSERIAL PRIMARY KEY"
		}
		return "SERIAL PRIMARY KEY"
	}
	d.alterColumn = func(d *Dialect, m *schema.ModelDefinition, f *schema.FieldDefinition) (string, error) {
		return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s TYPE %s;",
			d.QuoteTable(m), d.QuoteColumn(d.ColumnName(f)), d.ColumnType(f)), nil
	}
	d.substring = func(col, start, length string) string {
		if length == "" {
			return fmt.Sprintf("substring(%s from %s)", col, start)
		}
		return fmt.Sprintf("substring(%s from %s for %s)", col, start, length)
	}
	d.pager = LimitOffset{}
	d.identity = IdentityReturning
	d.identitySQL = "SELECT lastval()"
	d.placeholder = func(n int) string {
		return "$" + strconv.Itoa(n)
	}
	return d
}
