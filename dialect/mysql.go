package dialect

import (
	"fmt"
	"strings"

	"github.com/golobby/ormlite/schema"
)

// MySQL returns a fresh MySQL dialect for the go-sql-driver/mysql driver.
func MySQL() *Dialect {
	d := newDialect("mysql", "mysql")
	d.openQuote, d.closeQuote = "`", "`"
	d.escapeBackslash = true
	d.TypeNames = map[string]string{
		TypeString:     "VARCHAR(%d)",
		TypeText:       "LONGTEXT",
		TypeBool:       "TINYINT(1)",
		TypeInt16:      "SMALLINT",
		TypeInt:        "INT",
		TypeInt64:      "BIGINT",
		TypeFloat32:    "FLOAT",
		TypeFloat64:    "DOUBLE",
		TypeDecimal:    "DECIMAL(%d,%d)",
		TypeTime:       "DATETIME(6)",
		TypeBytes:      "LONGBLOB",
		TypeRowVersion: "BIGINT",
	}
	d.stringLength = 255
	d.timeFormat = "2006-01-02 15:04:05.999999"
	d.autoIncrementColumn = func(colType string, _ *schema.FieldDefinition) string {
		return colType + " PRIMARY KEY AUTO_INCREMENT"
	}
	d.alterColumn = func(d *Dialect, m *schema.ModelDefinition, f *schema.FieldDefinition) (string, error) {
		return fmt.Sprintf("ALTER TABLE %s MODIFY COLUMN %s;", d.QuoteTable(m), d.columnDefinition(f)), nil
	}
	d.lengthFunc = "CHAR_LENGTH"
	d.substring = func(col, start, length string) string {
		if length == "" {
			return fmt.Sprintf("SUBSTRING(%s, %s)", col, start)
		}
		return fmt.Sprintf("SUBSTRING(%s, %s, %s)", col, start, length)
	}
	d.concat = func(parts ...string) string {
		return "CONCAT(" + strings.Join(parts, ", ") + ")"
	}
	d.tableExists = func(d *Dialect, m *schema.ModelDefinition) (string, []Param) {
		return "SELECT COUNT(*) FROM information_schema.tables WHERE table_name = " + Placeholder(0) +
			" AND table_schema = DATABASE()", []Param{{Value: d.TableName(m)}}
	}
	d.pager = LimitOffset{NoLimit: "18446744073709551615"}
	d.identity = IdentityLastInsertID
	d.identitySQL = "SELECT LAST_INSERT_ID()"
	d.positional = true
	d.placeholder = func(int) string {
		return "?"
	}
	return d
}
