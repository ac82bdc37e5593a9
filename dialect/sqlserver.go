package dialect

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	mssql "github.com/microsoft/go-mssqldb"

	"github.com/golobby/ormlite/schema"
)

// SQLServer returns a fresh dialect for SQL Server 2012 and later, paged with OFFSET ... FETCH.
func SQLServer() *Dialect {
	d := newDialect("sqlserver", "sqlserver", "mssql")
	d.unicodePrefix = "N"
	d.TypeNames = map[string]string{
		TypeString:     "VARCHAR(%d)",
		TypeText:       "VARCHAR(MAX)",
		TypeBool:       "BIT",
		TypeInt16:      "SMALLINT",
		TypeInt:        "INT",
		TypeInt64:      "BIGINT",
		TypeFloat32:    "REAL",
		TypeFloat64:    "FLOAT",
		TypeDecimal:    "DECIMAL(%d,%d)",
		TypeTime:       "DATETIME2",
		TypeBytes:      "VARBINARY(MAX)",
		TypeRowVersion: "ROWVERSION",
	}
	d.rowVersionNative = true
	d.timeFormat = "2006-01-02 15:04:05.9999999"
	d.bytesLiteral = hexBytes("0x", "")
	d.constructs = func(v any) (string, bool) {
		t, ok := v.(time.Time)
		if !ok {
			return "", false
		}
		if _, off := t.Zone(); off == 0 {
			return "", false
		}
		return "CAST('" + t.Format("2006-01-02 15:04:05.9999999 -07:00") + "' AS DATETIMEOFFSET)", true
	}
	d.converters[uuidType] = &Converter{
		ColumnType: "UNIQUEIDENTIFIER",
		ToDB:       textUUIDConverter("").ToDB,
		FromDB: func(v any) (any, error) {
			if b, ok := v.([]byte); ok && len(b) == 16 {
				var u mssql.UniqueIdentifier
				if err := u.Scan(b); err != nil {
					return nil, err
				}
				return parseUUID(u.String())
			}
			return parseUUID(v)
		},
	}
	d.argConverter = func(d *Dialect, v any) any {
		if s, ok := v.(string); ok && !d.useUnicode {
			return mssql.VarChar(s)
		}
		return v
	}
	d.autoIncrementColumn = func(colType string, _ *schema.FieldDefinition) string {
		return colType + " IDENTITY(1,1) PRIMARY KEY"
	}
	d.restrictIsNoOp = true
	d.addColumn = "ADD"
	d.alterColumn = func(d *Dialect, m *schema.ModelDefinition, f *schema.FieldDefinition) (string, error) {
		return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s;", d.QuoteTable(m), d.columnDefinition(f)), nil
	}
	d.renameColumn = func(d *Dialect, m *schema.ModelDefinition, f *schema.FieldDefinition, old string) string {
		table := d.TableName(m)
		if m.Schema != "" {
			table = m.Schema + "." + table
		}
		return fmt.Sprintf("EXEC sp_rename %s, %s, 'COLUMN';",
			d.QuoteString(table+"."+old), d.QuoteString(d.ColumnName(f)))
	}
	d.tableExists = informationSchemaTableExists("dbo")
	d.pager = OffsetFetch{}
	d.identity = IdentityOutput
	d.identitySQL = "SELECT SCOPE_IDENTITY()"
	d.existsFormat = "SELECT CASE WHEN EXISTS(%s) THEN 1 ELSE 0 END"
	d.lengthFunc = "LEN"
	d.substring = func(col, start, length string) string {
		if length == "" {
			length = "8000"
		}
		return fmt.Sprintf("SUBSTRING(%s, %s, %s)", col, start, length)
	}
	d.concat = func(parts ...string) string {
		return strings.Join(parts, " + ")
	}
	d.likeSpecials = "%_["
	d.namedParams = true
	d.placeholder = func(n int) string {
		return "@p" + strconv.Itoa(n)
	}
	return d
}

// SQLServer2008 pages without OFFSET by emulating it with TOP and a primary key seek.
func SQLServer2008() *Dialect {
	d := SQLServer()
	d.name = "sqlserver2008"
	d.DriverNames = nil
	d.pager = TopEmulation{Variable: "@__pk"}
	return d
}
