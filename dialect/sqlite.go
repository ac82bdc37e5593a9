package dialect

import "github.com/golobby/ormlite/schema"

// SQLite returns a fresh SQLite dialect, served by the sqlite3 (mattn) and sqlite (modernc) drivers.
func SQLite() *Dialect {
	d := newDialect("sqlite", "sqlite3", "sqlite")
	d.TypeNames = map[string]string{
		TypeString:     "VARCHAR(%d)",
		TypeText:       "TEXT",
		TypeBool:       "BOOLEAN",
		TypeInt16:      "INTEGER",
		TypeInt:        "INTEGER",
		TypeInt64:      "INTEGER",
		TypeFloat32:    "REAL",
		TypeFloat64:    "REAL",
		TypeDecimal:    "DECIMAL(%d,%d)",
		TypeTime:       "DATETIME",
		TypeBytes:      "BLOB",
		TypeRowVersion: "INTEGER",
	}
	d.schemaSeparator = "_"
	d.autoIncrementColumn = func(string, *schema.FieldDefinition) string {
		return "INTEGER PRIMARY KEY AUTOINCREMENT"
	}
	d.pager = LimitOffset{NoLimit: "-1"}
	d.identity = IdentityReturning
	d.identitySQL = "SELECT last_insert_rowid()"
	d.namedParams = true
	d.tableExists = func(d *Dialect, m *schema.ModelDefinition) (string, []Param) {
		name := d.TableName(m)
		if m.Schema != "" {
			name = m.Schema + d.schemaSeparator + name
		}
		return "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = " + Placeholder(0), []Param{{Value: name}}
	}
	return d
}
