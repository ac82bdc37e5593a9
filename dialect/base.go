package dialect

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/golobby/ormlite/schema"
)

func newDialect(name string, drivers ...string) *Dialect {
	return &Dialect{
		name:         name,
		DriverNames:  drivers,
		openQuote:    `"`,
		closeQuote:   `"`,
		trueLiteral:  "1",
		falseLiteral: "0",
		timeFormat:   "2006-01-02 15:04:05.000",
		bytesLiteral: hexBytes("X'", "'"),
		addColumn:    "ADD COLUMN",
		existsFormat: "SELECT EXISTS(%s)",
		lengthFunc:   "length",
		likeSpecials: "%_",
		stringLength: 8000,
		naming:       DefaultNaming{},
		converters:   map[reflect.Type]*Converter{uuidType: textUUIDConverter("CHAR(36)")},
		substring: func(col, start, length string) string {
			if length == "" {
				return fmt.Sprintf("substr(%s, %s)", col, start)
			}
			return fmt.Sprintf("substr(%s, %s, %s)", col, start, length)
		},
		concat: func(parts ...string) string {
			return strings.Join(parts, " || ")
		},
		tableExists: informationSchemaTableExists("public"),
		placeholder: func(n int) string {
			return "?" + strconv.Itoa(n)
		},
	}
}

func informationSchemaTableExists(defaultSchema string) func(d *Dialect, m *schema.ModelDefinition) (string, []Param) {
	return func(d *Dialect, m *schema.ModelDefinition) (string, []Param) {
		s := m.Schema
		if s == "" {
			s = defaultSchema
		}
		sql := "SELECT COUNT(*) FROM information_schema.tables WHERE table_name = " + Placeholder(0) +
			" AND table_schema = " + Placeholder(1)
		return sql, []Param{{Value: d.TableName(m)}, {Value: s}}
	}
}
