package dialect

import (
	"database/sql/driver"
	"encoding/hex"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golobby/ormlite/schema"
)

// ErrFrozen is returned when a dialect is reconfigured after a connection was opened with it.
var ErrFrozen = errors.New("dialect is in use and can no longer be configured")

// Dialect is the table driven Provider all bundled backends are built from.
type Dialect struct {
	name        string
	DriverNames []string

	openQuote, closeQuote string
	quoteIdentifier       func(string) string
	quoteLiteral          func(string) string
	// schemaSeparator joins schema and table inside one quoted name when set, backends without schemas use it
	schemaSeparator string
	unicodePrefix   string
	escapeBackslash bool
	trueLiteral     string
	falseLiteral    string
	timeFormat      string
	bytesLiteral    func([]byte) string
	constructs      func(v any) (string, bool)

	TypeNames           map[string]string
	autoIncrementColumn func(colType string, f *schema.FieldDefinition) string
	restrictIsNoOp      bool
	addColumn           string
	alterColumn         func(d *Dialect, m *schema.ModelDefinition, f *schema.FieldDefinition) (string, error)
	renameColumn        func(d *Dialect, m *schema.ModelDefinition, f *schema.FieldDefinition, old string) string
	tableExists         func(d *Dialect, m *schema.ModelDefinition) (string, []Param)

	pager            Pager
	identity         IdentityStrategy
	identitySQL      string
	rowVersionNative bool
	existsFormat     string

	lengthFunc    string
	substring     func(col, start, length string) string
	concat        func(parts ...string) string
	likeSpecials  string
	MethodHook    func(method, target string, args []string) (string, bool)
	placeholder   func(n int) string
	positional    bool
	namedParams   bool
	argConverter  func(d *Dialect, v any) any
	stringLength  int
	useUnicode    bool
	enumAsInt     bool
	naming        NamingStrategy
	convertersMu  sync.RWMutex
	converters    map[reflect.Type]*Converter
	frozen        atomic.Bool
	columnTypeFor func(d *Dialect, f *schema.FieldDefinition) (string, bool)
}

func (d *Dialect) Name() string {
	return d.name
}

func (d *Dialect) String() string {
	return d.name
}

// Freeze makes further configuration fail.
func (d *Dialect) Freeze() {
	d.frozen.Store(true)
}

func (d *Dialect) configurable() error {
	if d.frozen.Load() {
		return fmt.Errorf("%w: %s", ErrFrozen, d.name)
	}
	return nil
}

func (d *Dialect) SetNamingStrategy(n NamingStrategy) error {
	if err := d.configurable(); err != nil {
		return err
	}
	d.naming = n
	return nil
}

func (d *Dialect) SetStringLength(n int) error {
	if err := d.configurable(); err != nil {
		return err
	}
	d.stringLength = n
	return nil
}

// SetUseUnicode switches string columns and literals to their national character variants.
func (d *Dialect) SetUseUnicode(on bool) error {
	if err := d.configurable(); err != nil {
		return err
	}
	d.useUnicode = on
	return nil
}

// SetEnumAsInt stores every enum column by ordinal instead of name.
func (d *Dialect) SetEnumAsInt(on bool) error {
	if err := d.configurable(); err != nil {
		return err
	}
	d.enumAsInt = on
	return nil
}

func (d *Dialect) RegisterConverter(t reflect.Type, c *Converter) error {
	if err := d.configurable(); err != nil {
		return err
	}
	d.convertersMu.Lock()
	defer d.convertersMu.Unlock()
	d.converters[t] = c
	return nil
}

func (d *Dialect) converter(t reflect.Type) *Converter {
	d.convertersMu.RLock()
	defer d.convertersMu.RUnlock()
	return d.converters[t]
}

func (d *Dialect) QuoteColumn(name string) string {
	if d.quoteIdentifier != nil {
		return d.quoteIdentifier(name)
	}
	esc := strings.ReplaceAll(name, d.closeQuote, d.closeQuote+d.closeQuote)
	return d.openQuote + esc + d.closeQuote
}

func (d *Dialect) QuoteTableName(name string) string {
	return d.QuoteColumn(name)
}

func (d *Dialect) QuoteTable(m *schema.ModelDefinition) string {
	table := d.TableName(m)
	if m.Schema == "" {
		return d.QuoteColumn(table)
	}
	if d.schemaSeparator != "" {
		return d.QuoteColumn(m.Schema + d.schemaSeparator + table)
	}
	return d.QuoteColumn(m.Schema) + "." + d.QuoteColumn(table)
}

func (d *Dialect) QuoteString(s string) string {
	if d.quoteLiteral != nil {
		return d.quoteLiteral(s)
	}
	if d.escapeBackslash {
		s = strings.ReplaceAll(s, `\`, `\\`)
	}
	s = "'" + strings.ReplaceAll(s, "'", "''") + "'"
	if d.useUnicode && d.unicodePrefix != "" {
		return d.unicodePrefix + s
	}
	return s
}

func (d *Dialect) TrueLiteral() string {
	return d.trueLiteral
}

func (d *Dialect) FalseLiteral() string {
	return d.falseLiteral
}

func (d *Dialect) ConstructLiteral(v any) (string, bool) {
	if d.constructs == nil {
		return "", false
	}
	return d.constructs(v)
}

func (d *Dialect) Literal(v any) string {
	if s, ok := d.ConstructLiteral(v); ok {
		return s
	}
	switch x := v.(type) {
	case nil:
		return "NULL"
	case bool:
		if x {
			return d.trueLiteral
		}
		return d.falseLiteral
	case string:
		return d.QuoteString(x)
	case []byte:
		if x == nil {
			return "NULL"
		}
		return d.bytesLiteral(x)
	case time.Time:
		return d.QuoteString(x.Format(d.timeFormat))
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case driver.Valuer:
		dv, err := x.Value()
		if err != nil {
			return "NULL"
		}
		return d.Literal(dv)
	case fmt.Stringer:
		return d.QuoteString(x.String())
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr:
		if rv.IsNil() {
			return "NULL"
		}
		return d.Literal(rv.Elem().Interface())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10)
	case reflect.Bool:
		return d.Literal(rv.Bool())
	case reflect.String:
		return d.QuoteString(rv.String())
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 64)
	}
	return d.QuoteString(fmt.Sprint(v))
}

func (d *Dialect) TableName(m *schema.ModelDefinition) string {
	if m.Alias != "" {
		return m.Alias
	}
	return d.naming.TableName(m.Name)
}

func (d *Dialect) ColumnName(f *schema.FieldDefinition) string {
	if f.Alias != "" {
		return f.Alias
	}
	return d.naming.ColumnName(f.Name)
}

func (d *Dialect) EnumAsInt(f *schema.FieldDefinition) bool {
	return d.enumAsInt || f.EnumAsInt
}

func (d *Dialect) StringFunc(method, column string, args ...string) (string, error) {
	switch method {
	case "ToUpper":
		return "upper(" + column + ")", nil
	case "ToLower":
		return "lower(" + column + ")", nil
	case "Trim":
		return "ltrim(rtrim(" + column + "))", nil
	case "TrimStart":
		return "ltrim(" + column + ")", nil
	case "TrimEnd":
		return "rtrim(" + column + ")", nil
	case "Length":
		return d.lengthFunc + "(" + column + ")", nil
	case "Substring":
		if len(args) == 0 {
			break
		}
		length := ""
		if len(args) > 1 {
			length = args[1]
		}
		return d.substring(column, args[0], length), nil
	}
	return "", NewUnsupportedError(d.name, "string method "+method)
}

func (d *Dialect) Concat(parts ...string) string {
	return d.concat(parts...)
}

// EscapeWildcards escapes LIKE metacharacters with ^ and reports whether anything changed.
func (d *Dialect) EscapeWildcards(s string) (string, bool) {
	if !strings.ContainsAny(s, "^"+d.likeSpecials) {
		return s, false
	}
	var b strings.Builder
	for _, r := range s {
		if r == '^' || strings.ContainsRune(d.likeSpecials, r) {
			b.WriteRune('^')
		}
		b.WriteRune(r)
	}
	return b.String(), true
}

func (d *Dialect) LikeEscape() string {
	return " ESCAPE '^'"
}

func (d *Dialect) SQLMethod(method, target string, args []string) (string, bool) {
	if d.MethodHook != nil {
		if s, ok := d.MethodHook(method, target, args); ok {
			return s, true
		}
	}
	if method == "Equals" && len(args) == 1 {
		return target + " = " + args[0], true
	}
	return "", false
}

func (d *Dialect) ToExistsStatement(selectSQL string) string {
	return fmt.Sprintf(d.existsFormat, selectSQL)
}

func (d *Dialect) ToSelectStatement(p SelectParts) (string, error) {
	return d.pager.Page(d, p)
}

func (d *Dialect) IdentityStrategy() IdentityStrategy {
	return d.identity
}

func (d *Dialect) RowVersionNative() bool {
	return d.rowVersionNative
}

func (d *Dialect) ToSelectIdentityStatement(m *schema.ModelDefinition) (string, error) {
	if _, err := m.MustPrimaryKey("identity retrieval"); err != nil {
		return "", err
	}
	return d.identitySQL, nil
}

func (d *Dialect) ToRowVersionStatement(m *schema.ModelDefinition) (string, error) {
	pk, err := m.MustPrimaryKey("row version retrieval")
	if err != nil {
		return "", err
	}
	if m.RowVersion == nil {
		return "", fmt.Errorf("%w: %s has no row version field", schema.ErrMalformedModel, m.Name)
	}
	return fmt.Sprintf("SELECT %s FROM %s WHERE %s = %s",
		d.QuoteColumn(d.ColumnName(m.RowVersion)), d.QuoteTable(m), d.QuoteColumn(d.ColumnName(pk)), Placeholder(0)), nil
}

func (d *Dialect) ToInsertStatement(m *schema.ModelDefinition, columns, values []string, returning *schema.FieldDefinition) string {
	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(d.QuoteTable(m))
	if len(columns) > 0 {
		sb.WriteString(" (" + strings.Join(columns, ",") + ")")
	}
	if returning != nil && d.identity == IdentityOutput {
		sb.WriteString(" OUTPUT INSERTED." + d.QuoteColumn(d.ColumnName(returning)))
	}
	switch {
	case len(columns) > 0:
		sb.WriteString(" VALUES (" + strings.Join(values, ",") + ")")
	case d.identity == IdentityLastInsertID:
		sb.WriteString(" () VALUES ()")
	default:
		sb.WriteString(" DEFAULT VALUES")
	}
	if returning != nil && d.identity == IdentityReturning {
		sb.WriteString(" RETURNING " + d.QuoteColumn(d.ColumnName(returning)))
	}
	return sb.String()
}

// Args converts params into driver arguments.
func (d *Dialect) Args(params []Param) []any {
	args := make([]any, len(params))
	for i, p := range params {
		v := p.Value
		if d.argConverter != nil {
			v = d.argConverter(d, v)
		}
		if p.Named {
			args[i] = namedArg(p.Name, v)
		} else {
			args[i] = v
		}
	}
	return args
}

func hexBytes(prefix, suffix string) func([]byte) string {
	return func(b []byte) string {
		return prefix + hex.EncodeToString(b) + suffix
	}
}
