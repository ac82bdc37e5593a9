package ormlite

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golobby/ormlite/dialect"
	"github.com/golobby/ormlite/schema"
)

// bindPlan maps each result column ordinal to the field it fills, nil for columns nothing reads.
type bindPlan struct {
	fields []*schema.FieldDefinition
}

type planKey struct {
	t       reflect.Type
	dialect dialect.Provider
	columns string
}

// plans caches one bindPlan per model and result shape
var plans sync.Map

func planFor(d dialect.Provider, md *schema.ModelDefinition, columns []string) *bindPlan {
	key := planKey{t: md.Type, dialect: d, columns: strings.Join(columns, "\x00")}
	if p, ok := plans.Load(key); ok {
		return p.(*bindPlan)
	}
	p := &bindPlan{fields: make([]*schema.FieldDefinition, len(columns))}
	for i, col := range columns {
		p.fields[i] = columnField(d, md, col)
	}
	actual, _ := plans.LoadOrStore(key, p)
	return actual.(*bindPlan)
}

// columnField matches a result column to a field, case-insensitively, by column name first and Go name second.
func columnField(d dialect.Provider, md *schema.ModelDefinition, col string) *schema.FieldDefinition {
	for _, f := range md.Fields {
		if strings.EqualFold(d.ColumnName(f), col) {
			return f
		}
	}
	for _, f := range md.Fields {
		if strings.EqualFold(f.Name, col) {
			return f
		}
	}
	return nil
}

// eachRow scans every row into raw driver values and hands them to fn.
func eachRow(rows *sql.Rows, fn func(columns []string, raw []any) error) error {
	columns, err := rows.Columns()
	if err != nil {
		return err
	}
	raw := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for i := range raw {
		ptrs[i] = &raw[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return err
		}
		if err := fn(columns, raw); err != nil {
			return err
		}
	}
	return rows.Err()
}

// bindModels hydrates every row into a new T, T being a model type or a pointer to one.
func bindModels[T any](d dialect.Provider, md *schema.ModelDefinition, rows *sql.Rows) ([]T, error) {
	var out []T
	ptr := reflect.TypeOf((*T)(nil)).Elem().Kind() == reflect.Ptr
	err := eachRow(rows, func(columns []string, raw []any) error {
		p := planFor(d, md, columns)
		item := reflect.New(md.Type)
		if err := bindRow(d, p, item.Elem(), raw); err != nil {
			return err
		}
		if ptr {
			out = append(out, item.Interface().(T))
		} else {
			out = append(out, item.Elem().Interface().(T))
		}
		return nil
	})
	return out, err
}

func bindRow(d dialect.Provider, p *bindPlan, v reflect.Value, raw []any) error {
	for i, f := range p.fields {
		if f == nil {
			continue
		}
		if err := assign(d, f.Field(v), f, raw[i]); err != nil {
			return fmt.Errorf("column %s: %w", f.Name, err)
		}
	}
	return nil
}

func bindMaps(rows *sql.Rows) ([]map[string]any, error) {
	var out []map[string]any
	err := eachRow(rows, func(columns []string, raw []any) error {
		m := make(map[string]any, len(columns))
		for i, c := range columns {
			if b, ok := raw[i].([]byte); ok {
				m[c] = string(b)
			} else {
				m[c] = raw[i]
			}
		}
		out = append(out, m)
		return nil
	})
	return out, err
}

// scalarOf converts one raw driver value into V.
func scalarOf[V any](d dialect.Provider, src any) (V, error) {
	v := reflect.New(reflect.TypeOf((*V)(nil)).Elem()).Elem()
	if err := assign(d, v, nil, src); err != nil {
		var zero V
		return zero, err
	}
	return v.Interface().(V), nil
}

var scannerType = reflect.TypeOf((*sql.Scanner)(nil)).Elem()

// assign stores a raw driver value into dst, going through dialect converters, enums, sql.Scanner
// and numeric or textual conversion in that order.
func assign(d dialect.Provider, dst reflect.Value, f *schema.FieldDefinition, src any) error {
	if src == nil {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}
	if dst.Kind() == reflect.Ptr {
		elem := reflect.New(dst.Type().Elem())
		if err := assign(d, elem.Elem(), f, src); err != nil {
			return err
		}
		dst.Set(elem)
		return nil
	}
	converted, err := d.FromDBValue(dst.Type(), src)
	if err != nil {
		return err
	}
	src = converted
	if sv := reflect.ValueOf(src); sv.Type().AssignableTo(dst.Type()) {
		dst.Set(sv)
		return nil
	}
	enum := schema.EnumOf(dst.Type())
	if f != nil && f.Enum() != nil {
		enum = f.Enum()
	}
	if enum != nil {
		ev, err := enum.Value(src)
		if err != nil {
			return err
		}
		dst.Set(ev)
		return nil
	}
	if reflect.PointerTo(dst.Type()).Implements(scannerType) {
		return dst.Addr().Interface().(sql.Scanner).Scan(src)
	}
	return convertValue(dst, src, f != nil && f.IsRowVersion)
}

func convertValue(dst reflect.Value, src any, rowVersion bool) error {
	switch dst.Kind() {
	case reflect.String:
		switch s := src.(type) {
		case []byte:
			dst.SetString(string(s))
		case time.Time:
			dst.SetString(s.Format(time.RFC3339Nano))
		default:
			dst.SetString(fmt.Sprint(src))
		}
		return nil
	case reflect.Bool:
		switch s := src.(type) {
		case bool:
			dst.SetBool(s)
			return nil
		case []byte, string:
			b, err := strconv.ParseBool(fmt.Sprintf("%s", s))
			if err != nil {
				return err
			}
			dst.SetBool(b)
			return nil
		}
		i, err := toInt64(src)
		if err != nil {
			return err
		}
		dst.SetBool(i != 0)
		return nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if b, ok := src.([]byte); ok && rowVersion && len(b) == 8 {
			dst.SetInt(int64(binary.BigEndian.Uint64(b)))
			return nil
		}
		i, err := toInt64(src)
		if err != nil {
			return err
		}
		dst.SetInt(i)
		return nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if b, ok := src.([]byte); ok && rowVersion && len(b) == 8 {
			dst.SetUint(binary.BigEndian.Uint64(b))
			return nil
		}
		i, err := toInt64(src)
		if err != nil {
			return err
		}
		dst.SetUint(uint64(i))
		return nil
	case reflect.Float32, reflect.Float64:
		fl, err := toFloat64(src)
		if err != nil {
			return err
		}
		dst.SetFloat(fl)
		return nil
	case reflect.Slice:
		if dst.Type().Elem().Kind() == reflect.Uint8 {
			switch s := src.(type) {
			case string:
				dst.SetBytes([]byte(s))
				return nil
			case []byte:
				dst.SetBytes(append([]byte(nil), s...))
				return nil
			}
		}
	case reflect.Struct:
		if dst.Type() == reflect.TypeOf(time.Time{}) {
			t, err := parseTime(src)
			if err != nil {
				return err
			}
			dst.Set(reflect.ValueOf(t))
			return nil
		}
	}
	sv := reflect.ValueOf(src)
	if sv.Type().ConvertibleTo(dst.Type()) {
		dst.Set(sv.Convert(dst.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", src, dst.Type())
}

func toInt64(src any) (int64, error) {
	rv := reflect.ValueOf(src)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return int64(rv.Float()), nil
	case reflect.Bool:
		if rv.Bool() {
			return 1, nil
		}
		return 0, nil
	}
	var s string
	switch x := src.(type) {
	case []byte:
		s = string(x)
	case string:
		s = x
	default:
		return 0, fmt.Errorf("cannot read %T as an integer", src)
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("cannot read %q as an integer", s)
	}
	return int64(f), nil
}

func toFloat64(src any) (float64, error) {
	rv := reflect.ValueOf(src)
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), nil
	}
	switch x := src.(type) {
	case []byte:
		return strconv.ParseFloat(string(x), 64)
	case string:
		return strconv.ParseFloat(x, 64)
	}
	return 0, fmt.Errorf("cannot read %T as a float", src)
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04",
	"2006-01-02",
}

func parseTime(src any) (time.Time, error) {
	var s string
	switch x := src.(type) {
	case time.Time:
		return x, nil
	case []byte:
		s = string(x)
	case string:
		s = x
	default:
		return time.Time{}, fmt.Errorf("cannot read %T as a time", src)
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot read %q as a time", s)
}
