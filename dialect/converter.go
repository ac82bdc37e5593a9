package dialect

import (
	"encoding/binary"
	"fmt"
	"reflect"

	"github.com/google/uuid"

	"github.com/golobby/ormlite/schema"
)

// Converter maps a Go type to a column type and its stored representation.
type Converter struct {
	ColumnType string
	ToDB       func(v any) (any, error)
	FromDB     func(v any) (any, error)
}

var uuidType = reflect.TypeOf(uuid.UUID{})

func textUUIDConverter(columnType string) *Converter {
	return &Converter{
		ColumnType: columnType,
		ToDB: func(v any) (any, error) {
			u, ok := v.(uuid.UUID)
			if !ok {
				return nil, fmt.Errorf("expected uuid.UUID, got %T", v)
			}
			return u.String(), nil
		},
		FromDB: parseUUID,
	}
}

func parseUUID(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return uuid.Nil, nil
	case uuid.UUID:
		return x, nil
	case string:
		return uuid.Parse(x)
	case []byte:
		if len(x) == 16 {
			return uuid.FromBytes(x)
		}
		return uuid.ParseBytes(x)
	}
	return nil, fmt.Errorf("cannot read %T as uuid", v)
}

func (d *Dialect) ToDBValue(f *schema.FieldDefinition, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil, nil
		}
		rv = rv.Elem()
	}
	if f != nil {
		if f.IsRowVersion && d.rowVersionNative {
			if u, ok := rowVersionUint(rv); ok {
				b := make([]byte, 8)
				binary.BigEndian.PutUint64(b, u)
				return b, nil
			}
		}
		if e := f.Enum(); e != nil {
			return e.Wire(rv.Interface(), d.EnumAsInt(f))
		}
	} else if e := schema.EnumOf(rv.Type()); e != nil {
		return e.Wire(rv.Interface(), d.enumAsInt)
	}
	if c := d.converter(rv.Type()); c != nil && c.ToDB != nil {
		return c.ToDB(rv.Interface())
	}
	return v, nil
}

func (d *Dialect) FromDBValue(t reflect.Type, v any) (any, error) {
	if c := d.converter(t); c != nil && c.FromDB != nil {
		return c.FromDB(v)
	}
	return v, nil
}

func rowVersionUint(rv reflect.Value) (uint64, bool) {
	switch rv.Kind() {
	case reflect.Uint, reflect.Uint32, reflect.Uint64:
		return rv.Uint(), true
	case reflect.Int, reflect.Int32, reflect.Int64:
		return uint64(rv.Int()), true
	}
	return 0, false
}
