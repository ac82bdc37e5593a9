package schema

import (
	"database/sql"
	"database/sql/driver"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// ForeignKey describes the target of a foreign key column.
type ForeignKey struct {
	References reflect.Type
	// Field is the referenced field name, empty means the primary key.
	Field    string
	Name     string
	OnDelete string
	OnUpdate string
}

// FieldDefinition is the metadata of a single persisted or relation field.
type FieldDefinition struct {
	Name  string
	Alias string
	Type  reflect.Type
	Index []int

	IsPrimaryKey   bool
	AutoIncrement  bool
	Nullable       bool
	IsRowVersion   bool
	IsComputed     bool
	IgnoreOnInsert bool
	IgnoreOnUpdate bool
	IsCreatedAt    bool
	IsUpdatedAt    bool
	IsDeletedAt    bool
	EnumAsInt      bool

	ForeignKey    *ForeignKey
	BelongToModel string

	DefaultValue string
	FieldLength  int
	Precision    int
	Scale        int

	CustomSelect string
	CustomInsert string

	IsReference   bool
	Many          bool
	ReferenceType reflect.Type

	autoIncrementSet bool
	// model named by a references tag, resolved once the whole struct is walked
	referencesName string
}

// ColumnName is the alias when one is set, otherwise the field name.
func (f *FieldDefinition) ColumnName() string {
	if f.Alias != "" {
		return f.Alias
	}
	return f.Name
}

// Underlying is the field type with pointers removed.
func (f *FieldDefinition) Underlying() reflect.Type {
	t := f.Type
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}

// Enum returns the registered enum for the field type, or nil.
func (f *FieldDefinition) Enum() *Enum {
	return EnumOf(f.Underlying())
}

func (f *FieldDefinition) IsEnum() bool {
	return f.Enum() != nil
}

// Get reads the field from a struct value. Nil embedded pointers yield nil.
func (f *FieldDefinition) Get(v reflect.Value) any {
	v = reflect.Indirect(v)
	fv, err := v.FieldByIndexErr(f.Index)
	if err != nil {
		return nil
	}
	return fv.Interface()
}

// Field returns the settable field of an addressable struct value, allocating embedded pointers on the way.
func (f *FieldDefinition) Field(v reflect.Value) reflect.Value {
	v = reflect.Indirect(v)
	for i, x := range f.Index {
		if i > 0 && v.Kind() == reflect.Ptr {
			if v.IsNil() {
				v.Set(reflect.New(v.Type().Elem()))
			}
			v = v.Elem()
		}
		v = v.Field(x)
	}
	return v
}

// IsZero reports whether the field holds its type's zero value.
func (f *FieldDefinition) IsZero(v reflect.Value) bool {
	v = reflect.Indirect(v)
	fv, err := v.FieldByIndexErr(f.Index)
	if err != nil {
		return true
	}
	return fv.IsZero()
}

type fieldTag struct {
	column         string
	ignore         bool
	pk             bool
	autoIncrement  *bool
	nullable       bool
	rowVersion     bool
	computed       bool
	ignoreOnInsert bool
	ignoreOnUpdate bool
	reference      bool
	enumAsInt      bool
	createdAt      bool
	updatedAt      bool
	deletedAt      bool
	length         int
	precision      int
	scale          int
	defaultValue   string
	belongTo       string
	onDelete       string
	onUpdate       string
	references     string
	customSelect   string
	customInsert   string
}

func fieldMetadataFromTag(t string) fieldTag {
	var tag fieldTag
	if t == "" {
		return tag
	}
	for _, tuple := range strings.Fields(t) {
		key, value, _ := strings.Cut(tuple, "=")
		switch strings.ToLower(key) {
		case "col":
			tag.column = value
			if value == "_" {
				tag.ignore = true
			}
		case "ignore":
			tag.ignore = true
		case "pk":
			tag.pk = true
		case "autoincrement":
			b := value == "" || value == "true"
			tag.autoIncrement = &b
		case "nullable":
			tag.nullable = true
		case "rowversion":
			tag.rowVersion = true
		case "compute":
			tag.computed = true
		case "ignoreinsert":
			tag.ignoreOnInsert = true
		case "ignoreupdate":
			tag.ignoreOnUpdate = true
		case "reference":
			tag.reference = true
		case "enum":
			tag.enumAsInt = value == "int"
		case "createdat":
			tag.createdAt = true
		case "updatedat":
			tag.updatedAt = true
		case "deletedat":
			tag.deletedAt = true
		case "length":
			tag.length, _ = strconv.Atoi(value)
		case "precision":
			tag.precision, _ = strconv.Atoi(value)
		case "scale":
			tag.scale, _ = strconv.Atoi(value)
		case "default":
			tag.defaultValue = value
		case "belongto":
			tag.belongTo = value
		case "ondelete":
			tag.onDelete = strings.ReplaceAll(value, "_", " ")
		case "onupdate":
			tag.onUpdate = strings.ReplaceAll(value, "_", " ")
		case "references":
			tag.references = value
		case "select":
			tag.customSelect = value
		case "insert":
			tag.customInsert = value
		}
	}
	return tag
}

var (
	timeType    = reflect.TypeOf(time.Time{})
	valuerType  = reflect.TypeOf((*driver.Valuer)(nil)).Elem()
	scannerType = reflect.TypeOf((*sql.Scanner)(nil)).Elem()
)

// IsScalar reports whether values of t are stored in a single column.
func IsScalar(t reflect.Type) bool {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == timeType || t.Implements(valuerType) || reflect.PointerTo(t).Implements(scannerType) {
		return true
	}
	switch t.Kind() {
	case reflect.Struct, reflect.Map, reflect.Interface, reflect.Func, reflect.Chan:
		return false
	case reflect.Slice:
		return t.Elem().Kind() == reflect.Uint8
	}
	return true
}

func isNullableType(t reflect.Type) bool {
	if t.Kind() == reflect.Ptr {
		return true
	}
	if t.Kind() == reflect.Slice {
		return true
	}
	// sql.NullString, sql.NullTime and friends
	if t.Kind() == reflect.Struct && t.Implements(valuerType) {
		_, ok := t.FieldByName("Valid")
		return ok
	}
	return false
}

func isIntegerKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}
