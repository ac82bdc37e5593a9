package schema

import "reflect"

// Configurable is implemented by models that declare metadata in code rather than tags.
type Configurable interface {
	ConfigureModel(c *ModelConfigurator)
}

type ModelConfigurator struct {
	table  string
	schema string
	fields map[string]*FieldConfigurator
}

func newModelConfigurator() *ModelConfigurator {
	return &ModelConfigurator{fields: map[string]*FieldConfigurator{}}
}

func (mc *ModelConfigurator) Table(name string) *ModelConfigurator {
	mc.table = name
	return mc
}

func (mc *ModelConfigurator) Schema(name string) *ModelConfigurator {
	mc.schema = name
	return mc
}

// Field returns the configurator of the named Go struct field.
func (mc *ModelConfigurator) Field(name string) *FieldConfigurator {
	if fc, ok := mc.fields[name]; ok {
		return fc
	}
	fc := &FieldConfigurator{fieldName: name}
	mc.fields[name] = fc
	return fc
}

func (mc *ModelConfigurator) fieldConfiguratorFor(name string) *FieldConfigurator {
	if fc, ok := mc.fields[name]; ok {
		return fc
	}
	return &FieldConfigurator{}
}

type FieldConfigurator struct {
	fieldName      string
	column         string
	primaryKey     bool
	autoIncrement  *bool
	nullable       bool
	rowVersion     bool
	computed       bool
	ignore         bool
	ignoreOnInsert bool
	ignoreOnUpdate bool
	reference      bool
	enumAsInt      bool
	length         int
	precision      int
	scale          int
	defaultValue   string
	belongTo       string
	customSelect   string
	customInsert   string
	foreignKey     *ForeignKey
}

func (fc *FieldConfigurator) Column(name string) *FieldConfigurator {
	fc.column = name
	return fc
}

func (fc *FieldConfigurator) PrimaryKey() *FieldConfigurator {
	fc.primaryKey = true
	return fc
}

func (fc *FieldConfigurator) AutoIncrement(on bool) *FieldConfigurator {
	fc.autoIncrement = &on
	return fc
}

func (fc *FieldConfigurator) Nullable() *FieldConfigurator {
	fc.nullable = true
	return fc
}

func (fc *FieldConfigurator) RowVersion() *FieldConfigurator {
	fc.rowVersion = true
	return fc
}

func (fc *FieldConfigurator) Computed() *FieldConfigurator {
	fc.computed = true
	return fc
}

func (fc *FieldConfigurator) Ignore() *FieldConfigurator {
	fc.ignore = true
	return fc
}

func (fc *FieldConfigurator) IgnoreOnInsert() *FieldConfigurator {
	fc.ignoreOnInsert = true
	return fc
}

func (fc *FieldConfigurator) IgnoreOnUpdate() *FieldConfigurator {
	fc.ignoreOnUpdate = true
	return fc
}

// Reference marks the field as a relation populated by the reference loader.
func (fc *FieldConfigurator) Reference() *FieldConfigurator {
	fc.reference = true
	return fc
}

func (fc *FieldConfigurator) EnumAsInt() *FieldConfigurator {
	fc.enumAsInt = true
	return fc
}

func (fc *FieldConfigurator) Length(n int) *FieldConfigurator {
	fc.length = n
	return fc
}

func (fc *FieldConfigurator) Decimal(precision, scale int) *FieldConfigurator {
	fc.precision = precision
	fc.scale = scale
	return fc
}

func (fc *FieldConfigurator) Default(sql string) *FieldConfigurator {
	fc.defaultValue = sql
	return fc
}

// BelongTo ties a projection field to a joined model, named by one of its values.
func (fc *FieldConfigurator) BelongTo(model any) *FieldConfigurator {
	fc.belongTo = typeOf(model).Name()
	return fc
}

func (fc *FieldConfigurator) CustomSelect(sql string) *FieldConfigurator {
	fc.customSelect = sql
	return fc
}

// CustomInsert wraps the insert placeholder, {0} marks where it goes.
func (fc *FieldConfigurator) CustomInsert(sql string) *FieldConfigurator {
	fc.customInsert = sql
	return fc
}

// References declares a foreign key to the model of the given value.
func (fc *FieldConfigurator) References(model any) *FieldConfigurator {
	fc.foreignKey = &ForeignKey{References: typeOf(model)}
	return fc
}

func (fc *FieldConfigurator) ReferencesField(model any, field string) *FieldConfigurator {
	fc.foreignKey = &ForeignKey{References: typeOf(model), Field: field}
	return fc
}

func (fc *FieldConfigurator) ConstraintName(name string) *FieldConfigurator {
	if fc.foreignKey != nil {
		fc.foreignKey.Name = name
	}
	return fc
}

func (fc *FieldConfigurator) OnDelete(action string) *FieldConfigurator {
	if fc.foreignKey != nil {
		fc.foreignKey.OnDelete = action
	}
	return fc
}

func (fc *FieldConfigurator) OnUpdate(action string) *FieldConfigurator {
	if fc.foreignKey != nil {
		fc.foreignKey.OnUpdate = action
	}
	return fc
}

func typeOf(v any) reflect.Type {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}
