package schema

import (
	"fmt"
	"reflect"
	"strings"
)

// ModelDefinition is the metadata of a mapped struct type.
type ModelDefinition struct {
	Key    Key
	Name   string
	Alias  string
	Schema string
	Type   reflect.Type

	Fields     []*FieldDefinition
	References []*FieldDefinition

	PrimaryKey *FieldDefinition
	RowVersion *FieldDefinition
	SoftDelete *FieldDefinition
}

// ModelName is the table alias when one is set, otherwise the type name.
func (m *ModelDefinition) ModelName() string {
	if m.Alias != "" {
		return m.Alias
	}
	return m.Name
}

// FieldByName looks a persisted field up by Go name first and column name second, ignoring case.
func (m *ModelDefinition) FieldByName(name string) *FieldDefinition {
	for _, f := range m.Fields {
		if strings.EqualFold(f.Name, name) {
			return f
		}
	}
	for _, f := range m.Fields {
		if f.Alias != "" && strings.EqualFold(f.Alias, name) {
			return f
		}
	}
	return nil
}

func (m *ModelDefinition) ReferenceByName(name string) *FieldDefinition {
	for _, f := range m.References {
		if strings.EqualFold(f.Name, name) {
			return f
		}
	}
	return nil
}

// MustPrimaryKey returns the primary key or an ErrMalformedModel naming the operation.
func (m *ModelDefinition) MustPrimaryKey(op string) (*FieldDefinition, error) {
	if m.PrimaryKey == nil {
		return nil, fmt.Errorf("%w: %s requires a primary key on %s", ErrMalformedModel, op, m.Name)
	}
	return m.PrimaryKey, nil
}

// FieldsForInsert are the fields written by INSERT.
func (m *ModelDefinition) FieldsForInsert() []*FieldDefinition {
	var fs []*FieldDefinition
	for _, f := range m.Fields {
		if f.IsComputed || f.IgnoreOnInsert || f.AutoIncrement {
			continue
		}
		fs = append(fs, f)
	}
	return fs
}

// FieldsForUpdate are the fields written by a full UPDATE.
func (m *ModelDefinition) FieldsForUpdate() []*FieldDefinition {
	var fs []*FieldDefinition
	for _, f := range m.Fields {
		if f.IsPrimaryKey || f.IsComputed || f.IgnoreOnUpdate || f.IsRowVersion || f.IsCreatedAt {
			continue
		}
		fs = append(fs, f)
	}
	return fs
}

func (m *ModelDefinition) String() string {
	return m.ModelName()
}

func buildModel(t reflect.Type) (*ModelDefinition, error) {
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %s is not a struct", ErrMalformedModel, t)
	}
	md := &ModelDefinition{Name: t.Name(), Type: t}
	if md.Name == "" {
		return nil, fmt.Errorf("%w: anonymous struct types cannot be mapped", ErrMalformedModel)
	}
	mc := newModelConfigurator()
	if c, ok := reflect.New(t).Interface().(Configurable); ok {
		c.ConfigureModel(mc)
	}
	md.Alias = mc.table
	md.Schema = mc.schema

	if err := md.walk(t, nil, mc); err != nil {
		return nil, err
	}
	if err := md.resolveTagReferences(); err != nil {
		return nil, err
	}

	for _, f := range md.Fields {
		if f.IsPrimaryKey && md.PrimaryKey == nil {
			md.PrimaryKey = f
		}
		if f.IsRowVersion && md.RowVersion == nil {
			md.RowVersion = f
		}
		if f.IsDeletedAt && md.SoftDelete == nil {
			md.SoftDelete = f
		}
	}
	if md.PrimaryKey == nil {
		for _, f := range md.Fields {
			if strings.EqualFold(f.Name, "id") {
				f.IsPrimaryKey = true
				md.PrimaryKey = f
				break
			}
		}
	}
	if pk := md.PrimaryKey; pk != nil && !pk.autoIncrementSet && isIntegerKind(pk.Underlying().Kind()) {
		pk.AutoIncrement = true
	}
	return md, nil
}

func (m *ModelDefinition) walk(t reflect.Type, parent []int, mc *ModelConfigurator) error {
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		index := append(append([]int{}, parent...), i)
		tag := fieldMetadataFromTag(sf.Tag.Get("orm"))
		fc := mc.fieldConfiguratorFor(sf.Name)
		if tag.ignore || fc.ignore {
			continue
		}

		ft := sf.Type
		if sf.Anonymous && !IsScalar(ft) {
			et := ft
			if et.Kind() == reflect.Ptr {
				et = et.Elem()
			}
			if et.Kind() == reflect.Struct {
				if err := m.walk(et, index, mc); err != nil {
					return err
				}
				continue
			}
		}

		fd := &FieldDefinition{Name: sf.Name, Type: ft, Index: index}
		if tag.reference || fc.reference || !IsScalar(ft) {
			et := ft
			if et.Kind() == reflect.Slice {
				fd.Many = true
				et = et.Elem()
			}
			for et.Kind() == reflect.Ptr {
				et = et.Elem()
			}
			// maps, channels and slices of scalars have no column
			if et.Kind() != reflect.Struct {
				continue
			}
			fd.IsReference = true
			fd.ReferenceType = et
			m.References = append(m.References, fd)
			continue
		}

		fd.Alias = firstNonEmpty(fc.column, tag.column)
		fd.IsPrimaryKey = tag.pk || fc.primaryKey
		fd.Nullable = tag.nullable || fc.nullable || isNullableType(ft)
		fd.IsRowVersion = tag.rowVersion || fc.rowVersion || strings.EqualFold(sf.Name, "rowversion")
		fd.IsComputed = tag.computed || fc.computed
		fd.IgnoreOnInsert = tag.ignoreOnInsert || fc.ignoreOnInsert
		fd.IgnoreOnUpdate = tag.ignoreOnUpdate || fc.ignoreOnUpdate
		fd.EnumAsInt = tag.enumAsInt || fc.enumAsInt
		fd.IsCreatedAt = tag.createdAt || strings.EqualFold(sf.Name, "createdat")
		fd.IsUpdatedAt = tag.updatedAt || strings.EqualFold(sf.Name, "updatedat")
		fd.IsDeletedAt = tag.deletedAt || strings.EqualFold(sf.Name, "deletedat")
		fd.DefaultValue = firstNonEmpty(fc.defaultValue, tag.defaultValue)
		fd.FieldLength = firstPositive(fc.length, tag.length)
		fd.Precision = firstPositive(fc.precision, tag.precision)
		fd.Scale = firstPositive(fc.scale, tag.scale)
		fd.BelongToModel = firstNonEmpty(fc.belongTo, tag.belongTo)
		fd.CustomSelect = firstNonEmpty(fc.customSelect, tag.customSelect)
		fd.CustomInsert = firstNonEmpty(fc.customInsert, tag.customInsert)
		switch {
		case fc.autoIncrement != nil:
			fd.AutoIncrement = *fc.autoIncrement
			fd.autoIncrementSet = true
		case tag.autoIncrement != nil:
			fd.AutoIncrement = *tag.autoIncrement
			fd.autoIncrementSet = true
		}
		if fc.foreignKey != nil {
			fk := *fc.foreignKey
			if fk.OnDelete == "" {
				fk.OnDelete = tag.onDelete
			}
			if fk.OnUpdate == "" {
				fk.OnUpdate = tag.onUpdate
			}
			fd.ForeignKey = &fk
		} else if tag.references != "" {
			name, field, _ := strings.Cut(tag.references, ".")
			fd.referencesName = name
			fd.ForeignKey = &ForeignKey{Field: field, OnDelete: tag.onDelete, OnUpdate: tag.onUpdate}
		} else if tag.onDelete != "" || tag.onUpdate != "" {
			return fmt.Errorf("%w: %s.%s has ondelete or onupdate without a foreign key", ErrMalformedModel, m.Name, sf.Name)
		}
		m.Fields = append(m.Fields, fd)
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstPositive(vals ...int) int {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return 0
}

// resolveTagReferences binds references=Model[.Field] tags to a type: the model itself, one of its
// relation fields, or an already registered model, in that order.
func (m *ModelDefinition) resolveTagReferences() error {
	for _, f := range m.Fields {
		if f.referencesName == "" {
			continue
		}
		candidates := []reflect.Type{m.Type}
		for _, r := range m.References {
			candidates = append(candidates, r.ReferenceType)
		}
		for _, md := range Models() {
			candidates = append(candidates, md.Type)
		}
		for _, t := range candidates {
			if strings.EqualFold(t.Name(), f.referencesName) {
				f.ForeignKey.References = t
				break
			}
		}
		if f.ForeignKey.References == nil {
			return fmt.Errorf("%w: %s.%s references unknown model %s", ErrMalformedModel, m.Name, f.Name, f.referencesName)
		}
	}
	return nil
}
