package schema

import (
	"strings"
	"sync"

	"github.com/gertd/go-pluralize"
	"github.com/iancoleman/strcase"
)

var (
	pluralizeOnce   sync.Once
	pluralizeClient *pluralize.Client
)

func inflector() *pluralize.Client {
	pluralizeOnce.Do(func() {
		pluralizeClient = pluralize.NewClient()
	})
	return pluralizeClient
}

func Singular(s string) string {
	return inflector().Singular(s)
}

func Plural(s string) string {
	return inflector().Plural(s)
}

func SnakeCase(s string) string {
	return strcase.ToSnake(s)
}

// FindForeignKey returns the field of child that points at parent, trying an explicit
// foreign key, then {Parent}Id, then {Parent}{PrimaryKey}, then parent_id in snake case.
func FindForeignKey(child, parent *ModelDefinition) *FieldDefinition {
	for _, f := range child.Fields {
		if f.ForeignKey != nil && f.ForeignKey.References == parent.Type {
			return f
		}
	}
	candidates := []string{parent.Name + "Id"}
	if parent.Alias != "" {
		candidates = append(candidates, parent.Alias+"Id")
	}
	if parent.PrimaryKey != nil {
		candidates = append(candidates, parent.Name+parent.PrimaryKey.Name)
	}
	for _, name := range candidates {
		if f := child.FieldByName(name); f != nil && f != child.PrimaryKey {
			return f
		}
	}
	snake := SnakeCase(Singular(parent.ModelName())) + "_id"
	for _, f := range child.Fields {
		if strings.EqualFold(f.ColumnName(), snake) && f != child.PrimaryKey {
			return f
		}
	}
	return nil
}

// ReferencedField is the field of parent a foreign key points at.
func ReferencedField(fk *FieldDefinition, parent *ModelDefinition) *FieldDefinition {
	if fk.ForeignKey != nil && fk.ForeignKey.Field != "" {
		if f := parent.FieldByName(fk.ForeignKey.Field); f != nil {
			return f
		}
	}
	return parent.PrimaryKey
}
