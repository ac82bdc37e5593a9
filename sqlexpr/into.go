package sqlexpr

import (
	"fmt"
	"strings"

	"github.com/golobby/ormlite/schema"
)

// SelectInto renders the query's SELECT projected onto the shape Into. Each field of Into is taken
// from the model named by its BelongTo setting, else from the first table with a field of the same
// name (Into itself first when joined, then the root, then joins in order), else by the
// {Table}{Field} convention. Fields that match nothing are left out.
func SelectInto[Into any, T any](q *Query[T]) (Statement, error) {
	into, err := schema.For[Into]()
	if err != nil {
		return Statement{}, err
	}
	return q.SelectIntoModel(into)
}

// SelectIntoModel is SelectInto for a shape only known at run time.
func (q *Query[T]) SelectIntoModel(into *schema.ModelDefinition) (Statement, error) {
	if q.err != nil {
		return Statement{}, q.err
	}
	list := q.selectExpr
	if list == "" {
		var err error
		if list, err = q.projection(into); err != nil {
			return Statement{}, err
		}
	}
	text, err := q.renderSelect(list)
	if err != nil {
		return Statement{}, err
	}
	return q.finalize(text), nil
}

func (s *state) projection(into *schema.ModelDefinition) (string, error) {
	order := make([]*schema.ModelDefinition, 0, len(s.tables))
	if s.hasTable(into) {
		order = append(order, into)
	}
	for _, md := range s.tables {
		if md != into {
			order = append(order, md)
		}
	}

	var cols []string
	for _, f := range into.Fields {
		md, src := s.match(f, order)
		if src == nil {
			continue
		}
		cols = append(cols, s.selectColumn(md, src, s.d.ColumnName(f)))
	}
	if len(cols) == 0 {
		return "", fmt.Errorf("%w: no column of the query on %s matches a field of %s",
			schema.ErrMalformedModel, s.model.Name, into.Name)
	}
	return strings.Join(cols, ", "), nil
}

func (s *state) match(f *schema.FieldDefinition, order []*schema.ModelDefinition) (*schema.ModelDefinition, *schema.FieldDefinition) {
	if f.BelongToModel != "" {
		for _, md := range order {
			if strings.EqualFold(md.Name, f.BelongToModel) || strings.EqualFold(md.ModelName(), f.BelongToModel) {
				if src := md.FieldByName(f.Name); src != nil {
					return md, src
				}
			}
		}
	}
	for _, md := range order {
		if src := md.FieldByName(f.Name); src != nil {
			return md, src
		}
	}
	if s.settings.DisableGuessFallback {
		return nil, nil
	}
	return s.guessField(f.Name, order)
}
