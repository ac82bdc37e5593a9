package ormlite

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"reflect"
	"sync"

	"github.com/golobby/ormlite/expr"
	"github.com/golobby/ormlite/schema"
	"github.com/golobby/ormlite/sqlexpr"
)

// ReferenceFilter returns an extra predicate for follow-up queries on a related model, or nil.
type ReferenceFilter func(related *schema.ModelDefinition) expr.Node

var (
	referenceMu     sync.RWMutex
	referenceFilter ReferenceFilter
)

// UseReferenceFilter installs f for every reference load until restore is called.
func UseReferenceFilter(f ReferenceFilter) (restore func()) {
	referenceMu.Lock()
	prev := referenceFilter
	referenceFilter = f
	referenceMu.Unlock()
	return func() {
		referenceMu.Lock()
		referenceFilter = prev
		referenceMu.Unlock()
	}
}

// SoftDeleteFilter hides soft deleted rows of models that have a DeletedAt field.
func SoftDeleteFilter(related *schema.ModelDefinition) expr.Node {
	if related.SoftDelete == nil {
		return nil
	}
	return expr.Col(related.SoftDelete.Name).IsNull()
}

func currentReferenceFilter() ReferenceFilter {
	referenceMu.RLock()
	defer referenceMu.RUnlock()
	return referenceFilter
}

// LoadReferences fills every reference field of item.
func LoadReferences[T any](ctx context.Context, c Conn, item *T) error {
	md, err := schema.For[T]()
	if err != nil {
		return err
	}
	return loadReferences(ctx, c, md, []reflect.Value{reflect.ValueOf(item).Elem()})
}

// LoadSelect runs q and fills the reference fields of every result, one query per relation.
func LoadSelect[T any](ctx context.Context, c Conn, q *sqlexpr.Query[T]) ([]T, error) {
	q = orDefault(ctx, c, q)
	out, err := Select(ctx, c, q)
	if err != nil || len(out) == 0 {
		return out, err
	}
	parents := make([]reflect.Value, len(out))
	for i := range out {
		parents[i] = reflect.ValueOf(&out[i]).Elem()
	}
	return out, loadReferences(ctx, c, q.Model(), parents)
}

func loadReferences(ctx context.Context, c Conn, md *schema.ModelDefinition, parents []reflect.Value) error {
	for _, ref := range md.References {
		related, err := schema.Of(ref.ReferenceType)
		if err != nil {
			return err
		}
		if ref.Many {
			err = loadMany(ctx, c, md, related, ref, parents)
		} else {
			err = loadOne(ctx, c, md, related, ref, parents)
		}
		if err != nil {
			return fmt.Errorf("loading %s.%s: %w", md.Name, ref.Name, err)
		}
	}
	return nil
}

// childKey finds the field of related pointing back at parent, trying the self referential
// ParentId convention last.
func childKey(parent, related *schema.ModelDefinition) (*schema.FieldDefinition, error) {
	if fk := schema.FindForeignKey(related, parent); fk != nil {
		return fk, nil
	}
	if related == parent {
		if fk := related.FieldByName("ParentId"); fk != nil {
			return fk, nil
		}
	}
	return nil, fmt.Errorf("%w: no foreign key from %s to %s", ErrAmbiguousRelation, related.Name, parent.Name)
}

// selfKey finds a field on parent holding the key of a to-one reference.
func selfKey(parent, related *schema.ModelDefinition, ref *schema.FieldDefinition) *schema.FieldDefinition {
	names := []string{ref.Name + "Id", related.Name + "Id"}
	if parent == related {
		names = append(names, "ParentId")
	}
	for _, name := range names {
		if f := parent.FieldByName(name); f != nil && f != parent.PrimaryKey {
			return f
		}
	}
	if parent == related {
		return nil
	}
	for _, f := range parent.Fields {
		if f.ForeignKey != nil && f.ForeignKey.References == related.Type {
			return f
		}
	}
	return nil
}

func loadMany(ctx context.Context, c Conn, parent, related *schema.ModelDefinition, ref *schema.FieldDefinition, parents []reflect.Value) error {
	fk, err := childKey(parent, related)
	if err != nil {
		return err
	}
	key := schema.ReferencedField(fk, parent)
	if key == nil {
		return fmt.Errorf("%w: %s has no primary key", ErrMalformedModel, parent.Name)
	}
	children, err := fetchRelated(ctx, c, related, fk, keysOf(key, parents))
	if err != nil {
		return err
	}
	groups := map[string][]reflect.Value{}
	for _, child := range children {
		if k := keyString(fk.Get(child)); k != "" {
			groups[k] = append(groups[k], child)
		}
	}
	for _, p := range parents {
		setMany(ref.Field(p), groups[keyString(key.Get(p))])
	}
	return nil
}

func loadOne(ctx context.Context, c Conn, parent, related *schema.ModelDefinition, ref *schema.FieldDefinition, parents []reflect.Value) error {
	if own := selfKey(parent, related, ref); own != nil {
		target := related.PrimaryKey
		if own.ForeignKey != nil && own.ForeignKey.Field != "" {
			target = related.FieldByName(own.ForeignKey.Field)
		}
		if target == nil {
			return fmt.Errorf("%w: %s has no primary key", ErrMalformedModel, related.Name)
		}
		children, err := fetchRelated(ctx, c, related, target, keysOf(own, parents))
		if err != nil {
			return err
		}
		byKey := map[string]reflect.Value{}
		for _, child := range children {
			byKey[keyString(target.Get(child))] = child
		}
		for _, p := range parents {
			if child, ok := byKey[keyString(own.Get(p))]; ok {
				setOne(ref.Field(p), child)
			}
		}
		return nil
	}

	fk, err := childKey(parent, related)
	if err != nil {
		return err
	}
	key := schema.ReferencedField(fk, parent)
	if key == nil {
		return fmt.Errorf("%w: %s has no primary key", ErrMalformedModel, parent.Name)
	}
	children, err := fetchRelated(ctx, c, related, fk, keysOf(key, parents))
	if err != nil {
		return err
	}
	byKey := map[string]reflect.Value{}
	for _, child := range children {
		k := keyString(fk.Get(child))
		if _, dup := byKey[k]; !dup {
			byKey[k] = child
		}
	}
	for _, p := range parents {
		if child, ok := byKey[keyString(key.Get(p))]; ok {
			setOne(ref.Field(p), child)
		}
	}
	return nil
}

// keysOf collects the distinct non-null values of f across parents.
func keysOf(f *schema.FieldDefinition, parents []reflect.Value) []any {
	seen := map[string]bool{}
	var keys []any
	for _, p := range parents {
		v, ok := keyValue(f.Get(p))
		if !ok {
			continue
		}
		if k := fmt.Sprint(v); !seen[k] {
			seen[k] = true
			keys = append(keys, v)
		}
	}
	return keys
}

// keyValue unwraps pointers and driver.Valuer types so an int64 column matches an int field.
func keyValue(v any) (any, bool) {
	rv := reflect.ValueOf(v)
	for rv.IsValid() && rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return nil, false
	}
	if valuer, ok := rv.Interface().(driver.Valuer); ok {
		dv, err := valuer.Value()
		if err != nil || dv == nil {
			return nil, false
		}
		return dv, true
	}
	return rv.Interface(), true
}

func keyString(v any) string {
	kv, ok := keyValue(v)
	if !ok {
		return ""
	}
	return fmt.Sprint(kv)
}

// fetchRelated selects the rows of related whose on field is one of keys, in a single query.
func fetchRelated(ctx context.Context, c Conn, related *schema.ModelDefinition, on *schema.FieldDefinition, keys []any) ([]reflect.Value, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	preds := []expr.Node{expr.In(expr.Col(on.Name), keys)}
	if f := currentReferenceFilter(); f != nil {
		if extra := f(related); extra != nil {
			preds = append(preds, extra)
		}
	}
	q := sqlexpr.FromModel(Settings(ctx, c), related).Where(preds...)
	stmt, err := q.ToSelectStatement()
	if err != nil {
		return nil, err
	}
	cmd := newCommand(ctx, c, stmt)
	if f := filterFor(ctx); f != nil {
		v, err := f.GetList(cmd, related.Type)
		if err != nil {
			return nil, err
		}
		return elementsOf(v), nil
	}
	var out []reflect.Value
	err = queryRows(ctx, c, cmd, func(rows *sql.Rows) error {
		return eachRow(rows, func(columns []string, raw []any) error {
			item := reflect.New(related.Type).Elem()
			if err := bindRow(cmd.dialect, planFor(cmd.dialect, related, columns), item, raw); err != nil {
				return err
			}
			out = append(out, item)
			return nil
		})
	})
	return out, err
}

func elementsOf(v any) []reflect.Value {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || rv.Kind() != reflect.Slice {
		return nil
	}
	out := make([]reflect.Value, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		out = append(out, reflect.Indirect(rv.Index(i)))
	}
	return out
}

// setMany stores children into a []M or []*M field. No children leaves an empty, non-nil slice.
func setMany(field reflect.Value, children []reflect.Value) {
	s := reflect.MakeSlice(field.Type(), 0, len(children))
	ptr := field.Type().Elem().Kind() == reflect.Ptr
	for _, child := range children {
		if ptr {
			p := reflect.New(child.Type())
			p.Elem().Set(child)
			s = reflect.Append(s, p)
		} else {
			s = reflect.Append(s, child)
		}
	}
	field.Set(s)
}

func setOne(field reflect.Value, child reflect.Value) {
	if field.Kind() == reflect.Ptr {
		p := reflect.New(child.Type())
		p.Elem().Set(child)
		field.Set(p)
		return
	}
	field.Set(child)
}

// SaveReferences points every child at parent through the child's foreign key and saves it.
func SaveReferences[T any, R any](ctx context.Context, c Conn, parent *T, children ...*R) error {
	pmd, err := schema.For[T]()
	if err != nil {
		return err
	}
	rmd, err := schema.For[R]()
	if err != nil {
		return err
	}
	fk, err := childKey(pmd, rmd)
	if err != nil {
		return err
	}
	key := schema.ReferencedField(fk, pmd)
	if key == nil {
		return fmt.Errorf("%w: %s has no primary key", ErrMalformedModel, pmd.Name)
	}
	d := dialectFor(ctx, c.database())
	pv := reflect.ValueOf(parent).Elem()
	return inBatch(ctx, c, func(ctx context.Context, c Conn) error {
		for _, child := range children {
			if err := assign(d, fk.Field(reflect.ValueOf(child).Elem()), fk, key.Get(pv)); err != nil {
				return err
			}
			if _, err := Save(ctx, c, child); err != nil {
				return err
			}
		}
		return nil
	})
}
