package schema

import (
	"fmt"
	"reflect"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Key addresses a ModelDefinition inside a Registry.
type Key int

// Registry is an arena of model definitions, each built once per type.
type Registry struct {
	mu    sync.RWMutex
	defs  []*ModelDefinition
	index map[reflect.Type]Key
	group singleflight.Group
}

func NewRegistry() *Registry {
	return &Registry{index: map[reflect.Type]Key{}}
}

var defaultRegistry = NewRegistry()

// Of returns the definition of t, building and registering it on first use.
func (r *Registry) Of(t reflect.Type) (*ModelDefinition, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: nil type", ErrMalformedModel)
	}
	for t.Kind() == reflect.Ptr || t.Kind() == reflect.Slice {
		t = t.Elem()
	}
	if md, ok := r.lookup(t); ok {
		return md, nil
	}
	v, err, _ := r.group.Do(t.PkgPath()+"."+t.String(), func() (any, error) {
		if md, ok := r.lookup(t); ok {
			return md, nil
		}
		md, err := buildModel(t)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		defer r.mu.Unlock()
		md.Key = Key(len(r.defs))
		r.defs = append(r.defs, md)
		r.index[t] = md.Key
		return md, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*ModelDefinition), nil
}

func (r *Registry) lookup(t reflect.Type) (*ModelDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	k, ok := r.index[t]
	if !ok {
		return nil, false
	}
	return r.defs[k], true
}

// Lookup returns the definition stored under k.
func (r *Registry) Lookup(k Key) *ModelDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if int(k) < 0 || int(k) >= len(r.defs) {
		return nil
	}
	return r.defs[k]
}

// Models returns every registered definition in registration order.
func (r *Registry) Models() []*ModelDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*ModelDefinition{}, r.defs...)
}

func Of(t reflect.Type) (*ModelDefinition, error) {
	return defaultRegistry.Of(t)
}

// OfValue returns the definition of the type of v.
func OfValue(v any) (*ModelDefinition, error) {
	return defaultRegistry.Of(reflect.TypeOf(v))
}

func For[T any]() (*ModelDefinition, error) {
	return defaultRegistry.Of(reflect.TypeOf((*T)(nil)).Elem())
}

// MustFor is For that panics, for package level registration.
func MustFor[T any]() *ModelDefinition {
	md, err := For[T]()
	if err != nil {
		panic(err)
	}
	return md
}

func Lookup(k Key) *ModelDefinition {
	return defaultRegistry.Lookup(k)
}

func Models() []*ModelDefinition {
	return defaultRegistry.Models()
}
