package ormlite

import (
	"context"
	"fmt"
	"reflect"
	"sync"
)

// ResultsFilter intercepts execution. When one is installed no statement reaches the driver and
// results come from the filter instead. Results are returned as any and must hold the requested
// shape: a []T for lists, T or *T for singles, []V for columns, map[K]V for dictionaries and
// map[K][]V for lookups.
type ResultsFilter interface {
	GetList(cmd *Command, elem reflect.Type) (any, error)
	GetSingle(cmd *Command, t reflect.Type) (any, error)
	GetScalar(cmd *Command, t reflect.Type) (any, error)
	GetColumn(cmd *Command, elem reflect.Type) (any, error)
	GetDictionary(cmd *Command, key, value reflect.Type) (any, error)
	GetLookup(cmd *Command, key, value reflect.Type) (any, error)
	ExecuteSQL(cmd *Command) (int64, error)
}

var (
	filterMu     sync.RWMutex
	globalFilter ResultsFilter
)

// UseResultsFilter installs f for the whole process until restore is called.
func UseResultsFilter(f ResultsFilter) (restore func()) {
	filterMu.Lock()
	prev := globalFilter
	globalFilter = f
	filterMu.Unlock()
	return func() {
		filterMu.Lock()
		globalFilter = prev
		filterMu.Unlock()
	}
}

// WithResultsFilter installs f for operations run with ctx. It wins over UseResultsFilter.
func WithResultsFilter(ctx context.Context, f ResultsFilter) context.Context {
	return context.WithValue(ctx, filterKey, f)
}

func filterFor(ctx context.Context) ResultsFilter {
	if f, ok := ctx.Value(filterKey).(ResultsFilter); ok && f != nil {
		return f
	}
	filterMu.RLock()
	defer filterMu.RUnlock()
	return globalFilter
}

// CaptureFilter records every command and answers with canned results.
type CaptureFilter struct {
	mu       sync.Mutex
	Commands []Command

	Results           any
	SingleResult      any
	ScalarResult      any
	ColumnResults     any
	DictionaryResults any
	LookupResults     any
	RowsAffected      int64
}

func (f *CaptureFilter) capture(cmd *Command) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := *cmd
	c.Params = append(c.Params[:0:0], cmd.Params...)
	f.Commands = append(f.Commands, c)
}

// SQL lists the captured statement texts in order.
func (f *CaptureFilter) SQL() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.Commands))
	for i, c := range f.Commands {
		out[i] = c.Text
	}
	return out
}

func (f *CaptureFilter) GetList(cmd *Command, _ reflect.Type) (any, error) {
	f.capture(cmd)
	return f.Results, nil
}

func (f *CaptureFilter) GetSingle(cmd *Command, _ reflect.Type) (any, error) {
	f.capture(cmd)
	return f.SingleResult, nil
}

func (f *CaptureFilter) GetScalar(cmd *Command, _ reflect.Type) (any, error) {
	f.capture(cmd)
	return f.ScalarResult, nil
}

func (f *CaptureFilter) GetColumn(cmd *Command, _ reflect.Type) (any, error) {
	f.capture(cmd)
	return f.ColumnResults, nil
}

func (f *CaptureFilter) GetDictionary(cmd *Command, _, _ reflect.Type) (any, error) {
	f.capture(cmd)
	return f.DictionaryResults, nil
}

func (f *CaptureFilter) GetLookup(cmd *Command, _, _ reflect.Type) (any, error) {
	f.capture(cmd)
	return f.LookupResults, nil
}

func (f *CaptureFilter) ExecuteSQL(cmd *Command) (int64, error) {
	f.capture(cmd)
	return f.RowsAffected, nil
}

// filtered converts a filter result into T. Nil is T's zero value.
func filtered[T any](v any) (T, error) {
	var zero T
	if v == nil {
		return zero, nil
	}
	if t, ok := v.(T); ok {
		return t, nil
	}
	rv := reflect.ValueOf(v)
	want := reflect.TypeOf((*T)(nil)).Elem()
	if rv.Kind() == reflect.Ptr && rv.Type().Elem() == want {
		if rv.IsNil() {
			return zero, nil
		}
		return rv.Elem().Interface().(T), nil
	}
	if rv.Type().ConvertibleTo(want) {
		return rv.Convert(want).Interface().(T), nil
	}
	return zero, fmt.Errorf("results filter returned %T, want %s", v, want)
}
