package ormlite

import (
	"database/sql"
	"reflect"
	"time"

	"github.com/golobby/ormlite/schema"
)

// Timestamps can be embedded in a model. CreatedAt and UpdatedAt are stamped on insert and update;
// DeletedAt marks the model as soft deletable, which SoftDeleteFilter uses.
type Timestamps struct {
	CreatedAt sql.NullTime
	UpdatedAt sql.NullTime
	DeletedAt sql.NullTime `orm:"nullable"`
}

var nullTimeType = reflect.TypeOf(sql.NullTime{})

var now = func() time.Time { return time.Now().UTC() }

func stampTime(fv reflect.Value, t time.Time) {
	switch {
	case fv.Type() == nullTimeType:
		fv.Set(reflect.ValueOf(sql.NullTime{Time: t, Valid: true}))
	case fv.Type() == reflect.TypeOf(t):
		fv.Set(reflect.ValueOf(t))
	case fv.Kind() == reflect.Ptr && fv.Type().Elem() == reflect.TypeOf(t):
		fv.Set(reflect.ValueOf(&t))
	}
}

// stampInsert fills unset CreatedAt and UpdatedAt fields.
func stampInsert(md *schema.ModelDefinition, v reflect.Value) {
	t := now()
	for _, f := range md.Fields {
		if (f.IsCreatedAt || f.IsUpdatedAt) && f.IsZero(v) {
			stampTime(f.Field(v), t)
		}
	}
}

func stampUpdate(md *schema.ModelDefinition, v reflect.Value) {
	t := now()
	for _, f := range md.Fields {
		if f.IsUpdatedAt {
			stampTime(f.Field(v), t)
		}
	}
}
