package dialect

import (
	"fmt"

	"github.com/golobby/ormlite/schema"
)

// UnsupportedError reports a construct a backend cannot express.
type UnsupportedError struct {
	Feature string
	Dialect string
	Hint    string
}

func (e *UnsupportedError) Error() string {
	msg := fmt.Sprintf("%s does not support %s", e.Dialect, e.Feature)
	if e.Hint != "" {
		msg += ": " + e.Hint
	}
	return msg
}

func (e *UnsupportedError) Unwrap() error {
	return schema.ErrNotSupported
}

func NewUnsupportedError(dialect, feature string, hint ...string) *UnsupportedError {
	e := &UnsupportedError{Feature: feature, Dialect: dialect}
	if len(hint) > 0 {
		e.Hint = hint[0]
	}
	return e
}
