package schema

import "errors"

var (
	// ErrMalformedModel reports a model that lacks structure an operation requires, such as a primary key.
	ErrMalformedModel = errors.New("malformed model")
	// ErrNotSupported reports an expression or statement shape with no translation.
	ErrNotSupported = errors.New("not supported")
	// ErrAmbiguousRelation reports that no unique foreign key path links two models.
	ErrAmbiguousRelation = errors.New("ambiguous relation")
)
