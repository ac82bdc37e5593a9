package ormlite

import (
	"errors"

	"github.com/golobby/ormlite/dialect"
	"github.com/golobby/ormlite/schema"
)

var (
	ErrMalformedModel    = schema.ErrMalformedModel
	ErrNotSupported      = schema.ErrNotSupported
	ErrAmbiguousRelation = schema.ErrAmbiguousRelation
	// ErrOptimisticConcurrency is returned when an update or delete that carried a row version
	// matched no row, because the row changed or is gone.
	ErrOptimisticConcurrency = errors.New("optimistic concurrency: row was changed or deleted")
	// ErrNoConnection is returned by GetConnection lookups for names never initialized.
	ErrNoConnection = errors.New("no connection with that name")
)

// UnsupportedError is the detailed form of ErrNotSupported.
type UnsupportedError = dialect.UnsupportedError
