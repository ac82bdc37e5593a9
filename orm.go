package ormlite

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"github.com/go-sql-driver/mysql"

	"github.com/golobby/ormlite/dialect"
)

var (
	connectionsMu     sync.RWMutex
	globalConnections = map[string]*DB{}
)

// Initialize opens every config and registers it under its name.
func Initialize(confs ...ConnectionConfig) error {
	for _, conf := range confs {
		db, err := Open(conf)
		if err != nil {
			return fmt.Errorf("connection %q: %w", conf.Name, err)
		}
		name := conf.Name
		if name == "" {
			name = "default"
		}
		connectionsMu.Lock()
		globalConnections[name] = db
		connectionsMu.Unlock()
	}
	return nil
}

// GetConnection returns a connection registered by Initialize, or nil.
func GetConnection(name string) *DB {
	connectionsMu.RLock()
	defer connectionsMu.RUnlock()
	return globalConnections[name]
}

// MustGetConnection is GetConnection failing with ErrNoConnection.
func MustGetConnection(name string) (*DB, error) {
	if db := GetConnection(name); db != nil {
		return db, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNoConnection, name)
}

// Open connects without registering the connection. Without a configured dialect it uses the one
// registered for the driver, else the default set by UseDialect. The dialect is frozen from here on.
func Open(conf ConnectionConfig) (*DB, error) {
	d := conf.Dialect
	if d == nil {
		d = ambientDialect()
		if dd, err := dialect.ForDriver(conf.Driver); err == nil {
			d = dd
		}
		if conf.Naming != "" {
			// shared dialects are never reconfigured; name a private copy instead
			dd, ok := d.(*dialect.Dialect)
			if !ok {
				return nil, fmt.Errorf("naming %q needs a bundled dialect, got %s", conf.Naming, d.Name())
			}
			fresh, err := dialect.New(dd.Name())
			if err != nil {
				return nil, err
			}
			d = fresh
		}
	}
	if conf.Naming != "" {
		if dd, ok := d.(*dialect.Dialect); ok {
			if err := dd.SetNamingStrategy(dialect.NamingByName(conf.Naming)); err != nil {
				return nil, err
			}
		}
	}

	db := conf.DB
	if db == nil {
		dsn, err := normalizeDSN(conf.Driver, conf.ConnectionString)
		if err != nil {
			return nil, err
		}
		if db, err = sql.Open(conf.Driver, dsn); err != nil {
			return nil, err
		}
		if isMemorySQLite(conf.Driver, dsn) {
			// every pooled connection would get its own empty database
			db.SetMaxOpenConns(1)
		}
	}

	log := conf.Logger
	if log == nil {
		zl, err := newZapLogger(conf.LogLevel)
		if err != nil {
			return nil, err
		}
		log = zl
	}

	d.Freeze()
	return &DB{
		Name:                 conf.Name,
		SQL:                  db,
		CommandTimeout:       conf.CommandTimeout,
		dialect:              d,
		parameterized:        conf.Parameterized,
		disableGuessFallback: conf.DisableGuessFallback,
		log:                  log,
	}, nil
}

func normalizeDSN(driver, dsn string) (string, error) {
	if driver != "mysql" {
		return dsn, nil
	}
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", err
	}
	cfg.ParseTime = true
	return cfg.FormatDSN(), nil
}

func isMemorySQLite(driver, dsn string) bool {
	if driver != "sqlite3" && driver != "sqlite" {
		return false
	}
	return strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}
