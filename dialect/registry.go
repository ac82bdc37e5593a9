package dialect

import (
	"fmt"
	"strings"
)

// Dialects holds the shared instance of every bundled backend. They are frozen by the first
// connection opened with them; build a fresh one with the constructors to configure it afterwards.
var Dialects = struct {
	SQLite        *Dialect
	PostgreSQL    *Dialect
	MySQL         *Dialect
	SQLServer     *Dialect
	SQLServer2008 *Dialect
}{
	SQLite:        SQLite(),
	PostgreSQL:    PostgreSQL(),
	MySQL:         MySQL(),
	SQLServer:     SQLServer(),
	SQLServer2008: SQLServer2008(),
}

var constructors = []func() *Dialect{SQLite, PostgreSQL, MySQL, SQLServer, SQLServer2008}

func all() []*Dialect {
	return []*Dialect{Dialects.SQLite, Dialects.PostgreSQL, Dialects.MySQL, Dialects.SQLServer, Dialects.SQLServer2008}
}

// ForDriver returns the shared dialect for a database/sql driver name.
func ForDriver(driver string) (*Dialect, error) {
	for _, d := range all() {
		for _, n := range d.DriverNames {
			if strings.EqualFold(n, driver) {
				return d, nil
			}
		}
	}
	return nil, fmt.Errorf("no dialect for driver %q", driver)
}

// ByName returns the shared dialect with the given name.
func ByName(name string) (*Dialect, error) {
	for _, d := range all() {
		if strings.EqualFold(d.name, name) {
			return d, nil
		}
	}
	return nil, fmt.Errorf("unknown dialect %q", name)
}

// New builds an unshared, configurable dialect with the given name.
func New(name string) (*Dialect, error) {
	for _, build := range constructors {
		if d := build(); strings.EqualFold(d.name, name) {
			return d, nil
		}
	}
	return nil, fmt.Errorf("unknown dialect %q", name)
}
