// Package dialect defines the contract between the runtime and a concrete
// SQL backend, and a registry through which backends make themselves
// available by name.
//
// A Dialect translates abstract statement intents (create table, select,
// insert, update, delete, condition tree) into a parameterized statement
// string plus its ordered bound values. Literals are never interpolated into
// statement text; every value travels as a placeholder argument.
//
// The runtime is oblivious to which dialect is active. A backend that cannot
// implement the full contract cannot compile against the Dialect interface,
// so partial implementations are rejected before registration rather than at
// first use.
package dialect

import (
	"fmt"
	"sort"
	"sync"

	"github.com/syssam/strata/predicate"
	"github.com/syssam/strata/schema/field"
)

// Dialect names for the built-in backends.
const (
	SQLite   = "sqlite"
	Postgres = "postgres"
	MySQL    = "mysql"
)

// Table describes a mapped table to the compiler: its name, its columns in
// declared order, and its single primary key column.
type Table interface {
	Name() string
	Columns() []*field.Descriptor
	Column(name string) (*field.Descriptor, bool)
	PrimaryKey() *field.Descriptor
}

// Order is one ORDER BY term.
type Order struct {
	Column string
	Desc   bool
}

// ReturnMode tells the caller how the generated primary key of an INSERT is
// obtained.
type ReturnMode uint8

const (
	// ReturnNone means the statement generates no key the caller must read
	// back (the caller supplied the primary key itself).
	ReturnNone ReturnMode = iota
	// ReturnLastID means the key is read from the driver's LastInsertId.
	ReturnLastID
	// ReturnQuery means the statement ends with a RETURNING clause and must
	// be run as a query whose single row holds the generated key.
	ReturnQuery
)

// SelectSpec is the abstract intent of a SELECT statement.
type SelectSpec struct {
	Table   Table
	Where   *predicate.Condition // nil means match all
	OrderBy []Order
	Limit   int  // < 0 means no limit
	Offset  int  // < 0 means no offset
	Count   bool // SELECT COUNT(*) instead of the column list
}

// Dialect compiles abstract statement intents for one database family.
type Dialect interface {
	// Name returns the registered dialect name, which doubles as the
	// database/sql driver name the dialect's package registers.
	Name() string

	// CreateTable compiles the DDL statement for the table. The statement
	// uses IF NOT EXISTS, so re-running it against an existing table is a
	// no-op on every built-in backend.
	CreateTable(t Table) (string, error)

	// Select compiles a SELECT over the table's columns in declared order.
	Select(s SelectSpec) (string, []any, error)

	// Insert compiles an INSERT of the given column/value pairs and reports
	// how the generated primary key, if any, is obtained.
	Insert(t Table, columns []string, values []any) (string, []any, ReturnMode, error)

	// Update compiles an UPDATE of the given columns for the row whose
	// primary key equals pk.
	Update(t Table, pk any, columns []string, values []any) (string, []any, error)

	// UpdateWhere compiles an UPDATE of the given columns for every row
	// matching the condition. A nil condition matches all rows.
	UpdateWhere(t Table, columns []string, values []any, where *predicate.Condition) (string, []any, error)

	// Delete compiles a DELETE of the row whose primary key equals pk.
	Delete(t Table, pk any) (string, []any, error)

	// DeleteWhere compiles a DELETE of every row matching the condition.
	// A nil condition matches all rows.
	DeleteWhere(t Table, where *predicate.Condition) (string, []any, error)

	// Condition compiles a predicate tree into a parameterized fragment.
	// AND/OR nodes are always fully parenthesized.
	Condition(t Table, c *predicate.Condition) (string, []any, error)
}

var (
	driversMu sync.RWMutex
	drivers   = make(map[string]Dialect)
)

// Register makes a dialect available under its name. It panics if the
// dialect is nil or the name is already taken, mirroring database/sql's
// driver registration: misregistration is a programming error caught at
// init time.
func Register(d Dialect) {
	driversMu.Lock()
	defer driversMu.Unlock()
	if d == nil {
		panic("dialect: Register dialect is nil")
	}
	if _, dup := drivers[d.Name()]; dup {
		panic("dialect: Register called twice for dialect " + d.Name())
	}
	drivers[d.Name()] = d
}

// Lookup returns the dialect registered under name.
func Lookup(name string) (Dialect, error) {
	driversMu.RLock()
	defer driversMu.RUnlock()
	d, ok := drivers[name]
	if !ok {
		return nil, fmt.Errorf("dialect: unknown dialect %q (forgotten import?)", name)
	}
	return d, nil
}

// List returns the names of all registered dialects, sorted.
func List() []string {
	driversMu.RLock()
	defer driversMu.RUnlock()
	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
