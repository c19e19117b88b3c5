// Package sqlite implements the SQLite dialect. Importing it registers both
// the dialect and the pure Go database/sql driver it rides on.
package sqlite

import (
	"fmt"

	_ "modernc.org/sqlite" // registers the "sqlite" database/sql driver

	"github.com/syssam/strata/dialect"
	"github.com/syssam/strata/schema/field"
)

func init() {
	dialect.Register(New())
}

// SQLite compiles statements for SQLite databases. Placeholders are "?",
// identifiers are double-quoted, and generated keys are read from
// LastInsertId.
type SQLite struct {
	*dialect.Base
}

// New returns the SQLite dialect.
func New() *SQLite {
	return &SQLite{Base: dialect.NewBase(dialect.Config{
		DialectName: dialect.SQLite,
		Param:       dialect.Question,
		Ident:       dialect.QuoteDouble,
		ColumnType:  columnType,
		PKColumn:    pkColumn,
	})}
}

func columnType(f *field.Descriptor) (string, error) {
	switch f.Type {
	case field.TypeInt, field.TypeBool:
		// SQLite has no boolean storage class; booleans are 0/1 integers.
		return "INTEGER", nil
	case field.TypeFloat:
		return "REAL", nil
	case field.TypeString, field.TypeText, field.TypeUUID:
		return "TEXT", nil
	case field.TypeTime:
		return "TIMESTAMP", nil
	case field.TypeBytes:
		return "BLOB", nil
	}
	return "", fmt.Errorf("sqlite: unsupported field type %s for column %q", f.Type, f.Name)
}

func pkColumn(f *field.Descriptor) (string, error) {
	if f.Type == field.TypeInt {
		// INTEGER PRIMARY KEY aliases the rowid, giving auto-increment keys.
		return dialect.QuoteDouble(f.Name) + " INTEGER PRIMARY KEY AUTOINCREMENT", nil
	}
	typ, err := columnType(f)
	if err != nil {
		return "", err
	}
	return dialect.QuoteDouble(f.Name) + " " + typ + " PRIMARY KEY", nil
}
