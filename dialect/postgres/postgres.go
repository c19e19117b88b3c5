// Package postgres implements the PostgreSQL dialect. Importing it registers
// both the dialect and the lib/pq database/sql driver.
package postgres

import (
	"fmt"

	_ "github.com/lib/pq" // registers the "postgres" database/sql driver

	"github.com/syssam/strata/dialect"
	"github.com/syssam/strata/schema/field"
)

func init() {
	dialect.Register(New())
}

// Postgres compiles statements for PostgreSQL. Placeholders are positional
// ("$1", "$2", …) and generated keys are read back with RETURNING.
type Postgres struct {
	*dialect.Base
}

// New returns the PostgreSQL dialect.
func New() *Postgres {
	return &Postgres{Base: dialect.NewBase(dialect.Config{
		DialectName: dialect.Postgres,
		Param:       dialect.Dollar,
		Ident:       dialect.QuoteDouble,
		ColumnType:  columnType,
		PKColumn:    pkColumn,
		Returning:   true,
	})}
}

func columnType(f *field.Descriptor) (string, error) {
	switch f.Type {
	case field.TypeInt:
		return "BIGINT", nil
	case field.TypeFloat:
		return "DOUBLE PRECISION", nil
	case field.TypeString:
		return "VARCHAR(255)", nil
	case field.TypeText:
		return "TEXT", nil
	case field.TypeBool:
		return "BOOLEAN", nil
	case field.TypeTime:
		return "TIMESTAMPTZ", nil
	case field.TypeUUID:
		return "UUID", nil
	case field.TypeBytes:
		return "BYTEA", nil
	}
	return "", fmt.Errorf("postgres: unsupported field type %s for column %q", f.Type, f.Name)
}

func pkColumn(f *field.Descriptor) (string, error) {
	if f.Type == field.TypeInt {
		return dialect.QuoteDouble(f.Name) + " BIGSERIAL PRIMARY KEY", nil
	}
	typ, err := columnType(f)
	if err != nil {
		return "", err
	}
	return dialect.QuoteDouble(f.Name) + " " + typ + " PRIMARY KEY", nil
}
