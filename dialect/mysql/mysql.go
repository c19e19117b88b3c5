// Package mysql implements the MySQL/MariaDB dialect. Importing it registers
// both the dialect and the go-sql-driver database/sql driver.
package mysql

import (
	"fmt"

	_ "github.com/go-sql-driver/mysql" // registers the "mysql" database/sql driver

	"github.com/syssam/strata/dialect"
	"github.com/syssam/strata/schema/field"
)

func init() {
	dialect.Register(New())
}

// MySQL compiles statements for MySQL and MariaDB. Placeholders are "?",
// identifiers are backtick-quoted, and generated keys are read from
// LastInsertId.
type MySQL struct {
	*dialect.Base
}

// New returns the MySQL dialect.
func New() *MySQL {
	return &MySQL{Base: dialect.NewBase(dialect.Config{
		DialectName: dialect.MySQL,
		Param:       dialect.Question,
		Ident:       dialect.QuoteBacktick,
		ColumnType:  columnType,
		PKColumn:    pkColumn,
		EmptyInsert: "() VALUES ()",
	})}
}

func columnType(f *field.Descriptor) (string, error) {
	switch f.Type {
	case field.TypeInt:
		return "BIGINT", nil
	case field.TypeFloat:
		return "DOUBLE", nil
	case field.TypeString:
		return "VARCHAR(255)", nil
	case field.TypeText:
		return "TEXT", nil
	case field.TypeBool:
		return "BOOLEAN", nil
	case field.TypeTime:
		return "DATETIME", nil
	case field.TypeUUID:
		return "CHAR(36)", nil
	case field.TypeBytes:
		return "BLOB", nil
	}
	return "", fmt.Errorf("mysql: unsupported field type %s for column %q", f.Type, f.Name)
}

func pkColumn(f *field.Descriptor) (string, error) {
	if f.Type == field.TypeInt {
		return dialect.QuoteBacktick(f.Name) + " BIGINT AUTO_INCREMENT PRIMARY KEY", nil
	}
	typ, err := columnType(f)
	if err != nil {
		return "", err
	}
	return dialect.QuoteBacktick(f.Name) + " " + typ + " PRIMARY KEY", nil
}
