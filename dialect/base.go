package dialect

import (
	"fmt"
	"strings"

	"github.com/syssam/strata/predicate"
	"github.com/syssam/strata/schema/field"
)

// Config carries the per-backend knobs of the shared statement compiler:
// placeholder style, identifier quoting, type vocabulary and primary key
// rendering.
type Config struct {
	// DialectName is the registered name, e.g. dialect.SQLite.
	DialectName string
	// Param renders the i-th (1-based) placeholder, e.g. "?" or "$3".
	Param func(i int) string
	// Ident quotes an identifier.
	Ident func(name string) string
	// ColumnType maps a field declaration to the backend's type vocabulary.
	ColumnType func(f *field.Descriptor) (string, error)
	// PKColumn renders the complete column definition of the primary key,
	// including auto-increment syntax where the backend has one.
	PKColumn func(f *field.Descriptor) (string, error)
	// Returning reports whether generated keys are read back with a
	// RETURNING clause instead of LastInsertId.
	Returning bool
	// EmptyInsert is the clause for an INSERT with no explicit columns.
	// Defaults to "DEFAULT VALUES"; MySQL spells it "() VALUES ()".
	EmptyInsert string
}

// Base implements the Dialect compile contract on top of a Config. Concrete
// backends embed it and register themselves at init time.
type Base struct {
	Config
}

// NewBase returns a Base compiler for the given configuration.
func NewBase(c Config) *Base { return &Base{Config: c} }

// Name implements Dialect.
func (b *Base) Name() string { return b.DialectName }

// stmt accumulates statement text and its ordered arguments. Placeholder
// numbering follows argument order, which keeps $N dialects correct across
// SET and WHERE clauses.
type stmt struct {
	sb    strings.Builder
	args  []any
	param func(i int) string
}

func (s *stmt) raw(text string) { s.sb.WriteString(text) }

func (s *stmt) arg(v any) {
	s.args = append(s.args, v)
	s.sb.WriteString(s.param(len(s.args)))
}

// CreateTable implements Dialect.
func (b *Base) CreateTable(t Table) (string, error) {
	cols := t.Columns()
	if len(cols) == 0 {
		return "", fmt.Errorf("dialect: table %q has no columns", t.Name())
	}
	defs := make([]string, 0, len(cols))
	for _, f := range cols {
		def, err := b.columnDef(f)
		if err != nil {
			return "", err
		}
		defs = append(defs, def)
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", b.Ident(t.Name()), strings.Join(defs, ", ")), nil
}

func (b *Base) columnDef(f *field.Descriptor) (string, error) {
	if f.PrimaryKey {
		return b.PKColumn(f)
	}
	typ, err := b.ColumnType(f)
	if err != nil {
		return "", err
	}
	parts := []string{b.Ident(f.Name), typ}
	if !f.Nullable {
		parts = append(parts, "NOT NULL")
	}
	if f.Unique {
		parts = append(parts, "UNIQUE")
	}
	if f.Default != nil {
		parts = append(parts, "DEFAULT "+defaultLiteral(f.Default))
	}
	return strings.Join(parts, " "), nil
}

// defaultLiteral renders a column default for DDL, where placeholders are
// not available. Strings are escaped; booleans are stored as 0/1, which all
// built-in backends accept.
func defaultLiteral(v any) string {
	switch v := v.(type) {
	case string:
		return "'" + escapeString(v) + "'"
	case bool:
		if v {
			return "1"
		}
		return "0"
	default:
		return fmt.Sprintf("%v", v)
	}
}

// escapeString escapes a string literal by doubling single quotes and
// escaping backslashes for MySQL compatibility.
func escapeString(s string) string {
	if !strings.ContainsAny(s, `'\`) {
		return s
	}
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, "'", "''")
}

// Select implements Dialect.
func (b *Base) Select(spec SelectSpec) (string, []any, error) {
	t := spec.Table
	s := &stmt{param: b.Param}
	if spec.Count {
		s.raw("SELECT COUNT(*) FROM " + b.Ident(t.Name()))
	} else {
		cols := t.Columns()
		names := make([]string, len(cols))
		for i, f := range cols {
			names[i] = b.Ident(f.Name)
		}
		s.raw("SELECT " + strings.Join(names, ", ") + " FROM " + b.Ident(t.Name()))
	}
	if spec.Where != nil {
		s.raw(" WHERE ")
		if err := b.compileCondition(s, t, spec.Where); err != nil {
			return "", nil, err
		}
	}
	if len(spec.OrderBy) > 0 {
		terms := make([]string, len(spec.OrderBy))
		for i, o := range spec.OrderBy {
			if _, ok := t.Column(o.Column); !ok {
				return "", nil, fmt.Errorf("dialect: unknown column %q in ORDER BY for table %q", o.Column, t.Name())
			}
			terms[i] = b.Ident(o.Column)
			if o.Desc {
				terms[i] += " DESC"
			} else {
				terms[i] += " ASC"
			}
		}
		s.raw(" ORDER BY " + strings.Join(terms, ", "))
	}
	if spec.Limit >= 0 {
		s.raw(fmt.Sprintf(" LIMIT %d", spec.Limit))
	}
	if spec.Offset >= 0 {
		s.raw(fmt.Sprintf(" OFFSET %d", spec.Offset))
	}
	return s.sb.String(), s.args, nil
}

// Insert implements Dialect.
func (b *Base) Insert(t Table, columns []string, values []any) (string, []any, ReturnMode, error) {
	if len(columns) != len(values) {
		return "", nil, ReturnNone, fmt.Errorf("dialect: insert into %q: %d columns, %d values", t.Name(), len(columns), len(values))
	}
	pk := t.PrimaryKey()
	withPK := false
	s := &stmt{param: b.Param}
	s.raw("INSERT INTO " + b.Ident(t.Name()))
	if len(columns) == 0 {
		if b.EmptyInsert != "" {
			s.raw(" " + b.EmptyInsert)
		} else {
			s.raw(" DEFAULT VALUES")
		}
	} else {
		names := make([]string, len(columns))
		for i, c := range columns {
			if _, ok := t.Column(c); !ok {
				return "", nil, ReturnNone, fmt.Errorf("dialect: unknown column %q in table %q", c, t.Name())
			}
			if c == pk.Name {
				withPK = true
			}
			names[i] = b.Ident(c)
		}
		s.raw(" (" + strings.Join(names, ", ") + ") VALUES (")
		for i, v := range values {
			if i > 0 {
				s.raw(", ")
			}
			s.arg(v)
		}
		s.raw(")")
	}
	mode := ReturnLastID
	switch {
	case withPK:
		mode = ReturnNone
	case b.Returning:
		s.raw(" RETURNING " + b.Ident(pk.Name))
		mode = ReturnQuery
	}
	return s.sb.String(), s.args, mode, nil
}

// Update implements Dialect.
func (b *Base) Update(t Table, pk any, columns []string, values []any) (string, []any, error) {
	return b.UpdateWhere(t, columns, values, predicate.EQ(t.PrimaryKey().Name, pk))
}

// UpdateWhere implements Dialect. Placeholder numbering continues from the
// SET clause into the WHERE clause, so $N dialects stay correct.
func (b *Base) UpdateWhere(t Table, columns []string, values []any, where *predicate.Condition) (string, []any, error) {
	if len(columns) == 0 {
		return "", nil, fmt.Errorf("dialect: update of %q has no columns", t.Name())
	}
	if len(columns) != len(values) {
		return "", nil, fmt.Errorf("dialect: update of %q: %d columns, %d values", t.Name(), len(columns), len(values))
	}
	s := &stmt{param: b.Param}
	s.raw("UPDATE " + b.Ident(t.Name()) + " SET ")
	for i, c := range columns {
		if _, ok := t.Column(c); !ok {
			return "", nil, fmt.Errorf("dialect: unknown column %q in table %q", c, t.Name())
		}
		if i > 0 {
			s.raw(", ")
		}
		s.raw(b.Ident(c) + " = ")
		s.arg(values[i])
	}
	if where != nil {
		s.raw(" WHERE ")
		if err := b.compileCondition(s, t, where); err != nil {
			return "", nil, err
		}
	}
	return s.sb.String(), s.args, nil
}

// Delete implements Dialect.
func (b *Base) Delete(t Table, pk any) (string, []any, error) {
	return b.DeleteWhere(t, predicate.EQ(t.PrimaryKey().Name, pk))
}

// DeleteWhere implements Dialect.
func (b *Base) DeleteWhere(t Table, where *predicate.Condition) (string, []any, error) {
	s := &stmt{param: b.Param}
	s.raw("DELETE FROM " + b.Ident(t.Name()))
	if where != nil {
		s.raw(" WHERE ")
		if err := b.compileCondition(s, t, where); err != nil {
			return "", nil, err
		}
	}
	return s.sb.String(), s.args, nil
}

// Condition implements Dialect.
func (b *Base) Condition(t Table, c *predicate.Condition) (string, []any, error) {
	s := &stmt{param: b.Param}
	if err := b.compileCondition(s, t, c); err != nil {
		return "", nil, err
	}
	return s.sb.String(), s.args, nil
}

func (b *Base) compileCondition(s *stmt, t Table, c *predicate.Condition) error {
	if c == nil {
		return fmt.Errorf("dialect: nil condition")
	}
	if !c.Leaf() {
		s.raw("(")
		if err := b.compileCondition(s, t, c.Left()); err != nil {
			return err
		}
		s.raw(" " + c.Op().String() + " ")
		if err := b.compileCondition(s, t, c.Right()); err != nil {
			return err
		}
		s.raw(")")
		return nil
	}
	if _, ok := t.Column(c.Field()); !ok {
		return fmt.Errorf("dialect: unknown column %q in table %q", c.Field(), t.Name())
	}
	col := b.Ident(c.Field())
	op := c.Op()
	switch {
	case op.Niladic():
		s.raw(col + " " + op.String())
	case op.Variadic():
		values := c.Values()
		if len(values) == 0 {
			// IN over the empty set matches nothing; NOT IN matches all.
			if op == predicate.OpIn {
				s.raw("1 = 0")
			} else {
				s.raw("1 = 1")
			}
			return nil
		}
		s.raw(col + " " + op.String() + " (")
		for i, v := range values {
			if i > 0 {
				s.raw(", ")
			}
			s.arg(v)
		}
		s.raw(")")
	default:
		s.raw(col + " " + op.String() + " ")
		s.arg(c.Value())
	}
	return nil
}

// Question renders "?" placeholders regardless of position.
func Question(int) string { return "?" }

// Dollar renders PostgreSQL-style "$N" placeholders.
func Dollar(i int) string { return fmt.Sprintf("$%d", i) }

// QuoteDouble quotes an identifier with double quotes (SQLite, PostgreSQL).
func QuoteDouble(name string) string { return `"` + name + `"` }

// QuoteBacktick quotes an identifier with backticks (MySQL).
func QuoteBacktick(name string) string { return "`" + name + "`" }
