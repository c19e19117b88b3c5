package strata

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-openapi/inflect"

	"github.com/syssam/strata/dialect"
	sqldrv "github.com/syssam/strata/dialect/sql"
	"github.com/syssam/strata/schema/field"
)

// Model maps an entity to a table: its label, table name, ordered columns
// and single primary key. Models are immutable once built and shared by all
// sessions and instances.
type Model struct {
	label  string
	table  string
	fields []*field.Descriptor
	index  map[string]*field.Descriptor
	pk     *field.Descriptor
}

// NewModel builds a model from the given label and field declarations.
// The table name is derived from the label ("User" becomes "users",
// "OrderItem" becomes "order_items"). Field declaration order is column
// order. A model must declare exactly one primary key; contradictory field
// constraints recorded by the builders surface here as a SchemaError.
func NewModel(label string, fs ...field.Field) (*Model, error) {
	return newModel(label, inflect.Pluralize(inflect.Underscore(label)), fs)
}

// NewModelTable is NewModel with an explicit table name.
func NewModelTable(label, table string, fs ...field.Field) (*Model, error) {
	return newModel(label, table, fs)
}

// MustModel is NewModel that panics on declaration errors. Intended for
// package-level model variables.
func MustModel(label string, fs ...field.Field) *Model {
	m, err := NewModel(label, fs...)
	if err != nil {
		panic(err)
	}
	return m
}

func newModel(label, table string, fs []field.Field) (*Model, error) {
	if label == "" {
		return nil, NewSchemaError(label, errors.New("model label is empty"))
	}
	if len(fs) == 0 {
		return nil, NewSchemaError(label, errors.New("model declares no fields"))
	}
	m := &Model{
		label:  label,
		table:  table,
		fields: make([]*field.Descriptor, 0, len(fs)),
		index:  make(map[string]*field.Descriptor, len(fs)),
	}
	for _, f := range fs {
		fd := f.Descriptor()
		if fd.Err != nil {
			return nil, NewSchemaError(label, fd.Err)
		}
		if fd.Name == "" {
			return nil, NewSchemaError(label, errors.New("field with empty name"))
		}
		if _, dup := m.index[fd.Name]; dup {
			return nil, NewSchemaError(label, fmt.Errorf("duplicate field %q", fd.Name))
		}
		if fd.PrimaryKey {
			if m.pk != nil {
				return nil, NewSchemaError(label, fmt.Errorf("multiple primary keys: %q and %q", m.pk.Name, fd.Name))
			}
			m.pk = fd
		}
		m.fields = append(m.fields, fd)
		m.index[fd.Name] = fd
	}
	if m.pk == nil {
		return nil, NewSchemaError(label, errors.New("no primary key declared"))
	}
	return m, nil
}

// Label returns the entity label, e.g. "User".
func (m *Model) Label() string { return m.label }

// Name returns the table name. It implements dialect.Table.
func (m *Model) Name() string { return m.table }

// Columns returns the declared fields in column order.
func (m *Model) Columns() []*field.Descriptor { return m.fields }

// Column returns the field declared under name.
func (m *Model) Column(name string) (*field.Descriptor, bool) {
	f, ok := m.index[name]
	return f, ok
}

// PrimaryKey returns the primary key field.
func (m *Model) PrimaryKey() *field.Descriptor { return m.pk }

// New returns a fresh transient instance of the model with no field values
// set.
func (m *Model) New() *Instance {
	return &Instance{
		model:  m,
		values: make(map[string]any, len(m.fields)),
		state:  Transient,
	}
}

// NewWith returns a transient instance populated from the given values.
// Referencing an undeclared field is a SchemaError.
func (m *Model) NewWith(values map[string]any) (*Instance, error) {
	inst := m.New()
	for _, f := range m.fields {
		v, ok := values[f.Name]
		if !ok {
			continue
		}
		if err := inst.Set(f.Name, v); err != nil {
			return nil, err
		}
	}
	for name := range values {
		if _, ok := m.index[name]; !ok {
			return nil, NewSchemaError(m.label, fmt.Errorf("unknown field %q", name))
		}
	}
	return inst, nil
}

// CreateTable compiles and executes the model's CREATE TABLE statement on
// the connection. The built-in dialects emit IF NOT EXISTS, so the call is
// idempotent with them.
func (m *Model) CreateTable(ctx context.Context, conn *sqldrv.Conn) error {
	stmt, err := conn.Dialect().CreateTable(m)
	if err != nil {
		return NewSchemaError(m.label, err)
	}
	if _, err := conn.Exec(ctx, stmt); err != nil {
		return NewConnectionError("create table "+m.table, err)
	}
	return nil
}

var _ dialect.Table = (*Model)(nil)
