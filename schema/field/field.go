// Package field provides fluent builders for declaring model columns.
//
// A field is declared once on a model and shared read-only by every instance
// and by the condition-building machinery:
//
//	var (
//		ID    = field.Int("id").PrimaryKey()
//		Name  = field.String("name")
//		Email = field.String("email").Unique()
//		Age   = field.Int("age").Nullable()
//	)
//
// Columns are NOT NULL unless marked Nullable. Each typed builder exposes
// comparison methods returning predicate leaves, so queries read:
//
//	q.Where(Age.GTE(18), Name.EQ("Alice"))
//
// Contradictory constraints do not panic at declaration time; they are
// recorded on the descriptor's Err and surfaced as a schema error when the
// model is built.
package field

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/syssam/strata/predicate"
)

// A Type represents a field's declared column type.
type Type uint8

// Column types supported by the built-in dialects.
const (
	TypeInvalid Type = iota
	TypeInt
	TypeFloat
	TypeString
	TypeText
	TypeBool
	TypeTime
	TypeUUID
	TypeBytes
)

var typeNames = [...]string{
	TypeInvalid: "invalid",
	TypeInt:     "int",
	TypeFloat:   "float",
	TypeString:  "string",
	TypeText:    "text",
	TypeBool:    "bool",
	TypeTime:    "time",
	TypeUUID:    "uuid",
	TypeBytes:   "bytes",
}

// String returns the name of the type.
func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("Type(%d)", t)
}

// Numeric reports whether the type orders numerically.
func (t Type) Numeric() bool { return t == TypeInt || t == TypeFloat }

// A Descriptor holds the declaration of a single column: its name, type and
// constraints. Descriptors are immutable once the owning model is built.
type Descriptor struct {
	Name        string     // column name
	Type        Type       // column type
	PrimaryKey  bool       // PRIMARY KEY constraint
	Nullable    bool       // column accepts NULL
	Unique      bool       // UNIQUE constraint
	Default     any        // literal default, or nil
	DefaultFunc func() any // computed default, or nil
	Err         error      // deferred declaration error
}

// A Field supplies a column descriptor to a model definition. All builders
// in this package implement it.
type Field interface {
	Descriptor() *Descriptor
}

func (d *Descriptor) setErr(format string, args ...any) {
	if d.Err == nil {
		d.Err = fmt.Errorf(format, args...)
	}
}

func (d *Descriptor) primaryKey() {
	if d.Nullable {
		d.setErr("field: primary key %q cannot be nullable", d.Name)
	}
	d.PrimaryKey = true
}

func (d *Descriptor) nullable() {
	if d.PrimaryKey {
		d.setErr("field: primary key %q cannot be nullable", d.Name)
	}
	d.Nullable = true
}

// IntBuilder declares an integer column.
type IntBuilder struct{ desc *Descriptor }

// Int returns a new integer field with the given name.
func Int(name string) *IntBuilder {
	return &IntBuilder{desc: &Descriptor{Name: name, Type: TypeInt}}
}

// PrimaryKey marks the field as the model's primary key.
func (b *IntBuilder) PrimaryKey() *IntBuilder { b.desc.primaryKey(); return b }

// Nullable allows the column to hold NULL.
func (b *IntBuilder) Nullable() *IntBuilder { b.desc.nullable(); return b }

// Unique adds a UNIQUE constraint.
func (b *IntBuilder) Unique() *IntBuilder { b.desc.Unique = true; return b }

// Default sets the column default.
func (b *IntBuilder) Default(v int64) *IntBuilder { b.desc.Default = v; return b }

// DefaultFunc sets a computed default evaluated on insert.
func (b *IntBuilder) DefaultFunc(fn func() int64) *IntBuilder {
	b.desc.DefaultFunc = func() any { return fn() }
	return b
}

// Descriptor implements Field.
func (b *IntBuilder) Descriptor() *Descriptor { return b.desc }

// Name returns the column name.
func (b *IntBuilder) Name() string { return b.desc.Name }

// EQ returns a predicate that checks if the field equals the given value.
func (b *IntBuilder) EQ(v int64) *predicate.Condition { return predicate.EQ(b.desc.Name, v) }

// NEQ returns a predicate that checks if the field does not equal the given value.
func (b *IntBuilder) NEQ(v int64) *predicate.Condition { return predicate.NEQ(b.desc.Name, v) }

// LT returns a predicate that checks if the field is less than the given value.
func (b *IntBuilder) LT(v int64) *predicate.Condition { return predicate.LT(b.desc.Name, v) }

// LTE returns a predicate that checks if the field is less than or equal to the given value.
func (b *IntBuilder) LTE(v int64) *predicate.Condition { return predicate.LTE(b.desc.Name, v) }

// GT returns a predicate that checks if the field is greater than the given value.
func (b *IntBuilder) GT(v int64) *predicate.Condition { return predicate.GT(b.desc.Name, v) }

// GTE returns a predicate that checks if the field is greater than or equal to the given value.
func (b *IntBuilder) GTE(v int64) *predicate.Condition { return predicate.GTE(b.desc.Name, v) }

// In returns a predicate that checks if the field value is in the given list.
func (b *IntBuilder) In(vs ...int64) *predicate.Condition {
	return predicate.In(b.desc.Name, anySlice(vs)...)
}

// NotIn returns a predicate that checks if the field value is not in the given list.
func (b *IntBuilder) NotIn(vs ...int64) *predicate.Condition {
	return predicate.NotIn(b.desc.Name, anySlice(vs)...)
}

// IsNull returns a predicate that checks if the field is NULL.
func (b *IntBuilder) IsNull() *predicate.Condition { return predicate.IsNull(b.desc.Name) }

// NotNull returns a predicate that checks if the field is not NULL.
func (b *IntBuilder) NotNull() *predicate.Condition { return predicate.NotNull(b.desc.Name) }

// FloatBuilder declares a floating point column.
type FloatBuilder struct{ desc *Descriptor }

// Float returns a new float field with the given name.
func Float(name string) *FloatBuilder {
	return &FloatBuilder{desc: &Descriptor{Name: name, Type: TypeFloat}}
}

// PrimaryKey marks the field as the model's primary key.
func (b *FloatBuilder) PrimaryKey() *FloatBuilder { b.desc.primaryKey(); return b }

// Nullable allows the column to hold NULL.
func (b *FloatBuilder) Nullable() *FloatBuilder { b.desc.nullable(); return b }

// Unique adds a UNIQUE constraint.
func (b *FloatBuilder) Unique() *FloatBuilder { b.desc.Unique = true; return b }

// Default sets the column default.
func (b *FloatBuilder) Default(v float64) *FloatBuilder { b.desc.Default = v; return b }

// Descriptor implements Field.
func (b *FloatBuilder) Descriptor() *Descriptor { return b.desc }

// Name returns the column name.
func (b *FloatBuilder) Name() string { return b.desc.Name }

// EQ returns a predicate that checks if the field equals the given value.
func (b *FloatBuilder) EQ(v float64) *predicate.Condition { return predicate.EQ(b.desc.Name, v) }

// NEQ returns a predicate that checks if the field does not equal the given value.
func (b *FloatBuilder) NEQ(v float64) *predicate.Condition { return predicate.NEQ(b.desc.Name, v) }

// LT returns a predicate that checks if the field is less than the given value.
func (b *FloatBuilder) LT(v float64) *predicate.Condition { return predicate.LT(b.desc.Name, v) }

// LTE returns a predicate that checks if the field is less than or equal to the given value.
func (b *FloatBuilder) LTE(v float64) *predicate.Condition { return predicate.LTE(b.desc.Name, v) }

// GT returns a predicate that checks if the field is greater than the given value.
func (b *FloatBuilder) GT(v float64) *predicate.Condition { return predicate.GT(b.desc.Name, v) }

// GTE returns a predicate that checks if the field is greater than or equal to the given value.
func (b *FloatBuilder) GTE(v float64) *predicate.Condition { return predicate.GTE(b.desc.Name, v) }

// IsNull returns a predicate that checks if the field is NULL.
func (b *FloatBuilder) IsNull() *predicate.Condition { return predicate.IsNull(b.desc.Name) }

// NotNull returns a predicate that checks if the field is not NULL.
func (b *FloatBuilder) NotNull() *predicate.Condition { return predicate.NotNull(b.desc.Name) }

// StringBuilder declares a short string column (VARCHAR on backends that
// distinguish it from TEXT).
type StringBuilder struct{ desc *Descriptor }

// String returns a new string field with the given name.
func String(name string) *StringBuilder {
	return &StringBuilder{desc: &Descriptor{Name: name, Type: TypeString}}
}

// Text returns a new unbounded text field with the given name.
func Text(name string) *StringBuilder {
	return &StringBuilder{desc: &Descriptor{Name: name, Type: TypeText}}
}

// PrimaryKey marks the field as the model's primary key.
func (b *StringBuilder) PrimaryKey() *StringBuilder { b.desc.primaryKey(); return b }

// Nullable allows the column to hold NULL.
func (b *StringBuilder) Nullable() *StringBuilder { b.desc.nullable(); return b }

// Unique adds a UNIQUE constraint.
func (b *StringBuilder) Unique() *StringBuilder { b.desc.Unique = true; return b }

// Default sets the column default.
func (b *StringBuilder) Default(v string) *StringBuilder { b.desc.Default = v; return b }

// DefaultFunc sets a computed default evaluated on insert.
func (b *StringBuilder) DefaultFunc(fn func() string) *StringBuilder {
	b.desc.DefaultFunc = func() any { return fn() }
	return b
}

// Descriptor implements Field.
func (b *StringBuilder) Descriptor() *Descriptor { return b.desc }

// Name returns the column name.
func (b *StringBuilder) Name() string { return b.desc.Name }

// EQ returns a predicate that checks if the field equals the given value.
func (b *StringBuilder) EQ(v string) *predicate.Condition { return predicate.EQ(b.desc.Name, v) }

// NEQ returns a predicate that checks if the field does not equal the given value.
func (b *StringBuilder) NEQ(v string) *predicate.Condition { return predicate.NEQ(b.desc.Name, v) }

// LT returns a predicate that checks if the field sorts before the given value.
func (b *StringBuilder) LT(v string) *predicate.Condition { return predicate.LT(b.desc.Name, v) }

// LTE returns a predicate that checks if the field sorts before or equals the given value.
func (b *StringBuilder) LTE(v string) *predicate.Condition { return predicate.LTE(b.desc.Name, v) }

// GT returns a predicate that checks if the field sorts after the given value.
func (b *StringBuilder) GT(v string) *predicate.Condition { return predicate.GT(b.desc.Name, v) }

// GTE returns a predicate that checks if the field sorts after or equals the given value.
func (b *StringBuilder) GTE(v string) *predicate.Condition { return predicate.GTE(b.desc.Name, v) }

// In returns a predicate that checks if the field value is in the given list.
func (b *StringBuilder) In(vs ...string) *predicate.Condition {
	return predicate.In(b.desc.Name, anySlice(vs)...)
}

// NotIn returns a predicate that checks if the field value is not in the given list.
func (b *StringBuilder) NotIn(vs ...string) *predicate.Condition {
	return predicate.NotIn(b.desc.Name, anySlice(vs)...)
}

// IsNull returns a predicate that checks if the field is NULL.
func (b *StringBuilder) IsNull() *predicate.Condition { return predicate.IsNull(b.desc.Name) }

// NotNull returns a predicate that checks if the field is not NULL.
func (b *StringBuilder) NotNull() *predicate.Condition { return predicate.NotNull(b.desc.Name) }

// BoolBuilder declares a boolean column.
type BoolBuilder struct{ desc *Descriptor }

// Bool returns a new boolean field with the given name.
func Bool(name string) *BoolBuilder {
	return &BoolBuilder{desc: &Descriptor{Name: name, Type: TypeBool}}
}

// Nullable allows the column to hold NULL.
func (b *BoolBuilder) Nullable() *BoolBuilder { b.desc.nullable(); return b }

// Default sets the column default.
func (b *BoolBuilder) Default(v bool) *BoolBuilder { b.desc.Default = v; return b }

// Descriptor implements Field.
func (b *BoolBuilder) Descriptor() *Descriptor { return b.desc }

// Name returns the column name.
func (b *BoolBuilder) Name() string { return b.desc.Name }

// EQ returns a predicate that checks if the field equals the given value.
func (b *BoolBuilder) EQ(v bool) *predicate.Condition { return predicate.EQ(b.desc.Name, v) }

// NEQ returns a predicate that checks if the field does not equal the given value.
func (b *BoolBuilder) NEQ(v bool) *predicate.Condition { return predicate.NEQ(b.desc.Name, v) }

// IsNull returns a predicate that checks if the field is NULL.
func (b *BoolBuilder) IsNull() *predicate.Condition { return predicate.IsNull(b.desc.Name) }

// NotNull returns a predicate that checks if the field is not NULL.
func (b *BoolBuilder) NotNull() *predicate.Condition { return predicate.NotNull(b.desc.Name) }

// TimeBuilder declares a timestamp column.
type TimeBuilder struct{ desc *Descriptor }

// Time returns a new timestamp field with the given name.
func Time(name string) *TimeBuilder {
	return &TimeBuilder{desc: &Descriptor{Name: name, Type: TypeTime}}
}

// Nullable allows the column to hold NULL.
func (b *TimeBuilder) Nullable() *TimeBuilder { b.desc.nullable(); return b }

// Default sets a computed default evaluated on insert, e.g. Default(time.Now).
func (b *TimeBuilder) Default(fn func() time.Time) *TimeBuilder {
	b.desc.DefaultFunc = func() any { return fn() }
	return b
}

// Descriptor implements Field.
func (b *TimeBuilder) Descriptor() *Descriptor { return b.desc }

// Name returns the column name.
func (b *TimeBuilder) Name() string { return b.desc.Name }

// EQ returns a predicate that checks if the field equals the given value.
func (b *TimeBuilder) EQ(v time.Time) *predicate.Condition { return predicate.EQ(b.desc.Name, v) }

// NEQ returns a predicate that checks if the field does not equal the given value.
func (b *TimeBuilder) NEQ(v time.Time) *predicate.Condition { return predicate.NEQ(b.desc.Name, v) }

// Before returns a predicate that checks if the field is before the given time.
func (b *TimeBuilder) Before(v time.Time) *predicate.Condition { return predicate.LT(b.desc.Name, v) }

// After returns a predicate that checks if the field is after the given time.
func (b *TimeBuilder) After(v time.Time) *predicate.Condition { return predicate.GT(b.desc.Name, v) }

// IsNull returns a predicate that checks if the field is NULL.
func (b *TimeBuilder) IsNull() *predicate.Condition { return predicate.IsNull(b.desc.Name) }

// NotNull returns a predicate that checks if the field is not NULL.
func (b *TimeBuilder) NotNull() *predicate.Condition { return predicate.NotNull(b.desc.Name) }

// UUIDBuilder declares a UUID column, stored in its canonical text form.
type UUIDBuilder struct{ desc *Descriptor }

// UUID returns a new UUID field with the given name.
func UUID(name string) *UUIDBuilder {
	return &UUIDBuilder{desc: &Descriptor{Name: name, Type: TypeUUID}}
}

// PrimaryKey marks the field as the model's primary key.
func (b *UUIDBuilder) PrimaryKey() *UUIDBuilder { b.desc.primaryKey(); return b }

// Nullable allows the column to hold NULL.
func (b *UUIDBuilder) Nullable() *UUIDBuilder { b.desc.nullable(); return b }

// Unique adds a UNIQUE constraint.
func (b *UUIDBuilder) Unique() *UUIDBuilder { b.desc.Unique = true; return b }

// Default sets a computed default evaluated on insert, e.g. Default(uuid.New).
func (b *UUIDBuilder) Default(fn func() uuid.UUID) *UUIDBuilder {
	b.desc.DefaultFunc = func() any { return fn().String() }
	return b
}

// Descriptor implements Field.
func (b *UUIDBuilder) Descriptor() *Descriptor { return b.desc }

// Name returns the column name.
func (b *UUIDBuilder) Name() string { return b.desc.Name }

// EQ returns a predicate that checks if the field equals the given value.
func (b *UUIDBuilder) EQ(v uuid.UUID) *predicate.Condition {
	return predicate.EQ(b.desc.Name, v.String())
}

// NEQ returns a predicate that checks if the field does not equal the given value.
func (b *UUIDBuilder) NEQ(v uuid.UUID) *predicate.Condition {
	return predicate.NEQ(b.desc.Name, v.String())
}

// In returns a predicate that checks if the field value is in the given list.
func (b *UUIDBuilder) In(vs ...uuid.UUID) *predicate.Condition {
	values := make([]any, len(vs))
	for i := range vs {
		values[i] = vs[i].String()
	}
	return predicate.In(b.desc.Name, values...)
}

// IsNull returns a predicate that checks if the field is NULL.
func (b *UUIDBuilder) IsNull() *predicate.Condition { return predicate.IsNull(b.desc.Name) }

// NotNull returns a predicate that checks if the field is not NULL.
func (b *UUIDBuilder) NotNull() *predicate.Condition { return predicate.NotNull(b.desc.Name) }

// BytesBuilder declares a binary blob column.
type BytesBuilder struct{ desc *Descriptor }

// Bytes returns a new binary field with the given name.
func Bytes(name string) *BytesBuilder {
	return &BytesBuilder{desc: &Descriptor{Name: name, Type: TypeBytes}}
}

// Nullable allows the column to hold NULL.
func (b *BytesBuilder) Nullable() *BytesBuilder { b.desc.nullable(); return b }

// Descriptor implements Field.
func (b *BytesBuilder) Descriptor() *Descriptor { return b.desc }

// Name returns the column name.
func (b *BytesBuilder) Name() string { return b.desc.Name }

// EQ returns a predicate that checks if the field equals the given value.
func (b *BytesBuilder) EQ(v []byte) *predicate.Condition { return predicate.EQ(b.desc.Name, v) }

// IsNull returns a predicate that checks if the field is NULL.
func (b *BytesBuilder) IsNull() *predicate.Condition { return predicate.IsNull(b.desc.Name) }

// NotNull returns a predicate that checks if the field is not NULL.
func (b *BytesBuilder) NotNull() *predicate.Condition { return predicate.NotNull(b.desc.Name) }

func anySlice[T any](vs []T) []any {
	out := make([]any, len(vs))
	for i := range vs {
		out[i] = vs[i]
	}
	return out
}
