package strata

import (
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/syssam/strata/schema/field"
)

// State is an instance's lifecycle state.
type State uint8

const (
	// Transient marks an instance that was constructed directly and never
	// persisted.
	Transient State = iota
	// Persistent marks an instance backed by a row with a known primary key.
	Persistent
	// Deleted marks an instance whose row has been removed by a committed
	// flush.
	Deleted
)

var stateNames = [...]string{
	Transient:  "transient",
	Persistent: "persistent",
	Deleted:    "deleted",
}

// String returns the name of the state.
func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", s)
}

// Instance is one row's worth of field values for a model, together with
// its lifecycle state. Instances loaded or added through a Session are
// owned by it; an instance not attached to any session is a detached,
// read-only snapshot.
type Instance struct {
	model    *Model
	values   map[string]any
	snapshot map[string]any
	state    State
	session  *Session
}

// Model returns the instance's model.
func (i *Instance) Model() *Model { return i.model }

// State returns the lifecycle state.
func (i *Instance) State() State { return i.state }

// Get returns the current value of the named field, and whether the field
// has a value set.
func (i *Instance) Get(name string) (any, bool) {
	v, ok := i.values[name]
	return v, ok
}

// PrimaryKey returns the instance's primary key value, if set.
func (i *Instance) PrimaryKey() (any, bool) {
	return i.Get(i.model.pk.Name)
}

// Set assigns a field value. Setting an undeclared field is a SchemaError;
// writing to a deleted instance or to a detached persistent snapshot is a
// StateError. Integer and float widths are normalized so that values set by
// callers compare equal to values scanned from the backend.
func (i *Instance) Set(name string, value any) error {
	if _, ok := i.model.index[name]; !ok {
		return NewSchemaError(i.model.label, fmt.Errorf("unknown field %q", name))
	}
	switch {
	case i.state == Deleted:
		return NewStateError("cannot modify deleted %s instance", i.model.label)
	case i.state == Persistent && i.session == nil:
		return NewStateError("cannot modify detached %s instance", i.model.label)
	}
	if v, ok := value.(uint64); ok && v > math.MaxInt64 {
		return NewSchemaError(i.model.label, fmt.Errorf("value %d for field %q overflows int64", v, name))
	}
	i.values[name] = normalize(value)
	return nil
}

// String returns the value of a string field, or "" if unset or NULL.
func (i *Instance) String(name string) string {
	v, _ := i.values[name].(string)
	return v
}

// Int returns the value of an integer field, or 0 if unset or NULL.
func (i *Instance) Int(name string) int64 {
	v, _ := i.values[name].(int64)
	return v
}

// Float returns the value of a float field, or 0 if unset or NULL.
func (i *Instance) Float(name string) float64 {
	v, _ := i.values[name].(float64)
	return v
}

// Bool returns the value of a boolean field, or false if unset or NULL.
func (i *Instance) Bool(name string) bool {
	v, _ := i.values[name].(bool)
	return v
}

// Time returns the value of a timestamp field, or the zero time if unset
// or NULL.
func (i *Instance) Time(name string) time.Time {
	v, _ := i.values[name].(time.Time)
	return v
}

// IsNull reports whether the named field currently holds no value.
func (i *Instance) IsNull(name string) bool {
	v, ok := i.values[name]
	return !ok || v == nil
}

// takeSnapshot captures the current field values for compare-at-flush
// dirty checking.
func (i *Instance) takeSnapshot() {
	snap := make(map[string]any, len(i.values))
	for k, v := range i.values {
		snap[k] = v
	}
	i.snapshot = snap
}

// changed returns the columns whose current value differs from the last
// snapshot, with their new values, in declared column order.
func (i *Instance) changed() (columns []string, values []any) {
	for _, f := range i.model.fields {
		cur, curOK := i.values[f.Name]
		old, oldOK := i.snapshot[f.Name]
		if curOK == oldOK && equalValue(cur, old) {
			continue
		}
		columns = append(columns, f.Name)
		values = append(values, cur)
	}
	return columns, values
}

func equalValue(a, b any) bool {
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		return ok && ta.Equal(tb)
	}
	if ba, ok := a.([]byte); ok {
		bb, ok := b.([]byte)
		return ok && string(ba) == string(bb)
	}
	return a == b
}

// normalize maps caller-supplied values onto the representations produced
// by row scanning, so snapshot comparison does not report spurious changes.
func normalize(v any) any {
	switch v := v.(type) {
	case int:
		return int64(v)
	case int8:
		return int64(v)
	case int16:
		return int64(v)
	case int32:
		return int64(v)
	case uint:
		return int64(v)
	case uint8:
		return int64(v)
	case uint16:
		return int64(v)
	case uint32:
		return int64(v)
	case uint64:
		if v > math.MaxInt64 {
			// Out of int64 range; left as-is for the driver to reject
			// rather than silently flipping the sign.
			return v
		}
		return int64(v)
	case float32:
		return float64(v)
	default:
		return v
	}
}

// scanDest returns a scan destination for the field type.
func scanDest(t field.Type) any {
	switch t {
	case field.TypeInt:
		return new(sql.NullInt64)
	case field.TypeFloat:
		return new(sql.NullFloat64)
	case field.TypeBool:
		return new(sql.NullBool)
	case field.TypeTime:
		return new(sql.NullTime)
	case field.TypeBytes:
		return new([]byte)
	default: // string, text, uuid
		return new(sql.NullString)
	}
}

// scanValue unwraps a scan destination into the instance value
// representation; NULL becomes an absent value.
func scanValue(dest any) (any, bool) {
	switch d := dest.(type) {
	case *sql.NullInt64:
		if !d.Valid {
			return nil, false
		}
		return d.Int64, true
	case *sql.NullFloat64:
		if !d.Valid {
			return nil, false
		}
		return d.Float64, true
	case *sql.NullBool:
		if !d.Valid {
			return nil, false
		}
		return d.Bool, true
	case *sql.NullTime:
		if !d.Valid {
			return nil, false
		}
		return d.Time, true
	case *[]byte:
		if *d == nil {
			return nil, false
		}
		return *d, true
	case *sql.NullString:
		if !d.Valid {
			return nil, false
		}
		return d.String, true
	}
	return nil, false
}

// hydrate constructs a persistent instance from one scanned row, using the
// model's declared column order.
func (m *Model) hydrate(dests []any) *Instance {
	inst := m.New()
	for idx, f := range m.fields {
		if v, ok := scanValue(dests[idx]); ok {
			inst.values[f.Name] = v
		}
	}
	inst.state = Persistent
	inst.takeSnapshot()
	return inst
}

// refresh overwrites the instance's values and snapshot from a freshly
// scanned row.
func (i *Instance) refresh(dests []any) {
	clear(i.values)
	for idx, f := range i.model.fields {
		if v, ok := scanValue(dests[idx]); ok {
			i.values[f.Name] = v
		}
	}
	i.takeSnapshot()
}
