package strata

import (
	"errors"
	"fmt"
	"strings"
)

// SchemaError reports an invalid model or field declaration. It is raised
// at model-definition time or when creating the table, never during query
// execution.
type SchemaError struct {
	Model string // entity label, e.g. "User"
	Err   error
}

// Error returns the error string.
func (e *SchemaError) Error() string {
	if e.Model != "" {
		return fmt.Sprintf("strata: invalid schema for %s: %v", e.Model, e.Err)
	}
	return fmt.Sprintf("strata: invalid schema: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *SchemaError) Unwrap() error { return e.Err }

// NewSchemaError returns a new SchemaError for the given model.
func NewSchemaError(model string, err error) *SchemaError {
	return &SchemaError{Model: model, Err: err}
}

// IsSchemaError returns true if the error is a SchemaError.
func IsSchemaError(err error) bool {
	if err == nil {
		return false
	}
	var e *SchemaError
	return errors.As(err, &e)
}

// QueryError reports a malformed query: an unknown field reference or an
// invalid builder chain. It is detected at compile time, before any
// statement reaches the connection.
type QueryError struct {
	Model string // entity label being queried
	Op    string // operation, e.g. "select", "filter"
	Err   error
}

// Error returns the error string.
func (e *QueryError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("strata: querying %s (%s): %v", e.Model, e.Op, e.Err)
	}
	return fmt.Sprintf("strata: querying %s: %v", e.Model, e.Err)
}

// Unwrap returns the underlying error.
func (e *QueryError) Unwrap() error { return e.Err }

// NewQueryError returns a new QueryError.
func NewQueryError(model, op string, err error) *QueryError {
	return &QueryError{Model: model, Op: op, Err: err}
}

// IsQueryError returns true if the error is a QueryError.
func IsQueryError(err error) bool {
	if err == nil {
		return false
	}
	var e *QueryError
	return errors.As(err, &e)
}

// IntegrityError reports a constraint violation (unique, not-null, primary
// key) surfaced by the backend at flush time. It carries the logical intent
// of the failing statement, never the compiled SQL with bound values.
type IntegrityError struct {
	Table string // table being mutated
	Op    string // operation, e.g. "insert", "update", "delete"
	Err   error
}

// Error returns the error string.
func (e *IntegrityError) Error() string {
	return fmt.Sprintf("strata: %s %s: constraint failed: %v", e.Op, e.Table, e.Err)
}

// Unwrap returns the underlying error.
func (e *IntegrityError) Unwrap() error { return e.Err }

// NewIntegrityError returns a new IntegrityError.
func NewIntegrityError(table, op string, err error) *IntegrityError {
	return &IntegrityError{Table: table, Op: op, Err: err}
}

// IsIntegrityError returns true if the error is an IntegrityError.
func IsIntegrityError(err error) bool {
	if err == nil {
		return false
	}
	var e *IntegrityError
	return errors.As(err, &e)
}

// StateError reports misuse of the session or transaction state machine:
// adding a non-transient instance, deleting a detached one, committing on a
// closed session, double-begin on a connection.
type StateError struct {
	Err error
}

// Error returns the error string.
func (e *StateError) Error() string {
	return fmt.Sprintf("strata: invalid state: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *StateError) Unwrap() error { return e.Err }

// NewStateError returns a new StateError with the given message.
func NewStateError(format string, args ...any) *StateError {
	return &StateError{Err: fmt.Errorf(format, args...)}
}

// IsStateError returns true if the error is a StateError.
func IsStateError(err error) bool {
	if err == nil {
		return false
	}
	var e *StateError
	return errors.As(err, &e)
}

// ConnectionError reports an I/O failure talking to the backend. Like
// IntegrityError it carries the statement's logical intent only.
type ConnectionError struct {
	Op  string // operation, e.g. "insert users", "select users", "begin"
	Err error
}

// Error returns the error string.
func (e *ConnectionError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("strata: connection failed (%s): %v", e.Op, e.Err)
	}
	return fmt.Sprintf("strata: connection failed: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *ConnectionError) Unwrap() error { return e.Err }

// NewConnectionError returns a new ConnectionError.
func NewConnectionError(op string, err error) *ConnectionError {
	return &ConnectionError{Op: op, Err: err}
}

// IsConnectionError returns true if the error is a ConnectionError.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	var e *ConnectionError
	return errors.As(err, &e)
}

// constraintMarkers are substrings the built-in backends use in constraint
// violation messages. database/sql exposes no portable error class for
// them, so flush-time errors are classified by message.
var constraintMarkers = []string{
	"constraint",     // sqlite: "UNIQUE constraint failed", "NOT NULL constraint failed"
	"violates",       // postgres: "violates unique constraint"
	"duplicate",      // postgres/mysql duplicate key messages
	"cannot be null", // mysql: "Column 'x' cannot be null"
}

func isConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range constraintMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// classifyExecError turns a flush-time execution error into the taxonomy:
// constraint violations become IntegrityError, everything else
// ConnectionError.
func classifyExecError(table, op string, err error) error {
	if isConstraintViolation(err) {
		return NewIntegrityError(table, op, err)
	}
	return NewConnectionError(op+" "+table, err)
}
