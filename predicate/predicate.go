// Package predicate provides the condition tree consumed by the query
// builder and by update/delete statement compilation.
//
// A Condition is a persistent (non-destructive) binary tree: leaves hold a
// (column, operator, value) triple and inner nodes combine two subtrees with
// AND or OR. Combinators never mutate their operands, so a subtree can be
// reused in several conditions without aliasing surprises:
//
//	adult := predicate.GTE("age", 18)
//	named := predicate.EQ("name", "Alice")
//	q1 := predicate.And(adult, named)
//	q2 := predicate.Or(adult, predicate.EQ("admin", true))
package predicate

import (
	"fmt"
	"strings"
)

// Op is a comparison or logical operator held by a Condition node.
type Op uint8

// Comparison operators for leaf nodes, logical operators for inner nodes.
const (
	OpEQ Op = iota // =
	OpNEQ
	OpLT
	OpLTE
	OpGT
	OpGTE
	OpIn
	OpNotIn
	OpIsNull
	OpNotNull
	OpAnd
	OpOr
)

var opText = [...]string{
	OpEQ:      "=",
	OpNEQ:     "!=",
	OpLT:      "<",
	OpLTE:     "<=",
	OpGT:      ">",
	OpGTE:     ">=",
	OpIn:      "IN",
	OpNotIn:   "NOT IN",
	OpIsNull:  "IS NULL",
	OpNotNull: "IS NOT NULL",
	OpAnd:     "AND",
	OpOr:      "OR",
}

// String returns the SQL spelling of the operator.
func (op Op) String() string {
	if int(op) < len(opText) {
		return opText[op]
	}
	return fmt.Sprintf("Op(%d)", op)
}

// Niladic reports whether the operator takes no right-hand value (IS NULL
// and IS NOT NULL).
func (op Op) Niladic() bool { return op == OpIsNull || op == OpNotNull }

// Variadic reports whether the operator compares against a list of values.
func (op Op) Variadic() bool { return op == OpIn || op == OpNotIn }

// Condition is a node in a predicate tree. It is either a leaf comparing a
// column against a value, or an inner AND/OR node with two children.
// Conditions are immutable after construction.
type Condition struct {
	op     Op
	field  string
	value  any
	values []any
	left   *Condition
	right  *Condition
}

// Op returns the node's operator.
func (c *Condition) Op() Op { return c.op }

// Field returns the column name of a leaf node, or "" for AND/OR nodes.
func (c *Condition) Field() string { return c.field }

// Value returns the compared value of a binary leaf node.
func (c *Condition) Value() any { return c.value }

// Values returns the value list of an IN/NOT IN leaf node.
func (c *Condition) Values() []any { return c.values }

// Left returns the left child of an AND/OR node, or nil for leaves.
func (c *Condition) Left() *Condition { return c.left }

// Right returns the right child of an AND/OR node, or nil for leaves.
func (c *Condition) Right() *Condition { return c.right }

// Leaf reports whether the node is a comparison leaf.
func (c *Condition) Leaf() bool { return c.left == nil }

func leaf(op Op, field string, value any) *Condition {
	return &Condition{op: op, field: field, value: value}
}

// EQ returns a "field = value" leaf.
func EQ(field string, value any) *Condition { return leaf(OpEQ, field, value) }

// NEQ returns a "field != value" leaf.
func NEQ(field string, value any) *Condition { return leaf(OpNEQ, field, value) }

// LT returns a "field < value" leaf.
func LT(field string, value any) *Condition { return leaf(OpLT, field, value) }

// LTE returns a "field <= value" leaf.
func LTE(field string, value any) *Condition { return leaf(OpLTE, field, value) }

// GT returns a "field > value" leaf.
func GT(field string, value any) *Condition { return leaf(OpGT, field, value) }

// GTE returns a "field >= value" leaf.
func GTE(field string, value any) *Condition { return leaf(OpGTE, field, value) }

// In returns a "field IN (values...)" leaf.
func In(field string, values ...any) *Condition {
	return &Condition{op: OpIn, field: field, values: values}
}

// NotIn returns a "field NOT IN (values...)" leaf.
func NotIn(field string, values ...any) *Condition {
	return &Condition{op: OpNotIn, field: field, values: values}
}

// IsNull returns a "field IS NULL" leaf.
func IsNull(field string) *Condition { return &Condition{op: OpIsNull, field: field} }

// NotNull returns a "field IS NOT NULL" leaf.
func NotNull(field string) *Condition { return &Condition{op: OpNotNull, field: field} }

// And combines conditions left-associatively with AND. Nil operands are
// dropped; And() of fewer than two non-nil conditions returns the condition
// itself (or nil).
func And(cs ...*Condition) *Condition { return combine(OpAnd, cs) }

// Or combines conditions left-associatively with OR.
func Or(cs ...*Condition) *Condition { return combine(OpOr, cs) }

func combine(op Op, cs []*Condition) *Condition {
	var root *Condition
	for _, c := range cs {
		switch {
		case c == nil:
		case root == nil:
			root = c
		default:
			root = &Condition{op: op, left: root, right: c}
		}
	}
	return root
}

// And returns a new tree combining c and other with AND. The receiver and
// the argument are left untouched.
func (c *Condition) And(other *Condition) *Condition { return And(c, other) }

// Or returns a new tree combining c and other with OR.
func (c *Condition) Or(other *Condition) *Condition { return Or(c, other) }

// Walk calls fn for every leaf of the tree in left-to-right order. It is
// used by compile-time validation of column references.
func (c *Condition) Walk(fn func(leaf *Condition) error) error {
	if c == nil {
		return nil
	}
	if c.Leaf() {
		return fn(c)
	}
	if err := c.left.Walk(fn); err != nil {
		return err
	}
	return c.right.Walk(fn)
}

// String renders the tree for debugging. Values are printed inline; the
// dialect compilers never use this form.
func (c *Condition) String() string {
	if c == nil {
		return "<nil>"
	}
	var sb strings.Builder
	c.render(&sb)
	return sb.String()
}

func (c *Condition) render(sb *strings.Builder) {
	if !c.Leaf() {
		sb.WriteByte('(')
		c.left.render(sb)
		fmt.Fprintf(sb, " %s ", c.op)
		c.right.render(sb)
		sb.WriteByte(')')
		return
	}
	switch {
	case c.op.Niladic():
		fmt.Fprintf(sb, "%s %s", c.field, c.op)
	case c.op.Variadic():
		fmt.Fprintf(sb, "%s %s %v", c.field, c.op, c.values)
	default:
		fmt.Fprintf(sb, "%s %s %v", c.field, c.op, c.value)
	}
}
