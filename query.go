package strata

import (
	"context"
	"errors"
	"fmt"

	"github.com/syssam/strata/dialect"
	"github.com/syssam/strata/predicate"
)

// Direction is a sort direction for OrderBy.
type Direction uint8

const (
	// Asc sorts ascending. It is the default.
	Asc Direction = iota
	// Desc sorts descending.
	Desc
)

// QueryBuilder accumulates a SELECT intent over one model: condition tree,
// ordering, and pagination. Chaining never touches the connection;
// compilation and execution happen only at a terminal call (All, First,
// Get, Count, Exist), and every terminal call re-executes the query.
//
// Builders are obtained from Session.Query and hydrate their results
// through the session's identity map.
type QueryBuilder struct {
	sess   *Session
	model  *Model
	where  *predicate.Condition
	orders []dialect.Order
	limit  int
	offset int
	err    error // first chain error, surfaced at the terminal call
}

// Where AND-combines the given conditions with any accumulated ones, in
// argument order. Column references are validated at the terminal call,
// before any statement reaches the connection.
func (q *QueryBuilder) Where(conds ...*predicate.Condition) *QueryBuilder {
	q.where = predicate.And(append([]*predicate.Condition{q.where}, conds...)...)
	return q
}

// Filter is equality sugar over Where: it takes alternating field names and
// values and AND-combines one equality leaf per pair, in call order, so the
// generated SQL is deterministic.
//
//	q.Filter("age", 30, "name", "Alice")
func (q *QueryBuilder) Filter(kv ...any) *QueryBuilder {
	if len(kv)%2 != 0 {
		q.fail(NewQueryError(q.model.label, "filter", errors.New("odd number of filter arguments")))
		return q
	}
	for i := 0; i < len(kv); i += 2 {
		name, ok := kv[i].(string)
		if !ok {
			q.fail(NewQueryError(q.model.label, "filter", fmt.Errorf("filter key %v is not a string", kv[i])))
			return q
		}
		q.where = predicate.And(q.where, predicate.EQ(name, normalize(kv[i+1])))
	}
	return q
}

// OrderBy appends an ordering term. Direction defaults to ascending.
func (q *QueryBuilder) OrderBy(column string, dir ...Direction) *QueryBuilder {
	desc := len(dir) > 0 && dir[0] == Desc
	q.orders = append(q.orders, dialect.Order{Column: column, Desc: desc})
	return q
}

// Limit restricts the number of returned rows.
func (q *QueryBuilder) Limit(n int) *QueryBuilder {
	q.limit = n
	return q
}

// Offset skips the first n rows.
func (q *QueryBuilder) Offset(n int) *QueryBuilder {
	q.offset = n
	return q
}

func (q *QueryBuilder) fail(err error) {
	if q.err == nil {
		q.err = err
	}
}

// validate checks the accumulated state against the model before anything
// is compiled or executed.
func (q *QueryBuilder) validate(where *predicate.Condition) error {
	if q.err != nil {
		return q.err
	}
	if q.sess.closed {
		return NewStateError("session is closed")
	}
	if where != nil {
		err := where.Walk(func(leaf *predicate.Condition) error {
			if _, ok := q.model.Column(leaf.Field()); !ok {
				return fmt.Errorf("unknown field %q", leaf.Field())
			}
			return nil
		})
		if err != nil {
			return NewQueryError(q.model.label, "select", err)
		}
	}
	for _, o := range q.orders {
		if _, ok := q.model.Column(o.Column); !ok {
			return NewQueryError(q.model.label, "order_by", fmt.Errorf("unknown field %q", o.Column))
		}
	}
	return nil
}

// run compiles and executes the SELECT, hydrating up to limit instances
// (limit < 0 means all). Hydrated rows are deduplicated through the
// session's identity map.
func (q *QueryBuilder) run(ctx context.Context, where *predicate.Condition, limit int) ([]*Instance, error) {
	if err := q.validate(where); err != nil {
		return nil, err
	}
	spec := dialect.SelectSpec{
		Table:   q.model,
		Where:   where,
		OrderBy: q.orders,
		Limit:   limit,
		Offset:  q.offset,
	}
	stmt, args, err := q.sess.conn.Dialect().Select(spec)
	if err != nil {
		return nil, NewQueryError(q.model.label, "select", err)
	}
	rows, err := q.sess.conn.Query(ctx, stmt, args...)
	if err != nil {
		return nil, NewConnectionError("select "+q.model.table, err)
	}
	defer rows.Close()
	var out []*Instance
	for rows.Next() {
		dests := make([]any, len(q.model.fields))
		for i, f := range q.model.fields {
			dests[i] = scanDest(f.Type)
		}
		if err := rows.Scan(dests...); err != nil {
			return nil, NewConnectionError("select "+q.model.table, err)
		}
		out = append(out, q.sess.absorb(q.model, dests))
	}
	if err := rows.Err(); err != nil {
		return nil, NewConnectionError("select "+q.model.table, err)
	}
	return out, nil
}

// All executes the query and returns every matching instance. Each call
// re-executes; results are never cached.
func (q *QueryBuilder) All(ctx context.Context) ([]*Instance, error) {
	return q.run(ctx, q.where, q.limit)
}

// First executes the query with an implicit limit of one and returns the
// first matching instance, or nil if nothing matches. Absence is not an
// error. Row order is backend-defined unless OrderBy was called.
func (q *QueryBuilder) First(ctx context.Context) (*Instance, error) {
	matches, err := q.run(ctx, q.where, 1)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, nil
	}
	return matches[0], nil
}

// Get returns the instance whose primary key equals pk, or nil if no such
// row exists. It is shorthand for filtering on the primary key field and
// calling First.
func (q *QueryBuilder) Get(ctx context.Context, pk any) (*Instance, error) {
	where := predicate.And(q.where, predicate.EQ(q.model.pk.Name, normalize(pk)))
	matches, err := q.run(ctx, where, 1)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, nil
	}
	return matches[0], nil
}

// Count returns the number of rows matching the accumulated conditions,
// ignoring ordering and pagination.
func (q *QueryBuilder) Count(ctx context.Context) (int64, error) {
	if err := q.validate(q.where); err != nil {
		return 0, err
	}
	spec := dialect.SelectSpec{
		Table: q.model,
		Where: q.where,
		Count: true,
		Limit: -1, Offset: -1,
	}
	stmt, args, err := q.sess.conn.Dialect().Select(spec)
	if err != nil {
		return 0, NewQueryError(q.model.label, "count", err)
	}
	rows, err := q.sess.conn.Query(ctx, stmt, args...)
	if err != nil {
		return 0, NewConnectionError("count "+q.model.table, err)
	}
	defer rows.Close()
	var n int64
	if rows.Next() {
		if err := rows.Scan(&n); err != nil {
			return 0, NewConnectionError("count "+q.model.table, err)
		}
	}
	if err := rows.Err(); err != nil {
		return 0, NewConnectionError("count "+q.model.table, err)
	}
	return n, nil
}

// Exist reports whether any row matches the accumulated conditions.
func (q *QueryBuilder) Exist(ctx context.Context) (bool, error) {
	first, err := q.First(ctx)
	if err != nil {
		return false, err
	}
	return first != nil, nil
}

// Paginate executes the query one page at a time and returns the page's
// instances together with the total number of matching rows. Pages are
// 1-based; ordering and accumulated conditions apply, any prior Limit and
// Offset are superseded by the page window.
func (q *QueryBuilder) Paginate(ctx context.Context, page, perPage int) ([]*Instance, int64, error) {
	if page < 1 || perPage < 1 {
		return nil, 0, NewQueryError(q.model.label, "paginate", fmt.Errorf("invalid page %d with %d per page", page, perPage))
	}
	total, err := q.Count(ctx)
	if err != nil {
		return nil, 0, err
	}
	items, err := q.Offset((page - 1) * perPage).Limit(perPage).All(ctx)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// Update writes the given alternating field/value pairs to every row
// matching the accumulated conditions in one statement, bypassing the
// session's pending sets, and returns the number of rows updated. Affected
// rows cannot be identified from here, so every resident instance of the
// model is evicted from the identity map and detached; re-query to observe
// the new values.
//
//	n, err := s.Query(User).Where(predicate.LT("age", 18)).Update(ctx, "active", false)
func (q *QueryBuilder) Update(ctx context.Context, kv ...any) (int64, error) {
	if err := q.validate(q.where); err != nil {
		return 0, err
	}
	if len(kv) == 0 {
		return 0, NewQueryError(q.model.label, "update", errors.New("no fields to update"))
	}
	if len(kv)%2 != 0 {
		return 0, NewQueryError(q.model.label, "update", errors.New("odd number of update arguments"))
	}
	columns := make([]string, 0, len(kv)/2)
	values := make([]any, 0, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		name, ok := kv[i].(string)
		if !ok {
			return 0, NewQueryError(q.model.label, "update", fmt.Errorf("update key %v is not a string", kv[i]))
		}
		if _, ok := q.model.Column(name); !ok {
			return 0, NewQueryError(q.model.label, "update", fmt.Errorf("unknown field %q", name))
		}
		columns = append(columns, name)
		values = append(values, normalize(kv[i+1]))
	}
	stmt, args, err := q.sess.conn.Dialect().UpdateWhere(q.model, columns, values, q.where)
	if err != nil {
		return 0, NewQueryError(q.model.label, "update", err)
	}
	res, err := q.sess.conn.Exec(ctx, stmt, args...)
	if err != nil {
		return 0, classifyExecError(q.model.table, "update", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, NewConnectionError("update "+q.model.table, err)
	}
	q.sess.evictModel(q.model)
	return n, nil
}

// Delete removes every row matching the accumulated conditions in one
// statement, bypassing the session's pending sets, and returns the number
// of rows deleted. Like Update, it evicts and detaches all resident
// instances of the model.
func (q *QueryBuilder) Delete(ctx context.Context) (int64, error) {
	if err := q.validate(q.where); err != nil {
		return 0, err
	}
	stmt, args, err := q.sess.conn.Dialect().DeleteWhere(q.model, q.where)
	if err != nil {
		return 0, NewQueryError(q.model.label, "delete", err)
	}
	res, err := q.sess.conn.Exec(ctx, stmt, args...)
	if err != nil {
		return 0, classifyExecError(q.model.table, "delete", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, NewConnectionError("delete "+q.model.table, err)
	}
	q.sess.evictModel(q.model)
	return n, nil
}
