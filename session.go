package strata

import (
	"context"
	"errors"
	"fmt"

	"github.com/syssam/strata/dialect"
	sqldrv "github.com/syssam/strata/dialect/sql"
)

// identityKey identifies one row within a session: two instances are the
// same record iff their model and primary key value match.
type identityKey struct {
	model *Model
	pk    any
}

// Session is a unit of work: it tracks every instance added, mutated or
// deleted since the last flush and applies them atomically in one
// transaction. Its identity map guarantees at most one live instance per
// (model, primary key), so re-querying a resident row returns the same
// instance with refreshed values rather than a duplicate.
//
// A Session owns exactly one connection for its lifetime and is not safe
// for concurrent use; open one session per thread of control. Two sessions
// loading the same row hold independent instances.
type Session struct {
	conn     *sqldrv.Conn
	identity map[identityKey]*Instance
	loaded   []*Instance // persistent instances in attach order
	added    []*Instance // pending-new in Add order
	removed  []*Instance // pending-deleted in Delete order
	closed   bool
}

// NewSession returns a session bound to the connection. The session owns
// the connection: Close releases it.
func NewSession(conn *sqldrv.Conn) *Session {
	return &Session{
		conn:     conn,
		identity: make(map[identityKey]*Instance),
	}
}

// Conn returns the session's connection.
func (s *Session) Conn() *sqldrv.Conn { return s.conn }

// Query returns a fresh query builder for the model, bound to this session
// so that hydrated rows are deduplicated through its identity map.
func (s *Session) Query(m *Model) *QueryBuilder {
	return &QueryBuilder{sess: s, model: m, limit: -1, offset: -1}
}

// Add registers a transient instance for insertion at the next commit.
// Adding a persistent or deleted instance, or one owned by another
// session, is a StateError. If the caller supplied a primary key the
// instance enters the identity map immediately; otherwise it does so once
// the generated key is known after commit.
func (s *Session) Add(inst *Instance) error {
	if s.closed {
		return NewStateError("session is closed")
	}
	if inst.state != Transient {
		return NewStateError("cannot add %s %s instance", inst.state, inst.model.label)
	}
	if inst.session != nil && inst.session != s {
		return NewStateError("%s instance belongs to another session", inst.model.label)
	}
	for _, pending := range s.added {
		if pending == inst {
			return nil
		}
	}
	inst.session = s
	s.added = append(s.added, inst)
	if pk, ok := inst.PrimaryKey(); ok && pk != nil {
		s.identity[identityKey{inst.model, pk}] = inst
	}
	return nil
}

// Delete marks a persistent, session-attached instance for removal at the
// next commit. Until then queries for its identity keep returning the
// tombstoned instance.
func (s *Session) Delete(inst *Instance) error {
	if s.closed {
		return NewStateError("session is closed")
	}
	if inst.state != Persistent {
		return NewStateError("cannot delete %s %s instance", inst.state, inst.model.label)
	}
	if inst.session != s {
		return NewStateError("%s instance is not attached to this session", inst.model.label)
	}
	if s.pendingDelete(inst) {
		return nil
	}
	s.removed = append(s.removed, inst)
	return nil
}

func (s *Session) pendingDelete(inst *Instance) bool {
	for _, r := range s.removed {
		if r == inst {
			return true
		}
	}
	return false
}

type dirtyEntry struct {
	inst    *Instance
	columns []string
	values  []any
}

// collectDirty compares every loaded instance against its last snapshot,
// in attach order, skipping tombstones. Dirty detection happens here, at
// flush time, rather than by instrumenting every Set.
func (s *Session) collectDirty() []dirtyEntry {
	var dirty []dirtyEntry
	for _, inst := range s.loaded {
		if s.pendingDelete(inst) {
			continue
		}
		cols, vals := inst.changed()
		if len(cols) > 0 {
			dirty = append(dirty, dirtyEntry{inst: inst, columns: cols, values: vals})
		}
	}
	return dirty
}

// HasPending reports whether the session has uncommitted additions,
// modifications or deletions.
func (s *Session) HasPending() bool {
	return len(s.added) > 0 || len(s.removed) > 0 || len(s.collectDirty()) > 0
}

// Commit flushes all pending changes in one transaction: inserts in Add
// order, then updates in attach order for instances whose values differ
// from their snapshot, then deletes in Delete order. Generated primary
// keys are captured and installed into the identity map. On success all
// pending sets are cleared and snapshots refreshed; if any statement
// fails the transaction is rolled back and every pending set is left
// untouched so the caller may retry or abandon.
func (s *Session) Commit(ctx context.Context) error {
	if s.closed {
		return NewStateError("session is closed")
	}
	dirty := s.collectDirty()
	if len(s.added) == 0 && len(dirty) == 0 && len(s.removed) == 0 {
		return nil
	}
	if err := s.conn.Begin(ctx); err != nil {
		if errors.Is(err, sqldrv.ErrTxStarted) {
			return &StateError{Err: err}
		}
		return NewConnectionError("begin", err)
	}
	abort := func(err error) error {
		if rberr := s.conn.Rollback(); rberr != nil {
			err = errors.Join(err, rberr)
		}
		return err
	}

	// Instance and session mutations are staged and applied only after the
	// transaction commits, so a failed flush preserves all pending state.
	var post []func()

	for _, inst := range s.added {
		fn, err := s.flushInsert(ctx, inst)
		if err != nil {
			return abort(err)
		}
		post = append(post, fn)
	}
	for _, e := range dirty {
		fn, err := s.flushUpdate(ctx, e)
		if err != nil {
			return abort(err)
		}
		post = append(post, fn)
	}
	for _, inst := range s.removed {
		fn, err := s.flushDelete(ctx, inst)
		if err != nil {
			return abort(err)
		}
		post = append(post, fn)
	}

	if err := s.conn.Commit(); err != nil {
		return NewConnectionError("commit", err)
	}
	for _, fn := range post {
		fn()
	}
	s.added = nil
	s.removed = nil
	return nil
}

// insertValues assembles the column/value pairs of an INSERT in declared
// column order, computing field defaults for unset columns. An unset
// primary key is omitted so the backend generates it.
func insertValues(inst *Instance) (columns []string, values []any, applied map[string]any) {
	applied = make(map[string]any)
	for _, f := range inst.model.fields {
		v, ok := inst.values[f.Name]
		if !ok {
			switch {
			case f.DefaultFunc != nil:
				v = normalize(f.DefaultFunc())
			case f.Default != nil:
				v = normalize(f.Default)
			default:
				continue // generated key, backend default, or NULL
			}
			applied[f.Name] = v
		}
		columns = append(columns, f.Name)
		values = append(values, v)
	}
	return columns, values, applied
}

func (s *Session) flushInsert(ctx context.Context, inst *Instance) (func(), error) {
	m := inst.model
	columns, values, applied := insertValues(inst)
	stmt, args, mode, err := s.conn.Dialect().Insert(m, columns, values)
	if err != nil {
		return nil, NewQueryError(m.label, "insert", err)
	}
	var pk any
	switch mode {
	case dialect.ReturnQuery:
		rows, qerr := s.conn.Query(ctx, stmt, args...)
		if qerr != nil {
			return nil, classifyExecError(m.table, "insert", qerr)
		}
		var (
			id    int64
			found bool
		)
		if rows.Next() {
			if serr := rows.Scan(&id); serr != nil {
				rows.Close()
				return nil, NewConnectionError("insert "+m.table, serr)
			}
			found = true
		}
		if cerr := errors.Join(rows.Err(), rows.Close()); cerr != nil {
			return nil, NewConnectionError("insert "+m.table, cerr)
		}
		if !found {
			return nil, NewConnectionError("insert "+m.table, errors.New("no generated key returned"))
		}
		pk = id
	case dialect.ReturnLastID:
		res, xerr := s.conn.Exec(ctx, stmt, args...)
		if xerr != nil {
			return nil, classifyExecError(m.table, "insert", xerr)
		}
		id, ierr := res.LastInsertId()
		if ierr != nil {
			return nil, NewConnectionError("insert "+m.table, ierr)
		}
		pk = id
	case dialect.ReturnNone:
		if _, xerr := s.conn.Exec(ctx, stmt, args...); xerr != nil {
			return nil, classifyExecError(m.table, "insert", xerr)
		}
		if v, ok := inst.PrimaryKey(); ok {
			pk = v
		} else {
			pk = applied[m.pk.Name]
		}
	}
	return func() {
		for name, v := range applied {
			inst.values[name] = v
		}
		inst.values[m.pk.Name] = normalize(pk)
		inst.state = Persistent
		inst.session = s
		s.identity[identityKey{m, normalize(pk)}] = inst
		s.loaded = append(s.loaded, inst)
		inst.takeSnapshot()
	}, nil
}

func (s *Session) flushUpdate(ctx context.Context, e dirtyEntry) (func(), error) {
	m := e.inst.model
	pk, ok := e.inst.PrimaryKey()
	if !ok {
		return nil, NewStateError("persistent %s instance has no primary key", m.label)
	}
	stmt, args, err := s.conn.Dialect().Update(m, pk, e.columns, e.values)
	if err != nil {
		return nil, NewQueryError(m.label, "update", err)
	}
	if _, err := s.conn.Exec(ctx, stmt, args...); err != nil {
		return nil, classifyExecError(m.table, "update", err)
	}
	inst := e.inst
	return func() { inst.takeSnapshot() }, nil
}

func (s *Session) flushDelete(ctx context.Context, inst *Instance) (func(), error) {
	m := inst.model
	pk, ok := inst.PrimaryKey()
	if !ok {
		return nil, NewStateError("persistent %s instance has no primary key", m.label)
	}
	stmt, args, err := s.conn.Dialect().Delete(m, pk)
	if err != nil {
		return nil, NewQueryError(m.label, "delete", err)
	}
	if _, err := s.conn.Exec(ctx, stmt, args...); err != nil {
		return nil, classifyExecError(m.table, "delete", err)
	}
	return func() {
		delete(s.identity, identityKey{m, pk})
		for i, l := range s.loaded {
			if l == inst {
				s.loaded = append(s.loaded[:i], s.loaded[i+1:]...)
				break
			}
		}
		inst.state = Deleted
		inst.session = nil
	}, nil
}

// Rollback discards all pending changes without touching the backend:
// added instances are detached, deletion marks dropped, and modified
// instances restored to their last snapshot.
func (s *Session) Rollback() {
	for _, inst := range s.added {
		if pk, ok := inst.PrimaryKey(); ok && pk != nil {
			key := identityKey{inst.model, pk}
			if s.identity[key] == inst {
				delete(s.identity, key)
			}
		}
		inst.session = nil
	}
	s.added = nil
	s.removed = nil
	for _, inst := range s.loaded {
		clear(inst.values)
		for k, v := range inst.snapshot {
			inst.values[k] = v
		}
	}
}

// Close marks the session closed and releases its connection. Instances
// remain readable as detached snapshots.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	for _, inst := range s.loaded {
		inst.session = nil
	}
	for _, inst := range s.added {
		inst.session = nil
	}
	return s.conn.Close()
}

// evictModel drops every resident persistent instance of the model from the
// identity map and detaches it, leaving it a read-only snapshot. Bulk
// statements change rows behind the unit of work's back, so resident
// instances of the model can no longer be trusted to mirror the backend.
// Transient instances pending insertion keep their identity entries.
func (s *Session) evictModel(m *Model) {
	for key, inst := range s.identity {
		if key.model == m && inst.state == Persistent {
			delete(s.identity, key)
		}
	}
	kept := s.loaded[:0]
	for _, inst := range s.loaded {
		if inst.model == m {
			inst.session = nil
		} else {
			kept = append(kept, inst)
		}
	}
	s.loaded = kept
}

// absorb hydrates one scanned row through the identity map: a resident
// instance is refreshed and returned (tombstoned instances are returned
// as-is), otherwise a new persistent instance is attached.
func (s *Session) absorb(m *Model, dests []any) *Instance {
	fresh := m.hydrate(dests)
	pk, ok := fresh.PrimaryKey()
	if !ok {
		fresh.session = s
		return fresh
	}
	key := identityKey{m, pk}
	if resident, ok := s.identity[key]; ok {
		if resident.state == Persistent && !s.pendingDelete(resident) {
			resident.refresh(dests)
		}
		return resident
	}
	fresh.session = s
	s.identity[key] = fresh
	s.loaded = append(s.loaded, fresh)
	return fresh
}

// WithSession opens a session on the connection, runs fn, and guarantees
// release on every exit path: a nil error commits pending changes, a
// non-nil error discards them, and the connection is closed either way.
func WithSession(ctx context.Context, conn *sqldrv.Conn, fn func(*Session) error) (err error) {
	s := NewSession(conn)
	defer func() {
		if cerr := s.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()
	defer func() {
		if r := recover(); r != nil {
			s.Rollback()
			panic(r)
		}
	}()
	if err = fn(s); err != nil {
		s.Rollback()
		return fmt.Errorf("strata: session: %w", err)
	}
	return s.Commit(ctx)
}
