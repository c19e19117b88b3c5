package dialect_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/strata/dialect"
	"github.com/syssam/strata/predicate"
	"github.com/syssam/strata/schema/field"
)

// table is a minimal dialect.Table fixture.
type table struct {
	name string
	cols []*field.Descriptor
}

func (t *table) Name() string                  { return t.name }
func (t *table) Columns() []*field.Descriptor  { return t.cols }
func (t *table) PrimaryKey() *field.Descriptor { return t.cols[0] }

func (t *table) Column(name string) (*field.Descriptor, bool) {
	for _, c := range t.cols {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

func users() *table {
	return &table{name: "users", cols: []*field.Descriptor{
		field.Int("id").PrimaryKey().Descriptor(),
		field.String("name").Descriptor(),
		field.String("email").Unique().Descriptor(),
		field.Int("age").Nullable().Descriptor(),
	}}
}

func question() *dialect.Base {
	return dialect.NewBase(dialect.Config{
		DialectName: "question",
		Param:       dialect.Question,
		Ident:       dialect.QuoteDouble,
		ColumnType:  func(f *field.Descriptor) (string, error) { return "TEXT", nil },
		PKColumn: func(f *field.Descriptor) (string, error) {
			return dialect.QuoteDouble(f.Name) + " INTEGER PRIMARY KEY", nil
		},
	})
}

func dollar() *dialect.Base {
	b := question()
	b.DialectName = "dollar"
	b.Param = dialect.Dollar
	b.Returning = true
	return b
}

func TestRegistry(t *testing.T) {
	d := question()
	dialect.Register(d)
	got, err := dialect.Lookup("question")
	require.NoError(t, err)
	assert.Same(t, d, got)
	assert.Contains(t, dialect.List(), "question")

	_, err = dialect.Lookup("no-such-dialect")
	assert.Error(t, err)

	assert.Panics(t, func() { dialect.Register(d) })
	assert.Panics(t, func() { dialect.Register(nil) })
}

func TestSelect(t *testing.T) {
	b := question()
	u := users()

	t.Run("All", func(t *testing.T) {
		stmt, args, err := b.Select(dialect.SelectSpec{Table: u, Limit: -1, Offset: -1})
		require.NoError(t, err)
		assert.Equal(t, `SELECT "id", "name", "email", "age" FROM "users"`, stmt)
		assert.Empty(t, args)
	})
	t.Run("WhereOrderLimit", func(t *testing.T) {
		stmt, args, err := b.Select(dialect.SelectSpec{
			Table:   u,
			Where:   predicate.And(predicate.GTE("age", 18), predicate.EQ("name", "Alice")),
			OrderBy: []dialect.Order{{Column: "name"}, {Column: "age", Desc: true}},
			Limit:   10,
			Offset:  5,
		})
		require.NoError(t, err)
		assert.Equal(t, `SELECT "id", "name", "email", "age" FROM "users" WHERE ("age" >= ? AND "name" = ?) ORDER BY "name" ASC, "age" DESC LIMIT 10 OFFSET 5`, stmt)
		assert.Equal(t, []any{18, "Alice"}, args)
	})
	t.Run("Count", func(t *testing.T) {
		stmt, args, err := b.Select(dialect.SelectSpec{Table: u, Where: predicate.EQ("age", 30), Count: true, Limit: -1, Offset: -1})
		require.NoError(t, err)
		assert.Equal(t, `SELECT COUNT(*) FROM "users" WHERE "age" = ?`, stmt)
		assert.Equal(t, []any{30}, args)
	})
	t.Run("UnknownOrderColumn", func(t *testing.T) {
		_, _, err := b.Select(dialect.SelectSpec{Table: u, OrderBy: []dialect.Order{{Column: "nope"}}, Limit: -1, Offset: -1})
		assert.ErrorContains(t, err, `unknown column "nope"`)
	})
}

func TestInsert(t *testing.T) {
	u := users()

	t.Run("LastID", func(t *testing.T) {
		stmt, args, mode, err := question().Insert(u, []string{"name", "email"}, []any{"Alice", "a@example.com"})
		require.NoError(t, err)
		assert.Equal(t, `INSERT INTO "users" ("name", "email") VALUES (?, ?)`, stmt)
		assert.Equal(t, []any{"Alice", "a@example.com"}, args)
		assert.Equal(t, dialect.ReturnLastID, mode)
	})
	t.Run("Returning", func(t *testing.T) {
		stmt, _, mode, err := dollar().Insert(u, []string{"name"}, []any{"Alice"})
		require.NoError(t, err)
		assert.Equal(t, `INSERT INTO "users" ("name") VALUES ($1) RETURNING "id"`, stmt)
		assert.Equal(t, dialect.ReturnQuery, mode)
	})
	t.Run("SuppliedPK", func(t *testing.T) {
		stmt, _, mode, err := dollar().Insert(u, []string{"id", "name"}, []any{int64(7), "Alice"})
		require.NoError(t, err)
		assert.Equal(t, `INSERT INTO "users" ("id", "name") VALUES ($1, $2)`, stmt)
		assert.Equal(t, dialect.ReturnNone, mode)
	})
	t.Run("Mismatch", func(t *testing.T) {
		_, _, _, err := question().Insert(u, []string{"name"}, []any{"a", "b"})
		assert.Error(t, err)
	})
	t.Run("UnknownColumn", func(t *testing.T) {
		_, _, _, err := question().Insert(u, []string{"nope"}, []any{1})
		assert.ErrorContains(t, err, `unknown column "nope"`)
	})
}

func TestUpdateDelete(t *testing.T) {
	u := users()

	t.Run("Update", func(t *testing.T) {
		stmt, args, err := dollar().Update(u, int64(7), []string{"name", "age"}, []any{"Bob", int64(31)})
		require.NoError(t, err)
		// Placeholder numbering continues from SET into WHERE.
		assert.Equal(t, `UPDATE "users" SET "name" = $1, "age" = $2 WHERE "id" = $3`, stmt)
		assert.Equal(t, []any{"Bob", int64(31), int64(7)}, args)
	})
	t.Run("UpdateNoColumns", func(t *testing.T) {
		_, _, err := question().Update(u, 1, nil, nil)
		assert.Error(t, err)
	})
	t.Run("Delete", func(t *testing.T) {
		stmt, args, err := question().Delete(u, int64(7))
		require.NoError(t, err)
		assert.Equal(t, `DELETE FROM "users" WHERE "id" = ?`, stmt)
		assert.Equal(t, []any{int64(7)}, args)
	})
}

func TestUpdateWhere(t *testing.T) {
	u := users()

	t.Run("Condition", func(t *testing.T) {
		stmt, args, err := dollar().UpdateWhere(u, []string{"name"}, []any{"Bob"},
			predicate.And(predicate.GTE("age", 18), predicate.EQ("email", "b@example.com")))
		require.NoError(t, err)
		// Placeholder numbering continues from SET into WHERE.
		assert.Equal(t, `UPDATE "users" SET "name" = $1 WHERE ("age" >= $2 AND "email" = $3)`, stmt)
		assert.Equal(t, []any{"Bob", 18, "b@example.com"}, args)
	})
	t.Run("MatchAll", func(t *testing.T) {
		stmt, args, err := question().UpdateWhere(u, []string{"age"}, []any{int64(0)}, nil)
		require.NoError(t, err)
		assert.Equal(t, `UPDATE "users" SET "age" = ?`, stmt)
		assert.Equal(t, []any{int64(0)}, args)
	})
	t.Run("UnknownWhereColumn", func(t *testing.T) {
		_, _, err := question().UpdateWhere(u, []string{"age"}, []any{1}, predicate.EQ("nope", 1))
		assert.ErrorContains(t, err, `unknown column "nope"`)
	})
}

func TestDeleteWhere(t *testing.T) {
	u := users()

	t.Run("Condition", func(t *testing.T) {
		stmt, args, err := dollar().DeleteWhere(u, predicate.LT("age", 18))
		require.NoError(t, err)
		assert.Equal(t, `DELETE FROM "users" WHERE "age" < $1`, stmt)
		assert.Equal(t, []any{18}, args)
	})
	t.Run("MatchAll", func(t *testing.T) {
		stmt, args, err := question().DeleteWhere(u, nil)
		require.NoError(t, err)
		assert.Equal(t, `DELETE FROM "users"`, stmt)
		assert.Empty(t, args)
	})
}

func TestCondition(t *testing.T) {
	b := question()
	u := users()

	t.Run("Nested", func(t *testing.T) {
		c := predicate.Or(
			predicate.And(predicate.GTE("age", 18), predicate.LT("age", 65)),
			predicate.EQ("name", "root"),
		)
		stmt, args, err := b.Condition(u, c)
		require.NoError(t, err)
		assert.Equal(t, `(("age" >= ? AND "age" < ?) OR "name" = ?)`, stmt)
		assert.Equal(t, []any{18, 65, "root"}, args)
	})
	t.Run("Niladic", func(t *testing.T) {
		stmt, args, err := b.Condition(u, predicate.IsNull("age"))
		require.NoError(t, err)
		assert.Equal(t, `"age" IS NULL`, stmt)
		assert.Empty(t, args)
	})
	t.Run("In", func(t *testing.T) {
		stmt, args, err := b.Condition(u, predicate.In("age", 1, 2, 3))
		require.NoError(t, err)
		assert.Equal(t, `"age" IN (?, ?, ?)`, stmt)
		assert.Len(t, args, 3)
	})
	t.Run("EmptyIn", func(t *testing.T) {
		stmt, _, err := b.Condition(u, predicate.In("age"))
		require.NoError(t, err)
		assert.Equal(t, "1 = 0", stmt)

		stmt, _, err = b.Condition(u, predicate.NotIn("age"))
		require.NoError(t, err)
		assert.Equal(t, "1 = 1", stmt)
	})
	t.Run("UnknownColumn", func(t *testing.T) {
		_, _, err := b.Condition(u, predicate.EQ("nope", 1))
		assert.ErrorContains(t, err, `unknown column "nope"`)
	})
	t.Run("Nil", func(t *testing.T) {
		_, _, err := b.Condition(u, nil)
		assert.Error(t, err)
	})
}

func TestCreateTable(t *testing.T) {
	b := question()
	u := users()
	ddl, err := b.CreateTable(u)
	require.NoError(t, err)
	assert.Equal(t, `CREATE TABLE IF NOT EXISTS "users" ("id" INTEGER PRIMARY KEY, "name" TEXT NOT NULL, "email" TEXT NOT NULL UNIQUE, "age" TEXT)`, ddl)

	_, err = b.CreateTable(&table{name: "empty"})
	assert.Error(t, err)
}
