package strata_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/strata"
	"github.com/syssam/strata/dialect"
	sqldrv "github.com/syssam/strata/dialect/sql"
	_ "github.com/syssam/strata/dialect/sqlite"
	"github.com/syssam/strata/predicate"
	"github.com/syssam/strata/schema/field"
)

// sqliteConn opens an in-memory SQLite database for one test.
func sqliteConn(t *testing.T) *sqldrv.Conn {
	t.Helper()
	conn, err := sqldrv.Open(dialect.SQLite, ":memory:")
	require.NoError(t, err)
	// In-memory SQLite lives per driver connection.
	conn.DB().SetMaxOpenConns(1)
	return conn
}

func TestEndToEnd(t *testing.T) {
	ctx := context.Background()
	user := strata.MustModel("User",
		field.Int("id").PrimaryKey(),
		field.String("name"),
		field.String("email").Unique(),
		field.Int("age").Nullable(),
	)

	conn := sqliteConn(t)
	require.NoError(t, user.CreateTable(ctx, conn))
	sess := strata.NewSession(conn)
	defer sess.Close()

	// Insert through the unit of work.
	ann, err := user.NewWith(map[string]any{"name": "Ann", "email": "ann@example.com", "age": 20})
	require.NoError(t, err)
	bob, err := user.NewWith(map[string]any{"name": "Bob", "email": "bob@example.com"})
	require.NoError(t, err)
	require.NoError(t, sess.Add(ann))
	require.NoError(t, sess.Add(bob))
	require.NoError(t, sess.Commit(ctx))

	annPK, ok := ann.PrimaryKey()
	require.True(t, ok)
	bobPK, ok := bob.PrimaryKey()
	require.True(t, ok)
	assert.NotEqual(t, annPK, bobPK)
	assert.Equal(t, strata.Persistent, ann.State())

	// Round-trip: committed values come back unchanged.
	got, err := sess.Query(user).Get(ctx, annPK)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Same(t, ann, got)
	assert.Equal(t, "Ann", got.String("name"))
	assert.Equal(t, int64(20), got.Int("age"))
	assert.True(t, bob.IsNull("age"))

	// Predicate queries.
	adults, err := sess.Query(user).Where(predicate.GTE("age", int64(18))).OrderBy("name").All(ctx)
	require.NoError(t, err)
	require.Len(t, adults, 1)
	assert.Same(t, ann, adults[0])

	n, err := sess.Query(user).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	exists, err := sess.Query(user).Where(predicate.EQ("name", "Zed")).Exist(ctx)
	require.NoError(t, err)
	assert.False(t, exists)

	// Update via dirty tracking.
	require.NoError(t, ann.Set("age", 21))
	require.NoError(t, sess.Commit(ctx))
	fresh, err := sess.Query(user).Get(ctx, annPK)
	require.NoError(t, err)
	assert.Equal(t, int64(21), fresh.Int("age"))

	// Delete.
	require.NoError(t, sess.Delete(bob))
	require.NoError(t, sess.Commit(ctx))
	assert.Equal(t, strata.Deleted, bob.State())
	gone, err := sess.Query(user).Get(ctx, bobPK)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestUniqueViolation(t *testing.T) {
	ctx := context.Background()
	user := strata.MustModel("User",
		field.Int("id").PrimaryKey(),
		field.String("name"),
		field.String("email").Unique(),
		field.Int("age").Nullable(),
	)

	conn := sqliteConn(t)
	require.NoError(t, user.CreateTable(ctx, conn))
	sess := strata.NewSession(conn)
	defer sess.Close()

	ann, err := user.NewWith(map[string]any{"name": "Ann", "email": "dup@example.com"})
	require.NoError(t, err)
	require.NoError(t, sess.Add(ann))
	require.NoError(t, sess.Commit(ctx))

	// A flush that violates a constraint rolls back atomically: the valid
	// insert in the same batch must not survive.
	carol, err := user.NewWith(map[string]any{"name": "Carol", "email": "carol@example.com"})
	require.NoError(t, err)
	dup, err := user.NewWith(map[string]any{"name": "Imposter", "email": "dup@example.com"})
	require.NoError(t, err)
	require.NoError(t, sess.Add(carol))
	require.NoError(t, sess.Add(dup))
	err = sess.Commit(ctx)
	require.Error(t, err)
	assert.True(t, strata.IsIntegrityError(err))

	n, err := sess.Query(user).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	// Fixing the conflict makes the preserved batch committable.
	require.NoError(t, dup.Set("email", "imposter@example.com"))
	require.NoError(t, sess.Commit(ctx))
	n, err = sess.Query(user).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestGeneratedDefaults(t *testing.T) {
	ctx := context.Background()
	doc := strata.MustModel("Document",
		field.Int("id").PrimaryKey(),
		field.String("title"),
		field.UUID("token").Default(uuid.New),
		field.Bool("draft").Default(true),
	)

	conn := sqliteConn(t)
	require.NoError(t, doc.CreateTable(ctx, conn))

	err := strata.WithSession(ctx, conn, func(s *strata.Session) error {
		d := doc.New()
		if err := d.Set("title", "notes"); err != nil {
			return err
		}
		if err := s.Add(d); err != nil {
			return err
		}
		if err := s.Commit(ctx); err != nil {
			return err
		}
		// The computed default is applied and stored in canonical text form.
		_, perr := uuid.Parse(d.String("token"))
		assert.NoError(t, perr)
		assert.True(t, d.Bool("draft"))
		return nil
	})
	require.NoError(t, err)
}
