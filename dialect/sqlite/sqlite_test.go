package sqlite_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/strata"
	"github.com/syssam/strata/dialect"
	"github.com/syssam/strata/dialect/sqlite"
	"github.com/syssam/strata/schema/field"
)

var user = strata.MustModel("User",
	field.Int("id").PrimaryKey(),
	field.String("name"),
	field.String("email").Unique(),
	field.Int("age").Nullable(),
	field.Bool("active").Default(true),
	field.Float("score").Nullable(),
	field.Time("created_at").Nullable(),
	field.Bytes("avatar").Nullable(),
)

func TestRegistered(t *testing.T) {
	t.Parallel()
	d, err := dialect.Lookup(dialect.SQLite)
	require.NoError(t, err)
	assert.Equal(t, dialect.SQLite, d.Name())
}

func TestCreateTable(t *testing.T) {
	t.Parallel()
	ddl, err := sqlite.New().CreateTable(user)
	require.NoError(t, err)
	assert.Equal(t, `CREATE TABLE IF NOT EXISTS "users" (`+
		`"id" INTEGER PRIMARY KEY AUTOINCREMENT, `+
		`"name" TEXT NOT NULL, `+
		`"email" TEXT NOT NULL UNIQUE, `+
		`"age" INTEGER, `+
		`"active" INTEGER NOT NULL DEFAULT 1, `+
		`"score" REAL, `+
		`"created_at" TIMESTAMP, `+
		`"avatar" BLOB)`, ddl)
}

func TestInsertMode(t *testing.T) {
	t.Parallel()
	stmt, args, mode, err := sqlite.New().Insert(user, []string{"name", "email"}, []any{"Alice", "a@example.com"})
	require.NoError(t, err)
	assert.Equal(t, `INSERT INTO "users" ("name", "email") VALUES (?, ?)`, stmt)
	assert.Equal(t, []any{"Alice", "a@example.com"}, args)
	assert.Equal(t, dialect.ReturnLastID, mode)

	stmt, _, _, err = sqlite.New().Insert(user, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, `INSERT INTO "users" DEFAULT VALUES`, stmt)
}
