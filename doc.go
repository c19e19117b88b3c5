// Package strata is a small object-relational mapper built around an
// explicit unit of work.
//
// A Model maps an entity to a table through fluent field declarations:
//
//	var User = strata.MustModel("User",
//		field.Int("id").PrimaryKey(),
//		field.String("name"),
//		field.String("email").Unique(),
//		field.Int("age").Nullable(),
//	)
//
// Instances of a model are loaded and persisted through a Session, which
// tracks additions, modifications and deletions and flushes them atomically
// in one transaction on Commit. An identity map guarantees that querying the
// same row twice within a session yields the same instance:
//
//	conn, err := sql.Open(dialect.SQLite, "file:app.db")
//	...
//	err = strata.WithSession(ctx, conn, func(s *strata.Session) error {
//		u := User.New()
//		u.Set("name", "Alice")
//		u.Set("email", "alice@example.com")
//		return s.Add(u)
//	})
//
// Queries are built fluently and run against the session:
//
//	adults, err := s.Query(User).
//		Where(predicate.GTE("age", 18)).
//		OrderBy("name").
//		All(ctx)
//
// SQL generation is delegated to a dialect registered by name; importing one
// of the dialect/sqlite, dialect/postgres or dialect/mysql packages makes
// both the dialect and its database/sql driver available.
package strata
