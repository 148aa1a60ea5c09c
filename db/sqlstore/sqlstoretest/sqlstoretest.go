// Package sqlstoretest opens migrated throwaway databases for tests.
package sqlstoretest

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/nasermirzaei89/tribune/db/sqlstore"
	"github.com/stretchr/testify/require"
)

// NewDB returns a migrated in-memory SQLite database that is closed when the test ends.
func NewDB(t *testing.T) *sqlstore.DB {
	t.Helper()

	return Open(t, sqlstore.DialectSQLite, "file:"+uuid.NewString()+"?mode=memory&cache=shared")
}

// Open connects to dsn, applies all migrations and registers cleanup on t.
func Open(t *testing.T, dialect sqlstore.Dialect, dsn string) *sqlstore.DB {
	t.Helper()

	ctx := context.Background()

	db, err := sqlstore.NewDB(ctx, dialect, dsn)
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, db.Close())
	})

	err = sqlstore.MigrateUp(ctx, db)
	require.NoError(t, err)

	return db
}
