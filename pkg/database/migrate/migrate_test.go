//go:build integration

package migrate

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestMigrations(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	defer func() { _ = pgContainer.Terminate(ctx) }()

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("postgres", connStr)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	t.Run("Run applies migrations", func(t *testing.T) {
		err := Run(db)
		require.NoError(t, err)

		var exists bool
		err = db.QueryRow(`
			SELECT EXISTS (
				SELECT FROM information_schema.tables
				WHERE table_name = 'query_audit_logs'
			)
		`).Scan(&exists)
		require.NoError(t, err)
		require.True(t, exists, "query_audit_logs table should exist")

		_, err = db.Exec(`INSERT INTO query_audit_logs (id, timestamp, sql_text, success, created_date)
			VALUES ('a', now(), 'SELECT * FROM fund_list', true, current_date)`)
		require.NoError(t, err)
	})

	m, err := newMigrator(db)
	require.NoError(t, err)

	t.Run("Run is idempotent", func(t *testing.T) {
		require.NoError(t, Run(db))

		version, dirty, err := m.Version()
		require.NoError(t, err)
		require.False(t, dirty)
		require.Equal(t, uint(2), version)
	})

	t.Run("down migrations drop the audit table", func(t *testing.T) {
		require.NoError(t, m.Down())

		var exists bool
		err := db.QueryRow(`
			SELECT EXISTS (
				SELECT FROM information_schema.tables
				WHERE table_name = 'query_audit_logs'
			)
		`).Scan(&exists)
		require.NoError(t, err)
		require.False(t, exists, "query_audit_logs table should not exist after down")
	})

	t.Run("Run restores the schema", func(t *testing.T) {
		require.NoError(t, Run(db))

		version, _, err := m.Version()
		require.NoError(t, err)
		require.Equal(t, uint(2), version)
	})
}
