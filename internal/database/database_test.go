package database

import (
	"context"
	"path/filepath"
	"testing"

	"quizly/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{DB: config.DBConfig{
		Driver: DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "quizly_test.db"),
	}}
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), &config.Config{DB: config.DBConfig{Driver: "mysql"}})
	assert.ErrorContains(t, err, "unsupported database driver")
}

func TestMigrate_SQLiteUpAndDown(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, openTestDB(t))
	require.NoError(t, err)
	defer db.Close()

	version, _, err := Version(db)
	require.NoError(t, err)
	assert.Zero(t, version)

	require.NoError(t, Migrate(ctx, db, Up))
	// Running twice is a no-op.
	require.NoError(t, Migrate(ctx, db, Up))

	version, dirty, err := Version(db)
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
	assert.False(t, dirty)

	var tables []string
	require.NoError(t, db.SelectContext(ctx, &tables,
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name IN ('USERS', 'QUIZZES', 'QUESTIONS') ORDER BY name"))
	assert.Equal(t, []string{"QUESTIONS", "QUIZZES", "USERS"}, tables)

	require.NoError(t, Migrate(ctx, db, Down))

	tables = nil
	require.NoError(t, db.SelectContext(ctx, &tables,
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name IN ('USERS', 'QUIZZES', 'QUESTIONS')"))
	assert.Empty(t, tables)
}

func TestSplitStatements(t *testing.T) {
	stmts := SplitStatements("CREATE TABLE A (ID INT);\n\nCREATE INDEX I ON A (ID);\n")
	assert.Equal(t, []string{"CREATE TABLE A (ID INT)", "CREATE INDEX I ON A (ID)"}, stmts)
}

func TestMigrationFiles_Order(t *testing.T) {
	up, err := migrationFiles(Up)
	require.NoError(t, err)
	assert.Equal(t, []string{"000001_create_users.up.sql", "000002_create_quizzes.up.sql"}, up)

	down, err := migrationFiles(Down)
	require.NoError(t, err)
	assert.Equal(t, []string{"000002_create_quizzes.down.sql", "000001_create_users.down.sql"}, down)
}
