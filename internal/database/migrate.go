package database

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"quizly/internal/logger"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Direction selects which migration files to apply.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// Migrate applies the embedded migrations in the given direction.
// SQLite goes through golang-migrate; Oracle runs the raw statements because
// golang-migrate has no go-ora driver.
func Migrate(ctx context.Context, db *sqlx.DB, dir Direction) error {
	switch db.DriverName() {
	case DriverSQLite:
		return migrateSQLite(db, dir)
	case DriverOracle:
		return migrateRaw(ctx, db, dir)
	default:
		return fmt.Errorf("no migration strategy for driver %q", db.DriverName())
	}
}

func newSQLiteMigrator(db *sqlx.DB) (*migrate.Migrate, error) {
	src, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to open migration source: %w", err)
	}
	driver, err := sqlite.WithInstance(db.DB, &sqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create sqlite migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, DriverSQLite, driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrator: %w", err)
	}
	return m, nil
}

// Version reports the applied schema version. Only SQLite tracks versions;
// Oracle schemas are applied idempotently without a version table.
func Version(db *sqlx.DB) (version uint, dirty bool, err error) {
	if db.DriverName() != DriverSQLite {
		return 0, false, fmt.Errorf("schema versions are not tracked for driver %q", db.DriverName())
	}
	m, err := newSQLiteMigrator(db)
	if err != nil {
		return 0, false, err
	}
	version, dirty, err = m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

func migrateSQLite(db *sqlx.DB, dir Direction) error {
	m, err := newSQLiteMigrator(db)
	if err != nil {
		return err
	}

	if dir == Down {
		err = m.Down()
	} else {
		err = m.Up()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration %s failed: %w", dir, err)
	}

	version, dirty, _ := m.Version()
	logger.Get().Info("Migrations completed",
		zap.String("direction", string(dir)),
		zap.Uint("version", version),
		zap.Bool("dirty", dirty))
	return nil
}

func migrateRaw(ctx context.Context, db *sqlx.DB, dir Direction) error {
	files, err := migrationFiles(dir)
	if err != nil {
		return err
	}

	for _, name := range files {
		content, err := fs.ReadFile(migrationFS, "migrations/"+name)
		if err != nil {
			return fmt.Errorf("could not read migration file %s: %w", name, err)
		}
		for _, stmt := range SplitStatements(string(content)) {
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				// ORA-00955 / ORA-00942: object already exists / does not exist.
				if isIgnorableOracleError(err, dir) {
					continue
				}
				return fmt.Errorf("could not execute migration %s: %w", name, err)
			}
		}
		logger.Get().Info("Executed migration", zap.String("file", name))
	}
	return nil
}

func migrationFiles(dir Direction) ([]string, error) {
	entries, err := fs.ReadDir(migrationFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("could not read migrations directory: %w", err)
	}
	suffix := "." + string(dir) + ".sql"
	var files []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), suffix) {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	if dir == Down {
		sort.Sort(sort.Reverse(sort.StringSlice(files)))
	}
	return files, nil
}

// SplitStatements breaks a migration file into single statements without the
// trailing semicolon, which Oracle rejects.
func SplitStatements(content string) []string {
	var stmts []string
	for _, part := range strings.Split(content, ";") {
		if s := strings.TrimSpace(part); s != "" {
			stmts = append(stmts, s)
		}
	}
	return stmts
}

func isIgnorableOracleError(err error, dir Direction) bool {
	msg := err.Error()
	if dir == Up {
		return strings.Contains(msg, "ORA-00955")
	}
	return strings.Contains(msg, "ORA-00942")
}
