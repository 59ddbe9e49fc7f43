package database

import (
	"context"
	"fmt"
	"time"

	"quizly/internal/config"
	"quizly/internal/logger"

	"github.com/jmoiron/sqlx"
	_ "github.com/sijms/go-ora/v2" // Oracle driver
	"go.uber.org/zap"
	_ "modernc.org/sqlite" // SQLite driver
)

const (
	DriverSQLite = "sqlite"
	DriverOracle = "oracle"
)

func init() {
	// sqlx does not know either registered driver name by default.
	sqlx.BindDriver(DriverOracle, sqlx.NAMED)
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// Open connects to the configured database and pings it.
func Open(ctx context.Context, cfg *config.Config) (*sqlx.DB, error) {
	driver := cfg.DB.Driver
	switch driver {
	case DriverSQLite, DriverOracle:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sqlx.Open(driver, cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}

	if driver == DriverSQLite {
		// single writer
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(20)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", driver, err)
	}

	logger.Get().Info("Connected to database", zap.String("driver", driver))
	return db, nil
}
