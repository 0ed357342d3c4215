package database

import (
	"time"

	"example.com/backstage/services/dairy/config"
	"example.com/backstage/services/dairy/internal/metrics"

	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens the write and read-only databases
func Connect(cfg config.DatabaseConfig, m *metrics.Metrics) (*gorm.DB, *gorm.DB, error) {
	db, err := open(cfg.DSN, cfg, m)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to connect to write database")
	}

	if cfg.ReadOnlyDSN == "" || cfg.ReadOnlyDSN == cfg.DSN {
		return db, db, nil
	}

	readOnlyDB, err := open(cfg.ReadOnlyDSN, cfg, m)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to connect to read-only database")
	}

	return db, readOnlyDB, nil
}

func open(dsn string, cfg config.DatabaseConfig, m *metrics.Metrics) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	// Configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get underlying DB connection")
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if m != nil {
		if err := RegisterMetricsHooks(db, m); err != nil {
			return nil, err
		}
	}

	return db, nil
}

// Close closes the underlying connection pools
func Close(dbs ...*gorm.DB) {
	seen := make(map[*gorm.DB]bool)
	for _, db := range dbs {
		if db == nil || seen[db] {
			continue
		}
		seen[db] = true
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}

// Ping checks the write database
func Ping(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

const startKey = "metrics:start_time"

// RegisterMetricsHooks registers GORM callbacks that time every statement
func RegisterMetricsHooks(db *gorm.DB, m *metrics.Metrics) error {
	start := func(tx *gorm.DB) {
		tx.InstanceSet(startKey, time.Now())
	}
	finish := func(operation string) func(*gorm.DB) {
		return func(tx *gorm.DB) {
			m.RecordDatabaseQuery(operation, tx.Error == nil || errors.Is(tx.Error, gorm.ErrRecordNotFound), duration(tx))
		}
	}

	cb := db.Callback()
	if err := cb.Create().Before("gorm:create").Register("metrics:before_create", start); err != nil {
		return errors.Wrap(err, "failed to register create hook")
	}
	if err := cb.Create().After("gorm:create").Register("metrics:after_create", finish("insert")); err != nil {
		return errors.Wrap(err, "failed to register create hook")
	}
	if err := cb.Query().Before("gorm:query").Register("metrics:before_query", start); err != nil {
		return errors.Wrap(err, "failed to register query hook")
	}
	if err := cb.Query().After("gorm:query").Register("metrics:after_query", finish("select")); err != nil {
		return errors.Wrap(err, "failed to register query hook")
	}
	if err := cb.Update().Before("gorm:update").Register("metrics:before_update", start); err != nil {
		return errors.Wrap(err, "failed to register update hook")
	}
	if err := cb.Update().After("gorm:update").Register("metrics:after_update", finish("update")); err != nil {
		return errors.Wrap(err, "failed to register update hook")
	}
	if err := cb.Delete().Before("gorm:delete").Register("metrics:before_delete", start); err != nil {
		return errors.Wrap(err, "failed to register delete hook")
	}
	if err := cb.Delete().After("gorm:delete").Register("metrics:after_delete", finish("delete")); err != nil {
		return errors.Wrap(err, "failed to register delete hook")
	}
	return nil
}

func duration(tx *gorm.DB) time.Duration {
	if start, ok := tx.InstanceGet(startKey); ok {
		return time.Since(start.(time.Time))
	}
	return 0
}
