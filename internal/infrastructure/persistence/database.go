package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/crm/dashboard/internal/infrastructure/config"
	"github.com/crm/dashboard/internal/infrastructure/logger"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// slowQueryThreshold marks queries logged as slow
const slowQueryThreshold = 200 * time.Millisecond

// Database wraps a gorm handle for the purchase tables or the mock backend
type Database struct {
	DB *gorm.DB
}

// NewDatabase opens the PostgreSQL pool described by cfg and pings it
func NewDatabase(cfg *config.DatabaseConfig, zl *zap.Logger, logLevel gormlogger.LogLevel) (*Database, error) {
	gcfg := gormConfig(zl, logLevel)
	gcfg.SkipDefaultTransaction = true
	gcfg.PrepareStmt = true
	gcfg.TranslateError = true

	db, err := gorm.Open(postgres.Open(cfg.DSN()), gcfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	d := &Database{DB: db}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.Ping(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	return d, nil
}

// NewSQLiteDatabase opens a SQLite file or in-memory database
func NewSQLiteDatabase(dsn string, zl *zap.Logger, logLevel gormlogger.LogLevel) (*Database, error) {
	db, err := gorm.Open(sqlite.Open(dsn), gormConfig(zl, logLevel))
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	return &Database{DB: db}, nil
}

func gormConfig(zl *zap.Logger, logLevel gormlogger.LogLevel) *gorm.Config {
	return &gorm.Config{
		Logger: logger.NewGormLogger(zl, logLevel, slowQueryThreshold),
	}
}

// Close releases the pool
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}

// Ping satisfies the health check Pinger
func (d *Database) Ping(ctx context.Context) error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}
