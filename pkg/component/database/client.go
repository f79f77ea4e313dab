// Package database opens the relational store behind the knowledge base.
// sqlite (pure Go), postgres and mysql are supported through gorm.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	mysqldriver "gorm.io/driver/mysql"
	postgresdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	dbopts "github.com/kart-io/nyx/pkg/options/database"
)

// slowQueryThreshold 慢查询阈值。
const slowQueryThreshold = 200 * time.Millisecond

// HealthChecker reports whether the database is reachable.
type HealthChecker func() error

// Client wraps gorm.DB for the configured driver.
type Client struct {
	db     *gorm.DB
	driver string
}

// New creates a new database client from the provided options.
func New(opts *dbopts.Options) (*Client, error) {
	return NewWithContext(context.Background(), opts)
}

// NewWithContext opens the database, configures the connection pool and
// verifies connectivity with the given context.
func NewWithContext(ctx context.Context, opts *dbopts.Options) (*Client, error) {
	if opts == nil {
		return nil, fmt.Errorf("database options cannot be nil")
	}

	dialector, err := dialectorFor(opts)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: NewGormLogger(opts.Driver, logLevel(opts.LogLevel), slowQueryThreshold),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", opts.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	configurePool(sqlDB, opts)

	client := &Client{db: db, driver: opts.Driver}
	if err := client.Ping(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping %s: %w", opts.Driver, err)
	}
	return client, nil
}

// NewFromDB wraps an already opened gorm.DB.
func NewFromDB(db *gorm.DB, driver string) *Client {
	return &Client{db: db, driver: driver}
}

func dialectorFor(opts *dbopts.Options) (gorm.Dialector, error) {
	switch opts.Driver {
	case dbopts.DriverSQLite:
		return sqlite.Open(sqliteDSN(opts.SQLitePath)), nil
	case dbopts.DriverPostgres:
		return postgresdriver.Open(BuildPostgresDSN(opts.Postgres)), nil
	case dbopts.DriverMySQL:
		return mysqldriver.Open(BuildMySQLDSN(opts.MySQL)), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", opts.Driver)
	}
}

func configurePool(sqlDB *sql.DB, opts *dbopts.Options) {
	switch opts.Driver {
	case dbopts.DriverPostgres:
		sqlDB.SetMaxIdleConns(opts.Postgres.MaxIdleConnections)
		sqlDB.SetMaxOpenConns(opts.Postgres.MaxOpenConnections)
		sqlDB.SetConnMaxLifetime(opts.Postgres.MaxConnectionLifeTime)
	case dbopts.DriverMySQL:
		sqlDB.SetMaxIdleConns(opts.MySQL.MaxIdleConnections)
		sqlDB.SetMaxOpenConns(opts.MySQL.MaxOpenConnections)
		sqlDB.SetConnMaxLifetime(opts.MySQL.MaxConnectionLifeTime)
	default:
		// sqlite 只允许单写连接
		sqlDB.SetMaxOpenConns(1)
	}
}

// logLevel maps the numeric option onto gorm's levels.
func logLevel(level int) gormlogger.LogLevel {
	switch level {
	case 2:
		return gormlogger.Error
	case 3:
		return gormlogger.Warn
	case 4:
		return gormlogger.Info
	default:
		return gormlogger.Silent
	}
}

// Name returns the driver name.
func (c *Client) Name() string {
	return c.driver
}

// DB returns the underlying gorm.DB instance.
func (c *Client) DB() *gorm.DB {
	return c.db
}

// Ping verifies the connection to the database.
func (c *Client) Ping(ctx context.Context) error {
	if c.db == nil {
		return fmt.Errorf("database connection is nil")
	}

	sqlDB, err := c.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(pingCtx); err != nil {
		return fmt.Errorf("%s ping failed: %w", c.driver, err)
	}
	return nil
}

// Close closes the database connection and releases resources.
func (c *Client) Close() error {
	if c.db == nil {
		return nil
	}

	sqlDB, err := c.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB for closing: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close %s connection: %w", c.driver, err)
	}
	return nil
}

// Health returns a HealthChecker bound to this client.
func (c *Client) Health() HealthChecker {
	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return c.Ping(ctx)
	}
}
