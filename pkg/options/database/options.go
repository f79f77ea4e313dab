// Package database provides relational database options shared by the
// sqlite, postgres and mysql drivers.
package database

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/kart-io/nyx/pkg/options"
	"github.com/kart-io/nyx/pkg/options/mysql"
	"github.com/kart-io/nyx/pkg/options/postgres"
)

var _ options.IOptions = (*Options)(nil)

// 支持的数据库驱动。
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// Options 数据库配置。
type Options struct {
	// Driver 数据库驱动（sqlite, postgres, mysql）。
	Driver string `json:"driver" mapstructure:"driver"`

	// SQLitePath sqlite 数据库文件路径，":memory:" 表示内存库。
	SQLitePath string `json:"sqlite-path" mapstructure:"sqlite-path"`

	// LogLevel gorm 日志级别（1 Silent, 2 Error, 3 Warn, 4 Info）。
	LogLevel int `json:"log-level" mapstructure:"log-level"`

	// AutoMigrate 启动时自动迁移表结构。
	AutoMigrate bool `json:"auto-migrate" mapstructure:"auto-migrate"`

	Postgres *postgres.Options `json:"postgres" mapstructure:"postgres"`
	MySQL    *mysql.Options    `json:"mysql" mapstructure:"mysql"`
}

// NewOptions 创建默认数据库配置。
func NewOptions() *Options {
	return &Options{
		Driver:      DriverSQLite,
		SQLitePath:  "nyx.db",
		LogLevel:    1,
		AutoMigrate: true,
		Postgres:    postgres.NewOptions(),
		MySQL:       mysql.NewOptions(),
	}
}

// AddFlags adds flags for database options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...) + "database"
	fs.StringVar(&o.Driver, p+".driver", o.Driver, "Database driver (sqlite, postgres, mysql).")
	fs.StringVar(&o.SQLitePath, p+".sqlite-path", o.SQLitePath, "SQLite database file, or :memory: for an in-memory database.")
	fs.IntVar(&o.LogLevel, p+".log-level", o.LogLevel, "Gorm log level (1 silent, 2 error, 3 warn, 4 info).")
	fs.BoolVar(&o.AutoMigrate, p+".auto-migrate", o.AutoMigrate, "Migrate the schema on start-up.")
	o.Postgres.AddFlags(fs, p)
	o.MySQL.AddFlags(fs, p)
}

// Validate validates the database options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	switch o.Driver {
	case DriverSQLite:
		if o.SQLitePath == "" {
			errs = append(errs, fmt.Errorf("database.sqlite-path is required for the sqlite driver"))
		}
	case DriverPostgres:
		errs = append(errs, o.Postgres.Validate()...)
	case DriverMySQL:
		errs = append(errs, o.MySQL.Validate()...)
	default:
		errs = append(errs, fmt.Errorf("unsupported database driver %q", o.Driver))
	}
	if o.LogLevel < 1 || o.LogLevel > 4 {
		errs = append(errs, fmt.Errorf("database.log-level must be between 1 and 4"))
	}
	return errs
}
