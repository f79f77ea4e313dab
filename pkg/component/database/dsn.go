package database

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/kart-io/nyx/pkg/options/mysql"
	"github.com/kart-io/nyx/pkg/options/postgres"
)

// sqliteDSN enables foreign keys and a busy timeout on file databases.
// ":memory:" is shared across the pool so every connection sees one schema.
func sqliteDSN(path string) string {
	if path == ":memory:" {
		return "file::memory:?cache=shared&_pragma=foreign_keys(1)"
	}
	return fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", path)
}

// BuildPostgresDSN creates a PostgreSQL DSN from the provided options.
//
// The password is escaped so values with spaces or quotes cannot inject
// extra key=value pairs.
//
//	host=localhost port=5432 user=postgres password=secret dbname=nyx sslmode=disable
func BuildPostgresDSN(opts *postgres.Options) string {
	if opts == nil {
		return ""
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		opts.Host,
		opts.Port,
		opts.Username,
		escapePostgresValue(opts.Password),
		opts.Database,
		opts.SSLMode,
	)
}

// escapePostgresValue wraps values containing spaces, quotes or backslashes
// in single quotes, doubling embedded quotes.
func escapePostgresValue(value string) string {
	if value == "" {
		return "''"
	}
	if !strings.ContainsAny(value, " '\\") {
		return value
	}
	escaped := strings.ReplaceAll(value, "'", "''")
	escaped = strings.ReplaceAll(escaped, "\\", "\\\\")
	return "'" + escaped + "'"
}

// BuildMySQLDSN creates a MySQL DSN from the provided options.
//
//	root:secret@tcp(localhost:3306)/nyx?charset=utf8mb4&parseTime=True&loc=UTC
func BuildMySQLDSN(opts *mysql.Options) string {
	if opts == nil {
		return ""
	}
	// 密码中的 @ / : 等字符会破坏 DSN 解析
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		opts.Username,
		url.QueryEscape(opts.Password),
		opts.Host,
		opts.Port,
		opts.Database,
	)
}
