// Package dbbackend selects and opens the persistence backend for IPTGram.
//
// Exactly one backend is active per process. The choice is a configuration
// value (db_backend) validated at load time by ParseKind, not a build-time
// switch. SQL backends share one user store through Dialect; the document
// backend (mongo) has its own store.
package dbbackend

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	_ "github.com/microsoft/go-mssqldb"
	_ "modernc.org/sqlite"
)

// Kind identifies a persistence backend.
type Kind string

const (
	SQLServer Kind = "sqlserver"
	MySQL     Kind = "mysql"
	SQLite    Kind = "sqlite"
	Mongo     Kind = "mongo"
)

// Kinds lists every supported backend in a stable order.
var Kinds = []Kind{SQLServer, MySQL, SQLite, Mongo}

// ParseKind maps a configured backend name to a Kind.
// Matching ignores case and surrounding whitespace; "mssql" is accepted as
// an alias for sqlserver and "sqlite3" for sqlite.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sqlserver", "mssql":
		return SQLServer, nil
	case "mysql":
		return MySQL, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "mongo", "mongodb":
		return Mongo, nil
	case "":
		return "", fmt.Errorf("db_backend is empty; want one of %s", kindList())
	default:
		return "", fmt.Errorf("unknown db_backend %q; want one of %s", s, kindList())
	}
}

// IsSQL reports whether k is served by database/sql.
func (k Kind) IsSQL() bool {
	return k == SQLServer || k == MySQL || k == SQLite
}

// DriverName returns the database/sql driver registered for k.
func (k Kind) DriverName() string {
	switch k {
	case SQLServer:
		return "sqlserver"
	case MySQL:
		return "mysql"
	case SQLite:
		return "sqlite"
	}
	return ""
}

// OpenSQL opens a connection pool for a SQL backend.
//
// It does not ping: a bad connection string surfaces on first use. Drivers
// that parse their DSN eagerly (mysql) may still reject a malformed string here.
func OpenSQL(kind Kind, dsn string) (*sql.DB, error) {
	if !kind.IsSQL() {
		return nil, fmt.Errorf("backend %q is not a SQL backend", kind)
	}
	if kind == MySQL {
		var err error
		if dsn, err = MySQLDSN(dsn); err != nil {
			return nil, fmt.Errorf("open %s: %w", kind, err)
		}
	}
	db, err := sql.Open(kind.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", kind, err)
	}
	if kind == SQLite {
		// modernc sqlite serialises writers; a single connection also keeps
		// ":memory:" databases shared across the pool.
		db.SetMaxOpenConns(1)
	}
	return db, nil
}

// MySQLDSN returns dsn with parseTime forced on, so DATETIME columns scan
// into time.Time like they do on the other SQL backends.
func MySQLDSN(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", err
	}
	cfg.ParseTime = true
	return cfg.FormatDSN(), nil
}

// Dialect captures the per-backend SQL differences the user store needs.
type Dialect struct {
	Kind Kind
}

// Placeholder returns the bind marker for the n-th (1-based) argument.
func (d Dialect) Placeholder(n int) string {
	if d.Kind == SQLServer {
		return "@p" + strconv.Itoa(n)
	}
	return "?"
}

// Placeholders returns count markers starting at 1, comma separated.
func (d Dialect) Placeholders(count int) string {
	parts := make([]string, count)
	for i := range parts {
		parts[i] = d.Placeholder(i + 1)
	}
	return strings.Join(parts, ", ")
}

// CreateUsersTable returns the DDL that creates the users table if missing.
func (d Dialect) CreateUsersTable() string {
	switch d.Kind {
	case SQLServer:
		return `IF OBJECT_ID(N'users', N'U') IS NULL
CREATE TABLE users (
	id NVARCHAR(36) NOT NULL PRIMARY KEY,
	user_name NVARCHAR(256) NOT NULL,
	normalized_user_name NVARCHAR(256) NOT NULL,
	email NVARCHAR(256) NOT NULL,
	normalized_email NVARCHAR(256) NOT NULL,
	name NVARCHAR(256) NOT NULL,
	password_hash NVARCHAR(255) NOT NULL,
	security_stamp NVARCHAR(36) NOT NULL,
	created_at DATETIME2 NOT NULL,
	updated_at DATETIME2 NOT NULL,
	CONSTRAINT ux_users_normalized_user_name UNIQUE (normalized_user_name)
)`
	case MySQL:
		return `CREATE TABLE IF NOT EXISTS users (
	id VARCHAR(36) NOT NULL PRIMARY KEY,
	user_name VARCHAR(256) NOT NULL,
	normalized_user_name VARCHAR(256) NOT NULL,
	email VARCHAR(256) NOT NULL,
	normalized_email VARCHAR(256) NOT NULL,
	name VARCHAR(256) NOT NULL,
	password_hash VARCHAR(255) NOT NULL,
	security_stamp VARCHAR(36) NOT NULL,
	created_at DATETIME(6) NOT NULL,
	updated_at DATETIME(6) NOT NULL,
	UNIQUE KEY ux_users_normalized_user_name (normalized_user_name)
) DEFAULT CHARSET=utf8mb4`
	default:
		return `CREATE TABLE IF NOT EXISTS users (
	id TEXT NOT NULL PRIMARY KEY,
	user_name TEXT NOT NULL,
	normalized_user_name TEXT NOT NULL UNIQUE,
	email TEXT NOT NULL,
	normalized_email TEXT NOT NULL,
	name TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	security_stamp TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
)`
	}
}

func kindList() string {
	names := make([]string, len(Kinds))
	for i, k := range Kinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}
