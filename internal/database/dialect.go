package database

import (
	"database/sql"
	"regexp"
	"strconv"
)

// Dialect defines the interface for database-specific operations
type Dialect interface {
	// DriverName returns the driver name for sql.Open
	DriverName() string

	// DSN returns the data source name for the connection
	DSN(config DialectConfig) string

	// RewriteQuery converts placeholder syntax if needed (e.g., ? to $1 for postgres)
	RewriteQuery(query string) string

	// SupportsLastInsertId returns true if the driver supports LastInsertId()
	SupportsLastInsertId() bool

	// ConfigureConnection applies any database-specific connection settings
	ConfigureConnection(db *sql.DB) error

	// MigrationsSubdir returns the subdirectory name for migrations (e.g., "sqlite", "postgres")
	MigrationsSubdir() string

	// CreateMigrationsTableQuery returns the SQL to create the migrations tracking table
	CreateMigrationsTableQuery() string

	// InsertIgnore turns a plain "INSERT INTO ..." statement into one that
	// silently skips rows violating a unique constraint.
	InsertIgnore(insert string) string

	// IsUniqueViolation reports whether err came from a unique or primary key constraint.
	IsUniqueViolation(err error) bool

	// ResetSequenceQuery returns the statement that moves a table's ID
	// sequence past explicitly inserted IDs, or "" when not needed.
	ResetSequenceQuery(table string) string

	// ForUpdate returns the suffix that makes a SELECT take a row lock
	// for the rest of the transaction. SQLite already locks the whole
	// database at BEGIN IMMEDIATE, so it returns "".
	ForUpdate() string
}

// DialectConfig holds configuration for database connection
type DialectConfig struct {
	// For SQLite
	Path string

	// For PostgreSQL/MySQL
	URL string
}

// placeholderRegexp matches ? placeholders
var placeholderRegexp = regexp.MustCompile(`\?`)

// rewritePlaceholdersToNumbered converts ? placeholders to $1, $2, etc.
func rewritePlaceholdersToNumbered(query string) string {
	counter := 0
	return placeholderRegexp.ReplaceAllStringFunc(query, func(match string) string {
		counter++
		return "$" + strconv.Itoa(counter)
	})
}

var insertIntoRegexp = regexp.MustCompile(`(?i)^\s*INSERT\s+INTO\s+`)
