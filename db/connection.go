package db

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"
)

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

func connection(driver string, dsn string) (*sql.DB, error) {
	switch driver {
	case DriverMySQL:
		return mysqlConnection(dsn)
	case DriverSQLite:
		return sqliteConnection(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

func mysqlConnection(dsn string) (*sql.DB, error) {
	db, err := sql.Open(DriverMySQL, dsn)
	if err != nil {
		return nil, err
	}

	// Set connection pool settings
	db.SetMaxOpenConns(20)                 // Allow multiple concurrent requests
	db.SetMaxIdleConns(10)                 // Keep some connections ready
	db.SetConnMaxLifetime(time.Hour)       // Recreate connections after an hour
	db.SetConnMaxIdleTime(5 * time.Minute) // MySQL closes idle connections on its own

	return db, nil
}

func sqliteConnection(database string) (*sql.DB, error) {
	// Enable foreign keys and WAL mode
	db, err := sql.Open(DriverSQLite, fmt.Sprintf("%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", database))
	if err != nil {
		return nil, err
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1)            // SQLite only supports one writer at a time
	db.SetMaxIdleConns(1)            // Keep one connection in the pool
	db.SetConnMaxLifetime(time.Hour) // Recreate connections after an hour
	db.SetConnMaxIdleTime(time.Hour) // Close idle connections after an hour

	// Configure some additional pragmas for better performance
	if _, err := db.Exec(`
		PRAGMA synchronous = NORMAL;
		PRAGMA cache_size = -32000; -- 32MB cache
		PRAGMA temp_store = MEMORY;
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set pragmas: %w", err)
	}

	return db, nil
}
