package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"personyze/query"

	sqlbuilder "github.com/huandu/go-sqlbuilder"
)

// DB handles all database operations with a shared connection pool
type DB struct {
	db     *sql.DB
	driver string
	flavor sqlbuilder.Flavor
	tables query.Tables
}

// Open connects to the WordPress database. driver is "mysql" or "sqlite".
func Open(driver string, dsn string, tablePrefix string) (*DB, error) {
	conn, err := connection(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	return &DB{
		db:     conn,
		driver: driver,
		flavor: flavorFor(driver),
		tables: query.Tables{Prefix: tablePrefix},
	}, nil
}

func flavorFor(driver string) sqlbuilder.Flavor {
	if driver == DriverSQLite {
		return sqlbuilder.SQLite
	}
	return sqlbuilder.MySQL
}

func (db *DB) Driver() string { return db.driver }

func (db *DB) Tables() query.Tables { return db.tables }

func (db *DB) Ping(ctx context.Context) error {
	return db.db.PingContext(ctx)
}

func (db *DB) Close() error {
	return db.db.Close()
}

// inTx runs fn in a transaction, rolling back when it fails
func (db *DB) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, rbErr)
		}
		return err
	}

	return tx.Commit()
}
