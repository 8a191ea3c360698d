package db

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	log "github.com/sirupsen/logrus"
)

// The SQLite set creates the WordPress tables the service reads, for development and tests.
// The MySQL set only creates the tables the service owns.
//
//go:embed migrations/sqlite/*.sql migrations/mysql/*.sql
var migrationFS embed.FS

const prefixPlaceholder = "{{prefix}}"

// Migrate applies every pending migration
func (db *DB) Migrate() error {
	m, err := db.migrator()
	if err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"driver": db.driver,
		"prefix": db.tables.Prefix,
	}).Info("Running migrations")

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}

	return nil
}

// Rollback reverts the last applied migration
func (db *DB) Rollback() error {
	m, err := db.migrator()
	if err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"driver": db.driver,
		"prefix": db.tables.Prefix,
	}).Info("Rolling back last migration")

	if err := m.Steps(-1); err != nil {
		return fmt.Errorf("migrate down: %w", err)
	}

	return nil
}

func (db *DB) migrator() (*migrate.Migrate, error) {
	dir := "migrations/" + db.driver
	sub, err := fs.Sub(migrationFS, dir)
	if err != nil {
		return nil, err
	}

	source, err := iofs.New(prefixFS{fs: sub, prefix: db.tables.Prefix}, ".")
	if err != nil {
		return nil, fmt.Errorf("open migrations: %w", err)
	}

	migrationsTable := db.tables.Prefix + "personyze_schema_migrations"

	var driver database.Driver
	switch db.driver {
	case DriverSQLite:
		driver, err = sqlite.WithInstance(db.db, &sqlite.Config{MigrationsTable: migrationsTable})
	case DriverMySQL:
		driver, err = migratemysql.WithInstance(db.db, &migratemysql.Config{MigrationsTable: migrationsTable})
	default:
		err = fmt.Errorf("no migrations for driver %q", db.driver)
	}
	if err != nil {
		return nil, err
	}

	return migrate.NewWithInstance("iofs", source, db.driver, driver)
}

// prefixFS substitutes the table prefix into the embedded migration files
type prefixFS struct {
	fs     fs.FS
	prefix string
}

func (p prefixFS) Open(name string) (fs.File, error) {
	f, err := p.fs.Open(name)
	if err != nil {
		return nil, err
	}

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		return f, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	data = bytes.ReplaceAll(data, []byte(prefixPlaceholder), []byte(p.prefix))

	return &memFile{Reader: bytes.NewReader(data), info: sizedInfo{FileInfo: info, size: int64(len(data))}}, nil
}

func (p prefixFS) ReadDir(name string) ([]fs.DirEntry, error) {
	return fs.ReadDir(p.fs, name)
}

type memFile struct {
	*bytes.Reader
	info fs.FileInfo
}

func (f *memFile) Stat() (fs.FileInfo, error) { return f.info, nil }
func (f *memFile) Close() error               { return nil }

type sizedInfo struct {
	fs.FileInfo
	size int64
}

func (i sizedInfo) Size() int64 { return i.size }
