package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// GetOption reads a value from the options table. A missing option is reported with ok = false.
func (db *DB) GetOption(ctx context.Context, name string) (value string, ok bool, err error) {
	sb := db.flavor.NewSelectBuilder()
	sb.Select("option_value").
		From(db.tables.Options()).
		Where(sb.Equal("option_name", name)).
		Limit(1)
	query, args := sb.Build()

	err = db.db.QueryRowContext(ctx, query, args...).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("query error: %w", err)
	}

	return value, true, nil
}

// GetOptions reads several options at once. Missing names are absent from the result.
func (db *DB) GetOptions(ctx context.Context, names ...string) (map[string]string, error) {
	values := make(map[string]string, len(names))
	if len(names) == 0 {
		return values, nil
	}

	in := make([]interface{}, len(names))
	for i, name := range names {
		in[i] = name
	}

	sb := db.flavor.NewSelectBuilder()
	sb.Select("option_name", "option_value").
		From(db.tables.Options()).
		Where(sb.In("option_name", in...))
	query, args := sb.Build()

	rows, err := db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		values[name] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}

	return values, nil
}

// SetOptions writes all values in one transaction, inserting options that do not exist yet
func (db *DB) SetOptions(ctx context.Context, values map[string]string) error {
	return db.inTx(ctx, func(tx *sql.Tx) error {
		for name, value := range values {
			if err := db.setOption(ctx, tx, name, value); err != nil {
				return err
			}
		}
		return nil
	})
}

func (db *DB) setOption(ctx context.Context, tx *sql.Tx, name, value string) error {
	ub := db.flavor.NewUpdateBuilder()
	ub.Update(db.tables.Options()).
		Set(ub.Assign("option_value", value)).
		Where(ub.Equal("option_name", name))
	query, args := ub.Build()

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("query error: %w", err)
	}

	// MySQL reports zero affected rows when the value is unchanged, so check for existence
	// before inserting.
	if affected, err := res.RowsAffected(); err == nil && affected > 0 {
		return nil
	}

	sb := db.flavor.NewSelectBuilder()
	sb.Select("COUNT(*)").From(db.tables.Options()).Where(sb.Equal("option_name", name))
	query, args = sb.Build()

	var count int
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return fmt.Errorf("query error: %w", err)
	}
	if count > 0 {
		return nil
	}

	ib := db.flavor.NewInsertBuilder()
	ib.InsertInto(db.tables.Options()).
		Cols("option_name", "option_value", "autoload").
		Values(name, value, "yes")
	query, args = ib.Build()

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("query error: %w", err)
	}

	log.WithFields(log.Fields{
		"option": name,
	}).Debug("Created option")

	return nil
}
