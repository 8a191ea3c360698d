package db

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

// TidyCarts removes cart lines that have not been touched for maxAge
func (s *CartStore) TidyCarts(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := s.now().Add(-maxAge).Unix()

	deleteItems := s.db.flavor.NewDeleteBuilder()
	sql, args := deleteItems.DeleteFrom(s.db.tables.CartItems()).
		Where(deleteItems.LessThan("updated_at", cutoff)).
		Build()

	log.WithFields(log.Fields{
		"sql":  sql,
		"args": args,
	}).Info("Tidying carts")

	res, err := s.db.db.ExecContext(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("query error: %w", err)
	}

	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("query error: %w", err)
	}

	return removed, nil
}
