package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"personyze/models"

	sqlbuilder "github.com/huandu/go-sqlbuilder"
	log "github.com/sirupsen/logrus"
)

// CartStore keeps visitor carts in the plugin table and reads WooCommerce order items
type CartStore struct {
	db  *DB
	now func() time.Time
}

func NewCartStore(db *DB) *CartStore {
	return &CartStore{db: db, now: time.Now}
}

// AddToCart adds qty of a published product to the session's cart.
// It returns false without error when the product cannot be bought.
func (s *CartStore) AddToCart(ctx context.Context, session string, productID int64, qty int64) (bool, error) {
	purchasable, err := s.purchasable(ctx, productID)
	if err != nil || !purchasable {
		return false, err
	}

	now := s.now().Unix()
	err = s.db.inTx(ctx, func(tx *sql.Tx) error {
		ub := s.db.flavor.NewUpdateBuilder()
		ub.Update(s.db.tables.CartItems()).
			Set(ub.Add("quantity", qty), ub.Assign("updated_at", now)).
			Where(ub.Equal("session_key", session), ub.Equal("product_id", productID))
		query, args := ub.Build()

		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		if affected, err := res.RowsAffected(); err == nil && affected > 0 {
			return nil
		}

		ib := s.db.flavor.NewInsertBuilder()
		ib.InsertInto(s.db.tables.CartItems()).
			Cols("session_key", "product_id", "quantity", "added_at", "updated_at").
			Values(session, productID, qty, now, now)
		query, args = ib.Build()

		_, err = tx.ExecContext(ctx, query, args...)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("query error: %w", err)
	}

	log.WithFields(log.Fields{
		"product_id": productID,
		"quantity":   qty,
	}).Debug("Added product to cart")

	return true, nil
}

func (s *CartStore) purchasable(ctx context.Context, productID int64) (bool, error) {
	sb := s.db.flavor.NewSelectBuilder()
	sb.Select("COUNT(*)").
		From(s.db.tables.Posts()).
		Where(
			sb.Equal("ID", productID),
			sb.Equal("post_type", "product"),
			sb.Equal("post_status", "publish"),
		)
	query, args := sb.Build()

	var count int
	if err := s.db.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return false, fmt.Errorf("query error: %w", err)
	}
	return count > 0, nil
}

// Contents lists the session's cart in the order products were first added
func (s *CartStore) Contents(ctx context.Context, session string) ([]models.CartLine, error) {
	sb := s.db.flavor.NewSelectBuilder()
	sb.Select("product_id", "quantity").
		From(s.db.tables.CartItems()).
		Where(sb.Equal("session_key", session)).
		OrderBy("added_at", "product_id").Asc()
	query, args := sb.Build()

	rows, err := s.db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	lines := []models.CartLine{}
	for rows.Next() {
		var line models.CartLine
		if err := rows.Scan(&line.ProductID, &line.Quantity); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}

	return lines, nil
}

// OrderItems lists the product line items of a WooCommerce order
func (s *CartStore) OrderItems(ctx context.Context, orderID int64) ([]models.CartLine, error) {
	sb := s.db.flavor.NewSelectBuilder()
	sb.Select(
		fmt.Sprintf("MAX(CASE m.meta_key WHEN %s THEN m.meta_value ELSE NULL END) AS product_id", sb.Args.Add("_product_id")),
		fmt.Sprintf("MAX(CASE m.meta_key WHEN %s THEN m.meta_value ELSE NULL END) AS quantity", sb.Args.Add("_qty")),
	)
	sb.From(s.db.tables.OrderItems() + " AS oi")
	sb.JoinWithOption(sqlbuilder.LeftJoin, s.db.tables.OrderItemMeta()+" AS m", "oi.order_item_id = m.order_item_id")
	sb.Where(
		sb.Equal("oi.order_id", orderID),
		sb.Equal("oi.order_item_type", "line_item"),
	)
	sb.GroupBy("oi.order_item_id")
	sb.OrderBy("oi.order_item_id").Asc()
	query, args := sb.Build()

	rows, err := s.db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	lines := []models.CartLine{}
	for rows.Next() {
		var productID, quantity sql.NullString
		if err := rows.Scan(&productID, &quantity); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}

		line := models.CartLine{
			ProductID: parseMetaInt(productID),
			Quantity:  parseMetaInt(quantity),
		}
		if line.ProductID <= 0 {
			continue
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}

	return lines, nil
}

func parseMetaInt(s sql.NullString) int64 {
	if !s.Valid {
		return 0
	}
	return models.ParseInt(s.String)
}
