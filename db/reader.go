package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"personyze/models"
	"personyze/query"

	sqlbuilder "github.com/huandu/go-sqlbuilder"
	log "github.com/sirupsen/logrus"
)

// FetchPage returns up to limit eligible rows of the kind with ID >= cursor, in ascending ID order
func (db *DB) FetchPage(ctx context.Context, kind models.Kind, cursor int64, limit int) ([]models.Record, error) {
	sql, args := query.NewFeedQueryBuilder(db.flavor, db.tables, kind).Build(limit, cursor)

	log.WithFields(log.Fields{
		"kind":   kind,
		"cursor": cursor,
		"limit":  limit,
	}).Debug("Fetching feed page")

	rows, err := db.db.QueryContext(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	records := make([]models.Record, 0, limit)
	for rows.Next() {
		var record models.Record
		switch kind {
		case models.Product:
			record, err = scanProduct(rows)
		default:
			record, err = scanArticle(rows)
		}
		if err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}

	return records, nil
}

// The destinations follow the column order documented on query.FeedQueryBuilder

func scanArticle(rows *sql.Rows) (models.Record, error) {
	var (
		a      models.ArticleRecord
		author sql.NullString
	)
	err := rows.Scan(
		&a.ID,
		&author,
		&a.Type,
		&a.Title,
		&a.Description,
		&a.PublishDate,
		&a.Name,
		&a.CommentCount,
		&a.Categories,
		&a.Interests,
		&a.PostType,
		&a.PostDate,
	)
	if err != nil {
		return nil, err
	}
	a.Author = nullable(author)
	return &a, nil
}

func scanProduct(rows *sql.Rows) (models.Record, error) {
	var (
		p                                   models.ProductRecord
		price, salePrice, inStock, quantity sql.NullString
	)
	err := rows.Scan(
		&p.ID,
		&price,
		&salePrice,
		&inStock,
		&quantity,
		&p.Title,
		&p.Description,
		&p.PublishDate,
		&p.Name,
		&p.CommentCount,
		&p.Categories,
		&p.Interests,
		&p.PostType,
		&p.PostDate,
	)
	if err != nil {
		return nil, err
	}
	p.Price = nullable(price)
	p.SalePrice = nullable(salePrice)
	p.IsInStock = nullable(inStock)
	p.Inventory = nullable(quantity)
	return &p, nil
}

func nullable(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

// Stats counts the exportable content
func (db *DB) Stats(ctx context.Context) (*models.Stats, error) {
	sql, args := query.StatsQuery(db.flavor, db.tables)

	var stats models.Stats
	err := db.db.QueryRowContext(ctx, sql, args...).Scan(&stats.Posts, &stats.Pages, &stats.Products)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}

	return &stats, nil
}

// Post returns a single post of any status, or nil when it does not exist
func (db *DB) Post(ctx context.Context, id int64) (*models.PostRef, error) {
	sb := db.flavor.NewSelectBuilder()
	sb.Select("ID", "post_type", "post_title", "post_name", "post_date").
		From(db.tables.Posts()).
		Where(sb.Equal("ID", id))

	return db.queryPostRef(ctx, sb)
}

// PublishedPostBySlug looks up a published post by its slug, restricted to the given post types
func (db *DB) PublishedPostBySlug(ctx context.Context, slug string, types []string) (*models.PostRef, error) {
	values := make([]interface{}, len(types))
	for i, t := range types {
		values[i] = t
	}

	sb := db.flavor.NewSelectBuilder()
	sb.Select("ID", "post_type", "post_title", "post_name", "post_date").
		From(db.tables.Posts()).
		Where(
			sb.Equal("post_name", slug),
			sb.Equal("post_status", "publish"),
			sb.In("post_type", values...),
		).
		OrderBy("ID").Asc().
		Limit(1)

	return db.queryPostRef(ctx, sb)
}

func (db *DB) queryPostRef(ctx context.Context, sb *sqlbuilder.SelectBuilder) (*models.PostRef, error) {
	query, args := sb.Build()

	var ref models.PostRef
	err := db.db.QueryRowContext(ctx, query, args...).Scan(&ref.ID, &ref.Type, &ref.Title, &ref.Name, &ref.PostDate)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}

	return &ref, nil
}

// PostMeta returns the highest value stored for key on the post
func (db *DB) PostMeta(ctx context.Context, postID int64, key string) (string, bool, error) {
	sb := db.flavor.NewSelectBuilder()
	sb.Select("MAX(meta_value)").
		From(db.tables.PostMeta()).
		Where(sb.Equal("post_id", postID), sb.Equal("meta_key", key))
	query, args := sb.Build()

	var value sql.NullString
	if err := db.db.QueryRowContext(ctx, query, args...).Scan(&value); err != nil {
		return "", false, fmt.Errorf("query error: %w", err)
	}

	return value.String, value.Valid, nil
}
