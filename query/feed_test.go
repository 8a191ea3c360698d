package query_test

import (
	"testing"

	"personyze/models"
	"personyze/query"

	"github.com/huandu/go-sqlbuilder"
	"github.com/stretchr/testify/assert"
)

func TestFeedQueryBuilder(t *testing.T) {
	tables := query.Tables{Prefix: "wp_"}

	tests := []struct {
		name        string
		kind        models.Kind
		contains    []string
		notContains []string
		leadingArgs []interface{}
	}{
		{
			name: "articles join users and use post taxonomies",
			kind: models.Article,
			contains: []string{
				"u.user_nicename AS author",
				"p.post_type AS type",
				"LEFT JOIN wp_users AS u ON p.post_author = u.ID",
				"LEFT JOIN wp_term_relationships AS ptt",
				"LEFT JOIN wp_term_taxonomy AS tt",
				"LEFT JOIN wp_terms AS t",
				"GROUP BY p.ID",
				"ORDER BY p.ID ASC",
				"p.ID >= ?",
			},
			notContains: []string{"wp_postmeta", "'publish'", "'page'", "'category'"},
			leadingArgs: []interface{}{"category", "post_tag", "", "publish", "page", "post", int64(42)},
		},
		{
			name: "products aggregate attributes",
			kind: models.Product,
			contains: []string{
				"AS price",
				"AS sale_price",
				"AS is_in_stock",
				"AS inventory",
				"LEFT JOIN wp_postmeta AS m ON p.ID = m.post_id AND m.meta_key IN (?, ?, ?, ?)",
			},
			notContains: []string{"wp_users", "'_regular_price'", "'product_cat'"},
			leadingArgs: []interface{}{
				"_regular_price", "_sale_price", "_stock_status", "instock", "_stock",
				"product_cat", "product_tag",
				"_regular_price", "_sale_price", "_stock_status", "_stock",
				"", "publish", "product", int64(42),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args := query.NewFeedQueryBuilder(sqlbuilder.SQLite, tables, tt.kind).Build(100, 42)

			for _, want := range tt.contains {
				assert.Contains(t, sql, want)
			}
			for _, unwanted := range tt.notContains {
				assert.NotContains(t, sql, unwanted)
			}
			if assert.GreaterOrEqual(t, len(args), len(tt.leadingArgs)) {
				assert.Equal(t, tt.leadingArgs, args[:len(tt.leadingArgs)])
			}
		})
	}
}

func TestFeedQueryBuilderPrefix(t *testing.T) {
	sql, _ := query.NewFeedQueryBuilder(sqlbuilder.MySQL, query.Tables{Prefix: "shop_"}, models.Article).Build(10, 0)

	assert.Contains(t, sql, "FROM shop_posts AS p")
	assert.Contains(t, sql, "shop_terms AS t")
	assert.NotContains(t, sql, "wp_")
}

func TestStatsQuery(t *testing.T) {
	sql, args := query.StatsQuery(sqlbuilder.SQLite, query.Tables{Prefix: "wp_"})

	assert.Contains(t, sql, "COUNT(*) AS n_posts")
	assert.Contains(t, sql, "AS n_pages")
	assert.Contains(t, sql, "AS n_products")
	assert.Contains(t, sql, "FROM wp_posts AS p")
	assert.Equal(t, []interface{}{"page", "product", "", "publish"}, args)
}
