package query

import (
	"fmt"

	"personyze/models"

	"github.com/huandu/go-sqlbuilder"
)

// productAttribute maps a postmeta key to an exported product column
type productAttribute struct {
	key    string
	column string
}

var productAttributes = []productAttribute{
	{key: "_regular_price", column: "price"},
	{key: "_sale_price", column: "sale_price"},
	{key: "_stock_status", column: "is_in_stock"},
	{key: "_stock", column: "inventory"},
}

// FeedQueryBuilder builds the page query of the feed exporter.
// Columns are selected in this order: id, the kind specific columns, title, description,
// publish_date, name, comment_count, categories, interests, post_type, post_date.
type FeedQueryBuilder struct {
	flavor  sqlbuilder.Flavor
	tables  Tables
	kind    models.Kind
	filters []FilterStrategy
}

func NewFeedQueryBuilder(flavor sqlbuilder.Flavor, tables Tables, kind models.Kind) *FeedQueryBuilder {
	return &FeedQueryBuilder{
		flavor: flavor,
		tables: tables,
		kind:   kind,
		filters: []FilterStrategy{
			&EligibleFilter{},
			&KindFilter{Kind: kind},
		},
	}
}

func (b *FeedQueryBuilder) AddFilter(filter FilterStrategy) {
	b.filters = append(b.filters, filter)
}

func (b *FeedQueryBuilder) Build(limit int, cursor int64) (string, []interface{}) {
	sb := b.flavor.NewSelectBuilder()

	sb.Select("p.ID AS id")
	sb.From(b.tables.Posts() + " AS p")

	switch b.kind {
	case models.Product:
		b.productColumns(sb)
	default:
		b.articleColumns(sb)
	}

	sb.SelectMore(
		"p.post_title AS title",
		"p.post_excerpt AS description",
		"p.post_modified_gmt AS publish_date",
		"p.post_name AS name",
		"p.comment_count AS comment_count",
		taxonomyList(sb, b.kind.CategoryTaxonomy(), "categories"),
		taxonomyList(sb, b.kind.TagTaxonomy(), "interests"),
		"p.post_type AS post_type",
		"p.post_date AS post_date",
	)

	sb.JoinWithOption(sqlbuilder.LeftJoin, b.tables.TermRelationships()+" AS ptt", "p.ID = ptt.object_id")
	sb.JoinWithOption(sqlbuilder.LeftJoin, b.tables.TermTaxonomy()+" AS tt", "ptt.term_taxonomy_id = tt.term_taxonomy_id")
	sb.JoinWithOption(sqlbuilder.LeftJoin, b.tables.Terms()+" AS t", "tt.term_id = t.term_id")

	for _, filter := range b.filters {
		filter.ApplyFilter(sb)
	}
	(&CursorFilter{From: cursor}).ApplyFilter(sb)

	sb.GroupBy("p.ID")
	sb.OrderBy("p.ID").Asc()
	sb.Limit(limit)

	return sb.Build()
}

func (b *FeedQueryBuilder) articleColumns(sb *sqlbuilder.SelectBuilder) {
	sb.SelectMore(
		"u.user_nicename AS author",
		"p.post_type AS type",
	)
	sb.JoinWithOption(sqlbuilder.LeftJoin, b.tables.Users()+" AS u", "p.post_author = u.ID")
}

func (b *FeedQueryBuilder) productColumns(sb *sqlbuilder.SelectBuilder) {
	keys := make([]interface{}, 0, len(productAttributes))
	for _, attr := range productAttributes {
		keys = append(keys, attr.key)
		if attr.column == "is_in_stock" {
			sb.SelectMore(fmt.Sprintf(
				"MAX(CASE m.meta_key WHEN %s THEN CASE m.meta_value WHEN %s THEN 'yes' ELSE 'no' END ELSE NULL END) AS %s",
				sb.Args.Add(attr.key), sb.Args.Add("instock"), attr.column,
			))
			continue
		}
		sb.SelectMore(fmt.Sprintf(
			"MAX(CASE m.meta_key WHEN %s THEN m.meta_value ELSE NULL END) AS %s",
			sb.Args.Add(attr.key), attr.column,
		))
	}

	// Only the attribute rows are joined so the fan-out stays small
	sb.JoinWithOption(sqlbuilder.LeftJoin, b.tables.PostMeta()+" AS m",
		"p.ID = m.post_id",
		sb.In("m.meta_key", keys...),
	)
}

// taxonomyList aggregates the distinct term names of one taxonomy into a comma separated list
func taxonomyList(sb *sqlbuilder.SelectBuilder, taxonomy string, alias string) string {
	return fmt.Sprintf(
		"COALESCE(GROUP_CONCAT(DISTINCT CASE tt.taxonomy WHEN %s THEN t.name ELSE NULL END), '') AS %s",
		sb.Args.Add(taxonomy), alias,
	)
}

var _ Builder = (*FeedQueryBuilder)(nil)
