package query

import (
	"fmt"

	"github.com/huandu/go-sqlbuilder"
)

// StatsQuery counts the published, non protected rows, and among them pages and products
func StatsQuery(flavor sqlbuilder.Flavor, tables Tables) (string, []interface{}) {
	sb := flavor.NewSelectBuilder()
	sb.Select(
		"COUNT(*) AS n_posts",
		fmt.Sprintf("COALESCE(SUM(CASE WHEN p.post_type = %s THEN 1 ELSE 0 END), 0) AS n_pages", sb.Args.Add("page")),
		fmt.Sprintf("COALESCE(SUM(CASE WHEN p.post_type = %s THEN 1 ELSE 0 END), 0) AS n_products", sb.Args.Add("product")),
	)
	sb.From(tables.Posts() + " AS p")
	(&EligibleFilter{}).ApplyFilter(sb)

	return sb.Build()
}
