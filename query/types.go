package query

import (
	"github.com/huandu/go-sqlbuilder"
)

// Builder builds SQL queries for feed pagination
type Builder interface {
	Build(limit int, cursor int64) (string, []interface{})
}

// FilterStrategy adds WHERE conditions to the query
type FilterStrategy interface {
	// ApplyFilter adds filter conditions to the query builder
	ApplyFilter(sb *sqlbuilder.SelectBuilder)
}

// Tables resolves WordPress table names for a given table prefix.
// The prefix is validated when the configuration is loaded.
type Tables struct {
	Prefix string
}

func (t Tables) Posts() string             { return t.Prefix + "posts" }
func (t Tables) PostMeta() string          { return t.Prefix + "postmeta" }
func (t Tables) Users() string             { return t.Prefix + "users" }
func (t Tables) Terms() string             { return t.Prefix + "terms" }
func (t Tables) TermTaxonomy() string      { return t.Prefix + "term_taxonomy" }
func (t Tables) TermRelationships() string { return t.Prefix + "term_relationships" }
func (t Tables) Options() string           { return t.Prefix + "options" }
func (t Tables) OrderItems() string        { return t.Prefix + "woocommerce_order_items" }
func (t Tables) OrderItemMeta() string     { return t.Prefix + "woocommerce_order_itemmeta" }
func (t Tables) CartItems() string         { return t.Prefix + "personyze_cart_items" }
