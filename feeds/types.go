// Package feeds streams the content feeds polled by Personyze
package feeds

import (
	"context"

	"personyze/models"
)

// PageSize bounds the rows held in memory while a feed is streamed
const PageSize = 100

// Source fetches one page of eligible rows with ID >= cursor in ascending ID order
type Source interface {
	FetchPage(ctx context.Context, kind models.Kind, cursor int64, limit int) ([]models.Record, error)
}

// Enricher fills the computed fields of a record before it is emitted
type Enricher interface {
	Enrich(ctx context.Context, rec models.Record) error
}

// Request describes a single feed export
type Request struct {
	Kind   models.Kind
	IDFrom int64
	// Limit <= 0 exports every remaining row
	Limit int64
}

// Feed is a route exposed by the REST surface
type Feed struct {
	ID          string
	Description string
	Kind        models.Kind
}

// FeedMap maps route names to their feeds
type FeedMap map[string]Feed

// InitializeFeeds returns the feeds served under the REST namespace
func InitializeFeeds() FeedMap {
	return FeedMap{
		"sitemap": {
			ID:          "sitemap",
			Description: "Published pages and posts",
			Kind:        models.Article,
		},
		"products": {
			ID:          "products",
			Description: "Published WooCommerce products",
			Kind:        models.Product,
		},
	}
}
