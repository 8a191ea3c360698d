package models

import "fmt"

// Kind selects which content rows a feed exports
type Kind int

const (
	// Article covers pages and posts
	Article Kind = iota
	// Product covers WooCommerce products
	Product
)

func (k Kind) String() string {
	switch k {
	case Article:
		return "article"
	case Product:
		return "product"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// PostTypes returns the post_type values that belong to the kind
func (k Kind) PostTypes() []string {
	if k == Product {
		return []string{"product"}
	}
	return []string{"page", "post"}
}

// CategoryTaxonomy is the taxonomy exported as "categories"
func (k Kind) CategoryTaxonomy() string {
	if k == Product {
		return "product_cat"
	}
	return "category"
}

// TagTaxonomy is the taxonomy exported as "interests"
func (k Kind) TagTaxonomy() string {
	if k == Product {
		return "product_tag"
	}
	return "post_tag"
}

// Record is a single exported feed row
type Record interface {
	ItemID() int64
	Common() *Item
}

// Item holds the fields shared by every exported row
type Item struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	PublishDate  string `json:"publish_date"`
	Name         string `json:"name"`
	CommentCount int64  `json:"comment_count,string"`
	Categories   string `json:"categories"`
	Interests    string `json:"interests"`
	ContentURL   string `json:"content_url"`
	Thumbnail    string `json:"thumbnail"`

	// Used to build permalinks, not exported
	PostType string `json:"-"`
	PostDate string `json:"-"`
}

// ArticleRecord is a page or post in the sitemap feed
type ArticleRecord struct {
	ID     int64   `json:"id,string"`
	Author *string `json:"author"`
	Type   string  `json:"type"`
	Item
}

func (a *ArticleRecord) ItemID() int64 { return a.ID }
func (a *ArticleRecord) Common() *Item { return &a.Item }

// ProductRecord is a product in the products feed
type ProductRecord struct {
	ID        int64   `json:"id,string"`
	Price     *string `json:"price"`
	SalePrice *string `json:"sale_price"`
	IsInStock *string `json:"is_in_stock"`
	Inventory *string `json:"inventory"`
	Item
}

func (p *ProductRecord) ItemID() int64 { return p.ID }
func (p *ProductRecord) Common() *Item { return &p.Item }

// Stats is the summary returned by the stats endpoint
type Stats struct {
	Posts    int64 `json:"n_posts,string"`
	Pages    int64 `json:"n_pages,string"`
	Products int64 `json:"n_products,string"`
}

// Settings is the plugin configuration kept in the options table
type Settings struct {
	AccountID       int64  `json:"account_id"`
	TrackingDomains string `json:"tracking_domains"`
	TrackAddToCart  bool   `json:"track_add_to_cart"`
	TrackPurchase   bool   `json:"track_purchase"`
}

// Configured reports whether the tracker can be injected
func (s Settings) Configured() bool {
	return s.AccountID > 0 && len(s.TrackingDomains) > 0
}

// CartLine is one product and quantity in a cart or an order
type CartLine struct {
	ProductID int64 `json:"internal_id"`
	Quantity  int64 `json:"quantity"`
}

// PostRef identifies a content item for page rendering and shortcodes
type PostRef struct {
	ID       int64
	Type     string
	Title    string
	Name     string
	PostDate string
}
