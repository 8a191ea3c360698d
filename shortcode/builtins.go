package shortcode

import (
	"context"
	"strconv"

	"personyze/models"
)

// Posts looks up content for the built-in shortcodes
type Posts interface {
	Post(ctx context.Context, id int64) (*models.PostRef, error)
	PostMeta(ctx context.Context, postID int64, key string) (string, bool, error)
}

// Permalinker renders the public URL of a post
type Permalinker interface {
	Permalink(ref *models.PostRef) string
}

// SettingsLoader reads the plugin settings
type SettingsLoader interface {
	Load(ctx context.Context) (models.Settings, error)
}

// Builtins are the collaborators of the default shortcodes
type Builtins struct {
	SiteURL  string
	Posts    Posts
	Links    Permalinker
	Settings SettingsLoader
}

// NewDefaultRegistry returns a registry with site_url, permalink, post_title, product_price and personyze_account
func NewDefaultRegistry(b Builtins) *Registry {
	r := NewRegistry()

	r.Register("site_url", func(context.Context, Attrs, string) (string, error) {
		return b.SiteURL, nil
	})

	r.Register("permalink", func(ctx context.Context, attrs Attrs, _ string) (string, error) {
		ref, err := b.post(ctx, attrs)
		if err != nil || ref == nil {
			return "", err
		}
		return b.Links.Permalink(ref), nil
	})

	r.Register("post_title", func(ctx context.Context, attrs Attrs, _ string) (string, error) {
		ref, err := b.post(ctx, attrs)
		if err != nil || ref == nil {
			return "", err
		}
		return ref.Title, nil
	})

	r.Register("product_price", func(ctx context.Context, attrs Attrs, _ string) (string, error) {
		id := models.ParseInt(attrs.Get("id", attrs.Get("0", "")))
		if id <= 0 {
			return "", nil
		}
		for _, key := range []string{"_sale_price", "_regular_price"} {
			price, ok, err := b.Posts.PostMeta(ctx, id, key)
			if err != nil {
				return "", err
			}
			if ok && price != "" {
				return price, nil
			}
		}
		return "", nil
	})

	r.Register("personyze_account", func(ctx context.Context, _ Attrs, _ string) (string, error) {
		settings, err := b.Settings.Load(ctx)
		if err != nil || settings.AccountID <= 0 {
			return "", err
		}
		return strconv.FormatInt(settings.AccountID, 10), nil
	})

	return r
}

func (b Builtins) post(ctx context.Context, attrs Attrs) (*models.PostRef, error) {
	id := models.ParseInt(attrs.Get("id", attrs.Get("0", "")))
	if id <= 0 {
		return nil, nil
	}
	return b.Posts.Post(ctx, id)
}
