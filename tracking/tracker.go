package tracking

import (
	"context"
	"fmt"

	"personyze/models"
	"personyze/nonce"

	log "github.com/sirupsen/logrus"
)

type SettingsLoader interface {
	Load(ctx context.Context) (models.Settings, error)
}

// CartReader lists cart and order lines
type CartReader interface {
	Contents(ctx context.Context, session string) ([]models.CartLine, error)
	OrderItems(ctx context.Context, orderID int64) ([]models.CartLine, error)
}

type PostLookup interface {
	Post(ctx context.Context, id int64) (*models.PostRef, error)
}

type NonceIssuer interface {
	Create(action, session string) (string, error)
}

// Tracker assembles the snippet of a page from the current settings, cart and order
type Tracker struct {
	settings SettingsLoader
	cart     CartReader
	posts    PostLookup
	nonces   NonceIssuer
}

func NewTracker(settings SettingsLoader, cart CartReader, posts PostLookup, nonces NonceIssuer) *Tracker {
	return &Tracker{settings: settings, cart: cart, posts: posts, nonces: nonces}
}

// Snippet renders the tracking code for page as seen by session
func (t *Tracker) Snippet(ctx context.Context, page *Page, session string) (string, error) {
	settings, err := t.settings.Load(ctx)
	if err != nil {
		return "", err
	}
	if !settings.Configured() || page.Admin {
		return "", nil
	}

	if settings.TrackAddToCart && session != "" {
		lines, err := t.cart.Contents(ctx, session)
		if err != nil {
			return "", err
		}
		page.AddCartContents(lines)
	}

	if settings.TrackPurchase && page.OrderReceived > 0 {
		if err := t.addPurchase(ctx, page); err != nil {
			return "", err
		}
	}

	token, err := t.nonces.Create(nonce.Action, session)
	if err != nil {
		return "", fmt.Errorf("create nonce: %w", err)
	}

	log.WithFields(log.Fields{
		"object_id": page.ObjectID,
		"post_type": page.PostType,
		"events":    len(page.Events()),
	}).Debug("Rendering tracking snippet")

	return Render(settings, page, token), nil
}

func (t *Tracker) addPurchase(ctx context.Context, page *Page) error {
	order, err := t.posts.Post(ctx, page.OrderReceived)
	if err != nil {
		return models.QueryError(err)
	}
	if order == nil || order.Type != "shop_order" {
		return nil
	}

	lines, err := t.cart.OrderItems(ctx, page.OrderReceived)
	if err != nil {
		return err
	}
	page.AddPurchase(lines)
	return nil
}
