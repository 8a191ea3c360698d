package tracking_test

import (
	"context"
	"strings"
	"testing"

	"personyze/models"
	"personyze/tracking"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configured = models.Settings{AccountID: 123, TrackingDomains: "shop.example.com"}

func TestRenderSkipsUnconfigured(t *testing.T) {
	tests := []struct {
		name     string
		settings models.Settings
		page     tracking.Page
	}{
		{"no account", models.Settings{TrackingDomains: "a.com"}, tracking.Page{ObjectID: 1}},
		{"no domains", models.Settings{AccountID: 1}, tracking.Page{ObjectID: 1}},
		{"admin screen", configured, tracking.Page{ObjectID: 1, Admin: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, "", tracking.Render(tt.settings, &tt.page, "n"))
		})
	}
}

func TestRenderArticle(t *testing.T) {
	page := &tracking.Page{ObjectID: 42, PostType: "post"}
	out := tracking.Render(configured, page, "abc.def")

	assert.True(t, strings.HasPrefix(out, "<script>\n_S_T_NONCE = \"abc.def\";\n"))
	assert.Contains(t, out, "(self.personyze=self.personyze||[]).push(['Article Viewed', 42]);\n\nwindow._S_T ||")
	assert.Contains(t, out, `_S_T.setup(123, "shop.example.com")`)
	assert.Contains(t, out, `s.src = '\/\/counter.personyze.com\/stat-track-lib.js';`)
	assert.True(t, strings.HasSuffix(out, "})(document);\n</script>"))
}

func TestRenderProductWithEvents(t *testing.T) {
	page := &tracking.Page{ObjectID: 7, PostType: "product"}
	page.AddCartContents([]models.CartLine{{ProductID: 7, Quantity: 2}, {ProductID: 9, Quantity: 1}})
	page.AddPurchase([]models.CartLine{{ProductID: 3, Quantity: 4}})

	out := tracking.Render(models.Settings{AccountID: 5, TrackingDomains: "a.com/shop </script>"}, page, "n")

	want := "(self.personyze=self.personyze||[]).push(['Product Viewed', 7]);\n" +
		"(self.personyze=self.personyze||[]).push(['Products Removed from cart']);\n" +
		"(self.personyze=self.personyze||[]).push(['Product Added to cart', 7, 'quantity', 2]);\n" +
		"(self.personyze=self.personyze||[]).push(['Product Added to cart', 9, 'quantity', 1]);\n" +
		"(self.personyze=self.personyze||[]).push(['Product Purchased', 3, 'quantity', 4]);\n" +
		"\nwindow._S_T ||"
	assert.Contains(t, out, want)
	assert.Contains(t, out, `_S_T.setup(5, "a.com\/shop <\/script>")`)
	assert.Equal(t, 1, strings.Count(out, "</script>"))
}

func TestInject(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{"before head close", "<html><head><title>x</title></head><body></body></html>", "<html><head><title>x</title>S</head><body></body></html>"},
		{"upper case head", "<HTML><HEAD></HEAD></HTML>", "<HTML><HEAD>S</HEAD></HTML>"},
		{"before body close", "<p>no head</p></body>", "<p>no head</p>S</body>"},
		{"appended", "fragment", "fragmentS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, string(tracking.Inject([]byte(tt.html), "S")))
		})
	}

	assert.Equal(t, "<head></head>", string(tracking.Inject([]byte("<head></head>"), "")))
}

type fakeSettings struct{ settings models.Settings }

func (f fakeSettings) Load(context.Context) (models.Settings, error) { return f.settings, nil }

type fakeCart struct {
	contents map[string][]models.CartLine
	orders   map[int64][]models.CartLine
}

func (f *fakeCart) Contents(_ context.Context, session string) ([]models.CartLine, error) {
	return f.contents[session], nil
}

func (f *fakeCart) OrderItems(_ context.Context, orderID int64) ([]models.CartLine, error) {
	return f.orders[orderID], nil
}

type fakePosts map[int64]*models.PostRef

func (f fakePosts) Post(_ context.Context, id int64) (*models.PostRef, error) { return f[id], nil }

type fakeNonces struct{ sessions []string }

func (f *fakeNonces) Create(action, session string) (string, error) {
	f.sessions = append(f.sessions, session)
	return action + ":" + session, nil
}

func TestTrackerSnippet(t *testing.T) {
	shop := &fakeCart{
		contents: map[string][]models.CartLine{"s1": {{ProductID: 7, Quantity: 1}}},
		orders:   map[int64][]models.CartLine{90: {{ProductID: 7, Quantity: 3}}, 91: {{ProductID: 8, Quantity: 1}}},
	}
	posts := fakePosts{90: {ID: 90, Type: "shop_order"}, 91: {ID: 91, Type: "post"}}

	tests := []struct {
		name        string
		settings    models.Settings
		page        tracking.Page
		contains    []string
		notContains []string
		empty       bool
	}{
		{
			name:     "unconfigured renders nothing",
			settings: models.Settings{},
			page:     tracking.Page{ObjectID: 1},
			empty:    true,
		},
		{
			name:        "flags off",
			settings:    configured,
			page:        tracking.Page{ObjectID: 1, OrderReceived: 90},
			contains:    []string{`_S_T_NONCE = "personyze-nonce:s1";`, "'Article Viewed', 1"},
			notContains: []string{"Products Removed from cart", "Product Purchased"},
		},
		{
			name:     "cart tracking",
			settings: models.Settings{AccountID: 1, TrackingDomains: "a", TrackAddToCart: true},
			page:     tracking.Page{ObjectID: 7, PostType: "product"},
			contains: []string{"'Products Removed from cart'", "'Product Added to cart', 7, 'quantity', 1"},
		},
		{
			name:     "purchase on order received",
			settings: models.Settings{AccountID: 1, TrackingDomains: "a", TrackPurchase: true},
			page:     tracking.Page{OrderReceived: 90},
			contains: []string{"'Product Purchased', 7, 'quantity', 3"},
		},
		{
			name:        "purchase ignored when not an order",
			settings:    models.Settings{AccountID: 1, TrackingDomains: "a", TrackPurchase: true},
			page:        tracking.Page{OrderReceived: 91},
			notContains: []string{"Product Purchased"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := tracking.NewTracker(fakeSettings{tt.settings}, shop, posts, &fakeNonces{})
			out, err := tracker.Snippet(context.Background(), &tt.page, "s1")
			require.NoError(t, err)

			if tt.empty {
				assert.Empty(t, out)
				return
			}
			for _, want := range tt.contains {
				assert.Contains(t, out, want)
			}
			for _, unwanted := range tt.notContains {
				assert.NotContains(t, out, unwanted)
			}
		})
	}
}
