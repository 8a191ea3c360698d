package shortcode_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"

	"personyze/models"
	"personyze/shortcode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echo renders the tag, its sorted attributes and content so the parse is visible in the output
func echo(tag string) shortcode.Handler {
	return func(_ context.Context, attrs shortcode.Attrs, content string) (string, error) {
		keys := make([]string, 0, len(attrs))
		for k := range attrs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := []string{tag}
		for _, k := range keys {
			parts = append(parts, k+"="+attrs[k])
		}
		if content != "" {
			parts = append(parts, "content="+content)
		}
		return "<" + strings.Join(parts, "|") + ">", nil
	}
}

func TestExpand(t *testing.T) {
	r := shortcode.NewRegistry()
	r.Register("hello", echo("hello"))
	r.Register("box", echo("box"))

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no shortcodes", "plain text", "plain text"},
		{"simple", "a [hello] b", "a <hello> b"},
		{"double quoted", `[hello name="Jane Doe"]`, "<hello|name=Jane Doe>"},
		{"single quoted", `[hello name='Jane']`, "<hello|name=Jane>"},
		{"bare value", `[hello id=42 mode=full]`, "<hello|id=42|mode=full>"},
		{"names are lowercased", `[hello ID=7]`, "<hello|id=7>"},
		{"positional", `[hello first "second one"]`, "<hello|0=first|1=second one>"},
		{"self closing", `[hello id="1" /]`, "<hello|id=1>"},
		{"self closing tight", `[hello/]`, "<hello>"},
		{"enclosing", `[box color=red]inside[/box] after`, "<box|color=red|content=inside> after"},
		{"escaped", `[[hello]]`, "[hello]"},
		{"escaped with attrs", `[[hello id=1]]`, "[hello id=1]"},
		{"unknown tag kept", `[gallery ids="1,2"] [hello]`, `[gallery ids="1,2"] <hello>`},
		{"prefix of a tag is not a match", `[hello-world] [helloworld]`, `[hello-world] [helloworld]`},
		{"unterminated", `[hello id=1`, `[hello id=1`},
		{"lone bracket", `price [ 5 ]`, `price [ 5 ]`},
		{"several", `[hello][box]x[/box][hello id=2]`, "<hello><box|content=x><hello|id=2>"},
		{"enclosing tag without close", `[box] and [hello]`, "<box> and <hello>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Expand(context.Background(), tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExpandHandlerError(t *testing.T) {
	r := shortcode.NewRegistry()
	r.Register("broken", func(context.Context, shortcode.Attrs, string) (string, error) {
		return "", errors.New("Lost connection to MySQL server")
	})

	_, err := r.Expand(context.Background(), "x [broken] y")
	assert.ErrorIs(t, err, models.ErrQuery)
	assert.Equal(t, "Lost connection to MySQL server", err.Error())
}

func TestTags(t *testing.T) {
	r := shortcode.NewRegistry()
	r.Register("b", echo("b"))
	r.Register("a", echo("a"))
	assert.Equal(t, []string{"a", "b"}, r.Tags())
}

type fakePosts struct {
	posts map[int64]*models.PostRef
	meta  map[string]string
}

func (f *fakePosts) Post(_ context.Context, id int64) (*models.PostRef, error) {
	return f.posts[id], nil
}

func (f *fakePosts) PostMeta(_ context.Context, id int64, key string) (string, bool, error) {
	v, ok := f.meta[fmt.Sprintf("%d/%s", id, key)]
	return v, ok, nil
}

type fakeLinks struct{}

func (fakeLinks) Permalink(ref *models.PostRef) string {
	return fmt.Sprintf("https://shop.example.com/%s/", ref.Name)
}

type fakeSettings struct {
	settings models.Settings
}

func (f fakeSettings) Load(context.Context) (models.Settings, error) {
	return f.settings, nil
}

func TestBuiltins(t *testing.T) {
	r := shortcode.NewDefaultRegistry(shortcode.Builtins{
		SiteURL: "https://shop.example.com",
		Posts: &fakePosts{
			posts: map[int64]*models.PostRef{
				7: {ID: 7, Type: "product", Title: "Blue Shirt", Name: "blue-shirt"},
			},
			meta: map[string]string{
				"7/_regular_price": "20",
				"7/_sale_price":    "15",
				"8/_regular_price": "9",
				"8/_sale_price":    "",
			},
		},
		Links:    fakeLinks{},
		Settings: fakeSettings{settings: models.Settings{AccountID: 123}},
	})

	tests := []struct {
		in   string
		want string
	}{
		{"[site_url]", "https://shop.example.com"},
		{`[permalink id="7"]`, "https://shop.example.com/blue-shirt/"},
		{"[permalink 7]", "https://shop.example.com/blue-shirt/"},
		{"[permalink id=404]", ""},
		{"[permalink]", ""},
		{"<b>[post_title id=7]</b>", "<b>Blue Shirt</b>"},
		{"[product_price id=7]", "15"},
		{"[product_price id=8]", "9"},
		{"[product_price id=9]", ""},
		{"[personyze_account]", "123"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := r.Expand(context.Background(), tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	assert.Equal(t, []string{"permalink", "personyze_account", "post_title", "product_price", "site_url"}, r.Tags())
}
