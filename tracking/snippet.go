// Package tracking renders the Personyze tracking snippet for a page view
package tracking

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"personyze/models"

	"github.com/valyala/fasttemplate"
)

const snippetTemplate = `<script>
_S_T_NONCE = {{nonce}};
(self.personyze=self.personyze||[]).push(['{{what}} Viewed', {{object_id}}]);
{{events}}
window._S_T ||
(function(d){
	var s = d.createElement('script'),
		u = s.onload===undefined && s.onreadystatechange===undefined,
		i = 0,
		f = function() {window._S_T ? (_S_T.async=true) && _S_T.setup({{account_id}}, {{tracking_domains}}) : i++<120 && setTimeout(f, 600)},
		h = d.getElementsByTagName('head');
	s.async = true;
	s.src = '\/\/counter.personyze.com\/stat-track-lib.js';
	s.onload = s.onreadystatechange = f;
	(h && h[0] || d.documentElement).appendChild(s);
	if (u) f();
})(document);
</script>`

var snippet = fasttemplate.New(snippetTemplate, "{{", "}}")

// Page is the request scoped context of one rendered page
type Page struct {
	ObjectID int64
	PostType string
	Admin    bool
	// OrderReceived is the order shown on the checkout thank-you endpoint, 0 elsewhere
	OrderReceived int64

	events []string
}

// AddCartContents replaces the tracked cart with lines
func (p *Page) AddCartContents(lines []models.CartLine) {
	p.events = append(p.events, push("'Products Removed from cart'"))
	for _, line := range lines {
		p.events = append(p.events, push(fmt.Sprintf("'Product Added to cart', %d, 'quantity', %d", line.ProductID, line.Quantity)))
	}
}

// AddPurchase records the purchased lines of an order
func (p *Page) AddPurchase(lines []models.CartLine) {
	for _, line := range lines {
		p.events = append(p.events, push(fmt.Sprintf("'Product Purchased', %d, 'quantity', %d", line.ProductID, line.Quantity)))
	}
}

// Events returns the queued event statements
func (p *Page) Events() []string {
	return p.events
}

func push(args string) string {
	return "(self.personyze=self.personyze||[]).push([" + args + "]);\n"
}

// Render returns the snippet, or "" when tracking is not configured or the page is an admin screen
func Render(settings models.Settings, page *Page, nonce string) string {
	if !settings.Configured() || page.Admin {
		return ""
	}

	what := "Article"
	if page.PostType == "product" {
		what = "Product"
	}

	return snippet.ExecuteString(map[string]interface{}{
		"nonce":            jsString(nonce),
		"what":             what,
		"object_id":        strconv.FormatInt(page.ObjectID, 10),
		"events":           strings.Join(page.events, ""),
		"account_id":       strconv.FormatInt(settings.AccountID, 10),
		"tracking_domains": jsString(settings.TrackingDomains),
	})
}

// jsString encodes s as a JSON string literal that is safe inside a script element
func jsString(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	return strings.ReplaceAll(strings.TrimSuffix(buf.String(), "\n"), "/", `\/`)
}

var (
	headClose = []byte("</head>")
	bodyClose = []byte("</body>")
)

// Inject inserts the snippet before </head>, else before </body>, else at the end of the document
func Inject(html []byte, snippet string) []byte {
	if snippet == "" {
		return html
	}

	lower := asciiLower(html)
	idx := bytes.Index(lower, headClose)
	if idx < 0 {
		idx = bytes.LastIndex(lower, bodyClose)
	}
	if idx < 0 {
		idx = len(html)
	}

	out := make([]byte, 0, len(html)+len(snippet))
	out = append(out, html[:idx]...)
	out = append(out, snippet...)
	out = append(out, html[idx:]...)
	return out
}

// asciiLower lowercases A-Z only so byte offsets match the input
func asciiLower(b []byte) []byte {
	out := make([]byte, len(b))
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		out[i] = c
	}
	return out
}
