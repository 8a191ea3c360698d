// Package shortcode expands WordPress shortcodes in template strings
package shortcode

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"

	"personyze/models"

	"github.com/samber/lo"
)

// Attrs holds the attributes of one shortcode. Positional values are keyed "0", "1", ...
type Attrs map[string]string

// Get returns the attribute or def when it is absent
func (a Attrs) Get(name, def string) string {
	if v, ok := a[name]; ok {
		return v
	}
	return def
}

// Handler renders a shortcode. content is the raw text between the opening and closing tags.
type Handler func(ctx context.Context, attrs Attrs, content string) (string, error)

// Registry maps tags to handlers
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

func (r *Registry) Register(tag string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[tag] = h
}

// Tags lists the registered tags in alphabetical order
func (r *Registry) Tags() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tags := lo.Keys(r.handlers)
	sort.Strings(tags)
	return tags
}

func (r *Registry) handler(tag string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[tag]
	return h, ok
}

// Expand replaces every registered shortcode in text with its rendering.
// Unknown tags are left untouched and [[tag]] renders as the literal [tag].
func (r *Registry) Expand(ctx context.Context, text string) (string, error) {
	if !strings.Contains(text, "[") {
		return text, nil
	}

	var out strings.Builder
	i := 0
	for i < len(text) {
		open := strings.IndexByte(text[i:], '[')
		if open < 0 {
			out.WriteString(text[i:])
			break
		}
		open += i
		out.WriteString(text[i:open])

		sc, ok := r.match(text, open)
		if !ok {
			out.WriteByte('[')
			i = open + 1
			continue
		}

		if sc.escaped {
			out.WriteString(text[sc.start+1 : sc.end-1])
			i = sc.end
			continue
		}

		h, _ := r.handler(sc.tag)
		rendered, err := h(ctx, sc.attrs, sc.content)
		if err != nil {
			return "", models.QueryError(err)
		}
		out.WriteString(rendered)
		i = sc.end
	}

	return out.String(), nil
}

type shortcode struct {
	tag     string
	attrs   Attrs
	content string
	start   int
	end     int
	escaped bool
}

// match parses a registered shortcode starting at text[start] == '['
func (r *Registry) match(text string, start int) (shortcode, bool) {
	pos := start + 1
	doubled := pos < len(text) && text[pos] == '['
	if doubled {
		pos++
	}

	nameEnd := pos
	for nameEnd < len(text) && isTagChar(text[nameEnd]) {
		nameEnd++
	}
	if nameEnd == pos || nameEnd == len(text) {
		return shortcode{}, false
	}
	tag := text[pos:nameEnd]
	if _, ok := r.handler(tag); !ok {
		return shortcode{}, false
	}
	// the tag name must end at a boundary
	if c := text[nameEnd]; c != ']' && c != '/' && !isSpace(c) {
		return shortcode{}, false
	}

	closeBracket := strings.IndexByte(text[nameEnd:], ']')
	if closeBracket < 0 {
		return shortcode{}, false
	}
	closeBracket += nameEnd

	rawAttrs := text[nameEnd:closeBracket]
	selfClosing := strings.HasSuffix(rawAttrs, "/")
	if selfClosing {
		rawAttrs = rawAttrs[:len(rawAttrs)-1]
	}

	sc := shortcode{
		tag:   tag,
		attrs: parseAttrs(rawAttrs),
		start: start,
		end:   closeBracket + 1,
	}

	if !selfClosing {
		closing := "[/" + tag + "]"
		if idx := strings.Index(text[sc.end:], closing); idx >= 0 {
			sc.content = text[sc.end : sc.end+idx]
			sc.end += idx + len(closing)
		}
	}

	if doubled {
		if sc.end < len(text) && text[sc.end] == ']' {
			sc.end++
			sc.escaped = true
			return sc, true
		}
		// "[[tag]" renders the tag after a literal bracket
		return shortcode{}, false
	}

	return sc, true
}

func isTagChar(c byte) bool {
	switch c {
	case '<', '>', '&', '/', '[', ']', '=', '"', '\'':
		return false
	}
	return c > ' '
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}

// parseAttrs reads name="value", name='value', name=value and positional values
func parseAttrs(raw string) Attrs {
	attrs := Attrs{}
	positional := 0

	s := strings.TrimSpace(raw)
	for len(s) > 0 {
		var name, value string

		nameLen := 0
		for nameLen < len(s) && isAttrNameChar(s[nameLen]) {
			nameLen++
		}

		rest := strings.TrimLeft(s[nameLen:], " \t\n\r")
		if nameLen > 0 && strings.HasPrefix(rest, "=") {
			name = strings.ToLower(s[:nameLen])
			value, s = readValue(strings.TrimLeft(rest[1:], " \t\n\r"))
			attrs[name] = value
		} else {
			value, s = readValue(s)
			attrs[strconv.Itoa(positional)] = value
			positional++
		}

		s = strings.TrimLeft(s, " \t\n\r")
	}

	return attrs
}

func isAttrNameChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_' || c == '-'
}

// readValue reads one quoted or bare value and returns the remainder
func readValue(s string) (string, string) {
	if s == "" {
		return "", ""
	}

	if q := s[0]; q == '"' || q == '\'' {
		if end := strings.IndexByte(s[1:], q); end >= 0 {
			return s[1 : end+1], s[end+2:]
		}
		return s[1:], ""
	}

	end := strings.IndexAny(s, " \t\n\r")
	if end < 0 {
		return s, ""
	}
	return s[:end], s[end:]
}
