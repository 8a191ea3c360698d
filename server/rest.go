package server

import (
	"bytes"
	"encoding/json"
	"runtime"
	"strings"

	"personyze/models"
	"personyze/settings"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
)

// params reads request parameters with JSON body values first, then form values, then the query string
type params struct {
	c    *fiber.Ctx
	json map[string]interface{}
}

func newParams(c *fiber.Ctx) *params {
	p := &params{c: c}
	if isJSON(c) && len(c.Body()) > 0 {
		dec := json.NewDecoder(bytes.NewReader(c.Body()))
		dec.UseNumber()
		if err := dec.Decode(&p.json); err != nil {
			log.WithError(err).Debug("Ignoring malformed JSON body")
		}
	}
	return p
}

func isJSON(c *fiber.Ctx) bool {
	return strings.HasPrefix(strings.ToLower(c.Get(fiber.HeaderContentType)), fiber.MIMEApplicationJSON)
}

func (p *params) Get(name string) string {
	if v, ok := p.json[name]; ok {
		return scalarString(v)
	}
	if v := p.c.FormValue(name); v != "" {
		return v
	}
	return p.c.Query(name)
}

// scalarString renders a decoded JSON value the way a form would have sent it
func scalarString(v interface{}) string {
	switch v := v.(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		if v {
			return "1"
		}
		return ""
	case nil:
		return ""
	default:
		data, _ := json.Marshal(v)
		return string(data)
	}
}

type configResponse struct {
	models.Settings
	Version   string `json:"version"`
	WPVersion string `json:"wp_version"`
	GoVersion string `json:"go_version"`
}

func (s *server) getConfig(c *fiber.Ctx) error {
	current, err := s.settings.Load(c.UserContext())
	if err != nil {
		return restError(c, err)
	}

	return c.JSON(configResponse{
		Settings:  current,
		Version:   s.version,
		WPVersion: s.wpVersion,
		GoVersion: runtime.Version(),
	})
}

func (s *server) postConfig(c *fiber.Ctx) error {
	p := newParams(c)
	submitted := settings.FromParams(
		p.Get("account_id"),
		p.Get("tracking_domains"),
		p.Get("track_add_to_cart"),
		p.Get("track_purchase"),
	)

	if err := s.settings.Save(c.UserContext(), submitted); err != nil {
		return restError(c, err)
	}

	return c.JSON("OK")
}

// postContent expands the shortcodes of every submitted value
func (s *server) postContent(c *fiber.Ctx) error {
	templates, err := bodyParams(c)
	if err != nil {
		return restError(c, err)
	}

	result := make(map[string]string, len(templates))
	for key, template := range templates {
		expanded, err := s.shortcodes.Expand(c.UserContext(), template)
		if err != nil {
			return restError(c, err)
		}
		result[key] = expanded
	}

	log.WithFields(log.Fields{
		"templates": len(templates),
	}).Debug("Expanded shortcodes")

	return c.JSON(result)
}

// bodyParams returns the key/value pairs of a JSON object or form body
func bodyParams(c *fiber.Ctx) (map[string]string, error) {
	values := map[string]string{}

	if isJSON(c) {
		if len(c.Body()) == 0 {
			return values, nil
		}
		var raw map[string]interface{}
		dec := json.NewDecoder(bytes.NewReader(c.Body()))
		dec.UseNumber()
		if err := dec.Decode(&raw); err != nil {
			return nil, models.ValidationError("Invalid JSON body")
		}
		for k, v := range raw {
			values[k] = scalarString(v)
		}
		return values, nil
	}

	if form, err := c.MultipartForm(); err == nil {
		for k, v := range form.Value {
			if len(v) > 0 {
				values[k] = v[len(v)-1]
			}
		}
		return values, nil
	}

	c.Request().PostArgs().VisitAll(func(key, value []byte) {
		values[string(key)] = string(value)
	})
	return values, nil
}

func (s *server) getStats(c *fiber.Ctx) error {
	stats, err := s.store.Stats(c.UserContext())
	if err != nil {
		return restError(c, models.QueryError(err))
	}
	return c.JSON(stats)
}

func (s *server) health(c *fiber.Ctx) error {
	if err := s.store.Ping(c.UserContext()); err != nil {
		log.WithError(err).Warn("Health check failed")
		return c.Status(fiber.StatusServiceUnavailable).SendString("database unavailable")
	}
	return c.SendString("OK")
}
