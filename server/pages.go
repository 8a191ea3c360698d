package server

import (
	"embed"
	"html/template"
	"regexp"
	"strings"

	"personyze/models"
	"personyze/settings"
	"personyze/tracking"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/proxy"
	log "github.com/sirupsen/logrus"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

const configPagePath = "/admin/personyze-config"

var orderReceivedPattern = regexp.MustCompile(`/order-received/(\d+)/?$`)

// resolvePage works out which content a front end URL shows
func (s *server) resolvePage(c *fiber.Ctx) (*tracking.Page, error) {
	page := &tracking.Page{}
	path := c.Path()

	if strings.HasPrefix(path, "/wp-admin") || strings.HasPrefix(path, "/wp-login.php") {
		page.Admin = true
		return page, nil
	}

	if m := orderReceivedPattern.FindStringSubmatch(path); m != nil {
		page.OrderReceived = models.ParseInt(m[1])
	} else if id := models.ParseInt(c.Query("order-received")); id > 0 {
		page.OrderReceived = id
	}

	ctx := c.UserContext()
	var (
		ref *models.PostRef
		err error
	)
	switch {
	case c.Query("p") != "":
		ref, err = s.store.Post(ctx, models.ParseInt(c.Query("p")))
	case c.Query("page_id") != "":
		ref, err = s.store.Post(ctx, models.ParseInt(c.Query("page_id")))
	case c.Query("product") != "":
		ref, err = s.store.PublishedPostBySlug(ctx, c.Query("product"), []string{"product"})
	case page.OrderReceived == 0:
		if slug := lastSegment(path); slug != "" {
			ref, err = s.store.PublishedPostBySlug(ctx, slug, []string{"post", "page", "product"})
		}
	}
	if err != nil {
		return nil, models.QueryError(err)
	}

	if ref != nil {
		page.ObjectID = ref.ID
		page.PostType = ref.Type
	}
	return page, nil
}

func lastSegment(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	return segments[len(segments)-1]
}

// snippet renders the tracking code for themes that include it server side
func (s *server) snippet(c *fiber.Ctx) error {
	sessionID := session(c)
	page := &tracking.Page{
		ObjectID:      models.ParseInt(c.Query("object_id")),
		PostType:      c.Query("type"),
		OrderReceived: models.ParseInt(c.Query("order_received")),
	}

	out, err := s.tracker.Snippet(c.UserContext(), page, sessionID)
	if err != nil {
		return restError(c, err)
	}

	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.SendString(out)
}

// proxyPage forwards a request to WordPress and injects the snippet into HTML pages
func (s *server) proxyPage(c *fiber.Ctx) error {
	sessionID := session(c)

	// the body is rewritten, so ask upstream for plain text
	c.Request().Header.Del(fiber.HeaderAcceptEncoding)

	if err := proxy.Do(c, s.upstream+c.OriginalURL()); err != nil {
		return err
	}

	contentType := strings.ToLower(string(c.Response().Header.ContentType()))
	if c.Response().StatusCode() != fiber.StatusOK || !strings.HasPrefix(contentType, fiber.MIMETextHTML) {
		return nil
	}

	page, err := s.resolvePage(c)
	if err != nil {
		log.WithError(err).Warn("Could not resolve proxied page")
		return nil
	}

	out, err := s.tracker.Snippet(c.UserContext(), page, sessionID)
	if err != nil {
		log.WithError(err).Warn("Could not render tracking snippet")
		return nil
	}

	c.Response().SetBodyRaw(tracking.Inject(c.Response().Body(), out))
	return nil
}

type configPage struct {
	Settings models.Settings
	SiteURL  string
	Action   string
	Error    string
	Saved    bool
}

func (s *server) renderConfigPage(c *fiber.Ctx, data configPage) error {
	data.SiteURL = s.siteURL + "/"
	data.Action = configPagePath

	var out strings.Builder
	if err := templates.ExecuteTemplate(&out, "config.html", data); err != nil {
		return err
	}

	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.SendString(out.String())
}

func (s *server) getConfigPage(c *fiber.Ctx) error {
	current, err := s.settings.Load(c.UserContext())
	if err != nil {
		return err
	}
	return s.renderConfigPage(c, configPage{Settings: current})
}

func (s *server) postConfigPage(c *fiber.Ctx) error {
	submitted := settings.FromParams(
		c.FormValue("account_id"),
		c.FormValue("tracking_domains"),
		c.FormValue("track_add_to_cart"),
		c.FormValue("track_purchase"),
	)

	if err := s.settings.Save(c.UserContext(), submitted); err != nil {
		status, _ := classify(err)
		c.Status(status)
		return s.renderConfigPage(c, configPage{Settings: submitted, Error: err.Error()})
	}

	return s.renderConfigPage(c, configPage{Settings: submitted, Saved: true})
}

// adminNotice shows the setup reminder while the tracker is not configured
func (s *server) adminNotice(c *fiber.Ctx) error {
	current, err := s.settings.Load(c.UserContext())
	if err != nil {
		return err
	}

	var out strings.Builder
	err = templates.ExecuteTemplate(&out, "notice.html", map[string]interface{}{
		"Configured": current.Configured(),
		"Link":       configPagePath,
	})
	if err != nil {
		return err
	}

	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.SendString(out.String())
}
