package server

import (
	"context"
	"strings"
	"time"

	"personyze/cart"
	"personyze/config"
	"personyze/feeds"
	"personyze/models"
	"personyze/settings"
	"personyze/shortcode"
	"personyze/tracking"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cache"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

const (
	restPrefix    = "/wp-json/personyze/v1"
	statsCacheTTL = 30 * time.Second
)

// Store is the content the server reads directly
type Store interface {
	feeds.Source
	Stats(ctx context.Context) (*models.Stats, error)
	Post(ctx context.Context, id int64) (*models.PostRef, error)
	PublishedPostBySlug(ctx context.Context, slug string, types []string) (*models.PostRef, error)
	Ping(ctx context.Context) error
}

// NonceVerifier checks the tokens sent with AJAX requests
type NonceVerifier interface {
	Verify(token, action, session string) error
}

type ServerConfig struct {
	// Public URL of the WordPress site
	SiteURL string

	// Reported by GET /config
	Version   string
	WPVersion string

	Store Store

	// Enricher returns the permalink and thumbnail resolver used for one export
	Enricher func(ctx context.Context) (feeds.Enricher, error)

	Settings   *settings.Service
	Shortcodes *shortcode.Registry
	Cart       *cart.Service
	Tracker    *tracking.Tracker
	Nonces     NonceVerifier

	Feeds feeds.FeedMap

	Admins []config.TomlAdmin
	// DevMode skips the origin check
	DevMode     bool
	TrustedHost string
	Resolve     Resolver

	AllowOrigins []string

	// WordPress to proxy front end requests to. Empty disables proxying.
	Upstream string
}

type server struct {
	siteURL    string
	version    string
	wpVersion  string
	store      Store
	enricher   func(ctx context.Context) (feeds.Enricher, error)
	settings   *settings.Service
	shortcodes *shortcode.Registry
	cart       *cart.Service
	tracker    *tracking.Tracker
	nonces     NonceVerifier
	upstream   string
}

// corsConfig allows credentials unless any origin is accepted
func corsConfig(origins []string) cors.Config {
	if lo.Contains(origins, "*") {
		return cors.Config{
			AllowOrigins: "*",
			AllowHeaders: "Authorization, Content-Type",
		}
	}
	return cors.Config{
		AllowOrigins:     strings.Join(origins, ","),
		AllowHeaders:     "Authorization, Content-Type",
		AllowCredentials: true,
	}
}

// Returns a fiber.App serving the Personyze endpoints next to a WordPress site
func Server(config *ServerConfig) *fiber.App {
	s := &server{
		siteURL:    strings.TrimRight(config.SiteURL, "/"),
		version:    config.Version,
		wpVersion:  config.WPVersion,
		store:      config.Store,
		enricher:   config.Enricher,
		settings:   config.Settings,
		shortcodes: config.Shortcodes,
		cart:       config.Cart,
		tracker:    config.Tracker,
		nonces:     config.Nonces,
		upstream:   strings.TrimRight(config.Upstream, "/"),
	}
	if s.enricher == nil {
		s.enricher = func(context.Context) (feeds.Enricher, error) { return nil, nil }
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: errorHandler,
	})

	// Middleware to track the latency of each request
	app.Use(func(c *fiber.Ctx) error {
		// start timer
		start := time.Now()

		// next routes
		err := c.Next()

		latency := time.Since(start)
		requestDuration.WithLabelValues(c.Route().Path).Observe(latency.Seconds())

		log.WithFields(log.Fields{
			"method":  c.Method(),
			"route":   c.Route().Path,
			"status":  c.Response().StatusCode(),
			"latency": latency,
		}).Info("Request")
		return err
	})

	app.Use(requestid.New(requestid.ConfigDefault))

	// Feeds are flushed record by record and must not be buffered for compression
	app.Use(compress.New(compress.Config{
		Next: func(c *fiber.Ctx) bool {
			for name := range config.Feeds {
				if c.Path() == restPrefix+"/"+name {
					return true
				}
			}
			return false
		},
	}))

	if len(config.AllowOrigins) > 0 {
		app.Use(restPrefix, cors.New(corsConfig(config.AllowOrigins)))
	}

	app.Get("/health", s.health)
	app.Get("/metrics", metricsHandler())

	// Personyze REST namespace
	rest := app.Group(restPrefix)
	if !config.DevMode {
		resolve := config.Resolve
		if resolve == nil {
			resolve = LookupIPv4
		}
		rest.Use(originCheck(config.TrustedHost, resolve))
	}
	rest.Use(adminAuth(config.Admins, restUnauthorized))

	// Cache the stats aggregate. Next runs again after the handler, so failures are never stored.
	rest.Use(cache.New(cache.Config{
		Next: func(c *fiber.Ctx) bool {
			return c.Method() != fiber.MethodGet || c.Path() != restPrefix+"/stats" ||
				c.Response().StatusCode() != fiber.StatusOK
		},
		Expiration: statsCacheTTL,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.Request().URI().String()
		},
	}))

	rest.Get("/config", s.getConfig)
	rest.Post("/config", s.postConfig)
	rest.Post("/content", s.postContent)
	rest.Get("/stats", s.getStats)
	for name, feed := range config.Feeds {
		rest.Get("/"+name, s.feedHandler(feed))
	}

	// Add to cart from Personyze widgets
	app.Post("/ajax/personyze_add_to_cart", s.addToCart)
	app.Post("/wp-admin/admin-ajax.php", s.adminAjax)

	app.Get("/snippet", s.snippet)

	// Settings screen
	admin := app.Group("/admin", adminAuth(config.Admins, pageUnauthorized))
	admin.Get("/", s.adminNotice)
	admin.Get("/personyze-config", s.getConfigPage)
	admin.Post("/personyze-config", s.postConfigPage)

	if s.upstream != "" {
		log.WithFields(log.Fields{
			"upstream": s.upstream,
		}).Info("Proxying front end requests")
		app.All("/*", s.proxyPage)
	}

	return app
}
