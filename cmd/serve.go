package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"personyze/cart"
	"personyze/config"
	"personyze/db"
	"personyze/feeds"
	"personyze/nonce"
	"personyze/server"
	"personyze/settings"
	"personyze/shortcode"
	"personyze/tracking"

	"github.com/cenkalti/backoff/v4"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

const tidyInterval = time.Hour

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the Personyze endpoints",
		Description: `Starts the HTTP server with the Personyze REST routes, the add to
		cart endpoint and the settings screen.

		When the configuration names an upstream, every other request is proxied
		to WordPress and the tracking code is injected into HTML pages.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "listen",
				Aliases: []string{"l"},
				Value:   ":3000",
				Usage:   "Address to listen on",
				EnvVars: []string{"PERSONYZE_LISTEN"},
			},
			&cli.BoolFlag{
				Name:    "migrate",
				Usage:   "Run database migrations before serving",
				EnvVars: []string{"PERSONYZE_MIGRATE"},
			},
		},
		Action: func(ctx *cli.Context) error {
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}

			database, err := openDatabase(ctx, cfg)
			if err != nil {
				return err
			}
			defer database.Close()

			if err := waitForDatabase(ctx.Context, database); err != nil {
				return err
			}

			if ctx.Bool("migrate") {
				if err := database.Migrate(); err != nil {
					return err
				}
			}

			app, cartStore, err := buildServer(ctx.Context, cfg, database)
			if err != nil {
				return err
			}

			// Graceful shutdown
			sigCtx, stop := signal.NotifyContext(ctx.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			if cartStore != nil {
				go tidyPeriodically(sigCtx, cartStore, cfg.WooCommerce.CartMaxAge.Duration)
			}

			listenErr := make(chan error, 1)
			go func() {
				log.WithFields(log.Fields{
					"listen": ctx.String("listen"),
				}).Info("Starting server")
				listenErr <- app.Listen(ctx.String("listen"))
			}()

			select {
			case err := <-listenErr:
				return err
			case <-sigCtx.Done():
			}

			log.Info("Gracefully shutting down...")
			if err := app.ShutdownWithTimeout(60 * time.Second); err != nil {
				log.WithError(err).Error("Shutdown did not complete")
			}

			log.Info("Done!")
			return nil
		},
	}
}

// waitForDatabase pings the database until it answers, giving up after a minute
func waitForDatabase(ctx context.Context, database *db.DB) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = time.Minute

	return backoff.RetryNotify(func() error {
		return database.Ping(ctx)
	}, backoff.WithContext(b, ctx), func(err error, next time.Duration) {
		log.WithFields(log.Fields{
			"retry_in": next,
		}).WithError(err).Warn("Database not reachable")
	})
}

func buildServer(ctx context.Context, cfg *config.TomlConfig, database *db.DB) (*fiber.App, *db.CartStore, error) {
	secret := cfg.Security.NonceSecret
	if secret == "" {
		secret = uuid.NewString()
		log.Warn("No nonce secret configured, nonces will not survive a restart")
	}
	nonces := nonce.NewIssuer(secret, cfg.Security.NonceLifetime.Duration)

	settingsSvc := settings.NewService(database)

	var cartStore *db.CartStore
	cartSvc := cart.NewService(nil)
	if cfg.WooCommerce.Enabled {
		cartStore = db.NewCartStore(database)
		cartSvc = cart.NewService(cartStore)
	}

	links, err := db.NewLinks(ctx, database, cfg.Site.URL)
	if err != nil {
		return nil, nil, err
	}

	shortcodes := shortcode.NewDefaultRegistry(shortcode.Builtins{
		SiteURL:  cfg.Site.URL,
		Posts:    database,
		Links:    links,
		Settings: settingsSvc,
	})

	app := server.Server(&server.ServerConfig{
		SiteURL:   cfg.Site.URL,
		Version:   Version,
		WPVersion: cfg.Site.WPVersion,
		Store:     database,
		// The permalink structure is reloaded for every export
		Enricher: func(ctx context.Context) (feeds.Enricher, error) {
			links, err := db.NewLinks(ctx, database, cfg.Site.URL)
			if err != nil {
				return nil, err
			}
			return links, nil
		},
		Settings:     settingsSvc,
		Shortcodes:   shortcodes,
		Cart:         cartSvc,
		Tracker:      tracking.NewTracker(settingsSvc, cartSvc, database, nonces),
		Nonces:       nonces,
		Feeds:        feeds.InitializeFeeds(),
		Admins:       cfg.Security.Admins,
		DevMode:      cfg.Security.DevMode,
		TrustedHost:  cfg.Security.TrustedHost,
		AllowOrigins: cfg.Security.AllowOrigins,
		Upstream:     cfg.Site.Upstream,
	})

	if len(cfg.Security.Admins) == 0 {
		log.Warn("No admins configured, the REST routes will reject every request")
	}

	return app, cartStore, nil
}

func tidyPeriodically(ctx context.Context, store *db.CartStore, maxAge time.Duration) {
	ticker := time.NewTicker(tidyInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := store.TidyCarts(ctx, maxAge)
			if err != nil && !errors.Is(err, context.Canceled) {
				log.WithError(err).Error("Could not tidy carts")
				continue
			}
			log.WithFields(log.Fields{
				"removed": removed,
			}).Debug("Tidied carts")
		}
	}
}
