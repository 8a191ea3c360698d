package cmd

import (
	"errors"
	"fmt"
	"os"

	"personyze/config"
	"personyze/db"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

// Version is reported by GET /config and set at build time
var Version = "dev"

func RootApp() *cli.App {
	return &cli.App{
		Name:    "personyze",
		Usage:   "Personyze integration for WordPress and WooCommerce",
		Version: Version,
		Description: `Runs next to a WordPress site and connects it to Personyze.

		Reads the WordPress tables directly and serves the content feeds, the
		settings and shortcode endpoints used by the Personyze panel. Can proxy
		the site to inject the Personyze tracking code into every page.

		Flags can generally be set via environment variables, e.g.:

		--database-dsn => PERSONYZE_DATABASE_DSN=user:pass@tcp(db:3306)/wordpress
		--listen => PERSONYZE_LISTEN=:3000
		`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "personyze.toml",
				Usage:   "Path to the site configuration file",
				EnvVars: []string{"PERSONYZE_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "database-driver",
				Value:   db.DriverSQLite,
				Usage:   "Database driver, mysql or sqlite",
				EnvVars: []string{"PERSONYZE_DATABASE_DRIVER"},
			},
			&cli.StringFlag{
				Name:    "database-dsn",
				Aliases: []string{"d"},
				Value:   "wordpress.db",
				Usage:   "MySQL DSN or SQLite database file location",
				EnvVars: []string{"PERSONYZE_DATABASE_DSN"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"PERSONYZE_LOG_LEVEL"},
			},
		},
		Before: func(ctx *cli.Context) error {
			level, err := log.ParseLevel(ctx.String("log-level"))
			if err != nil {
				return err
			}
			log.SetLevel(level)
			return nil
		},
		Commands: []*cli.Command{
			serveCmd(),
			migrateCmd(),
			rollbackCmd(),
			exportCmd(),
			statsCmd(),
			configureCmd(),
			hashPasswordCmd(),
			tidyCmd(),
		},
		Action: func(ctx *cli.Context) error {
			// Show help if no command is specified
			return ctx.App.Run([]string{"", "help"})
		},
	}
}

func Execute() {
	if err := RootApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// loadConfig reads the site configuration. A missing file falls back to the defaults unless
// the path was given explicitly.
func loadConfig(ctx *cli.Context) (*config.TomlConfig, error) {
	path := ctx.String("config")
	cfg, err := config.LoadConfig(path)
	if err == nil {
		return cfg, nil
	}

	if errors.Is(err, os.ErrNotExist) && !ctx.IsSet("config") {
		log.WithFields(log.Fields{
			"path": path,
		}).Warn("No configuration file found, using defaults")
		return config.Default(), nil
	}
	return nil, err
}

func openDatabase(ctx *cli.Context, cfg *config.TomlConfig) (*db.DB, error) {
	driver := ctx.String("database-driver")

	log.WithFields(log.Fields{
		"driver": driver,
		"prefix": cfg.Site.TablePrefix,
	}).Info("Database configured")

	database, err := db.Open(driver, ctx.String("database-dsn"), cfg.Site.TablePrefix)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}
	return database, nil
}
