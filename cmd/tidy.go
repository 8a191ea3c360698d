package cmd

import (
	"errors"

	"personyze/db"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func tidyCmd() *cli.Command {
	return &cli.Command{
		Name:  "tidy",
		Usage: "Tidy up the database",
		Description: `Tidy up the database by removing abandoned carts.

		Removes cart sessions that have not been touched for longer than the
		configured cart_max_age (48 hours by default). The serve command does
		this every hour on its own.`,
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "max-age",
				Usage: "Override the cart age from the configuration file",
			},
		},
		Action: func(ctx *cli.Context) error {
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}
			if !cfg.WooCommerce.Enabled {
				return errors.New("woocommerce is not enabled in the configuration")
			}

			database, err := openDatabase(ctx, cfg)
			if err != nil {
				return err
			}
			defer database.Close()

			maxAge := cfg.WooCommerce.CartMaxAge.Duration
			if ctx.IsSet("max-age") {
				maxAge = ctx.Duration("max-age")
			}

			removed, err := db.NewCartStore(database).TidyCarts(ctx.Context, maxAge)
			if err != nil {
				return err
			}

			log.WithFields(log.Fields{
				"removed": removed,
				"max_age": maxAge,
			}).Info("Tidied carts")
			return nil
		},
	}
}
