package cmd

import (
	"errors"
	"fmt"
	"strconv"

	"personyze/settings"

	"github.com/cqroot/prompt"
	"github.com/cqroot/prompt/input"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"golang.org/x/crypto/bcrypt"
)

var yesNo = []string{"yes", "no"}

func configureCmd() *cli.Command {
	return &cli.Command{
		Name:  "configure",
		Usage: "Set the Personyze account of the site",
		Description: `Asks for the Personyze account ID, the tracking domains and the
		tracking options and stores them in the WordPress options table, like the
		settings screen does.`,
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

			svc := settings.NewService(database)
			current, err := svc.Load(ctx.Context)
			if err != nil {
				return err
			}

			accountDefault := ""
			if current.AccountID > 0 {
				accountDefault = strconv.FormatInt(current.AccountID, 10)
			}
			accountID, err := prompt.New().Ask("Account ID:").Input(accountDefault)
			if err != nil {
				return err
			}

			domains, err := prompt.New().Ask("Tracking domains:").Input(current.TrackingDomains)
			if err != nil {
				return err
			}

			addToCart, err := prompt.New().Ask("Track add to cart?").Choose(yesNo)
			if err != nil {
				return err
			}

			purchase, err := prompt.New().Ask("Track purchases?").Choose(yesNo)
			if err != nil {
				return err
			}

			if err := svc.Save(ctx.Context, settings.FromParams(accountID, domains, addToCart, purchase)); err != nil {
				return err
			}

			fmt.Println("Your account on Personyze is set up.")
			return nil
		},
	}
}

func hashPasswordCmd() *cli.Command {
	return &cli.Command{
		Name:  "hash-password",
		Usage: "Hash an admin password for the configuration file",
		Description: `Prints a bcrypt hash to use as password_hash of an entry in
		[[security.admins]].`,
		Action: func(ctx *cli.Context) error {
			password, err := prompt.New().Ask("Password:").Input("", input.WithEchoMode(input.EchoNone))
			if err != nil {
				return err
			}
			if password == "" {
				return errors.New("the password may not be empty")
			}

			hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
			if err != nil {
				return err
			}

			log.Debug("Generated password hash")
			fmt.Println(string(hash))
			return nil
		},
	}
}
