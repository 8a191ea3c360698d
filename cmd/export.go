package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"personyze/db"
	"personyze/feeds"

	"github.com/labstack/gommon/bytes"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

// countingWriter counts the bytes written through it
type countingWriter struct {
	w *bufio.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

func (c *countingWriter) Flush() error {
	return c.w.Flush()
}

func exportCmd() *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Print a content feed",
		ArgsUsage: "<sitemap|products>",
		Description: `Writes a feed as a JSON array to stdout, exactly as the REST route
		serves it to Personyze.

		Prints all log messages to stderr.`,
		Flags: []cli.Flag{
			&cli.Int64Flag{
				Name:  "id-from",
				Usage: "Only export rows with an ID greater than or equal to this",
			},
			&cli.Int64Flag{
				Name:  "limit",
				Usage: "Maximum number of rows, 0 exports everything",
			},
		},
		Action: func(ctx *cli.Context) error {
			// Keep stdout for the feed
			log.SetOutput(os.Stderr)

			available := feeds.InitializeFeeds()
			feed, ok := available[ctx.Args().First()]
			if !ok {
				return fmt.Errorf("unknown feed %q, expected one of %s",
					ctx.Args().First(), strings.Join(lo.Keys(available), ", "))
			}

			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}
			database, err := openDatabase(ctx, cfg)
			if err != nil {
				return err
			}
			defer database.Close()

			links, err := db.NewLinks(ctx.Context, database, cfg.Site.URL)
			if err != nil {
				return err
			}

			stream, err := feeds.NewExporter(database, links).Open(ctx.Context, feeds.Request{
				Kind:   feed.Kind,
				IDFrom: ctx.Int64("id-from"),
				Limit:  ctx.Int64("limit"),
			})
			if err != nil {
				return err
			}

			out := &countingWriter{w: bufio.NewWriter(os.Stdout)}
			if err := feeds.Write(ctx.Context, stream, out); err != nil {
				return err
			}
			if err := out.Flush(); err != nil {
				return err
			}
			fmt.Fprintln(os.Stdout)

			log.WithFields(log.Fields{
				"feed": feed.ID,
				"rows": stream.Rows(),
				"size": bytes.Format(out.n),
			}).Info("Export complete")
			return nil
		},
	}
}

func statsCmd() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Print the content counts reported to Personyze",
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

			stats, err := database.Stats(ctx.Context)
			if err != nil {
				return err
			}
			return printJSON(os.Stdout, stats)
		},
	}
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
