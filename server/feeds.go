package server

import (
	"bufio"
	"context"

	"personyze/feeds"
	"personyze/models"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"
)

// feedHandler streams a feed as a JSON array. The first page is read before the response is
// committed; later failures leave the array unterminated.
func (s *server) feedHandler(feed feeds.Feed) fiber.Handler {
	return func(c *fiber.Ctx) error {
		req := feeds.Request{
			Kind:   feed.Kind,
			IDFrom: models.ParseInt(c.Query("id-from")),
			Limit:  models.ParseInt(c.Query("limit")),
		}

		log.WithFields(log.Fields{
			"feed":    feed.ID,
			"id_from": req.IDFrom,
			"limit":   req.Limit,
		}).Info("Export feed with parameters")

		// The body is written after the handler returns, so the export must not use the request context
		ctx := context.Background()

		enricher, err := s.enricher(ctx)
		if err != nil {
			return restError(c, models.QueryError(err))
		}

		stream, err := feeds.NewExporter(s.store, enricher).Open(ctx, req)
		if err != nil {
			return restError(c, err)
		}

		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSONCharsetUTF8)
		c.Set(fiber.HeaderCacheControl, "no-cache")

		c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
			// Errors are logged by feeds.Write; the client sees a truncated array
			_ = feeds.Write(ctx, stream, w)
		}))

		return nil
	}
}
