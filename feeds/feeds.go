package feeds

import (
	"context"
	"fmt"
	"io"
	"math"

	"personyze/models"

	log "github.com/sirupsen/logrus"
)

// Exporter pages through a Source and enriches every row
type Exporter struct {
	source   Source
	enricher Enricher
}

// NewExporter creates an exporter. enricher may be nil.
func NewExporter(source Source, enricher Enricher) *Exporter {
	return &Exporter{source: source, enricher: enricher}
}

// Open fetches the first page so a failing query is reported before any output is written
func (e *Exporter) Open(ctx context.Context, req Request) (*Stream, error) {
	remaining := req.Limit
	if remaining <= 0 {
		remaining = math.MaxInt64
	}

	s := &Stream{
		exporter:  e,
		req:       req,
		cursor:    req.IDFrom,
		remaining: remaining,
	}

	if err := s.fetch(ctx); err != nil {
		exportErrors.WithLabelValues(req.Kind.String()).Inc()
		return nil, err
	}

	return s, nil
}

// Stream yields the rows of one export in ascending ID order
type Stream struct {
	exporter  *Exporter
	req       Request
	cursor    int64
	remaining int64

	page []models.Record
	pos  int
	last bool

	rows  int64
	pages int
}

// Next returns the next enriched record, or io.EOF when the export is complete
func (s *Stream) Next(ctx context.Context) (models.Record, error) {
	for {
		if s.remaining == 0 {
			return nil, io.EOF
		}

		if s.pos < len(s.page) {
			rec := s.page[s.pos]
			s.pos++

			if s.exporter.enricher != nil {
				if err := s.exporter.enricher.Enrich(ctx, rec); err != nil {
					return nil, models.QueryError(err)
				}
			}

			s.remaining--
			s.rows++
			return rec, nil
		}

		if s.last {
			return nil, io.EOF
		}

		if err := s.fetch(ctx); err != nil {
			return nil, err
		}
	}
}

func (s *Stream) fetch(ctx context.Context) error {
	n := PageSize
	if s.remaining < int64(n) {
		n = int(s.remaining)
	}

	page, err := s.exporter.source.FetchPage(ctx, s.req.Kind, s.cursor, n)
	if err != nil {
		return models.QueryError(err)
	}
	pagesFetched.WithLabelValues(s.req.Kind.String()).Inc()

	s.pages++
	s.page = page
	s.pos = 0

	if len(page) < n {
		s.last = true
	} else {
		s.cursor = page[len(page)-1].ItemID() + 1
	}

	return nil
}

// Rows is the number of records returned so far
func (s *Stream) Rows() int64 { return s.rows }

// Pages is the number of pages fetched so far
func (s *Stream) Pages() int { return s.pages }

// Write drains the stream into w as a JSON array, flushing after every record.
// When an error interrupts the stream the array is left unterminated.
func Write(ctx context.Context, s *Stream, w io.Writer) error {
	kind := s.req.Kind.String()
	aw := NewArrayWriter(w)

	err := func() error {
		if err := aw.Begin(); err != nil {
			return err
		}
		for {
			rec, err := s.Next(ctx)
			if err == io.EOF {
				break
			}
			if err != nil {
				return err
			}
			if err := aw.WriteElement(rec); err != nil {
				return fmt.Errorf("write record %d: %w", rec.ItemID(), err)
			}
			rowsExported.WithLabelValues(kind).Inc()
		}
		return aw.End()
	}()

	fields := log.Fields{
		"kind":    kind,
		"id_from": s.req.IDFrom,
		"limit":   s.req.Limit,
		"rows":    s.rows,
		"pages":   s.pages,
	}
	if err != nil {
		exportErrors.WithLabelValues(kind).Inc()
		log.WithFields(fields).WithError(err).Error("Feed export aborted")
		return err
	}

	log.WithFields(fields).Info("Feed exported")
	return nil
}
