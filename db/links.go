package db

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"personyze/models"
)

const (
	optionPermalinkStructure = "permalink_structure"
	wordpressDateLayout      = "2006-01-02 15:04:05"
	uploadsPath              = "/wp-content/uploads/"
)

// Links resolves permalinks and thumbnail URLs the way WordPress renders them
type Links struct {
	db        *DB
	siteURL   string
	structure string
}

// NewLinks loads the permalink structure of the site. An empty structure means plain links.
func NewLinks(ctx context.Context, db *DB, siteURL string) (*Links, error) {
	structure, _, err := db.GetOption(ctx, optionPermalinkStructure)
	if err != nil {
		return nil, err
	}

	return &Links{
		db:        db,
		siteURL:   strings.TrimRight(siteURL, "/"),
		structure: structure,
	}, nil
}

// Enrich fills content_url and thumbnail of a feed record
func (l *Links) Enrich(ctx context.Context, rec models.Record) error {
	item := rec.Common()
	item.ContentURL = l.Permalink(&models.PostRef{
		ID:       rec.ItemID(),
		Type:     item.PostType,
		Name:     item.Name,
		PostDate: item.PostDate,
	})

	thumbnail, err := l.Thumbnail(ctx, rec.ItemID())
	if err != nil {
		return err
	}
	item.Thumbnail = thumbnail

	return nil
}

// Permalink builds the public URL of a post, page or product
func (l *Links) Permalink(ref *models.PostRef) string {
	if l.structure == "" || ref.Name == "" {
		return l.plainLink(ref)
	}

	switch ref.Type {
	case "page":
		return l.siteURL + "/" + url.PathEscape(ref.Name) + "/"
	case "product":
		return l.siteURL + "/product/" + url.PathEscape(ref.Name) + "/"
	case "post":
		return l.siteURL + l.expandStructure(ref)
	default:
		return l.plainLink(ref)
	}
}

func (l *Links) plainLink(ref *models.PostRef) string {
	id := strconv.FormatInt(ref.ID, 10)
	switch ref.Type {
	case "page":
		return l.siteURL + "/?page_id=" + id
	case "product":
		if ref.Name != "" {
			return l.siteURL + "/?product=" + url.QueryEscape(ref.Name)
		}
		return l.siteURL + "/?post_type=product&p=" + id
	default:
		return l.siteURL + "/?p=" + id
	}
}

func (l *Links) expandStructure(ref *models.PostRef) string {
	date, err := time.Parse(wordpressDateLayout, ref.PostDate)
	if err != nil {
		date = time.Time{}
	}

	replacer := strings.NewReplacer(
		"%year%", fmt.Sprintf("%04d", date.Year()),
		"%monthnum%", fmt.Sprintf("%02d", int(date.Month())),
		"%day%", fmt.Sprintf("%02d", date.Day()),
		"%hour%", fmt.Sprintf("%02d", date.Hour()),
		"%minute%", fmt.Sprintf("%02d", date.Minute()),
		"%second%", fmt.Sprintf("%02d", date.Second()),
		"%post_id%", strconv.FormatInt(ref.ID, 10),
		"%postname%", url.PathEscape(ref.Name),
	)

	path := replacer.Replace(l.structure)
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}

// Thumbnail returns the URL of the featured image of a post, or "" when it has none
func (l *Links) Thumbnail(ctx context.Context, postID int64) (string, error) {
	raw, ok, err := l.db.PostMeta(ctx, postID, "_thumbnail_id")
	if err != nil || !ok {
		return "", err
	}

	attachmentID, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || attachmentID <= 0 {
		return "", nil
	}

	file, ok, err := l.db.PostMeta(ctx, attachmentID, "_wp_attached_file")
	if err != nil {
		return "", err
	}
	if ok && file != "" {
		return l.siteURL + uploadsPath + strings.TrimLeft(file, "/"), nil
	}

	return l.attachmentGUID(ctx, attachmentID)
}

func (l *Links) attachmentGUID(ctx context.Context, attachmentID int64) (string, error) {
	sb := l.db.flavor.NewSelectBuilder()
	sb.Select("MAX(guid)").
		From(l.db.tables.Posts()).
		Where(sb.Equal("ID", attachmentID), sb.Equal("post_type", "attachment"))
	query, args := sb.Build()

	var guid *string
	if err := l.db.db.QueryRowContext(ctx, query, args...).Scan(&guid); err != nil {
		return "", fmt.Errorf("query error: %w", err)
	}
	if guid == nil {
		return "", nil
	}
	return *guid, nil
}
