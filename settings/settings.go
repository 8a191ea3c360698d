// Package settings reads and writes the plugin configuration kept in the options table
package settings

import (
	"context"
	"strconv"
	"strings"

	"personyze/models"

	log "github.com/sirupsen/logrus"
)

const (
	OptionAccountID       = "personyze_account_id"
	OptionTrackingDomains = "personyze_tracking_domains"
	OptionTrackAddToCart  = "personyze_track_add_to_cart"
	OptionTrackPurchase   = "personyze_track_purchase"
)

// Store is the key-value option storage of the site
type Store interface {
	GetOptions(ctx context.Context, names ...string) (map[string]string, error)
	SetOptions(ctx context.Context, values map[string]string) error
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Load reads the settings. Absent or malformed values read as zero values.
func (s *Service) Load(ctx context.Context) (models.Settings, error) {
	values, err := s.store.GetOptions(ctx, OptionAccountID, OptionTrackingDomains, OptionTrackAddToCart, OptionTrackPurchase)
	if err != nil {
		return models.Settings{}, models.QueryError(err)
	}

	return models.Settings{
		AccountID:       models.ParseInt(values[OptionAccountID]),
		TrackingDomains: values[OptionTrackingDomains],
		TrackAddToCart:  ParseFlag(values[OptionTrackAddToCart]),
		TrackPurchase:   ParseFlag(values[OptionTrackPurchase]),
	}, nil
}

// Validate checks the values an administrator submitted
func Validate(settings models.Settings) error {
	if settings.AccountID <= 0 {
		return models.ValidationError("Invalid account_id")
	}
	if len(settings.TrackingDomains) == 0 {
		return models.ValidationError("Invalid tracking_domains")
	}
	return nil
}

// Save validates and persists all four values. Nothing is written when validation fails.
func (s *Service) Save(ctx context.Context, settings models.Settings) error {
	if err := Validate(settings); err != nil {
		return err
	}

	err := s.store.SetOptions(ctx, map[string]string{
		OptionAccountID:       strconv.FormatInt(settings.AccountID, 10),
		OptionTrackingDomains: settings.TrackingDomains,
		OptionTrackAddToCart:  formatFlag(settings.TrackAddToCart),
		OptionTrackPurchase:   formatFlag(settings.TrackPurchase),
	})
	if err != nil {
		return models.QueryError(err)
	}

	log.WithFields(log.Fields{
		"account_id":        settings.AccountID,
		"track_add_to_cart": settings.TrackAddToCart,
		"track_purchase":    settings.TrackPurchase,
	}).Info("Saved Personyze settings")

	return nil
}

// FromParams builds settings from raw request parameters, applying the defaults of absent values
func FromParams(accountID, trackingDomains, trackAddToCart, trackPurchase string) models.Settings {
	return models.Settings{
		AccountID:       models.ParseInt(accountID),
		TrackingDomains: trackingDomains,
		TrackAddToCart:  ParseFlag(trackAddToCart),
		TrackPurchase:   ParseFlag(trackPurchase),
	}
}

// ParseFlag reports whether a stored or submitted flag is set
func ParseFlag(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "on":
		return true
	}
	return models.ParseInt(s) != 0
}

func formatFlag(b bool) string {
	if b {
		return "1"
	}
	return ""
}
