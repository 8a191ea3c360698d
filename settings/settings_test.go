package settings_test

import (
	"context"
	"errors"
	"testing"

	"personyze/models"
	"personyze/settings"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	values map[string]string
	writes int
	err    error
}

func (m *memoryStore) GetOptions(_ context.Context, names ...string) (map[string]string, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := map[string]string{}
	for _, name := range names {
		if v, ok := m.values[name]; ok {
			out[name] = v
		}
	}
	return out, nil
}

func (m *memoryStore) SetOptions(_ context.Context, values map[string]string) error {
	if m.err != nil {
		return m.err
	}
	m.writes++
	for k, v := range values {
		m.values[k] = v
	}
	return nil
}

func TestLoadDefaults(t *testing.T) {
	svc := settings.NewService(&memoryStore{values: map[string]string{}})

	got, err := svc.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.Settings{}, got)
	assert.False(t, got.Configured())
}

func TestSaveAndLoad(t *testing.T) {
	store := &memoryStore{values: map[string]string{}}
	svc := settings.NewService(store)
	ctx := context.Background()

	want := models.Settings{AccountID: 123, TrackingDomains: "example.com", TrackAddToCart: true}
	require.NoError(t, svc.Save(ctx, want))

	assert.Equal(t, "123", store.values[settings.OptionAccountID])
	assert.Equal(t, "1", store.values[settings.OptionTrackAddToCart])
	assert.Equal(t, "", store.values[settings.OptionTrackPurchase])

	got, err := svc.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.True(t, got.Configured())
}

func TestSaveValidation(t *testing.T) {
	tests := []struct {
		name     string
		settings models.Settings
		message  string
	}{
		{"zero account", models.Settings{AccountID: 0, TrackingDomains: "example.com"}, "Invalid account_id"},
		{"negative account", models.Settings{AccountID: -4, TrackingDomains: "example.com"}, "Invalid account_id"},
		{"empty domains", models.Settings{AccountID: 5}, "Invalid tracking_domains"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &memoryStore{values: map[string]string{}}
			err := settings.NewService(store).Save(context.Background(), tt.settings)

			require.Error(t, err)
			assert.ErrorIs(t, err, models.ErrValidation)
			assert.Equal(t, tt.message, err.Error())
			assert.Zero(t, store.writes)
		})
	}
}

func TestStoreFailureIsQueryError(t *testing.T) {
	store := &memoryStore{err: errors.New("table wp_options doesn't exist")}
	svc := settings.NewService(store)

	_, err := svc.Load(context.Background())
	assert.ErrorIs(t, err, models.ErrQuery)

	err = svc.Save(context.Background(), models.Settings{AccountID: 1, TrackingDomains: "x"})
	assert.ErrorIs(t, err, models.ErrQuery)
	assert.Equal(t, "table wp_options doesn't exist", err.Error())
}

func TestFromParams(t *testing.T) {
	tests := []struct {
		name                            string
		accountID, domains, cart, order string
		want                            models.Settings
	}{
		{"all absent", "", "", "", "", models.Settings{}},
		{"numeric flags", "42", "a.com b.com", "1", "0", models.Settings{AccountID: 42, TrackingDomains: "a.com b.com", TrackAddToCart: true}},
		{"word flags", "7", "a.com", "true", "on", models.Settings{AccountID: 7, TrackingDomains: "a.com", TrackAddToCart: true, TrackPurchase: true}},
		{"leading digits", "12abc", "a.com", "false", "", models.Settings{AccountID: 12, TrackingDomains: "a.com"}},
		{"garbage id", "abc", "a.com", "", "", models.Settings{TrackingDomains: "a.com"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, settings.FromParams(tt.accountID, tt.domains, tt.cart, tt.order))
		})
	}
}
