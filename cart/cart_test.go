package cart_test

import (
	"context"
	"errors"
	"testing"

	"personyze/cart"
	"personyze/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCart struct {
	buyable map[int64]bool
	added   []models.CartLine
	err     error
}

func (f *fakeCart) AddToCart(_ context.Context, _ string, productID int64, qty int64) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if !f.buyable[productID] {
		return false, nil
	}
	f.added = append(f.added, models.CartLine{ProductID: productID, Quantity: qty})
	return true, nil
}

func (f *fakeCart) Contents(context.Context, string) ([]models.CartLine, error) {
	return f.added, f.err
}

func (f *fakeCart) OrderItems(context.Context, int64) ([]models.CartLine, error) {
	return nil, f.err
}

func TestParseProducts(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    []models.CartLine
		wantErr bool
	}{
		{
			name: "array of objects",
			raw:  `[{"internal_id":12,"quantity":3},{"internal_id":"15"}]`,
			want: []models.CartLine{{ProductID: 12, Quantity: 3}, {ProductID: 15, Quantity: 1}},
		},
		{
			name: "object keeps document order",
			raw:  `{"b":{"internal_id":9,"quantity":2},"a":{"internal_id":4}}`,
			want: []models.CartLine{{ProductID: 9, Quantity: 2}, {ProductID: 4, Quantity: 1}},
		},
		{
			name: "non objects and bad ids are skipped",
			raw:  `[5, "x", null, [1], {"internal_id":0}, {"internal_id":-3}, {"quantity":4}, {"internal_id":"abc"}, {"internal_id":7,"quantity":0}]`,
			want: []models.CartLine{{ProductID: 7, Quantity: 1}},
		},
		{
			name: "fractional and negative quantities",
			raw:  `[{"internal_id":1,"quantity":2.9},{"internal_id":2,"quantity":-5},{"internal_id":3,"quantity":"4"}]`,
			want: []models.CartLine{{ProductID: 1, Quantity: 2}, {ProductID: 2, Quantity: 1}, {ProductID: 3, Quantity: 4}},
		},
		{name: "empty array", raw: `[]`, want: []models.CartLine{}},
		{name: "empty string", raw: ``, wantErr: true},
		{name: "scalar", raw: `42`, wantErr: true},
		{name: "string", raw: `"[1]"`, wantErr: true},
		{name: "broken json", raw: `[{"internal_id":1}`, wantErr: true},
		{name: "trailing data", raw: `[] []`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := cart.ParseProducts(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, models.ErrValidation)
				assert.Equal(t, "Invalid argument", err.Error())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAdd(t *testing.T) {
	shop := &fakeCart{buyable: map[int64]bool{12: true, 15: true}}
	svc := cart.NewService(shop)

	added, err := svc.Add(context.Background(), "s1", `[{"internal_id":12,"quantity":2},{"internal_id":13},{"internal_id":15}]`)
	require.NoError(t, err)
	assert.Equal(t, []models.CartLine{{ProductID: 12, Quantity: 2}, {ProductID: 15, Quantity: 1}}, added)
	assert.Equal(t, added, shop.added)
}

func TestAddNothingAccepted(t *testing.T) {
	svc := cart.NewService(&fakeCart{})

	added, err := svc.Add(context.Background(), "s1", `[{"internal_id":12}]`)
	require.NoError(t, err)
	assert.NotNil(t, added)
	assert.Empty(t, added)
}

func TestAddWithoutCart(t *testing.T) {
	svc := cart.NewService(nil)

	_, err := svc.Add(context.Background(), "s1", `[{"internal_id":12}]`)
	assert.ErrorIs(t, err, models.ErrDependencyMissing)
	assert.Equal(t, "WooCommerce not installed or not activated", err.Error())

	// malformed input is reported before the missing cart
	_, err = svc.Add(context.Background(), "s1", `nope`)
	assert.ErrorIs(t, err, models.ErrValidation)

	lines, err := svc.Contents(context.Background(), "s1")
	assert.NoError(t, err)
	assert.Nil(t, lines)
}

func TestAddStoreFailure(t *testing.T) {
	svc := cart.NewService(&fakeCart{err: errors.New("deadlock found")})

	_, err := svc.Add(context.Background(), "s1", `[{"internal_id":12}]`)
	assert.ErrorIs(t, err, models.ErrQuery)

	_, err = svc.OrderItems(context.Background(), 50)
	assert.ErrorIs(t, err, models.ErrQuery)
}
