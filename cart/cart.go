// Package cart forwards add-to-cart requests from Personyze widgets to the shop cart
package cart

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"personyze/models"

	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

// Cart is the shop's cart and order model
type Cart interface {
	AddToCart(ctx context.Context, session string, productID int64, qty int64) (bool, error)
	Contents(ctx context.Context, session string) ([]models.CartLine, error)
	OrderItems(ctx context.Context, orderID int64) ([]models.CartLine, error)
}

var errInvalidArgument = models.ValidationError("Invalid argument")

// Service adds products to carts. A nil cart means the shop is not available.
type Service struct {
	cart Cart
}

func NewService(cart Cart) *Service {
	return &Service{cart: cart}
}

// Enabled reports whether a cart is available
func (s *Service) Enabled() bool {
	return s.cart != nil
}

// Add adds every requested product to the session's cart and returns the lines that were accepted
func (s *Service) Add(ctx context.Context, session string, products string) ([]models.CartLine, error) {
	requested, err := ParseProducts(products)
	if err != nil {
		return nil, err
	}

	if !s.Enabled() {
		return nil, models.DependencyError("WooCommerce not installed or not activated")
	}

	added := []models.CartLine{}
	for _, line := range requested {
		ok, err := s.cart.AddToCart(ctx, session, line.ProductID, line.Quantity)
		if err != nil {
			return nil, models.QueryError(err)
		}
		if ok {
			added = append(added, line)
		}
	}

	log.WithFields(log.Fields{
		"requested": len(requested),
		"added":     len(added),
	}).Info("Added products to cart")

	return added, nil
}

// Contents lists the session's cart, or nothing when no cart is available
func (s *Service) Contents(ctx context.Context, session string) ([]models.CartLine, error) {
	if !s.Enabled() {
		return nil, nil
	}
	lines, err := s.cart.Contents(ctx, session)
	return lines, models.QueryError(err)
}

// OrderItems lists the purchased lines of an order, or nothing when no cart is available
func (s *Service) OrderItems(ctx context.Context, orderID int64) ([]models.CartLine, error) {
	if !s.Enabled() {
		return nil, nil
	}
	lines, err := s.cart.OrderItems(ctx, orderID)
	return lines, models.QueryError(err)
}

// ParseProducts decodes a JSON array or object of {"internal_id", "quantity"} entries.
// Entries that are not objects or lack a positive internal_id are skipped and quantity is at least 1.
func ParseProducts(raw string) ([]models.CartLine, error) {
	elements, err := topLevelElements(raw)
	if err != nil {
		return nil, errInvalidArgument
	}

	return lo.FilterMap(elements, func(element json.RawMessage, _ int) (models.CartLine, bool) {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(element, &fields); err != nil || fields == nil {
			return models.CartLine{}, false
		}

		line := models.CartLine{
			ProductID: intValue(fields["internal_id"]),
			Quantity:  lo.Max([]int64{1, intValue(fields["quantity"])}),
		}
		return line, line.ProductID > 0
	}), nil
}

// topLevelElements returns the values of a JSON array or object in document order
func topLevelElements(raw string) ([]json.RawMessage, error) {
	dec := json.NewDecoder(strings.NewReader(raw))

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	delim, ok := tok.(json.Delim)
	if !ok || (delim != '[' && delim != '{') {
		return nil, fmt.Errorf("expected array or object, got %v", tok)
	}

	var elements []json.RawMessage
	for dec.More() {
		if delim == '{' {
			// skip the key
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
		}
		var element json.RawMessage
		if err := dec.Decode(&element); err != nil {
			return nil, err
		}
		elements = append(elements, element)
	}

	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("trailing data after products")
	}

	return elements, nil
}

// intValue converts a JSON number, numeric string or boolean to an integer, truncating fractions
func intValue(raw json.RawMessage) int64 {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0
		}
		return models.ParseInt(s)
	case 't':
		return 1
	default:
		return models.ParseInt(string(raw))
	}
}
