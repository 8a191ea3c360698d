// Package nonce issues and checks the action scoped tokens that gate the AJAX endpoints
package nonce

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Action is the only action the tracking snippet requests tokens for
const Action = "personyze-nonce"

var ErrInvalid = errors.New("invalid nonce")

type claims struct {
	Action string `json:"act"`
	jwt.RegisteredClaims
}

// Issuer signs nonces with a shared secret
type Issuer struct {
	secret   []byte
	lifetime time.Duration
	now      func() time.Time
}

func NewIssuer(secret string, lifetime time.Duration) *Issuer {
	return &Issuer{
		secret:   []byte(secret),
		lifetime: lifetime,
		now:      time.Now,
	}
}

// Create returns a token valid for action and session until the lifetime elapses
func (i *Issuer) Create(action, session string) (string, error) {
	now := i.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Action: action,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   session,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.lifetime)),
		},
	})

	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign nonce: %w", err)
	}
	return signed, nil
}

// Verify checks signature, expiry, action and session. Every failure wraps ErrInvalid.
func (i *Issuer) Verify(token, action, session string) error {
	var c claims
	_, err := jwt.ParseWithClaims(token, &c,
		func(*jwt.Token) (interface{}, error) { return i.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithSubject(session),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	if c.Action != action {
		return fmt.Errorf("%w: issued for action %q", ErrInvalid, c.Action)
	}

	return nil
}
