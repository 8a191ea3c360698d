package server

import (
	"context"
	"fmt"
	"net"
	"strings"

	"personyze/config"
	"personyze/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// Resolver returns the IPv4 address of a host name
type Resolver func(ctx context.Context, host string) (string, error)

// LookupIPv4 resolves host with the system resolver
func LookupIPv4(ctx context.Context, host string) (string, error) {
	ips, err := net.DefaultResolver.LookupIP(ctx, "ip4", host)
	if err != nil {
		return "", err
	}
	if len(ips) == 0 {
		return "", fmt.Errorf("no IPv4 address for %s", host)
	}
	return ips[0].String(), nil
}

// remoteAddr picks the last usable entry of the peer address, X-Forwarded-For and Client-IP
func remoteAddr(c *fiber.Ctx) string {
	candidates := strings.Join([]string{
		c.Context().RemoteIP().String(),
		c.Get(fiber.HeaderXForwardedFor),
		c.Get("Client-IP"),
	}, ",")

	parts := lo.Reverse(strings.Split(candidates, ","))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" && part != "unknown" {
			return part
		}
	}
	return ""
}

// originCheck rejects callers that do not come from the trusted host
func originCheck(trustedHost string, resolve Resolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		addr := remoteAddr(c)

		accept, err := resolve(c.UserContext(), trustedHost)
		if err != nil {
			log.WithFields(log.Fields{
				"host": trustedHost,
			}).WithError(err).Warn("Could not resolve trusted host")
		}

		if err != nil || addr != accept {
			log.WithFields(log.Fields{
				"remote_addr": addr,
				"trusted":     accept,
			}).Warn("Rejected request from untrusted origin")
			return restError(c, models.ErrForbidden)
		}

		return c.Next()
	}
}

// adminAuth requires HTTP Basic credentials of a configured administrator
func adminAuth(admins []config.TomlAdmin, unauthorized fiber.Handler) fiber.Handler {
	return basicauth.New(basicauth.Config{
		Realm: "Personyze",
		Authorizer: func(username, password string) bool {
			admin, ok := lo.Find(admins, func(a config.TomlAdmin) bool {
				return a.Username == username
			})
			if !ok {
				return false
			}
			return bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)) == nil
		},
		Unauthorized: unauthorized,
	})
}

func restUnauthorized(c *fiber.Ctx) error {
	c.Set(fiber.HeaderWWWAuthenticate, `Basic realm="Personyze"`)
	return restError(c, models.ErrUnauthorized)
}

func pageUnauthorized(c *fiber.Ctx) error {
	c.Set(fiber.HeaderWWWAuthenticate, `Basic realm="Personyze"`)
	return c.Status(fiber.StatusUnauthorized).SendString(forbiddenMessage)
}
