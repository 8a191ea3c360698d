package server

import (
	"time"

	"personyze/nonce"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const (
	sessionCookie    = "personyze_session"
	sessionCookieAge = 48 * time.Hour
)

// session returns the visitor's session id, issuing a cookie when the visitor has none
func session(c *fiber.Ctx) string {
	if id := c.Cookies(sessionCookie); id != "" {
		return id
	}

	id := uuid.NewString()
	c.Cookie(&fiber.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		Expires:  time.Now().Add(sessionCookieAge),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return id
}

// addToCart handles the personyze_add_to_cart AJAX action
func (s *server) addToCart(c *fiber.Ctx) error {
	sessionID := session(c)

	token := c.FormValue("_ajax_nonce")
	if token == "" {
		token = c.Query("_ajax_nonce")
	}
	if err := s.nonces.Verify(token, nonce.Action, sessionID); err != nil {
		log.WithError(err).Warn("Rejected add to cart request")
		return c.Status(fiber.StatusForbidden).SendString("-1")
	}

	added, err := s.cart.Add(c.UserContext(), sessionID, c.FormValue("products"))
	if err != nil {
		return ajaxError(c, err)
	}

	return c.JSON(fiber.Map{"added": added})
}

// adminAjax routes admin-ajax.php requests by their action parameter
func (s *server) adminAjax(c *fiber.Ctx) error {
	action := c.FormValue("action")
	if action == "" {
		action = c.Query("action")
	}

	switch action {
	case "personyze_add_to_cart":
		return s.addToCart(c)
	default:
		return c.Status(fiber.StatusBadRequest).SendString("0")
	}
}
