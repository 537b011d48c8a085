package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/encryptcookie"
	"github.com/recarga/backend/internal/config"
	"github.com/recarga/backend/pkg/utils/crypto"
)

const (
	// CSRFContextKey is the Locals key holding the token for the rendered form.
	CSRFContextKey = "csrf"
	CSRFHeader     = "X-CSRFToken"
	csrfCookie     = "csrf_"
)

// EncryptCookies encrypts every cookie with a key derived from the secret key.
func EncryptCookies(cfg *config.Config) fiber.Handler {
	return encryptcookie.New(encryptcookie.Config{
		Key: crypto.CookieKey(cfg.Security.SecretKey),
	})
}

// CSRF protects state-changing requests. The token travels in the
// X-CSRFToken header and is checked against the csrf_ cookie.
func CSRF(cfg *config.Config) fiber.Handler {
	return csrf.New(csrf.Config{
		KeyLookup:      "header:" + CSRFHeader,
		CookieName:     csrfCookie,
		CookieSameSite: "Lax",
		CookieHTTPOnly: true,
		Expiration:     12 * time.Hour,
		ContextKey:     CSRFContextKey,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"success": false,
				"message": "Token CSRF inválido.",
			})
		},
	})
}
