package middleware

import (
	"context"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"docvault/internal/auth"
)

// IdentityLocalKey is the fiber locals key holding the resolved auth.Identity.
const IdentityLocalKey = "identity"

const bearerPrefix = "Bearer "

// TokenValidator checks bearer tokens and extracts their subject.
type TokenValidator interface {
	Validate(token string) bool
	Subject(token string) string
}

// IdentityResolver loads the caller named by a token subject.
type IdentityResolver interface {
	ResolveIdentity(ctx context.Context, username string) (auth.Identity, error)
}

// Authentication attaches the caller identity to requests carrying a valid bearer token.
//
// It never rejects a request: missing, malformed or expired tokens and lookup failures
// leave the request anonymous. Paths under any public prefix are not inspected.
func Authentication(tokens TokenValidator, users IdentityResolver, publicPrefixes []string, log zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if isPublic(c.Path(), publicPrefixes) {
			return c.Next()
		}

		header := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(header, bearerPrefix) {
			return c.Next()
		}
		token := strings.TrimSpace(header[len(bearerPrefix):])

		if id, ok := resolve(c, tokens, users, token, log); ok {
			c.SetUserContext(auth.WithIdentity(c.UserContext(), id))
			c.Locals(IdentityLocalKey, id)
		}
		return c.Next()
	}
}

func resolve(c *fiber.Ctx, tokens TokenValidator, users IdentityResolver, token string, log zerolog.Logger) (id auth.Identity, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("request_id", requestID(c)).
				Str("path", c.Path()).
				Err(fmt.Errorf("%v", r)).
				Msg("identity resolution panicked")
			id, ok = auth.Identity{}, false
		}
	}()

	if !tokens.Validate(token) {
		return auth.Identity{}, false
	}
	username := tokens.Subject(token)
	if username == "" {
		return auth.Identity{}, false
	}

	id, err := users.ResolveIdentity(c.UserContext(), username)
	if err != nil {
		log.Warn().
			Str("request_id", requestID(c)).
			Str("user", username).
			Err(err).
			Msg("identity lookup failed")
		return auth.Identity{}, false
	}
	return id, true
}

// RequireIdentity rejects anonymous requests with 401.
func RequireIdentity() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := auth.FromContext(c.UserContext()); ok {
			return c.Next()
		}
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"request_id": requestID(c),
			"error": fiber.Map{
				"code":    "UNAUTHENTICATED",
				"message": "authentication required",
			},
		})
	}
}

// CurrentIdentity returns the identity attached by Authentication.
func CurrentIdentity(c *fiber.Ctx) (auth.Identity, bool) {
	return auth.FromContext(c.UserContext())
}

func isPublic(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
