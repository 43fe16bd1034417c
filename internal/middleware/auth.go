// Package middleware provides authentication, logging, tracing and rate limiting middleware.
package middleware

import (
	"context"
	"strings"
	"time"

	"skillswap/internal/auth"
	"skillswap/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// Locals keys set by the authenticator.
const (
	LocalUserID = "userID"
	LocalUser   = "user"
	LocalClaims = "claims"
)

// AccountLookup loads the account behind a token subject.
type AccountLookup interface {
	GetAccount(ctx context.Context, id uint) (*models.User, error)
}

// Authenticator validates bearer tokens, rejects revoked tokens and deactivated accounts.
type Authenticator struct {
	tokens *auth.TokenManager
	users  AccountLookup
	rdb    *redis.Client
}

// NewAuthenticator wires token parsing, account lookup and the optional Redis revocation list.
func NewAuthenticator(tokens *auth.TokenManager, users AccountLookup, rdb *redis.Client) *Authenticator {
	return &Authenticator{tokens: tokens, users: users, rdb: rdb}
}

func blacklistKey(jti string) string {
	return "blacklist:" + jti
}

// BearerToken extracts the token from "Authorization: Bearer <token>".
func BearerToken(c *fiber.Ctx) string {
	parts := strings.SplitN(c.Get(fiber.HeaderAuthorization), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// Authenticate resolves a raw token to an active account.
func (a *Authenticator) Authenticate(ctx context.Context, token string) (*models.User, *auth.Claims, error) {
	if token == "" {
		return nil, nil, models.NewUnauthorizedError("Access denied. No token provided.")
	}

	claims, err := a.tokens.Parse(token)
	if err != nil {
		return nil, nil, models.NewUnauthorizedError("Invalid token.")
	}

	if claims.JTI != "" && a.rdb != nil {
		revoked, err := a.rdb.Exists(ctx, blacklistKey(claims.JTI)).Result()
		if err == nil && revoked > 0 {
			return nil, nil, models.NewUnauthorizedError("Token has been revoked.")
		}
	}

	user, err := a.users.GetAccount(ctx, claims.UserID)
	if err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			return nil, nil, models.NewUnauthorizedError("Invalid token.")
		}
		return nil, nil, err
	}
	if !user.IsActive {
		return nil, nil, models.NewUnauthorizedError("Account is deactivated.")
	}

	return user, claims, nil
}

// Revoke blacklists the token id until it would have expired anyway.
func (a *Authenticator) Revoke(ctx context.Context, claims *auth.Claims) error {
	if a.rdb == nil || claims == nil || claims.JTI == "" {
		return nil
	}
	ttl := time.Until(claims.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	return a.rdb.Set(ctx, blacklistKey(claims.JTI), "1", ttl).Err()
}

func (a *Authenticator) attach(c *fiber.Ctx, user *models.User, claims *auth.Claims) {
	c.Locals(LocalUserID, user.ID)
	c.Locals(LocalUser, user)
	c.Locals(LocalClaims, claims)
	c.SetUserContext(WithUserID(c.UserContext(), user.ID))
}

// Required rejects the request with 401 unless a valid token for an active account is presented.
func (a *Authenticator) Required() fiber.Handler {
	return a.require(BearerToken)
}

// RequiredFromQuery is Required for clients that cannot set headers, such as browser
// websockets. The bearer header still wins when both are present.
func (a *Authenticator) RequiredFromQuery(param string) fiber.Handler {
	return a.require(func(c *fiber.Ctx) string {
		if token := BearerToken(c); token != "" {
			return token
		}
		return c.Query(param)
	})
}

func (a *Authenticator) require(extract func(*fiber.Ctx) string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, claims, err := a.Authenticate(c.UserContext(), extract(c))
		if err != nil {
			return models.RespondWithError(c, models.StatusFor(err), err)
		}
		a.attach(c, user, claims)
		return c.Next()
	}
}

// Optional attaches the caller when a valid token is presented and ignores anything else.
func (a *Authenticator) Optional() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if token := BearerToken(c); token != "" {
			if user, claims, err := a.Authenticate(c.UserContext(), token); err == nil {
				a.attach(c, user, claims)
			}
		}
		return c.Next()
	}
}

// AdminOnly must run after Required.
func (a *Authenticator) AdminOnly() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok := c.Locals(LocalUser).(*models.User)
		if !ok || user == nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Access denied. No token provided."))
		}
		if !user.IsAdmin() {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Access denied. Admin privileges required."))
		}
		return c.Next()
	}
}

// CurrentUserID returns the authenticated user id, if any.
func CurrentUserID(c *fiber.Ctx) (uint, bool) {
	id, ok := c.Locals(LocalUserID).(uint)
	return id, ok && id != 0
}

// CurrentClaims returns the verified token claims, if any.
func CurrentClaims(c *fiber.Ctx) *auth.Claims {
	claims, _ := c.Locals(LocalClaims).(*auth.Claims)
	return claims
}
