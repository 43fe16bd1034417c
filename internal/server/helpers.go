package server

import (
	"strconv"
	"strings"
	"unicode"

	"skillswap/internal/auth"
	"skillswap/internal/middleware"
	"skillswap/internal/models"

	"github.com/gofiber/fiber/v2"
)

const (
	defaultPageSize    = 10
	maxPaginationLimit = 100
)

// pageParams is a validated page/limit pair from the query string.
type pageParams struct {
	Page  int
	Limit int
}

// parsePagination reads ?page and ?limit. Absent values take defaults; present values must be
// positive integers. limit is capped at maxPaginationLimit.
func parsePagination(c *fiber.Ctx) (pageParams, error) {
	page, err := positiveQueryInt(c, "page", 1)
	if err != nil {
		return pageParams{}, err
	}
	limit, err := positiveQueryInt(c, "limit", defaultPageSize)
	if err != nil {
		return pageParams{}, err
	}
	if limit > maxPaginationLimit {
		limit = maxPaginationLimit
	}
	return pageParams{Page: page, Limit: limit}, nil
}

func positiveQueryInt(c *fiber.Ctx, key string, fallback int) (int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, models.NewValidationError(key + " must be a positive integer")
	}
	return n, nil
}

// parseID extracts a route parameter by name as a positive uint.
// The error message is derived from the parameter name (e.g. "id" -> "Invalid ID",
// "skillId" -> "Invalid skill ID").
func parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		return 0, models.NewValidationError("Invalid " + humanizeParam(param))
	}
	return uint(id), nil
}

func humanizeParam(param string) string {
	if param == "id" {
		return "ID"
	}
	if prefix, ok := strings.CutSuffix(param, "Id"); ok {
		return strings.ToLower(strings.Join(splitCamel(prefix), " ")) + " ID"
	}
	return param
}

func splitCamel(s string) []string {
	var words []string
	start := 0
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			words = append(words, s[start:i])
			start = i
		}
	}
	return append(words, s[start:])
}

// parseBody decodes the JSON body, mapping decode failures to a validation error.
func parseBody(c *fiber.Ctx, out interface{}) error {
	if err := c.BodyParser(out); err != nil {
		return models.NewValidationError("Invalid request body")
	}
	return nil
}

// currentUser returns the authenticated user loaded by the auth middleware.
func currentUser(c *fiber.Ctx) (*models.User, error) {
	user, ok := c.Locals(middleware.LocalUser).(*models.User)
	if !ok || user == nil {
		return nil, models.NewUnauthorizedError("Access denied. No token provided.")
	}
	return user, nil
}

// viewerID is 0 for anonymous requests.
func viewerID(c *fiber.Ctx) uint {
	id, _ := middleware.CurrentUserID(c)
	return id
}

func currentClaims(c *fiber.Ctx) *auth.Claims {
	return middleware.CurrentClaims(c)
}
