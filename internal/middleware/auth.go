package middleware

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/healthmate/server/internal/session"
	"github.com/healthmate/server/pkg/logger"
	"github.com/healthmate/server/pkg/utils"
)

const (
	sessionKey = "session"
	claimsKey  = "claims"
)

type SessionMiddleware struct {
	Sessions session.Store
}

func NewSessionMiddleware(sessions session.Store) *SessionMiddleware {
	return &SessionMiddleware{Sessions: sessions}
}

func CORS(allowedOrigins string) fiber.Handler {
	return cors.New(cors.Config{
		AllowOrigins: allowedOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,OPTIONS",
	})
}

// RequireSession admits the request only when the bearer token names a live session owned by
// the token's user.
func (m *SessionMiddleware) RequireSession(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		logger.Warn("jwt_missing_header", map[string]interface{}{
			"ip":   c.IP(),
			"path": c.Path(),
		})
		return utils.Error(c, fiber.StatusUnauthorized, "missing authorization header")
	}

	tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
	if tokenString == authHeader || tokenString == "" {
		logger.Warn("jwt_invalid_format", map[string]interface{}{
			"ip":   c.IP(),
			"path": c.Path(),
		})
		return utils.Error(c, fiber.StatusUnauthorized, "invalid authorization format")
	}

	claims, err := utils.ValidateToken(tokenString)
	if err != nil {
		logger.Warn("jwt_validation_failed", map[string]interface{}{
			"ip":    c.IP(),
			"path":  c.Path(),
			"error": err.Error(),
		})
		return utils.Error(c, fiber.StatusUnauthorized, "invalid or expired token")
	}

	sess, err := m.Sessions.Get(c.UserContext(), claims.SessionID)
	if err != nil {
		if !errors.Is(err, session.ErrSessionNotFound) {
			logger.Error("session_lookup_failed", err, map[string]interface{}{
				"path": c.Path(),
			})
		}
		return utils.Error(c, fiber.StatusUnauthorized, "session expired, please log in again")
	}
	if sess.UserID != claims.UserID {
		logger.Warn("session_user_mismatch", map[string]interface{}{
			"ip":         c.IP(),
			"path":       c.Path(),
			"token_user": claims.UserID,
		})
		return utils.Error(c, fiber.StatusUnauthorized, "session expired, please log in again")
	}

	c.Locals(sessionKey, sess)
	c.Locals(claimsKey, claims)
	c.Locals("userID", strconv.FormatUint(uint64(sess.UserID), 10))
	return c.Next()
}

func GetSession(c *fiber.Ctx) *session.Context {
	value := c.Locals(sessionKey)
	if value == nil {
		return nil
	}
	sess, ok := value.(*session.Context)
	if !ok {
		return nil
	}
	return sess
}

func GetClaims(c *fiber.Ctx) *utils.Claims {
	claims, _ := c.Locals(claimsKey).(*utils.Claims)
	return claims
}
