package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/healthmate/server/internal/middleware"
	"github.com/healthmate/server/internal/services"
	"github.com/healthmate/server/internal/session"
	"github.com/healthmate/server/pkg/logger"
	"github.com/healthmate/server/pkg/utils"
)

type AuthHandler struct {
	Credentials *services.CredentialService
	Sessions    session.Store
	Audit       *services.AuditService
}

func NewAuthHandler(credentials *services.CredentialService, sessions session.Store, audit *services.AuditService) *AuthHandler {
	return &AuthHandler{Credentials: credentials, Sessions: sessions, Audit: audit}
}

func (h *AuthHandler) audit(c *fiber.Ctx, entry services.AuditEntry) {
	if h.Audit == nil {
		return
	}
	entry.IPAddress = c.IP()
	entry.RequestID = middleware.RequestID(c)
	h.Audit.LogAsync(entry)
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req services.RegistrationInput
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	user, err := h.Credentials.Register(c.UserContext(), req)
	if err != nil {
		return respondServiceError(c, err, "user_register_failed")
	}

	h.audit(c, services.AuditEntry{
		UserID:       &user.ID,
		Action:       services.AuditUserRegister,
		ResourceType: "user",
		ResourceID:   &user.ID,
		Details: map[string]interface{}{
			"email": user.Email,
		},
	})

	return utils.Success(c, fiber.StatusCreated, fiber.Map{
		"message": "Account created successfully!, Now you can login",
		"user":    user,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	identity, err := h.Credentials.Authenticate(c.UserContext(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			h.audit(c, services.AuditEntry{
				Action:       services.AuditUserLoginFailed,
				ResourceType: "user",
				Details: map[string]interface{}{
					"email": services.NormalizeEmail(req.Email),
				},
			})
		}
		return respondServiceError(c, err, "user_login_failed")
	}

	sess, err := h.Sessions.Create(c.UserContext(), session.Identity{
		UserID:    identity.ID,
		FirstName: identity.FirstName,
		LastName:  identity.LastName,
		Email:     identity.Email,
	})
	if err != nil {
		logger.ErrorWithUser(userIDString(identity.ID), "session_create_failed", err, nil)
		return utils.Error(c, fiber.StatusInternalServerError, "failed starting session")
	}

	token, expiresAt, err := utils.GenerateSessionToken(sess.ID, identity.ID, identity.Email)
	if err != nil {
		_ = h.Sessions.Destroy(c.UserContext(), sess.ID)
		logger.ErrorWithUser(userIDString(identity.ID), "token_generation_failed", err, nil)
		return utils.Error(c, fiber.StatusInternalServerError, "failed generating token")
	}
	// The session cannot outlive its token.
	if sess.ExpiresAt.Before(expiresAt) {
		expiresAt = sess.ExpiresAt
	}

	logger.InfoWithUser(userIDString(identity.ID), "user_login", map[string]interface{}{
		"ip": c.IP(),
	})
	h.audit(c, services.AuditEntry{
		UserID:       &identity.ID,
		Action:       services.AuditUserLogin,
		ResourceType: "user",
		ResourceID:   &identity.ID,
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"token":     token,
		"expiresAt": expiresAt.UTC().Format(time.RFC3339),
		"user":      identity,
	})
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	sess := middleware.GetSession(c)
	if sess == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	if err := h.Sessions.Destroy(c.UserContext(), sess.ID); err != nil {
		return respondServiceError(c, err, "session_destroy_failed")
	}

	h.audit(c, services.AuditEntry{
		UserID:       &sess.UserID,
		Action:       services.AuditUserLogout,
		ResourceType: "user",
		ResourceID:   &sess.UserID,
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "Logged out successfully!"})
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	sess := middleware.GetSession(c)
	if sess == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"user": services.Identity{
			ID:        sess.UserID,
			FirstName: sess.FirstName,
			LastName:  sess.LastName,
			Email:     sess.Email,
		},
		"displayName":      sess.DisplayName(),
		"transcriptLength": len(sess.Transcript),
		"sessionExpiresAt": sess.ExpiresAt,
		"tokenExpiresAt":   tokenExpiry(c),
	})
}

// tokenExpiry reports when the caller's bearer token lapses, or nil when it has no expiry.
func tokenExpiry(c *fiber.Ctx) *time.Time {
	claims := middleware.GetClaims(c)
	if claims == nil || claims.ExpiresAt == nil {
		return nil
	}
	at := claims.ExpiresAt.Time.UTC()
	return &at
}

func (h *AuthHandler) Activity(c *fiber.Ctx) error {
	sess := middleware.GetSession(c)
	if sess == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}
	if h.Audit == nil {
		return utils.Success(c, fiber.StatusOK, []interface{}{})
	}

	logs, err := h.Audit.RecentForUser(c.UserContext(), sess.UserID, utils.ParsePagination(c))
	if err != nil {
		return respondServiceError(c, err, "activity_list_failed")
	}
	return utils.Success(c, fiber.StatusOK, logs)
}
